package store

import (
	"errors"
	"strings"
)

// Sentinel errors returned by store operations. Callers match them with
// errors.Is.
var (
	ErrAccountNotFound  = errors.New("account not found")
	ErrAccountExists    = errors.New("account already exists")
	ErrDuplicateName    = errors.New("student already has a submission with this filename")
	ErrDuplicateContent = errors.New("a submission with identical content already exists")
)

// uniqueViolation reports whether err is a SQLite UNIQUE constraint
// failure touching the given column path (e.g. "submissions.content_hash").
// The driver exposes constraint failures as text, so this matches on the
// message.
func uniqueViolation(err error, column string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") && strings.Contains(msg, column)
}
