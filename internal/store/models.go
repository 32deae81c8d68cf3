package store

import "time"

// Roles an account can hold.
const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

// ValidRole reports whether role is one of the accepted account roles.
func ValidRole(role string) bool {
	return role == RoleStudent || role == RoleAdmin
}

// Account is one credential record together with its lockout state.
// FailedAttempts and LockedUntil are written only through the login flow
// and the manual unlock operation.
type Account struct {
	AccountID      string
	Role           string
	PasswordHash   string
	FailedAttempts int
	LockedUntil    *time.Time
	CreatedAt      time.Time
	LastLogin      *time.Time
}

// SubmissionRecord is one accepted submission. Records are immutable once
// written; the core never updates or deletes them.
type SubmissionRecord struct {
	StudentID   string
	Filename    string
	ContentHash string
	SizeBytes   int64
	StoredName  string
	AcceptedAt  time.Time
}
