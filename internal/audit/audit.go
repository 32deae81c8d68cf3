// Package audit maintains the append-only security event trails. Two
// streams exist side by side: one for submission events and one for login
// and account events. Entries are plain text lines so the trails stay
// readable without tooling, and every append reaches disk before the
// triggering operation returns.
package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// TimeLayout is the timestamp format used on every trail line.
const TimeLayout = "2006-01-02 15:04:05"

// Outcome tokens for the login/account stream.
const (
	AccountCreated   = "ACCOUNT_CREATED"
	LoginSuccess     = "LOGIN_SUCCESS"
	LoginFailure     = "LOGIN_FAILURE"
	LoginBlocked     = "LOGIN_BLOCKED"
	LockoutTriggered = "LOCKOUT_TRIGGERED"
	ManualUnlock     = "MANUAL_UNLOCK"
)

// Outcome tokens for the submission stream.
const (
	Accepted                  = "ACCEPTED"
	RejectedInvalidExtension  = "REJECTED_INVALID_EXTENSION"
	RejectedFileNotFound      = "REJECTED_FILE_NOT_FOUND"
	RejectedFileTooLarge      = "REJECTED_FILE_TOO_LARGE"
	RejectedDuplicateFilename = "REJECTED_DUPLICATE_FILENAME"
	RejectedDuplicateContent  = "REJECTED_DUPLICATE_CONTENT"
	CopyFailed                = "COPY_FAILED"
	StoreFailed               = "STORE_FAILED"
)

// Entry is one audit event. Subject is empty for login/account events;
// submission events carry the filename there.
type Entry struct {
	Time    time.Time
	Actor   string
	Subject string
	Outcome string
	Detail  string
}

// Format renders the entry as a single trail line:
//
//	2026-03-14 09:26:53 | USER=stu42 | STATUS=LOGIN_SUCCESS | logged in as student
//	2026-03-14 09:26:53 | USER=stu42 | FILE=report.pdf | STATUS=ACCEPTED | size=3.0 MiB hash=ab12cd34ef56
func (e Entry) Format() string {
	var sb strings.Builder
	sb.WriteString(e.Time.Format(TimeLayout))
	sb.WriteString(" | USER=")
	sb.WriteString(flatten(e.Actor))
	if e.Subject != "" {
		sb.WriteString(" | FILE=")
		sb.WriteString(flatten(e.Subject))
	}
	sb.WriteString(" | STATUS=")
	sb.WriteString(flatten(e.Outcome))
	sb.WriteString(" | ")
	sb.WriteString(flatten(e.Detail))
	sb.WriteString("\n")
	return sb.String()
}

// flatten keeps a field on one line so a crafted value cannot forge
// additional trail entries.
func flatten(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "\r", " ")
}

// ParseLine decodes a trail line back into an Entry. Returns false for
// lines that do not match the trail grammar.
func ParseLine(line string) (Entry, bool) {
	parts := strings.Split(strings.TrimRight(line, "\n"), " | ")
	if len(parts) < 4 {
		return Entry{}, false
	}

	ts, err := time.Parse(TimeLayout, parts[0])
	if err != nil {
		return Entry{}, false
	}

	entry := Entry{Time: ts}
	idx := 1

	if !strings.HasPrefix(parts[idx], "USER=") {
		return Entry{}, false
	}
	entry.Actor = strings.TrimPrefix(parts[idx], "USER=")
	idx++

	if strings.HasPrefix(parts[idx], "FILE=") {
		entry.Subject = strings.TrimPrefix(parts[idx], "FILE=")
		idx++
	}

	if idx >= len(parts) || !strings.HasPrefix(parts[idx], "STATUS=") {
		return Entry{}, false
	}
	entry.Outcome = strings.TrimPrefix(parts[idx], "STATUS=")
	idx++

	// The detail may itself contain the separator; rejoin the remainder.
	entry.Detail = strings.Join(parts[idx:], " | ")
	return entry, true
}

// Trail is one append-only audit stream backed by a text file. Appends are
// serialized by a mutex within the process; the file is opened in append
// mode so writes from another process land after ours instead of over them.
type Trail struct {
	path   string
	mu     sync.Mutex
	file   *os.File
	closed bool
	now    func() time.Time
}

// NewTrail opens (or creates) the trail file at path, creating parent
// directories as needed.
func NewTrail(path string) (*Trail, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit trail %s: %w", path, err)
	}

	return &Trail{
		path: path,
		file: file,
		now:  time.Now,
	}, nil
}

// Append writes one entry and syncs it to disk before returning, so the
// event is durable by the time the triggering operation reports back.
func (t *Trail) Append(actor, subject, outcome, detail string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return fmt.Errorf("audit trail is closed")
	}

	entry := Entry{
		Time:    t.now(),
		Actor:   actor,
		Subject: subject,
		Outcome: outcome,
		Detail:  detail,
	}

	if _, err := t.file.WriteString(entry.Format()); err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	if err := t.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync audit trail: %w", err)
	}
	return nil
}

// Tail returns the last n entries in append order. Lines that fail to
// parse are skipped rather than aborting the read.
func (t *Trail) Tail(n int) ([]Entry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	data, err := os.ReadFile(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read audit trail: %w", err)
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	entries := make([]Entry, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		if entry, ok := ParseLine(line); ok {
			entries = append(entries, entry)
		}
	}

	if n > 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	return entries, nil
}

// Path returns the trail file location.
func (t *Trail) Path() string {
	return t.path
}

// Close closes the trail file. Further appends fail.
func (t *Trail) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	return t.file.Close()
}
