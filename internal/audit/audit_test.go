package audit

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func newTestTrail(t *testing.T) *Trail {
	t.Helper()
	trail, err := NewTrail(filepath.Join(t.TempDir(), "audit", "events.log"))
	if err != nil {
		t.Fatalf("NewTrail() error = %v", err)
	}
	t.Cleanup(func() { trail.Close() })
	return trail
}

func TestAppendWritesFormattedLine(t *testing.T) {
	trail := newTestTrail(t)
	trail.now = func() time.Time {
		return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	}

	if err := trail.Append("stu42", "", LoginSuccess, "logged in as student"); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	data, err := os.ReadFile(trail.Path())
	if err != nil {
		t.Fatalf("failed to read trail: %v", err)
	}
	want := "2026-03-14 09:26:53 | USER=stu42 | STATUS=LOGIN_SUCCESS | logged in as student\n"
	if string(data) != want {
		t.Errorf("trail line = %q, want %q", data, want)
	}
}

func TestAppendWithSubject(t *testing.T) {
	trail := newTestTrail(t)
	trail.now = func() time.Time {
		return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	}

	if err := trail.Append("A123", "report.pdf", Accepted, "size=3145728"); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	data, _ := os.ReadFile(trail.Path())
	want := "2026-03-14 09:26:53 | USER=A123 | FILE=report.pdf | STATUS=ACCEPTED | size=3145728\n"
	if string(data) != want {
		t.Errorf("trail line = %q, want %q", data, want)
	}
}

func TestAppendPreservesExistingEntries(t *testing.T) {
	trail := newTestTrail(t)

	trail.Append("a", "", LoginFailure, "first")
	trail.Append("b", "", LoginFailure, "second")

	data, _ := os.ReadFile(trail.Path())
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("trail has %d lines, want 2", len(lines))
	}
	if !strings.Contains(lines[0], "USER=a") || !strings.Contains(lines[1], "USER=b") {
		t.Errorf("entries out of append order: %v", lines)
	}
}

func TestAppendFlattensNewlines(t *testing.T) {
	trail := newTestTrail(t)

	err := trail.Append("mallory", "", LoginFailure, "bad\n2026-01-01 00:00:00 | USER=admin | STATUS=LOGIN_SUCCESS | forged")
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	data, _ := os.ReadFile(trail.Path())
	if got := strings.Count(string(data), "\n"); got != 1 {
		t.Errorf("trail has %d newlines, want 1 (injection must not add lines)", got)
	}
}

func TestAppendAfterClose(t *testing.T) {
	trail := newTestTrail(t)
	trail.Close()

	if err := trail.Append("x", "", LoginFailure, "late"); err == nil {
		t.Error("Append() after Close() should fail")
	}
}

func TestTailReturnsLastN(t *testing.T) {
	trail := newTestTrail(t)

	for _, actor := range []string{"u1", "u2", "u3", "u4", "u5"} {
		if err := trail.Append(actor, "", LoginFailure, "wrong password"); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	entries, err := trail.Tail(3)
	if err != nil {
		t.Fatalf("Tail() error = %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Tail(3) returned %d entries", len(entries))
	}
	for i, want := range []string{"u3", "u4", "u5"} {
		if entries[i].Actor != want {
			t.Errorf("entries[%d].Actor = %s, want %s", i, entries[i].Actor, want)
		}
	}
}

func TestTailFewerEntriesThanRequested(t *testing.T) {
	trail := newTestTrail(t)
	trail.Append("only", "", AccountCreated, "role=student")

	entries, err := trail.Tail(20)
	if err != nil {
		t.Fatalf("Tail() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("Tail(20) returned %d entries, want 1", len(entries))
	}
}

func TestTailMissingFile(t *testing.T) {
	trail := newTestTrail(t)
	path := trail.Path()
	trail.Close()
	os.Remove(path)

	// Reopen semantics are not needed; Tail on a removed file is empty.
	trail2 := &Trail{path: path, now: time.Now}
	entries, err := trail2.Tail(10)
	if err != nil {
		t.Fatalf("Tail() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Tail() on missing file returned %d entries", len(entries))
	}
}

func TestParseLineRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		entry Entry
	}{
		{
			"login event",
			Entry{
				Time:    time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC),
				Actor:   "stu42",
				Outcome: LoginBlocked,
				Detail:  "account locked, 12 minutes remaining",
			},
		},
		{
			"submission event",
			Entry{
				Time:    time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC),
				Actor:   "A123",
				Subject: "report copy.pdf",
				Outcome: RejectedDuplicateContent,
				Detail:  "hash=ab12cd34ef56",
			},
		},
		{
			"detail containing separator",
			Entry{
				Time:    time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC),
				Actor:   "admin",
				Outcome: ManualUnlock,
				Detail:  "unlocked by admin | reason: exam day",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseLine(tt.entry.Format())
			if !ok {
				t.Fatalf("ParseLine() failed on %q", tt.entry.Format())
			}
			if got != tt.entry {
				t.Errorf("round trip = %+v, want %+v", got, tt.entry)
			}
		})
	}
}

func TestParseLineRejectsGarbage(t *testing.T) {
	tests := []string{
		"",
		"not an audit line",
		"2026-01-02 | USER=x | STATUS=Y | z",
		"2026-01-02 15:04:05 | STATUS=missing-user | x | y",
		"2026-01-02 15:04:05 | USER=x | no-status-here",
	}

	for _, line := range tests {
		if _, ok := ParseLine(line); ok {
			t.Errorf("ParseLine(%q) accepted a malformed line", line)
		}
	}
}

func TestConcurrentAppends(t *testing.T) {
	trail := newTestTrail(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			trail.Append("worker", "", LoginFailure, "wrong password")
		}()
	}
	wg.Wait()

	entries, err := trail.Tail(0)
	if err != nil {
		t.Fatalf("Tail() error = %v", err)
	}
	if len(entries) != 10 {
		t.Errorf("trail has %d entries, want 10 complete lines", len(entries))
	}
}
