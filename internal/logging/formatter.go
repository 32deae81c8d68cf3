package logging

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Entry represents a structured log entry
type Entry struct {
	Timestamp time.Time
	Level     Level
	Component string
	Message   string
	Context   map[string]interface{}
}

// Formatter renders log entries as single text lines
type Formatter struct{}

// NewFormatter creates a new log formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

// Format renders an entry.
// Output format: [YYYY-MM-DD HH:MM:SS] LEVEL [component] message key=value
// Context keys are sorted so output is deterministic.
func (f *Formatter) Format(entry Entry) string {
	var sb strings.Builder

	sb.WriteString("[")
	sb.WriteString(entry.Timestamp.Format("2006-01-02 15:04:05"))
	sb.WriteString("] ")

	sb.WriteString(entry.Level.String())
	sb.WriteString(" ")

	sb.WriteString("[")
	sb.WriteString(entry.Component)
	sb.WriteString("] ")

	sb.WriteString(sanitizeMessage(entry.Message))

	if len(entry.Context) > 0 {
		keys := make([]string, 0, len(entry.Context))
		for k := range entry.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, key := range keys {
			sb.WriteString(" ")
			sb.WriteString(key)
			sb.WriteString("=")
			sb.WriteString(fmt.Sprintf("%v", entry.Context[key]))
		}
	}

	sb.WriteString("\n")
	return sb.String()
}

// sanitizeMessage replaces control characters except \n and \t with spaces
// to prevent log injection
func sanitizeMessage(msg string) string {
	var sb strings.Builder
	for _, r := range msg {
		if r == '\n' || r == '\t' {
			sb.WriteRune(r)
		} else if r < 0x20 {
			sb.WriteRune(' ')
		} else {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
