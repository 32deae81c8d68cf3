package logging

import (
	"io"
	"strings"
)

// MultiWriter routes formatted log lines to the console and the debug log
// file by severity. With the debug file enabled, WARN and ERROR lines go
// to both destinations while DEBUG and INFO lines go to the file only, so
// the interactive menu stays quiet during normal operation.
type MultiWriter struct {
	console      io.Writer
	file         io.Writer
	debugEnabled bool
}

// NewMultiWriter creates a MultiWriter. When debugEnabled is false every
// line goes to the console and the file writer is ignored.
func NewMultiWriter(console, file io.Writer, debugEnabled bool) *MultiWriter {
	return &MultiWriter{
		console:      console,
		file:         file,
		debugEnabled: debugEnabled,
	}
}

// Write implements io.Writer, routing p by the level embedded in the
// formatted line.
func (m *MultiWriter) Write(p []byte) (int, error) {
	if !m.debugEnabled || m.file == nil {
		return m.console.Write(p)
	}

	n, err := m.file.Write(p)
	if err != nil {
		return n, err
	}

	level := extractLevel(p)
	if level == "WARN" || level == "ERROR" {
		if _, cerr := m.console.Write(p); cerr != nil {
			return n, cerr
		}
	}
	return len(p), nil
}

// extractLevel parses the severity token from a formatted line.
// Expected shape: [YYYY-MM-DD HH:MM:SS] LEVEL [component] ...
func extractLevel(p []byte) string {
	msg := string(p)

	end := strings.Index(msg, "] ")
	if end == -1 {
		return ""
	}
	rest := msg[end+2:]

	space := strings.Index(rest, " ")
	if space == -1 {
		return ""
	}
	return rest[:space]
}
