package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileWriter appends log lines to a file and rotates it when it grows past
// the configured size. Writes go straight to the file so the log stays
// current even if the process exits between menu operations.
type FileWriter struct {
	path    string
	file    *os.File
	rotator *Rotator
	mu      sync.Mutex
	closed  bool
}

// NewFileWriter opens (or creates) the log file in append mode. The parent
// directory is created if missing. maxSizeMB and maxBackups configure
// rotation.
func NewFileWriter(path string, maxSizeMB, maxBackups int) (*FileWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	return &FileWriter{
		path:    path,
		file:    file,
		rotator: NewRotator(path, maxSizeMB, maxBackups),
	}, nil
}

// Write appends data to the log file, rotating first when the file has
// reached the size threshold. Implements io.Writer and is safe for
// concurrent use.
func (fw *FileWriter) Write(p []byte) (int, error) {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.closed {
		return 0, fmt.Errorf("file writer is closed")
	}

	if info, err := fw.file.Stat(); err == nil && fw.rotator.ShouldRotate(info.Size()) {
		if err := fw.rotate(); err != nil {
			// Keep writing to the current file; rotation failure must not
			// lose log lines.
			fmt.Fprintf(os.Stderr, "[ERROR] log rotation failed: %v\n", err)
		}
	}

	return fw.file.Write(p)
}

// rotate closes the current file, shifts the backups, and reopens a fresh
// file. Caller must hold the mutex.
func (fw *FileWriter) rotate() error {
	if err := fw.file.Close(); err != nil {
		return fmt.Errorf("failed to close file before rotation: %w", err)
	}

	rotateErr := fw.rotator.Rotate()

	file, err := os.OpenFile(fw.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to reopen log file after rotation: %w", err)
	}
	fw.file = file

	return rotateErr
}

// Close closes the underlying file. Further writes fail.
func (fw *FileWriter) Close() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.closed {
		return nil
	}
	fw.closed = true

	if err := fw.file.Close(); err != nil {
		return fmt.Errorf("failed to close log file: %w", err)
	}
	return nil
}
