package logging

import (
	"fmt"
	"os"
)

// Rotator renames a log file into numbered backups once it exceeds a size
// threshold: app.log becomes app.log.1, an existing app.log.1 becomes
// app.log.2, and the backup past maxBackups is deleted.
type Rotator struct {
	basePath   string
	maxSizeMB  int
	maxBackups int
}

// NewRotator creates a rotator for basePath.
func NewRotator(basePath string, maxSizeMB, maxBackups int) *Rotator {
	return &Rotator{
		basePath:   basePath,
		maxSizeMB:  maxSizeMB,
		maxBackups: maxBackups,
	}
}

// ShouldRotate reports whether a file of currentSize bytes is due for
// rotation.
func (r *Rotator) ShouldRotate(currentSize int64) bool {
	return currentSize >= int64(r.maxSizeMB)*1024*1024
}

// Rotate shifts the backup chain by one and moves the current file to the
// .1 slot. With maxBackups == 0 the current file is simply removed.
func (r *Rotator) Rotate() error {
	if r.maxBackups == 0 {
		if err := os.Remove(r.basePath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove log file: %w", err)
		}
		return nil
	}

	// Drop the backup that would fall off the end of the chain.
	oldest := fmt.Sprintf("%s.%d", r.basePath, r.maxBackups)
	if _, err := os.Stat(oldest); err == nil {
		if err := os.Remove(oldest); err != nil {
			return fmt.Errorf("failed to delete oldest backup %s: %w", oldest, err)
		}
	}

	// Shift the remaining backups up one slot, newest last.
	for i := r.maxBackups - 1; i >= 1; i-- {
		oldPath := fmt.Sprintf("%s.%d", r.basePath, i)
		newPath := fmt.Sprintf("%s.%d", r.basePath, i+1)
		if _, err := os.Stat(oldPath); err == nil {
			if err := os.Rename(oldPath, newPath); err != nil {
				return fmt.Errorf("failed to rename backup %s to %s: %w", oldPath, newPath, err)
			}
		}
	}

	if _, err := os.Stat(r.basePath); err == nil {
		if err := os.Rename(r.basePath, r.basePath+".1"); err != nil {
			return fmt.Errorf("failed to rename current log to backup: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat log file: %w", err)
	}

	return nil
}
