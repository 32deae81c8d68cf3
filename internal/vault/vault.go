// Package vault manages the storage area for accepted submission files.
// Files are copied in under a deterministic stored name and are never
// overwritten once written.
package vault

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrExists is returned when a stored name is already occupied.
var ErrExists = errors.New("stored file already exists")

// Vault copies accepted files into a managed directory.
type Vault struct {
	dir string
}

// New creates the vault directory if needed and returns a Vault rooted there.
func New(dir string) (*Vault, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create vault directory: %w", err)
	}
	return &Vault{dir: dir}, nil
}

// Dir returns the vault root directory.
func (v *Vault) Dir() string {
	return v.dir
}

// StoredName builds the on-disk name for a submission. The owner and the
// original filename stay recognizable so an administrator can identify a
// stored file without consulting the database.
func StoredName(studentID, filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	owner := sanitize(studentID)
	if owner == "" {
		owner = "unknown"
	}
	name := sanitize(base)
	if name == "" {
		name = "file"
	}

	// Cap component lengths so the joined name stays well under
	// filesystem limits.
	if len(owner) > 40 {
		owner = owner[:40]
	}
	if len(name) > 80 {
		name = name[:80]
	}
	if ext != "" {
		ext = "." + sanitize(ext[1:])
	}

	return owner + "__" + name + ext
}

// Store copies the file at srcPath into the vault under the stored name for
// (studentID, filename) and returns that name. The copy goes through a
// uniquely named temp file and an atomic rename, so a failure never leaves a
// partial file under the final name. An occupied stored name fails with
// ErrExists.
func (v *Vault) Store(srcPath, studentID, filename string) (string, error) {
	storedName := StoredName(studentID, filename)
	fullPath := filepath.Join(v.dir, storedName)

	if _, err := os.Stat(fullPath); err == nil {
		return "", fmt.Errorf("%w: %s", ErrExists, storedName)
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return "", fmt.Errorf("failed to open source file: %w", err)
	}
	defer src.Close()

	tmpPath := fullPath + "." + uuid.New().String()[:8] + ".tmp"
	dst, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to copy file data: %w", err)
	}

	if err := dst.Sync(); err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to sync file data: %w", err)
	}

	if err := dst.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to move file into place: %w", err)
	}

	return storedName, nil
}

// Remove deletes a stored file. A name that is already gone is not an error,
// which keeps rollback after a failed database insert idempotent.
func (v *Vault) Remove(storedName string) error {
	err := os.Remove(filepath.Join(v.dir, storedName))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove stored file %s: %w", storedName, err)
	}
	return nil
}

// Exists reports whether a stored name is present in the vault.
func (v *Vault) Exists(storedName string) bool {
	_, err := os.Stat(filepath.Join(v.dir, storedName))
	return err == nil
}

// sanitize keeps letters, digits, hyphen and underscore. Everything else,
// including path separators, is dropped.
func sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
