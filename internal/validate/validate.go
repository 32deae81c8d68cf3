// Package validate enforces the acceptance rules for submitted exam files.
// Validation is pure: it reads file metadata only and never touches the
// submission index or the vault.
package validate

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
)

// DefaultMaxFileSize caps submissions at 5 MiB.
const DefaultMaxFileSize = 5 * 1024 * 1024

// Reason identifies the first rule a rejected file failed.
type Reason string

const (
	ReasonInvalidExtension Reason = "invalid_extension"
	ReasonFileNotFound     Reason = "file_not_found"
	ReasonFileTooLarge     Reason = "file_too_large"
)

// Result is the outcome of a validation run. When OK is false, Reason
// names the failing rule and Detail carries a human-readable explanation.
type Result struct {
	OK     bool
	Reason Reason
	Detail string
}

// Rules holds the acceptance limits for submissions.
type Rules struct {
	MaxFileSize       int64
	AllowedExtensions []string
}

// NewRules returns rules with the default limits: pdf and docx artifacts
// up to DefaultMaxFileSize.
func NewRules() *Rules {
	return &Rules{
		MaxFileSize:       DefaultMaxFileSize,
		AllowedExtensions: []string{".pdf", ".docx"},
	}
}

// IsAllowedExtension checks if a file extension is in the allowed list.
// The comparison is case-insensitive.
func (r *Rules) IsAllowedExtension(ext string) bool {
	ext = strings.ToLower(ext)
	for _, allowed := range r.AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// Check runs the validation pipeline against the file at path, using the
// path's own name for the extension rule.
func (r *Rules) Check(path string) Result {
	return r.CheckFile(path, path)
}

// CheckFile runs the validation pipeline with an explicit declared name for
// the extension rule and path for the on-disk checks. The two differ for
// inbox drops, whose disk names carry a student prefix. Checks run in a
// fixed order and stop at the first failure: extension, then file
// resolution, then size. Nothing is hashed or copied here, so files that
// will be rejected cost no content I/O.
func (r *Rules) CheckFile(declaredName, path string) Result {
	ext := filepath.Ext(declaredName)
	if !r.IsAllowedExtension(ext) {
		return Result{
			Reason: ReasonInvalidExtension,
			Detail: fmt.Sprintf("extension %q is not in the allowed list %v", ext, r.AllowedExtensions),
		}
	}

	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return Result{
			Reason: ReasonFileNotFound,
			Detail: fmt.Sprintf("%s is not a readable regular file", path),
		}
	}

	if info.Size() > r.MaxFileSize {
		return Result{
			Reason: ReasonFileTooLarge,
			Detail: fmt.Sprintf("file size %s exceeds the %s limit",
				humanize.IBytes(uint64(info.Size())), humanize.IBytes(uint64(r.MaxFileSize))),
		}
	}

	return Result{OK: true}
}
