// Package submit runs the submission pipeline: validate the file, fingerprint
// its content, reject duplicates, copy the file into the vault, and record the
// accepted submission in the index. Every attempt lands on the submission
// audit trail, accepted or not, before the result reaches the caller.
package submit

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"examgate/internal/audit"
	"examgate/internal/digest"
	"examgate/internal/logging"
	"examgate/internal/validate"
)

// Record is one accepted submission.
type Record struct {
	StudentID   string
	Filename    string
	ContentHash string
	SizeBytes   int64
	StoredName  string
	AcceptedAt  time.Time
}

// Store persists accepted submissions and answers duplicate lookups.
// AddSubmission must enforce the same uniqueness rules the lookups check,
// returning ErrDuplicateFilename or ErrDuplicateContent from this package,
// so a race between two submissions still classifies correctly.
type Store interface {
	HasSubmissionNamed(ctx context.Context, studentID, filename string) (bool, error)
	HasSubmissionContent(ctx context.Context, contentHash string) (bool, error)
	AddSubmission(ctx context.Context, rec *Record) error
	SubmissionsByStudent(ctx context.Context, studentID string) ([]*Record, error)
	AllSubmissions(ctx context.Context) ([]*Record, error)
}

// Vault copies accepted files into managed storage.
type Vault interface {
	Store(srcPath, studentID, filename string) (storedName string, err error)
	Remove(storedName string) error
}

// Audit appends one event to the submission audit trail.
type Audit interface {
	Append(actor, subject, outcome, detail string) error
}

// Service accepts or rejects submissions.
type Service struct {
	store  Store
	vault  Vault
	trail  Audit
	rules  *validate.Rules
	logger *logging.Logger

	now func() time.Time
}

// NewService creates a submission service.
func NewService(store Store, vault Vault, trail Audit, rules *validate.Rules, logger *logging.Logger) *Service {
	return &Service{
		store:  store,
		vault:  vault,
		trail:  trail,
		rules:  rules,
		logger: logger,
		now:    time.Now,
	}
}

// Submit runs the full pipeline for the file at path on behalf of studentID.
// The submitted filename is the base name of path.
func (s *Service) Submit(ctx context.Context, studentID, path string) (*Record, error) {
	return s.SubmitAs(ctx, studentID, filepath.Base(path), path)
}

// SubmitAs runs the pipeline with an explicit submission filename, for
// callers whose on-disk name differs from the declared one. Rejections
// happen in a fixed order: validation, duplicate filename, duplicate
// content. Only after all checks pass is the file copied into the vault and
// the record appended to the index; a failed append removes the copied file
// again so the index and the vault never disagree.
func (s *Service) SubmitAs(ctx context.Context, studentID, filename, path string) (*Record, error) {
	if result := s.rules.CheckFile(filename, path); !result.OK {
		s.audit(studentID, filename, rejectionOutcome(result.Reason), result.Detail)
		s.logger.Info("Submission rejected: %s %s (%s)", studentID, filename, result.Reason)
		return nil, &ValidationError{Reason: result.Reason, Detail: result.Detail}
	}

	hash, size, err := digest.File(path)
	if err != nil {
		detail := fmt.Sprintf("file became unreadable: %v", err)
		s.audit(studentID, filename, audit.RejectedFileNotFound, detail)
		return nil, &ValidationError{Reason: validate.ReasonFileNotFound, Detail: detail}
	}

	named, err := s.store.HasSubmissionNamed(ctx, studentID, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to check filename index: %w", err)
	}
	if named {
		s.audit(studentID, filename, audit.RejectedDuplicateFilename,
			"student already submitted a file with this name")
		return nil, ErrDuplicateFilename
	}

	exists, err := s.store.HasSubmissionContent(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to check content index: %w", err)
	}
	if exists {
		s.audit(studentID, filename, audit.RejectedDuplicateContent,
			fmt.Sprintf("content matches an existing submission (hash %s)", digest.Prefix(hash)))
		return nil, ErrDuplicateContent
	}

	storedName, err := s.vault.Store(path, studentID, filename)
	if err != nil {
		s.audit(studentID, filename, audit.CopyFailed, fmt.Sprintf("copy to vault failed: %v", err))
		s.logger.Warn("Submission copy failed: %s %s: %v", studentID, filename, err)
		return nil, &StorageError{Op: "copy", Err: err}
	}

	rec := &Record{
		StudentID:   studentID,
		Filename:    filename,
		ContentHash: hash,
		SizeBytes:   size,
		StoredName:  storedName,
		AcceptedAt:  s.now(),
	}

	if err := s.store.AddSubmission(ctx, rec); err != nil {
		// The copy must not outlive a failed index append.
		if rmErr := s.vault.Remove(storedName); rmErr != nil {
			s.logger.Error("Rollback of %s failed: %v", storedName, rmErr)
		}

		// Another submission may have won the race after our lookups.
		if errors.Is(err, ErrDuplicateFilename) {
			s.audit(studentID, filename, audit.RejectedDuplicateFilename,
				"student already submitted a file with this name")
			return nil, ErrDuplicateFilename
		}
		if errors.Is(err, ErrDuplicateContent) {
			s.audit(studentID, filename, audit.RejectedDuplicateContent,
				fmt.Sprintf("content matches an existing submission (hash %s)", digest.Prefix(hash)))
			return nil, ErrDuplicateContent
		}

		s.audit(studentID, filename, audit.StoreFailed, fmt.Sprintf("index append failed: %v", err))
		s.logger.Error("Submission index append failed: %s %s: %v", studentID, filename, err)
		return nil, &StorageError{Op: "index", Err: err}
	}

	s.audit(studentID, filename, audit.Accepted,
		fmt.Sprintf("size=%s hash=%s", humanize.IBytes(uint64(size)), digest.Prefix(hash)))
	s.logger.Info("Submission accepted: %s %s (%s)", studentID, filename, humanize.IBytes(uint64(size)))
	return rec, nil
}

// Submissions returns the accepted submissions of one student in acceptance
// order.
func (s *Service) Submissions(ctx context.Context, studentID string) ([]*Record, error) {
	recs, err := s.store.SubmissionsByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	return recs, nil
}

// AllSubmissions returns every accepted submission in acceptance order.
func (s *Service) AllSubmissions(ctx context.Context) ([]*Record, error) {
	recs, err := s.store.AllSubmissions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	return recs, nil
}

// rejectionOutcome maps a validation reason to its audit trail token.
func rejectionOutcome(reason validate.Reason) string {
	switch reason {
	case validate.ReasonInvalidExtension:
		return audit.RejectedInvalidExtension
	case validate.ReasonFileNotFound:
		return audit.RejectedFileNotFound
	case validate.ReasonFileTooLarge:
		return audit.RejectedFileTooLarge
	default:
		return "REJECTED"
	}
}

// audit appends to the submission trail. A trail failure is reported on the
// application log and does not fail the operation that triggered it.
func (s *Service) audit(actor, subject, outcome, detail string) {
	if err := s.trail.Append(actor, subject, outcome, detail); err != nil {
		s.logger.Error("Audit append failed for %s %s: %v", actor, outcome, err)
	}
}
