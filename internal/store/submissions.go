package store

import (
	"context"
	"fmt"
)

// HasSubmissionNamed reports whether a record already exists for exactly
// this (student, filename) pair. The match is case-sensitive.
func (s *Store) HasSubmissionNamed(ctx context.Context, studentID, filename string) (bool, error) {
	query := `SELECT COUNT(*) FROM submissions WHERE student_id = ? AND filename = ?`

	var count int
	if err := s.db.QueryRowContext(ctx, query, studentID, filename).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check submission name: %w", err)
	}
	return count > 0, nil
}

// HasSubmissionContent reports whether any record, regardless of student,
// carries this content hash. Content deduplication is global.
func (s *Store) HasSubmissionContent(ctx context.Context, contentHash string) (bool, error) {
	query := `SELECT COUNT(*) FROM submissions WHERE content_hash = ?`

	var count int
	if err := s.db.QueryRowContext(ctx, query, contentHash).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check submission content: %w", err)
	}
	return count > 0, nil
}

// AddSubmission appends one accepted submission. The insert is atomic:
// either the whole record lands or nothing does. Unique constraint
// violations map to ErrDuplicateName and ErrDuplicateContent so a racing
// duplicate is classified the same way as one caught by lookup.
func (s *Store) AddSubmission(ctx context.Context, rec *SubmissionRecord) error {
	query := `INSERT INTO submissions (student_id, filename, content_hash, size_bytes, stored_name, accepted_at) VALUES (?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		rec.StudentID,
		rec.Filename,
		rec.ContentHash,
		rec.SizeBytes,
		rec.StoredName,
		rec.AcceptedAt,
	)
	if err != nil {
		if uniqueViolation(err, "submissions.content_hash") {
			return ErrDuplicateContent
		}
		if uniqueViolation(err, "submissions.student_id") {
			return ErrDuplicateName
		}
		return fmt.Errorf("failed to add submission: %w", err)
	}

	return nil
}

// SubmissionsByStudent returns the accepted submissions of one student in
// acceptance order.
func (s *Store) SubmissionsByStudent(ctx context.Context, studentID string) ([]SubmissionRecord, error) {
	query := `SELECT student_id, filename, content_hash, size_bytes, stored_name, accepted_at FROM submissions WHERE student_id = ? ORDER BY accepted_at, filename`
	return s.querySubmissions(ctx, query, studentID)
}

// AllSubmissions returns every accepted submission in acceptance order.
func (s *Store) AllSubmissions(ctx context.Context) ([]SubmissionRecord, error) {
	query := `SELECT student_id, filename, content_hash, size_bytes, stored_name, accepted_at FROM submissions ORDER BY accepted_at, student_id, filename`
	return s.querySubmissions(ctx, query)
}

func (s *Store) querySubmissions(ctx context.Context, query string, args ...interface{}) ([]SubmissionRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer rows.Close()

	var records []SubmissionRecord
	for rows.Next() {
		var rec SubmissionRecord
		err := rows.Scan(
			&rec.StudentID,
			&rec.Filename,
			&rec.ContentHash,
			&rec.SizeBytes,
			&rec.StoredName,
			&rec.AcceptedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate submissions: %w", err)
	}

	return records, nil
}
