package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testSubmission(student, filename, hash string) *SubmissionRecord {
	return &SubmissionRecord{
		StudentID:   student,
		Filename:    filename,
		ContentHash: hash,
		SizeBytes:   3 * 1024 * 1024,
		StoredName:  student + "__" + filename,
		AcceptedAt:  time.Date(2026, 2, 1, 14, 0, 0, 0, time.UTC),
	}
}

func TestAddAndLookupSubmission(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := testSubmission("stu42", "report.pdf", "abc123")
	if err := s.AddSubmission(ctx, rec); err != nil {
		t.Fatalf("AddSubmission() error = %v", err)
	}

	named, err := s.HasSubmissionNamed(ctx, "stu42", "report.pdf")
	if err != nil {
		t.Fatalf("HasSubmissionNamed() error = %v", err)
	}
	if !named {
		t.Error("HasSubmissionNamed() = false for a stored submission")
	}

	content, err := s.HasSubmissionContent(ctx, "abc123")
	if err != nil {
		t.Fatalf("HasSubmissionContent() error = %v", err)
	}
	if !content {
		t.Error("HasSubmissionContent() = false for a stored hash")
	}
}

func TestLookupMisses(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.AddSubmission(ctx, testSubmission("stu42", "report.pdf", "abc123")); err != nil {
		t.Fatalf("AddSubmission() error = %v", err)
	}

	tests := []struct {
		name    string
		student string
		file    string
	}{
		{"different student", "stu07", "report.pdf"},
		{"different filename", "stu42", "essay.pdf"},
		{"filename case differs", "stu42", "Report.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.HasSubmissionNamed(ctx, tt.student, tt.file)
			if err != nil {
				t.Fatalf("HasSubmissionNamed() error = %v", err)
			}
			if got {
				t.Errorf("HasSubmissionNamed(%s, %s) = true, want false", tt.student, tt.file)
			}
		})
	}

	got, err := s.HasSubmissionContent(ctx, "other-hash")
	if err != nil {
		t.Fatalf("HasSubmissionContent() error = %v", err)
	}
	if got {
		t.Error("HasSubmissionContent() = true for an unknown hash")
	}
}

func TestAddSubmissionDuplicateName(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.AddSubmission(ctx, testSubmission("stu42", "report.pdf", "hash-one")); err != nil {
		t.Fatalf("AddSubmission() error = %v", err)
	}

	// Same student and filename with different content collides on the
	// primary key.
	err := s.AddSubmission(ctx, testSubmission("stu42", "report.pdf", "hash-two"))
	if !errors.Is(err, ErrDuplicateName) {
		t.Errorf("AddSubmission() error = %v, want ErrDuplicateName", err)
	}
}

func TestAddSubmissionDuplicateContent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.AddSubmission(ctx, testSubmission("stu42", "report.pdf", "same-hash")); err != nil {
		t.Fatalf("AddSubmission() error = %v", err)
	}

	// A different student uploading a renamed copy collides on the
	// content hash index.
	err := s.AddSubmission(ctx, testSubmission("stu07", "my_report.pdf", "same-hash"))
	if !errors.Is(err, ErrDuplicateContent) {
		t.Errorf("AddSubmission() error = %v, want ErrDuplicateContent", err)
	}
}

func TestSameFilenameAcrossStudents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.AddSubmission(ctx, testSubmission("stu42", "report.pdf", "hash-a")); err != nil {
		t.Fatalf("AddSubmission() error = %v", err)
	}
	// Filenames only collide within a student, not across them.
	if err := s.AddSubmission(ctx, testSubmission("stu07", "report.pdf", "hash-b")); err != nil {
		t.Errorf("AddSubmission() error = %v, want nil for same name under another student", err)
	}
}

func TestSubmissionsByStudent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 2, 1, 14, 0, 0, 0, time.UTC)
	first := testSubmission("stu42", "essay.docx", "h1")
	first.AcceptedAt = base
	second := testSubmission("stu42", "report.pdf", "h2")
	second.AcceptedAt = base.Add(time.Hour)
	other := testSubmission("stu07", "notes.pdf", "h3")
	other.AcceptedAt = base.Add(30 * time.Minute)

	for _, rec := range []*SubmissionRecord{second, other, first} {
		if err := s.AddSubmission(ctx, rec); err != nil {
			t.Fatalf("AddSubmission(%s) error = %v", rec.Filename, err)
		}
	}

	got, err := s.SubmissionsByStudent(ctx, "stu42")
	if err != nil {
		t.Fatalf("SubmissionsByStudent() error = %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("SubmissionsByStudent() returned %d records, want 2", len(got))
	}
	if got[0].Filename != "essay.docx" || got[1].Filename != "report.pdf" {
		t.Errorf("order = [%s, %s], want acceptance order [essay.docx, report.pdf]",
			got[0].Filename, got[1].Filename)
	}
	if got[0].SizeBytes != 3*1024*1024 {
		t.Errorf("SizeBytes = %d, want %d", got[0].SizeBytes, 3*1024*1024)
	}
	if got[0].StoredName != "stu42__essay.docx" {
		t.Errorf("StoredName = %s, want stu42__essay.docx", got[0].StoredName)
	}
}

func TestSubmissionsByStudentEmpty(t *testing.T) {
	s := newTestStore(t)

	got, err := s.SubmissionsByStudent(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("SubmissionsByStudent() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("SubmissionsByStudent() returned %d records, want 0", len(got))
	}
}

func TestAllSubmissions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 2, 1, 14, 0, 0, 0, time.UTC)
	recs := []*SubmissionRecord{
		testSubmission("stu42", "report.pdf", "h1"),
		testSubmission("stu07", "essay.docx", "h2"),
		testSubmission("stu42", "notes.pdf", "h3"),
	}
	for i, rec := range recs {
		rec.AcceptedAt = base.Add(time.Duration(i) * time.Minute)
		if err := s.AddSubmission(ctx, rec); err != nil {
			t.Fatalf("AddSubmission(%s) error = %v", rec.Filename, err)
		}
	}

	got, err := s.AllSubmissions(ctx)
	if err != nil {
		t.Fatalf("AllSubmissions() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("AllSubmissions() returned %d records, want 3", len(got))
	}
	want := []string{"report.pdf", "essay.docx", "notes.pdf"}
	for i, name := range want {
		if got[i].Filename != name {
			t.Errorf("got[%d].Filename = %s, want %s (acceptance order)", i, got[i].Filename, name)
		}
	}
}
