package store

import (
	"context"
	"database/sql"
	"fmt"
)

// runMigrations executes all database migrations in a transaction
func (s *Store) runMigrations(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration transaction: %w", err)
	}

	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if err = createAccountsTable(ctx, tx); err != nil {
		return fmt.Errorf("failed to create accounts table: %w", err)
	}

	if err = createSubmissionsTable(ctx, tx); err != nil {
		return fmt.Errorf("failed to create submissions table: %w", err)
	}

	if err = createIndexes(ctx, tx); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration transaction: %w", err)
	}

	return nil
}

// createAccountsTable creates the accounts table if it doesn't exist.
// The CHECK constraints reject malformed rows at the engine level so a
// corrupted writer cannot leave the store in a state readers must guess
// about.
func createAccountsTable(ctx context.Context, tx *sql.Tx) error {
	query := `
		CREATE TABLE IF NOT EXISTS accounts (
			account_id TEXT PRIMARY KEY,
			role TEXT NOT NULL CHECK(role IN ('student', 'admin')),
			password_hash TEXT NOT NULL,
			failed_attempts INTEGER NOT NULL DEFAULT 0 CHECK(failed_attempts >= 0),
			locked_until TIMESTAMP,
			created_at TIMESTAMP NOT NULL,
			last_login TIMESTAMP
		)
	`
	_, err := tx.ExecContext(ctx, query)
	return err
}

// createSubmissionsTable creates the submissions table if it doesn't exist.
// The composite primary key enforces one submission per (student, filename);
// the content hash gets its global uniqueness from an index below.
func createSubmissionsTable(ctx context.Context, tx *sql.Tx) error {
	query := `
		CREATE TABLE IF NOT EXISTS submissions (
			student_id TEXT NOT NULL,
			filename TEXT NOT NULL,
			content_hash TEXT NOT NULL,
			size_bytes INTEGER NOT NULL CHECK(size_bytes >= 0),
			stored_name TEXT NOT NULL,
			accepted_at TIMESTAMP NOT NULL,
			PRIMARY KEY (student_id, filename)
		)
	`
	_, err := tx.ExecContext(ctx, query)
	return err
}

// createIndexes creates constraint and performance indexes if they don't
// exist. Content deduplication is global, so the hash index is UNIQUE
// across all students.
func createIndexes(ctx context.Context, tx *sql.Tx) error {
	indexes := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_submissions_content_hash ON submissions(content_hash)`,
		`CREATE INDEX IF NOT EXISTS idx_submissions_student ON submissions(student_id)`,
		`CREATE INDEX IF NOT EXISTS idx_submissions_accepted ON submissions(accepted_at)`,
		`CREATE INDEX IF NOT EXISTS idx_accounts_role ON accounts(role)`,
	}

	for _, indexQuery := range indexes {
		if _, err := tx.ExecContext(ctx, indexQuery); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}
