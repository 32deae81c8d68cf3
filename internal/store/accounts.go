package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// CreateAccount inserts a new credential record. The account starts with
// zero failed attempts and no lock. Returns ErrAccountExists when the id
// is already taken.
func (s *Store) CreateAccount(ctx context.Context, accountID, role, passwordHash string, createdAt time.Time) error {
	if !ValidRole(role) {
		return fmt.Errorf("invalid role %q", role)
	}

	query := `INSERT INTO accounts (account_id, role, password_hash, failed_attempts, created_at) VALUES (?, ?, ?, 0, ?)`
	_, err := s.db.ExecContext(ctx, query, accountID, role, passwordHash, createdAt)
	if err != nil {
		if uniqueViolation(err, "accounts.account_id") {
			return ErrAccountExists
		}
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// GetAccount retrieves an account by id. Returns ErrAccountNotFound when
// no record matches.
func (s *Store) GetAccount(ctx context.Context, accountID string) (*Account, error) {
	query := `SELECT account_id, role, password_hash, failed_attempts, locked_until, created_at, last_login FROM accounts WHERE account_id = ?`

	var acct Account
	var lockedUntil, lastLogin sql.NullTime

	err := s.db.QueryRowContext(ctx, query, accountID).Scan(
		&acct.AccountID,
		&acct.Role,
		&acct.PasswordHash,
		&acct.FailedAttempts,
		&lockedUntil,
		&acct.CreatedAt,
		&lastLogin,
	)
	if err == sql.ErrNoRows {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	if lockedUntil.Valid {
		t := lockedUntil.Time
		acct.LockedUntil = &t
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		acct.LastLogin = &t
	}

	return &acct, nil
}

// SaveAccount persists the mutable fields of an account record: password
// hash, failed attempts, lock expiry, and last login. Returns
// ErrAccountNotFound when the account does not exist.
func (s *Store) SaveAccount(ctx context.Context, acct *Account) error {
	query := `UPDATE accounts SET password_hash = ?, failed_attempts = ?, locked_until = ?, last_login = ? WHERE account_id = ?`

	result, err := s.db.ExecContext(ctx, query,
		acct.PasswordHash,
		acct.FailedAttempts,
		nullableTime(acct.LockedUntil),
		nullableTime(acct.LastLogin),
		acct.AccountID,
	)
	if err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check save result: %w", err)
	}
	if rows == 0 {
		return ErrAccountNotFound
	}

	return nil
}

// RecordLoginFailure increments the failed-attempt counter and arms the
// lock when the counter reaches threshold, all inside one transaction.
// Concurrent failures for the same account serialize on the database
// write lock, so no increment is lost. Returns the updated account.
func (s *Store) RecordLoginFailure(ctx context.Context, accountID string, threshold int, lockUntil time.Time) (*Account, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin failure transaction: %w", err)
	}
	defer tx.Rollback()

	var acct Account
	var lockedUntil, lastLogin sql.NullTime

	err = tx.QueryRowContext(ctx,
		`SELECT account_id, role, password_hash, failed_attempts, locked_until, created_at, last_login FROM accounts WHERE account_id = ?`,
		accountID,
	).Scan(
		&acct.AccountID,
		&acct.Role,
		&acct.PasswordHash,
		&acct.FailedAttempts,
		&lockedUntil,
		&acct.CreatedAt,
		&lastLogin,
	)
	if err == sql.ErrNoRows {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read account for failure update: %w", err)
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		acct.LastLogin = &t
	}

	acct.FailedAttempts++
	if acct.FailedAttempts >= threshold {
		t := lockUntil
		acct.LockedUntil = &t
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE accounts SET failed_attempts = ?, locked_until = ? WHERE account_id = ?`,
		acct.FailedAttempts,
		nullableTime(acct.LockedUntil),
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record login failure: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit failure transaction: %w", err)
	}

	return &acct, nil
}

// ListAccounts returns all accounts ordered by creation time.
func (s *Store) ListAccounts(ctx context.Context) ([]Account, error) {
	query := `SELECT account_id, role, password_hash, failed_attempts, locked_until, created_at, last_login FROM accounts ORDER BY created_at, account_id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		var acct Account
		var lockedUntil, lastLogin sql.NullTime

		err := rows.Scan(
			&acct.AccountID,
			&acct.Role,
			&acct.PasswordHash,
			&acct.FailedAttempts,
			&lockedUntil,
			&acct.CreatedAt,
			&lastLogin,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}

		if lockedUntil.Valid {
			t := lockedUntil.Time
			acct.LockedUntil = &t
		}
		if lastLogin.Valid {
			t := lastLogin.Time
			acct.LastLogin = &t
		}

		accounts = append(accounts, acct)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}

	return accounts, nil
}

// nullableTime converts an optional time into a driver-friendly value.
func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}
