// Package store persists the two durable mappings of the system: the
// submission index and the account records. Both live in one SQLite
// database so a single open handle covers the core.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store provides database operations for the submission index and the
// account records.
type Store struct {
	db *sql.DB
}

// NewStore opens the database at path and initializes the schema. WAL mode
// keeps readers and the single writer from blocking each other, and the
// busy timeout bounds lock waits so contention surfaces as an error instead
// of a hang.
func NewStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Transactions take the write lock up front (_txlock=immediate) so two
	// concurrent read-modify-write flows queue on the busy timeout instead
	// of failing on a stale snapshot.
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// The menu drives one operation at a time; a small pool is plenty and
	// keeps write contention low.
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &Store{db: db}

	if err := store.runMigrations(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
