// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/pantrybook/pantrybook/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite as a local key-value
// document store.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open database with pure Go driver
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Durability over speed; the documents are tiny.
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set journal mode: %w", err)
	}

	// Run migrations
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Read returns the payload stored under key.
func (s *SQLiteStore) Read(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT data FROM documents WHERE key = ?", key,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read document %q: %w", key, err)
	}
	return data, nil
}

// Write stores the payload under key, replacing any previous value.
func (s *SQLiteStore) Write(ctx context.Context, key string, data []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (key, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		key, data, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to write document %q: %w", key, err)
	}
	return nil
}

// Delete removes the key; missing keys are ignored.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete document %q: %w", key, err)
	}
	return nil
}

// Quarantine retains a corrupt payload, keeping only the newest
// storage.MaxQuarantine entries.
func (s *SQLiteStore) Quarantine(ctx context.Context, raw []byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO quarantine (id, created_at, raw) VALUES (?, ?, ?)",
		uuid.New().String(), time.Now().UnixNano(), raw,
	)
	if err != nil {
		return fmt.Errorf("failed to insert quarantine entry: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM quarantine WHERE id NOT IN (
			SELECT id FROM quarantine ORDER BY created_at DESC LIMIT ?
		)`, storage.MaxQuarantine,
	)
	if err != nil {
		return fmt.Errorf("failed to trim quarantine: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Quarantined lists retained corrupt payloads, newest first.
func (s *SQLiteStore) Quarantined(ctx context.Context) ([]storage.QuarantineEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, created_at, raw FROM quarantine ORDER BY created_at DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list quarantine: %w", err)
	}
	defer rows.Close()

	var entries []storage.QuarantineEntry
	for rows.Next() {
		var e storage.QuarantineEntry
		var createdAt int64
		if err := rows.Scan(&e.ID, &createdAt, &e.Raw); err != nil {
			return nil, fmt.Errorf("failed to scan quarantine entry: %w", err)
		}
		e.At = time.Unix(0, createdAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate quarantine: %w", err)
	}
	return entries, nil
}
