package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLiteStore keeps one username per bridge host in the credentials table.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a store on an opened database (see internal/db).
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Load returns the username stored for host.
func (s *SQLiteStore) Load(ctx context.Context, host string) (string, error) {
	var username string
	err := s.db.QueryRowContext(ctx, `
		SELECT username FROM credentials WHERE host = ?
	`, host).Scan(&username)

	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to load credentials: %w", err)
	}
	return username, nil
}

// Save stores username for host, replacing any previous value.
func (s *SQLiteStore) Save(ctx context.Context, host, username string) error {
	now := time.Now().UTC().Unix()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credentials (host, username, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(host) DO UPDATE SET
			username = excluded.username,
			updated_at = excluded.updated_at
	`, host, username, now, now)
	if err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	return nil
}
