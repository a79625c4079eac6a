package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/lemon/pkg/domain"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS session_items (
	session_id TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (session_id, key)
);
CREATE INDEX IF NOT EXISTS idx_session_items_updated ON session_items(updated_at);
`

// Store implements ports.Storage on a SQLite database.
// Sessions outlive the process, so ending them is the caller's job (Clear or PurgeIdle).
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the database at path and applies the schema.
// Use ":memory:" for an ephemeral database.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s, err := New(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing handle and applies the schema.
func New(ctx context.Context, db *sql.DB) (*Store, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// GetItem returns the value of key for the session.
func (s *Store) GetItem(ctx context.Context, sessionID, key string) (string, error) {
	var val string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM session_items WHERE session_id = ? AND key = ?`,
		sessionID, key,
	).Scan(&val)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.ErrItemNotFound
		}
		return "", fmt.Errorf("failed to read item: %w", err)
	}
	return val, nil
}

// SetItem upserts key for the session.
func (s *Store) SetItem(ctx context.Context, sessionID, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO session_items (session_id, key, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(session_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		sessionID, key, value, s.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to write item: %w", err)
	}
	return nil
}

// RemoveItem deletes key for the session.
func (s *Store) RemoveItem(ctx context.Context, sessionID, key string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM session_items WHERE session_id = ? AND key = ?`, sessionID, key)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return nil
}

// Clear deletes every key of the session.
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM session_items WHERE session_id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// PurgeIdle ends every session whose last write is older than maxIdle.
// A session is idle only if none of its keys were touched recently.
func (s *Store) PurgeIdle(ctx context.Context, maxIdle time.Duration) (int64, error) {
	cutoff := s.now().Add(-maxIdle).Unix()
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM session_items WHERE session_id IN (
			SELECT session_id FROM session_items GROUP BY session_id HAVING MAX(updated_at) < ?
		)`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge idle sessions: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
