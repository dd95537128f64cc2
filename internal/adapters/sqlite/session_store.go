package sqlite

import (
	"ImeiGuard/internal/core/ports"
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// sessionStore persists the session record in the session table.
type sessionStore struct {
	db *DB
}

var _ ports.SessionStore = (*sessionStore)(nil)

func NewSessionStore(db *DB) ports.SessionStore {
	return &sessionStore{db: db}
}

func (s *sessionStore) Load(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.conn.QueryRowContext(ctx, `SELECT value FROM session WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session[%s]: %w", key, err)
	}
	return value, nil
}

func (s *sessionStore) Save(ctx context.Context, key string, value []byte) error {
	_, err := s.db.conn.ExecContext(ctx, `
		INSERT INTO session (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to save session[%s]: %w", key, err)
	}
	return nil
}

func (s *sessionStore) Clear(ctx context.Context, key string) error {
	if _, err := s.db.conn.ExecContext(ctx, `DELETE FROM session WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to clear session[%s]: %w", key, err)
	}
	return nil
}
