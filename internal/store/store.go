// Package store is the agent's local key/value storage, the equivalent of
// the browser's local storage.
package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

type Store struct {
	db *sql.DB
}

// New wraps a migrated database.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM kv WHERE key = ?`, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// SetIfAbsent stores value unless key already exists, and returns whatever
// is stored afterwards.
func (s *Store) SetIfAbsent(ctx context.Context, key, value string) (string, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO NOTHING`,
		key, value, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", err
	}
	return s.Get(ctx, key)
}

// Ping is used by the health check.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
