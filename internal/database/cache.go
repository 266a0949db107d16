package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CacheSet overwrites the entry for key. At most one entry per key.
func (s *Store) CacheSet(ctx context.Context, key string, data []byte) error {
	query := `INSERT INTO cache_entries (key, data, updated_at) VALUES (?, ?, ?)
              ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`
	if _, err := s.db.ExecContext(ctx, query, key, data, time.Now()); err != nil {
		return fmt.Errorf("failed to set cache entry: %w", err)
	}
	return nil
}

// CacheGet returns the cached payload, or nil (never an error) when the
// key is absent.
func (s *Store) CacheGet(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM cache_entries WHERE key = ?`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cache entry: %w", err)
	}
	return data, nil
}
