package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/camposesilvatopografia-beep/abastech-sub000/internal/models"
)

// AddPending inserts a new record into the pending queue. A colliding id
// leaves the table untouched and reports ErrDuplicateKey.
func (s *Store) AddPending(ctx context.Context, rec *models.PendingRecord) error {
	payload, err := json.Marshal(rec.Data)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	query := `INSERT OR IGNORE INTO pending_records (id, record_type, data, user_id, created_at, sync_attempts, last_sync_attempt)
              VALUES (?, ?, ?, ?, ?, ?, ?)`
	result, err := s.db.ExecContext(ctx, query,
		rec.ID,
		rec.Type,
		string(payload),
		rec.UserID,
		rec.CreatedAt,
		rec.SyncAttempts,
		rec.LastSyncAttempt,
	)
	if err != nil {
		return fmt.Errorf("failed to add pending record: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: pending record %s", ErrDuplicateKey, rec.ID)
	}
	return nil
}

// UpdatePending replaces a record wholesale. Upsert semantics: an absent
// id is written as new rather than reported as missing.
func (s *Store) UpdatePending(ctx context.Context, rec *models.PendingRecord) error {
	payload, err := json.Marshal(rec.Data)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	query := `INSERT INTO pending_records (id, record_type, data, user_id, created_at, sync_attempts, last_sync_attempt)
              VALUES (?, ?, ?, ?, ?, ?, ?)
              ON CONFLICT(id) DO UPDATE SET
                  record_type = excluded.record_type,
                  data = excluded.data,
                  user_id = excluded.user_id,
                  sync_attempts = excluded.sync_attempts,
                  last_sync_attempt = excluded.last_sync_attempt`
	if _, err := s.db.ExecContext(ctx, query,
		rec.ID,
		rec.Type,
		string(payload),
		rec.UserID,
		rec.CreatedAt,
		rec.SyncAttempts,
		rec.LastSyncAttempt,
	); err != nil {
		return fmt.Errorf("failed to update pending record: %w", err)
	}
	return nil
}

// PendingByUser returns the queue for one user in index traversal order.
func (s *Store) PendingByUser(ctx context.Context, userID string) ([]models.PendingRecord, error) {
	query := `SELECT id, record_type, data, user_id, created_at, sync_attempts, last_sync_attempt
              FROM pending_records WHERE user_id = ? ORDER BY created_at ASC`
	return s.queryPending(ctx, query, userID)
}

// AllPending returns every queued record regardless of owner.
func (s *Store) AllPending(ctx context.Context) ([]models.PendingRecord, error) {
	query := `SELECT id, record_type, data, user_id, created_at, sync_attempts, last_sync_attempt
              FROM pending_records ORDER BY created_at ASC`
	return s.queryPending(ctx, query)
}

func (s *Store) queryPending(ctx context.Context, query string, args ...interface{}) ([]models.PendingRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending records: %w", err)
	}
	defer rows.Close()

	var records []models.PendingRecord
	for rows.Next() {
		var rec models.PendingRecord
		var payload string
		var lastAttempt sql.NullTime
		if err := rows.Scan(&rec.ID, &rec.Type, &payload, &rec.UserID, &rec.CreatedAt, &rec.SyncAttempts, &lastAttempt); err != nil {
			return nil, fmt.Errorf("failed to scan pending record: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &rec.Data); err != nil {
			return nil, fmt.Errorf("decode payload for %s: %w", rec.ID, err)
		}
		if lastAttempt.Valid {
			t := lastAttempt.Time
			rec.LastSyncAttempt = &t
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// DeletePending removes a record. Deleting an absent id is not an error.
func (s *Store) DeletePending(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM pending_records WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete pending record: %w", err)
	}
	return nil
}

// ClearPending empties the queue entirely.
func (s *Store) ClearPending(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM pending_records`); err != nil {
		return fmt.Errorf("failed to clear pending records: %w", err)
	}
	return nil
}

// CountPending returns the current queue depth.
func (s *Store) CountPending(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pending_records`).Scan(&count)
	return count, err
}

// MarkSyncFailed increments the attempt counter and stamps the attempt
// time for a queued record.
func (s *Store) MarkSyncFailed(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE pending_records SET sync_attempts = sync_attempts + 1, last_sync_attempt = ? WHERE id = ?`
	if _, err := s.db.ExecContext(ctx, query, at, id); err != nil {
		return fmt.Errorf("failed to mark sync failed: %w", err)
	}
	return nil
}
