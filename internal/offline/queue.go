package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/camposesilvatopografia-beep/abastech-sub000/internal/database"
	"github.com/camposesilvatopografia-beep/abastech-sub000/internal/events"
	"github.com/camposesilvatopografia-beep/abastech-sub000/internal/metrics"
	"github.com/camposesilvatopografia-beep/abastech-sub000/internal/models"

	"github.com/rs/zerolog"
)

// ErrUserRequired is returned when no user context is bound to the queue.
var ErrUserRequired = errors.New("user context is required")

// Queue is the only surface application code uses to talk to the
// offline store: enqueue field records, list them, drain them after a
// successful remote write, and read/write cache entries. A nil store
// means the host has no embedded storage; reads degrade to empty
// results and writes fail with ErrStorageUnavailable.
type Queue struct {
	store  *database.Store
	bus    *events.EventBus
	userID string
	logger zerolog.Logger

	pendingCount atomic.Int64
}

func NewQueue(store *database.Store, bus *events.EventBus, userID string, logger *zerolog.Logger) *Queue {
	var l zerolog.Logger
	if logger != nil {
		l = logger.With().Str("component", "offline-queue").Logger()
	}

	q := &Queue{
		store:  store,
		bus:    bus,
		userID: userID,
		logger: l,
	}
	q.refreshCount(context.Background())
	return q
}

// SaveOfflineRecord validates, constructs and persists a pending record,
// returning its generated id.
func (q *Queue) SaveOfflineRecord(ctx context.Context, data models.Payload, recordType string) (string, error) {
	if q.userID == "" {
		return "", ErrUserRequired
	}
	if q.store == nil {
		return "", database.ErrStorageUnavailable
	}

	rec, err := models.NewPendingRecord(data, recordType, q.userID)
	if err != nil {
		return "", err
	}

	if err := q.store.AddPending(ctx, rec); err != nil {
		return "", fmt.Errorf("save offline record: %w", err)
	}

	q.refreshCount(ctx)
	if q.bus != nil {
		_ = q.bus.PublishJSON(events.EventRecordEnqueued, events.RecordEventPayload{
			RecordID:   rec.ID,
			RecordType: rec.Type,
			UserID:     rec.UserID,
			CreatedAt:  rec.CreatedAt,
		})
	}

	return rec.ID, nil
}

// PendingRecords returns the bound user's queue. Without storage the
// queue is simply empty, not an error.
func (q *Queue) PendingRecords(ctx context.Context) ([]models.PendingRecord, error) {
	if q.userID == "" {
		return nil, ErrUserRequired
	}
	if q.store == nil {
		return []models.PendingRecord{}, nil
	}
	return q.store.PendingByUser(ctx, q.userID)
}

// MarkRecordSynced removes a record after a successful remote write.
// Idempotent: a second call for the same id is a no-op.
func (q *Queue) MarkRecordSynced(ctx context.Context, id string) error {
	if q.store == nil {
		return database.ErrStorageUnavailable
	}
	if err := q.store.DeletePending(ctx, id); err != nil {
		return err
	}

	q.refreshCount(ctx)
	if q.bus != nil {
		_ = q.bus.PublishJSON(events.EventRecordSynced, events.RecordEventPayload{RecordID: id, UserID: q.userID})
	}
	return nil
}

// MarkSyncFailed increments the attempt counter and stamps the attempt
// time. It never deletes, never caps attempts and never schedules a
// retry — retry policy belongs to the worker draining the queue.
func (q *Queue) MarkSyncFailed(ctx context.Context, id string) error {
	if q.store == nil {
		return database.ErrStorageUnavailable
	}
	return q.store.MarkSyncFailed(ctx, id, time.Now())
}

// ClearAllPending is the explicit, user-initiated reset of the queue.
func (q *Queue) ClearAllPending(ctx context.Context) error {
	if q.store == nil {
		return database.ErrStorageUnavailable
	}
	if err := q.store.ClearPending(ctx); err != nil {
		return err
	}
	q.refreshCount(ctx)
	return nil
}

// CacheData stores a serializable value under a caller-chosen key,
// overwriting any previous entry.
func (q *Queue) CacheData(ctx context.Context, key string, v interface{}) error {
	if q.store == nil {
		return database.ErrStorageUnavailable
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	return q.store.CacheSet(ctx, key, raw)
}

// CachedData reads a cache entry into dst. A missing key reports false
// with no error.
func (q *Queue) CachedData(ctx context.Context, key string, dst interface{}) (bool, error) {
	if q.store == nil {
		return false, nil
	}

	raw, err := q.store.CacheGet(ctx, key)
	if err != nil {
		return false, err
	}
	if raw == nil {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode cache entry: %w", err)
	}
	return true, nil
}

// PendingCount returns the live queue depth without touching storage.
func (q *Queue) PendingCount() int {
	return int(q.pendingCount.Load())
}

func (q *Queue) refreshCount(ctx context.Context) {
	if q.store == nil {
		return
	}

	count, err := q.store.CountPending(ctx)
	if err != nil {
		q.logger.Warn().Err(err).Msg("Failed to refresh pending count")
		return
	}

	old := q.pendingCount.Swap(int64(count))
	metrics.SetPendingDepth(count)

	if int(old) != count && q.bus != nil {
		_ = q.bus.PublishJSON(events.EventPendingCountChanged, events.PendingCountPayload{
			UserID: q.userID,
			Count:  count,
		})
	}
}
