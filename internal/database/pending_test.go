package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/camposesilvatopografia-beep/abastech-sub000/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *Store {
	logger := zerolog.New(os.Stdout)
	store, err := Open(":memory:", &logger)
	require.NoError(t, err)
	return store
}

func newTestRecord(t *testing.T, recordType, userID string) *models.PendingRecord {
	rec, err := models.NewPendingRecord(models.Payload{
		"vehicle":           "ESC-01",
		"horimeter_current": 1234.5,
	}, recordType, userID)
	require.NoError(t, err)
	return rec
}

func TestPendingCRUD(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()

	rec := newTestRecord(t, models.RecordTypeHorimeter, "user-1")
	require.NoError(t, store.AddPending(ctx, rec))

	records, err := store.PendingByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, rec.ID, records[0].ID)
	assert.Equal(t, models.RecordTypeHorimeter, records[0].Type)
	assert.Equal(t, "ESC-01", records[0].Data.GetString("vehicle"))
	assert.Equal(t, 1234.5, records[0].Data.GetFloat("horimeter_current"))
	assert.Zero(t, records[0].SyncAttempts)
	assert.Nil(t, records[0].LastSyncAttempt)

	require.NoError(t, store.DeletePending(ctx, rec.ID))
	records, err = store.PendingByUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, records, 0)

	// Deleting an absent id is idempotent.
	assert.NoError(t, store.DeletePending(ctx, rec.ID))
}

func TestAddPendingDuplicateID(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()

	rec := newTestRecord(t, models.RecordTypeFuel, "user-1")
	require.NoError(t, store.AddPending(ctx, rec))

	dup := *rec
	dup.Data = models.Payload{"vehicle": "CAM-07"}
	err := store.AddPending(ctx, &dup)
	require.ErrorIs(t, err, ErrDuplicateKey)

	// A primeira gravação permanece intacta.
	records, err := store.PendingByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "ESC-01", records[0].Data.GetString("vehicle"))
}

func TestUpdatePendingUpsert(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()

	rec := newTestRecord(t, models.RecordTypeHorimeter, "user-1")
	require.NoError(t, store.AddPending(ctx, rec))

	rec.Data["observation"] = "corrigido"
	rec.SyncAttempts = 3
	require.NoError(t, store.UpdatePending(ctx, rec))

	records, err := store.PendingByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "corrigido", records[0].Data.GetString("observation"))
	assert.Equal(t, 3, records[0].SyncAttempts)

	// Updating an absent id writes it as a new record.
	fresh := newTestRecord(t, models.RecordTypeService, "user-2")
	require.NoError(t, store.UpdatePending(ctx, fresh))

	count, err := store.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestPendingByUserScoping(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()

	for _, userID := range []string{"user-a", "user-a", "user-b"} {
		rec := newTestRecord(t, models.RecordTypeFuel, userID)
		require.NoError(t, store.AddPending(ctx, rec))
	}

	recordsA, err := store.PendingByUser(ctx, "user-a")
	require.NoError(t, err)
	assert.Len(t, recordsA, 2)

	recordsB, err := store.PendingByUser(ctx, "user-b")
	require.NoError(t, err)
	assert.Len(t, recordsB, 1)

	all, err := store.AllPending(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestPendingOrderedByCreation(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	// Inserted out of order on purpose.
	for i, offset := range []time.Duration{2 * time.Minute, 0, time.Minute} {
		rec := newTestRecord(t, models.RecordTypeFuel, "user-1")
		rec.ID = []string{"third", "first", "second"}[i]
		rec.CreatedAt = base.Add(offset)
		require.NoError(t, store.AddPending(ctx, rec))
	}

	records, err := store.PendingByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "first", records[0].ID)
	assert.Equal(t, "second", records[1].ID)
	assert.Equal(t, "third", records[2].ID)
}

func TestClearPending(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()

	for i := 0; i < 3; i++ {
		rec := newTestRecord(t, models.RecordTypeHorimeter, "user-1")
		require.NoError(t, store.AddPending(ctx, rec))
	}

	require.NoError(t, store.ClearPending(ctx))

	count, err := store.CountPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMarkSyncFailed(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()

	rec := newTestRecord(t, models.RecordTypeService, "user-1")
	require.NoError(t, store.AddPending(ctx, rec))

	at := time.Now()
	require.NoError(t, store.MarkSyncFailed(ctx, rec.ID, at))
	require.NoError(t, store.MarkSyncFailed(ctx, rec.ID, at.Add(time.Minute)))

	records, err := store.PendingByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 2, records[0].SyncAttempts)
	require.NotNil(t, records[0].LastSyncAttempt)
	assert.WithinDuration(t, at.Add(time.Minute), *records[0].LastSyncAttempt, 2*time.Second)
}
