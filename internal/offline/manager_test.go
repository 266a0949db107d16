package offline

import (
	"context"
	"os"
	"testing"

	"github.com/camposesilvatopografia-beep/abastech-sub000/internal/database"
	"github.com/camposesilvatopografia-beep/abastech-sub000/internal/events"
	"github.com/camposesilvatopografia-beep/abastech-sub000/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupManager(t *testing.T) *Manager {
	logger := zerolog.New(os.Stdout)
	store, err := database.Open(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return NewManager(store, events.NewEventBus(), &logger)
}

func TestManagerReusesQueues(t *testing.T) {
	m := setupManager(t)

	first := m.ForUser("user-1")
	assert.Same(t, first, m.ForUser("user-1"))
	assert.NotSame(t, first, m.ForUser("user-2"))
}

func TestManagerAllPending(t *testing.T) {
	m := setupManager(t)
	ctx := context.Background()

	_, err := m.ForUser("user-1").SaveOfflineRecord(ctx, models.Payload{"vehicle": "ESC-01"}, models.RecordTypeFuel)
	require.NoError(t, err)
	_, err = m.ForUser("user-2").SaveOfflineRecord(ctx, models.Payload{"vehicle": "CAM-07"}, models.RecordTypeHorimeter)
	require.NoError(t, err)

	records, err := m.AllPending(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestManagerClearAllRefreshesCounters(t *testing.T) {
	m := setupManager(t)
	ctx := context.Background()

	q1 := m.ForUser("user-1")
	q2 := m.ForUser("user-2")
	_, err := q1.SaveOfflineRecord(ctx, models.Payload{"vehicle": "ESC-01"}, models.RecordTypeFuel)
	require.NoError(t, err)
	_, err = q2.SaveOfflineRecord(ctx, models.Payload{"vehicle": "CAM-07"}, models.RecordTypeFuel)
	require.NoError(t, err)
	require.Equal(t, 1, q1.PendingCount())
	require.Equal(t, 2, q2.PendingCount())

	require.NoError(t, m.ClearAll(ctx))
	assert.Zero(t, q1.PendingCount())
	assert.Zero(t, q2.PendingCount())
}

func TestManagerWithoutStorage(t *testing.T) {
	logger := zerolog.Nop()
	m := NewManager(nil, nil, &logger)
	ctx := context.Background()

	records, err := m.AllPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)

	require.ErrorIs(t, m.ClearAll(ctx), database.ErrStorageUnavailable)
}
