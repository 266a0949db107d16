package database

import (
	"context"
	"testing"
	"time"

	"github.com/camposesilvatopografia-beep/abastech-sub000/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedVehicle(t *testing.T, store *Store, code string) int64 {
	id, err := store.UpsertVehicleByCode(context.Background(), &models.Vehicle{Code: code})
	require.NoError(t, err)
	return id
}

func TestReadingLifecycle(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()
	vehicleID := seedVehicle(t, store, "ESC-01")
	date := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)

	reading := &models.HorimeterReading{
		VehicleID:        vehicleID,
		ReadingDate:      date,
		HorimeterCurrent: 1520.5,
		Operator:         "João",
		Source:           models.SourceField,
	}
	require.NoError(t, store.CreateReading(ctx, reading))
	assert.NotZero(t, reading.ID)

	got, err := store.ReadingByVehicleAndDate(ctx, vehicleID, date)
	require.NoError(t, err)
	assert.Equal(t, reading.ID, got.ID)
	assert.Equal(t, 1520.5, got.HorimeterCurrent)

	// Lookup compares dates ignoring the time of day.
	gotLater, err := store.ReadingByVehicleAndDate(ctx, vehicleID, date.Add(14*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, reading.ID, gotLater.ID)

	got.HorimeterCurrent = 1533.0
	got.Observation = "turno dobrado"
	require.NoError(t, store.UpdateReading(ctx, got))

	updated, err := store.ReadingByVehicleAndDate(ctx, vehicleID, date)
	require.NoError(t, err)
	assert.Equal(t, 1533.0, updated.HorimeterCurrent)
	assert.Equal(t, "turno dobrado", updated.Observation)

	require.NoError(t, store.DeleteReading(ctx, got.ID))
	_, err = store.ReadingByVehicleAndDate(ctx, vehicleID, date)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestReadingUniquePerVehicleAndDate(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()
	vehicleID := seedVehicle(t, store, "ESC-01")
	date := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)

	first := &models.HorimeterReading{VehicleID: vehicleID, ReadingDate: date, HorimeterCurrent: 100}
	require.NoError(t, store.CreateReading(ctx, first))

	dup := &models.HorimeterReading{VehicleID: vehicleID, ReadingDate: date, HorimeterCurrent: 200}
	err := store.CreateReading(ctx, dup)
	assert.Error(t, err)
}

func TestAllReadingKeysAndBulkDelete(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()
	vehicleID := seedVehicle(t, store, "ESC-01")
	otherID := seedVehicle(t, store, "CAM-07")

	dates := []time.Time{
		time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 8, 11, 0, 0, 0, 0, time.UTC),
	}
	for _, d := range dates {
		require.NoError(t, store.CreateReading(ctx, &models.HorimeterReading{VehicleID: vehicleID, ReadingDate: d, HorimeterCurrent: 1}))
	}
	require.NoError(t, store.CreateReading(ctx, &models.HorimeterReading{VehicleID: otherID, ReadingDate: dates[0], HorimeterCurrent: 1}))

	keys, ids, err := store.AllReadingKeys(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 3)
	require.Len(t, ids, 3)
	assert.Contains(t, keys, ReadingKey{VehicleID: vehicleID, Date: "2026-08-10"})
	assert.Contains(t, keys, ReadingKey{VehicleID: otherID, Date: "2026-08-10"})

	deleted, err := store.DeleteReadingsByID(ctx, ids[:2])
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	_, remaining, err := store.AllReadingKeys(ctx)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)

	// Empty id list is a no-op.
	deleted, err = store.DeleteReadingsByID(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestReadingsByDateRange(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()
	vehicleID := seedVehicle(t, store, "ESC-01")

	inside := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	outside := time.Date(2026, 9, 20, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.CreateReading(ctx, &models.HorimeterReading{VehicleID: vehicleID, ReadingDate: inside, HorimeterCurrent: 10}))
	require.NoError(t, store.CreateReading(ctx, &models.HorimeterReading{VehicleID: vehicleID, ReadingDate: outside, HorimeterCurrent: 20}))

	readings, codes, err := store.ReadingsByDateRange(ctx,
		time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	require.Len(t, readings, 1)
	assert.Equal(t, 10.0, readings[0].HorimeterCurrent)
	assert.Equal(t, "ESC-01", codes[vehicleID])
}
