package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPendingRecord(t *testing.T) {
	rec, err := NewPendingRecord(Payload{"vehicle": "ESC-01"}, RecordTypeFuel, "user-1")
	require.NoError(t, err)

	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, RecordTypeFuel, rec.Type)
	assert.Equal(t, "user-1", rec.UserID)
	assert.Zero(t, rec.SyncAttempts)
	assert.Nil(t, rec.LastSyncAttempt)
	assert.WithinDuration(t, time.Now(), rec.CreatedAt, time.Second)
}

func TestNewPendingRecordIDsAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		rec, err := NewPendingRecord(nil, RecordTypeHorimeter, "u")
		require.NoError(t, err)
		require.False(t, seen[rec.ID], "duplicate id %s", rec.ID)
		seen[rec.ID] = true
	}
}

func TestNewPendingRecordRejectsUnknownType(t *testing.T) {
	_, err := NewPendingRecord(nil, "telepathy", "user-1")
	require.ErrorIs(t, err, ErrInvalidType)
}

func TestValidRecordType(t *testing.T) {
	assert.True(t, ValidRecordType(RecordTypeFuel))
	assert.True(t, ValidRecordType(RecordTypeHorimeter))
	assert.True(t, ValidRecordType(RecordTypeService))
	assert.False(t, ValidRecordType(""))
	assert.False(t, ValidRecordType("fuel"))
}

func TestMarkAttemptFailed(t *testing.T) {
	rec, err := NewPendingRecord(nil, RecordTypeService, "user-1")
	require.NoError(t, err)

	at := time.Now()
	rec.MarkAttemptFailed(at)
	rec.MarkAttemptFailed(at.Add(time.Minute))

	assert.Equal(t, 2, rec.SyncAttempts)
	require.NotNil(t, rec.LastSyncAttempt)
	assert.Equal(t, at.Add(time.Minute), *rec.LastSyncAttempt)
}

func TestPayloadGetters(t *testing.T) {
	p := Payload{
		"name":    "ESC-01",
		"liters":  120.5,
		"count":   3,
		"when":    "2026-08-15",
		"instant": time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC),
	}

	assert.Equal(t, "ESC-01", p.GetString("name"))
	assert.Equal(t, "", p.GetString("missing"))
	assert.Equal(t, "", p.GetString("liters"))

	assert.Equal(t, 120.5, p.GetFloat("liters"))
	assert.Equal(t, 3.0, p.GetFloat("count"))
	assert.Zero(t, p.GetFloat("name"))

	assert.Equal(t, time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC), p.GetTime("when"))
	assert.Equal(t, time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC), p.GetTime("instant"))
	assert.True(t, p.GetTime("missing").IsZero())

	var nilPayload Payload
	assert.Equal(t, "", nilPayload.GetString("x"))
	assert.Zero(t, nilPayload.GetFloat("x"))
	assert.True(t, nilPayload.GetTime("x").IsZero())
}
