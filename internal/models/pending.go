package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Record types accepted by the offline queue. The type selects which
// remote sheet and mirror table the payload targets.
const (
	RecordTypeFuel      = "fuel_record"
	RecordTypeHorimeter = "horimeter_reading"
	RecordTypeService   = "service_order"
)

// ErrInvalidType is returned when a pending record carries an unknown type.
var ErrInvalidType = fmt.Errorf("invalid record type")

// PendingRecord is one queued field operation awaiting synchronization.
// The payload is opaque to the store; it is decoded only when the record
// is pushed to the remote side.
type PendingRecord struct {
	ID              string     `json:"id"`
	Type            string     `json:"type"`
	Data            Payload    `json:"data"`
	UserID          string     `json:"user_id"`
	CreatedAt       time.Time  `json:"created_at"`
	SyncAttempts    int        `json:"sync_attempts"`
	LastSyncAttempt *time.Time `json:"last_sync_attempt,omitempty"`
}

// NewPendingRecord builds a queue entry with a fresh client-side id.
// SyncAttempts always starts at zero.
func NewPendingRecord(data Payload, recordType, userID string) (*PendingRecord, error) {
	if !ValidRecordType(recordType) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidType, recordType)
	}

	now := time.Now()
	return &PendingRecord{
		ID:           fmt.Sprintf("%d-%s", now.UnixMilli(), uuid.NewString()[:8]),
		Type:         recordType,
		Data:         data,
		UserID:       userID,
		CreatedAt:    now,
		SyncAttempts: 0,
	}, nil
}

// ValidRecordType reports whether t is one of the enumerated record types.
func ValidRecordType(t string) bool {
	switch t {
	case RecordTypeFuel, RecordTypeHorimeter, RecordTypeService:
		return true
	}
	return false
}

// MarkAttemptFailed increments the attempt counter and stamps the attempt
// time. The payload itself is never patched after enqueue.
func (r *PendingRecord) MarkAttemptFailed(at time.Time) {
	r.SyncAttempts++
	r.LastSyncAttempt = &at
}
