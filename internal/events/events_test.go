package events

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishJSONDeliversToSubscribers(t *testing.T) {
	bus := NewEventBus()

	var got RecordEventPayload
	bus.Subscribe(EventRecordEnqueued, func(ev *Event) error {
		require.NoError(t, json.Unmarshal(ev.Payload, &got))
		return nil
	})

	err := bus.PublishJSON(EventRecordEnqueued, RecordEventPayload{RecordID: "abc", RecordType: "fuel_record"})
	require.NoError(t, err)
	assert.Equal(t, "abc", got.RecordID)
	assert.Equal(t, "fuel_record", got.RecordType)
}

func TestPublishOnlyMatchingType(t *testing.T) {
	bus := NewEventBus()

	calls := 0
	bus.Subscribe(EventRecordSynced, func(*Event) error {
		calls++
		return nil
	})

	require.NoError(t, bus.PublishJSON(EventRecordEnqueued, nil))
	assert.Zero(t, calls)

	require.NoError(t, bus.PublishJSON(EventRecordSynced, nil))
	assert.Equal(t, 1, calls)
}

func TestHandlerErrorDoesNotStopOthers(t *testing.T) {
	bus := NewEventBus()

	second := false
	bus.Subscribe(EventSyncCompleted, func(*Event) error { return errors.New("boom") })
	bus.Subscribe(EventSyncCompleted, func(*Event) error {
		second = true
		return nil
	})

	require.NoError(t, bus.PublishJSON(EventSyncCompleted, nil))
	assert.True(t, second)
}

func TestNilBusPublishJSON(t *testing.T) {
	var bus *EventBus
	assert.NoError(t, bus.PublishJSON(EventRecordEnqueued, nil))
}
