package offline

import (
	"context"
	"sync"

	"github.com/camposesilvatopografia-beep/abastech-sub000/internal/database"
	"github.com/camposesilvatopografia-beep/abastech-sub000/internal/events"
	"github.com/camposesilvatopografia-beep/abastech-sub000/internal/models"

	"github.com/rs/zerolog"
)

// Manager hands out per-user queue façades over one shared store and
// event bus, so every caller that mutates the queue keeps the pending
// counters and change events live.
type Manager struct {
	store  *database.Store
	bus    *events.EventBus
	logger *zerolog.Logger

	mu     sync.Mutex
	queues map[string]*Queue
}

func NewManager(store *database.Store, bus *events.EventBus, logger *zerolog.Logger) *Manager {
	return &Manager{
		store:  store,
		bus:    bus,
		logger: logger,
		queues: make(map[string]*Queue),
	}
}

// ForUser returns the queue bound to a user id, creating it on first
// use. The same id always yields the same queue instance.
func (m *Manager) ForUser(userID string) *Queue {
	m.mu.Lock()
	defer m.mu.Unlock()

	if q, ok := m.queues[userID]; ok {
		return q
	}
	q := NewQueue(m.store, m.bus, userID, m.logger)
	m.queues[userID] = q
	return q
}

// AllPending lists the whole queue across users, for the operator view.
func (m *Manager) AllPending(ctx context.Context) ([]models.PendingRecord, error) {
	if m.store == nil {
		return []models.PendingRecord{}, nil
	}
	return m.store.AllPending(ctx)
}

// ClearAll wipes the queue for every user and refreshes the live
// counters of the queues already handed out.
func (m *Manager) ClearAll(ctx context.Context) error {
	if m.store == nil {
		return database.ErrStorageUnavailable
	}
	if err := m.store.ClearPending(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, q := range m.queues {
		q.refreshCount(ctx)
	}
	return nil
}
