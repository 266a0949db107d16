package repository

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemorySnapshotCache is the in-process fallback when Redis is absent.
type MemorySnapshotCache struct {
	entries sync.Map
	ttl     time.Duration
}

func NewMemorySnapshotCache(ttl time.Duration) *MemorySnapshotCache {
	return &MemorySnapshotCache{ttl: ttl}
}

func (m *MemorySnapshotCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, ok := m.entries.Load(key)
	if !ok {
		return nil, nil
	}

	entry := val.(memoryEntry)
	if m.ttl > 0 && time.Now().After(entry.expiresAt) {
		m.entries.Delete(key)
		return nil, nil
	}
	return entry.data, nil
}

func (m *MemorySnapshotCache) Set(ctx context.Context, key string, data []byte) error {
	m.entries.Store(key, memoryEntry{
		data:      data,
		expiresAt: time.Now().Add(m.ttl),
	})
	return nil
}

func (m *MemorySnapshotCache) Clear(ctx context.Context, key string) error {
	m.entries.Delete(key)
	return nil
}
