package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyCache struct {
	entries map[string][]byte
	fail    bool
	calls   int
}

func newFlakyCache() *flakyCache {
	return &flakyCache{entries: make(map[string][]byte)}
}

func (c *flakyCache) Get(_ context.Context, key string) ([]byte, error) {
	c.calls++
	if c.fail {
		return nil, errors.New("connection refused")
	}
	return c.entries[key], nil
}

func (c *flakyCache) Set(_ context.Context, key string, data []byte) error {
	c.calls++
	if c.fail {
		return errors.New("connection refused")
	}
	c.entries[key] = data
	return nil
}

func (c *flakyCache) Clear(_ context.Context, key string) error {
	c.calls++
	if c.fail {
		return errors.New("connection refused")
	}
	delete(c.entries, key)
	return nil
}

func TestFailoverPrefersPrimary(t *testing.T) {
	logger := zerolog.Nop()
	primary := newFlakyCache()
	fallback := newFlakyCache()
	cache := NewFailoverSnapshotCache(primary, fallback, &logger)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", []byte("v")))

	data, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), data)
	assert.Zero(t, fallback.calls)
}

func TestFailoverFallsBackOnPrimaryError(t *testing.T) {
	logger := zerolog.Nop()
	primary := newFlakyCache()
	primary.fail = true
	fallback := newFlakyCache()
	cache := NewFailoverSnapshotCache(primary, fallback, &logger)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", []byte("v")))

	data, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), data)

	// Once marked down, the primary is not retried before the probe window.
	primaryCalls := primary.calls
	_, err = cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, primaryCalls, primary.calls)
}

func TestFailoverRecoversAfterProbeWindow(t *testing.T) {
	logger := zerolog.Nop()
	primary := newFlakyCache()
	primary.fail = true
	fallback := newFlakyCache()
	cache := NewFailoverSnapshotCache(primary, fallback, &logger)
	ctx := context.Background()

	_, err := cache.Get(ctx, "k")
	require.NoError(t, err)

	// Simulate the probe window elapsing, then heal the primary.
	primary.fail = false
	primary.entries["k"] = []byte("primary")
	cache.lastCheck.Store(time.Now().Add(-2 * time.Minute).UnixNano())

	data, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("primary"), data)
	assert.False(t, cache.isDown.Load())
}
