package repository

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// SnapshotCache is the cache surface consumed by the importer.
type SnapshotCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte) error
	Clear(ctx context.Context, key string) error
}

// FailoverSnapshotCache prefers the primary (Redis) and falls back to
// the in-memory cache when it errors, probing for recovery once a
// minute.
type FailoverSnapshotCache struct {
	primary   SnapshotCache
	fallback  SnapshotCache
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
}

func NewFailoverSnapshotCache(primary, fallback SnapshotCache, logger *zerolog.Logger) *FailoverSnapshotCache {
	return &FailoverSnapshotCache{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (f *FailoverSnapshotCache) markDown(err error) {
	f.logger.Error().Err(err).Msg("Primary snapshot cache failed, falling back to memory")
	f.isDown.Store(true)
	f.lastCheck.Store(time.Now().UnixNano())
}

func (f *FailoverSnapshotCache) shouldProbe() bool {
	return time.Since(time.Unix(0, f.lastCheck.Load())) > time.Minute
}

func (f *FailoverSnapshotCache) Get(ctx context.Context, key string) ([]byte, error) {
	if !f.isDown.Load() {
		data, err := f.primary.Get(ctx, key)
		if err == nil {
			return data, nil
		}
		f.markDown(err)
	}

	// Try to recover after 1 minute
	if f.isDown.Load() && f.shouldProbe() {
		data, err := f.primary.Get(ctx, key)
		if err == nil {
			f.isDown.Store(false)
			return data, nil
		}
		f.lastCheck.Store(time.Now().UnixNano())
	}

	return f.fallback.Get(ctx, key)
}

func (f *FailoverSnapshotCache) Set(ctx context.Context, key string, data []byte) error {
	if !f.isDown.Load() {
		err := f.primary.Set(ctx, key, data)
		if err == nil {
			return nil
		}
		f.markDown(err)
	}

	return f.fallback.Set(ctx, key, data)
}

func (f *FailoverSnapshotCache) Clear(ctx context.Context, key string) error {
	if !f.isDown.Load() {
		err := f.primary.Clear(ctx, key)
		if err == nil {
			return nil
		}
		f.markDown(err)
	}

	return f.fallback.Clear(ctx, key)
}
