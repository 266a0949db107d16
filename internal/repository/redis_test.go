package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniredisClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { client.Close() })
	return s, client
}

func TestRedisSnapshotCacheRoundTrip(t *testing.T) {
	s, client := newMiniredisClient(t)
	cache := NewRedisSnapshotCache(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "Veiculos", []byte("rows")))

	data, err := cache.Get(ctx, "Veiculos")
	require.NoError(t, err)
	assert.Equal(t, []byte("rows"), data)

	// Keys carry the snapshot prefix.
	assert.True(t, s.Exists("snapshot:Veiculos"))

	require.NoError(t, cache.Clear(ctx, "Veiculos"))
	data, err = cache.Get(ctx, "Veiculos")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestRedisSnapshotCacheMissIsNil(t *testing.T) {
	_, client := newMiniredisClient(t)
	cache := NewRedisSnapshotCache(client, time.Minute)

	data, err := cache.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestRedisSnapshotCacheTTL(t *testing.T) {
	s, client := newMiniredisClient(t)
	cache := NewRedisSnapshotCache(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "Horimetros", []byte("rows")))

	s.FastForward(2 * time.Minute)

	data, err := cache.Get(ctx, "Horimetros")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestRedisSnapshotCacheNilClient(t *testing.T) {
	cache := NewRedisSnapshotCache(nil, time.Minute)
	ctx := context.Background()

	_, err := cache.Get(ctx, "k")
	assert.Error(t, err)
	assert.Error(t, cache.Set(ctx, "k", nil))
	assert.Error(t, cache.Clear(ctx, "k"))
}

func TestPing(t *testing.T) {
	_, client := newMiniredisClient(t)
	assert.NoError(t, Ping(context.Background(), client))
}
