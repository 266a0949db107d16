package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheSetGet(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()

	require.NoError(t, store.CacheSet(ctx, "vehicles", []byte(`["ESC-01","CAM-07"]`)))

	data, err := store.CacheGet(ctx, "vehicles")
	require.NoError(t, err)
	assert.Equal(t, []byte(`["ESC-01","CAM-07"]`), data)
}

func TestCacheOverwrite(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()

	require.NoError(t, store.CacheSet(ctx, "key", []byte("old")))
	require.NoError(t, store.CacheSet(ctx, "key", []byte("new")))

	data, err := store.CacheGet(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), data)
}

func TestCacheGetMissing(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	data, err := store.CacheGet(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, data)
}
