package di

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	cache := NewInMemoryCache()
	defer cache.Close()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	require.NoError(t, cache.Set(ctx, "graph:t/bp", "value", 10))

	v, ok := cache.Get(ctx, "graph:t/bp")
	require.True(t, ok)
	assert.Equal(t, "value", v)

	now = now.Add(11 * time.Second)
	_, ok = cache.Get(ctx, "graph:t/bp")
	assert.False(t, ok)

	cache.evictExpired()
	assert.Equal(t, 0, cache.Len())
}

func TestInMemoryCache_ZeroTTLStoresNothing(t *testing.T) {
	ctx := context.Background()
	cache := NewInMemoryCache()
	defer cache.Close()

	require.NoError(t, cache.Set(ctx, "k", 1, 0))
	_, ok := cache.Get(ctx, "k")
	assert.False(t, ok)
}

func TestInMemoryCache_Delete(t *testing.T) {
	ctx := context.Background()
	cache := NewInMemoryCache()
	defer cache.Close()

	require.NoError(t, cache.Set(ctx, "k", 1, 60))
	require.NoError(t, cache.Delete(ctx, "k"))
	_, ok := cache.Get(ctx, "k")
	assert.False(t, ok)

	// Close is idempotent
	cache.Close()
	cache.Close()
}
