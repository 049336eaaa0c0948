package store

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Requires Redis running on localhost:6379; skipped otherwise.
const testRedisAddr = "localhost:6379"

func setupTestCache(t *testing.T, prefix string) *PresenceCache {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: testRedisAddr})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skipf("Redis not available at %s: %v", testRedisAddr, err)
	}

	t.Cleanup(func() {
		keys, _ := client.Keys(ctx, prefix+"*").Result()
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
		_ = client.Close()
	})

	return NewPresenceCache(client, prefix, time.Minute)
}

func TestPresenceCache_SetGet(t *testing.T) {
	ctx := context.Background()
	cache := setupTestCache(t, "test:presence:")
	seen := time.Date(2026, 10, 15, 8, 30, 0, 0, time.UTC)

	require.NoError(t, cache.Set(ctx, "alice", true, seen))

	presence, found, err := cache.Get(ctx, "alice")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, presence.IsOnline)
	assert.True(t, presence.LastSeen.Equal(seen))

	_, found, err = cache.Get(ctx, "nobody")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMirror_WritesBothSinks(t *testing.T) {
	ctx := context.Background()
	cache := setupTestCache(t, "test:mirror:")
	repo := NewRepository(setupTestDB(t))
	mirror := NewMirror(repo, cache)
	seen := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

	require.NoError(t, mirror.Apply(ctx, "bob", false, seen))

	stored, err := repo.FindPresence(ctx, "bob")
	require.NoError(t, err)
	assert.False(t, stored.IsOnline)

	cached, found, err := cache.Get(ctx, "bob")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, cached.LastSeen.Equal(seen))
}

func TestMirror_LookupPrefersCache(t *testing.T) {
	ctx := context.Background()
	cache := setupTestCache(t, "test:lookup:")
	repo := NewRepository(setupTestDB(t))
	mirror := NewMirror(repo, cache)
	seen := time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)

	require.NoError(t, repo.UpsertPresence(ctx, "carol", false, seen))
	require.NoError(t, cache.Set(ctx, "carol", true, seen.Add(time.Minute)))

	presence, err := mirror.Lookup(ctx, "carol")
	require.NoError(t, err)
	assert.True(t, presence.IsOnline, "cached entry wins")

	// A cache miss falls back to SQLite.
	require.NoError(t, repo.UpsertPresence(ctx, "dave", true, seen))
	presence, err = mirror.Lookup(ctx, "dave")
	require.NoError(t, err)
	assert.True(t, presence.LastSeen.Equal(seen))

	_, err = mirror.Lookup(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}
