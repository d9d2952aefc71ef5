package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStoreRoundTrip(t *testing.T) {
	mr, client := newRedis(t)
	s := NewRedisStore(client)
	ctx := context.Background()

	_, err := s.Get(ctx, "summer")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(ctx, " summer ", `{"collection_ids":[],"mapping":[]}`))
	assert.True(t, mr.Exists("discount:config:summer"))

	value, err := s.Get(ctx, "summer")
	require.NoError(t, err)
	assert.Equal(t, `{"collection_ids":[],"mapping":[]}`, value)

	require.NoError(t, s.Delete(ctx, "summer"))
	require.ErrorIs(t, s.Delete(ctx, "summer"), ErrNotFound)
	require.NoError(t, s.Ping(ctx))
}

func TestRedisStoreRejectsBlankID(t *testing.T) {
	_, client := newRedis(t)
	s := NewRedisStore(client)
	require.ErrorIs(t, s.Put(context.Background(), "  ", "{}"), ErrInvalidID)
}

func TestCachedStoreReadThroughAndEviction(t *testing.T) {
	mr, client := newRedis(t)
	backing := NewRedisStore(client)
	backing.Prefix = "backing:"
	cached := NewCachedStore(backing, client, time.Minute)
	ctx := context.Background()

	require.NoError(t, cached.Put(ctx, "d1", `{"v":1}`))
	value, err := cached.Get(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, `{"v":1}`, value)
	assert.True(t, mr.Exists(cachePrefix+"d1"))

	// A write behind the cache's back is hidden until the entry expires.
	require.NoError(t, mr.Set("backing:d1", `{"v":2}`))
	value, err = cached.Get(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, `{"v":1}`, value)

	mr.FastForward(2 * time.Minute)
	value, err = cached.Get(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, `{"v":2}`, value)

	require.NoError(t, cached.Put(ctx, "d1", `{"v":3}`))
	assert.False(t, mr.Exists(cachePrefix+"d1"))
	value, err = cached.Get(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, `{"v":3}`, value)

	require.NoError(t, cached.Delete(ctx, "d1"))
	assert.False(t, mr.Exists(cachePrefix+"d1"))
	_, err = cached.Get(ctx, "d1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCachedStoreDisabledPassesThrough(t *testing.T) {
	_, client := newRedis(t)
	backing := NewRedisStore(client)
	cached := NewCachedStore(backing, nil, 0)
	ctx := context.Background()

	require.NoError(t, cached.Put(ctx, "d2", "{}"))
	value, err := cached.Get(ctx, "d2")
	require.NoError(t, err)
	assert.Equal(t, "{}", value)
	require.NoError(t, cached.Ping(ctx))
}
