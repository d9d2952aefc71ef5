package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenRedisDriver(t *testing.T) {
	mr := miniredis.RunT(t)
	backend, err := Open(context.Background(), OpenOptions{Driver: DriverRedis, RedisURL: "redis://" + mr.Addr() + "/0"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })

	require.IsType(t, &RedisStore{}, backend.Store)
	require.NoError(t, backend.Store.Put(context.Background(), "a", "{}"))
	assert.True(t, mr.Exists("discount:config:a"))
}

func TestOpenNoneDriver(t *testing.T) {
	backend, err := Open(context.Background(), OpenOptions{Driver: DriverNone})
	require.NoError(t, err)
	assert.Nil(t, backend.Store)
	assert.NoError(t, backend.Close())
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), OpenOptions{Driver: "mongo"})
	require.Error(t, err)

	_, err = Open(context.Background(), OpenOptions{Driver: DriverRedis})
	require.Error(t, err)
}
