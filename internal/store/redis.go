package store

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-discount/internal/obs"
)

// DefaultRedisPrefix namespaces configuration keys.
const DefaultRedisPrefix = "discount:config:"

// RedisStore keeps one string key per discount id.
type RedisStore struct {
	Client redis.UniversalClient
	Prefix string
}

// NewRedisStore constructs a Redis-backed store.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{Client: client, Prefix: DefaultRedisPrefix}
}

func (s *RedisStore) key(id string) string {
	prefix := s.Prefix
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return prefix + id
}

// Get returns the stored document or ErrNotFound.
func (s *RedisStore) Get(ctx context.Context, id string) (value string, err error) {
	defer func() { obs.ObserveStoreOp("get", ignoreNotFound(err)) }()
	id, err = normaliseID(id)
	if err != nil {
		return "", err
	}
	value, err = s.Client.Get(ctx, s.key(id)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return value, err
}

// Put stores value without expiry.
func (s *RedisStore) Put(ctx context.Context, id, value string) (err error) {
	defer func() { obs.ObserveStoreOp("put", err) }()
	id, err = normaliseID(id)
	if err != nil {
		return err
	}
	return s.Client.Set(ctx, s.key(id), value, 0).Err()
}

// Delete removes the document. Deleting a missing id reports ErrNotFound.
func (s *RedisStore) Delete(ctx context.Context, id string) (err error) {
	defer func() { obs.ObserveStoreOp("delete", ignoreNotFound(err)) }()
	id, err = normaliseID(id)
	if err != nil {
		return err
	}
	removed, err := s.Client.Del(ctx, s.key(id)).Result()
	if err != nil {
		return err
	}
	if removed == 0 {
		return ErrNotFound
	}
	return nil
}

// Ping checks Redis connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.Client.Ping(ctx).Err()
}

func ignoreNotFound(err error) error {
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}
