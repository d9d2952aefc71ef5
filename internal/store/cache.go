package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const cachePrefix = "discount:config-cache:"

type cachedEntry struct {
	Value string `json:"value"`
}

// CachedStore puts a Redis read-through cache in front of another store. Writes go to the
// backing store first and then evict the cached entry.
type CachedStore struct {
	Backing Store
	client  redis.UniversalClient
	ttl     time.Duration
}

// NewCachedStore wraps backing. A nil client or non-positive ttl disables caching.
func NewCachedStore(backing Store, client redis.UniversalClient, ttl time.Duration) *CachedStore {
	return &CachedStore{Backing: backing, client: client, ttl: ttl}
}

func (c *CachedStore) enabled() bool {
	return c.client != nil && c.ttl > 0
}

// Get serves from the cache when possible and fills it on a miss.
func (c *CachedStore) Get(ctx context.Context, id string) (string, error) {
	id, err := normaliseID(id)
	if err != nil {
		return "", err
	}
	var entry cachedEntry
	if ok, err := c.getJSON(ctx, cachePrefix+id, &entry); err == nil && ok {
		return entry.Value, nil
	}
	value, err := c.Backing.Get(ctx, id)
	if err != nil {
		return "", err
	}
	_ = c.setJSON(ctx, cachePrefix+id, cachedEntry{Value: value})
	return value, nil
}

// Put writes through and evicts the cached entry.
func (c *CachedStore) Put(ctx context.Context, id, value string) error {
	if err := c.Backing.Put(ctx, id, value); err != nil {
		return err
	}
	return c.evict(ctx, id)
}

// Delete removes from the backing store and evicts the cached entry.
func (c *CachedStore) Delete(ctx context.Context, id string) error {
	err := c.Backing.Delete(ctx, id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if evictErr := c.evict(ctx, id); evictErr != nil {
		return evictErr
	}
	return err
}

// Ping checks the backing store and the cache.
func (c *CachedStore) Ping(ctx context.Context) error {
	if err := c.Backing.Ping(ctx); err != nil {
		return err
	}
	if c.client == nil {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

func (c *CachedStore) evict(ctx context.Context, id string) error {
	if !c.enabled() {
		return nil
	}
	id, err := normaliseID(id)
	if err != nil {
		return err
	}
	return c.client.Del(ctx, cachePrefix+id).Err()
}

func (c *CachedStore) getJSON(ctx context.Context, key string, dst any) (bool, error) {
	if !c.enabled() {
		return false, nil
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (c *CachedStore) setJSON(ctx context.Context, key string, v any) error {
	if !c.enabled() {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}
