// Package lock serialises maintenance jobs, such as seeding, across processes sharing a Redis.
package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNoClient is returned when the locker has no Redis client.
var ErrNoClient = errors.New("lock: redis client not configured")

// releaseScript deletes the key only while it still holds our token, so an expired lock
// taken over by another process is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker is a Redis SET NX lock.
type Locker struct {
	Client       redis.UniversalClient
	Prefix       string
	RetryBackoff time.Duration
}

// WithLock runs fn while holding key. It waits for the lock until ctx is done and releases
// it when fn returns, whatever fn returns.
func (l Locker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	if l.Client == nil {
		return ErrNoClient
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	retry := l.RetryBackoff
	if retry <= 0 {
		retry = 50 * time.Millisecond
	}
	key = l.Prefix + key
	token := uuid.NewString()

	for {
		ok, err := l.Client.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return err
		}
		if ok {
			break
		}
		timer := time.NewTimer(retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	defer func() {
		_ = releaseScript.Run(context.WithoutCancel(ctx), l.Client, []string{key}, token).Err()
	}()
	return fn(ctx)
}
