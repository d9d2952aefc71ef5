package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Allower decides whether one more event fits within max events per window for key.
type Allower interface {
	Allow(ctx context.Context, key string, window time.Duration, max int) (allowed bool, remaining int, reset time.Time, err error)
}

// slidingWindow trims entries older than the window and only records the event when the
// window still has room, so rejected calls do not extend a client's penalty.
// KEYS[1] set key; ARGV: now (ms), window (ms), max, member.
// Returns {allowed, count, oldest score}.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local max = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
local allowed = 0
if count < max then
  redis.call('ZADD', key, ARGV[1], ARGV[4])
  count = count + 1
  allowed = 1
end
redis.call('PEXPIRE', key, window)
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
local first = now
if oldest[2] then
  first = tonumber(oldest[2])
end
return {allowed, count, first}
`)

// Limiter is a sliding window limiter over Redis sorted sets.
type Limiter struct {
	Client redis.UniversalClient
	Prefix string
	Now    func() time.Time
}

// Allow records an event for key when the window has room. reset is when the oldest event
// in the window expires.
func (l Limiter) Allow(ctx context.Context, key string, window time.Duration, max int) (allowed bool, remaining int, reset time.Time, err error) {
	now := time.Now()
	if l.Now != nil {
		now = l.Now()
	}
	if l.Client == nil || max <= 0 || window <= 0 {
		return true, max, now.Add(window), nil
	}

	res, err := slidingWindow.Run(ctx, l.Client,
		[]string{l.Prefix + key},
		now.UnixMilli(), window.Milliseconds(), max, uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return false, 0, now.Add(window), fmt.Errorf("sliding window %s: %w", key, err)
	}
	if len(res) != 3 {
		return false, 0, now.Add(window), fmt.Errorf("sliding window %s: unexpected reply %v", key, res)
	}

	remaining = max - int(res[1])
	if remaining < 0 {
		remaining = 0
	}
	reset = time.UnixMilli(res[2]).Add(window)
	return res[0] == 1, remaining, reset, nil
}
