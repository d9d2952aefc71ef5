package ratelimit

import (
	"context"
	"fmt"
	"time"

	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// MemoryLimiter is a fixed-window limiter kept in process memory. It backs the evaluation
// endpoints when no Redis is configured.
type MemoryLimiter struct {
	store limiter.Store
}

// NewMemoryLimiter constructs an in-memory limiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{store: memory.NewStore()}
}

// Allow counts one event for key and reports whether the window still has room.
func (m *MemoryLimiter) Allow(ctx context.Context, key string, window time.Duration, max int) (bool, int, time.Time, error) {
	if m == nil || m.store == nil || max <= 0 || window <= 0 {
		return true, max, time.Now().Add(window), nil
	}
	rate := limiter.Rate{Period: window, Limit: int64(max)}
	lim := limiter.New(m.store, rate)
	res, err := lim.Get(ctx, fmt.Sprintf("%d:%s:%s", max, window, key))
	if err != nil {
		return false, 0, time.Now().Add(window), err
	}
	return !res.Reached, int(res.Remaining), time.Unix(res.Reset, 0), nil
}
