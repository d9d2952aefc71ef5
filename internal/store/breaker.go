package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrUnavailable is returned while the breaker refuses calls to a failing backend.
var ErrUnavailable = errors.New("discount configuration store unavailable")

type breakerState int

const (
	stateClosed breakerState = iota
	stateOpen
	stateHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case stateOpen:
		return "open"
	case stateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// BreakerStore fails fast once the backing store keeps erroring. After openFor it lets a
// single probe through; a successful probe closes the breaker again.
type BreakerStore struct {
	Backing Store
	Logger  zerolog.Logger

	mu           sync.Mutex
	state        breakerState
	failures     int
	successes    int
	minRequests  int
	failureRatio float64
	openFor      time.Duration
	openedAt     time.Time
	now          func() time.Time
}

// NewBreakerStore wraps backing. The breaker opens when at least minRequests calls were seen
// and the failure ratio reaches failureRatio.
func NewBreakerStore(backing Store, minRequests int, failureRatio float64, openFor time.Duration) *BreakerStore {
	if minRequests <= 0 {
		minRequests = 5
	}
	if failureRatio <= 0 || failureRatio > 1 {
		failureRatio = 0.5
	}
	if openFor <= 0 {
		openFor = 10 * time.Second
	}
	return &BreakerStore{
		Backing:      backing,
		Logger:       zerolog.Nop(),
		minRequests:  minRequests,
		failureRatio: failureRatio,
		openFor:      openFor,
		now:          time.Now,
	}
}

// Get reads through the breaker.
func (b *BreakerStore) Get(ctx context.Context, id string) (string, error) {
	if !b.allow() {
		return "", ErrUnavailable
	}
	value, err := b.Backing.Get(ctx, id)
	b.report(err)
	return value, err
}

// Put writes through the breaker.
func (b *BreakerStore) Put(ctx context.Context, id, value string) error {
	if !b.allow() {
		return ErrUnavailable
	}
	err := b.Backing.Put(ctx, id, value)
	b.report(err)
	return err
}

// Delete deletes through the breaker.
func (b *BreakerStore) Delete(ctx context.Context, id string) error {
	if !b.allow() {
		return ErrUnavailable
	}
	err := b.Backing.Delete(ctx, id)
	b.report(err)
	return err
}

// Ping always reaches the backing store so readiness reflects the real backend.
func (b *BreakerStore) Ping(ctx context.Context) error {
	return b.Backing.Ping(ctx)
}

// State reports the breaker state as closed, open or half_open.
func (b *BreakerStore) State() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state.String()
}

func (b *BreakerStore) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case stateOpen:
		if b.now().Sub(b.openedAt) < b.openFor {
			return false
		}
		b.transitionLocked(stateHalfOpen)
		return true
	case stateHalfOpen:
		return false
	default:
		return true
	}
}

func (b *BreakerStore) report(err error) {
	success := err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidID)

	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case stateHalfOpen:
		if success {
			b.transitionLocked(stateClosed)
		} else {
			b.transitionLocked(stateOpen)
		}
		return
	case stateOpen:
		return
	}

	if success {
		b.successes++
	} else {
		b.failures++
	}
	total := b.failures + b.successes
	if total < b.minRequests {
		return
	}
	if float64(b.failures)/float64(total) >= b.failureRatio {
		b.transitionLocked(stateOpen)
		return
	}
	if total > b.minRequests*2 {
		b.successes = (b.successes + 1) / 2
		b.failures = (b.failures + 1) / 2
	}
}

func (b *BreakerStore) transitionLocked(next breakerState) {
	prev := b.state
	b.state = next
	b.failures = 0
	b.successes = 0
	if next == stateOpen {
		b.openedAt = b.now()
	}
	b.Logger.Warn().Str("from_state", prev.String()).Str("to_state", next.String()).Msg("store breaker transition")
}
