package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestHandlerMiddlewareEnforcesLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	limited := Handler{
		Limiter: Limiter{Client: client, Prefix: "ratelimit:"},
		Config: Config{
			Key:    func(*http.Request) string { return "static" },
			Window: time.Second,
			Max:    1,
		},
	}.Middleware(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/discounts/fixed/run", nil)
	rr1 := httptest.NewRecorder()
	limited.ServeHTTP(rr1, req.Clone(req.Context()))
	require.Equal(t, http.StatusOK, rr1.Code)

	rr2 := httptest.NewRecorder()
	limited.ServeHTTP(rr2, req.Clone(req.Context()))
	require.Equal(t, http.StatusTooManyRequests, rr2.Code)
	assert.Equal(t, "1", rr2.Header().Get("X-RateLimit-Limit"))
	assert.Contains(t, rr2.Body.String(), "RATE_LIMITED")
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string, time.Duration, int) (bool, int, time.Time, error) {
	return false, 0, time.Time{}, errors.New("redis down")
}

func TestHandlerMiddlewareOnError(t *testing.T) {
	var seen error
	limited := Handler{
		Limiter: failingLimiter{},
		Config:  Config{Key: func(*http.Request) string { return "err" }, Window: time.Second, Max: 1},
		OnError: func(err error) { seen = err },
	}.Middleware(okHandler())

	rr := httptest.NewRecorder()
	limited.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.EqualError(t, seen, "redis down")
}

func TestMemoryLimiterMiddleware(t *testing.T) {
	limited := Handler{
		Limiter: NewMemoryLimiter(),
		Config:  Config{Key: KeyByClientAndDiscount, Window: time.Minute, Max: 2},
	}.Middleware(okHandler())

	r := chi.NewRouter()
	r.Post("/discounts/{discountID}/run", limited.ServeHTTP)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/discounts/summer/run", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// Another discount id has its own bucket.
	req := httptest.NewRequest(http.MethodPost, "/discounts/winter/run", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestKeyByClientAndDiscount(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/discounts/fixed/run", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "eval:203.0.113.9", KeyByClientAndDiscount(req))
}

func TestHandlerMiddlewareFallsBackWhenLimiterFails(t *testing.T) {
	limited := Handler{
		Limiter:  failingLimiter{},
		Fallback: NewMemoryLimiter(),
		Config:   Config{Key: func(*http.Request) string { return "fallback" }, Window: time.Minute, Max: 1},
	}.Middleware(okHandler())

	rr := httptest.NewRecorder()
	limited.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	limited.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
}
