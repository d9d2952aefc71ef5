package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-discount/internal/common"
)

// Config describes how to derive a rate limit key and thresholds.
type Config struct {
	Key    func(*http.Request) string
	Window time.Duration
	Max    int
}

// Handler enforces rate limits before delegating to the next handler.
type Handler struct {
	Limiter  Allower
	// Fallback answers when Limiter fails, typically an in-process limiter standing in for
	// Redis. Without one, limiter failures let the request through.
	Fallback Allower
	Config   Config
	OnError  func(error)
}

// Middleware implements the http.Handler middleware interface.
func (h Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Limiter == nil || h.Config.Key == nil {
			next.ServeHTTP(w, r)
			return
		}
		key := h.Config.Key(r)
		allowed, remaining, resetAt, err := h.Limiter.Allow(r.Context(), key, h.Config.Window, h.Config.Max)
		if err != nil {
			if h.OnError != nil {
				h.OnError(err)
			}
			if h.Fallback == nil {
				next.ServeHTTP(w, r)
				return
			}
			allowed, remaining, resetAt, err = h.Fallback.Allow(r.Context(), key, h.Config.Window, h.Config.Max)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
		}

		setHeaders(w.Header(), max(h.Config.Max, 0), remaining, resetAt)
		if !allowed {
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter(resetAt)))
			common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func setHeaders(headers http.Header, limit, remaining int, resetAt time.Time) {
	headers.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	headers.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	headers.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
}

// retryAfter rounds up so clients never retry before the window has room.
func retryAfter(resetAt time.Time) int {
	secs := math.Ceil(time.Until(resetAt).Seconds())
	if secs < 0 {
		return 0
	}
	return int(secs)
}

// KeyByClientAndDiscount buckets requests per client IP and discount id.
func KeyByClientAndDiscount(r *http.Request) string {
	key := "eval:" + common.ClientIP(r)
	if id := chi.URLParam(r, "discountID"); id != "" {
		key += ":" + id
	}
	return key
}
