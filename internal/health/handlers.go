package health

import (
	"context"
	"net/http"
	"sort"
	"sync/atomic"
	"time"

	"github.com/noah-isme/backend-discount/internal/common"
)

var ready atomic.Bool

func init() {
	ready.Store(true)
}

// SetReady flips readiness. The server clears it when shutdown begins so load balancers
// drain traffic before the listener closes.
func SetReady(v bool) {
	ready.Store(v)
}

// Checker represents a dependency that can be probed for readiness.
type Checker interface {
	Ping(ctx context.Context) error
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context) error

// Ping calls f.
func (f CheckerFunc) Ping(ctx context.Context) error { return f(ctx) }

// Handler exposes HTTP handlers for health endpoints.
type Handler struct {
	Checkers map[string]Checker
	Timeout  time.Duration
}

// Live reports liveness status.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready reports readiness based on dependency probes. With no checkers configured the
// service is ready as long as it is not shutting down, since evaluation needs no backend.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if !ready.Load() {
		common.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "shutting_down"})
		return
	}
	names := make([]string, 0, len(h.Checkers))
	for name := range h.Checkers {
		names = append(names, name)
	}
	sort.Strings(names)

	status := map[string]string{"status": "ok"}
	code := http.StatusOK
	for _, name := range names {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout())
		err := h.Checkers[name].Ping(ctx)
		cancel()
		if err != nil {
			status[name] = err.Error()
			status["status"] = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		status[name] = "ok"
	}
	common.JSON(w, code, status)
}

func (h Handler) timeout() time.Duration {
	if h.Timeout <= 0 {
		return 500 * time.Millisecond
	}
	return h.Timeout
}
