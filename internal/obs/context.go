package obs

import (
	"context"
	"sort"
	"sync"
)

type (
	routePatternKey  struct{}
	requestFieldsKey struct{}
)

// WithRoutePattern stores the matched router pattern on the context.
func WithRoutePattern(ctx context.Context, pattern string) context.Context {
	return context.WithValue(ctx, routePatternKey{}, pattern)
}

// RoutePatternFromContext returns the stored route pattern or "".
func RoutePatternFromContext(ctx context.Context) string {
	v, _ := ctx.Value(routePatternKey{}).(string)
	return v
}

// RequestFields holds values that inner handlers attach to the request log line, such as
// the evaluation id or the authenticated subject. Handlers see a copy of the request, so
// the fields travel by pointer.
type RequestFields struct {
	mu     sync.Mutex
	values map[string]string
}

// WithRequestFields attaches an empty field set to ctx.
func WithRequestFields(ctx context.Context) (context.Context, *RequestFields) {
	fields := &RequestFields{values: map[string]string{}}
	return context.WithValue(ctx, requestFieldsKey{}, fields), fields
}

// Annotate records key=value for the request log. It does nothing when ctx carries no
// field set, so handlers can call it unconditionally.
func Annotate(ctx context.Context, key, value string) {
	fields, ok := ctx.Value(requestFieldsKey{}).(*RequestFields)
	if !ok || fields == nil || key == "" || value == "" {
		return
	}
	fields.mu.Lock()
	fields.values[key] = value
	fields.mu.Unlock()
}

// Each calls fn for every recorded field in key order.
func (f *RequestFields) Each(fn func(key, value string)) {
	if f == nil {
		return
	}
	f.mu.Lock()
	keys := make([]string, 0, len(f.values))
	for k := range f.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	snapshot := make([]string, len(keys))
	for i, k := range keys {
		snapshot[i] = f.values[k]
	}
	f.mu.Unlock()

	for i, k := range keys {
		fn(k, snapshot[i])
	}
}
