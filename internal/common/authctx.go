package common

import "context"

type ctxKey string

const subjectKey ctxKey = "auth/subject"

// WithUserID stores the authenticated token subject on the provided context.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, subjectKey, id)
}

// UserID extracts the authenticated token subject from the context if present.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(subjectKey).(string)
	return id, ok && id != ""
}
