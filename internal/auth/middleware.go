package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/noah-isme/backend-discount/internal/common"
	"github.com/noah-isme/backend-discount/internal/obs"
)

var errNoToken = errors.New("auth: token missing")

// TokenParser resolves a bearer token to its subject.
type TokenParser interface {
	ParseAccessToken(token string) (string, error)
}

// Middleware guards admin routes with bearer tokens.
type Middleware struct {
	Parser TokenParser
}

// RequireAuth enforces that a valid token is present before executing the next handler.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, err := m.authenticateRequest(r)
		if err != nil {
			var appErr *common.AppError
			if errors.As(err, &appErr) && appErr.HTTPStatus != 0 {
				common.JSONError(w, appErr.HTTPStatus, appErr.Code, appErr.Message, appErr.Details)
				return
			}
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m Middleware) authenticateRequest(r *http.Request) (context.Context, error) {
	if m.Parser == nil {
		return r.Context(), errors.New("auth: parser not configured")
	}
	token := extractToken(r)
	if token == "" {
		return r.Context(), errNoToken
	}
	subject, err := m.Parser.ParseAccessToken(token)
	if err != nil {
		return r.Context(), err
	}
	obs.Annotate(r.Context(), "subject", subject)
	return common.WithUserID(r.Context(), subject), nil
}

func extractToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
