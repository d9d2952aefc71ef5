// Package store persists tiered discount configurations keyed by discount id.
package store

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound is returned when no configuration exists for a discount id.
var ErrNotFound = errors.New("discount configuration not found")

// ErrInvalidID is returned for blank discount ids.
var ErrInvalidID = errors.New("discount id is required")

// Store reads and writes raw configuration JSON documents.
type Store interface {
	Get(ctx context.Context, id string) (string, error)
	Put(ctx context.Context, id, value string) error
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

func normaliseID(id string) (string, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return "", ErrInvalidID
	}
	return trimmed, nil
}
