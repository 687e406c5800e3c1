// Package session keeps per-browser wizard state behind a small store
// interface with in-memory and Redis implementations.
package session

import (
	"context"

	"joinnow/internal/models"
)

// Store persists session envelopes. Get returns a SESSION_NOT_FOUND error for
// unknown or expired ids; other failures are SESSION_STORE_FAILED.
type Store interface {
	Get(ctx context.Context, id string) (*models.Session, error)
	Put(ctx context.Context, s *models.Session) error
	Delete(ctx context.Context, id string) error
}
