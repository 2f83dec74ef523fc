package ports

import (
	"context"
	"time"

	"github.com/stackfold/hosting-system/internal/core/domain"
)

// SessionStore persists issued sessions for their lifetime and no longer.
// Implementations must be safe under concurrent calls for the same token.
type SessionStore interface {
	Put(ctx context.Context, s *domain.Session, ttl time.Duration) error
	// Get returns the session bound to token, domain.ErrSessionNotFound when
	// absent or already expired out of the store.
	Get(ctx context.Context, token string) (*domain.Session, error)
	// Remove invalidates token atomically and reports whether it existed.
	// Removing an absent token is not an error.
	Remove(ctx context.Context, token string) (bool, error)
	// RemoveByAccount invalidates every session bound to the account.
	RemoveByAccount(ctx context.Context, tenant, accountID string) error
}
