package ports

import (
	"context"
	"time"

	"github.com/stackfold/hosting-system/internal/core/domain"
)

// SessionResult is returned by every successful login or signup, regardless
// of which identity backend authenticated the caller.
type SessionResult struct {
	Token     string                   `json:"token"`
	ExpiresAt time.Time                `json:"expires_at"`
	Account   domain.AccountProjection `json:"account"`
}

// IdentityService is the login/signup contract shared by the local
// credential vault and the federated delegate. The orchestrator picks the
// implementation once per tenant based on its federated descriptor.
type IdentityService interface {
	Login(ctx context.Context, t *domain.Tenant, creds Credentials) (*SessionResult, error)
	Signup(ctx context.Context, t *domain.Tenant, creds Credentials) (*SessionResult, error)
}

// CredentialVault manages tenant-scoped account records and password
// verification. Verification failures are indistinguishable between unknown
// identifier and wrong password to prevent account enumeration.
type CredentialVault interface {
	Create(ctx context.Context, t *domain.Tenant, creds Credentials) (*domain.ScopedAccount, error)
	Verify(ctx context.Context, t *domain.Tenant, identifier, password string) (*domain.ScopedAccount, error)
	Remove(ctx context.Context, t *domain.Tenant, identifier string) error
}

// SessionIssuer issues, validates, and revokes opaque session tokens.
type SessionIssuer interface {
	Issue(ctx context.Context, a *domain.ScopedAccount) (*SessionResult, error)
	Validate(ctx context.Context, token string) (*domain.Session, error)
	// Revoke is idempotent; revoking an unknown token succeeds.
	Revoke(ctx context.Context, token string) error
	// RevokeAccount invalidates every session held by the account.
	RevokeAccount(ctx context.Context, tenant, accountID string) error
}
