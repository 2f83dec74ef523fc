package ports

import (
	"context"

	"github.com/stackfold/hosting-system/internal/core/domain"
)

// Credentials is the login/signup input shared by the local vault and the
// federated delegate. At least one of Username/Email is required.
type Credentials struct {
	Username string
	Email    string
	Password string
}

// ExternalIdentity is the provider's view of an authenticated end user.
// ID is the provider's stable identifier and keys the scoped account.
type ExternalIdentity struct {
	ID       string
	Username string
	Email    string
}

// IdentityProvider is the adapter to an external federated identity backend.
// Failures surface as *domain.ProviderError.
type IdentityProvider interface {
	Authenticate(ctx context.Context, cfg domain.FederatedDescriptor, creds Credentials) (*ExternalIdentity, error)
}
