package ports

import (
	"context"

	"github.com/stackfold/hosting-system/internal/core/domain"
)

// CreateTenantInput carries the parameters for registering a new tenant.
// Template, when set, provisions storage and applies the named template in
// the same call.
type CreateTenantInput struct {
	Name     string
	OwnerID  string
	Template string
}

// FederatedInput configures delegation of a tenant's auth operations to an
// external identity provider. A nil pointer in UpdateTenantInput leaves the
// current descriptor untouched.
type FederatedInput struct {
	ProviderURL string
	ClientID    string
	Enabled     bool
}

// UpdateTenantInput carries the patchable tenant settings. Only non-nil
// fields are applied.
type UpdateTenantInput struct {
	Federated *FederatedInput
}

// TenantService is the public contract consumed by the transport layer.
// Provisioning lifecycle transitions on the same tenant are serialized;
// reads run concurrently and may observe pre- or post-write state.
type TenantService interface {
	Create(ctx context.Context, in CreateTenantInput) (*domain.Tenant, error)
	Get(ctx context.Context, name string) (*domain.Tenant, error)
	// Update applies the settings in UpdateTenantInput, today the federated
	// identity descriptor. Enabling federation requires a provider URL and
	// client id.
	Update(ctx context.Context, name string, in UpdateTenantInput) (*domain.Tenant, error)
	List(ctx context.Context, accountID string) ([]*domain.Tenant, error)
	// Delete removes the tenant record, tears down its storage, and
	// cascades deletion of its scoped accounts and groups.
	Delete(ctx context.Context, name string) error

	ProvisionStorage(ctx context.Context, name string) (*domain.Tenant, error)
	DeprovisionStorage(ctx context.Context, name string) error
	ApplyTemplate(ctx context.Context, name string, in ApplyTemplateInput) (*ApplyTemplateResult, error)
	PublishFile(ctx context.Context, name string, in PublishFileInput) (*domain.ObjectInfo, error)
	GetStructure(ctx context.Context, name string) ([]domain.ObjectInfo, error)

	// Login and Signup dispatch to the credential vault or the federated
	// delegate according to the tenant's federated descriptor.
	Login(ctx context.Context, name string, creds Credentials) (*SessionResult, error)
	Signup(ctx context.Context, name string, creds Credentials) (*SessionResult, error)
	Logout(ctx context.Context, token string) error
	Verify(ctx context.Context, token string) (*domain.AccountProjection, error)
}
