package ports

import (
	"context"

	"github.com/stackfold/hosting-system/internal/core/domain"
)

// TenantRepository defines persistence operations for tenants.
type TenantRepository interface {
	// Insert stores a new tenant. A name collision returns domain.ErrTenantExists.
	Insert(ctx context.Context, t *domain.Tenant) (*domain.Tenant, error)
	FindByName(ctx context.Context, name string) (*domain.Tenant, error)
	// Save persists the full mutable state of an existing tenant.
	Save(ctx context.Context, t *domain.Tenant) error
	Delete(ctx context.Context, name string) error
	// List returns tenants where accountID is owner or collaborator; all
	// tenants when accountID is empty.
	List(ctx context.Context, accountID string) ([]*domain.Tenant, error)
}
