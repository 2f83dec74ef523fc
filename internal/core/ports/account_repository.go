package ports

import (
	"context"

	"github.com/stackfold/hosting-system/internal/core/domain"
)

// AccountRepository defines persistence for scoped (per-tenant) accounts.
// It is fully independent of the platform account store; lookups never fall
// back across the two.
type AccountRepository interface {
	// Insert stores a new account. A (tenant, username) or (tenant, email)
	// collision returns domain.ErrAccountExists.
	Insert(ctx context.Context, a *domain.ScopedAccount) (*domain.ScopedAccount, error)
	FindByID(ctx context.Context, tenant, id string) (*domain.ScopedAccount, error)
	FindByUsername(ctx context.Context, tenant, username string) (*domain.ScopedAccount, error)
	FindByEmail(ctx context.Context, tenant, email string) (*domain.ScopedAccount, error)
	// FindByExternalID looks up the account mapped to a federated identity.
	FindByExternalID(ctx context.Context, tenant, externalID string) (*domain.ScopedAccount, error)
	ListByTenant(ctx context.Context, tenant string) ([]*domain.ScopedAccount, error)
	Delete(ctx context.Context, tenant, id string) error
	// DeleteByTenant removes every account in the tenant's namespace (cascade).
	DeleteByTenant(ctx context.Context, tenant string) error
}

// GroupRepository defines persistence for per-tenant groups.
type GroupRepository interface {
	// Insert stores a new group. A (tenant, name) collision returns domain.ErrGroupExists.
	Insert(ctx context.Context, g *domain.Group) (*domain.Group, error)
	FindByName(ctx context.Context, tenant, name string) (*domain.Group, error)
	Save(ctx context.Context, g *domain.Group) error
	Delete(ctx context.Context, tenant, name string) error
	ListByTenant(ctx context.Context, tenant string) ([]*domain.Group, error)
	// DeleteByTenant removes every group owned by the tenant (cascade).
	DeleteByTenant(ctx context.Context, tenant string) error
}
