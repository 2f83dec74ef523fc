package ports

import (
	"context"

	"github.com/stackfold/hosting-system/internal/core/domain"
)

// GroupSpec declares a new group.
type GroupSpec struct {
	Name       string
	AccountIDs []string
}

// GroupPatch is a partial group update. A patch with no fields set is
// treated as an implicit delete request; see AccessService.UpdateGroup.
type GroupPatch struct {
	AccountIDs *[]string
}

// Empty reports whether the patch carries no changes.
func (p GroupPatch) Empty() bool {
	return p.AccountIDs == nil
}

// DirectorySpec declares a path-scoped authorization boundary.
type DirectorySpec struct {
	Path       string
	GroupNames []string
	AccountIDs []string
}

// AccessService maintains the owner → collaborator → group → directory
// authorization graph of a tenant.
type AccessService interface {
	AddGroup(ctx context.Context, t *domain.Tenant, spec GroupSpec) (*domain.Group, error)
	GetGroup(ctx context.Context, t *domain.Tenant, name string) (*domain.Group, error)
	ListGroups(ctx context.Context, t *domain.Tenant) ([]*domain.Group, error)
	// UpdateGroup applies a partial update. An empty patch deletes the
	// group instead of updating it.
	UpdateGroup(ctx context.Context, t *domain.Tenant, name string, patch GroupPatch) (*domain.Group, error)
	DeleteGroup(ctx context.Context, t *domain.Tenant, name string) error
	AddDirectory(ctx context.Context, t *domain.Tenant, spec DirectorySpec) error
	// AddCollaborators unions accountIDs into the tenant's collaborator set.
	AddCollaborators(ctx context.Context, t *domain.Tenant, accountIDs []string) (*domain.Tenant, error)
	// ResolvePermission evaluates, in fixed most-privileged-first order:
	// owner, collaborator, directory group membership, deny.
	ResolvePermission(ctx context.Context, t *domain.Tenant, accountID, key string) (bool, error)
}
