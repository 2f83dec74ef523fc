package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/stackfold/hosting-system/internal/core/domain"
	"github.com/stackfold/hosting-system/internal/core/ports"
)

type accessService struct {
	tenants ports.TenantRepository
	groups  ports.GroupRepository
	log     zerolog.Logger
}

// NewAccessService returns the AccessService maintaining the tenant
// authorization graph.
func NewAccessService(tenants ports.TenantRepository, groups ports.GroupRepository, log zerolog.Logger) ports.AccessService {
	return &accessService{tenants: tenants, groups: groups, log: log}
}

func (s *accessService) AddGroup(ctx context.Context, t *domain.Tenant, spec ports.GroupSpec) (*domain.Group, error) {
	if strings.TrimSpace(spec.Name) == "" {
		return nil, fmt.Errorf("%w: group name required", domain.ErrInvalidInput)
	}

	now := time.Now().UTC()
	group := &domain.Group{
		TenantName: t.Name,
		Name:       spec.Name,
		AccountIDs: dedupe(spec.AccountIDs),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	created, err := s.groups.Insert(ctx, group)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("tenant", t.Name).Str("group", created.Name).Msg("group added")
	return created, nil
}

func (s *accessService) GetGroup(ctx context.Context, t *domain.Tenant, name string) (*domain.Group, error) {
	return s.groups.FindByName(ctx, t.Name, name)
}

func (s *accessService) ListGroups(ctx context.Context, t *domain.Tenant) ([]*domain.Group, error) {
	return s.groups.ListByTenant(ctx, t.Name)
}

// UpdateGroup applies a partial update to a group. An empty patch is treated
// as an implicit delete request. That rule is easy to trigger by accident
// (a client sending {} deletes the group) but is kept for compatibility with
// the systems already driving this API.
func (s *accessService) UpdateGroup(ctx context.Context, t *domain.Tenant, name string, patch ports.GroupPatch) (*domain.Group, error) {
	if patch.Empty() {
		s.log.Warn().Str("tenant", t.Name).Str("group", name).Msg("empty group patch treated as delete")
		if err := s.DeleteGroup(ctx, t, name); err != nil {
			return nil, err
		}
		return nil, nil
	}

	group, err := s.groups.FindByName(ctx, t.Name, name)
	if err != nil {
		return nil, err
	}
	if patch.AccountIDs != nil {
		group.AccountIDs = dedupe(*patch.AccountIDs)
	}
	group.UpdatedAt = time.Now().UTC()

	if err := s.groups.Save(ctx, group); err != nil {
		return nil, err
	}
	s.log.Info().Str("tenant", t.Name).Str("group", name).Int("members", len(group.AccountIDs)).Msg("group updated")
	return group, nil
}

func (s *accessService) DeleteGroup(ctx context.Context, t *domain.Tenant, name string) error {
	if err := s.groups.Delete(ctx, t.Name, name); err != nil {
		return err
	}

	// Drop dangling references from the tenant's directories.
	changed := false
	for i := range t.Directories {
		kept := t.Directories[i].GroupNames[:0]
		for _, g := range t.Directories[i].GroupNames {
			if g != name {
				kept = append(kept, g)
			} else {
				changed = true
			}
		}
		t.Directories[i].GroupNames = kept
	}
	if changed {
		t.UpdatedAt = time.Now().UTC()
		if err := s.tenants.Save(ctx, t); err != nil {
			return err
		}
	}

	s.log.Info().Str("tenant", t.Name).Str("group", name).Msg("group deleted")
	return nil
}

func (s *accessService) AddDirectory(ctx context.Context, t *domain.Tenant, spec ports.DirectorySpec) error {
	p := strings.TrimSpace(spec.Path)
	if p == "" || !strings.HasPrefix(p, "/") {
		return fmt.Errorf("%w: directory path must start with /", domain.ErrInvalidInput)
	}
	for _, d := range t.Directories {
		if d.Path == p {
			return domain.ErrDirectoryExists
		}
	}

	t.Directories = append(t.Directories, domain.Directory{
		Path:       p,
		GroupNames: dedupe(spec.GroupNames),
		AccountIDs: dedupe(spec.AccountIDs),
	})
	t.UpdatedAt = time.Now().UTC()
	if err := s.tenants.Save(ctx, t); err != nil {
		return err
	}

	s.log.Info().Str("tenant", t.Name).Str("path", p).Msg("directory added")
	return nil
}

// AddCollaborators unions accountIDs into the tenant's collaborator set.
// Re-adding an existing collaborator is a no-op, not an error.
func (s *accessService) AddCollaborators(ctx context.Context, t *domain.Tenant, accountIDs []string) (*domain.Tenant, error) {
	added := 0
	for _, id := range accountIDs {
		if id == "" || t.IsCollaborator(id) {
			continue
		}
		t.Collaborators = append(t.Collaborators, id)
		added++
	}
	if added > 0 {
		t.UpdatedAt = time.Now().UTC()
		if err := s.tenants.Save(ctx, t); err != nil {
			return nil, err
		}
	}
	s.log.Info().Str("tenant", t.Name).Int("added", added).Msg("collaborators added")
	return t, nil
}

// ResolvePermission evaluates access in fixed most-privileged-first order
// and short-circuits at the first matching rule:
//  1. tenant owner → allow
//  2. collaborator → allow
//  3. a directory matching the key grants access to the account directly
//     or through one of its groups → allow
//  4. otherwise → deny
func (s *accessService) ResolvePermission(ctx context.Context, t *domain.Tenant, accountID, key string) (bool, error) {
	if accountID == "" {
		return false, nil
	}
	if t.OwnerID == accountID {
		return true, nil
	}
	if t.IsCollaborator(accountID) {
		return true, nil
	}

	for _, dir := range t.Directories {
		if !dir.Matches(key) {
			continue
		}
		for _, id := range dir.AccountIDs {
			if id == accountID {
				return true, nil
			}
		}
		for _, groupName := range dir.GroupNames {
			group, err := s.groups.FindByName(ctx, t.Name, groupName)
			if errors.Is(err, domain.ErrGroupNotFound) {
				continue
			}
			if err != nil {
				return false, err
			}
			if group.HasAccount(accountID) {
				return true, nil
			}
		}
	}
	return false, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
