package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/stackfold/hosting-system/internal/core/domain"
	"github.com/stackfold/hosting-system/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubTenantRepo struct {
	byName map[string]*domain.Tenant
	nextID int
	saves  int
}

func newStubTenantRepo() *stubTenantRepo {
	return &stubTenantRepo{byName: make(map[string]*domain.Tenant)}
}

func (r *stubTenantRepo) Insert(_ context.Context, t *domain.Tenant) (*domain.Tenant, error) {
	if _, ok := r.byName[t.Name]; ok {
		return nil, domain.ErrTenantExists
	}
	r.nextID++
	t.ID = ids(r.nextID)
	r.byName[t.Name] = t
	return t, nil
}

func (r *stubTenantRepo) FindByName(_ context.Context, name string) (*domain.Tenant, error) {
	t, ok := r.byName[name]
	if !ok {
		return nil, domain.ErrTenantNotFound
	}
	return t, nil
}

func (r *stubTenantRepo) Save(_ context.Context, t *domain.Tenant) error {
	if _, ok := r.byName[t.Name]; !ok {
		return domain.ErrTenantNotFound
	}
	r.byName[t.Name] = t
	r.saves++
	return nil
}

func (r *stubTenantRepo) Delete(_ context.Context, name string) error {
	if _, ok := r.byName[name]; !ok {
		return domain.ErrTenantNotFound
	}
	delete(r.byName, name)
	return nil
}

func (r *stubTenantRepo) List(_ context.Context, accountID string) ([]*domain.Tenant, error) {
	var out []*domain.Tenant
	for _, t := range r.byName {
		if t.OwnerID == accountID || t.IsCollaborator(accountID) {
			out = append(out, t)
		}
	}
	return out, nil
}

func ids(n int) string {
	return string(rune('a'+n-1)) + "-tenant-id"
}

type stubGroupRepo struct {
	groups map[string]*domain.Group // tenant + "/" + name
}

func newStubGroupRepo() *stubGroupRepo {
	return &stubGroupRepo{groups: make(map[string]*domain.Group)}
}

func (r *stubGroupRepo) key(tenant, name string) string { return tenant + "/" + name }

func (r *stubGroupRepo) Insert(_ context.Context, g *domain.Group) (*domain.Group, error) {
	k := r.key(g.TenantName, g.Name)
	if _, ok := r.groups[k]; ok {
		return nil, domain.ErrGroupExists
	}
	r.groups[k] = g
	return g, nil
}

func (r *stubGroupRepo) FindByName(_ context.Context, tenant, name string) (*domain.Group, error) {
	g, ok := r.groups[r.key(tenant, name)]
	if !ok {
		return nil, domain.ErrGroupNotFound
	}
	return g, nil
}

func (r *stubGroupRepo) Save(_ context.Context, g *domain.Group) error {
	k := r.key(g.TenantName, g.Name)
	if _, ok := r.groups[k]; !ok {
		return domain.ErrGroupNotFound
	}
	r.groups[k] = g
	return nil
}

func (r *stubGroupRepo) Delete(_ context.Context, tenant, name string) error {
	k := r.key(tenant, name)
	if _, ok := r.groups[k]; !ok {
		return domain.ErrGroupNotFound
	}
	delete(r.groups, k)
	return nil
}

func (r *stubGroupRepo) ListByTenant(_ context.Context, tenant string) ([]*domain.Group, error) {
	var out []*domain.Group
	for _, g := range r.groups {
		if g.TenantName == tenant {
			out = append(out, g)
		}
	}
	return out, nil
}

func (r *stubGroupRepo) DeleteByTenant(_ context.Context, tenant string) error {
	for k, g := range r.groups {
		if g.TenantName == tenant {
			delete(r.groups, k)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func newAccessSvc(tenants *stubTenantRepo, groups *stubGroupRepo) ports.AccessService {
	return NewAccessService(tenants, groups, zerolog.Nop())
}

func seededTenant(tenants *stubTenantRepo, name string) *domain.Tenant {
	t := &domain.Tenant{
		Name:      name,
		OwnerID:   "owner_1",
		State:     domain.StateUnprovisioned,
		CreatedAt: time.Now().UTC(),
	}
	created, _ := tenants.Insert(context.Background(), t)
	return created
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestAccessService_AddGroup(t *testing.T) {
	tenants := newStubTenantRepo()
	groups := newStubGroupRepo()
	svc := newAccessSvc(tenants, groups)
	tenant := seededTenant(tenants, "demo")

	group, err := svc.AddGroup(context.Background(), tenant, ports.GroupSpec{
		Name:       "admins",
		AccountIDs: []string{"acct_1", "acct_2", "acct_1"},
	})
	if err != nil {
		t.Fatalf("add group: %v", err)
	}
	if len(group.AccountIDs) != 2 {
		t.Errorf("members should be deduplicated, got: %v", group.AccountIDs)
	}

	if _, err := svc.AddGroup(context.Background(), tenant, ports.GroupSpec{Name: "admins"}); !errors.Is(err, domain.ErrGroupExists) {
		t.Errorf("duplicate group: expected ErrGroupExists, got: %v", err)
	}
	if _, err := svc.AddGroup(context.Background(), tenant, ports.GroupSpec{Name: "  "}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("blank name: expected ErrInvalidInput, got: %v", err)
	}
}

func TestAccessService_UpdateGroup_ReplacesMembers(t *testing.T) {
	tenants := newStubTenantRepo()
	groups := newStubGroupRepo()
	svc := newAccessSvc(tenants, groups)
	tenant := seededTenant(tenants, "demo")

	if _, err := svc.AddGroup(context.Background(), tenant, ports.GroupSpec{Name: "admins", AccountIDs: []string{"acct_1"}}); err != nil {
		t.Fatalf("add group: %v", err)
	}

	members := []string{"acct_2", "acct_3"}
	group, err := svc.UpdateGroup(context.Background(), tenant, "admins", ports.GroupPatch{AccountIDs: &members})
	if err != nil {
		t.Fatalf("update group: %v", err)
	}
	if len(group.AccountIDs) != 2 || group.HasAccount("acct_1") {
		t.Errorf("membership not replaced: %v", group.AccountIDs)
	}
}

func TestAccessService_UpdateGroup_EmptyPatchDeletes(t *testing.T) {
	tenants := newStubTenantRepo()
	groups := newStubGroupRepo()
	svc := newAccessSvc(tenants, groups)
	tenant := seededTenant(tenants, "demo")

	if _, err := svc.AddGroup(context.Background(), tenant, ports.GroupSpec{Name: "admins", AccountIDs: []string{"acct_1"}}); err != nil {
		t.Fatalf("add group: %v", err)
	}

	group, err := svc.UpdateGroup(context.Background(), tenant, "admins", ports.GroupPatch{})
	if err != nil {
		t.Fatalf("empty patch: %v", err)
	}
	if group != nil {
		t.Errorf("empty patch should delete, not return a group: %+v", group)
	}
	if _, err := svc.GetGroup(context.Background(), tenant, "admins"); !errors.Is(err, domain.ErrGroupNotFound) {
		t.Errorf("group should be gone after empty patch, got: %v", err)
	}
}

func TestAccessService_DeleteGroup_StripsDirectoryReferences(t *testing.T) {
	tenants := newStubTenantRepo()
	groups := newStubGroupRepo()
	svc := newAccessSvc(tenants, groups)
	tenant := seededTenant(tenants, "demo")

	if _, err := svc.AddGroup(context.Background(), tenant, ports.GroupSpec{Name: "admins"}); err != nil {
		t.Fatalf("add group: %v", err)
	}
	if err := svc.AddDirectory(context.Background(), tenant, ports.DirectorySpec{Path: "/admin/*", GroupNames: []string{"admins", "editors"}}); err != nil {
		t.Fatalf("add directory: %v", err)
	}

	if err := svc.DeleteGroup(context.Background(), tenant, "admins"); err != nil {
		t.Fatalf("delete group: %v", err)
	}
	if len(tenant.Directories[0].GroupNames) != 1 || tenant.Directories[0].GroupNames[0] != "editors" {
		t.Errorf("dangling group reference not removed: %v", tenant.Directories[0].GroupNames)
	}
}

func TestAccessService_AddDirectory(t *testing.T) {
	tenants := newStubTenantRepo()
	svc := newAccessSvc(tenants, newStubGroupRepo())
	tenant := seededTenant(tenants, "demo")

	if err := svc.AddDirectory(context.Background(), tenant, ports.DirectorySpec{Path: "/admin/*"}); err != nil {
		t.Fatalf("add directory: %v", err)
	}
	if err := svc.AddDirectory(context.Background(), tenant, ports.DirectorySpec{Path: "/admin/*"}); !errors.Is(err, domain.ErrDirectoryExists) {
		t.Errorf("duplicate path: expected ErrDirectoryExists, got: %v", err)
	}
	if err := svc.AddDirectory(context.Background(), tenant, ports.DirectorySpec{Path: "no-slash"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("relative path: expected ErrInvalidInput, got: %v", err)
	}
}

func TestAccessService_AddCollaborators_IdempotentUnion(t *testing.T) {
	tenants := newStubTenantRepo()
	svc := newAccessSvc(tenants, newStubGroupRepo())
	tenant := seededTenant(tenants, "demo")

	updated, err := svc.AddCollaborators(context.Background(), tenant, []string{"acct_1", "acct_2"})
	if err != nil {
		t.Fatalf("add collaborators: %v", err)
	}
	if len(updated.Collaborators) != 2 {
		t.Fatalf("expected 2 collaborators, got: %v", updated.Collaborators)
	}

	// Re-adding is a no-op, not an error.
	updated, err = svc.AddCollaborators(context.Background(), tenant, []string{"acct_2", "acct_3"})
	if err != nil {
		t.Fatalf("second add: %v", err)
	}
	if len(updated.Collaborators) != 3 {
		t.Errorf("expected union of 3 collaborators, got: %v", updated.Collaborators)
	}
}

func TestAccessService_ResolvePermission_Precedence(t *testing.T) {
	tenants := newStubTenantRepo()
	groups := newStubGroupRepo()
	svc := newAccessSvc(tenants, groups)
	tenant := seededTenant(tenants, "demo")

	if _, err := svc.AddCollaborators(context.Background(), tenant, []string{"collab_1"}); err != nil {
		t.Fatalf("collaborators: %v", err)
	}
	if _, err := svc.AddGroup(context.Background(), tenant, ports.GroupSpec{Name: "admins", AccountIDs: []string{"member_1"}}); err != nil {
		t.Fatalf("group: %v", err)
	}
	// A directory guarding /admin, open only to the admins group and one
	// directly named account.
	if err := svc.AddDirectory(context.Background(), tenant, ports.DirectorySpec{
		Path:       "/admin/*",
		GroupNames: []string{"admins"},
		AccountIDs: []string{"direct_1"},
	}); err != nil {
		t.Fatalf("directory: %v", err)
	}

	cases := []struct {
		name      string
		accountID string
		key       string
		want      bool
	}{
		{"owner always allowed", "owner_1", "/admin/panel.html", true},
		{"collaborator bypasses directory rules", "collab_1", "/admin/panel.html", true},
		{"group member allowed under guarded path", "member_1", "/admin/panel.html", true},
		{"directly named account allowed", "direct_1", "/admin/panel.html", true},
		{"stranger denied under guarded path", "stranger", "/admin/panel.html", false},
		{"stranger denied on unguarded path", "stranger", "/public/index.html", false},
		{"empty account denied", "", "/admin/panel.html", false},
	}
	for _, tc := range cases {
		got, err := svc.ResolvePermission(context.Background(), tenant, tc.accountID, tc.key)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if got != tc.want {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestAccessService_ResolvePermission_SkipsDanglingGroups(t *testing.T) {
	tenants := newStubTenantRepo()
	groups := newStubGroupRepo()
	svc := newAccessSvc(tenants, groups)
	tenant := seededTenant(tenants, "demo")

	// Directory references a group that was never created.
	if err := svc.AddDirectory(context.Background(), tenant, ports.DirectorySpec{
		Path:       "/admin/*",
		GroupNames: []string{"ghosts"},
	}); err != nil {
		t.Fatalf("directory: %v", err)
	}

	allowed, err := svc.ResolvePermission(context.Background(), tenant, "member_1", "/admin/panel.html")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if allowed {
		t.Error("dangling group reference must not grant access")
	}
}
