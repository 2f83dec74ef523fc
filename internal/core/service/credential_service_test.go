package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"

	"github.com/stackfold/hosting-system/internal/core/domain"
	"github.com/stackfold/hosting-system/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubAccountRepo struct {
	accounts  map[string]*domain.ScopedAccount // id → account
	nextID    int
	insertErr error
}

func newStubAccountRepo() *stubAccountRepo {
	return &stubAccountRepo{accounts: make(map[string]*domain.ScopedAccount)}
}

func (r *stubAccountRepo) Insert(_ context.Context, a *domain.ScopedAccount) (*domain.ScopedAccount, error) {
	if r.insertErr != nil {
		return nil, r.insertErr
	}
	for _, existing := range r.accounts {
		if existing.TenantName != a.TenantName {
			continue
		}
		if a.Username != "" && existing.Username == a.Username {
			return nil, domain.ErrAccountExists
		}
		if a.Email != "" && existing.Email == a.Email {
			return nil, domain.ErrAccountExists
		}
		if a.ExternalID != "" && existing.ExternalID == a.ExternalID {
			return nil, domain.ErrAccountExists
		}
	}
	r.nextID++
	a.ID = fmt.Sprintf("acct_%d", r.nextID)
	r.accounts[a.ID] = a
	return a, nil
}

func (r *stubAccountRepo) FindByID(_ context.Context, tenant, id string) (*domain.ScopedAccount, error) {
	a, ok := r.accounts[id]
	if !ok || a.TenantName != tenant {
		return nil, domain.ErrAccountNotFound
	}
	return a, nil
}

func (r *stubAccountRepo) FindByUsername(_ context.Context, tenant, username string) (*domain.ScopedAccount, error) {
	return r.find(tenant, func(a *domain.ScopedAccount) bool { return a.Username == username && username != "" })
}

func (r *stubAccountRepo) FindByEmail(_ context.Context, tenant, email string) (*domain.ScopedAccount, error) {
	return r.find(tenant, func(a *domain.ScopedAccount) bool { return a.Email == email && email != "" })
}

func (r *stubAccountRepo) FindByExternalID(_ context.Context, tenant, externalID string) (*domain.ScopedAccount, error) {
	return r.find(tenant, func(a *domain.ScopedAccount) bool { return a.ExternalID == externalID && externalID != "" })
}

func (r *stubAccountRepo) find(tenant string, match func(*domain.ScopedAccount) bool) (*domain.ScopedAccount, error) {
	for _, a := range r.accounts {
		if a.TenantName == tenant && match(a) {
			return a, nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (r *stubAccountRepo) ListByTenant(_ context.Context, tenant string) ([]*domain.ScopedAccount, error) {
	var out []*domain.ScopedAccount
	for _, a := range r.accounts {
		if a.TenantName == tenant {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *stubAccountRepo) Delete(_ context.Context, tenant, id string) error {
	a, ok := r.accounts[id]
	if !ok || a.TenantName != tenant {
		return domain.ErrAccountNotFound
	}
	delete(r.accounts, id)
	return nil
}

func (r *stubAccountRepo) DeleteByTenant(_ context.Context, tenant string) error {
	for id, a := range r.accounts {
		if a.TenantName == tenant {
			delete(r.accounts, id)
		}
	}
	return nil
}

type stubIssuer struct {
	revoked []string // "tenant/accountID"
}

func (s *stubIssuer) Issue(_ context.Context, a *domain.ScopedAccount) (*ports.SessionResult, error) {
	return &ports.SessionResult{Token: "tok_" + a.ID, Account: a.Projection()}, nil
}

func (s *stubIssuer) Validate(context.Context, string) (*domain.Session, error) {
	return nil, domain.ErrSessionNotFound
}

func (s *stubIssuer) Revoke(context.Context, string) error { return nil }

func (s *stubIssuer) RevokeAccount(_ context.Context, tenant, accountID string) error {
	s.revoked = append(s.revoked, tenant+"/"+accountID)
	return nil
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func testTenant(name string) *domain.Tenant {
	return &domain.Tenant{Name: name, OwnerID: "owner_1", State: domain.StateUnprovisioned}
}

func TestCredentialService_CreateAndVerify(t *testing.T) {
	repo := newStubAccountRepo()
	vault := NewCredentialService(repo, &stubIssuer{}, zerolog.Nop())
	tenant := testTenant("demo")

	created, err := vault.Create(context.Background(), tenant, ports.Credentials{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "pw123456",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.PasswordHash == "" || created.PasswordHash == "pw123456" {
		t.Fatal("password must be stored hashed")
	}

	account, err := vault.Verify(context.Background(), tenant, "alice", "pw123456")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if account.ID != created.ID {
		t.Errorf("verify resolved wrong account: %s", account.ID)
	}

	// Email also works as the identifier.
	if _, err := vault.Verify(context.Background(), tenant, "alice@example.com", "pw123456"); err != nil {
		t.Errorf("verify by email: %v", err)
	}
}

func TestCredentialService_Verify_IndistinguishableFailures(t *testing.T) {
	repo := newStubAccountRepo()
	vault := NewCredentialService(repo, &stubIssuer{}, zerolog.Nop())
	tenant := testTenant("demo")

	if _, err := vault.Create(context.Background(), tenant, ports.Credentials{Username: "alice", Password: "pw123456"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	_, wrongPw := vault.Verify(context.Background(), tenant, "alice", "wrong-password")
	_, noUser := vault.Verify(context.Background(), tenant, "ghost", "pw123456")

	if !errors.Is(wrongPw, domain.ErrInvalidCredentials) {
		t.Errorf("wrong password: expected ErrInvalidCredentials, got: %v", wrongPw)
	}
	if !errors.Is(noUser, domain.ErrInvalidCredentials) {
		t.Errorf("unknown user: expected ErrInvalidCredentials, got: %v", noUser)
	}
	// Both failure modes must be the same error to the caller.
	if wrongPw.Error() != noUser.Error() {
		t.Errorf("failure modes are distinguishable: %q vs %q", wrongPw, noUser)
	}
}

func TestCredentialService_Create_Validation(t *testing.T) {
	vault := NewCredentialService(newStubAccountRepo(), &stubIssuer{}, zerolog.Nop())
	tenant := testTenant("demo")

	if _, err := vault.Create(context.Background(), tenant, ports.Credentials{Password: "pw123456"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("missing identifier: expected ErrInvalidInput, got: %v", err)
	}
	if _, err := vault.Create(context.Background(), tenant, ports.Credentials{Username: "alice", Password: "short"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("short password: expected ErrInvalidInput, got: %v", err)
	}
}

func TestCredentialService_Create_UniquePerTenant(t *testing.T) {
	repo := newStubAccountRepo()
	vault := NewCredentialService(repo, &stubIssuer{}, zerolog.Nop())

	if _, err := vault.Create(context.Background(), testTenant("demo"), ports.Credentials{Username: "alice", Password: "pw123456"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := vault.Create(context.Background(), testTenant("demo"), ports.Credentials{Username: "alice", Password: "pw123456"}); !errors.Is(err, domain.ErrAccountExists) {
		t.Errorf("duplicate in same tenant: expected ErrAccountExists, got: %v", err)
	}
	// The same username in another tenant's namespace is a different account.
	if _, err := vault.Create(context.Background(), testTenant("other"), ports.Credentials{Username: "alice", Password: "pw123456"}); err != nil {
		t.Errorf("same username in another tenant should succeed, got: %v", err)
	}
}

func TestCredentialService_Verify_FederatedAccountHasNoPassword(t *testing.T) {
	repo := newStubAccountRepo()
	vault := NewCredentialService(repo, &stubIssuer{}, zerolog.Nop())
	tenant := testTenant("demo")

	if _, err := repo.Insert(context.Background(), &domain.ScopedAccount{
		TenantName: "demo",
		Username:   "bob",
		ExternalID: "ext_42",
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, err := vault.Verify(context.Background(), tenant, "bob", "whatever")
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for federated account, got: %v", err)
	}
}

func TestCredentialService_Remove_RevokesSessions(t *testing.T) {
	repo := newStubAccountRepo()
	issuer := &stubIssuer{}
	vault := NewCredentialService(repo, issuer, zerolog.Nop())
	tenant := testTenant("demo")

	created, err := vault.Create(context.Background(), tenant, ports.Credentials{Username: "alice", Password: "pw123456"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := vault.Remove(context.Background(), tenant, "alice"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(repo.accounts) != 0 {
		t.Error("account record should be deleted")
	}
	if len(issuer.revoked) != 1 || issuer.revoked[0] != "demo/"+created.ID {
		t.Errorf("expected session revocation cascade, got: %v", issuer.revoked)
	}
}
