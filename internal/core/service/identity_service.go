package service

import (
	"context"

	"github.com/stackfold/hosting-system/internal/core/domain"
	"github.com/stackfold/hosting-system/internal/core/ports"
)

// localIdentity is the IdentityService backed by the tenant's own credential
// vault. It is selected for tenants without an enabled federated descriptor.
type localIdentity struct {
	vault  ports.CredentialVault
	issuer ports.SessionIssuer
}

// NewLocalIdentity composes the credential vault and session issuer into
// the shared login/signup contract.
func NewLocalIdentity(vault ports.CredentialVault, issuer ports.SessionIssuer) ports.IdentityService {
	return &localIdentity{vault: vault, issuer: issuer}
}

func (s *localIdentity) Login(ctx context.Context, t *domain.Tenant, creds ports.Credentials) (*ports.SessionResult, error) {
	identifier := creds.Username
	if identifier == "" {
		identifier = creds.Email
	}
	account, err := s.vault.Verify(ctx, t, identifier, creds.Password)
	if err != nil {
		return nil, err
	}
	return s.issuer.Issue(ctx, account)
}

func (s *localIdentity) Signup(ctx context.Context, t *domain.Tenant, creds ports.Credentials) (*ports.SessionResult, error) {
	account, err := s.vault.Create(ctx, t, creds)
	if err != nil {
		return nil, err
	}
	return s.issuer.Issue(ctx, account)
}
