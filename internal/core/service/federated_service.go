package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/stackfold/hosting-system/internal/core/domain"
	"github.com/stackfold/hosting-system/internal/core/ports"
)

// federatedIdentity delegates the credential check to the tenant's external
// identity provider. The external identity is mapped onto a scoped account
// keyed by the provider's stable id, created on first sight, and a session
// is issued exactly as for local accounts. The rest of the system never
// learns which backend authenticated the caller.
type federatedIdentity struct {
	provider ports.IdentityProvider
	accounts ports.AccountRepository
	issuer   ports.SessionIssuer
	log      zerolog.Logger
}

// NewFederatedIdentity returns the delegated IdentityService implementation.
func NewFederatedIdentity(provider ports.IdentityProvider, accounts ports.AccountRepository, issuer ports.SessionIssuer, log zerolog.Logger) ports.IdentityService {
	return &federatedIdentity{provider: provider, accounts: accounts, issuer: issuer, log: log}
}

func (s *federatedIdentity) Login(ctx context.Context, t *domain.Tenant, creds ports.Credentials) (*ports.SessionResult, error) {
	return s.authenticate(ctx, t, creds)
}

// Signup against a federated tenant is the same flow as login: the provider
// owns the account store, we only mirror the identity locally.
func (s *federatedIdentity) Signup(ctx context.Context, t *domain.Tenant, creds ports.Credentials) (*ports.SessionResult, error) {
	return s.authenticate(ctx, t, creds)
}

func (s *federatedIdentity) authenticate(ctx context.Context, t *domain.Tenant, creds ports.Credentials) (*ports.SessionResult, error) {
	if t.Federated == nil {
		return nil, fmt.Errorf("%w: tenant %q has no federated descriptor", domain.ErrInvalidInput, t.Name)
	}

	identity, err := s.provider.Authenticate(ctx, *t.Federated, creds)
	if err != nil {
		return nil, err
	}

	account, err := s.accounts.FindByExternalID(ctx, t.Name, identity.ID)
	if errors.Is(err, domain.ErrAccountNotFound) {
		account, err = s.createMirror(ctx, t, identity)
	}
	if err != nil {
		return nil, err
	}

	return s.issuer.Issue(ctx, account)
}

// createMirror records a scoped account for a federated identity seen for
// the first time. No password hash is stored for federated accounts.
func (s *federatedIdentity) createMirror(ctx context.Context, t *domain.Tenant, identity *ports.ExternalIdentity) (*domain.ScopedAccount, error) {
	now := time.Now().UTC()
	account := &domain.ScopedAccount{
		TenantName: t.Name,
		Username:   identity.Username,
		Email:      identity.Email,
		ExternalID: identity.ID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	created, err := s.accounts.Insert(ctx, account)
	if errors.Is(err, domain.ErrAccountExists) {
		// Lost a race with a concurrent first login for the same identity.
		return s.accounts.FindByExternalID(ctx, t.Name, identity.ID)
	}
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("tenant", t.Name).Str("external_id", identity.ID).Msg("federated account mirrored")
	return created, nil
}
