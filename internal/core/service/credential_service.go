package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/stackfold/hosting-system/internal/core/domain"
	"github.com/stackfold/hosting-system/internal/core/ports"
)

const minPasswordLength = 6

// credentialService implements the tenant-scoped credential vault. It never
// touches the platform account store.
type credentialService struct {
	accounts ports.AccountRepository
	sessions ports.SessionIssuer
	log      zerolog.Logger
}

// NewCredentialService returns the local CredentialVault implementation.
func NewCredentialService(accounts ports.AccountRepository, sessions ports.SessionIssuer, log zerolog.Logger) ports.CredentialVault {
	return &credentialService{accounts: accounts, sessions: sessions, log: log}
}

func (s *credentialService) Create(ctx context.Context, t *domain.Tenant, creds ports.Credentials) (*domain.ScopedAccount, error) {
	if creds.Username == "" && creds.Email == "" {
		return nil, fmt.Errorf("%w: username or email required", domain.ErrInvalidInput)
	}
	if len(creds.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password too short", domain.ErrInvalidInput)
	}

	// Uniqueness is enforced per tenant and per field independently.
	if creds.Username != "" {
		if _, err := s.accounts.FindByUsername(ctx, t.Name, creds.Username); err == nil {
			return nil, domain.ErrAccountExists
		}
	}
	if creds.Email != "" {
		if _, err := s.accounts.FindByEmail(ctx, t.Name, creds.Email); err == nil {
			return nil, domain.ErrAccountExists
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	account := &domain.ScopedAccount{
		TenantName:   t.Name,
		Username:     creds.Username,
		Email:        creds.Email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := s.accounts.Insert(ctx, account)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("tenant", t.Name).Str("username", created.Username).Msg("scoped account created")
	return created, nil
}

// Verify authenticates identifier+password against the tenant's namespace.
// Unknown identifier and wrong password both return ErrInvalidCredentials;
// the distinction is only logged, never surfaced, to prevent account
// enumeration.
func (s *credentialService) Verify(ctx context.Context, t *domain.Tenant, identifier, password string) (*domain.ScopedAccount, error) {
	if identifier == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	account, err := s.lookup(ctx, t.Name, identifier)
	if err != nil {
		s.log.Debug().Str("tenant", t.Name).Msg("login lookup miss")
		return nil, domain.ErrInvalidCredentials
	}
	if account.PasswordHash == "" {
		// Federated account; local password login is not available for it.
		return nil, domain.ErrInvalidCredentials
	}

	// bcrypt comparison is constant-time over the hash.
	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		s.log.Debug().Str("tenant", t.Name).Msg("login password mismatch")
		return nil, domain.ErrInvalidCredentials
	}
	return account, nil
}

func (s *credentialService) Remove(ctx context.Context, t *domain.Tenant, identifier string) error {
	account, err := s.lookup(ctx, t.Name, identifier)
	if err != nil {
		return err
	}
	if err := s.accounts.Delete(ctx, t.Name, account.ID); err != nil {
		return err
	}
	if err := s.sessions.RevokeAccount(ctx, t.Name, account.ID); err != nil {
		s.log.Warn().Err(err).Str("tenant", t.Name).Str("account_id", account.ID).Msg("session revocation after account removal failed")
	}
	s.log.Info().Str("tenant", t.Name).Str("account_id", account.ID).Msg("scoped account removed")
	return nil
}

// lookup resolves an identifier to an account. Identifiers containing "@"
// are treated as emails; otherwise the username field takes precedence.
func (s *credentialService) lookup(ctx context.Context, tenant, identifier string) (*domain.ScopedAccount, error) {
	if strings.Contains(identifier, "@") {
		return s.accounts.FindByEmail(ctx, tenant, identifier)
	}
	return s.accounts.FindByUsername(ctx, tenant, identifier)
}
