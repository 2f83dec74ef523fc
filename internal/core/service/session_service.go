package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/stackfold/hosting-system/internal/core/domain"
	"github.com/stackfold/hosting-system/internal/core/ports"
)

const defaultSessionTTL = 24 * time.Hour

type sessionService struct {
	store ports.SessionStore
	ttl   time.Duration
	log   zerolog.Logger
}

// NewSessionService returns a SessionIssuer producing opaque random tokens
// with the given lifetime.
func NewSessionService(store ports.SessionStore, ttl time.Duration, log zerolog.Logger) ports.SessionIssuer {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &sessionService{store: store, ttl: ttl, log: log}
}

func (s *sessionService) Issue(ctx context.Context, a *domain.ScopedAccount) (*ports.SessionResult, error) {
	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}

	now := time.Now().UTC()
	session := &domain.Session{
		Token:      token,
		TenantName: a.TenantName,
		AccountID:  a.ID,
		IssuedAt:   now,
		ExpiresAt:  now.Add(s.ttl),
	}
	if err := s.store.Put(ctx, session, s.ttl); err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}

	s.log.Info().Str("tenant", a.TenantName).Str("account_id", a.ID).Time("expires_at", session.ExpiresAt).Msg("session issued")

	return &ports.SessionResult{
		Token:     token,
		ExpiresAt: session.ExpiresAt,
		Account:   a.Projection(),
	}, nil
}

func (s *sessionService) Validate(ctx context.Context, token string) (*domain.Session, error) {
	if token == "" {
		return nil, domain.ErrSessionNotFound
	}
	session, err := s.store.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	// The store's TTL normally evicts expired sessions; the explicit check
	// covers clock skew between issuance and the store.
	if session.Expired(time.Now().UTC()) {
		_, _ = s.store.Remove(ctx, token)
		return nil, domain.ErrSessionExpired
	}
	return session, nil
}

func (s *sessionService) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	removed, err := s.store.Remove(ctx, token)
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	if removed {
		s.log.Info().Msg("session revoked")
	}
	return nil
}

func (s *sessionService) RevokeAccount(ctx context.Context, tenant, accountID string) error {
	return s.store.RemoveByAccount(ctx, tenant, accountID)
}

// generateToken returns a 256-bit opaque hex token.
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
