package domain

import (
	"errors"
	"time"
)

var ErrAccountNotFound = errors.New("account not found")
var ErrAccountExists = errors.New("account already exists")
var ErrInvalidCredentials = errors.New("invalid credentials")
var ErrSessionNotFound = errors.New("session not found")
var ErrSessionExpired = errors.New("session expired")

// ScopedAccount is an end-user identity that exists only within one tenant's
// namespace. Username and email are each unique per tenant; at least one of
// the two is required. PasswordHash is empty for federated accounts.
type ScopedAccount struct {
	ID           string    `json:"id" bson:"_id,omitempty"`
	TenantName   string    `json:"tenant" bson:"tenant"`
	Username     string    `json:"username,omitempty" bson:"username,omitempty"`
	Email        string    `json:"email,omitempty" bson:"email,omitempty"`
	PasswordHash string    `json:"-" bson:"password_hash,omitempty"`
	ExternalID   string    `json:"-" bson:"external_id,omitempty"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`
}

// Projection returns the public view of the account, safe to hand to callers.
// It never carries the password hash.
func (a *ScopedAccount) Projection() AccountProjection {
	return AccountProjection{
		ID:         a.ID,
		TenantName: a.TenantName,
		Username:   a.Username,
		Email:      a.Email,
		CreatedAt:  a.CreatedAt,
	}
}

// AccountProjection is the minimal public view of a scoped account.
type AccountProjection struct {
	ID         string    `json:"id"`
	TenantName string    `json:"tenant"`
	Username   string    `json:"username,omitempty"`
	Email      string    `json:"email,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Session is an ephemeral proof of authentication bound to one scoped
// account in one tenant.
type Session struct {
	Token      string    `json:"token"`
	TenantName string    `json:"tenant"`
	AccountID  string    `json:"account_id"`
	IssuedAt   time.Time `json:"issued_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its expiry at the given instant.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
