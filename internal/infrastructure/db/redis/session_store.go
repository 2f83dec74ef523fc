package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stackfold/hosting-system/internal/core/domain"
)

// SessionStore keeps issued sessions in Redis for their lifetime and no
// longer. Key layout:
//
//	session:<token>                     → JSON session document, TTL = session lifetime
//	session:account:<tenant>:<account>  → set of live tokens for the account
type SessionStore struct {
	client *redis.Client
}

// NewSessionStore creates a SessionStore wrapping the given Redis client.
func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

func (s *SessionStore) Put(ctx context.Context, session *domain.Session, ttl time.Duration) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("session put: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, tokenKey(session.Token), payload, ttl)
	acctKey := accountKey(session.TenantName, session.AccountID)
	pipe.SAdd(ctx, acctKey, session.Token)
	pipe.Expire(ctx, acctKey, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("session put: %w", err)
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, token string) (*domain.Session, error) {
	payload, err := s.client.Get(ctx, tokenKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session get: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("session decode: %w", err)
	}
	return &session, nil
}

// Remove invalidates the token with a single atomic GETDEL, so concurrent
// revokes of the same token observe exactly one removal.
func (s *SessionStore) Remove(ctx context.Context, token string) (bool, error) {
	payload, err := s.client.GetDel(ctx, tokenKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("session remove: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal(payload, &session); err == nil {
		_ = s.client.SRem(ctx, accountKey(session.TenantName, session.AccountID), token).Err()
	}
	return true, nil
}

// RemoveByAccount invalidates every live session of the account.
func (s *SessionStore) RemoveByAccount(ctx context.Context, tenant, accountID string) error {
	acctKey := accountKey(tenant, accountID)
	tokens, err := s.client.SMembers(ctx, acctKey).Result()
	if err != nil {
		return fmt.Errorf("session remove by account: %w", err)
	}

	keys := make([]string, 0, len(tokens)+1)
	for _, token := range tokens {
		keys = append(keys, tokenKey(token))
	}
	keys = append(keys, acctKey)

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("session remove by account: %w", err)
	}
	return nil
}

func tokenKey(token string) string {
	return "session:" + token
}

func accountKey(tenant, accountID string) string {
	return fmt.Sprintf("session:account:%s:%s", tenant, accountID)
}
