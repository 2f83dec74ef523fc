// Package identity adapts external federated identity backends to the
// IdentityProvider port.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/stackfold/hosting-system/internal/core/domain"
	"github.com/stackfold/hosting-system/internal/core/ports"
)

const defaultTimeout = 10 * time.Second

// HTTPProvider authenticates end users against a tenant's configured
// identity provider over HTTPS. The provider URL and client id come from
// the tenant's federated descriptor, so a single HTTPProvider instance
// serves every federated tenant.
type HTTPProvider struct {
	client *http.Client
}

var _ ports.IdentityProvider = (*HTTPProvider)(nil)

// NewHTTPProvider creates an HTTPProvider. A nil client gets a default with
// a 10s timeout.
func NewHTTPProvider(client *http.Client) *HTTPProvider {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &HTTPProvider{client: client}
}

type authRequest struct {
	ClientID string `json:"client_id"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
}

type authResponse struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (p *HTTPProvider) Authenticate(ctx context.Context, cfg domain.FederatedDescriptor, creds ports.Credentials) (*ports.ExternalIdentity, error) {
	payload, err := json.Marshal(authRequest{
		ClientID: cfg.ClientID,
		Username: creds.Username,
		Email:    creds.Email,
		Password: creds.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("encode auth request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.ProviderURL+"/sessions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &domain.ProviderError{
			Op:        "authenticate",
			Provider:  cfg.ProviderURL,
			Retryable: true,
			Err:       err,
		}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden ||
		resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, domain.ErrInvalidCredentials
	case resp.StatusCode >= 500:
		return nil, &domain.ProviderError{
			Op:        "authenticate",
			Provider:  cfg.ProviderURL,
			Retryable: true,
			Err:       fmt.Errorf("provider returned %d", resp.StatusCode),
		}
	default:
		return nil, &domain.ProviderError{
			Op:       "authenticate",
			Provider: cfg.ProviderURL,
			Err:      fmt.Errorf("provider returned %d", resp.StatusCode),
		}
	}

	var body authResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &domain.ProviderError{
			Op:       "authenticate",
			Provider: cfg.ProviderURL,
			Err:      fmt.Errorf("decode response: %w", err),
		}
	}
	if body.UserID == "" {
		return nil, &domain.ProviderError{
			Op:       "authenticate",
			Provider: cfg.ProviderURL,
			Err:      fmt.Errorf("response missing user_id"),
		}
	}

	return &ports.ExternalIdentity{
		ID:       body.UserID,
		Username: body.Username,
		Email:    body.Email,
	}, nil
}
