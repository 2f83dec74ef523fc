package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/stackfold/hosting-system/internal/core/domain"
)

// ctxAccountID extracts the platform account identity injected by the Auth
// middleware and performs a fast-fail check before any service call: a
// non-empty id proves the middleware ran.
func ctxAccountID(c echo.Context) (string, error) {
	accountID, _ := c.Get("account_id").(string)
	if accountID == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return accountID, nil
}

// requireMember rejects callers that are neither the tenant's owner nor one
// of its collaborators.
func requireMember(t *domain.Tenant, accountID string) error {
	if t.OwnerID == accountID || t.IsCollaborator(accountID) {
		return nil
	}
	return domain.ErrForbidden
}

// requireOwner rejects everyone but the tenant's owner. Destructive
// operations (delete, deprovision, collaborator management) are owner-only.
func requireOwner(t *domain.Tenant, accountID string) error {
	if t.OwnerID == accountID {
		return nil
	}
	return domain.ErrForbidden
}
