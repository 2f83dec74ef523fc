package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/stackfold/hosting-system/internal/api/metrics"
	"github.com/stackfold/hosting-system/internal/core/ports"
)

// SessionHandler handles end-user authentication inside a tenant's
// namespace. These routes carry no platform credentials; callers are the
// tenant's own site visitors.
type SessionHandler struct {
	tenants ports.TenantService
}

func NewSessionHandler(tenants ports.TenantService) *SessionHandler {
	return &SessionHandler{tenants: tenants}
}

// bearerToken extracts the opaque session token from the Authorization
// header.
func bearerToken(c echo.Context) (string, error) {
	header := c.Request().Header.Get("Authorization")
	if header == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
	}
	return parts[1], nil
}

// Signup handles POST /v1/tenants/:name/auth/signup.
//
// @Summary      Create a scoped account and start a session
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Param        name  path      string              true  "Tenant name"
// @Param        body  body      credentialsRequest  true  "Credentials"
// @Success      201   {object}  sessionResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/tenants/{name}/auth/signup [post]
func (h *SessionHandler) Signup(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	result, err := h.tenants.Signup(c.Request().Context(), c.Param("name"), ports.Credentials{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	metrics.SessionsIssuedTotal.Inc()

	return c.JSON(http.StatusCreated, toSessionResponse(result))
}

// Login handles POST /v1/tenants/:name/auth/login.
//
// @Summary      Authenticate a scoped account and start a session
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Param        name  path      string              true  "Tenant name"
// @Param        body  body      credentialsRequest  true  "Credentials"
// @Success      200   {object}  sessionResponse
// @Failure      401   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /v1/tenants/{name}/auth/login [post]
func (h *SessionHandler) Login(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	tenant, err := h.tenants.Get(c.Request().Context(), c.Param("name"))
	if err != nil {
		return err
	}
	backend := "local"
	if tenant.FederatedEnabled() {
		backend = "federated"
	}

	result, err := h.tenants.Login(c.Request().Context(), tenant.Name, ports.Credentials{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		metrics.LoginsTotal.WithLabelValues(backend, "error").Inc()
		return err
	}
	metrics.LoginsTotal.WithLabelValues(backend, "ok").Inc()
	metrics.SessionsIssuedTotal.Inc()

	return c.JSON(http.StatusOK, toSessionResponse(result))
}

// Logout handles POST /v1/tenants/:name/auth/logout. Revoking an unknown
// token still returns 200.
//
// @Summary      End the caller's session
// @Tags         sessions
// @Produce      json
// @Param        name  path      string  true  "Tenant name"
// @Success      200   {object}  acceptedResponse
// @Failure      401   {object}  errorResponse
// @Router       /v1/tenants/{name}/auth/logout [post]
func (h *SessionHandler) Logout(c echo.Context) error {
	token, err := bearerToken(c)
	if err != nil {
		return err
	}
	if err := h.tenants.Logout(c.Request().Context(), token); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, acceptedResponse{Message: "logged out"})
}

// Verify handles GET /v1/tenants/:name/auth/verify.
//
// @Summary      Validate a session token and return its account
// @Tags         sessions
// @Produce      json
// @Param        name  path      string  true  "Tenant name"
// @Success      200   {object}  accountResponse
// @Failure      401   {object}  errorResponse
// @Router       /v1/tenants/{name}/auth/verify [get]
func (h *SessionHandler) Verify(c echo.Context) error {
	token, err := bearerToken(c)
	if err != nil {
		return err
	}

	account, err := h.tenants.Verify(c.Request().Context(), token)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, accountResponse{
		ID:       account.ID,
		Username: account.Username,
		Email:    account.Email,
	})
}
