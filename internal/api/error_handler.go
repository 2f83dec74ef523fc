package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/stackfold/hosting-system/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their appropriate HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	// Known domain errors → deterministic HTTP codes.
	switch {
	case errors.Is(err, domain.ErrTenantNotFound):
		return http.StatusNotFound, "tenant not found"
	case errors.Is(err, domain.ErrAccountNotFound):
		return http.StatusNotFound, "account not found"
	case errors.Is(err, domain.ErrGroupNotFound):
		return http.StatusNotFound, "group not found"
	case errors.Is(err, domain.ErrTemplateNotFound):
		return http.StatusNotFound, "template not found"
	case errors.Is(err, domain.ErrTenantExists):
		return http.StatusConflict, "tenant already exists"
	case errors.Is(err, domain.ErrAccountExists):
		return http.StatusConflict, "account already exists"
	case errors.Is(err, domain.ErrGroupExists):
		return http.StatusConflict, "group already exists"
	case errors.Is(err, domain.ErrDirectoryExists):
		return http.StatusConflict, "directory already exists"
	case errors.Is(err, domain.ErrStorageConflict):
		return http.StatusConflict, "storage already provisioned"
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidKey):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrSessionExpired):
		return http.StatusUnauthorized, "session invalid or expired"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "access forbidden"
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrNotProvisioned):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, domain.ErrTeardownIncomplete):
		return http.StatusAccepted, "teardown scheduled for completion"
	case errors.Is(err, domain.ErrProvider):
		log.Error().
			Err(err).
			Str("method", c.Request().Method).
			Str("path", c.Path()).
			Msg("storage provider failure")
		return http.StatusBadGateway, "upstream provider failure"
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}
