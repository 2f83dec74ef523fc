package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/stackfold/hosting-system/internal/api/metrics"
	"github.com/stackfold/hosting-system/internal/core/ports"
)

// TenantHandler handles HTTP requests for tenant lifecycle and publishing
// operations.
type TenantHandler struct {
	tenants ports.TenantService
}

func NewTenantHandler(tenants ports.TenantService) *TenantHandler {
	return &TenantHandler{tenants: tenants}
}

// Create handles POST /v1/tenants.
//
// @Summary      Register a new tenant
// @Tags         tenants
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createTenantRequest  true  "Tenant details"
// @Success      201   {object}  tenantResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /v1/tenants [post]
func (h *TenantHandler) Create(c echo.Context) error {
	accountID, err := ctxAccountID(c)
	if err != nil {
		return err
	}

	var req createTenantRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	tenant, err := h.tenants.Create(c.Request().Context(), ports.CreateTenantInput{
		Name:     req.NameSite,
		OwnerID:  accountID,
		Template: req.Template,
	})
	if err != nil {
		if req.Template != "" {
			metrics.ProvisionOpsTotal.WithLabelValues("provision", "error").Inc()
		}
		return err
	}
	if req.Template != "" {
		metrics.ProvisionOpsTotal.WithLabelValues("provision", "ok").Inc()
	}

	return c.JSON(http.StatusCreated, toTenantResponse(tenant))
}

// Get handles GET /v1/tenants/:name.
//
// @Summary      Get a tenant by name
// @Tags         tenants
// @Produce      json
// @Security     BearerAuth
// @Param        name  path      string  true  "Tenant name"
// @Success      200   {object}  tenantResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /v1/tenants/{name} [get]
func (h *TenantHandler) Get(c echo.Context) error {
	accountID, err := ctxAccountID(c)
	if err != nil {
		return err
	}

	tenant, err := h.tenants.Get(c.Request().Context(), c.Param("name"))
	if err != nil {
		return err
	}
	if err := requireMember(tenant, accountID); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toTenantResponse(tenant))
}

// Update handles PATCH /v1/tenants/:name. Owner-only; currently the only
// patchable setting is the federated identity descriptor.
//
// @Summary      Update tenant settings
// @Tags         tenants
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        name  path      string               true  "Tenant name"
// @Param        body  body      updateTenantRequest  true  "Settings to apply"
// @Success      200   {object}  tenantResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /v1/tenants/{name} [patch]
func (h *TenantHandler) Update(c echo.Context) error {
	accountID, err := ctxAccountID(c)
	if err != nil {
		return err
	}

	var req updateTenantRequest
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
	if err := requireOwner(tenant, accountID); err != nil {
		return err
	}

	in := ports.UpdateTenantInput{}
	if req.Federated != nil {
		in.Federated = &ports.FederatedInput{
			ProviderURL: req.Federated.ProviderURL,
			ClientID:    req.Federated.ClientID,
			Enabled:     req.Federated.Enabled,
		}
	}
	updated, err := h.tenants.Update(c.Request().Context(), tenant.Name, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toTenantResponse(updated))
}

// List handles GET /v1/tenants: every tenant the caller owns or
// collaborates on.
//
// @Summary      List the caller's tenants
// @Tags         tenants
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  listTenantsResponse
// @Router       /v1/tenants [get]
func (h *TenantHandler) List(c echo.Context) error {
	accountID, err := ctxAccountID(c)
	if err != nil {
		return err
	}

	tenants, err := h.tenants.List(c.Request().Context(), accountID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toListTenantsResponse(tenants))
}

// Delete handles DELETE /v1/tenants/:name. Owner-only; cascades storage,
// scoped accounts, sessions, and groups.
//
// @Summary      Delete a tenant
// @Tags         tenants
// @Security     BearerAuth
// @Param        name  path  string  true  "Tenant name"
// @Success      204
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /v1/tenants/{name} [delete]
func (h *TenantHandler) Delete(c echo.Context) error {
	accountID, err := ctxAccountID(c)
	if err != nil {
		return err
	}

	tenant, err := h.tenants.Get(c.Request().Context(), c.Param("name"))
	if err != nil {
		return err
	}
	if err := requireOwner(tenant, accountID); err != nil {
		return err
	}

	start := time.Now()
	if err := h.tenants.Delete(c.Request().Context(), tenant.Name); err != nil {
		metrics.ProvisionOpsTotal.WithLabelValues("delete", "error").Inc()
		return err
	}
	metrics.ProvisionOpsTotal.WithLabelValues("delete", "ok").Inc()
	metrics.ProvisionOpDuration.WithLabelValues("delete").Observe(time.Since(start).Seconds())
	return c.NoContent(http.StatusNoContent)
}

// ProvisionStorage handles POST /v1/tenants/:name/storage.
//
// @Summary      Provision the tenant's hosting storage
// @Tags         storage
// @Produce      json
// @Security     BearerAuth
// @Param        name  path      string  true  "Tenant name"
// @Success      201   {object}  tenantResponse
// @Failure      403   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      502   {object}  errorResponse
// @Router       /v1/tenants/{name}/storage [post]
func (h *TenantHandler) ProvisionStorage(c echo.Context) error {
	accountID, err := ctxAccountID(c)
	if err != nil {
		return err
	}

	tenant, err := h.tenants.Get(c.Request().Context(), c.Param("name"))
	if err != nil {
		return err
	}
	if err := requireMember(tenant, accountID); err != nil {
		return err
	}

	start := time.Now()
	tenant, err = h.tenants.ProvisionStorage(c.Request().Context(), tenant.Name)
	if err != nil {
		metrics.ProvisionOpsTotal.WithLabelValues("provision", "error").Inc()
		return err
	}
	metrics.ProvisionOpsTotal.WithLabelValues("provision", "ok").Inc()
	metrics.ProvisionOpDuration.WithLabelValues("provision").Observe(time.Since(start).Seconds())
	return c.JSON(http.StatusCreated, toTenantResponse(tenant))
}

// DeprovisionStorage handles DELETE /v1/tenants/:name/storage. An
// incomplete teardown is queued for background completion and reported as
// 202.
//
// @Summary      Tear down the tenant's hosting storage
// @Tags         storage
// @Security     BearerAuth
// @Param        name  path  string  true  "Tenant name"
// @Success      204
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /v1/tenants/{name}/storage [delete]
func (h *TenantHandler) DeprovisionStorage(c echo.Context) error {
	accountID, err := ctxAccountID(c)
	if err != nil {
		return err
	}

	tenant, err := h.tenants.Get(c.Request().Context(), c.Param("name"))
	if err != nil {
		return err
	}
	if err := requireOwner(tenant, accountID); err != nil {
		return err
	}

	start := time.Now()
	if err := h.tenants.DeprovisionStorage(c.Request().Context(), tenant.Name); err != nil {
		metrics.ProvisionOpsTotal.WithLabelValues("deprovision", "error").Inc()
		return err
	}
	metrics.ProvisionOpsTotal.WithLabelValues("deprovision", "ok").Inc()
	metrics.ProvisionOpDuration.WithLabelValues("deprovision").Observe(time.Since(start).Seconds())
	return c.NoContent(http.StatusNoContent)
}

// ApplyTemplate handles POST /v1/tenants/:name/template.
//
// @Summary      Apply a site template to the tenant's storage
// @Tags         storage
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        name  path      string                true  "Tenant name"
// @Param        body  body      applyTemplateRequest  true  "Template selection"
// @Success      200   {object}  applyTemplateResponse
// @Failure      404   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/tenants/{name}/template [post]
func (h *TenantHandler) ApplyTemplate(c echo.Context) error {
	accountID, err := ctxAccountID(c)
	if err != nil {
		return err
	}

	var req applyTemplateRequest
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
	if err := requireMember(tenant, accountID); err != nil {
		return err
	}

	result, err := h.tenants.ApplyTemplate(c.Request().Context(), tenant.Name, ports.ApplyTemplateInput{
		TemplateName: req.Template,
		ReplaceAll:   req.ReplaceAll,
	})
	if err != nil {
		return err
	}
	metrics.TemplateFilesWrittenTotal.WithLabelValues(result.TemplateName).Add(float64(result.FilesWritten))

	return c.JSON(http.StatusOK, applyTemplateResponse{
		Template:     result.TemplateName,
		FilesWritten: result.FilesWritten,
		SiteURL:      result.SiteURL,
	})
}

// PublishFile handles PUT /v1/tenants/:name/files.
//
// @Summary      Publish a single file into the tenant's site
// @Tags         storage
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        name  path      string              true  "Tenant name"
// @Param        body  body      publishFileRequest  true  "File to publish"
// @Success      200   {object}  objectInfoResponse
// @Failure      400   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/tenants/{name}/files [put]
func (h *TenantHandler) PublishFile(c echo.Context) error {
	accountID, err := ctxAccountID(c)
	if err != nil {
		return err
	}

	var req publishFileRequest
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
	if err := requireMember(tenant, accountID); err != nil {
		return err
	}

	info, err := h.tenants.PublishFile(c.Request().Context(), tenant.Name, ports.PublishFileInput{
		Key:         req.Key,
		Content:     []byte(req.Content),
		ContentType: req.ContentType,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toObjectInfoResponse(*info))
}

// GetStructure handles GET /v1/tenants/:name/files.
//
// @Summary      List the tenant's published site objects
// @Tags         storage
// @Produce      json
// @Security     BearerAuth
// @Param        name  path      string  true  "Tenant name"
// @Success      200   {object}  listFilesResponse
// @Failure      404   {object}  errorResponse
// @Router       /v1/tenants/{name}/files [get]
func (h *TenantHandler) GetStructure(c echo.Context) error {
	accountID, err := ctxAccountID(c)
	if err != nil {
		return err
	}

	tenant, err := h.tenants.Get(c.Request().Context(), c.Param("name"))
	if err != nil {
		return err
	}
	if err := requireMember(tenant, accountID); err != nil {
		return err
	}

	objects, err := h.tenants.GetStructure(c.Request().Context(), tenant.Name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toListFilesResponse(objects))
}
