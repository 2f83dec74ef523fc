package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/stackfold/hosting-system/internal/core/domain"
	"github.com/stackfold/hosting-system/internal/core/ports"
)

// GroupHandler handles HTTP requests for the tenant authorization graph:
// groups, directories, collaborators, and permission checks.
type GroupHandler struct {
	tenants ports.TenantService
	access  ports.AccessService
}

func NewGroupHandler(tenants ports.TenantService, access ports.AccessService) *GroupHandler {
	return &GroupHandler{tenants: tenants, access: access}
}

// tenantFor loads the tenant and checks the caller's membership in one step;
// every route in this handler needs both.
func (h *GroupHandler) tenantFor(c echo.Context) (*domain.Tenant, error) {
	accountID, err := ctxAccountID(c)
	if err != nil {
		return nil, err
	}
	tenant, err := h.tenants.Get(c.Request().Context(), c.Param("name"))
	if err != nil {
		return nil, err
	}
	if err := requireMember(tenant, accountID); err != nil {
		return nil, err
	}
	return tenant, nil
}

// CreateGroup handles POST /v1/tenants/:name/groups.
//
// @Summary      Create a group
// @Tags         access
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        name  path      string              true  "Tenant name"
// @Param        body  body      createGroupRequest  true  "Group definition"
// @Success      201   {object}  groupResponse
// @Failure      409   {object}  errorResponse
// @Router       /v1/tenants/{name}/groups [post]
func (h *GroupHandler) CreateGroup(c echo.Context) error {
	var req createGroupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	tenant, err := h.tenantFor(c)
	if err != nil {
		return err
	}

	group, err := h.access.AddGroup(c.Request().Context(), tenant, ports.GroupSpec{
		Name:       req.Name,
		AccountIDs: req.AccountIDs,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toGroupResponse(group))
}

// GetGroup handles GET /v1/tenants/:name/groups/:group.
//
// @Summary      Get a group
// @Tags         access
// @Produce      json
// @Security     BearerAuth
// @Param        name   path      string  true  "Tenant name"
// @Param        group  path      string  true  "Group name"
// @Success      200    {object}  groupResponse
// @Failure      404    {object}  errorResponse
// @Router       /v1/tenants/{name}/groups/{group} [get]
func (h *GroupHandler) GetGroup(c echo.Context) error {
	tenant, err := h.tenantFor(c)
	if err != nil {
		return err
	}

	group, err := h.access.GetGroup(c.Request().Context(), tenant, c.Param("group"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toGroupResponse(group))
}

// ListGroups handles GET /v1/tenants/:name/groups.
//
// @Summary      List a tenant's groups
// @Tags         access
// @Produce      json
// @Security     BearerAuth
// @Param        name  path      string  true  "Tenant name"
// @Success      200   {object}  listGroupsResponse
// @Router       /v1/tenants/{name}/groups [get]
func (h *GroupHandler) ListGroups(c echo.Context) error {
	tenant, err := h.tenantFor(c)
	if err != nil {
		return err
	}

	groups, err := h.access.ListGroups(c.Request().Context(), tenant)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toListGroupsResponse(groups))
}

// UpdateGroup handles PUT /v1/tenants/:name/groups/:group. A body with no
// recognized fields deletes the group and returns 204.
//
// @Summary      Update a group (empty body deletes it)
// @Tags         access
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        name   path      string              true  "Tenant name"
// @Param        group  path      string              true  "Group name"
// @Param        body   body      updateGroupRequest  true  "Partial update"
// @Success      200    {object}  groupResponse
// @Success      204
// @Failure      404    {object}  errorResponse
// @Router       /v1/tenants/{name}/groups/{group} [put]
func (h *GroupHandler) UpdateGroup(c echo.Context) error {
	var req updateGroupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	tenant, err := h.tenantFor(c)
	if err != nil {
		return err
	}

	group, err := h.access.UpdateGroup(c.Request().Context(), tenant, c.Param("group"), ports.GroupPatch{
		AccountIDs: req.AccountIDs,
	})
	if err != nil {
		return err
	}
	if group == nil {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, toGroupResponse(group))
}

// DeleteGroup handles DELETE /v1/tenants/:name/groups/:group.
//
// @Summary      Delete a group
// @Tags         access
// @Security     BearerAuth
// @Param        name   path  string  true  "Tenant name"
// @Param        group  path  string  true  "Group name"
// @Success      204
// @Failure      404    {object}  errorResponse
// @Router       /v1/tenants/{name}/groups/{group} [delete]
func (h *GroupHandler) DeleteGroup(c echo.Context) error {
	tenant, err := h.tenantFor(c)
	if err != nil {
		return err
	}

	if err := h.access.DeleteGroup(c.Request().Context(), tenant, c.Param("group")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// AddDirectory handles POST /v1/tenants/:name/directories.
//
// @Summary      Declare a path-scoped authorization boundary
// @Tags         access
// @Accept       json
// @Security     BearerAuth
// @Param        name  path  string               true  "Tenant name"
// @Param        body  body  addDirectoryRequest  true  "Directory definition"
// @Success      201
// @Failure      409   {object}  errorResponse
// @Router       /v1/tenants/{name}/directories [post]
func (h *GroupHandler) AddDirectory(c echo.Context) error {
	var req addDirectoryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	tenant, err := h.tenantFor(c)
	if err != nil {
		return err
	}

	if err := h.access.AddDirectory(c.Request().Context(), tenant, ports.DirectorySpec{
		Path:       req.Path,
		GroupNames: req.GroupNames,
		AccountIDs: req.AccountIDs,
	}); err != nil {
		return err
	}
	return c.NoContent(http.StatusCreated)
}

// AddCollaborators handles POST /v1/tenants/:name/collaborators. Owner-only.
//
// @Summary      Add collaborators to a tenant
// @Tags         access
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        name  path      string                   true  "Tenant name"
// @Param        body  body      addCollaboratorsRequest  true  "Account ids to add"
// @Success      200   {object}  tenantResponse
// @Failure      403   {object}  errorResponse
// @Router       /v1/tenants/{name}/collaborators [post]
func (h *GroupHandler) AddCollaborators(c echo.Context) error {
	accountID, err := ctxAccountID(c)
	if err != nil {
		return err
	}

	var req addCollaboratorsRequest
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

	tenant, err = h.access.AddCollaborators(c.Request().Context(), tenant, req.AccountIDs)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toTenantResponse(tenant))
}

// CheckPermission handles GET /v1/tenants/:name/permissions.
//
// @Summary      Resolve whether an account may access an object key
// @Tags         access
// @Produce      json
// @Security     BearerAuth
// @Param        name        path      string  true  "Tenant name"
// @Param        account_id  query     string  true  "Scoped account id"
// @Param        key         query     string  true  "Object key"
// @Success      200         {object}  permissionResponse
// @Router       /v1/tenants/{name}/permissions [get]
func (h *GroupHandler) CheckPermission(c echo.Context) error {
	tenant, err := h.tenantFor(c)
	if err != nil {
		return err
	}

	subject := c.QueryParam("account_id")
	key := c.QueryParam("key")
	if subject == "" || key == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "account_id and key are required")
	}

	allowed, err := h.access.ResolvePermission(c.Request().Context(), tenant, subject, key)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, permissionResponse{
		AccountID: subject,
		Key:       key,
		Allowed:   allowed,
	})
}
