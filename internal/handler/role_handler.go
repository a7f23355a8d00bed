package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/ssiitsupport/SSI360V2/internal/service"
)

// RoleHandler serves /api/roles
type RoleHandler struct {
	roles       *service.RoleService
	permissions *service.PermissionService
}

func NewRoleHandler(roles *service.RoleService, permissions *service.PermissionService) *RoleHandler {
	return &RoleHandler{roles: roles, permissions: permissions}
}

func (h *RoleHandler) List(c echo.Context) error {
	q, err := listQuery(c)
	if err != nil {
		return err
	}
	result, err := h.roles.List(c.Request().Context(), q)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (h *RoleHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	role, err := h.roles.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, role)
}

func (h *RoleHandler) Create(c echo.Context) error {
	var req service.CreateRoleRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	role, err := h.roles.Create(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, role)
}

func (h *RoleHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req service.UpdateRoleRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	role, err := h.roles.Update(c.Request().Context(), id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, role)
}

func (h *RoleHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.roles.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Permissions lists the permissions granted to the role
func (h *RoleHandler) Permissions(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	perms, err := h.permissions.ListByRole(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, perms)
}

// GrantPermission handles PUT /api/roles/:id/permissions/:permissionId
func (h *RoleHandler) GrantPermission(c echo.Context) error {
	roleID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	permID, err := pathID(c, "permissionId")
	if err != nil {
		return err
	}
	if err := h.roles.GrantPermission(c.Request().Context(), roleID, permID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// RevokePermission handles DELETE /api/roles/:id/permissions/:permissionId
func (h *RoleHandler) RevokePermission(c echo.Context) error {
	roleID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	permID, err := pathID(c, "permissionId")
	if err != nil {
		return err
	}
	if err := h.roles.RevokePermission(c.Request().Context(), roleID, permID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Users handles GET /api/roles/:id/users
func (h *RoleHandler) Users(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	users, err := h.roles.Users(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, users)
}

// AssignUser handles PUT /api/roles/:id/users/:userId
func (h *RoleHandler) AssignUser(c echo.Context) error {
	roleID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	userID, err := pathID(c, "userId")
	if err != nil {
		return err
	}
	if err := h.roles.AssignToUser(c.Request().Context(), roleID, userID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// RevokeUser handles DELETE /api/roles/:id/users/:userId
func (h *RoleHandler) RevokeUser(c echo.Context) error {
	roleID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	userID, err := pathID(c, "userId")
	if err != nil {
		return err
	}
	if err := h.roles.RevokeFromUser(c.Request().Context(), roleID, userID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
