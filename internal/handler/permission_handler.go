package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/ssiitsupport/SSI360V2/internal/service"
)

// PermissionHandler serves /api/permissions
type PermissionHandler struct {
	permissions *service.PermissionService
}

func NewPermissionHandler(permissions *service.PermissionService) *PermissionHandler {
	return &PermissionHandler{permissions: permissions}
}

func (h *PermissionHandler) List(c echo.Context) error {
	q, err := listQuery(c)
	if err != nil {
		return err
	}
	result, err := h.permissions.List(c.Request().Context(), q)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (h *PermissionHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	perm, err := h.permissions.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, perm)
}

func (h *PermissionHandler) Create(c echo.Context) error {
	var req service.CreatePermissionRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	perm, err := h.permissions.Create(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, perm)
}

func (h *PermissionHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req service.UpdatePermissionRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	perm, err := h.permissions.Update(c.Request().Context(), id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, perm)
}

func (h *PermissionHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.permissions.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
