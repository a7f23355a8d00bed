package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/ssiitsupport/SSI360V2/internal/service"
)

// TenantHandler serves /api/tenants
type TenantHandler struct {
	tenants *service.TenantService
}

func NewTenantHandler(tenants *service.TenantService) *TenantHandler {
	return &TenantHandler{tenants: tenants}
}

func (h *TenantHandler) List(c echo.Context) error {
	q, err := listQuery(c)
	if err != nil {
		return err
	}
	result, err := h.tenants.List(c.Request().Context(), q)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (h *TenantHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	tenant, err := h.tenants.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tenant)
}

// GetByDomain looks a tenant up by domain
func (h *TenantHandler) GetByDomain(c echo.Context) error {
	tenant, err := h.tenants.GetByDomain(c.Request().Context(), c.Param("domain"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tenant)
}

func (h *TenantHandler) Create(c echo.Context) error {
	var req service.CreateTenantRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	tenant, err := h.tenants.Create(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, tenant)
}

func (h *TenantHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req service.UpdateTenantRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	tenant, err := h.tenants.Update(c.Request().Context(), id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tenant)
}

func (h *TenantHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.tenants.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Current handles GET /api/me/tenant
func (h *TenantHandler) Current(c echo.Context) error {
	tenant, err := h.tenants.Current(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tenant)
}
