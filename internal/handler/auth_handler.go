package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/ssiitsupport/SSI360V2/internal/apperr"
	"github.com/ssiitsupport/SSI360V2/internal/identity"
	"github.com/ssiitsupport/SSI360V2/internal/service"
	"github.com/ssiitsupport/SSI360V2/pkg/logger"
	"go.uber.org/zap"
)

// AuthHandler serves login, registration and the caller's own account
type AuthHandler struct {
	auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Login exchanges credentials for a token
func (h *AuthHandler) Login(c echo.Context) error {
	var req service.LoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	resp, err := h.auth.Login(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// Register creates a user in an existing tenant
func (h *AuthHandler) Register(c echo.Context) error {
	var req service.RegisterRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	profile, err := h.auth.Register(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, profile)
}

// Validate reports whether a token is valid
func (h *AuthHandler) Validate(c echo.Context) error {
	var req struct {
		Token string `json:"token"`
	}
	if err := bind(c, &req); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"valid": h.auth.ValidateToken(req.Token)})
}

// Me returns the caller's profile
func (h *AuthHandler) Me(c echo.Context) error {
	profile, err := h.auth.CurrentUser(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, profile)
}

// MyPermissions returns the caller's effective permission keys
func (h *AuthHandler) MyPermissions(c echo.Context) error {
	set, err := h.auth.CurrentPermissions(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"permissions": set.Keys(), "names": set.Names()})
}

// CheckPermission handles GET /api/me/permissions/check?resource=&action=
func (h *AuthHandler) CheckPermission(c echo.Context) error {
	resource, action := c.QueryParam("resource"), c.QueryParam("action")
	if resource == "" || action == "" {
		return apperr.Invalid("resource and action are required")
	}
	allowed, err := h.auth.HasPermission(c.Request().Context(), resource, action)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"allowed": allowed})
}

// ChangePassword replaces the caller's password
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	p, ok := identity.FromContext(c.Request().Context())
	if !ok {
		return apperr.ErrUnauthorized
	}
	var req service.ChangePasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.auth.ChangePassword(c.Request().Context(), p.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		logger.FromEcho(c).Warn("Password change rejected", zap.String("user_id", p.UserID.String()), zap.Error(err))
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
