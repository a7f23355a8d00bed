package handler

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/ssiitsupport/SSI360V2/internal/middleware"
	"github.com/ssiitsupport/SSI360V2/pkg/logger"
	"github.com/ssiitsupport/SSI360V2/prometheus"
	"go.uber.org/zap"
)

// Handlers groups every HTTP handler of the service
type Handlers struct {
	Health      *HealthHandler
	Auth        *AuthHandler
	Tenants     *TenantHandler
	Users       *UserHandler
	Roles       *RoleHandler
	Permissions *PermissionHandler
}

// NewEcho creates the echo instance with the global middleware chain
func NewEcho(log *zap.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = ErrorHandler

	// order matters: metrics must observe the status the logger middleware commits
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(prometheus.MetricsMiddleware())
	e.Use(logger.Middleware(log))
	return e
}

// RegisterRoutes mounts the public, authenticated and permission-guarded routes
func RegisterRoutes(e *echo.Echo, h *Handlers, metricsPath string, tokens middleware.TokenParser, authz middleware.Authorizer) {
	e.GET("/health", h.Health.HealthCheck)
	e.GET(metricsPath, MetricsHandler)

	auth := e.Group("/auth")
	auth.POST("/login", h.Auth.Login)
	auth.POST("/register", h.Auth.Register)
	auth.POST("/validate", h.Auth.Validate)

	api := e.Group("/api")
	api.Use(middleware.AuthMiddleware(tokens))

	me := api.Group("/me")
	me.GET("", h.Auth.Me)
	me.GET("/permissions", h.Auth.MyPermissions)
	me.GET("/permissions/check", h.Auth.CheckPermission)
	me.GET("/tenant", h.Tenants.Current)
	me.POST("/change-password", h.Auth.ChangePassword)

	guard := func(resource, action string) echo.MiddlewareFunc {
		return middleware.RequirePermission(authz, resource, action)
	}

	tenants := api.Group("/tenants")
	tenants.GET("", h.Tenants.List, guard("Tenants", "Read"))
	tenants.GET("/by-domain/:domain", h.Tenants.GetByDomain, guard("Tenants", "Read"))
	tenants.GET("/:id", h.Tenants.Get, guard("Tenants", "Read"))
	tenants.POST("", h.Tenants.Create, guard("Tenants", "Create"))
	tenants.PUT("/:id", h.Tenants.Update, guard("Tenants", "Update"))
	tenants.DELETE("/:id", h.Tenants.Delete, guard("Tenants", "Delete"))

	users := api.Group("/users")
	users.GET("", h.Users.List, guard("Users", "Read"))
	users.GET("/:id", h.Users.Get, guard("Users", "Read"))
	users.GET("/:id/permissions", h.Users.Permissions, guard("Users", "Read"))
	users.GET("/:id/roles", h.Users.Roles, guard("Users", "Read"))
	users.POST("", h.Users.Create, guard("Users", "Create"))
	users.PUT("/:id", h.Users.Update, guard("Users", "Update"))
	users.DELETE("/:id", h.Users.Delete, guard("Users", "Delete"))
	users.PUT("/:id/roles/:roleId", h.Users.AssignRole, guard("Users", "Update"))
	users.DELETE("/:id/roles/:roleId", h.Users.RevokeRole, guard("Users", "Update"))

	roles := api.Group("/roles")
	roles.GET("", h.Roles.List, guard("Roles", "Read"))
	roles.GET("/:id", h.Roles.Get, guard("Roles", "Read"))
	roles.GET("/:id/permissions", h.Roles.Permissions, guard("Roles", "Read"))
	roles.GET("/:id/users", h.Roles.Users, guard("Users", "Read"))
	roles.POST("", h.Roles.Create, guard("Roles", "Create"))
	roles.PUT("/:id", h.Roles.Update, guard("Roles", "Update"))
	roles.DELETE("/:id", h.Roles.Delete, guard("Roles", "Delete"))
	roles.PUT("/:id/permissions/:permissionId", h.Roles.GrantPermission, guard("Roles", "Update"))
	roles.DELETE("/:id/permissions/:permissionId", h.Roles.RevokePermission, guard("Roles", "Update"))
	roles.PUT("/:id/users/:userId", h.Roles.AssignUser, guard("Users", "Update"))
	roles.DELETE("/:id/users/:userId", h.Roles.RevokeUser, guard("Users", "Update"))

	perms := api.Group("/permissions")
	perms.GET("", h.Permissions.List, guard("Permissions", "Read"))
	perms.GET("/:id", h.Permissions.Get, guard("Permissions", "Read"))
	perms.POST("", h.Permissions.Create, guard("Permissions", "Create"))
	perms.PUT("/:id", h.Permissions.Update, guard("Permissions", "Update"))
	perms.DELETE("/:id", h.Permissions.Delete, guard("Permissions", "Delete"))
}
