package middleware

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/ssiitsupport/SSI360V2/internal/apperr"
	"github.com/ssiitsupport/SSI360V2/internal/identity"
	"github.com/ssiitsupport/SSI360V2/pkg/jwtutil"
	"github.com/ssiitsupport/SSI360V2/pkg/logger"
	"github.com/ssiitsupport/SSI360V2/prometheus"
	"go.uber.org/zap"
)

// TokenParser verifies a bearer token
type TokenParser interface {
	ParseToken(token string) (*jwtutil.UserClaims, error)
}

// Authorizer decides whether a user may perform action on resource
type Authorizer interface {
	Authorize(ctx context.Context, userID uuid.UUID, resource, action string) error
}

// AuthMiddleware validates the bearer token and attaches the principal to the request context
func AuthMiddleware(tokens TokenParser) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromEcho(c)

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				log.Warn("Missing Authorization header")
				prometheus.RecordAuthError("missing_token")
				return apperr.ErrUnauthorized
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
				log.Warn("Invalid Authorization header format")
				prometheus.RecordAuthError("invalid_auth_format")
				return apperr.ErrUnauthorized
			}

			claims, err := tokens.ParseToken(strings.TrimSpace(parts[1]))
			if err != nil {
				log.Warn("Invalid JWT token", zap.Error(err))
				return apperr.ErrUnauthorized
			}
			userID, err := claims.UserID()
			if err != nil {
				return apperr.ErrUnauthorized
			}
			// every user belongs to a tenant; a tenant-less principal is reserved for internal callers
			tenantID, err := claims.Tenant()
			if err != nil || tenantID == uuid.Nil {
				return apperr.ErrUnauthorized
			}

			principal := identity.Principal{UserID: userID, Email: claims.Email, Name: claims.Name, TenantID: tenantID}
			c.Set("user_id", userID)
			c.Set("tenant_id", tenantID)
			c.SetRequest(c.Request().WithContext(identity.WithPrincipal(c.Request().Context(), principal)))

			log.Debug("Request authenticated",
				zap.String("user_id", userID.String()),
				zap.String("tenant_id", tenantID.String()),
			)
			return next(c)
		}
	}
}

// RequirePermission rejects the request unless the authenticated principal holds action on resource
func RequirePermission(authz Authorizer, resource, action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := identity.FromContext(c.Request().Context())
			if !ok {
				return apperr.ErrUnauthorized
			}
			if err := authz.Authorize(c.Request().Context(), p.UserID, resource, action); err != nil {
				return err
			}
			return next(c)
		}
	}
}
