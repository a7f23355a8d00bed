package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/ssiitsupport/SSI360V2/internal/apperr"
	"github.com/ssiitsupport/SSI360V2/internal/identity"
	"github.com/ssiitsupport/SSI360V2/pkg/jwtutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tokens = jwtutil.NewJWTUtil(&jwtutil.JWTConfig{
	SigningKey: "test-signing-key",
	Issuer:     "ssi360",
	Audience:   "ssi360-clients",
	Expiration: time.Hour,
})

type authorizerFunc func(ctx context.Context, userID uuid.UUID, resource, action string) error

func (f authorizerFunc) Authorize(ctx context.Context, userID uuid.UUID, resource, action string) error {
	return f(ctx, userID, resource, action)
}

func serve(h echo.HandlerFunc, header string) (echo.Context, *httptest.ResponseRecorder, error) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec, h(c)
}

func TestAuthMiddlewareAttachesPrincipal(t *testing.T) {
	id := jwtutil.Identity{UserID: uuid.New(), Email: "a@acme.io", Name: "Ann", TenantID: uuid.New()}
	token, _, err := tokens.GenerateToken(id)
	require.NoError(t, err)

	var got identity.Principal
	h := AuthMiddleware(tokens)(func(c echo.Context) error {
		got, _ = identity.FromContext(c.Request().Context())
		return c.NoContent(http.StatusNoContent)
	})

	_, rec, err := serve(h, "Bearer "+token)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, id.UserID, got.UserID)
	assert.Equal(t, id.TenantID, got.TenantID)
	assert.Equal(t, "a@acme.io", got.Email)
}

func TestAuthMiddlewareRejects(t *testing.T) {
	expired, _, err := tokens.WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) }).
		GenerateToken(jwtutil.Identity{UserID: uuid.New(), TenantID: uuid.New()})
	require.NoError(t, err)
	tenantless, _, err := tokens.GenerateToken(jwtutil.Identity{UserID: uuid.New()})
	require.NoError(t, err)

	called := false
	h := AuthMiddleware(tokens)(func(c echo.Context) error {
		called = true
		return nil
	})

	for name, header := range map[string]string{
		"missing":   "",
		"no scheme": "abc",
		"basic":     "Basic dXNlcjpwYXNz",
		"garbage":   "Bearer not-a-token",
		"expired":   "Bearer " + expired,
		"no tenant": "Bearer " + tenantless,
	} {
		t.Run(name, func(t *testing.T) {
			_, _, err := serve(h, header)
			assert.ErrorIs(t, err, apperr.ErrUnauthorized)
		})
	}
	assert.False(t, called)
}

func TestRequirePermission(t *testing.T) {
	userID := uuid.New()
	authz := authorizerFunc(func(_ context.Context, id uuid.UUID, resource, action string) error {
		if id == userID && resource == "Users" && action == "Read" {
			return nil
		}
		return apperr.ErrForbidden
	})
	ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }

	e := echo.New()
	withPrincipal := func(id uuid.UUID) echo.Context {
		req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
		req = req.WithContext(identity.WithPrincipal(req.Context(), identity.Principal{UserID: id}))
		return e.NewContext(req, httptest.NewRecorder())
	}

	assert.NoError(t, RequirePermission(authz, "Users", "Read")(ok)(withPrincipal(userID)))
	assert.ErrorIs(t, RequirePermission(authz, "Users", "Delete")(ok)(withPrincipal(userID)), apperr.ErrForbidden)

	anonymous := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/users", nil), httptest.NewRecorder())
	assert.ErrorIs(t, RequirePermission(authz, "Users", "Read")(ok)(anonymous), apperr.ErrUnauthorized)
}

func TestRequestIDMiddleware(t *testing.T) {
	e := echo.New()
	h := RequestIDMiddleware(func(c echo.Context) error { return nil })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, h(e.NewContext(req, rec)))
	generated := rec.Header().Get(RequestIDKey)
	assert.NotEmpty(t, generated)
	assert.Equal(t, generated, req.Header.Get(RequestIDKey))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDKey, "given-id")
	rec = httptest.NewRecorder()
	require.NoError(t, h(e.NewContext(req, rec)))
	assert.Equal(t, "given-id", rec.Header().Get(RequestIDKey))
}
