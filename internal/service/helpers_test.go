package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ssiitsupport/SSI360V2/internal/access"
	"github.com/ssiitsupport/SSI360V2/internal/identity"
	"github.com/ssiitsupport/SSI360V2/internal/store"
	"github.com/ssiitsupport/SSI360V2/internal/testutil"
	"github.com/ssiitsupport/SSI360V2/pkg/jwtutil"
	"github.com/ssiitsupport/SSI360V2/pkg/password"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var testJWTConfig = &jwtutil.JWTConfig{
	SigningKey: "test-signing-key",
	Issuer:     "ssi360",
	Audience:   "ssi360-clients",
	Expiration: 24 * time.Hour,
}

type services struct {
	db          *gorm.DB
	store       *store.Store
	engine      *access.Engine
	hasher      *password.Hasher
	tokens      *jwtutil.JWTUtil
	auth        *AuthService
	tenants     *TenantService
	users       *UserService
	roles       *RoleService
	permissions *PermissionService
}

func newServices(t *testing.T) *services {
	t.Helper()
	db := testutil.NewDB(t)
	s := store.New(db)
	engine := access.NewEngine(s, nil)
	hasher := password.NewHasher(bcrypt.MinCost)
	tokens := jwtutil.NewJWTUtil(testJWTConfig)
	return &services{
		db:          db,
		store:       s,
		engine:      engine,
		hasher:      hasher,
		tokens:      tokens,
		auth:        NewAuthService(s, engine, hasher, tokens, nil),
		tenants:     NewTenantService(s, engine, nil),
		users:       NewUserService(s, engine, hasher, nil),
		roles:       NewRoleService(s, engine, nil),
		permissions: NewPermissionService(s, engine, nil),
	}
}

func (sv *services) hash(t *testing.T, plain string) string {
	t.Helper()
	h, err := sv.hasher.Hash(plain)
	require.NoError(t, err)
	return h
}

func asAdmin() context.Context {
	return identity.WithPrincipal(context.Background(), identity.Principal{Email: "admin@acme.io"})
}

// as binds a tenant-scoped principal for user to ctx
func as(userID, tenantID uuid.UUID) context.Context {
	return identity.WithPrincipal(context.Background(), identity.Principal{UserID: userID, Email: "user@example.io", TenantID: tenantID})
}
