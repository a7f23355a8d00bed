// Package service implements authentication and the tenant, user, role and
// permission directory on top of the store and the access engine.
package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ssiitsupport/SSI360V2/internal/access"
	"github.com/ssiitsupport/SSI360V2/internal/apperr"
	"github.com/ssiitsupport/SSI360V2/internal/identity"
	"github.com/ssiitsupport/SSI360V2/internal/model"
	"github.com/ssiitsupport/SSI360V2/internal/store"
	"github.com/ssiitsupport/SSI360V2/pkg/jwtutil"
	"github.com/ssiitsupport/SSI360V2/pkg/logger"
	"github.com/ssiitsupport/SSI360V2/pkg/password"
	metrics "github.com/ssiitsupport/SSI360V2/prometheus"
	"go.uber.org/zap"
)

// PasswordHasher hashes and verifies user passwords
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(hash, plain string) bool
}

// AuthService handles login, registration, tokens and password changes
type AuthService struct {
	store  *store.Store
	engine *access.Engine
	hasher PasswordHasher
	tokens *jwtutil.JWTUtil
	logger *zap.Logger
	now    func() time.Time

	decoyOnce sync.Once
	decoyHash string
}

// NewAuthService creates an AuthService
func NewAuthService(s *store.Store, engine *access.Engine, hasher PasswordHasher, tokens *jwtutil.JWTUtil, log *zap.Logger) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{store: s, engine: engine, hasher: hasher, tokens: tokens, logger: log, now: time.Now}
}

// Login verifies credentials and issues a token.
// Every rejection is reported as ErrInvalidCredentials or ErrAccountDisabled only.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	log := logger.FromContextOr(ctx, s.logger)
	metrics.LoginCounter.Inc()

	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		metrics.RecordAuthError("invalid_request")
		return nil, apperr.ErrInvalidCredentials
	}

	user, tenant, err := s.lookupAccount(ctx, email, normalizeDomain(req.TenantDomain))
	if err != nil {
		return nil, err
	}
	if user == nil {
		s.verifyDecoy(req.Password)
		log.Warn("Login rejected", zap.String("reason", "user_not_found"), zap.String("email", email))
		metrics.RecordAuthError("user_not_found")
		return nil, apperr.ErrInvalidCredentials
	}

	if !s.hasher.Verify(user.PasswordHash, req.Password) {
		log.Warn("Login rejected", zap.String("reason", "invalid_password"), zap.String("email", email))
		metrics.RecordAuthError("invalid_password")
		return nil, apperr.ErrInvalidCredentials
	}

	if tenant == nil {
		if tenant, err = s.store.Tenants.GetByID(ctx, user.TenantID); err != nil {
			return nil, err
		}
	}
	if !user.IsActive || tenant == nil || !tenant.IsActive {
		log.Warn("Login rejected", zap.String("reason", "account_disabled"), zap.String("email", email))
		metrics.RecordAuthError("account_disabled")
		return nil, apperr.ErrAccountDisabled
	}

	token, expiresAt, err := s.tokens.GenerateToken(jwtutil.Identity{
		UserID:   user.ID,
		Email:    user.Email,
		Name:     user.DisplayName(),
		TenantID: user.TenantID,
	})
	if err != nil {
		metrics.RecordAuthError("token_generation_failed")
		return nil, apperr.Internal(err)
	}

	loginAt := s.now().UTC()
	if err := s.store.Users.SetLastLogin(ctx, user.ID, loginAt); err != nil {
		return nil, err
	}
	user.LastLoginAt = &loginAt

	details, err := s.store.Users.Expand(ctx, *user)
	if err != nil {
		return nil, err
	}

	metrics.TokensIssuedCounter.Inc()
	log.Info("User logged in",
		zap.String("user_id", user.ID.String()),
		zap.String("tenant_id", user.TenantID.String()),
	)

	return &LoginResponse{Token: token, ExpiresAt: expiresAt, User: newUserProfile(details[0])}, nil
}

// verifyDecoy runs one hash comparison against a fixed hash so a login for an
// unknown account costs the same as one with a wrong password
func (s *AuthService) verifyDecoy(plain string) {
	s.decoyOnce.Do(func() {
		hash, err := s.hasher.Hash("decoy-password-for-unknown-accounts")
		if err != nil {
			s.logger.Error("Failed to prepare decoy hash", zap.Error(err))
			return
		}
		s.decoyHash = hash
	})
	s.hasher.Verify(s.decoyHash, plain)
}

// lookupAccount resolves the login account. Without a domain the oldest account with the email wins.
func (s *AuthService) lookupAccount(ctx context.Context, email, domain string) (*model.User, *model.Tenant, error) {
	if domain == "" {
		users, err := s.store.Users.FindByEmail(ctx, email)
		if err != nil || len(users) == 0 {
			return nil, nil, err
		}
		return &users[0], nil, nil
	}

	tenant, err := s.store.Tenants.GetByDomain(ctx, domain)
	if err != nil || tenant == nil {
		return nil, nil, err
	}
	user, err := s.store.Users.GetByEmailInTenant(ctx, email, tenant.ID)
	if err != nil || user == nil {
		return nil, nil, err
	}
	return user, tenant, nil
}

// Register creates a role-less user in an existing active tenant.
// Self-registration cannot request roles; they are granted through the directory by an authorized caller.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*UserProfile, error) {
	metrics.RegisterCounter.Inc()

	if len(req.RoleIDs) > 0 {
		metrics.RecordAuthError("register_roles_requested")
		logger.FromContextOr(ctx, s.logger).Warn("Registration rejected",
			zap.String("reason", "roles_requested"),
			zap.String("email", strings.TrimSpace(req.Email)),
		)
		return nil, apperr.ErrForbidden
	}

	profile, err := createUser(ctx, s.store, s.engine, s.hasher, CreateUserRequest(req))
	if err != nil {
		if apperr.IsKind(err, apperr.KindConflict) {
			metrics.RecordAuthError("email_already_exists")
		}
		return nil, err
	}

	logger.FromContextOr(ctx, s.logger).Info("User registered",
		zap.String("user_id", profile.ID.String()),
		zap.String("tenant_id", profile.TenantID.String()),
	)
	return profile, nil
}

// ValidateToken reports whether token is a valid, unexpired token issued by this service
func (s *AuthService) ValidateToken(token string) bool {
	return s.tokens.ValidateToken(token)
}

// ParseToken returns the verified claims, or ErrUnauthorized
func (s *AuthService) ParseToken(token string) (*jwtutil.UserClaims, error) {
	claims, err := s.tokens.ParseToken(token)
	if err != nil {
		metrics.RecordAuthError("invalid_token")
		return nil, apperr.ErrUnauthorized
	}
	return claims, nil
}

// ChangePassword replaces the password of userID after verifying currentPassword
func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	user, err := s.store.Users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return apperr.NotFound("user")
	}
	if !s.hasher.Verify(user.PasswordHash, currentPassword) {
		return apperr.ErrIncorrectPassword
	}
	if err := password.CheckPolicy(newPassword); err != nil {
		return apperr.Invalid("%s", err.Error())
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return apperr.Internal(err)
	}
	user.PasswordHash = hash
	user.Touch(identity.Actor(ctx), s.now())
	if err := s.store.Users.Update(ctx, user); err != nil {
		return err
	}

	logger.FromContextOr(ctx, s.logger).Info("Password changed", zap.String("user_id", userID.String()))
	return nil
}

// CurrentUser returns the profile of the authenticated principal
func (s *AuthService) CurrentUser(ctx context.Context) (*UserProfile, error) {
	p, ok := identity.FromContext(ctx)
	if !ok {
		return nil, apperr.ErrUnauthorized
	}
	return getUserProfile(ctx, s.store, p.UserID)
}

// CurrentPermissions returns the effective permissions of the authenticated principal
func (s *AuthService) CurrentPermissions(ctx context.Context) (access.PermissionSet, error) {
	p, ok := identity.FromContext(ctx)
	if !ok {
		return nil, apperr.ErrUnauthorized
	}
	return s.engine.EffectivePermissions(ctx, p.UserID)
}

// HasPermission reports whether the authenticated principal holds action on resource
func (s *AuthService) HasPermission(ctx context.Context, resource, action string) (bool, error) {
	set, err := s.CurrentPermissions(ctx)
	if err != nil {
		return false, err
	}
	return set.Has(resource, action), nil
}
