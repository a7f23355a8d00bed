package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ssiitsupport/SSI360V2/internal/access"
	"github.com/ssiitsupport/SSI360V2/internal/apperr"
	"github.com/ssiitsupport/SSI360V2/internal/identity"
	"github.com/ssiitsupport/SSI360V2/internal/model"
	"github.com/ssiitsupport/SSI360V2/internal/store"
	"github.com/ssiitsupport/SSI360V2/pkg/logger"
	"github.com/ssiitsupport/SSI360V2/pkg/password"
	metrics "github.com/ssiitsupport/SSI360V2/prometheus"
	"go.uber.org/zap"
)

// UserService manages users and their role assignments
type UserService struct {
	store  *store.Store
	engine *access.Engine
	hasher PasswordHasher
	logger *zap.Logger
	now    func() time.Time
}

// NewUserService creates a UserService
func NewUserService(s *store.Store, engine *access.Engine, hasher PasswordHasher, log *zap.Logger) *UserService {
	if log == nil {
		log = zap.NewNop()
	}
	return &UserService{store: s, engine: engine, hasher: hasher, logger: log, now: time.Now}
}

// Create adds a user with a hashed password and the requested roles
func (s *UserService) Create(ctx context.Context, req CreateUserRequest) (*UserProfile, error) {
	if err := s.engine.CheckTenant(ctx, req.TenantID); err != nil {
		return nil, err
	}
	profile, err := createUser(ctx, s.store, s.engine, s.hasher, req)
	if err != nil {
		return nil, err
	}
	metrics.RecordDirectoryOperation("user", "create")
	logger.FromContextOr(ctx, s.logger).Info("User created", zap.String("user_id", profile.ID.String()))
	return profile, nil
}

// Update replaces the user's mutable fields and, when RoleIDs is set, its role assignments
func (s *UserService) Update(ctx context.Context, id uuid.UUID, req UpdateUserRequest) (*UserProfile, error) {
	if _, err := s.scopedUser(ctx, id); err != nil {
		return nil, err
	}
	err := s.store.WithTx(ctx, func(tx *store.Store) error {
		user, err := tx.Users.Lock(ctx, id)
		if err != nil {
			return err
		}
		if user == nil {
			return apperr.NotFound("user")
		}

		user.FirstName = strings.TrimSpace(req.FirstName)
		user.LastName = strings.TrimSpace(req.LastName)
		user.IsActive = req.IsActive
		user.Touch(identity.Actor(ctx), s.now())
		if err := tx.Users.Update(ctx, user); err != nil {
			return err
		}

		if req.RoleIDs != nil {
			return s.engine.WithStore(tx).ReplaceRoleAssignments(ctx, id, req.RoleIDs)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordDirectoryOperation("user", "update")
	logger.FromContextOr(ctx, s.logger).Info("User updated", zap.String("user_id", id.String()))
	return getUserProfile(ctx, s.store, id)
}

// Get returns the user profile
func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*UserProfile, error) {
	if _, err := s.scopedUser(ctx, id); err != nil {
		return nil, err
	}
	return getUserProfile(ctx, s.store, id)
}

// Delete removes the user and its role assignments
func (s *UserService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.scopedUser(ctx, id); err != nil {
		return err
	}
	if err := s.store.Users.Delete(ctx, id); err != nil {
		return err
	}
	metrics.RecordDirectoryOperation("user", "delete")
	logger.FromContextOr(ctx, s.logger).Info("User deleted", zap.String("user_id", id.String()))
	return nil
}

// List pages through users, optionally within one tenant. Callers outside the
// operator tenant only see their own tenant.
func (s *UserService) List(ctx context.Context, q store.ListQuery) (*PaginatedResult[UserProfile], error) {
	q, err := s.engine.ScopeQuery(ctx, q)
	if err != nil {
		return nil, err
	}
	page, err := s.store.Users.List(ctx, q)
	if err != nil {
		return nil, err
	}
	details, err := s.store.Users.Expand(ctx, page.Items...)
	if err != nil {
		return nil, err
	}
	items := make([]UserProfile, len(details))
	for i, d := range details {
		items[i] = newUserProfile(d)
	}
	result := paginate(page, items)
	return &result, nil
}

// EffectivePermissions returns the permissions userID holds through its roles
func (s *UserService) EffectivePermissions(ctx context.Context, id uuid.UUID) ([]PermissionProfile, error) {
	if _, err := s.scopedUser(ctx, id); err != nil {
		return nil, err
	}
	set, err := s.engine.EffectivePermissions(ctx, id)
	if err != nil {
		return nil, err
	}
	return permissionProfiles(set.List()), nil
}

// Roles returns the roles assigned to the user
func (s *UserService) Roles(ctx context.Context, id uuid.UUID) ([]RoleProfile, error) {
	if _, err := s.scopedUser(ctx, id); err != nil {
		return nil, err
	}
	roles, err := s.engine.UserRoles(ctx, id)
	if err != nil {
		return nil, err
	}
	return roleProfiles(ctx, s.store, roles)
}

// AssignRole adds roleID to the user
func (s *UserService) AssignRole(ctx context.Context, userID, roleID uuid.UUID) error {
	if _, err := s.scopedUser(ctx, userID); err != nil {
		return err
	}
	if err := s.engine.AssignRoleToUser(ctx, userID, roleID); err != nil {
		return err
	}
	metrics.RecordDirectoryOperation("user_role", "assign")
	return nil
}

// RevokeRole removes roleID from the user
func (s *UserService) RevokeRole(ctx context.Context, userID, roleID uuid.UUID) error {
	if _, err := s.scopedUser(ctx, userID); err != nil {
		return err
	}
	if err := s.engine.RevokeRoleFromUser(ctx, userID, roleID); err != nil {
		return err
	}
	metrics.RecordDirectoryOperation("user_role", "revoke")
	return nil
}

// scopedUser loads the user and checks the caller may act on its tenant
func (s *UserService) scopedUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.store.Users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.NotFound("user")
	}
	if err := s.engine.CheckTenant(ctx, user.TenantID); err != nil {
		return nil, err
	}
	return user, nil
}

func createUser(ctx context.Context, s *store.Store, engine *access.Engine, hasher PasswordHasher, req CreateUserRequest) (*UserProfile, error) {
	email := strings.TrimSpace(req.Email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := password.CheckPolicy(req.Password); err != nil {
		return nil, apperr.Invalid("%s", err.Error())
	}

	tenant, err := s.Tenants.GetByID(ctx, req.TenantID)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, apperr.NotFound("tenant")
	}
	if !tenant.IsActive {
		return nil, apperr.Invalid("tenant is inactive")
	}

	existing, err := s.Users.GetByEmailInTenant(ctx, email, tenant.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.Conflict("email %s is already registered", email)
	}

	hash, err := hasher.Hash(req.Password)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	user := &model.User{
		Email:        email,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		PasswordHash: hash,
		IsActive:     true,
		TenantID:     tenant.ID,
	}
	user.Stamp(identity.Actor(ctx), time.Now())

	err = s.WithTx(ctx, func(tx *store.Store) error {
		if err := tx.Users.Create(ctx, user); err != nil {
			return err
		}
		txEngine := engine.WithStore(tx)
		for _, roleID := range req.RoleIDs {
			if err := txEngine.AssignRoleToUser(ctx, user.ID, roleID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return getUserProfile(ctx, s, user.ID)
}

func getUserProfile(ctx context.Context, s *store.Store, id uuid.UUID) (*UserProfile, error) {
	user, err := s.Users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.NotFound("user")
	}
	details, err := s.Users.Expand(ctx, *user)
	if err != nil {
		return nil, err
	}
	profile := newUserProfile(details[0])
	return &profile, nil
}

func validateEmail(email string) error {
	at := strings.LastIndex(email, "@")
	if email == "" || at <= 0 || at == len(email)-1 || strings.ContainsAny(email, " \t\r\n") {
		return apperr.Invalid("a valid email is required")
	}
	return nil
}
