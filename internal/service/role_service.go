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
	metrics "github.com/ssiitsupport/SSI360V2/prometheus"
	"go.uber.org/zap"
)

// RoleService manages tenant roles and their permission grants
type RoleService struct {
	store  *store.Store
	engine *access.Engine
	logger *zap.Logger
	now    func() time.Time
}

// NewRoleService creates a RoleService
func NewRoleService(s *store.Store, engine *access.Engine, log *zap.Logger) *RoleService {
	if log == nil {
		log = zap.NewNop()
	}
	return &RoleService{store: s, engine: engine, logger: log, now: time.Now}
}

// Create adds a role to a tenant and grants the requested permissions atomically
func (s *RoleService) Create(ctx context.Context, req CreateRoleRequest) (*RoleProfile, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.Invalid("role name is required")
	}

	if err := s.engine.CheckTenant(ctx, req.TenantID); err != nil {
		return nil, err
	}
	tenantOK, err := s.store.Tenants.Exists(ctx, req.TenantID)
	if err != nil {
		return nil, err
	}
	if !tenantOK {
		return nil, apperr.NotFound("tenant")
	}
	existing, err := s.store.Roles.GetByNameInTenant(ctx, name, req.TenantID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.Conflict("role %s already exists in this tenant", name)
	}

	role := &model.Role{
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		IsActive:    true,
		TenantID:    req.TenantID,
	}
	role.Stamp(identity.Actor(ctx), s.now())

	err = s.store.WithTx(ctx, func(tx *store.Store) error {
		if err := tx.Roles.Create(ctx, role); err != nil {
			return err
		}
		txEngine := s.engine.WithStore(tx)
		for _, permID := range req.PermissionIDs {
			if err := txEngine.AssignPermissionToRole(ctx, role.ID, permID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordDirectoryOperation("role", "create")
	logger.FromContextOr(ctx, s.logger).Info("Role created",
		zap.String("role_id", role.ID.String()),
		zap.String("tenant_id", role.TenantID.String()),
	)
	return s.Get(ctx, role.ID)
}

// Update replaces the role's mutable fields and, when PermissionIDs is set, its grants
func (s *RoleService) Update(ctx context.Context, id uuid.UUID, req UpdateRoleRequest) (*RoleProfile, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.Invalid("role name is required")
	}
	if _, err := s.scopedRole(ctx, id); err != nil {
		return nil, err
	}

	err := s.store.WithTx(ctx, func(tx *store.Store) error {
		role, err := tx.Roles.Lock(ctx, id)
		if err != nil {
			return err
		}
		if role == nil {
			return apperr.NotFound("role")
		}
		if name != role.Name {
			existing, err := tx.Roles.GetByNameInTenant(ctx, name, role.TenantID)
			if err != nil {
				return err
			}
			if existing != nil {
				return apperr.Conflict("role %s already exists in this tenant", name)
			}
		}

		role.Name = name
		role.Description = strings.TrimSpace(req.Description)
		role.IsActive = req.IsActive
		role.Touch(identity.Actor(ctx), s.now())
		if err := tx.Roles.Update(ctx, role); err != nil {
			return err
		}

		if req.PermissionIDs != nil {
			return s.engine.WithStore(tx).ReplacePermissionAssignments(ctx, id, req.PermissionIDs)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordDirectoryOperation("role", "update")
	logger.FromContextOr(ctx, s.logger).Info("Role updated", zap.String("role_id", id.String()))
	return s.Get(ctx, id)
}

// Get returns the role with its permission names
func (s *RoleService) Get(ctx context.Context, id uuid.UUID) (*RoleProfile, error) {
	role, err := s.scopedRole(ctx, id)
	if err != nil {
		return nil, err
	}
	details, err := s.store.Roles.Expand(ctx, *role)
	if err != nil {
		return nil, err
	}
	profile := newRoleProfile(details[0])
	return &profile, nil
}

// Delete removes the role together with its assignments and grants
func (s *RoleService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.scopedRole(ctx, id); err != nil {
		return err
	}
	if err := s.store.Roles.Delete(ctx, id); err != nil {
		return err
	}
	metrics.RecordDirectoryOperation("role", "delete")
	logger.FromContextOr(ctx, s.logger).Info("Role deleted", zap.String("role_id", id.String()))
	return nil
}

// List pages through roles, optionally within one tenant
func (s *RoleService) List(ctx context.Context, q store.ListQuery) (*PaginatedResult[RoleProfile], error) {
	q, err := s.engine.ScopeQuery(ctx, q)
	if err != nil {
		return nil, err
	}
	page, err := s.store.Roles.List(ctx, q)
	if err != nil {
		return nil, err
	}
	details, err := s.store.Roles.Expand(ctx, page.Items...)
	if err != nil {
		return nil, err
	}
	items := make([]RoleProfile, len(details))
	for i, d := range details {
		items[i] = newRoleProfile(d)
	}
	result := paginate(page, items)
	return &result, nil
}

// Users returns the users holding the role
func (s *RoleService) Users(ctx context.Context, id uuid.UUID) ([]UserProfile, error) {
	if _, err := s.scopedRole(ctx, id); err != nil {
		return nil, err
	}
	users, err := s.store.Users.ListByRole(ctx, id)
	if err != nil {
		return nil, err
	}
	details, err := s.store.Users.Expand(ctx, users...)
	if err != nil {
		return nil, err
	}
	profiles := make([]UserProfile, len(details))
	for i, d := range details {
		profiles[i] = newUserProfile(d)
	}
	return profiles, nil
}

// AssignToUser adds the role to a user
func (s *RoleService) AssignToUser(ctx context.Context, roleID, userID uuid.UUID) error {
	if _, err := s.scopedRole(ctx, roleID); err != nil {
		return err
	}
	if err := s.engine.AssignRoleToUser(ctx, userID, roleID); err != nil {
		return err
	}
	metrics.RecordDirectoryOperation("user_role", "assign")
	return nil
}

// RevokeFromUser removes the role from a user
func (s *RoleService) RevokeFromUser(ctx context.Context, roleID, userID uuid.UUID) error {
	if _, err := s.scopedRole(ctx, roleID); err != nil {
		return err
	}
	if err := s.engine.RevokeRoleFromUser(ctx, userID, roleID); err != nil {
		return err
	}
	metrics.RecordDirectoryOperation("user_role", "revoke")
	return nil
}

// GrantPermission adds permissionID to the role
func (s *RoleService) GrantPermission(ctx context.Context, roleID, permissionID uuid.UUID) error {
	if _, err := s.scopedRole(ctx, roleID); err != nil {
		return err
	}
	if err := s.engine.AssignPermissionToRole(ctx, roleID, permissionID); err != nil {
		return err
	}
	metrics.RecordDirectoryOperation("role_permission", "assign")
	return nil
}

// RevokePermission removes permissionID from the role
func (s *RoleService) RevokePermission(ctx context.Context, roleID, permissionID uuid.UUID) error {
	if _, err := s.scopedRole(ctx, roleID); err != nil {
		return err
	}
	if err := s.engine.RevokePermissionFromRole(ctx, roleID, permissionID); err != nil {
		return err
	}
	metrics.RecordDirectoryOperation("role_permission", "revoke")
	return nil
}

// scopedRole loads the role and checks the caller may act on its tenant
func (s *RoleService) scopedRole(ctx context.Context, id uuid.UUID) (*model.Role, error) {
	role, err := s.store.Roles.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, apperr.NotFound("role")
	}
	if err := s.engine.CheckTenant(ctx, role.TenantID); err != nil {
		return nil, err
	}
	return role, nil
}

func roleProfiles(ctx context.Context, s *store.Store, roles []model.Role) ([]RoleProfile, error) {
	details, err := s.Roles.Expand(ctx, roles...)
	if err != nil {
		return nil, err
	}
	profiles := make([]RoleProfile, len(details))
	for i, d := range details {
		profiles[i] = newRoleProfile(d)
	}
	return profiles, nil
}
