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

// PermissionService manages the global permission catalogue. The catalogue is
// shared by every tenant, so only operators change it.
type PermissionService struct {
	store  *store.Store
	engine *access.Engine
	logger *zap.Logger
	now    func() time.Time
}

// NewPermissionService creates a PermissionService
func NewPermissionService(s *store.Store, engine *access.Engine, log *zap.Logger) *PermissionService {
	if log == nil {
		log = zap.NewNop()
	}
	return &PermissionService{store: s, engine: engine, logger: log, now: time.Now}
}

// Create adds a permission; the (resource, action) pair must be new
func (s *PermissionService) Create(ctx context.Context, req CreatePermissionRequest) (*PermissionProfile, error) {
	if err := s.engine.RequireOperator(ctx); err != nil {
		return nil, err
	}
	resource := strings.TrimSpace(req.Resource)
	action := strings.TrimSpace(req.Action)
	if resource == "" || action == "" {
		return nil, apperr.Invalid("permission resource and action are required")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = action + " " + resource
	}

	existing, err := s.store.Permissions.GetByResourceAction(ctx, resource, action)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.Conflict("permission %s already exists", model.PermissionKey(resource, action))
	}

	perm := &model.Permission{
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		Resource:    resource,
		Action:      action,
		IsActive:    true,
	}
	perm.Stamp(identity.Actor(ctx), s.now())
	if err := s.store.Permissions.Create(ctx, perm); err != nil {
		return nil, err
	}

	metrics.RecordDirectoryOperation("permission", "create")
	logger.FromContextOr(ctx, s.logger).Info("Permission created",
		zap.String("permission_id", perm.ID.String()),
		zap.String("key", perm.Key()),
	)
	profile := newPermissionProfile(*perm)
	return &profile, nil
}

// Update changes the display name, description and active flag. Resource and action are immutable.
func (s *PermissionService) Update(ctx context.Context, id uuid.UUID, req UpdatePermissionRequest) (*PermissionProfile, error) {
	if err := s.engine.RequireOperator(ctx); err != nil {
		return nil, err
	}
	var perm *model.Permission
	err := s.store.WithTx(ctx, func(tx *store.Store) error {
		var err error
		if perm, err = tx.Permissions.Lock(ctx, id); err != nil {
			return err
		}
		if perm == nil {
			return apperr.NotFound("permission")
		}
		if name := strings.TrimSpace(req.Name); name != "" {
			perm.Name = name
		}
		perm.Description = strings.TrimSpace(req.Description)
		perm.IsActive = req.IsActive
		perm.Touch(identity.Actor(ctx), s.now())
		return tx.Permissions.Update(ctx, perm)
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordDirectoryOperation("permission", "update")
	profile := newPermissionProfile(*perm)
	return &profile, nil
}

// Get returns a permission by id
func (s *PermissionService) Get(ctx context.Context, id uuid.UUID) (*PermissionProfile, error) {
	perm, err := s.store.Permissions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if perm == nil {
		return nil, apperr.NotFound("permission")
	}
	profile := newPermissionProfile(*perm)
	return &profile, nil
}

// Delete removes the permission and revokes it from every role
func (s *PermissionService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.engine.RequireOperator(ctx); err != nil {
		return err
	}
	ok, err := s.store.Permissions.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("permission")
	}
	if err := s.store.Permissions.Delete(ctx, id); err != nil {
		return err
	}
	metrics.RecordDirectoryOperation("permission", "delete")
	logger.FromContextOr(ctx, s.logger).Info("Permission deleted", zap.String("permission_id", id.String()))
	return nil
}

// List pages through the catalogue
func (s *PermissionService) List(ctx context.Context, q store.ListQuery) (*PaginatedResult[PermissionProfile], error) {
	page, err := s.store.Permissions.List(ctx, q)
	if err != nil {
		return nil, err
	}
	result := paginate(page, permissionProfiles(page.Items))
	return &result, nil
}

// ListByRole returns the permissions granted to a role
func (s *PermissionService) ListByRole(ctx context.Context, roleID uuid.UUID) ([]PermissionProfile, error) {
	role, err := s.store.Roles.GetByID(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, apperr.NotFound("role")
	}
	if err := s.engine.CheckTenant(ctx, role.TenantID); err != nil {
		return nil, err
	}
	perms, err := s.store.Permissions.ListByRole(ctx, roleID)
	if err != nil {
		return nil, err
	}
	return permissionProfiles(perms), nil
}

func permissionProfiles(perms []model.Permission) []PermissionProfile {
	out := make([]PermissionProfile, len(perms))
	for i, p := range perms {
		out[i] = newPermissionProfile(p)
	}
	return out
}
