package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/ssiitsupport/SSI360V2/internal/model"
	"gorm.io/gorm"
)

// RoleRepository persists roles
type RoleRepository struct {
	Repository[model.Role]
}

// RoleDetails is a role together with its granted permissions
type RoleDetails struct {
	Role        model.Role
	Permissions []model.Permission
}

// GetByNameInTenant finds the role named name inside tenantID
func (r *RoleRepository) GetByNameInTenant(ctx context.Context, name string, tenantID uuid.UUID) (*model.Role, error) {
	return r.first(ctx, r.db.WithContext(ctx).Where("name = ? AND tenant_id = ?", name, tenantID))
}

// ListByUser returns the roles assigned to userID
func (r *RoleRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Role, error) {
	return r.find(ctx, r.db.WithContext(ctx).
		Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ?", userID).
		Order("roles.created_at ASC, roles.id ASC"))
}

// List pages through roles, searching name and description
func (r *RoleRepository) List(ctx context.Context, q ListQuery) (Page[model.Role], error) {
	return r.page(ctx, q, []string{"name", "description"}, tenantScope(q.TenantID))
}

// Delete removes the role along with its user and permission assignments
func (r *RoleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := (&UserRoleRepository{db: tx}).RemoveAllForRole(ctx, id); err != nil {
			return err
		}
		if err := (&RolePermissionRepository{db: tx}).RemoveAllForRole(ctx, id); err != nil {
			return err
		}
		repo := newRepository[model.Role](tx, r.name)
		return repo.Delete(ctx, id)
	})
}

// Expand loads the permissions of roles in a fixed number of queries
func (r *RoleRepository) Expand(ctx context.Context, roles ...model.Role) ([]RoleDetails, error) {
	details := make([]RoleDetails, len(roles))
	if len(roles) == 0 {
		return details, nil
	}

	roleIDs := make([]uuid.UUID, len(roles))
	for i, role := range roles {
		roleIDs[i] = role.ID
	}

	var edges []model.RolePermission
	if err := r.db.WithContext(ctx).Where("role_id IN ?", roleIDs).Find(&edges).Error; err != nil {
		return nil, fmt.Errorf("failed to load role permissions: %w", err)
	}
	permIDs := make([]uuid.UUID, 0, len(edges))
	for _, e := range edges {
		permIDs = append(permIDs, e.PermissionID)
	}
	permRepo := newRepository[model.Permission](r.db, "permission")
	perms, err := permRepo.ListByIDs(ctx, permIDs)
	if err != nil {
		return nil, err
	}
	permByID := make(map[uuid.UUID]model.Permission, len(perms))
	for _, p := range perms {
		permByID[p.ID] = p
	}
	permsByRole := make(map[uuid.UUID][]model.Permission)
	for _, e := range edges {
		if p, ok := permByID[e.PermissionID]; ok {
			permsByRole[e.RoleID] = append(permsByRole[e.RoleID], p)
		}
	}

	for i, role := range roles {
		granted := permsByRole[role.ID]
		if granted == nil {
			granted = []model.Permission{}
		}
		sort.Slice(granted, func(a, b int) bool { return granted[a].Key() < granted[b].Key() })
		details[i] = RoleDetails{Role: role, Permissions: granted}
	}
	return details, nil
}

func sortRoles(roles []model.Role) {
	sort.Slice(roles, func(a, b int) bool {
		if roles[a].Name != roles[b].Name {
			return roles[a].Name < roles[b].Name
		}
		return roles[a].ID.String() < roles[b].ID.String()
	})
}
