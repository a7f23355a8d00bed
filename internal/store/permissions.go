package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/ssiitsupport/SSI360V2/internal/model"
	"gorm.io/gorm"
)

// PermissionRepository persists the global permission catalogue
type PermissionRepository struct {
	Repository[model.Permission]
}

// GetByResourceAction finds the permission for a (resource, action) pair
func (r *PermissionRepository) GetByResourceAction(ctx context.Context, resource, action string) (*model.Permission, error) {
	return r.first(ctx, r.db.WithContext(ctx).Where("resource = ? AND action = ?", resource, action))
}

// ListAll returns the whole catalogue
func (r *PermissionRepository) ListAll(ctx context.Context) ([]model.Permission, error) {
	return r.find(ctx, r.db.WithContext(ctx).Order("resource ASC, action ASC"))
}

// ListByRole returns the permissions granted to roleID
func (r *PermissionRepository) ListByRole(ctx context.Context, roleID uuid.UUID) ([]model.Permission, error) {
	return r.find(ctx, r.db.WithContext(ctx).
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Where("role_permissions.role_id = ?", roleID).
		Order("permissions.resource ASC, permissions.action ASC"))
}

// ListForUser returns the distinct active permissions reachable from the
// active roles assigned to userID
func (r *PermissionRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]model.Permission, error) {
	return r.find(ctx, r.db.WithContext(ctx).
		Distinct("permissions.*").
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Joins("JOIN user_roles ON user_roles.role_id = role_permissions.role_id").
		Joins("JOIN roles ON roles.id = user_roles.role_id").
		Where("user_roles.user_id = ? AND roles.is_active = ? AND permissions.is_active = ?", userID, true, true).
		Order("permissions.resource ASC, permissions.action ASC"))
}

// List pages through permissions, searching name, resource and action
func (r *PermissionRepository) List(ctx context.Context, q ListQuery) (Page[model.Permission], error) {
	return r.page(ctx, q, []string{"name", "resource", "action"}, nil)
}

// Delete removes the permission and every grant of it
func (r *PermissionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := (&RolePermissionRepository{db: tx}).RemoveAllForPermission(ctx, id); err != nil {
			return err
		}
		repo := newRepository[model.Permission](tx, r.name)
		return repo.Delete(ctx, id)
	})
}
