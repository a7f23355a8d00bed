package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ssiitsupport/SSI360V2/internal/model"
	metrics "github.com/ssiitsupport/SSI360V2/prometheus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRoleRepository persists user-role assignments
type UserRoleRepository struct {
	db *gorm.DB
}

// Add creates the edge; an existing edge is left untouched
func (r *UserRoleRepository) Add(ctx context.Context, userID, roleID uuid.UUID, actor string) error {
	defer metrics.TrackDBOperation("insert")()
	edge := model.UserRole{UserID: userID, RoleID: roleID, CreatedAt: time.Now().UTC(), CreatedBy: actorName(actor)}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&edge).Error; err != nil {
		if cerr := constraintError("create", "user role", err); cerr != nil {
			return cerr
		}
		return fmt.Errorf("failed to add user role: %w", err)
	}
	return nil
}

// Remove deletes the edge and reports whether it existed
func (r *UserRoleRepository) Remove(ctx context.Context, userID, roleID uuid.UUID) (bool, error) {
	defer metrics.TrackDBOperation("delete")()
	result := r.db.WithContext(ctx).Where("user_id = ? AND role_id = ?", userID, roleID).Delete(&model.UserRole{})
	if result.Error != nil {
		return false, fmt.Errorf("failed to remove user role: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// RemoveAllForUser clears every role assignment of userID
func (r *UserRoleRepository) RemoveAllForUser(ctx context.Context, userID uuid.UUID) error {
	return r.removeWhere(ctx, "user_id = ?", userID)
}

// RemoveAllForRole clears every user assignment of roleID
func (r *UserRoleRepository) RemoveAllForRole(ctx context.Context, roleID uuid.UUID) error {
	return r.removeWhere(ctx, "role_id = ?", roleID)
}

// RoleIDsOf lists the roles assigned to userID
func (r *UserRoleRepository) RoleIDsOf(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	return pluckIDs(ctx, r.db, &model.UserRole{}, "role_id", "user_id = ?", userID)
}

func (r *UserRoleRepository) removeWhere(ctx context.Context, cond string, id uuid.UUID) error {
	defer metrics.TrackDBOperation("delete")()
	if err := r.db.WithContext(ctx).Where(cond, id).Delete(&model.UserRole{}).Error; err != nil {
		return fmt.Errorf("failed to remove user roles: %w", err)
	}
	return nil
}

// RolePermissionRepository persists role-permission grants
type RolePermissionRepository struct {
	db *gorm.DB
}

// Add creates the edge; an existing edge is left untouched
func (r *RolePermissionRepository) Add(ctx context.Context, roleID, permissionID uuid.UUID, actor string) error {
	defer metrics.TrackDBOperation("insert")()
	edge := model.RolePermission{RoleID: roleID, PermissionID: permissionID, CreatedAt: time.Now().UTC(), CreatedBy: actorName(actor)}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&edge).Error; err != nil {
		if cerr := constraintError("create", "role permission", err); cerr != nil {
			return cerr
		}
		return fmt.Errorf("failed to add role permission: %w", err)
	}
	return nil
}

// Remove deletes the edge and reports whether it existed
func (r *RolePermissionRepository) Remove(ctx context.Context, roleID, permissionID uuid.UUID) (bool, error) {
	defer metrics.TrackDBOperation("delete")()
	result := r.db.WithContext(ctx).Where("role_id = ? AND permission_id = ?", roleID, permissionID).Delete(&model.RolePermission{})
	if result.Error != nil {
		return false, fmt.Errorf("failed to remove role permission: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// RemoveAllForRole clears every grant held by roleID
func (r *RolePermissionRepository) RemoveAllForRole(ctx context.Context, roleID uuid.UUID) error {
	return r.removeWhere(ctx, "role_id = ?", roleID)
}

// RemoveAllForPermission clears every grant of permissionID
func (r *RolePermissionRepository) RemoveAllForPermission(ctx context.Context, permissionID uuid.UUID) error {
	return r.removeWhere(ctx, "permission_id = ?", permissionID)
}

// PermissionIDsOf lists the permissions granted to roleID
func (r *RolePermissionRepository) PermissionIDsOf(ctx context.Context, roleID uuid.UUID) ([]uuid.UUID, error) {
	return pluckIDs(ctx, r.db, &model.RolePermission{}, "permission_id", "role_id = ?", roleID)
}

func (r *RolePermissionRepository) removeWhere(ctx context.Context, cond string, id uuid.UUID) error {
	defer metrics.TrackDBOperation("delete")()
	if err := r.db.WithContext(ctx).Where(cond, id).Delete(&model.RolePermission{}).Error; err != nil {
		return fmt.Errorf("failed to remove role permissions: %w", err)
	}
	return nil
}

func pluckIDs(ctx context.Context, db *gorm.DB, table interface{}, column, cond string, id uuid.UUID) ([]uuid.UUID, error) {
	defer metrics.TrackDBOperation("query")()
	ids := []uuid.UUID{}
	if err := db.WithContext(ctx).Model(table).Where(cond, id).Order(column).Pluck(column, &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", column, err)
	}
	return ids, nil
}

func actorName(actor string) string {
	if actor == "" {
		return model.SystemActor
	}
	return actor
}
