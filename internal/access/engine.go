// Package access maintains the user-role and role-permission graphs and
// evaluates the permissions a user holds through them.
package access

import (
	"context"

	"github.com/google/uuid"
	"github.com/ssiitsupport/SSI360V2/internal/apperr"
	"github.com/ssiitsupport/SSI360V2/internal/identity"
	"github.com/ssiitsupport/SSI360V2/internal/model"
	"github.com/ssiitsupport/SSI360V2/internal/store"
	metrics "github.com/ssiitsupport/SSI360V2/prometheus"
	"go.uber.org/zap"
)

// Engine manages role and permission assignments
type Engine struct {
	store          *store.Store
	logger         *zap.Logger
	operatorDomain string
}

// NewEngine creates an Engine over s
func NewEngine(s *store.Store, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{store: s, logger: logger}
}

// WithStore returns an Engine bound to tx so edge writes join the caller's transaction
func (e *Engine) WithStore(tx *store.Store) *Engine {
	return &Engine{store: tx, logger: e.logger, operatorDomain: e.operatorDomain}
}

// AssignRoleToUser adds the user-role edge. Assigning an existing edge is a no-op.
// Both endpoints are locked so neither can be deleted before the edge is written.
func (e *Engine) AssignRoleToUser(ctx context.Context, userID, roleID uuid.UUID) error {
	err := e.store.WithTx(ctx, func(tx *store.Store) error {
		user, err := tx.Users.Lock(ctx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return apperr.NotFound("user")
		}
		role, err := tx.Roles.Lock(ctx, roleID)
		if err != nil {
			return err
		}
		if role == nil {
			return apperr.NotFound("role")
		}
		if role.TenantID != user.TenantID {
			return apperr.Invalid("role %s does not belong to the user's tenant", roleID)
		}
		return tx.UserRoles.Add(ctx, userID, roleID, identity.Actor(ctx))
	})
	if err != nil {
		return err
	}
	e.logger.Info("Role assigned to user",
		zap.String("user_id", userID.String()),
		zap.String("role_id", roleID.String()),
	)
	return nil
}

// RevokeRoleFromUser removes the user-role edge. Revoking a missing edge is a no-op.
func (e *Engine) RevokeRoleFromUser(ctx context.Context, userID, roleID uuid.UUID) error {
	removed, err := e.store.UserRoles.Remove(ctx, userID, roleID)
	if err != nil {
		return err
	}
	if removed {
		e.logger.Info("Role revoked from user",
			zap.String("user_id", userID.String()),
			zap.String("role_id", roleID.String()),
		)
	}
	return nil
}

// AssignPermissionToRole adds the role-permission edge. Assigning an existing edge is a no-op.
func (e *Engine) AssignPermissionToRole(ctx context.Context, roleID, permissionID uuid.UUID) error {
	err := e.store.WithTx(ctx, func(tx *store.Store) error {
		role, err := tx.Roles.Lock(ctx, roleID)
		if err != nil {
			return err
		}
		if role == nil {
			return apperr.NotFound("role")
		}
		perm, err := tx.Permissions.Lock(ctx, permissionID)
		if err != nil {
			return err
		}
		if perm == nil {
			return apperr.NotFound("permission")
		}
		return tx.RolePermissions.Add(ctx, roleID, permissionID, identity.Actor(ctx))
	})
	if err != nil {
		return err
	}
	e.logger.Info("Permission assigned to role",
		zap.String("role_id", roleID.String()),
		zap.String("permission_id", permissionID.String()),
	)
	return nil
}

// RevokePermissionFromRole removes the role-permission edge. Revoking a missing edge is a no-op.
func (e *Engine) RevokePermissionFromRole(ctx context.Context, roleID, permissionID uuid.UUID) error {
	removed, err := e.store.RolePermissions.Remove(ctx, roleID, permissionID)
	if err != nil {
		return err
	}
	if removed {
		e.logger.Info("Permission revoked from role",
			zap.String("role_id", roleID.String()),
			zap.String("permission_id", permissionID.String()),
		)
	}
	return nil
}

// ReplaceRoleAssignments makes roleIDs the exact role set of userID in one transaction
func (e *Engine) ReplaceRoleAssignments(ctx context.Context, userID uuid.UUID, roleIDs []uuid.UUID) error {
	ids := dedupe(roleIDs)
	actor := identity.Actor(ctx)

	return e.store.WithTx(ctx, func(tx *store.Store) error {
		user, err := tx.Users.Lock(ctx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return apperr.NotFound("user")
		}

		roles, err := tx.Roles.ListByIDs(ctx, ids)
		if err != nil {
			return err
		}
		if len(roles) != len(ids) {
			return apperr.NotFound("role")
		}
		for _, role := range roles {
			if role.TenantID != user.TenantID {
				return apperr.Invalid("role %s does not belong to the user's tenant", role.ID)
			}
		}

		current, err := tx.UserRoles.RoleIDsOf(ctx, userID)
		if err != nil {
			return err
		}
		stale, missing := diff(current, ids)
		for _, id := range stale {
			if _, err := tx.UserRoles.Remove(ctx, userID, id); err != nil {
				return err
			}
		}
		for _, id := range missing {
			if err := tx.UserRoles.Add(ctx, userID, id, actor); err != nil {
				return err
			}
		}

		e.logger.Info("User roles replaced",
			zap.String("user_id", userID.String()),
			zap.Int("role_count", len(ids)),
		)
		return nil
	})
}

// ReplacePermissionAssignments makes permissionIDs the exact permission set of roleID in one transaction
func (e *Engine) ReplacePermissionAssignments(ctx context.Context, roleID uuid.UUID, permissionIDs []uuid.UUID) error {
	ids := dedupe(permissionIDs)
	actor := identity.Actor(ctx)

	return e.store.WithTx(ctx, func(tx *store.Store) error {
		role, err := tx.Roles.Lock(ctx, roleID)
		if err != nil {
			return err
		}
		if role == nil {
			return apperr.NotFound("role")
		}

		perms, err := tx.Permissions.ListByIDs(ctx, ids)
		if err != nil {
			return err
		}
		if len(perms) != len(ids) {
			return apperr.NotFound("permission")
		}

		current, err := tx.RolePermissions.PermissionIDsOf(ctx, roleID)
		if err != nil {
			return err
		}
		stale, missing := diff(current, ids)
		for _, id := range stale {
			if _, err := tx.RolePermissions.Remove(ctx, roleID, id); err != nil {
				return err
			}
		}
		for _, id := range missing {
			if err := tx.RolePermissions.Add(ctx, roleID, id, actor); err != nil {
				return err
			}
		}

		e.logger.Info("Role permissions replaced",
			zap.String("role_id", roleID.String()),
			zap.Int("permission_count", len(ids)),
		)
		return nil
	})
}

// EffectivePermissions returns the union of permissions granted by the user's active roles.
// Inactive permissions are excluded.
func (e *Engine) EffectivePermissions(ctx context.Context, userID uuid.UUID) (PermissionSet, error) {
	perms, err := e.store.Permissions.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return newPermissionSet(perms), nil
}

// Authorize returns ErrForbidden unless userID holds action on resource
func (e *Engine) Authorize(ctx context.Context, userID uuid.UUID, resource, action string) error {
	set, err := e.EffectivePermissions(ctx, userID)
	if err != nil {
		return err
	}
	if !set.Has(resource, action) {
		metrics.RecordAuthError("forbidden")
		e.logger.Warn("Permission denied",
			zap.String("user_id", userID.String()),
			zap.String("permission", model.PermissionKey(resource, action)),
		)
		return apperr.ErrForbidden
	}
	return nil
}

// UserRoles returns the roles assigned to userID
func (e *Engine) UserRoles(ctx context.Context, userID uuid.UUID) ([]model.Role, error) {
	return e.store.Roles.ListByUser(ctx, userID)
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// diff splits current against want into ids to drop and ids to add. Unchanged edges keep their attribution.
func diff(current, want []uuid.UUID) (stale, missing []uuid.UUID) {
	has := make(map[uuid.UUID]bool, len(current))
	for _, id := range current {
		has[id] = true
	}
	keep := make(map[uuid.UUID]bool, len(want))
	for _, id := range want {
		keep[id] = true
		if !has[id] {
			missing = append(missing, id)
			has[id] = true
		}
	}
	for _, id := range current {
		if !keep[id] {
			stale = append(stale, id)
		}
	}
	return stale, missing
}
