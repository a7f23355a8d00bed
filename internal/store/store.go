// Package store persists tenants, users, roles, permissions and their
// relationship edges. Lookups that miss return (nil, nil); callers decide
// whether absence is an error.
package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ssiitsupport/SSI360V2/internal/apperr"
	"github.com/ssiitsupport/SSI360V2/internal/model"
	"gorm.io/gorm"
)

// Store groups the repositories bound to one database handle or transaction
type Store struct {
	db *gorm.DB

	Tenants         *TenantRepository
	Users           *UserRepository
	Roles           *RoleRepository
	Permissions     *PermissionRepository
	UserRoles       *UserRoleRepository
	RolePermissions *RolePermissionRepository
}

// New binds a Store to db
func New(db *gorm.DB) *Store {
	return &Store{
		db:              db,
		Tenants:         &TenantRepository{Repository: newRepository[model.Tenant](db, "tenant")},
		Users:           &UserRepository{Repository: newRepository[model.User](db, "user")},
		Roles:           &RoleRepository{Repository: newRepository[model.Role](db, "role")},
		Permissions:     &PermissionRepository{Repository: newRepository[model.Permission](db, "permission")},
		UserRoles:       &UserRoleRepository{db: db},
		RolePermissions: &RolePermissionRepository{db: db},
	}
}

// DB returns the underlying handle
func (s *Store) DB() *gorm.DB {
	return s.db
}

// WithTx runs fn with a Store bound to a single transaction. The transaction
// commits when fn returns nil and rolls back on error or panic. Nested calls
// use savepoints.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(New(tx))
	})
}

// isUniqueViolation detects a uniqueness failure reported by the database
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// isForeignKeyViolation detects a write rejected by a foreign key constraint
func isForeignKeyViolation(err error) bool {
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

// constraintError maps a foreign key violation on op to a domain error.
// Deletes are blocked by dependents; inserts and updates reference a missing row.
func constraintError(op, name string, err error) error {
	if !isForeignKeyViolation(err) {
		return nil
	}
	if op == "delete" {
		return apperr.Conflict("%s is still referenced", name)
	}
	return apperr.Invalid("%s references a record that does not exist", name)
}
