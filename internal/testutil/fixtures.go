package testutil

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ssiitsupport/SSI360V2/internal/model"
	"gorm.io/gorm"
)

// Tenant inserts an active tenant
func Tenant(t testing.TB, db *gorm.DB, name, domain string) *model.Tenant {
	t.Helper()
	tenant := &model.Tenant{Name: name, Domain: domain, IsActive: true}
	create(t, db, tenant)
	return tenant
}

// User inserts an active user with the given password hash
func User(t testing.TB, db *gorm.DB, tenantID uuid.UUID, email, passwordHash string) *model.User {
	t.Helper()
	user := &model.User{
		Email:        email,
		FirstName:    "Test",
		LastName:     "User",
		PasswordHash: passwordHash,
		IsActive:     true,
		TenantID:     tenantID,
	}
	create(t, db, user)
	return user
}

// Role inserts an active role
func Role(t testing.TB, db *gorm.DB, tenantID uuid.UUID, name string) *model.Role {
	t.Helper()
	role := &model.Role{Name: name, Description: name + " role", IsActive: true, TenantID: tenantID}
	create(t, db, role)
	return role
}

// Permission inserts an active permission
func Permission(t testing.TB, db *gorm.DB, resource, action string) *model.Permission {
	t.Helper()
	perm := &model.Permission{Name: action + " " + resource, Resource: resource, Action: action, IsActive: true}
	create(t, db, perm)
	return perm
}

// Assign links a user to a role
func Assign(t testing.TB, db *gorm.DB, userID, roleID uuid.UUID) {
	t.Helper()
	create(t, db, &model.UserRole{UserID: userID, RoleID: roleID, CreatedAt: time.Now().UTC(), CreatedBy: model.SystemActor})
}

// Grant links a role to a permission
func Grant(t testing.TB, db *gorm.DB, roleID, permissionID uuid.UUID) {
	t.Helper()
	create(t, db, &model.RolePermission{RoleID: roleID, PermissionID: permissionID, CreatedAt: time.Now().UTC(), CreatedBy: model.SystemActor})
}

func create(t testing.TB, db *gorm.DB, value interface{}) {
	t.Helper()
	if err := db.Create(value).Error; err != nil {
		t.Fatalf("failed to create fixture: %v", err)
	}
}
