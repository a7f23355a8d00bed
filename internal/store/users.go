package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ssiitsupport/SSI360V2/internal/model"
	metrics "github.com/ssiitsupport/SSI360V2/prometheus"
	"gorm.io/gorm"
)

// UserRepository persists users
type UserRepository struct {
	Repository[model.User]
}

// UserDetails is a user together with its tenant and assigned roles
type UserDetails struct {
	User   model.User
	Tenant *model.Tenant
	Roles  []model.Role
}

// GetByEmailInTenant finds the user with email inside tenantID
func (r *UserRepository) GetByEmailInTenant(ctx context.Context, email string, tenantID uuid.UUID) (*model.User, error) {
	return r.first(ctx, r.db.WithContext(ctx).Where("email = ? AND tenant_id = ?", email, tenantID))
}

// FindByEmail returns every account with email across all tenants, oldest first
func (r *UserRepository) FindByEmail(ctx context.Context, email string) ([]model.User, error) {
	return r.find(ctx, r.db.WithContext(ctx).Where("email = ?", email).Order("created_at ASC, id ASC"))
}

// ListByRole returns the users holding roleID
func (r *UserRepository) ListByRole(ctx context.Context, roleID uuid.UUID) ([]model.User, error) {
	return r.find(ctx, r.db.WithContext(ctx).
		Joins("JOIN user_roles ON user_roles.user_id = users.id").
		Where("user_roles.role_id = ?", roleID).
		Order("users.created_at ASC, users.id ASC"))
}

// List pages through users, searching first name, last name and email
func (r *UserRepository) List(ctx context.Context, q ListQuery) (Page[model.User], error) {
	return r.page(ctx, q, []string{"first_name", "last_name", "email"}, tenantScope(q.TenantID))
}

// SetLastLogin records a successful login time
func (r *UserRepository) SetLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	defer metrics.TrackDBOperation("update")()
	err := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Update("last_login_at", at.UTC()).Error
	if err != nil {
		return r.wrap("update", err)
	}
	return nil
}

// Delete removes the user and its role assignments
func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		edges := &UserRoleRepository{db: tx}
		if err := edges.RemoveAllForUser(ctx, id); err != nil {
			return err
		}
		repo := newRepository[model.User](tx, r.name)
		return repo.Delete(ctx, id)
	})
}

// Expand loads tenants and roles for users in a fixed number of queries
func (r *UserRepository) Expand(ctx context.Context, users ...model.User) ([]UserDetails, error) {
	details := make([]UserDetails, len(users))
	if len(users) == 0 {
		return details, nil
	}

	userIDs := make([]uuid.UUID, len(users))
	tenantIDs := make([]uuid.UUID, 0, len(users))
	seenTenant := make(map[uuid.UUID]bool)
	for i, u := range users {
		userIDs[i] = u.ID
		if !seenTenant[u.TenantID] {
			seenTenant[u.TenantID] = true
			tenantIDs = append(tenantIDs, u.TenantID)
		}
	}

	tenantRepo := newRepository[model.Tenant](r.db, "tenant")
	tenants, err := tenantRepo.ListByIDs(ctx, tenantIDs)
	if err != nil {
		return nil, err
	}
	tenantByID := make(map[uuid.UUID]*model.Tenant, len(tenants))
	for i := range tenants {
		tenantByID[tenants[i].ID] = &tenants[i]
	}

	var edges []model.UserRole
	if err := r.db.WithContext(ctx).Where("user_id IN ?", userIDs).Find(&edges).Error; err != nil {
		return nil, fmt.Errorf("failed to load user roles: %w", err)
	}
	roleIDs := make([]uuid.UUID, 0, len(edges))
	for _, e := range edges {
		roleIDs = append(roleIDs, e.RoleID)
	}
	roleRepo := newRepository[model.Role](r.db, "role")
	roles, err := roleRepo.ListByIDs(ctx, roleIDs)
	if err != nil {
		return nil, err
	}
	roleByID := make(map[uuid.UUID]model.Role, len(roles))
	for _, role := range roles {
		roleByID[role.ID] = role
	}
	rolesByUser := make(map[uuid.UUID][]model.Role)
	for _, e := range edges {
		if role, ok := roleByID[e.RoleID]; ok {
			rolesByUser[e.UserID] = append(rolesByUser[e.UserID], role)
		}
	}

	for i, u := range users {
		held := rolesByUser[u.ID]
		if held == nil {
			held = []model.Role{}
		}
		sortRoles(held)
		details[i] = UserDetails{User: u, Tenant: tenantByID[u.TenantID], Roles: held}
	}
	return details, nil
}
