package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/ssiitsupport/SSI360V2/internal/model"
	"github.com/ssiitsupport/SSI360V2/internal/store"
)

// LoginRequest carries login credentials. TenantDomain selects the account when
// the same email exists in several tenants.
type LoginRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	TenantDomain string `json:"tenant_domain,omitempty"`
}

// LoginResponse is returned on successful login
type LoginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      UserProfile `json:"user"`
}

// RegisterRequest creates a user inside an existing tenant. RoleIDs must be
// empty; it is decoded only so a request carrying roles is refused instead of silently trimmed.
type RegisterRequest struct {
	TenantID  uuid.UUID   `json:"tenant_id"`
	Email     string      `json:"email"`
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
	Password  string      `json:"password"`
	RoleIDs   []uuid.UUID `json:"role_ids,omitempty"`
}

// ChangePasswordRequest replaces the caller's password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type CreateTenantRequest struct {
	Name   string `json:"name"`
	Domain string `json:"domain"`
}

type UpdateTenantRequest struct {
	Name     string `json:"name"`
	Domain   string `json:"domain"`
	IsActive bool   `json:"is_active"`
}

type CreateUserRequest struct {
	TenantID  uuid.UUID   `json:"tenant_id"`
	Email     string      `json:"email"`
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
	Password  string      `json:"password"`
	RoleIDs   []uuid.UUID `json:"role_ids,omitempty"`
}

// UpdateUserRequest replaces the mutable user fields. A nil RoleIDs leaves
// assignments untouched; an empty slice clears them.
type UpdateUserRequest struct {
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
	IsActive  bool        `json:"is_active"`
	RoleIDs   []uuid.UUID `json:"role_ids"`
}

type CreateRoleRequest struct {
	TenantID      uuid.UUID   `json:"tenant_id"`
	Name          string      `json:"name"`
	Description   string      `json:"description"`
	PermissionIDs []uuid.UUID `json:"permission_ids,omitempty"`
}

// UpdateRoleRequest replaces the mutable role fields. A nil PermissionIDs
// leaves grants untouched; an empty slice clears them.
type UpdateRoleRequest struct {
	Name          string      `json:"name"`
	Description   string      `json:"description"`
	IsActive      bool        `json:"is_active"`
	PermissionIDs []uuid.UUID `json:"permission_ids"`
}

type CreatePermissionRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Resource    string `json:"resource"`
	Action      string `json:"action"`
}

type UpdatePermissionRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsActive    bool   `json:"is_active"`
}

// Audit is the attribution shared by every view
type Audit struct {
	CreatedAt time.Time  `json:"created_at"`
	CreatedBy string     `json:"created_by"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
	UpdatedBy *string    `json:"updated_by,omitempty"`
}

func auditOf(b model.Base) Audit {
	return Audit{CreatedAt: b.CreatedAt, CreatedBy: b.CreatedBy, UpdatedAt: b.UpdatedAt, UpdatedBy: b.UpdatedBy}
}

// UserProfile is the public view of a user with tenant and role names resolved
type UserProfile struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	FullName    string     `json:"full_name"`
	IsActive    bool       `json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	TenantID    uuid.UUID  `json:"tenant_id"`
	TenantName  string     `json:"tenant_name"`
	Roles       []string   `json:"roles"`
	Audit
}

func newUserProfile(d store.UserDetails) UserProfile {
	roles := make([]string, 0, len(d.Roles))
	for _, r := range d.Roles {
		roles = append(roles, r.Name)
	}
	p := UserProfile{
		ID:          d.User.ID,
		Email:       d.User.Email,
		FirstName:   d.User.FirstName,
		LastName:    d.User.LastName,
		FullName:    d.User.DisplayName(),
		IsActive:    d.User.IsActive,
		LastLoginAt: d.User.LastLoginAt,
		TenantID:    d.User.TenantID,
		Roles:       roles,
		Audit:       auditOf(d.User.Base),
	}
	if d.Tenant != nil {
		p.TenantName = d.Tenant.Name
	}
	return p
}

// RoleProfile is the public view of a role with its permission names resolved
type RoleProfile struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	TenantID    uuid.UUID `json:"tenant_id"`
	Permissions []string  `json:"permissions"`
	Audit
}

func newRoleProfile(d store.RoleDetails) RoleProfile {
	perms := make([]string, 0, len(d.Permissions))
	for _, p := range d.Permissions {
		perms = append(perms, p.Name)
	}
	return RoleProfile{
		ID:          d.Role.ID,
		Name:        d.Role.Name,
		Description: d.Role.Description,
		IsActive:    d.Role.IsActive,
		TenantID:    d.Role.TenantID,
		Permissions: perms,
		Audit:       auditOf(d.Role.Base),
	}
}

// TenantProfile is the public view of a tenant
type TenantProfile struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Domain   string    `json:"domain"`
	IsActive bool      `json:"is_active"`
	Audit
}

func newTenantProfile(t model.Tenant) TenantProfile {
	return TenantProfile{ID: t.ID, Name: t.Name, Domain: t.Domain, IsActive: t.IsActive, Audit: auditOf(t.Base)}
}

// PermissionProfile is the public view of a permission
type PermissionProfile struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Resource    string    `json:"resource"`
	Action      string    `json:"action"`
	Key         string    `json:"key"`
	IsActive    bool      `json:"is_active"`
	Audit
}

func newPermissionProfile(p model.Permission) PermissionProfile {
	return PermissionProfile{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Resource:    p.Resource,
		Action:      p.Action,
		Key:         p.Key(),
		IsActive:    p.IsActive,
		Audit:       auditOf(p.Base),
	}
}

// PaginatedResult is one page of a listing
type PaginatedResult[T any] struct {
	Items       []T   `json:"items"`
	TotalCount  int64 `json:"total_count"`
	TotalPages  int   `json:"total_pages"`
	CurrentPage int   `json:"current_page"`
	PageSize    int   `json:"page_size"`
}

func paginate[M any, T any](page store.Page[M], items []T) PaginatedResult[T] {
	if items == nil {
		items = []T{}
	}
	return PaginatedResult[T]{
		Items:       items,
		TotalCount:  page.TotalCount,
		TotalPages:  page.TotalPages(),
		CurrentPage: page.Query.Page,
		PageSize:    page.Query.PageSize,
	}
}
