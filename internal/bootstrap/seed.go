// Package bootstrap creates the data a fresh installation needs to be administered.
package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/ssiitsupport/SSI360V2/internal/model"
	"github.com/ssiitsupport/SSI360V2/internal/store"
	"github.com/ssiitsupport/SSI360V2/pkg/config"
	"github.com/ssiitsupport/SSI360V2/pkg/password"
	"go.uber.org/zap"
)

// AdminRoleName is the role granted every permission in the catalogue
const AdminRoleName = "Admin"

var (
	resources = []string{"Users", "Roles", "Tenants", "Permissions"}
	actions   = []struct{ action, verb string }{
		{"Read", "View"},
		{"Create", "Create"},
		{"Update", "Update"},
		{"Delete", "Delete"},
	}
)

// Seeder creates the permission catalogue, the default tenant, the Admin role and the admin user
type Seeder struct {
	store  *store.Store
	hasher *password.Hasher
	cfg    config.SeedConfig
	logger *zap.Logger
}

// NewSeeder creates a Seeder
func NewSeeder(s *store.Store, hasher *password.Hasher, cfg config.SeedConfig, log *zap.Logger) *Seeder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Seeder{store: s, hasher: hasher, cfg: cfg, logger: log}
}

// Seed is idempotent: rows that already exist are reused, missing ones are created
func (s *Seeder) Seed(ctx context.Context) error {
	return s.store.WithTx(ctx, func(tx *store.Store) error {
		perms, err := s.seedPermissions(ctx, tx)
		if err != nil {
			return err
		}

		tenant, err := tx.Tenants.GetByDomain(ctx, s.cfg.TenantDomain)
		if err != nil {
			return err
		}
		if tenant == nil {
			tenant = &model.Tenant{Name: s.cfg.TenantName, Domain: s.cfg.TenantDomain, IsActive: true}
			if err := tx.Tenants.Create(ctx, tenant); err != nil {
				return err
			}
			s.logger.Info("Seeded default tenant", zap.String("domain", tenant.Domain))
		}

		role, err := tx.Roles.GetByNameInTenant(ctx, AdminRoleName, tenant.ID)
		if err != nil {
			return err
		}
		if role == nil {
			role = &model.Role{Name: AdminRoleName, Description: "Full administrative access", IsActive: true, TenantID: tenant.ID}
			if err := tx.Roles.Create(ctx, role); err != nil {
				return err
			}
			s.logger.Info("Seeded admin role", zap.String("role_id", role.ID.String()))
		}
		for _, p := range perms {
			if err := tx.RolePermissions.Add(ctx, role.ID, p.ID, model.SystemActor); err != nil {
				return err
			}
		}

		admin, err := tx.Users.GetByEmailInTenant(ctx, s.cfg.AdminEmail, tenant.ID)
		if err != nil {
			return err
		}
		if admin == nil {
			hash, err := s.hasher.Hash(s.cfg.AdminPassword)
			if err != nil {
				return fmt.Errorf("failed to hash admin password: %w", err)
			}
			admin = &model.User{
				Email:        s.cfg.AdminEmail,
				FirstName:    "Admin",
				LastName:     "User",
				PasswordHash: hash,
				IsActive:     true,
				TenantID:     tenant.ID,
			}
			if err := tx.Users.Create(ctx, admin); err != nil {
				return err
			}
			s.logger.Info("Seeded admin user", zap.String("email", admin.Email))
		}
		return tx.UserRoles.Add(ctx, admin.ID, role.ID, model.SystemActor)
	})
}

func (s *Seeder) seedPermissions(ctx context.Context, tx *store.Store) ([]model.Permission, error) {
	perms := make([]model.Permission, 0, len(resources)*len(actions))
	for _, resource := range resources {
		for _, a := range actions {
			p, err := tx.Permissions.GetByResourceAction(ctx, resource, a.action)
			if err != nil {
				return nil, err
			}
			if p == nil {
				p = &model.Permission{
					Name:        a.verb + " " + resource,
					Description: fmt.Sprintf("Can %s %s", strings.ToLower(a.verb), strings.ToLower(resource)),
					Resource:    resource,
					Action:      a.action,
					IsActive:    true,
				}
				if err := tx.Permissions.Create(ctx, p); err != nil {
					return nil, err
				}
			}
			perms = append(perms, *p)
		}
	}
	return perms, nil
}
