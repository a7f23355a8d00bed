package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/ssiitsupport/SSI360V2/internal/apperr"
	"github.com/ssiitsupport/SSI360V2/internal/model"
	"gorm.io/gorm"
)

// TenantRepository persists tenants
type TenantRepository struct {
	Repository[model.Tenant]
}

// GetByDomain finds a tenant by its globally unique domain
func (r *TenantRepository) GetByDomain(ctx context.Context, domain string) (*model.Tenant, error) {
	return r.first(ctx, r.db.WithContext(ctx).Where("domain = ?", domain))
}

// List pages through tenants, searching name and domain. A TenantID filter narrows the listing to that tenant.
func (r *TenantRepository) List(ctx context.Context, q ListQuery) (Page[model.Tenant], error) {
	return r.page(ctx, q, []string{"name", "domain"}, func(db *gorm.DB) *gorm.DB {
		if q.TenantID == nil {
			return db
		}
		return db.Where("id = ?", *q.TenantID)
	})
}

// Delete removes a tenant. A tenant still owning users or roles is kept and ErrTenantInUse returned.
// The tenant row is locked first so no dependent can be added between the check and the delete;
// the restrict foreign keys reject any that slips through.
func (r *TenantRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := newRepository[model.Tenant](tx, r.name)
		if _, err := repo.Lock(ctx, id); err != nil {
			return err
		}
		for _, owned := range []interface{}{&model.User{}, &model.Role{}} {
			var count int64
			if err := tx.Model(owned).Where("tenant_id = ?", id).Count(&count).Error; err != nil {
				return fmt.Errorf("failed to count tenant dependents: %w", err)
			}
			if count > 0 {
				return apperr.ErrTenantInUse
			}
		}
		if err := repo.Delete(ctx, id); err != nil {
			if apperr.IsKind(err, apperr.KindConflict) {
				return apperr.ErrTenantInUse
			}
			return err
		}
		return nil
	})
}
