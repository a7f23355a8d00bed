package access

import (
	"context"

	"github.com/google/uuid"
	"github.com/ssiitsupport/SSI360V2/internal/apperr"
	"github.com/ssiitsupport/SSI360V2/internal/identity"
	"github.com/ssiitsupport/SSI360V2/internal/store"
	metrics "github.com/ssiitsupport/SSI360V2/prometheus"
	"go.uber.org/zap"
)

// WithOperatorTenant returns an Engine whose principals from the tenant with
// domain act across every tenant. Everyone else is confined to their own tenant.
func (e *Engine) WithOperatorTenant(domain string) *Engine {
	return &Engine{store: e.store, logger: e.logger, operatorDomain: domain}
}

// CheckTenant returns ErrForbidden unless the principal in ctx may act on tenantID.
// Callers without a tenant-bound principal are internal and always allowed.
func (e *Engine) CheckTenant(ctx context.Context, tenantID uuid.UUID) error {
	p, scoped := scopedPrincipal(ctx)
	if !scoped || p.TenantID == tenantID {
		return nil
	}
	operator, err := e.isOperator(ctx, p)
	if err != nil {
		return err
	}
	if !operator {
		return e.denyTenant(p, tenantID)
	}
	return nil
}

// RequireOperator returns ErrForbidden unless the principal in ctx may act across tenants
func (e *Engine) RequireOperator(ctx context.Context) error {
	p, scoped := scopedPrincipal(ctx)
	if !scoped {
		return nil
	}
	operator, err := e.isOperator(ctx, p)
	if err != nil {
		return err
	}
	if !operator {
		return e.denyTenant(p, uuid.Nil)
	}
	return nil
}

// ScopeQuery confines a listing to the principal's tenant. An explicit filter
// on another tenant is forbidden unless the principal is an operator.
func (e *Engine) ScopeQuery(ctx context.Context, q store.ListQuery) (store.ListQuery, error) {
	p, scoped := scopedPrincipal(ctx)
	if !scoped {
		return q, nil
	}
	if q.TenantID != nil {
		return q, e.CheckTenant(ctx, *q.TenantID)
	}
	operator, err := e.isOperator(ctx, p)
	if err != nil {
		return q, err
	}
	if !operator {
		own := p.TenantID
		q.TenantID = &own
	}
	return q, nil
}

func (e *Engine) isOperator(ctx context.Context, p identity.Principal) (bool, error) {
	if e.operatorDomain == "" {
		return false, nil
	}
	tenant, err := e.store.Tenants.GetByDomain(ctx, e.operatorDomain)
	if err != nil {
		return false, err
	}
	return tenant != nil && tenant.ID == p.TenantID, nil
}

func (e *Engine) denyTenant(p identity.Principal, tenantID uuid.UUID) error {
	metrics.RecordAuthError("tenant_scope")
	e.logger.Warn("Cross-tenant access denied",
		zap.String("user_id", p.UserID.String()),
		zap.String("principal_tenant_id", p.TenantID.String()),
		zap.String("target_tenant_id", tenantID.String()),
	)
	return apperr.ErrForbidden
}

// a principal without a tenant is an internal caller such as the seeder
func scopedPrincipal(ctx context.Context) (identity.Principal, bool) {
	p, ok := identity.FromContext(ctx)
	if !ok || p.TenantID == uuid.Nil {
		return p, false
	}
	return p, true
}
