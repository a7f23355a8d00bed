package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ssiitsupport/SSI360V2/internal/access"
	"github.com/ssiitsupport/SSI360V2/internal/apperr"
	"github.com/ssiitsupport/SSI360V2/internal/identity"
	"github.com/ssiitsupport/SSI360V2/internal/model"
	"github.com/ssiitsupport/SSI360V2/internal/store"
	"github.com/ssiitsupport/SSI360V2/pkg/logger"
	metrics "github.com/ssiitsupport/SSI360V2/prometheus"
	"go.uber.org/zap"
)

// TenantService manages tenants
type TenantService struct {
	store  *store.Store
	engine *access.Engine
	logger *zap.Logger
	now    func() time.Time
}

// NewTenantService creates a TenantService
func NewTenantService(s *store.Store, engine *access.Engine, log *zap.Logger) *TenantService {
	if log == nil {
		log = zap.NewNop()
	}
	return &TenantService{store: s, engine: engine, logger: log, now: time.Now}
}

// Create adds a tenant with a globally unique domain. Only operators create tenants.
func (s *TenantService) Create(ctx context.Context, req CreateTenantRequest) (*TenantProfile, error) {
	if err := s.engine.RequireOperator(ctx); err != nil {
		return nil, err
	}
	name, domain, err := tenantFields(req.Name, req.Domain)
	if err != nil {
		return nil, err
	}
	if err := s.ensureDomainFree(ctx, domain); err != nil {
		return nil, err
	}

	tenant := &model.Tenant{Name: name, Domain: domain, IsActive: true}
	tenant.Stamp(identity.Actor(ctx), s.now())
	if err := s.store.Tenants.Create(ctx, tenant); err != nil {
		return nil, err
	}

	metrics.RecordDirectoryOperation("tenant", "create")
	logger.FromContextOr(ctx, s.logger).Info("Tenant created",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("domain", tenant.Domain),
	)
	profile := newTenantProfile(*tenant)
	return &profile, nil
}

// Update replaces the tenant's name, domain and active flag
func (s *TenantService) Update(ctx context.Context, id uuid.UUID, req UpdateTenantRequest) (*TenantProfile, error) {
	name, domain, err := tenantFields(req.Name, req.Domain)
	if err != nil {
		return nil, err
	}
	if err := s.engine.CheckTenant(ctx, id); err != nil {
		return nil, err
	}

	var tenant *model.Tenant
	err = s.store.WithTx(ctx, func(tx *store.Store) error {
		if tenant, err = tx.Tenants.Lock(ctx, id); err != nil {
			return err
		}
		if tenant == nil {
			return apperr.NotFound("tenant")
		}
		if domain != tenant.Domain {
			existing, err := tx.Tenants.GetByDomain(ctx, domain)
			if err != nil {
				return err
			}
			if existing != nil && existing.ID != id {
				return apperr.Conflict("tenant domain %s already exists", domain)
			}
		}

		tenant.Name = name
		tenant.Domain = domain
		tenant.IsActive = req.IsActive
		tenant.Touch(identity.Actor(ctx), s.now())
		return tx.Tenants.Update(ctx, tenant)
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordDirectoryOperation("tenant", "update")
	logger.FromContextOr(ctx, s.logger).Info("Tenant updated", zap.String("tenant_id", id.String()))
	profile := newTenantProfile(*tenant)
	return &profile, nil
}

// Get returns a tenant by id
func (s *TenantService) Get(ctx context.Context, id uuid.UUID) (*TenantProfile, error) {
	tenant, err := s.store.Tenants.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, apperr.NotFound("tenant")
	}
	if err := s.engine.CheckTenant(ctx, tenant.ID); err != nil {
		return nil, err
	}
	profile := newTenantProfile(*tenant)
	return &profile, nil
}

// GetByDomain returns a tenant by its domain
func (s *TenantService) GetByDomain(ctx context.Context, domain string) (*TenantProfile, error) {
	tenant, err := s.store.Tenants.GetByDomain(ctx, normalizeDomain(domain))
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, apperr.NotFound("tenant")
	}
	if err := s.engine.CheckTenant(ctx, tenant.ID); err != nil {
		return nil, err
	}
	profile := newTenantProfile(*tenant)
	return &profile, nil
}

// Delete removes a tenant that no longer owns users or roles
func (s *TenantService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.engine.CheckTenant(ctx, id); err != nil {
		return err
	}
	ok, err := s.store.Tenants.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("tenant")
	}
	if err := s.store.Tenants.Delete(ctx, id); err != nil {
		return err
	}
	metrics.RecordDirectoryOperation("tenant", "delete")
	logger.FromContextOr(ctx, s.logger).Info("Tenant deleted", zap.String("tenant_id", id.String()))
	return nil
}

// List pages through tenants
func (s *TenantService) List(ctx context.Context, q store.ListQuery) (*PaginatedResult[TenantProfile], error) {
	q, err := s.engine.ScopeQuery(ctx, q)
	if err != nil {
		return nil, err
	}
	page, err := s.store.Tenants.List(ctx, q)
	if err != nil {
		return nil, err
	}
	items := make([]TenantProfile, len(page.Items))
	for i, t := range page.Items {
		items[i] = newTenantProfile(t)
	}
	result := paginate(page, items)
	return &result, nil
}

// Current returns the tenant of the authenticated principal
func (s *TenantService) Current(ctx context.Context) (*TenantProfile, error) {
	p, ok := identity.FromContext(ctx)
	if !ok || p.TenantID == uuid.Nil {
		return nil, apperr.ErrUnauthorized
	}
	return s.Get(ctx, p.TenantID)
}

func (s *TenantService) ensureDomainFree(ctx context.Context, domain string) error {
	existing, err := s.store.Tenants.GetByDomain(ctx, domain)
	if err != nil {
		return err
	}
	if existing != nil {
		return apperr.Conflict("tenant domain %s already exists", domain)
	}
	return nil
}

func tenantFields(name, domain string) (string, string, error) {
	name = strings.TrimSpace(name)
	domain = normalizeDomain(domain)
	if name == "" {
		return "", "", apperr.Invalid("tenant name is required")
	}
	if domain == "" {
		return "", "", apperr.Invalid("tenant domain is required")
	}
	return name, domain, nil
}

// domains are stored lower-cased
func normalizeDomain(domain string) string {
	return strings.ToLower(strings.TrimSpace(domain))
}
