// Package tenant administers tenants. Every operation is reserved to superadmins.
package tenant

import (
	"context"
	"regexp"
	"strings"

	"github.com/amoylab/cleanbill/internal/apiserver/database"
	"github.com/amoylab/cleanbill/internal/common/errorx"
	"github.com/amoylab/cleanbill/internal/identity"

	"go.uber.org/zap"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

type Store interface {
	CreateTenant(ctx context.Context, tenant *database.Tenant) error
	GetTenantByID(ctx context.Context, id string) (*database.Tenant, error)
	ListTenants(ctx context.Context, activeOnly bool, page database.Page) ([]*database.Tenant, int64, error)
	UpdateTenant(ctx context.Context, tenant *database.Tenant) error
}

type UpdateParams struct {
	Name     *string
	IsActive *bool
}

type Service struct {
	store  Store
	logger *zap.Logger
}

func NewService(store Store, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger.Named("tenant"),
	}
}

func (s *Service) Create(ctx context.Context, caller identity.Caller, name, slug string) (*database.Tenant, error) {
	if err := caller.RequireSuperAdmin(); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errorx.ErrValidation.WithDetail("reason", "name is required")
	}
	if !slugPattern.MatchString(slug) {
		return nil, errorx.ErrValidation.WithDetail("reason", "slug must be lowercase letters, digits and dashes")
	}

	tenant := &database.Tenant{Name: name, Slug: slug, IsActive: true}
	if err := s.store.CreateTenant(ctx, tenant); err != nil {
		return nil, err
	}
	s.logger.Info("tenant created", zap.String("tenant_id", tenant.ID), zap.String("slug", slug), zap.String("by", caller.UserID))
	return tenant, nil
}

func (s *Service) Get(ctx context.Context, caller identity.Caller, id string) (*database.Tenant, error) {
	if err := caller.RequireSuperAdmin(); err != nil {
		return nil, err
	}
	return s.store.GetTenantByID(ctx, id)
}

func (s *Service) List(ctx context.Context, caller identity.Caller, page database.Page) ([]*database.Tenant, int64, error) {
	if err := caller.RequireSuperAdmin(); err != nil {
		return nil, 0, err
	}
	return s.store.ListTenants(ctx, false, page)
}

// Update renames or (de)activates a tenant; the system tenant is protected
func (s *Service) Update(ctx context.Context, caller identity.Caller, id string, params UpdateParams) (*database.Tenant, error) {
	if err := caller.RequireSuperAdmin(); err != nil {
		return nil, err
	}
	tenant, err := s.store.GetTenantByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tenant.Slug == identity.SystemTenantSlug {
		return nil, errorx.ErrSystemTenantProtected
	}

	if params.Name != nil {
		name := strings.TrimSpace(*params.Name)
		if name == "" {
			return nil, errorx.ErrValidation.WithDetail("reason", "name is required")
		}
		tenant.Name = name
	}
	if params.IsActive != nil {
		tenant.IsActive = *params.IsActive
	}
	if err := s.store.UpdateTenant(ctx, tenant); err != nil {
		return nil, err
	}
	s.logger.Info("tenant updated", zap.String("tenant_id", id), zap.Bool("active", tenant.IsActive), zap.String("by", caller.UserID))
	return tenant, nil
}
