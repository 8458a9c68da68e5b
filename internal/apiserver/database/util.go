package database

import (
	"context"
	"errors"

	"github.com/amoylab/cleanbill/internal/common/errorx"
	"github.com/amoylab/cleanbill/internal/identity"

	"go.uber.org/zap"
)

// InitSystemTenant creates the tenant hosting superadmins if it doesn't exist
func (s *Store) InitSystemTenant(ctx context.Context) (*Tenant, error) {
	existing, err := s.GetTenantBySlug(ctx, identity.SystemTenantSlug)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, errorx.ErrTenantNotFound) {
		return nil, err
	}

	tenant := &Tenant{
		Name:     "System",
		Slug:     identity.SystemTenantSlug,
		IsActive: true,
	}
	if err := s.CreateTenant(ctx, tenant); err != nil {
		// another replica won the race
		if errors.Is(err, errorx.ErrSlugExists) {
			return s.GetTenantBySlug(ctx, identity.SystemTenantSlug)
		}
		return nil, err
	}

	s.logger.Info("created system tenant", zap.String("tenant_id", tenant.ID))
	return tenant, nil
}
