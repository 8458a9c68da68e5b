package database

import (
	"context"

	"github.com/amoylab/cleanbill/internal/common/errorx"

	"gorm.io/gorm"
)

// CreateTenant creates a new tenant
func (s *Store) CreateTenant(ctx context.Context, tenant *Tenant) error {
	err := s.conn(ctx).Create(tenant).Error
	if IsDuplicateKey(err) {
		return errorx.ErrSlugExists.WithDetail("slug", tenant.Slug)
	}
	return err
}

// GetTenantByID retrieves a tenant by ID
func (s *Store) GetTenantByID(ctx context.Context, id string) (*Tenant, error) {
	var tenant Tenant
	if err := s.conn(ctx).Where("id = ?", id).First(&tenant).Error; err != nil {
		return nil, notFound(err, errorx.ErrTenantNotFound)
	}
	return &tenant, nil
}

// GetTenantBySlug retrieves a tenant by slug
func (s *Store) GetTenantBySlug(ctx context.Context, slug string) (*Tenant, error) {
	var tenant Tenant
	if err := s.conn(ctx).Where("slug = ?", slug).First(&tenant).Error; err != nil {
		return nil, notFound(err, errorx.ErrTenantNotFound)
	}
	return &tenant, nil
}

// ListTenants retrieves tenants ordered by name
func (s *Store) ListTenants(ctx context.Context, activeOnly bool, page Page) ([]*Tenant, int64, error) {
	q := s.conn(ctx).Model(&Tenant{})
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}

	var tenants []*Tenant
	total, err := findPage(q, page, &tenants, func(db *gorm.DB) *gorm.DB { return db.Order("name ASC") })
	return tenants, total, err
}

// UpdateTenant saves name and active flag
func (s *Store) UpdateTenant(ctx context.Context, tenant *Tenant) error {
	return s.conn(ctx).Model(tenant).Select("name", "is_active").Updates(tenant).Error
}
