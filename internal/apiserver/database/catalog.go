package database

import (
	"context"
	"strings"

	"github.com/amoylab/cleanbill/internal/common/errorx"
	"github.com/amoylab/cleanbill/internal/identity"

	"gorm.io/gorm"
)

// ServiceTypeFilter narrows ListServiceTypes
type ServiceTypeFilter struct {
	Search   string
	IsActive *bool
}

func bySortOrder(db *gorm.DB) *gorm.DB {
	return db.Order("sort_order ASC").Order("id ASC")
}

// CreateServiceType creates a service type together with its checklist items
func (s *Store) CreateServiceType(ctx context.Context, st *ServiceType) error {
	return s.conn(ctx).Create(st).Error
}

// GetServiceType retrieves a live service type with its ordered checklist
func (s *Store) GetServiceType(ctx context.Context, caller identity.Caller, id string) (*ServiceType, error) {
	var st ServiceType
	err := s.conn(ctx).Scopes(TenantScope(caller)).
		Preload("ChecklistItems", bySortOrder).
		Where("id = ?", id).
		First(&st).Error
	if err != nil {
		return nil, notFound(err, errorx.ErrServiceTypeNotFound)
	}
	return &st, nil
}

// FindServiceTypes returns the live service types among ids in the given tenant
func (s *Store) FindServiceTypes(ctx context.Context, tenantID string, ids []string) ([]*ServiceType, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var sts []*ServiceType
	err := s.conn(ctx).Where("tenant_id = ? AND id IN ?", tenantID, ids).Find(&sts).Error
	return sts, err
}

// ListServiceTypes retrieves live service types in creation order
func (s *Store) ListServiceTypes(ctx context.Context, caller identity.Caller, filter ServiceTypeFilter, page Page) ([]*ServiceType, int64, error) {
	q := s.conn(ctx).Model(&ServiceType{}).Scopes(TenantScope(caller))
	if filter.Search != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.IsActive != nil {
		q = q.Where("is_active = ?", *filter.IsActive)
	}

	var sts []*ServiceType
	total, err := findPage(q.Preload("ChecklistItems", bySortOrder), page, &sts, creationOrder)
	return sts, total, err
}

// ServiceTypeNameTaken reports whether another live service type in the tenant uses name
func (s *Store) ServiceTypeNameTaken(ctx context.Context, tenantID, name, excludeID string) (bool, error) {
	q := s.conn(ctx).Model(&ServiceType{}).Where("tenant_id = ? AND name = ?", tenantID, name)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	var count int64
	err := q.Count(&count).Error
	return count > 0, err
}

// ReplaceChecklist swaps the whole checklist of a service type
func (s *Store) ReplaceChecklist(ctx context.Context, st *ServiceType, items []ChecklistItem) error {
	db := s.conn(ctx)
	if err := db.Unscoped().Where("service_type_id = ?", st.ID).Delete(&ChecklistItem{}).Error; err != nil {
		return err
	}
	for i := range items {
		items[i].ID = ""
		items[i].TenantID = st.TenantID
		items[i].ServiceTypeID = st.ID
	}
	if len(items) > 0 {
		if err := db.Create(&items).Error; err != nil {
			return err
		}
	}
	st.ChecklistItems = items
	return nil
}

// SoftDeleteServiceType marks a service type and its checklist deleted
func (s *Store) SoftDeleteServiceType(ctx context.Context, id string) error {
	db := s.conn(ctx)
	if err := db.Where("service_type_id = ?", id).Delete(&ChecklistItem{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&ServiceType{}).Error
}
