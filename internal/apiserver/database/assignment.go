package database

import (
	"context"

	"github.com/amoylab/cleanbill/internal/common/errorx"
	"github.com/amoylab/cleanbill/internal/identity"

	"gorm.io/gorm"
)

// service types stay visible on assignments after being soft deleted
func preloadServiceType(db *gorm.DB) *gorm.DB {
	return db.Preload("ServiceType", func(db *gorm.DB) *gorm.DB { return db.Unscoped() })
}

// CreateAssignment inserts an assignment, reporting a live duplicate as a conflict
func (s *Store) CreateAssignment(ctx context.Context, a *PropertyServiceType) error {
	err := s.conn(ctx).Create(a).Error
	if IsDuplicateKey(err) {
		return errorx.ErrAlreadyAssigned.
			WithDetail("propertyId", a.PropertyID).
			WithDetail("serviceTypeId", a.ServiceTypeID)
	}
	return err
}

// GetAssignment retrieves a live assignment visible to the caller
func (s *Store) GetAssignment(ctx context.Context, caller identity.Caller, id string) (*PropertyServiceType, error) {
	var a PropertyServiceType
	err := s.conn(ctx).Scopes(TenantScope(caller), preloadServiceType).
		Where("id = ?", id).
		First(&a).Error
	if err != nil {
		return nil, notFound(err, errorx.ErrAssignmentNotFound)
	}
	return &a, nil
}

// PropertyAssignments returns the live assignments of a property in creation order
func (s *Store) PropertyAssignments(ctx context.Context, propertyID string) ([]PropertyServiceType, error) {
	var as []PropertyServiceType
	err := s.conn(ctx).Scopes(preloadServiceType, creationOrder).
		Where("property_id = ?", propertyID).
		Find(&as).Error
	return as, err
}

// AssignedServiceTypeIDs returns which of serviceTypeIDs already have a live assignment on the property
func (s *Store) AssignedServiceTypeIDs(ctx context.Context, propertyID string, serviceTypeIDs []string) (map[string]bool, error) {
	var ids []string
	q := s.conn(ctx).Model(&PropertyServiceType{}).Scopes(ForUpdate).Where("property_id = ?", propertyID)
	if serviceTypeIDs != nil {
		q = q.Where("service_type_id IN ?", serviceTypeIDs)
	}
	if err := q.Pluck("service_type_id", &ids).Error; err != nil {
		return nil, err
	}
	assigned := make(map[string]bool, len(ids))
	for _, id := range ids {
		assigned[id] = true
	}
	return assigned, nil
}

// SoftDeleteAssignment marks an assignment deleted
func (s *Store) SoftDeleteAssignment(ctx context.Context, id string) error {
	return s.conn(ctx).Where("id = ?", id).Delete(&PropertyServiceType{}).Error
}

// HardDeleteAssignment removes an assignment row
func (s *Store) HardDeleteAssignment(ctx context.Context, id string) error {
	return s.conn(ctx).Unscoped().Where("id = ?", id).Delete(&PropertyServiceType{}).Error
}

// SoftDeletePropertyAssignments marks every live assignment of the given properties deleted
func (s *Store) SoftDeletePropertyAssignments(ctx context.Context, propertyIDs []string) error {
	if len(propertyIDs) == 0 {
		return nil
	}
	return s.conn(ctx).Where("property_id IN ?", propertyIDs).Delete(&PropertyServiceType{}).Error
}
