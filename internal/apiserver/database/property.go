package database

import (
	"context"
	"strings"

	"github.com/amoylab/cleanbill/internal/common/errorx"
	"github.com/amoylab/cleanbill/internal/identity"

	"gorm.io/gorm"
)

// PropertyFilter narrows ListProperties. Empty fields are ignored.
type PropertyFilter struct {
	ClientID     string
	PropertyType PropertyType
	ParentID     string
	ParentsOnly  bool
	IsActive     *bool
	Search       string
}

// CreateProperty creates a new property
func (s *Store) CreateProperty(ctx context.Context, property *Property) error {
	return s.conn(ctx).Create(property).Error
}

// CreateProperties creates several properties in one statement
func (s *Store) CreateProperties(ctx context.Context, properties []*Property) error {
	if len(properties) == 0 {
		return nil
	}
	return s.conn(ctx).Create(&properties).Error
}

func preloadProperty(db *gorm.DB) *gorm.DB {
	return db.Preload("Client").Preload("Children", creationOrder)
}

// GetProperty retrieves a live property visible to the caller, with its client and live children
func (s *Store) GetProperty(ctx context.Context, caller identity.Caller, id string) (*Property, error) {
	var property Property
	err := s.conn(ctx).Scopes(TenantScope(caller), preloadProperty).
		Where("id = ?", id).
		First(&property).Error
	if err != nil {
		return nil, notFound(err, errorx.ErrPropertyNotFound)
	}
	return &property, nil
}

// GetPropertyForUpdate retrieves a property and locks its row
func (s *Store) GetPropertyForUpdate(ctx context.Context, caller identity.Caller, id string) (*Property, error) {
	var property Property
	err := s.conn(ctx).Scopes(TenantScope(caller), ForUpdate).
		Where("id = ?", id).
		First(&property).Error
	if err != nil {
		return nil, notFound(err, errorx.ErrPropertyNotFound)
	}
	return &property, nil
}

// ListProperties retrieves live properties in creation order
func (s *Store) ListProperties(ctx context.Context, caller identity.Caller, filter PropertyFilter, page Page) ([]*Property, int64, error) {
	q := s.conn(ctx).Model(&Property{}).Scopes(TenantScope(caller))
	if filter.ClientID != "" {
		q = q.Where("client_id = ?", filter.ClientID)
	}
	if filter.PropertyType != "" {
		q = q.Where("property_type = ?", filter.PropertyType)
	}
	if filter.ParentID != "" {
		q = q.Where("parent_property_id = ?", filter.ParentID)
	}
	if filter.ParentsOnly {
		q = q.Where("parent_property_id IS NULL")
	}
	if filter.IsActive != nil {
		q = q.Where("is_active = ?", *filter.IsActive)
	}
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(address) LIKE ?", like, like)
	}

	var properties []*Property
	total, err := findPage(q.Scopes(preloadProperty), page, &properties, creationOrder)
	return properties, total, err
}

// ActiveChildren returns the live, active children of a property in creation order
func (s *Store) ActiveChildren(ctx context.Context, tenantID, parentID string) ([]*Property, error) {
	var children []*Property
	err := s.conn(ctx).
		Where("tenant_id = ? AND parent_property_id = ? AND is_active = ?", tenantID, parentID, true).
		Scopes(creationOrder).
		Find(&children).Error
	return children, err
}

// CountChildren counts the live children of a property
func (s *Store) CountChildren(ctx context.Context, parentID string) (int64, error) {
	var count int64
	err := s.conn(ctx).Model(&Property{}).Where("parent_property_id = ?", parentID).Count(&count).Error
	return count, err
}

// ChildPropertyIDs returns the ids of live children of any of the given parents
func (s *Store) ChildPropertyIDs(ctx context.Context, parentIDs []string) ([]string, error) {
	if len(parentIDs) == 0 {
		return nil, nil
	}
	var ids []string
	err := s.conn(ctx).Model(&Property{}).Where("parent_property_id IN ?", parentIDs).Pluck("id", &ids).Error
	return ids, err
}

// ClientPropertyIDs returns the ids of live properties owned by a client
func (s *Store) ClientPropertyIDs(ctx context.Context, clientID string) ([]string, error) {
	var ids []string
	err := s.conn(ctx).Model(&Property{}).Where("client_id = ?", clientID).Pluck("id", &ids).Error
	return ids, err
}

// ParentOf returns the parent id of a live property, or "" for roots
func (s *Store) ParentOf(ctx context.Context, id string) (string, error) {
	var property Property
	err := s.conn(ctx).Select("id", "parent_property_id").Where("id = ?", id).First(&property).Error
	if err != nil {
		return "", notFound(err, errorx.ErrParentNotFound)
	}
	if !property.HasParent() {
		return "", nil
	}
	return *property.ParentPropertyID, nil
}

// SoftDeleteProperties deactivates the given properties and marks them deleted
func (s *Store) SoftDeleteProperties(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	db := s.conn(ctx)
	if err := db.Model(&Property{}).Where("id IN ?", ids).Update("is_active", false).Error; err != nil {
		return err
	}
	return db.Where("id IN ?", ids).Delete(&Property{}).Error
}

// propertyIDsSubquery selects the ids of a client's live properties
func (s *Store) propertyIDsSubquery(ctx context.Context, clientID string) *gorm.DB {
	return s.conn(ctx).Model(&Property{}).Select("id").Where("client_id = ?", clientID)
}
