package database

import (
	"context"
	"strings"

	"github.com/amoylab/cleanbill/internal/common/errorx"
	"github.com/amoylab/cleanbill/internal/identity"

	"gorm.io/gorm"
)

// ClientFilter narrows ListClients
type ClientFilter struct {
	Search   string
	IsActive *bool
}

// CreateClient creates a new client
func (s *Store) CreateClient(ctx context.Context, client *Client) error {
	return s.conn(ctx).Create(client).Error
}

// GetClient retrieves a live client visible to the caller
func (s *Store) GetClient(ctx context.Context, caller identity.Caller, id string) (*Client, error) {
	var client Client
	err := s.conn(ctx).Scopes(TenantScope(caller)).Where("id = ?", id).First(&client).Error
	if err != nil {
		return nil, notFound(err, errorx.ErrClientNotFound)
	}
	return &client, nil
}

// ListClients retrieves live clients ordered by name
func (s *Store) ListClients(ctx context.Context, caller identity.Caller, filter ClientFilter, page Page) ([]*Client, int64, error) {
	q := s.conn(ctx).Model(&Client{}).Scopes(TenantScope(caller))
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", like, like)
	}
	if filter.IsActive != nil {
		q = q.Where("is_active = ?", *filter.IsActive)
	}

	var clients []*Client
	total, err := findPage(q, page, &clients, func(db *gorm.DB) *gorm.DB { return db.Order("name ASC").Order("id ASC") })
	return clients, total, err
}

// ClientNameTaken reports whether another live client in the tenant uses name
func (s *Store) ClientNameTaken(ctx context.Context, tenantID, name, excludeID string) (bool, error) {
	q := s.conn(ctx).Model(&Client{}).Where("tenant_id = ? AND name = ?", tenantID, name)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	var count int64
	err := q.Count(&count).Error
	return count > 0, err
}

// SoftDeleteClient deactivates the client and marks it deleted
func (s *Store) SoftDeleteClient(ctx context.Context, id string) error {
	db := s.conn(ctx)
	if err := db.Model(&Client{}).Where("id = ?", id).Update("is_active", false).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&Client{}).Error
}

// ClientPropertyCounts counts the live properties of each given client
func (s *Store) ClientPropertyCounts(ctx context.Context, clientIDs []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(clientIDs))
	if len(clientIDs) == 0 {
		return counts, nil
	}
	var rows []struct {
		ClientID string
		Count    int64
	}
	err := s.conn(ctx).Model(&Property{}).
		Select("client_id, COUNT(*) AS count").
		Where("client_id IN ?", clientIDs).
		Group("client_id").
		Scan(&rows).Error
	for _, r := range rows {
		counts[r.ClientID] = r.Count
	}
	return counts, err
}

// UpdateColumns writes the named columns of model, including zero values
func (s *Store) UpdateColumns(ctx context.Context, model any, columns ...string) error {
	return s.conn(ctx).Model(model).Select(columns).Updates(model).Error
}
