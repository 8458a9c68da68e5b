package database

import (
	"context"
	"time"

	"github.com/amoylab/cleanbill/internal/common/errorx"
	"github.com/amoylab/cleanbill/internal/identity"

	"gorm.io/gorm"
)

// InvoiceFilter narrows ListInvoices. Empty fields are ignored.
type InvoiceFilter struct {
	Status     InvoiceStatus
	PropertyID string
	ClientID   string
}

func preloadInvoice(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Property", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Preload("Property.Client", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Preload("Items", bySortOrder).
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("payment_date ASC").Order("created_at ASC") })
}

// CreateInvoice inserts an invoice and its items. A number collision surfaces as ErrInvoiceNumberConflict.
func (s *Store) CreateInvoice(ctx context.Context, invoice *Invoice) error {
	err := s.conn(ctx).Create(invoice).Error
	if IsDuplicateKey(err) {
		return errorx.ErrInvoiceNumberConflict.Wrap(err).WithDetail("invoiceNumber", invoice.InvoiceNumber)
	}
	return err
}

// GetInvoice retrieves a live invoice with property, client, items and payments
func (s *Store) GetInvoice(ctx context.Context, caller identity.Caller, id string) (*Invoice, error) {
	var invoice Invoice
	err := s.conn(ctx).Scopes(TenantScope(caller), preloadInvoice).
		Where("id = ?", id).
		First(&invoice).Error
	if err != nil {
		return nil, notFound(err, errorx.ErrInvoiceNotFound)
	}
	return &invoice, nil
}

// GetInvoiceForUpdate retrieves a bare invoice row and locks it
func (s *Store) GetInvoiceForUpdate(ctx context.Context, caller identity.Caller, id string) (*Invoice, error) {
	var invoice Invoice
	err := s.conn(ctx).Scopes(TenantScope(caller), ForUpdate).
		Where("id = ?", id).
		First(&invoice).Error
	if err != nil {
		return nil, notFound(err, errorx.ErrInvoiceNotFound)
	}
	return &invoice, nil
}

// ListInvoices retrieves live invoices, newest first
func (s *Store) ListInvoices(ctx context.Context, caller identity.Caller, filter InvoiceFilter, page Page) ([]*Invoice, int64, error) {
	q := s.conn(ctx).Model(&Invoice{}).Scopes(TenantScope(caller))
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.PropertyID != "" {
		q = q.Where("property_id = ?", filter.PropertyID)
	}
	if filter.ClientID != "" {
		q = q.Where("property_id IN (?)", s.propertyIDsSubquery(ctx, filter.ClientID))
	}

	var invoices []*Invoice
	total, err := findPage(q.Scopes(preloadInvoice), page, &invoices, func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at DESC").Order("id DESC")
	})
	return invoices, total, err
}

// LatestInvoiceNumber returns the highest number with the given prefix in a tenant,
// soft-deleted invoices included, or "" when there is none
func (s *Store) LatestInvoiceNumber(ctx context.Context, tenantID, prefix string) (string, error) {
	var numbers []string
	err := s.conn(ctx).Unscoped().Model(&Invoice{}).
		Where("tenant_id = ? AND invoice_number LIKE ?", tenantID, prefix+"%").
		// longer numbers sort last once a month passes 9999 invoices
		Order("LENGTH(invoice_number) DESC").
		Order("invoice_number DESC").
		Limit(1).
		Pluck("invoice_number", &numbers).Error
	if err != nil || len(numbers) == 0 {
		return "", err
	}
	return numbers[0], nil
}

// SoftDeleteInvoice marks an invoice and its items deleted
func (s *Store) SoftDeleteInvoice(ctx context.Context, id string) error {
	db := s.conn(ctx)
	if err := db.Where("invoice_id = ?", id).Delete(&InvoiceItem{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&Invoice{}).Error
}

// DueSentInvoiceIDs returns the live sent invoices of a tenant due strictly before day
func (s *Store) DueSentInvoiceIDs(ctx context.Context, caller identity.Caller, day time.Time) ([]string, error) {
	var invoices []Invoice
	err := s.conn(ctx).Scopes(TenantScope(caller)).
		Select("id", "due_date").
		Where("status = ?", InvoiceSent).
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}

	// compared in Go: sqlite stores dates as text and mysql as DATE
	var ids []string
	for _, inv := range invoices {
		if Day(inv.DueDate, time.UTC).Before(day) {
			ids = append(ids, inv.ID)
		}
	}
	return ids, nil
}

// MarkInvoicesOverdue flips the given invoices from sent to overdue and reports how many changed
func (s *Store) MarkInvoicesOverdue(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := s.conn(ctx).Model(&Invoice{}).
		Where("id IN ? AND status = ?", ids, InvoiceSent).
		Update("status", InvoiceOverdue)
	return res.RowsAffected, res.Error
}

// LivePaymentsFor returns the live payments of an invoice
func (s *Store) LivePaymentsFor(ctx context.Context, invoiceID string) ([]Payment, error) {
	var payments []Payment
	err := s.conn(ctx).Where("invoice_id = ?", invoiceID).Scopes(creationOrder).Find(&payments).Error
	return payments, err
}
