package database

import (
	"context"

	"github.com/amoylab/cleanbill/internal/common/errorx"
	"github.com/amoylab/cleanbill/internal/identity"

	"gorm.io/gorm"
)

// CreatePayment records a payment
func (s *Store) CreatePayment(ctx context.Context, payment *Payment) error {
	return s.conn(ctx).Create(payment).Error
}

// GetPayment retrieves a live payment visible to the caller
func (s *Store) GetPayment(ctx context.Context, caller identity.Caller, id string) (*Payment, error) {
	var payment Payment
	err := s.conn(ctx).Scopes(TenantScope(caller)).Where("id = ?", id).First(&payment).Error
	if err != nil {
		return nil, notFound(err, errorx.ErrPaymentNotFound)
	}
	return &payment, nil
}

// ListPayments retrieves live payments, optionally for one invoice, newest first
func (s *Store) ListPayments(ctx context.Context, caller identity.Caller, invoiceID string, page Page) ([]*Payment, int64, error) {
	q := s.conn(ctx).Model(&Payment{}).Scopes(TenantScope(caller))
	if invoiceID != "" {
		q = q.Where("invoice_id = ?", invoiceID)
	}

	var payments []*Payment
	total, err := findPage(q, page, &payments, func(db *gorm.DB) *gorm.DB {
		return db.Order("payment_date DESC").Order("created_at DESC")
	})
	return payments, total, err
}

// SoftDeletePayment marks a payment deleted
func (s *Store) SoftDeletePayment(ctx context.Context, id string) error {
	return s.conn(ctx).Where("id = ?", id).Delete(&Payment{}).Error
}
