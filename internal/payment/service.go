// Package payment records payments against invoices and keeps the invoice's
// paid status in line with the sum of its live payments.
package payment

import (
	"context"
	"errors"
	"time"

	"github.com/amoylab/cleanbill/internal/apiserver/database"
	"github.com/amoylab/cleanbill/internal/common/cnst"
	"github.com/amoylab/cleanbill/internal/common/errorx"
	"github.com/amoylab/cleanbill/internal/identity"
	"github.com/amoylab/cleanbill/pkg/metrics"
	"github.com/amoylab/cleanbill/pkg/trace"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Store is the persistence the payment ledger needs
type Store interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
	GetInvoiceForUpdate(ctx context.Context, caller identity.Caller, id string) (*database.Invoice, error)
	LivePaymentsFor(ctx context.Context, invoiceID string) ([]database.Payment, error)
	CreatePayment(ctx context.Context, payment *database.Payment) error
	GetPayment(ctx context.Context, caller identity.Caller, id string) (*database.Payment, error)
	ListPayments(ctx context.Context, caller identity.Caller, invoiceID string, page database.Page) ([]*database.Payment, int64, error)
	UpdateColumns(ctx context.Context, model any, columns ...string) error
	SoftDeletePayment(ctx context.Context, id string) error
}

type CreateParams struct {
	InvoiceID     string
	Amount        decimal.Decimal
	PaymentDate   time.Time
	PaymentMethod database.PaymentMethod
	Reference     string
	Notes         string
}

// UpdateParams changes a payment; nil fields are left untouched
type UpdateParams struct {
	Amount        *decimal.Decimal
	PaymentDate   *time.Time
	PaymentMethod *database.PaymentMethod
	Reference     *string
	Notes         *string
}

type Option func(*Service)

// WithClock replaces time.Now when stamping paid dates
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLocation sets the zone that decides which calendar day "today" is
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

type Service struct {
	store   Store
	now     func() time.Time
	loc     *time.Location
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewService(store Store, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		store:  store,
		now:    time.Now,
		loc:    time.UTC,
		logger: logger.Named("payment"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Get(ctx context.Context, caller identity.Caller, id string) (*database.Payment, error) {
	return s.store.GetPayment(ctx, caller, id)
}

// List returns live payments, optionally restricted to one invoice
func (s *Service) List(ctx context.Context, caller identity.Caller, invoiceID string, page database.Page) ([]*database.Payment, int64, error) {
	return s.store.ListPayments(ctx, caller, invoiceID, page)
}

// Create records a payment and reconciles its invoice in the same transaction
func (s *Service) Create(ctx context.Context, caller identity.Caller, params CreateParams) (*database.Payment, error) {
	if err := caller.RequireWrite(); err != nil {
		return nil, err
	}
	if err := validate(params.Amount, params.PaymentMethod); err != nil {
		return nil, err
	}

	var payment *database.Payment
	err := s.store.Transaction(ctx, func(ctx context.Context) error {
		inv, err := s.store.GetInvoiceForUpdate(ctx, caller, params.InvoiceID)
		if err != nil {
			return err
		}
		payment = &database.Payment{
			Base:          database.Base{TenantID: inv.TenantID},
			InvoiceID:     inv.ID,
			Amount:        params.Amount,
			PaymentDate:   database.Day(params.PaymentDate, time.UTC),
			PaymentMethod: params.PaymentMethod,
			Reference:     params.Reference,
			Notes:         params.Notes,
		}
		if err := s.store.CreatePayment(ctx, payment); err != nil {
			return err
		}
		return s.reconcile(ctx, inv)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.PaymentRecorded(string(payment.PaymentMethod))
	s.logger.Info("payment recorded",
		zap.String("tenant_id", payment.TenantID),
		zap.String("payment_id", payment.ID),
		zap.String("invoice_id", payment.InvoiceID),
		zap.String("amount", payment.Amount.StringFixed(2)),
		zap.String("by", caller.UserID))
	return payment, nil
}

// Update changes a payment and reconciles its invoice
func (s *Service) Update(ctx context.Context, caller identity.Caller, id string, params UpdateParams) (*database.Payment, error) {
	if err := caller.RequireWrite(); err != nil {
		return nil, err
	}

	var payment *database.Payment
	err := s.store.Transaction(ctx, func(ctx context.Context) error {
		var err error
		payment, err = s.store.GetPayment(ctx, caller, id)
		if err != nil {
			return err
		}
		inv, err := s.lockInvoice(ctx, caller, payment.InvoiceID)
		if err != nil {
			return err
		}

		var columns []string
		if params.Amount != nil {
			payment.Amount = *params.Amount
			columns = append(columns, "amount")
		}
		if params.PaymentMethod != nil {
			payment.PaymentMethod = *params.PaymentMethod
			columns = append(columns, "payment_method")
		}
		if err := validate(payment.Amount, payment.PaymentMethod); err != nil {
			return err
		}
		if params.PaymentDate != nil {
			payment.PaymentDate = database.Day(*params.PaymentDate, time.UTC)
			columns = append(columns, "payment_date")
		}
		if params.Reference != nil {
			payment.Reference = *params.Reference
			columns = append(columns, "reference")
		}
		if params.Notes != nil {
			payment.Notes = *params.Notes
			columns = append(columns, "notes")
		}
		if len(columns) == 0 {
			return nil
		}
		if err := s.store.UpdateColumns(ctx, payment, columns...); err != nil {
			return err
		}
		s.logger.Info("payment updated", zap.String("payment_id", id), zap.Strings("fields", columns), zap.String("by", caller.UserID))
		return s.reconcile(ctx, inv)
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// Delete soft deletes a payment and reconciles its invoice
func (s *Service) Delete(ctx context.Context, caller identity.Caller, id string) error {
	if err := caller.RequireWrite(); err != nil {
		return err
	}

	return s.store.Transaction(ctx, func(ctx context.Context) error {
		payment, err := s.store.GetPayment(ctx, caller, id)
		if err != nil {
			return err
		}
		inv, err := s.lockInvoice(ctx, caller, payment.InvoiceID)
		if err != nil {
			return err
		}
		if err := s.store.SoftDeletePayment(ctx, id); err != nil {
			return err
		}
		s.logger.Info("payment deleted", zap.String("payment_id", id), zap.String("by", caller.UserID))
		return s.reconcile(ctx, inv)
	})
}

// lockInvoice locks the payment's invoice. A deleted invoice yields nil and
// the payment is still mutated.
func (s *Service) lockInvoice(ctx context.Context, caller identity.Caller, invoiceID string) (*database.Invoice, error) {
	inv, err := s.store.GetInvoiceForUpdate(ctx, caller, invoiceID)
	if errors.Is(err, errorx.ErrInvoiceNotFound) {
		return nil, nil
	}
	return inv, err
}

// reconcile derives the paid status of a locked invoice from its live payments.
// Only sent and overdue invoices are promoted to paid; only paid ones are
// demoted back to sent. Drafts and cancelled invoices are never touched.
func (s *Service) reconcile(ctx context.Context, inv *database.Invoice) error {
	if inv == nil {
		return nil
	}
	span := trace.Tracer(cnst.TraceBilling).Start(ctx, cnst.SpanPaymentApply).
		WithAttrs(attribute.String(cnst.AttrInvoiceID, inv.ID))
	defer span.End()
	ctx = span.Ctx

	payments, err := s.store.LivePaymentsFor(ctx, inv.ID)
	if err != nil {
		span.Fail(err)
		return err
	}
	paid := decimal.Zero
	for _, p := range payments {
		paid = paid.Add(p.Amount)
	}

	from := inv.Status
	switch {
	case paid.GreaterThanOrEqual(inv.Total) && (inv.Status == database.InvoiceSent || inv.Status == database.InvoiceOverdue):
		today := database.Day(s.now(), s.loc)
		inv.Status = database.InvoicePaid
		inv.PaidDate = &today
	case paid.LessThan(inv.Total) && inv.Status == database.InvoicePaid:
		inv.Status = database.InvoiceSent
		inv.PaidDate = nil
	default:
		return nil
	}

	if err := s.store.UpdateColumns(ctx, inv, "status", "paid_date"); err != nil {
		span.Fail(err)
		return err
	}
	span.WithAttrs(attribute.String(cnst.AttrStatus, string(inv.Status)))
	s.metrics.InvoiceStatusChanged(string(inv.Status))
	s.logger.Info("invoice status reconciled",
		zap.String("invoice_id", inv.ID),
		zap.String("from", string(from)),
		zap.String("to", string(inv.Status)),
		zap.String("paid", paid.StringFixed(2)),
		zap.String("total", inv.Total.StringFixed(2)))
	return nil
}

func validate(amount decimal.Decimal, method database.PaymentMethod) error {
	if !amount.IsPositive() {
		return errorx.ErrValidation.WithDetail("reason", "amount must be positive")
	}
	if !method.Valid() {
		return errorx.ErrValidation.WithDetail("reason", "unknown payment method "+string(method))
	}
	return database.CheckScale("amount", amount)
}
