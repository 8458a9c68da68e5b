// Package invoice builds invoices from explicit line items or from a
// property's effective services, and drives the invoice status machine.
package invoice

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/amoylab/cleanbill/internal/apiserver/database"
	"github.com/amoylab/cleanbill/internal/assignment"
	"github.com/amoylab/cleanbill/internal/common/cnst"
	"github.com/amoylab/cleanbill/internal/common/errorx"
	"github.com/amoylab/cleanbill/internal/identity"
	"github.com/amoylab/cleanbill/pkg/metrics"
	"github.com/amoylab/cleanbill/pkg/trace"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Store is the persistence the invoice service needs
type Store interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
	GetProperty(ctx context.Context, caller identity.Caller, id string) (*database.Property, error)
	ActiveChildren(ctx context.Context, tenantID, parentID string) ([]*database.Property, error)
	LatestInvoiceNumber(ctx context.Context, tenantID, prefix string) (string, error)
	CreateInvoice(ctx context.Context, invoice *database.Invoice) error
	GetInvoice(ctx context.Context, caller identity.Caller, id string) (*database.Invoice, error)
	GetInvoiceForUpdate(ctx context.Context, caller identity.Caller, id string) (*database.Invoice, error)
	ListInvoices(ctx context.Context, caller identity.Caller, filter database.InvoiceFilter, page database.Page) ([]*database.Invoice, int64, error)
	UpdateColumns(ctx context.Context, model any, columns ...string) error
	SoftDeleteInvoice(ctx context.Context, id string) error
	DueSentInvoiceIDs(ctx context.Context, caller identity.Caller, day time.Time) ([]string, error)
	MarkInvoicesOverdue(ctx context.Context, ids []string) (int64, error)
}

// Resolver yields the effective services of a loaded property
type Resolver interface {
	ResolveProperty(ctx context.Context, property *database.Property) ([]assignment.EffectiveService, error)
}

// Config tunes numbering and totals
type Config struct {
	// NumberRetries bounds how often a transaction is retried after an invoice number collision
	NumberRetries int
	// ClampNegativeTotals floors totals at zero when the discount exceeds subtotal plus tax
	ClampNegativeTotals bool
	// Location decides the numbering month and what "today" means
	Location *time.Location
}

// ItemParams is one requested line item
type ItemParams struct {
	ServiceTypeID *string
	Description   string
	// Quantity defaults to 1 when not set
	Quantity  decimal.NullDecimal
	UnitPrice decimal.Decimal
	// SortOrder defaults to the item's position
	SortOrder *int
}

// Header carries the fields shared by created and generated invoices
type Header struct {
	IssueDate   time.Time
	DueDate     time.Time
	PeriodStart *time.Time
	PeriodEnd   *time.Time
	Discount    decimal.Decimal
	Tax         decimal.Decimal
	Notes       string
}

type CreateParams struct {
	PropertyID string
	Header
	Items []ItemParams
}

type GenerateParams struct {
	PropertyID string
	Header
}

// UpdateParams changes an invoice; nil fields are left untouched. A non-nil
// PaidDate that is not Valid clears the paid date.
type UpdateParams struct {
	Status    *database.InvoiceStatus
	IssueDate *time.Time
	DueDate   *time.Time
	Discount  *decimal.Decimal
	Tax       *decimal.Decimal
	Notes     *string
	PaidDate  *sql.NullTime
}

type Option func(*Service)

// WithClock replaces time.Now, used for numbering and overdue checks
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

type Service struct {
	store    Store
	resolver Resolver
	cfg      Config
	now      func() time.Time
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

func NewService(store Store, resolver Resolver, cfg Config, logger *zap.Logger, opts ...Option) *Service {
	if cfg.NumberRetries < 1 {
		cfg.NumberRetries = 1
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	s := &Service{
		store:    store,
		resolver: resolver,
		cfg:      cfg,
		now:      time.Now,
		logger:   logger.Named("invoice"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns a live invoice with its property, items and payments
func (s *Service) Get(ctx context.Context, caller identity.Caller, id string) (*database.Invoice, error) {
	return s.store.GetInvoice(ctx, caller, id)
}

func (s *Service) List(ctx context.Context, caller identity.Caller, filter database.InvoiceFilter, page database.Page) ([]*database.Invoice, int64, error) {
	return s.store.ListInvoices(ctx, caller, filter, page)
}

// Create persists an invoice and its items atomically, in status draft
func (s *Service) Create(ctx context.Context, caller identity.Caller, params CreateParams) (*database.Invoice, error) {
	if err := caller.RequireWrite(); err != nil {
		return nil, err
	}
	if err := checkAmounts(params.Header, params.Items); err != nil {
		return nil, err
	}

	span := trace.Tracer(cnst.TraceBilling).Start(ctx, cnst.SpanInvoiceCreate).
		WithAttrs(attribute.String(cnst.AttrPropertyID, params.PropertyID))
	defer span.End()
	ctx = span.Ctx

	var id string
	err := s.withNumberRetry(ctx, func(ctx context.Context) error {
		return s.store.Transaction(ctx, func(ctx context.Context) error {
			property, err := s.store.GetProperty(ctx, caller, params.PropertyID)
			if err != nil {
				return err
			}
			inv := s.build(property, params.Header, params.Items)
			if err := s.insert(ctx, inv); err != nil {
				return err
			}
			id = inv.ID
			return nil
		})
	})
	if err != nil {
		span.Fail(err)
		return nil, err
	}

	s.metrics.InvoicesCreated("manual", 1)
	inv, err := s.store.GetInvoice(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	span.WithAttrs(attribute.String(cnst.AttrInvoiceID, inv.ID))
	s.logger.Info("invoice created",
		zap.String("tenant_id", inv.TenantID),
		zap.String("invoice_id", inv.ID),
		zap.String("number", inv.InvoiceNumber),
		zap.String("by", caller.UserID))
	return inv, nil
}

// Generate creates one invoice per target from its active effective services.
// Targets are the property's live active children, or the property itself
// when it has none. Targets without active services are skipped. Either every
// qualifying target gets an invoice or none does.
func (s *Service) Generate(ctx context.Context, caller identity.Caller, params GenerateParams) ([]*database.Invoice, error) {
	if err := caller.RequireWrite(); err != nil {
		return nil, err
	}
	if err := checkAmounts(params.Header, nil); err != nil {
		return nil, err
	}

	span := trace.Tracer(cnst.TraceBilling).Start(ctx, cnst.SpanInvoiceGenerate).
		WithAttrs(attribute.String(cnst.AttrPropertyID, params.PropertyID))
	defer span.End()
	ctx = span.Ctx

	var ids []string
	var targetCount int
	err := s.withNumberRetry(ctx, func(ctx context.Context) error {
		ids = ids[:0]
		return s.store.Transaction(ctx, func(ctx context.Context) error {
			property, err := s.store.GetProperty(ctx, caller, params.PropertyID)
			if err != nil {
				return err
			}
			targets, err := s.store.ActiveChildren(ctx, property.TenantID, property.ID)
			if err != nil {
				return err
			}
			if len(targets) == 0 {
				targets = []*database.Property{property}
			}
			targetCount = len(targets)

			for _, target := range targets {
				services, err := s.resolver.ResolveProperty(ctx, target)
				if err != nil {
					return err
				}
				active := assignment.Active(services)
				if len(active) == 0 {
					s.logger.Debug("skipping target without active services", zap.String("property_id", target.ID))
					continue
				}

				inv := s.build(target, params.Header, itemsFromServices(active))
				if err := s.insert(ctx, inv); err != nil {
					return err
				}
				ids = append(ids, inv.ID)
			}
			return nil
		})
	})
	span.WithAttrs(attribute.Int(cnst.AttrTargets, targetCount), attribute.Int(cnst.AttrCreated, len(ids)))
	if err != nil {
		span.Fail(err)
		return nil, err
	}

	s.metrics.InvoicesCreated("generated", len(ids))
	invoices := make([]*database.Invoice, 0, len(ids))
	for _, id := range ids {
		inv, err := s.store.GetInvoice(ctx, caller, id)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}

	s.logger.Info("invoices generated",
		zap.String("property_id", params.PropertyID),
		zap.Int("targets", targetCount),
		zap.Int("created", len(invoices)),
		zap.String("by", caller.UserID))
	return invoices, nil
}

// Update applies the given fields. Discount or tax changes recompute the total
// from the stored subtotal. Status is set as requested without transition checks.
func (s *Service) Update(ctx context.Context, caller identity.Caller, id string, params UpdateParams) (*database.Invoice, error) {
	if err := caller.RequireWrite(); err != nil {
		return nil, err
	}
	if params.Status != nil && !params.Status.Valid() {
		return nil, errorx.ErrValidation.WithDetail("reason", "unknown invoice status "+string(*params.Status))
	}
	if params.Discount != nil {
		if err := database.CheckScale("discount", *params.Discount); err != nil {
			return nil, err
		}
	}
	if params.Tax != nil {
		if err := database.CheckScale("tax", *params.Tax); err != nil {
			return nil, err
		}
	}

	err := s.store.Transaction(ctx, func(ctx context.Context) error {
		inv, err := s.store.GetInvoiceForUpdate(ctx, caller, id)
		if err != nil {
			return err
		}

		var columns []string
		if params.Status != nil {
			inv.Status = *params.Status
			columns = append(columns, "status")
		}
		if params.IssueDate != nil {
			inv.IssueDate = database.Day(*params.IssueDate, time.UTC)
			columns = append(columns, "issue_date")
		}
		if params.DueDate != nil {
			inv.DueDate = database.Day(*params.DueDate, time.UTC)
			columns = append(columns, "due_date")
		}
		if params.PaidDate != nil {
			inv.PaidDate = nil
			if params.PaidDate.Valid {
				day := database.Day(params.PaidDate.Time, time.UTC)
				inv.PaidDate = &day
			}
			columns = append(columns, "paid_date")
		}
		if params.Notes != nil {
			inv.Notes = *params.Notes
			columns = append(columns, "notes")
		}
		if params.Discount != nil || params.Tax != nil {
			if params.Discount != nil {
				inv.Discount = *params.Discount
			}
			if params.Tax != nil {
				inv.Tax = *params.Tax
			}
			inv.Total = Total(inv.Subtotal, inv.Discount, inv.Tax, s.cfg.ClampNegativeTotals)
			columns = append(columns, "discount", "tax", "total")
		}
		if len(columns) == 0 {
			return nil
		}
		if err := s.store.UpdateColumns(ctx, inv, columns...); err != nil {
			return err
		}
		s.logger.Info("invoice updated", zap.String("invoice_id", id), zap.Strings("fields", columns), zap.String("by", caller.UserID))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.store.GetInvoice(ctx, caller, id)
}

// Delete soft deletes a draft or cancelled invoice together with its items
func (s *Service) Delete(ctx context.Context, caller identity.Caller, id string) error {
	if err := caller.RequireWrite(); err != nil {
		return err
	}

	return s.store.Transaction(ctx, func(ctx context.Context) error {
		inv, err := s.store.GetInvoiceForUpdate(ctx, caller, id)
		if err != nil {
			return err
		}
		if !inv.Status.Deletable() {
			return errorx.ErrCannotDelete.WithDetail("status", string(inv.Status))
		}
		if err := s.store.SoftDeleteInvoice(ctx, inv.ID); err != nil {
			return err
		}
		s.logger.Info("invoice deleted", zap.String("invoice_id", inv.ID), zap.String("by", caller.UserID))
		return nil
	})
}

// MarkOverdue moves the caller's sent invoices whose due date lies before today to overdue
func (s *Service) MarkOverdue(ctx context.Context, caller identity.Caller) (int64, error) {
	if err := caller.RequireWrite(); err != nil {
		return 0, err
	}
	scoped := caller.ForTenant(caller.TenantID)
	today := database.Day(s.now(), s.cfg.Location)

	span := trace.Tracer(cnst.TraceBilling).Start(ctx, cnst.SpanInvoiceOverdue).
		WithAttrs(attribute.String(cnst.AttrTenantID, scoped.TenantID))
	defer span.End()
	ctx = span.Ctx

	var count int64
	err := s.store.Transaction(ctx, func(ctx context.Context) error {
		ids, err := s.store.DueSentInvoiceIDs(ctx, scoped, today)
		if err != nil {
			return err
		}
		count, err = s.store.MarkInvoicesOverdue(ctx, ids)
		return err
	})
	if err != nil {
		span.Fail(err)
		return 0, err
	}

	s.metrics.InvoicesOverdue(count)
	span.WithAttrs(attribute.Int64(cnst.AttrCreated, count))
	s.logger.Info("marked invoices overdue",
		zap.String("tenant_id", scoped.TenantID),
		zap.Int64("count", count),
		zap.String("by", caller.UserID))
	return count, nil
}

// build assembles an unsaved draft invoice for property
func (s *Service) build(property *database.Property, h Header, items []ItemParams) *database.Invoice {
	inv := &database.Invoice{
		TenantID:    property.TenantID,
		PropertyID:  property.ID,
		Status:      database.InvoiceDraft,
		PeriodStart: dayPtr(h.PeriodStart),
		PeriodEnd:   dayPtr(h.PeriodEnd),
		Discount:    h.Discount,
		Tax:         h.Tax,
		IssueDate:   database.Day(h.IssueDate, time.UTC),
		DueDate:     database.Day(h.DueDate, time.UTC),
		Notes:       h.Notes,
		Items:       make([]database.InvoiceItem, 0, len(items)),
	}
	for i, it := range items {
		quantity := decimal.NewFromInt(1)
		if it.Quantity.Valid {
			quantity = it.Quantity.Decimal
		}
		sortOrder := i
		if it.SortOrder != nil {
			sortOrder = *it.SortOrder
		}
		inv.Items = append(inv.Items, database.InvoiceItem{
			Base:          database.Base{TenantID: property.TenantID},
			ServiceTypeID: it.ServiceTypeID,
			Description:   it.Description,
			Quantity:      quantity,
			UnitPrice:     it.UnitPrice,
			Total:         LineTotal(quantity, it.UnitPrice),
			SortOrder:     sortOrder,
		})
	}
	inv.Subtotal = Subtotal(inv.Items)
	inv.Total = Total(inv.Subtotal, inv.Discount, inv.Tax, s.cfg.ClampNegativeTotals)
	return inv
}

// checkAmounts rejects money and quantities finer than the stored scale
func checkAmounts(h Header, items []ItemParams) error {
	if err := database.CheckScale("discount", h.Discount); err != nil {
		return err
	}
	if err := database.CheckScale("tax", h.Tax); err != nil {
		return err
	}
	for _, it := range items {
		if it.Quantity.Valid {
			if err := database.CheckScale("quantity", it.Quantity.Decimal); err != nil {
				return err
			}
		}
		if err := database.CheckScale("unitPrice", it.UnitPrice); err != nil {
			return err
		}
	}
	return nil
}

// insert numbers the invoice and writes it; it must run inside a transaction
func (s *Service) insert(ctx context.Context, inv *database.Invoice) error {
	prefix := NumberPrefix(s.now().In(s.cfg.Location))
	latest, err := s.store.LatestInvoiceNumber(ctx, inv.TenantID, prefix)
	if err != nil {
		return err
	}
	number, err := NextNumber(prefix, latest)
	if err != nil {
		return err
	}
	inv.InvoiceNumber = number
	return s.store.CreateInvoice(ctx, inv)
}

// withNumberRetry reruns fn while it fails on an invoice number collision
func (s *Service) withNumberRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 1; attempt <= s.cfg.NumberRetries; attempt++ {
		err = fn(ctx)
		if !errors.Is(err, errorx.ErrInvoiceNumberConflict) {
			return err
		}
		s.logger.Warn("invoice number collision, retrying", zap.Int("attempt", attempt), zap.Error(err))
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return err
}

func itemsFromServices(services []assignment.EffectiveService) []ItemParams {
	items := make([]ItemParams, 0, len(services))
	for i, es := range services {
		serviceTypeID := es.ServiceTypeID
		sortOrder := i
		items = append(items, ItemParams{
			ServiceTypeID: &serviceTypeID,
			Description:   es.ServiceTypeName,
			Quantity:      decimal.NewNullDecimal(decimal.NewFromInt(1)),
			UnitPrice:     es.EffectivePrice,
			SortOrder:     &sortOrder,
		})
	}
	return items
}

func dayPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := database.Day(*t, time.UTC)
	return &d
}
