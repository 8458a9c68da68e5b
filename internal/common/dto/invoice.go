package dto

import (
	"database/sql"
	"time"

	"github.com/amoylab/cleanbill/internal/apiserver/database"
	"github.com/amoylab/cleanbill/internal/invoice"

	"github.com/shopspring/decimal"
)

type InvoiceItemRequest struct {
	ServiceTypeID *string             `json:"serviceTypeId"`
	Description   string              `json:"description" binding:"required,max=500"`
	Quantity      decimal.NullDecimal `json:"quantity"`
	UnitPrice     decimal.Decimal     `json:"unitPrice"`
	SortOrder     *int                `json:"sortOrder"`
}

// InvoiceHeaderRequest holds the fields shared by create and generate
type InvoiceHeaderRequest struct {
	IssueDate   *Date           `json:"issueDate" binding:"required"`
	DueDate     *Date           `json:"dueDate" binding:"required"`
	PeriodStart *Date           `json:"periodStart"`
	PeriodEnd   *Date           `json:"periodEnd"`
	Discount    decimal.Decimal `json:"discount"`
	Tax         decimal.Decimal `json:"tax"`
	Notes       string          `json:"notes"`
}

func (r InvoiceHeaderRequest) header() invoice.Header {
	h := invoice.Header{
		Discount: r.Discount,
		Tax:      r.Tax,
		Notes:    r.Notes,
	}
	if r.IssueDate != nil {
		h.IssueDate = r.IssueDate.Time
	}
	if r.DueDate != nil {
		h.DueDate = r.DueDate.Time
	}
	h.PeriodStart = timePtr(r.PeriodStart)
	h.PeriodEnd = timePtr(r.PeriodEnd)
	return h
}

type CreateInvoiceRequest struct {
	PropertyID string `json:"propertyId" binding:"required"`
	InvoiceHeaderRequest
	Items []InvoiceItemRequest `json:"items" binding:"dive"`
}

func (r CreateInvoiceRequest) Params() invoice.CreateParams {
	return invoice.CreateParams{
		PropertyID: r.PropertyID,
		Header:     r.header(),
		Items: Map(r.Items, func(it InvoiceItemRequest) invoice.ItemParams {
			return invoice.ItemParams{
				ServiceTypeID: it.ServiceTypeID,
				Description:   it.Description,
				Quantity:      it.Quantity,
				UnitPrice:     it.UnitPrice,
				SortOrder:     it.SortOrder,
			}
		}),
	}
}

type GenerateInvoicesRequest struct {
	PropertyID string `json:"propertyId" binding:"required"`
	InvoiceHeaderRequest
}

func (r GenerateInvoicesRequest) Params() invoice.GenerateParams {
	return invoice.GenerateParams{PropertyID: r.PropertyID, Header: r.header()}
}

// UpdateInvoiceRequest clears the paid date on an explicit null
type UpdateInvoiceRequest struct {
	Status    *string          `json:"status" binding:"omitempty,invoice_status"`
	IssueDate *Date            `json:"issueDate"`
	DueDate   *Date            `json:"dueDate"`
	Discount  *decimal.Decimal `json:"discount"`
	Tax       *decimal.Decimal `json:"tax"`
	Notes     *string          `json:"notes"`
	PaidDate  Nullable[Date]   `json:"paidDate"`
}

func (r UpdateInvoiceRequest) Params() invoice.UpdateParams {
	p := invoice.UpdateParams{
		IssueDate: timePtr(r.IssueDate),
		DueDate:   timePtr(r.DueDate),
		Discount:  r.Discount,
		Tax:       r.Tax,
		Notes:     r.Notes,
	}
	if r.Status != nil {
		s := database.InvoiceStatus(*r.Status)
		p.Status = &s
	}
	if r.PaidDate.Set {
		p.PaidDate = &sql.NullTime{Time: r.PaidDate.Value.Time, Valid: r.PaidDate.Valid}
	}
	return p
}

type InvoiceListQuery struct {
	PageQuery
	Status     string `form:"status" binding:"omitempty,invoice_status"`
	PropertyID string `form:"propertyId"`
	ClientID   string `form:"clientId"`
}

func (q InvoiceListQuery) Filter() database.InvoiceFilter {
	return database.InvoiceFilter{
		Status:     database.InvoiceStatus(q.Status),
		PropertyID: q.PropertyID,
		ClientID:   q.ClientID,
	}
}

type InvoiceItemResponse struct {
	ID            string  `json:"id"`
	ServiceTypeID *string `json:"serviceTypeId"`
	Description   string  `json:"description"`
	Quantity      string  `json:"quantity"`
	UnitPrice     string  `json:"unitPrice"`
	Total         string  `json:"total"`
	SortOrder     int     `json:"sortOrder"`
}

type InvoicePropertyRef struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	Client *ClientRef `json:"client,omitempty"`
}

type InvoiceResponse struct {
	ID            string                `json:"id"`
	TenantID      string                `json:"tenantId"`
	InvoiceNumber string                `json:"invoiceNumber"`
	PropertyID    string                `json:"propertyId"`
	Property      *InvoicePropertyRef   `json:"property,omitempty"`
	Status        string                `json:"status"`
	PeriodStart   *Date                 `json:"periodStart"`
	PeriodEnd     *Date                 `json:"periodEnd"`
	Subtotal      string                `json:"subtotal"`
	Discount      string                `json:"discount"`
	Tax           string                `json:"tax"`
	Total         string                `json:"total"`
	AmountPaid    string                `json:"amountPaid"`
	IssueDate     Date                  `json:"issueDate"`
	DueDate       Date                  `json:"dueDate"`
	PaidDate      *Date                 `json:"paidDate"`
	Notes         string                `json:"notes"`
	Items         []InvoiceItemResponse `json:"items"`
	Payments      []PaymentResponse     `json:"payments"`
	CreatedAt     time.Time             `json:"createdAt"`
	UpdatedAt     time.Time             `json:"updatedAt"`
}

func FromInvoice(inv *database.Invoice) InvoiceResponse {
	paid := decimal.Zero
	for _, p := range inv.Payments {
		paid = paid.Add(p.Amount)
	}
	resp := InvoiceResponse{
		ID:            inv.ID,
		TenantID:      inv.TenantID,
		InvoiceNumber: inv.InvoiceNumber,
		PropertyID:    inv.PropertyID,
		Status:        string(inv.Status),
		PeriodStart:   DatePtr(inv.PeriodStart),
		PeriodEnd:     DatePtr(inv.PeriodEnd),
		Subtotal:      Money(inv.Subtotal),
		Discount:      Money(inv.Discount),
		Tax:           Money(inv.Tax),
		Total:         Money(inv.Total),
		AmountPaid:    Money(paid),
		IssueDate:     NewDate(inv.IssueDate),
		DueDate:       NewDate(inv.DueDate),
		PaidDate:      DatePtr(inv.PaidDate),
		Notes:         inv.Notes,
		Items: Map(inv.Items, func(it database.InvoiceItem) InvoiceItemResponse {
			return InvoiceItemResponse{
				ID:            it.ID,
				ServiceTypeID: it.ServiceTypeID,
				Description:   it.Description,
				Quantity:      Money(it.Quantity),
				UnitPrice:     Money(it.UnitPrice),
				Total:         Money(it.Total),
				SortOrder:     it.SortOrder,
			}
		}),
		Payments: Map(inv.Payments, func(p database.Payment) PaymentResponse {
			return FromPayment(&p)
		}),
		CreatedAt: inv.CreatedAt,
		UpdatedAt: inv.UpdatedAt,
	}
	if inv.Property != nil {
		resp.Property = &InvoicePropertyRef{ID: inv.Property.ID, Name: inv.Property.Name}
		if c := inv.Property.Client; c != nil {
			resp.Property.Client = &ClientRef{ID: c.ID, Name: c.Name}
		}
	}
	return resp
}

type MarkOverdueResponse struct {
	Updated int64 `json:"updated"`
}

func timePtr(d *Date) *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}
