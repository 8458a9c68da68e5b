package dto

import (
	"time"

	"github.com/amoylab/cleanbill/internal/apiserver/database"
	"github.com/amoylab/cleanbill/internal/payment"

	"github.com/shopspring/decimal"
)

type CreatePaymentRequest struct {
	InvoiceID     string          `json:"invoiceId" binding:"required"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentDate   *Date           `json:"paymentDate" binding:"required"`
	PaymentMethod string          `json:"paymentMethod" binding:"required,payment_method"`
	Reference     string          `json:"reference" binding:"max=255"`
	Notes         string          `json:"notes"`
}

func (r CreatePaymentRequest) Params() payment.CreateParams {
	p := payment.CreateParams{
		InvoiceID:     r.InvoiceID,
		Amount:        r.Amount,
		PaymentMethod: database.PaymentMethod(r.PaymentMethod),
		Reference:     r.Reference,
		Notes:         r.Notes,
	}
	if r.PaymentDate != nil {
		p.PaymentDate = r.PaymentDate.Time
	}
	return p
}

type UpdatePaymentRequest struct {
	Amount        *decimal.Decimal `json:"amount"`
	PaymentDate   *Date            `json:"paymentDate"`
	PaymentMethod *string          `json:"paymentMethod" binding:"omitempty,payment_method"`
	Reference     *string          `json:"reference" binding:"omitempty,max=255"`
	Notes         *string          `json:"notes"`
}

func (r UpdatePaymentRequest) Params() payment.UpdateParams {
	p := payment.UpdateParams{
		Amount:      r.Amount,
		PaymentDate: timePtr(r.PaymentDate),
		Reference:   r.Reference,
		Notes:       r.Notes,
	}
	if r.PaymentMethod != nil {
		m := database.PaymentMethod(*r.PaymentMethod)
		p.PaymentMethod = &m
	}
	return p
}

type PaymentListQuery struct {
	PageQuery
	InvoiceID string `form:"invoiceId"`
}

type PaymentResponse struct {
	ID            string    `json:"id"`
	TenantID      string    `json:"tenantId"`
	InvoiceID     string    `json:"invoiceId"`
	Amount        string    `json:"amount"`
	PaymentDate   Date      `json:"paymentDate"`
	PaymentMethod string    `json:"paymentMethod"`
	Reference     string    `json:"reference"`
	Notes         string    `json:"notes"`
	CreatedAt     time.Time `json:"createdAt"`
}

func FromPayment(p *database.Payment) PaymentResponse {
	return PaymentResponse{
		ID:            p.ID,
		TenantID:      p.TenantID,
		InvoiceID:     p.InvoiceID,
		Amount:        Money(p.Amount),
		PaymentDate:   NewDate(p.PaymentDate),
		PaymentMethod: string(p.PaymentMethod),
		Reference:     p.Reference,
		Notes:         p.Notes,
		CreatedAt:     p.CreatedAt,
	}
}
