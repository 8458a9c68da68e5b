package handler

import (
	"net/http"

	"github.com/amoylab/cleanbill/internal/common/dto"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListPayments(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	var q dto.PaymentListQuery
	if !h.bindQuery(c, &q) {
		return
	}

	p := page(q.PageQuery)
	payments, total, err := h.svc.Payments.List(c.Request.Context(), caller, q.InvoiceID, p)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, listResponse(payments, total, p, dto.FromPayment))
}

func (h *Handler) GetPayment(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	pay, err := h.svc.Payments.Get(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromPayment(pay))
}

// CreatePayment records a payment and reconciles the invoice status
func (h *Handler) CreatePayment(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	var req dto.CreatePaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	pay, err := h.svc.Payments.Create(c.Request.Context(), caller, req.Params())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.FromPayment(pay))
}

func (h *Handler) UpdatePayment(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	var req dto.UpdatePaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	pay, err := h.svc.Payments.Update(c.Request.Context(), caller, c.Param("id"), req.Params())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromPayment(pay))
}

func (h *Handler) DeletePayment(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	if err := h.svc.Payments.Delete(c.Request.Context(), caller, c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	noContent(c)
}
