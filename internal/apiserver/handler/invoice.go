package handler

import (
	"net/http"

	"github.com/amoylab/cleanbill/internal/common/dto"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListInvoices(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	var q dto.InvoiceListQuery
	if !h.bindQuery(c, &q) {
		return
	}

	p := page(q.PageQuery)
	invoices, total, err := h.svc.Invoices.List(c.Request.Context(), caller, q.Filter(), p)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, listResponse(invoices, total, p, dto.FromInvoice))
}

func (h *Handler) GetInvoice(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	inv, err := h.svc.Invoices.Get(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromInvoice(inv))
}

func (h *Handler) CreateInvoice(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	var req dto.CreateInvoiceRequest
	if !h.bindJSON(c, &req) {
		return
	}

	inv, err := h.svc.Invoices.Create(c.Request.Context(), caller, req.Params())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.FromInvoice(inv))
}

// GenerateInvoices bills a property, or each of its units, from the effective services
func (h *Handler) GenerateInvoices(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	var req dto.GenerateInvoicesRequest
	if !h.bindJSON(c, &req) {
		return
	}

	invoices, err := h.svc.Invoices.Generate(c.Request.Context(), caller, req.Params())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.Map(invoices, dto.FromInvoice))
}

func (h *Handler) UpdateInvoice(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	var req dto.UpdateInvoiceRequest
	if !h.bindJSON(c, &req) {
		return
	}

	inv, err := h.svc.Invoices.Update(c.Request.Context(), caller, c.Param("id"), req.Params())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromInvoice(inv))
}

func (h *Handler) DeleteInvoice(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	if err := h.svc.Invoices.Delete(c.Request.Context(), caller, c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	noContent(c)
}

// MarkOverdue flips the caller's sent invoices past due to overdue
func (h *Handler) MarkOverdue(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	n, err := h.svc.Invoices.MarkOverdue(c.Request.Context(), caller)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MarkOverdueResponse{Updated: n})
}
