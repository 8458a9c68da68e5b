package handler

import (
	"net/http"

	"github.com/amoylab/cleanbill/internal/common/dto"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListServiceTypes(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	var q dto.ServiceTypeListQuery
	if !h.bindQuery(c, &q) {
		return
	}

	p := page(q.PageQuery)
	types, total, err := h.svc.Catalog.List(c.Request.Context(), caller, q.Filter(), p)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, listResponse(types, total, p, dto.FromServiceType))
}

func (h *Handler) GetServiceType(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	st, err := h.svc.Catalog.Get(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromServiceType(st))
}

func (h *Handler) CreateServiceType(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	var req dto.CreateServiceTypeRequest
	if !h.bindJSON(c, &req) {
		return
	}

	st, err := h.svc.Catalog.Create(c.Request.Context(), caller, req.Params())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.FromServiceType(st))
}

func (h *Handler) UpdateServiceType(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	var req dto.UpdateServiceTypeRequest
	if !h.bindJSON(c, &req) {
		return
	}

	st, err := h.svc.Catalog.Update(c.Request.Context(), caller, c.Param("id"), req.Params())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromServiceType(st))
}

// ReplaceChecklist swaps the whole checklist of a service type
func (h *Handler) ReplaceChecklist(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	var req dto.ReplaceChecklistRequest
	if !h.bindJSON(c, &req) {
		return
	}

	st, err := h.svc.Catalog.ReplaceChecklist(c.Request.Context(), caller, c.Param("id"), req.Params())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromServiceType(st))
}

func (h *Handler) DeleteServiceType(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	if err := h.svc.Catalog.Delete(c.Request.Context(), caller, c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	noContent(c)
}
