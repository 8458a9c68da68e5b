package handler

import (
	"net/http"

	"github.com/amoylab/cleanbill/internal/common/dto"

	"github.com/gin-gonic/gin"
)

// ListTenants lists every tenant; superadmin only
func (h *Handler) ListTenants(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	var q dto.PageQuery
	if !h.bindQuery(c, &q) {
		return
	}

	p := page(q)
	tenants, total, err := h.svc.Tenants.List(c.Request.Context(), caller, p)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, listResponse(tenants, total, p, dto.FromTenant))
}

func (h *Handler) GetTenant(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	t, err := h.svc.Tenants.Get(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromTenant(t))
}

func (h *Handler) CreateTenant(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	var req dto.CreateTenantRequest
	if !h.bindJSON(c, &req) {
		return
	}

	t, err := h.svc.Tenants.Create(c.Request.Context(), caller, req.Name, req.Slug)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.FromTenant(t))
}

func (h *Handler) UpdateTenant(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	var req dto.UpdateTenantRequest
	if !h.bindJSON(c, &req) {
		return
	}

	t, err := h.svc.Tenants.Update(c.Request.Context(), caller, c.Param("id"), req.Params())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromTenant(t))
}

// Me describes the authenticated caller
func (h *Handler) Me(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, dto.FromCaller(caller))
}
