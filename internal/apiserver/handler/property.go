package handler

import (
	"net/http"

	"github.com/amoylab/cleanbill/internal/common/dto"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListProperties(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	var q dto.PropertyListQuery
	if !h.bindQuery(c, &q) {
		return
	}

	p := page(q.PageQuery)
	properties, total, err := h.svc.Properties.List(c.Request.Context(), caller, q.Filter(), p)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, listResponse(properties, total, p, dto.FromProperty))
}

func (h *Handler) GetProperty(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	prop, err := h.svc.Properties.Get(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromProperty(prop))
}

// CreateProperty creates a property; buildings may request their units in the same call
func (h *Handler) CreateProperty(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	var req dto.CreatePropertyRequest
	if !h.bindJSON(c, &req) {
		return
	}

	prop, err := h.svc.Properties.Create(c.Request.Context(), caller, req.Params())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.FromProperty(prop))
}

func (h *Handler) UpdateProperty(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	var req dto.UpdatePropertyRequest
	if !h.bindJSON(c, &req) {
		return
	}

	prop, err := h.svc.Properties.Update(c.Request.Context(), caller, c.Param("id"), req.Params())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromProperty(prop))
}

func (h *Handler) DeleteProperty(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	if err := h.svc.Properties.Delete(c.Request.Context(), caller, c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	noContent(c)
}
