package handler

import (
	"net/http"

	"github.com/amoylab/cleanbill/internal/common/dto"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListClients(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	var q dto.ClientListQuery
	if !h.bindQuery(c, &q) {
		return
	}

	p := page(q.PageQuery)
	clients, total, err := h.svc.Clients.List(c.Request.Context(), caller, q.Filter(), p)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, listResponse(clients, total, p, dto.FromClientSummary))
}

func (h *Handler) GetClient(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	cl, err := h.svc.Clients.Get(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromClient(cl))
}

func (h *Handler) CreateClient(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	var req dto.CreateClientRequest
	if !h.bindJSON(c, &req) {
		return
	}

	cl, err := h.svc.Clients.Create(c.Request.Context(), caller, req.Params())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.FromClient(cl))
}

func (h *Handler) UpdateClient(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	var req dto.UpdateClientRequest
	if !h.bindJSON(c, &req) {
		return
	}

	cl, err := h.svc.Clients.Update(c.Request.Context(), caller, c.Param("id"), req.Params())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromClient(cl))
}

// DeleteClient soft-deletes a client together with its properties
func (h *Handler) DeleteClient(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	if err := h.svc.Clients.Delete(c.Request.Context(), caller, c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	noContent(c)
}
