package handler

import (
	"net/http"

	"github.com/amoylab/cleanbill/internal/common/dto"

	"github.com/gin-gonic/gin"
)

// ListAssignments returns the property's own assignments
func (h *Handler) ListAssignments(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	assignments, err := h.svc.Assignments.List(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Map(assignments, dto.FromAssignment))
}

// EffectiveServices returns the resolved services of a property, inherited ones included
func (h *Handler) EffectiveServices(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	services, err := h.svc.Assignments.EffectiveServices(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Map(services, dto.FromEffectiveService))
}

func (h *Handler) AssignService(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	var req dto.AssignServiceRequest
	if !h.bindJSON(c, &req) {
		return
	}

	a, err := h.svc.Assignments.Assign(c.Request.Context(), caller, req.Params(c.Param("id")))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.FromAssignment(*a))
}

func (h *Handler) BulkAssignServices(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	var req dto.BulkAssignRequest
	if !h.bindJSON(c, &req) {
		return
	}

	assignments, err := h.svc.Assignments.BulkAssign(c.Request.Context(), caller, c.Param("id"), req.ServiceTypeIDs)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Map(assignments, dto.FromAssignment))
}

func (h *Handler) UpdateAssignment(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	var req dto.UpdateAssignmentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	a, err := h.svc.Assignments.Update(c.Request.Context(), caller, c.Param("id"), req.Params())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromAssignment(*a))
}

func (h *Handler) RemoveAssignment(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	if err := h.svc.Assignments.Remove(c.Request.Context(), caller, c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	noContent(c)
}
