package handler

import (
	"errors"
	"net/http"

	"github.com/amoylab/cleanbill/internal/apiserver/database"
	"github.com/amoylab/cleanbill/internal/apiserver/middleware"
	"github.com/amoylab/cleanbill/internal/assignment"
	"github.com/amoylab/cleanbill/internal/catalog"
	"github.com/amoylab/cleanbill/internal/client"
	"github.com/amoylab/cleanbill/internal/common/dto"
	"github.com/amoylab/cleanbill/internal/common/errorx"
	"github.com/amoylab/cleanbill/internal/identity"
	"github.com/amoylab/cleanbill/internal/invoice"
	"github.com/amoylab/cleanbill/internal/payment"
	"github.com/amoylab/cleanbill/internal/property"
	"github.com/amoylab/cleanbill/internal/tenant"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// DefaultPageLimit applies when a list request has no limit
const DefaultPageLimit = 50

// Services bundles the domain services the handlers call into
type Services struct {
	Tenants     *tenant.Service
	Clients     *client.Service
	Properties  *property.Service
	Catalog     *catalog.Service
	Assignments *assignment.Service
	Invoices    *invoice.Service
	Payments    *payment.Service
}

// Handler exposes the services over HTTP
type Handler struct {
	svc    Services
	errs   *errorx.ErrorHandler
	logger *zap.Logger
}

func New(svc Services, errs *errorx.ErrorHandler, logger *zap.Logger) *Handler {
	return &Handler{
		svc:    svc,
		errs:   errs,
		logger: logger.Named("handler"),
	}
}

// caller fetches the authenticated identity, rendering 401 when absent
func (h *Handler) caller(c *gin.Context) (identity.Caller, bool) {
	caller, ok := middleware.Caller(c)
	if !ok {
		h.errs.HandleError(c, errorx.ErrUnauthorized)
		return identity.Caller{}, false
	}
	return caller, true
}

func (h *Handler) bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.errs.HandleError(c, validationError(err))
		return false
	}
	return true
}

func (h *Handler) bindQuery(c *gin.Context, req any) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		h.errs.HandleError(c, validationError(err))
		return false
	}
	return true
}

func (h *Handler) fail(c *gin.Context, err error) {
	h.errs.HandleError(c, err)
}

// validationError converts binding failures into VALIDATION_ERROR with per-field tags
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		return errorx.ErrValidation.Wrap(err).
			WithDetail("fields", fields).
			WithDetail("reason", "invalid fields")
	}
	return errorx.ErrValidation.Wrap(err).WithDetail("reason", err.Error())
}

func page(q dto.PageQuery) database.Page {
	limit := q.Limit
	if limit == 0 {
		limit = DefaultPageLimit
	}
	return database.Page{Offset: q.Offset, Limit: limit}
}

func listResponse[S, T any](items []S, total int64, p database.Page, fn func(S) T) dto.ListResponse[T] {
	return dto.ListResponse[T]{
		Items:  dto.Map(items, fn),
		Total:  total,
		Offset: p.Offset,
		Limit:  p.Limit,
	}
}

func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
