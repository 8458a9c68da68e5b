package handler

import (
	"context"
	"net/http"

	"github.com/amoylab/cleanbill/internal/apiserver/middleware"
	"github.com/amoylab/cleanbill/internal/auth/jwt"
	"github.com/amoylab/cleanbill/internal/common/cnst"
	"github.com/amoylab/cleanbill/internal/common/monitor"
	"github.com/amoylab/cleanbill/internal/i18n"
	"github.com/amoylab/cleanbill/pkg/metrics"
	"github.com/amoylab/cleanbill/pkg/version"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterOptions carries the infrastructure the router wires in. Nil fields are skipped.
type RouterOptions struct {
	JWT         *jwt.Service
	Metrics     *metrics.Metrics
	MetricsPath string
	DB          Pinger
	Tracing     bool
}

// NewRouter builds the gin engine with middleware and every API route
func NewRouter(h *Handler, opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(h.errs.RecoveryMiddleware())
	if opts.Tracing {
		r.Use(otelgin.Middleware(cnst.AppName))
	}
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware())
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(opts.Metrics.Handler()))
	}
	r.Use(monitor.AccessLog(h.logger), i18n.LangMiddleware())

	r.GET("/health", h.health(opts.DB))

	api := r.Group("/api/v1")
	api.Use(middleware.JWTAuthMiddleware(opts.JWT, h.errs))
	h.RegisterRoutes(api)
	return r
}

// RegisterRoutes mounts the authenticated API on g
func (h *Handler) RegisterRoutes(g *gin.RouterGroup) {
	g.GET("/auth/me", h.Me)

	tenants := g.Group("/tenants")
	tenants.GET("", h.ListTenants)
	tenants.POST("", h.CreateTenant)
	tenants.GET("/:id", h.GetTenant)
	tenants.PATCH("/:id", h.UpdateTenant)

	clients := g.Group("/clients")
	clients.GET("", h.ListClients)
	clients.POST("", h.CreateClient)
	clients.GET("/:id", h.GetClient)
	clients.PATCH("/:id", h.UpdateClient)
	clients.DELETE("/:id", h.DeleteClient)

	properties := g.Group("/properties")
	properties.GET("", h.ListProperties)
	properties.POST("", h.CreateProperty)
	properties.GET("/:id", h.GetProperty)
	properties.PATCH("/:id", h.UpdateProperty)
	properties.DELETE("/:id", h.DeleteProperty)
	properties.GET("/:id/services", h.ListAssignments)
	properties.POST("/:id/services", h.AssignService)
	properties.POST("/:id/services/bulk", h.BulkAssignServices)
	properties.GET("/:id/effective-services", h.EffectiveServices)

	assignments := g.Group("/assignments")
	assignments.PATCH("/:id", h.UpdateAssignment)
	assignments.DELETE("/:id", h.RemoveAssignment)

	serviceTypes := g.Group("/service-types")
	serviceTypes.GET("", h.ListServiceTypes)
	serviceTypes.POST("", h.CreateServiceType)
	serviceTypes.GET("/:id", h.GetServiceType)
	serviceTypes.PATCH("/:id", h.UpdateServiceType)
	serviceTypes.PUT("/:id/checklist", h.ReplaceChecklist)
	serviceTypes.DELETE("/:id", h.DeleteServiceType)

	invoices := g.Group("/invoices")
	invoices.GET("", h.ListInvoices)
	invoices.POST("", h.CreateInvoice)
	invoices.POST("/generate", h.GenerateInvoices)
	invoices.POST("/mark-overdue", h.MarkOverdue)
	invoices.GET("/:id", h.GetInvoice)
	invoices.PATCH("/:id", h.UpdateInvoice)
	invoices.DELETE("/:id", h.DeleteInvoice)

	payments := g.Group("/payments")
	payments.GET("", h.ListPayments)
	payments.POST("", h.CreatePayment)
	payments.GET("/:id", h.GetPayment)
	payments.PATCH("/:id", h.UpdatePayment)
	payments.DELETE("/:id", h.DeletePayment)
}

func (h *Handler) health(db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := http.StatusOK
		body := gin.H{"status": "ok", "version": version.Get()}
		if db != nil {
			if err := db.Ping(c.Request.Context()); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "unavailable"
				body["database"] = err.Error()
			}
		}
		c.JSON(status, body)
	}
}
