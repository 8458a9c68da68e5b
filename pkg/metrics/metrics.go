package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/amoylab/cleanbill/internal/common/config"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry. Every recording method is safe on a nil receiver.
type Metrics struct {
	registry      *prometheus.Registry
	namespace     string
	httpReqCnt    *prometheus.CounterVec
	httpDur       *prometheus.HistogramVec
	httpInfl      *prometheus.GaugeVec
	invoicesCnt   *prometheus.CounterVec
	invoiceStatus *prometheus.CounterVec
	paymentsCnt   *prometheus.CounterVec
	overdueCnt    prometheus.Counter
	sweepCnt      *prometheus.CounterVec
	sweepDur      prometheus.Histogram
}

func New(cfg config.MetricsConfig) *Metrics {
	ns := cfg.Namespace
	r := prometheus.NewRegistry()
	r.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	r.MustRegister(collectors.NewGoCollector())

	httpReqCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "http_requests_total"}, []string{"method", "route", "status"})
	httpDur := prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: ns, Name: "http_request_duration_seconds", Buckets: cfg.Buckets}, []string{"method", "route", "status"})
	httpInfl := prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: ns, Name: "http_requests_inflight"}, []string{"route"})
	r.MustRegister(httpReqCnt, httpDur, httpInfl)

	invoicesCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "invoices_created_total"}, []string{"source"})
	invoiceStatus := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "invoice_status_changes_total"}, []string{"to"})
	paymentsCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "payments_recorded_total"}, []string{"method"})
	overdueCnt := prometheus.NewCounter(prometheus.CounterOpts{Namespace: ns, Name: "invoices_marked_overdue_total"})
	r.MustRegister(invoicesCnt, invoiceStatus, paymentsCnt, overdueCnt)

	sweepCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "overdue_sweeps_total"}, []string{"result"})
	sweepDur := prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: ns, Name: "overdue_sweep_duration_seconds", Buckets: cfg.Buckets})
	r.MustRegister(sweepCnt, sweepDur)

	return &Metrics{
		registry:      r,
		namespace:     ns,
		httpReqCnt:    httpReqCnt,
		httpDur:       httpDur,
		httpInfl:      httpInfl,
		invoicesCnt:   invoicesCnt,
		invoiceStatus: invoiceStatus,
		paymentsCnt:   paymentsCnt,
		overdueCnt:    overdueCnt,
		sweepCnt:      sweepCnt,
		sweepDur:      sweepDur,
	}
}

// InvoicesCreated counts invoices created by source ("manual" or "generated")
func (m *Metrics) InvoicesCreated(source string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.invoicesCnt.WithLabelValues(source).Add(float64(n))
}

// InvoiceStatusChanged counts automatic status transitions
func (m *Metrics) InvoiceStatusChanged(to string) {
	if m == nil {
		return
	}
	m.invoiceStatus.WithLabelValues(to).Inc()
}

func (m *Metrics) PaymentRecorded(method string) {
	if m == nil {
		return
	}
	m.paymentsCnt.WithLabelValues(method).Inc()
}

func (m *Metrics) InvoicesOverdue(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.overdueCnt.Add(float64(n))
}

// SweepDone records one scheduler tick. result is "ok", "partial", "error" or "skipped".
func (m *Metrics) SweepDone(result string, since time.Time) {
	if m == nil {
		return
	}
	m.sweepCnt.WithLabelValues(result).Inc()
	m.sweepDur.Observe(time.Since(since).Seconds())
}

func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			// unmatched paths would explode label cardinality
			route = "unmatched"
		}
		m.httpInfl.WithLabelValues(route).Inc()
		start := time.Now()
		c.Next()
		status := httpStatus(c.Writer.Status())
		m.httpReqCnt.WithLabelValues(c.Request.Method, route, status).Inc()
		m.httpDur.WithLabelValues(c.Request.Method, route, status).Observe(time.Since(start).Seconds())
		m.httpInfl.WithLabelValues(route).Dec()
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func httpStatus(code int) string { return strconv.Itoa(code) }
