package cnst

// Tracer names used across the services
const (
	TraceBilling  = "cleanbill/billing"
	TraceCatalog  = "cleanbill/catalog"
	TraceSchedule = "cleanbill/scheduler"
)

// Span names
const (
	SpanInvoiceCreate   = "invoice.create"
	SpanInvoiceGenerate = "invoice.generate"
	SpanInvoiceOverdue  = "invoice.mark_overdue"
	SpanPaymentApply    = "payment.reconcile"
	SpanResolveServices = "assignment.resolve"
	SpanOverdueSweep    = "scheduler.overdue_sweep"
)

// Common attribute keys
const (
	AttrTenantID   = "tenant.id"
	AttrPropertyID = "property.id"
	AttrInvoiceID  = "invoice.id"
	AttrTargets    = "invoice.targets"
	AttrCreated    = "invoice.created"
	AttrStatus     = "invoice.status"
	AttrPaymentID  = "payment.id"
)
