package errorx

import (
	"errors"
	"fmt"
	"maps"
	"net/http"
)

// Kind groups error codes by how callers should react to them
type Kind string

const (
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindForbidden  Kind = "forbidden"
	KindDomain     Kind = "domain"
	KindValidation Kind = "validation"
	KindAuth       Kind = "unauthorized"
	KindInternal   Kind = "internal"
)

// HTTPStatus maps a kind onto a transport status code
func (k Kind) HTTPStatus() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	case KindDomain:
		return http.StatusUnprocessableEntity
	case KindValidation:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Error is a typed failure with a stable machine-readable code.
// Two errors are considered equal by errors.Is when their codes match.
type Error struct {
	Kind    Kind           `json:"-"`
	Code    string         `json:"code"`
	Message string         `json:"detail"`
	Details map[string]any `json:"details,omitempty"`

	cause error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func (e *Error) clone() *Error {
	cp := *e
	cp.Details = maps.Clone(e.Details)
	return &cp
}

// WithDetail returns a copy of the error carrying an extra detail
func (e *Error) WithDetail(key string, value any) *Error {
	cp := e.clone()
	if cp.Details == nil {
		cp.Details = make(map[string]any)
	}
	cp.Details[key] = value
	return cp
}

// WithMessage returns a copy with a more specific message
func (e *Error) WithMessage(format string, args ...any) *Error {
	cp := e.clone()
	cp.Message = fmt.Sprintf(format, args...)
	return cp
}

// Wrap returns a copy that records cause for logging
func (e *Error) Wrap(cause error) *Error {
	cp := e.clone()
	cp.cause = cause
	return cp
}

func newError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Not found
var (
	ErrTenantNotFound      = newError(KindNotFound, "TENANT_NOT_FOUND", "Tenant not found")
	ErrClientNotFound      = newError(KindNotFound, "CLIENT_NOT_FOUND", "Client not found")
	ErrPropertyNotFound    = newError(KindNotFound, "PROPERTY_NOT_FOUND", "Property not found")
	ErrParentNotFound      = newError(KindNotFound, "PARENT_NOT_FOUND", "Parent property not found")
	ErrServiceTypeNotFound = newError(KindNotFound, "SERVICE_TYPE_NOT_FOUND", "Service type not found")
	ErrAssignmentNotFound  = newError(KindNotFound, "ASSIGNMENT_NOT_FOUND", "Service assignment not found")
	ErrInvoiceNotFound     = newError(KindNotFound, "INVOICE_NOT_FOUND", "Invoice not found")
	ErrPaymentNotFound     = newError(KindNotFound, "PAYMENT_NOT_FOUND", "Payment not found")
)

// Conflict
var (
	ErrAlreadyAssigned       = newError(KindConflict, "ALREADY_ASSIGNED", "Service type is already assigned to this property")
	ErrNameExists            = newError(KindConflict, "NAME_EXISTS", "An entry with this name already exists")
	ErrSlugExists            = newError(KindConflict, "SLUG_EXISTS", "A tenant with this slug already exists")
	ErrInvoiceNumberConflict = newError(KindConflict, "INVOICE_NUMBER_CONFLICT", "Could not allocate a unique invoice number")
)

// Forbidden and authentication
var (
	ErrForbidden    = newError(KindForbidden, "FORBIDDEN", "You do not have permission to perform this action")
	ErrUnauthorized = newError(KindAuth, "UNAUTHORIZED", "Authentication required")

	ErrSystemTenantProtected = newError(KindForbidden, "SYSTEM_TENANT_PROTECTED", "The system tenant cannot be modified")
)

// Domain rule violations
var (
	ErrCannotDelete     = newError(KindDomain, "CANNOT_DELETE", "Only draft or cancelled invoices can be deleted")
	ErrInvalidChildType = newError(KindDomain, "INVALID_CHILD_TYPE", "Only unit properties can have a parent")
	ErrInvalidParent    = newError(KindDomain, "INVALID_PARENT", "A unit cannot be a parent property")
	ErrParentCycle      = newError(KindDomain, "PARENT_CYCLE", "Parent assignment would create a cycle")
	ErrInvalidUnitCount = newError(KindDomain, "INVALID_UNIT_COUNT", "Number of units is only supported for buildings")
	ErrHasChildren      = newError(KindDomain, "HAS_CHILDREN", "A property with units cannot become a unit")
)

// Validation
var (
	ErrValidation = newError(KindValidation, "VALIDATION_ERROR", "Invalid input provided")
)

// Internal
var (
	ErrInternal = newError(KindInternal, "INTERNAL_ERROR", "Internal server error occurred")
)

// From converts any error into an *Error, treating unknown errors as internal
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return ErrInternal.Wrap(err)
}

// KindOf reports the kind of err, or KindInternal for untyped errors
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
