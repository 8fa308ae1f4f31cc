// Package apperrors provides the unified error taxonomy used across the
// KPI platform. Domain operations return a *ServiceError carrying one of
// the kinds below; the service facade translates it to the
// transport-agnostic {code, message, details?} shape.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind is one of the error taxonomy entries from the error handling design.
type Kind string

const (
	KindUnauthenticated   Kind = "UNAUTHENTICATED"
	KindForbidden         Kind = "FORBIDDEN"
	KindValidation        Kind = "VALIDATION"
	KindConflict          Kind = "CONFLICT"
	KindStale             Kind = "STALE"
	KindDependentRows     Kind = "DEPENDENT_ROWS"
	KindInvalidTransition Kind = "INVALID_TRANSITION"
	KindNotFound          Kind = "NOT_FOUND"
	KindInfra             Kind = "INFRA"
	KindInternal          Kind = "INTERNAL"
)

// ServiceError is a structured error carrying a taxonomy kind, a
// caller-safe message, optional structured details, and the wrapped cause.
type ServiceError struct {
	Kind    Kind
	Message string
	Details map[string]interface{}
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap exposes the wrapped cause so errors.Is/As work through this type.
func (e *ServiceError) Unwrap() error { return e.Err }

// WithDetails adds a key/value pair to the error's structured details and
// returns the receiver for chaining.
func (e *ServiceError) WithDetails(key string, value interface{}) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a bare ServiceError of the given kind.
func New(kind Kind, message string) *ServiceError {
	return &ServiceError{Kind: kind, Message: message}
}

// Wrap creates a ServiceError of the given kind wrapping an underlying cause.
func Wrap(kind Kind, message string, err error) *ServiceError {
	return &ServiceError{Kind: kind, Message: message, Err: err}
}

// Of extracts a *ServiceError from err, if any is present in its chain.
func Of(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// --- Constructors for each error kind ---

func Unauthenticated(message string) *ServiceError {
	return New(KindUnauthenticated, message)
}

func Forbidden(message string) *ServiceError {
	return New(KindForbidden, message)
}

func ClientUnknown(clientID string) *ServiceError {
	return New(KindForbidden, "unknown client").WithDetails("client_id", clientID)
}

func Validation(field, reason string) *ServiceError {
	return New(KindValidation, "invalid input").WithDetails("field", field).WithDetails("reason", reason)
}

func Conflict(key string, value interface{}) *ServiceError {
	return New(KindConflict, "unique constraint violated").WithDetails("key", key).WithDetails("value", value)
}

func Stale(entity, id string) *ServiceError {
	return New(KindStale, "optimistic lock failed; retry advised").
		WithDetails("entity", entity).WithDetails("id", id)
}

func DependentRows(entity, id string) *ServiceError {
	return New(KindDependentRows, "delete blocked by dependent rows").
		WithDetails("entity", entity).WithDetails("id", id)
}

func InvalidTransition(from, to string) *ServiceError {
	return New(KindInvalidTransition, "invalid workflow transition").
		WithDetails("from", from).WithDetails("to", to)
}

func NotFound(entity, id string) *ServiceError {
	return New(KindNotFound, "not found").WithDetails("entity", entity).WithDetails("id", id)
}

func Infra(message string, err error) *ServiceError {
	return Wrap(KindInfra, message, err)
}

func Internal(message string, err error) *ServiceError {
	return Wrap(KindInternal, message, err)
}

// TenantMismatch is a CONFLICT raised when a row's client_id does not match
// the actor's target client at create time.
func TenantMismatch(expected, got string) *ServiceError {
	return New(KindConflict, "client_id does not match tenant context").
		WithDetails("expected_client_id", expected).WithDetails("got_client_id", got)
}
