package shared

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a DomainError so callers can branch on the failure
// category instead of inspecting messages.
type ErrorKind string

const (
	KindValidation          ErrorKind = "VALIDATION"
	KindInsufficientStock   ErrorKind = "INSUFFICIENT_STOCK"
	KindStateConflict       ErrorKind = "STATE_CONFLICT"
	KindConcurrencyConflict ErrorKind = "CONCURRENCY_CONFLICT"
	KindOverpayment         ErrorKind = "OVERPAYMENT"
	KindNotFound            ErrorKind = "NOT_FOUND"
	KindDuplicatePayment    ErrorKind = "DUPLICATE_PAYMENT"
	KindInternal            ErrorKind = "INTERNAL"
)

// String returns the string representation of ErrorKind
func (k ErrorKind) String() string {
	return string(k)
}

// DomainError represents a domain-level error
type DomainError struct {
	Kind    ErrorKind      `json:"kind"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the wrapped cause, if any
func (e *DomainError) Unwrap() error {
	return e.cause
}

// Is reports whether target is a DomainError of the same kind and code.
// A target without a code matches every error of its kind.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// WithDetail returns a copy of the error carrying an extra detail entry
func (e *DomainError) WithDetail(key string, value any) *DomainError {
	details := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &DomainError{
		Kind:    e.Kind,
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		cause:   e.cause,
	}
}

// WithCause returns a copy of the error wrapping cause
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Kind:    e.Kind,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		cause:   cause,
	}
}

// NewDomainError creates a new domain error
func NewDomainError(kind ErrorKind, code, message string) *DomainError {
	return &DomainError{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// NewValidationError creates a validation error for malformed or out-of-range input
func NewValidationError(code, message string) *DomainError {
	return NewDomainError(KindValidation, code, message)
}

// NewNotFoundError creates a not-found error for the named resource
func NewNotFoundError(resource string, key any) *DomainError {
	return NewDomainError(KindNotFound, "NOT_FOUND", fmt.Sprintf("%s %v not found", resource, key)).
		WithDetail("resource", resource)
}

// NewStateConflictError creates an error for an illegal state transition
func NewStateConflictError(entity string, from, to fmt.Stringer) *DomainError {
	return NewDomainError(KindStateConflict, "INVALID_STATE",
		fmt.Sprintf("cannot transition %s from %s to %s", entity, from, to)).
		WithDetail("from", from.String()).
		WithDetail("to", to.String())
}

// NewConcurrencyConflictError creates an error for a lost update detected on write
func NewConcurrencyConflictError(message string) *DomainError {
	return NewDomainError(KindConcurrencyConflict, "CONCURRENCY_CONFLICT", message)
}

// NewInternalError wraps an unexpected infrastructure failure
func NewInternalError(message string, cause error) *DomainError {
	return NewDomainError(KindInternal, "INTERNAL", message).WithCause(cause)
}

// KindOf returns the kind of the first DomainError in err's chain.
// Errors that are not domain errors are reported as KindInternal.
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries a DomainError of the given kind
func IsKind(err error, kind ErrorKind) bool {
	if err == nil {
		return false
	}
	var de *DomainError
	return errors.As(err, &de) && de.Kind == kind
}

// Sentinels for errors.Is matching by kind
var (
	ErrValidation          = &DomainError{Kind: KindValidation, Message: "invalid input"}
	ErrInsufficientStock   = &DomainError{Kind: KindInsufficientStock, Message: "insufficient stock"}
	ErrStateConflict       = &DomainError{Kind: KindStateConflict, Message: "operation not allowed in current state"}
	ErrConcurrencyConflict = &DomainError{Kind: KindConcurrencyConflict, Message: "resource was modified by another process"}
	ErrOverpayment         = &DomainError{Kind: KindOverpayment, Message: "payment exceeds outstanding balance"}
	ErrNotFound            = &DomainError{Kind: KindNotFound, Message: "resource not found"}
	ErrDuplicatePayment    = &DomainError{Kind: KindDuplicatePayment, Message: "payment already applied"}
)
