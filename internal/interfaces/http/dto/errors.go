package dto

import (
	"net/http"

	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/shared"
)

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Input error codes
const (
	// ErrCodeValidation is used when a request fails binding or domain validation
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
	// ErrCodeRequestTooLarge is used when the body exceeds the configured limit
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeInvalidState is used when an operation is invalid for the current state
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	// ErrCodeConcurrencyConflict is used when a write lost a race and retries ran out
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
	// ErrCodeDuplicatePayment is used when a gateway reference was already applied
	ErrCodeDuplicatePayment = "ERR_DUPLICATE_PAYMENT"
)

// Business rule error codes
const (
	// ErrCodeInsufficientStock is used when lots cannot cover a requested quantity
	ErrCodeInsufficientStock = "ERR_INSUFFICIENT_STOCK"
	// ErrCodeOverpayment is used when a payment exceeds what is owed
	ErrCodeOverpayment = "ERR_OVERPAYMENT"
)

// kindCodes maps domain error kinds to API error codes
var kindCodes = map[shared.ErrorKind]string{
	shared.KindValidation:          ErrCodeValidation,
	shared.KindInsufficientStock:   ErrCodeInsufficientStock,
	shared.KindStateConflict:       ErrCodeInvalidState,
	shared.KindConcurrencyConflict: ErrCodeConcurrencyConflict,
	shared.KindOverpayment:         ErrCodeOverpayment,
	shared.KindNotFound:            ErrCodeNotFound,
	shared.KindDuplicatePayment:    ErrCodeDuplicatePayment,
	shared.KindInternal:            ErrCodeInternal,
}

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal: http.StatusInternalServerError,

	// Input errors -> 400 Bad Request
	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,

	// Resource errors
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeInvalidState:        http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodeDuplicatePayment:    http.StatusConflict,

	// Business rule errors -> 422 Unprocessable Entity
	ErrCodeInsufficientStock: http.StatusUnprocessableEntity,
	ErrCodeOverpayment:       http.StatusUnprocessableEntity,
}

// CodeForKind returns the API error code of a domain error kind.
// Unknown kinds map to ErrCodeInternal.
func CodeForKind(kind shared.ErrorKind) string {
	if code, ok := kindCodes[kind]; ok {
		return code
	}
	return ErrCodeInternal
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
