package dto

import (
	"net/http"

	"github.com/shopcore/backend/internal/domain/shared"
)

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	// ErrCodeValidation is the base code for validation errors
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeInvalidID is used when a path identifier is not a UUID
	ErrCodeInvalidID = "ERR_INVALID_ID"
	// ErrCodePayloadTooLarge is used when the body exceeds the configured limit
	ErrCodePayloadTooLarge = "ERR_PAYLOAD_TOO_LARGE"
)

// Authentication error codes
const (
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeForbidden    = "ERR_FORBIDDEN"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
)

// Resource error codes
const (
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConflict            = "ERR_CONFLICT"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

// Business rule error codes
const (
	ErrCodeInvalidState      = "ERR_INVALID_STATE"
	ErrCodeBusinessRule      = "ERR_BUSINESS_RULE"
	ErrCodeInsufficientStock = "ERR_INSUFFICIENT_STOCK"
)

// Rate limiting
const (
	// ErrCodeTooManyRequests is the only code a throttled client ever sees
	ErrCodeTooManyRequests = "too_many_requests"
)

// KindHTTPStatus maps domain error kinds to HTTP status codes
var KindHTTPStatus = map[shared.ErrorKind]int{
	shared.KindValidation:   http.StatusBadRequest,
	shared.KindBusinessRule: http.StatusConflict,
	shared.KindInvalidState: http.StatusConflict,
	shared.KindNotFound:     http.StatusNotFound,
	shared.KindConflict:     http.StatusConflict,
	shared.KindRateLimited:  http.StatusTooManyRequests,
	shared.KindUnauthorized: http.StatusUnauthorized,
	shared.KindForbidden:    http.StatusForbidden,
}

// StatusForKind returns the HTTP status for a domain error kind.
// Unknown kinds are internal errors.
func StatusForKind(kind shared.ErrorKind) int {
	if status, ok := KindHTTPStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// domainCodes maps domain error codes to the API codes clients rely on
var domainCodes = map[string]string{
	"NOT_FOUND":            ErrCodeNotFound,
	"ALREADY_EXISTS":       ErrCodeAlreadyExists,
	"INVALID_INPUT":        ErrCodeInvalidInput,
	"INVALID_STATE":        ErrCodeInvalidState,
	"UNAUTHORIZED":         ErrCodeUnauthorized,
	"FORBIDDEN":            ErrCodeForbidden,
	"CONCURRENCY_CONFLICT": ErrCodeConcurrencyConflict,
	"INSUFFICIENT_STOCK":   ErrCodeInsufficientStock,
	"TOKEN_INVALID":        ErrCodeTokenInvalid,
}

// NormalizeErrorCode converts a domain error code to the API format.
// Codes without a mapping are prefixed with ERR_.
func NormalizeErrorCode(code string) string {
	if apiCode, ok := domainCodes[code]; ok {
		return apiCode
	}
	if code == "" {
		return ErrCodeInternal
	}
	return "ERR_" + code
}
