package shared

import "errors"

// ErrorKind classifies a DomainError so the transport layer can map it without
// knowing every individual code.
type ErrorKind string

const (
	KindValidation   ErrorKind = "VALIDATION"
	KindBusinessRule ErrorKind = "BUSINESS_RULE"
	KindInvalidState ErrorKind = "INVALID_STATE"
	KindNotFound     ErrorKind = "NOT_FOUND"
	KindConflict     ErrorKind = "CONFLICT"
	KindRateLimited  ErrorKind = "RATE_LIMITED"
	KindUnauthorized ErrorKind = "UNAUTHORIZED"
	KindForbidden    ErrorKind = "FORBIDDEN"
)

// DomainError represents a domain-level error
type DomainError struct {
	Kind    ErrorKind `json:"-"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target is a DomainError with the same code.
// It lets callers compare against the sentinels below even when the message differs.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error of the given kind
func NewDomainError(kind ErrorKind, code, message string) *DomainError {
	return &DomainError{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// NewValidationError creates an error for malformed input
func NewValidationError(code, message string) *DomainError {
	return NewDomainError(KindValidation, code, message)
}

// NewBusinessRuleError creates an error for valid input that breaks a domain invariant
func NewBusinessRuleError(code, message string) *DomainError {
	return NewDomainError(KindBusinessRule, code, message)
}

// NewInvalidStateError creates an error for a rejected state transition
func NewInvalidStateError(message string) *DomainError {
	return NewDomainError(KindInvalidState, ErrInvalidState.Code, message)
}

// NewNotFoundError creates a not-found error with a specific message
func NewNotFoundError(message string) *DomainError {
	return NewDomainError(KindNotFound, ErrNotFound.Code, message)
}

// KindOf returns the kind of err if it wraps a DomainError, or "" otherwise.
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError(KindNotFound, "NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError(KindConflict, "ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError(KindValidation, "INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError(KindConflict, "CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrUnauthorized        = NewDomainError(KindUnauthorized, "UNAUTHORIZED", "Not authorized to perform this action")
	ErrForbidden           = NewDomainError(KindForbidden, "FORBIDDEN", "Access to this resource is forbidden")
	ErrInvalidState        = NewDomainError(KindInvalidState, "INVALID_STATE", "Operation not allowed in current state")
	ErrInsufficientStock   = NewDomainError(KindBusinessRule, "INSUFFICIENT_STOCK", "Insufficient stock available")
	ErrRateLimited         = NewDomainError(KindRateLimited, "TOO_MANY_REQUESTS", "Too many requests, please try again later")
)
