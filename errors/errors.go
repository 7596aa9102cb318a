package errors

import (
	"fmt"
	"net/http"
)

// AppError is an error that knows how it should reach an API client: a
// code, a safe message and an HTTP status. Cause is only logged.
type AppError struct {
	Code       ErrorCode      `json:"code"`
	Message    string         `json:"message"`
	Retryable  bool           `json:"retryable"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Cause      error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

// WithCause attaches the underlying error.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail adds one client-visible detail.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = map[string]any{}
	}
	e.Details[key] = value
	return e
}

// New creates an AppError whose retryability follows code.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: httpStatus, Retryable: IsRetryableCode(code)}
}

// ServiceUnavailable is a dependency that is down for now.
func ServiceUnavailable(service string) *AppError {
	return New(ErrCodeServiceUnavailable, fmt.Sprintf("The %s is temporarily unavailable.", service), http.StatusServiceUnavailable).
		WithDetail("service", service)
}

// ConnectionFailed is a dependency that could not be reached.
func ConnectionFailed(service string) *AppError {
	return New(ErrCodeConnectionFailed, "Unable to connect to "+service+".", http.StatusServiceUnavailable).
		WithDetail("service", service)
}

// Timeout is an operation cut off by its deadline.
func Timeout(operation string) *AppError {
	return New(ErrCodeTimeout, operation+" took too long", http.StatusGatewayTimeout).
		WithDetail("operation", operation)
}

// RateLimited is a request rejected by the API rate limit.
func RateLimited() *AppError {
	return New(ErrCodeRateLimited, "Too many requests. Please wait and try again.", http.StatusTooManyRequests)
}

// NotFound is a missing resource. An empty id is left out of the details.
func NotFound(resource, id string) *AppError {
	e := New(ErrCodeNotFound, fmt.Sprintf("The requested %s was not found.", resource), http.StatusNotFound).
		WithDetail("resource", resource)
	if id != "" {
		e.WithDetail("id", id)
	}
	return e
}

// Conflict is a request that clashes with the current state, such as a
// cycle already running.
func Conflict(reason string) *AppError {
	return New(ErrCodeConflict, reason, http.StatusConflict)
}

// InvalidInput is a rejected request field.
func InvalidInput(field, reason string) *AppError {
	e := New(ErrCodeInvalidInput, "Invalid input: "+reason, http.StatusBadRequest)
	if field != "" {
		e.WithDetail("field", field)
	}
	return e
}

// Validation is a failed struct or config check.
func Validation(message string) *AppError {
	return New(ErrCodeInvalidInput, message, http.StatusBadRequest)
}

// MissingField is a required field left empty.
func MissingField(field string) *AppError {
	return New(ErrCodeMissingField, "Missing required field: "+field, http.StatusBadRequest).
		WithDetail("field", field)
}

// Internal hides cause behind a generic message.
func Internal(cause error) *AppError {
	return New(ErrCodeInternal, "An unexpected error occurred.", http.StatusInternalServerError).WithCause(cause)
}

// DatabaseError wraps a persistence failure.
func DatabaseError(cause error) *AppError {
	return New(ErrCodeDatabaseError, "A database error occurred.", http.StatusInternalServerError).WithCause(cause)
}

// ProviderFailed is a provider that answered without a usable result.
func ProviderFailed(provider, reason string) *AppError {
	return New(ErrCodeProviderFailed, provider+": "+reason, http.StatusBadGateway).
		WithDetail("provider", provider)
}

// NotConfigured is a provider used without credentials or missing from
// the registry.
func NotConfigured(provider string) *AppError {
	return New(ErrCodeNotConfigured, fmt.Sprintf("provider %q is not configured", provider), http.StatusNotFound).
		WithDetail("provider", provider)
}
