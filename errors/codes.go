package errors

// ErrorCode is the machine-readable code sent to API clients.
type ErrorCode string

const (
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodeConnectionFailed   ErrorCode = "CONNECTION_FAILED"
	ErrCodeTimeout            ErrorCode = "TIMEOUT"
	ErrCodeRateLimited        ErrorCode = "RATE_LIMITED"

	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	ErrCodeConflict ErrorCode = "CONFLICT"

	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"

	// ErrCodeProviderFailed is a provider that answered without a usable
	// result: a failed task, an error body or a missing image.
	ErrCodeProviderFailed ErrorCode = "PROVIDER_FAILED"
	// ErrCodeNotConfigured is a provider without credentials or adapter.
	ErrCodeNotConfigured ErrorCode = "NOT_CONFIGURED"

	ErrCodeInternal      ErrorCode = "INTERNAL_ERROR"
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"
)

// IsRetryableCode reports whether a failure with code may succeed when
// tried again.
func IsRetryableCode(code ErrorCode) bool {
	switch code {
	case ErrCodeServiceUnavailable, ErrCodeConnectionFailed, ErrCodeTimeout,
		ErrCodeRateLimited, ErrCodeProviderFailed, ErrCodeDatabaseError:
		return true
	}
	return false
}
