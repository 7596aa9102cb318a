package errors

import stderrors "errors"

// Envelope is the JSON body of every failed API response.
type Envelope struct {
	Error Problem `json:"error"`
}

// Problem is the client-facing part of an AppError. Causes stay in the logs.
type Problem struct {
	Code      ErrorCode      `json:"code"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable"`
	Details   map[string]any `json:"details,omitempty"`
}

// Envelope returns the body the API sends for e.
func (e *AppError) Envelope() Envelope {
	return Envelope{Error: Problem{
		Code:      e.Code,
		Message:   e.Message,
		Retryable: e.Retryable,
		Details:   e.Details,
	}}
}

// AsAppError finds the first *AppError in err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	ok := stderrors.As(err, &appErr)
	return appErr, ok
}

// IsAppError reports whether err's chain holds an *AppError.
func IsAppError(err error) bool {
	_, ok := AsAppError(err)
	return ok
}
