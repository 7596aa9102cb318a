// Package errors provides the application error type used across phrame.
//
// AppError carries a machine-readable code, an HTTP status for the API layer
// and a retryable flag. Provider adapters report their failures with
// ProviderFailed, Timeout or NotConfigured, and Describe renders any
// error as the single line that goes into retry logs.
package errors
