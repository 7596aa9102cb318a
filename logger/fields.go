package logger

import "time"

// Keys shared by every package so log queries can rely on them.
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldCorrelationID = "correlation_id"
	FieldSummaryID     = "summary_id"
	FieldProvider      = "provider"
	FieldStyle         = "style"
	FieldOperation     = "operation"
	FieldError         = "error"
	FieldDuration      = "duration_ms"
)

// Fields pairs up keys and values. Non-string keys and a trailing key
// without a value are skipped.
//
//	log.Info("saved", logger.Fields("provider", "openai", "count", 2))
func Fields(kvs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kvs)/2)
	for i := 1; i < len(kvs); i += 2 {
		if key, ok := kvs[i-1].(string); ok {
			m[key] = kvs[i]
		}
	}
	return m
}

// Outcome describes a finished call. The error key is only set when err
// is non-nil.
func Outcome(op string, took time.Duration, err error) map[string]interface{} {
	m := map[string]interface{}{FieldOperation: op, FieldDuration: took.Milliseconds()}
	if err != nil {
		m[FieldError] = err.Error()
	}
	return m
}
