package logger

import (
	"strings"
	"sync/atomic"
)

// Redacted replaces secret values in logged field maps.
const Redacted = "*** REDACTED IN LOGS ***"

var redactEnabled atomic.Bool

func init() {
	redactEnabled.Store(true)
}

var secretKeys = []string{"password", "key", "secret", "token", "session_id", "authorization"}

// IsSecretKey reports whether a field name looks like it holds a credential.
func IsSecretKey(name string) bool {
	lower := strings.ToLower(name)
	for _, s := range secretKeys {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// Redact returns a copy of fields with string values under secret-looking
// keys masked. Nested maps are walked. Redaction can be switched off with
// Config.Unredacted.
func Redact(fields map[string]interface{}) map[string]interface{} {
	if !redactEnabled.Load() || fields == nil {
		return fields
	}
	out := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		switch val := v.(type) {
		case map[string]interface{}:
			out[k] = Redact(val)
		case string:
			if IsSecretKey(k) {
				out[k] = Redacted
			} else {
				out[k] = val
			}
		default:
			out[k] = v
		}
	}
	return out
}
