package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
)

// Describe renders err as one log line. AppErrors show their code and
// message; context deadline and cancellation are named explicitly.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return "timed out: " + err.Error()
	}
	if stderrors.Is(err, context.Canceled) {
		return "cancelled"
	}
	if appErr, ok := AsAppError(err); ok {
		msg := fmt.Sprintf("[%s] %s", appErr.Code, appErr.Message)
		if appErr.Cause != nil {
			msg += ": " + appErr.Cause.Error()
		}
		return msg
	}
	return strings.TrimSpace(err.Error())
}
