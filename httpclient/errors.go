package httpclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind groups failures by what a caller can do about them.
type Kind string

const (
	KindTimeout    Kind = "timeout"
	KindConnection Kind = "connection"
	KindAuth       Kind = "auth"
	KindNotFound   Kind = "not_found"
	KindRateLimit  Kind = "rate_limit"
	// KindRequest covers other 4xx answers and requests that could not be
	// built locally.
	KindRequest Kind = "request"
	KindServer  Kind = "server"
)

// Error is a failed call. StatusCode is 0 when no response arrived; Body
// holds the raw error body otherwise. Client is the Config.Name of the
// adapter that made the call.
type Error struct {
	Client     string
	Kind       Kind
	StatusCode int
	Body       []byte
	Err        error
}

func (e *Error) Error() string {
	prefix := "httpclient"
	if e.Client != "" {
		prefix += " " + e.Client
	}
	switch {
	case e.StatusCode > 0:
		return fmt.Sprintf("%s: %s: HTTP %d", prefix, e.Kind, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", prefix, e.Kind, e.Err)
	default:
		return prefix + ": " + string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

func transportError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

func requestError(format string, args ...any) *Error {
	return &Error{Kind: KindRequest, Err: fmt.Errorf(format, args...)}
}

// classify returns nil for 2xx.
func classify(status int, body []byte) *Error {
	if status >= 200 && status < 300 {
		return nil
	}
	e := &Error{StatusCode: status, Body: body}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.Kind = KindAuth
	case status == http.StatusNotFound:
		e.Kind = KindNotFound
	case status == http.StatusTooManyRequests:
		e.Kind = KindRateLimit
	case status >= 400 && status < 500:
		e.Kind = KindRequest
	default:
		e.Kind = KindServer
	}
	return e
}

func asError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// BodyMessage returns the first non-empty value among the dotted JSON
// paths of err's body, such as "error.message" or "detail". Without a
// match it falls back to err.Error().
func BodyMessage(err error, paths ...string) string {
	if err == nil {
		return ""
	}
	if e, ok := asError(err); ok && len(e.Body) > 0 {
		var doc any
		if json.Unmarshal(e.Body, &doc) == nil {
			for _, p := range paths {
				if v := dig(doc, strings.Split(p, ".")); v != "" {
					return v
				}
			}
		}
	}
	return err.Error()
}

func dig(doc any, keys []string) string {
	for _, k := range keys {
		m, ok := doc.(map[string]any)
		if !ok {
			return ""
		}
		doc = m[k]
	}
	switch v := doc.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		b, _ := json.Marshal(v)
		return string(b)
	}
}
