package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Reply is a response whose JSON body was decoded into T.
type Reply[T any] struct {
	StatusCode int
	Data       T
}

// RequestOption adjusts a single request.
type RequestOption func(*Request)

// WithQueryParam sets a query parameter.
func WithQueryParam(key, value string) RequestOption {
	return func(r *Request) {
		if r.Query == nil {
			r.Query = map[string]string{}
		}
		r.Query[key] = value
	}
}

// Get fetches path and decodes the JSON answer into T.
func Get[T any](a *Adapter, ctx context.Context, path string, opts ...RequestOption) (*Reply[T], error) {
	return call[T](ctx, a, Request{Method: http.MethodGet, Path: path}, opts)
}

// Post sends body to path and decodes the JSON answer into T. See Request
// for the accepted body types.
func Post[T any](a *Adapter, ctx context.Context, path string, body any, opts ...RequestOption) (*Reply[T], error) {
	return call[T](ctx, a, Request{Method: http.MethodPost, Path: path, Body: body}, opts)
}

// call decodes error bodies too when they fit T, so a provider can read
// the fields it reports failures in. The *Error is still returned.
func call[T any](ctx context.Context, a *Adapter, req Request, opts []RequestOption) (*Reply[T], error) {
	for _, opt := range opts {
		opt(&req)
	}
	resp, err := a.Do(ctx, req)
	if resp == nil {
		return nil, err
	}
	reply := &Reply[T]{StatusCode: resp.StatusCode}
	if len(resp.Body) == 0 {
		return reply, err
	}
	if jsonErr := json.Unmarshal(resp.Body, &reply.Data); jsonErr != nil {
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("httpclient: decode %s %s: %w", req.Method, req.Path, jsonErr)
	}
	return reply, err
}
