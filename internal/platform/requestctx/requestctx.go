// Package requestctx carries request-scoped correlation values across
// package boundaries without coupling callers to the HTTP layer.
package requestctx

import "context"

// RequestIDHeader is the header used to propagate request ids between the
// console, the CLI, and the backend.
const RequestIDHeader = "X-Request-ID"

type requestIDContextKey struct{}

// WithRequestID stores a request identifier in context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, requestIDContextKey{}, requestID)
}

// RequestIDFromContext returns the request identifier stored in context.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(requestIDContextKey{}).(string)
	return value
}
