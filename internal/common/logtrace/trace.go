package logtrace

import (
	"context"

	"github.com/cspresent/present/internal/common/uuid"
)

type ctxKey string

const requestIDKey ctxKey = "requestId"

// WithRequestID returns a context carrying a fresh request id, unless ctx
// already has one.
func WithRequestID(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if RequestIDFromContext(ctx) != "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, uuid.New().String())
}

// RequestIDFromContext extracts the request id from the context.
// Returns an empty string if the context is nil or if no request id is found.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	r, ok := ctx.Value(requestIDKey).(string)
	if !ok {
		return ""
	}
	return r
}
