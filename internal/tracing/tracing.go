package tracing

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	forwardIDKey contextKey = "forward_id"
	requestIDKey contextKey = "request_id"
)

// NewForwardID returns a fresh identifier for one forward attempt
func NewForwardID() string {
	return uuid.NewString()
}

// WithForwardID adds a forward attempt ID to the context
func WithForwardID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, forwardIDKey, id)
}

// ForwardID returns the forward attempt ID stored in the context
func ForwardID(ctx context.Context) string {
	if id, ok := ctx.Value(forwardIDKey).(string); ok {
		return id
	}
	return ""
}

// NewRequestID returns a fresh identifier for one status server request
func NewRequestID() string {
	return uuid.NewString()
}

// WithRequestID adds a status server request ID to the context
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the request ID stored in the context
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}
