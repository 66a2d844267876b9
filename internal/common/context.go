package common

import (
	"context"
	"time"
)

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyRequestID contextKey = "request_id"
	ContextKeySession   contextKey = "session"
)

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// RequestIDFromContext extracts the request ID from context
func RequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return requestID
	}
	return ""
}

// WithSession tags the context with a pipeline session generation.
func WithSession(ctx context.Context, session uint64) context.Context {
	return context.WithValue(ctx, ContextKeySession, session)
}

// SessionFromContext returns the pipeline session generation, or 0.
func SessionFromContext(ctx context.Context) uint64 {
	if s, ok := ctx.Value(ContextKeySession).(uint64); ok {
		return s
	}
	return 0
}

// WithTimeout creates a context with the specified timeout
func WithTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, timeout)
}
