// Package observability carries request-scoped logging context across layer
// boundaries. The HTTP middleware attaches a logger and request id; deeper
// layers (queue producer, workers) read them back to correlate their logs
// with the originating request.
package observability

import (
	"context"
	"log/slog"
)

type ctxKeyLogger struct{}

type ctxKeyRequestID struct{}

// ContextWithLogger derives a context carrying the given logger. A nil logger
// leaves the context untouched.
func ContextWithLogger(ctx context.Context, lg *slog.Logger) context.Context {
	if ctx == nil || lg == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxKeyLogger{}, lg)
}

// LoggerFromContext returns the request-scoped logger, falling back to
// slog.Default when the context carries none.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return slog.Default()
	}
	if lg, ok := ctx.Value(ctxKeyLogger{}).(*slog.Logger); ok && lg != nil {
		return lg
	}
	return slog.Default()
}

// ContextWithRequestID derives a context carrying the originating HTTP
// request id. An empty id leaves the context untouched.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	if ctx == nil || requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKeyRequestID{}, requestID)
}

// RequestIDFromContext returns the request id carried by the context, or ""
// when none is present.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if rid, ok := ctx.Value(ctxKeyRequestID{}).(string); ok {
		return rid
	}
	return ""
}
