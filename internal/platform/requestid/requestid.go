// Package requestid carries the per-request correlation ID through contexts.
package requestid

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

// NewContext returns a context that carries the given request ID.
func NewContext(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the request ID stored in ctx, or an empty string.
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Logger returns l with a request_id attribute when ctx carries one, and l
// unchanged otherwise.
func Logger(ctx context.Context, l *slog.Logger) *slog.Logger {
	if id := FromContext(ctx); id != "" {
		return l.With("request_id", id)
	}
	return l
}
