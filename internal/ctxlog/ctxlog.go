// Package ctxlog carries the run's slog.Logger through context.Context so
// tasks, transforms and watchers log with the attributes of whoever called
// them.
package ctxlog

import (
	"context"
	"log/slog"
)

type key struct{}

// WithLogger returns a copy of ctx carrying logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, key{}, logger)
}

// With narrows the logger in ctx with args and stores the result, returning
// both. Code running under the returned context logs with the same
// attributes.
func With(ctx context.Context, args ...any) (context.Context, *slog.Logger) {
	logger := FromContext(ctx).With(args...)
	return WithLogger(ctx, logger), logger
}

// FromContext returns the logger in ctx, or slog.Default when there is none.
// Code outside a run, such as tests driving a single transform, still logs.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(key{}).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}
