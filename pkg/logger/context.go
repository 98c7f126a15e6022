package logger

import (
	"context"
	"log/slog"
)

type scopedKey struct{}

// With scopes the context's logger with extra attributes, such as the request
// id or the signed-in user.
func With(ctx context.Context, fields ...any) context.Context {
	return Into(ctx, From(ctx).With(fields...))
}

// Into stores l as the context's logger.
func Into(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, scopedKey{}, l)
}

// From returns the scoped logger, falling back to the process logger.
func From(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(scopedKey{}).(*slog.Logger); ok {
		return l
	}
	return LoggerWrapper()
}

// Scoped returns the context's logger only if one was stored with With or Into.
func Scoped(ctx context.Context) (*slog.Logger, bool) {
	l, ok := ctx.Value(scopedKey{}).(*slog.Logger)
	return l, ok
}
