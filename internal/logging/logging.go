// Package logging carries request-scoped loggers through context and fans
// slog records out to multiple handlers.
package logging

import (
	"context"
	"errors"
	"io"
	"log/slog"
)

type loggerContextKey struct{}

// WithLogger returns a context carrying the provided logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, loggerContextKey{}, ensureLogger(logger))
}

// FromContext returns the request-scoped logger, the fallback, or a no-op
// logger, in that order of preference.
func FromContext(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerContextKey{}).(*slog.Logger); ok && logger != nil {
			return logger
		}
	}
	return ensureLogger(fallback)
}

func ensureLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Fanout combines handlers so one logger can write to, e.g., tint and the
// sentry handler at once. Nil handlers are skipped.
func Fanout(handlers ...slog.Handler) slog.Handler {
	kept := make(fanoutHandler, 0, len(handlers))
	for _, handler := range handlers {
		if handler != nil {
			kept = append(kept, handler)
		}
	}
	if len(kept) == 0 {
		return slog.NewTextHandler(io.Discard, nil)
	}
	return kept
}

type fanoutHandler []slog.Handler

func (h fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	var err error
	for _, handler := range h {
		if !handler.Enabled(ctx, record.Level) {
			continue
		}
		err = errors.Join(err, handler.Handle(ctx, record))
	}
	return err
}

func (h fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make(fanoutHandler, 0, len(h))
	for _, handler := range h {
		next = append(next, handler.WithAttrs(attrs))
	}
	return next
}

func (h fanoutHandler) WithGroup(name string) slog.Handler {
	next := make(fanoutHandler, 0, len(h))
	for _, handler := range h {
		next = append(next, handler.WithGroup(name))
	}
	return next
}
