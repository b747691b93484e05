package logger

import (
	"context"
	"log/slog"
)

type contextKey string

const (
	slogKey   contextKey = "respkv.slog"
	connIDKey contextKey = "respkv.conn_id"
)

// WithSlog stores the logger a connection should log through.
func WithSlog(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, slogKey, l)
}

// WithConnID tags ctx with a connection id.
func WithConnID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, connIDKey, id)
}

// ConnIDFromContext returns the connection id, if any.
func ConnIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(connIDKey).(int64)
	return id, ok
}

// FromContext returns the stored logger, or slog's default, with conn_id
// attached when ctx carries one.
func FromContext(ctx context.Context) *slog.Logger {
	l, ok := ctx.Value(slogKey).(*slog.Logger)
	if !ok {
		l = slog.Default()
	}
	if id, ok := ConnIDFromContext(ctx); ok {
		l = l.With("conn_id", id)
	}
	return l
}
