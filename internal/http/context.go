package http

import (
	"context"
	"log/slog"

	"github.com/example/briefings/internal/logging"
)

type contextKey string

const adminUserContextKey contextKey = "admin_user"

// ContextWithLogger returns a derived context carrying the request logger.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return logging.ContextWithLogger(ctx, logger)
}

// LoggerFromContext extracts the request logger if present.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}

// ContextWithAdmin records the authenticated admin user name.
func ContextWithAdmin(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, adminUserContextKey, user)
}

// AdminFromContext returns the admin user name set by RequireAdmin.
func AdminFromContext(ctx context.Context) (string, bool) {
	user, ok := ctx.Value(adminUserContextKey).(string)
	return user, ok
}

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

// handlerLogger derives the logger for one handler operation. The request
// scoped logger wins over fallback, and routes behind RequireAdmin also carry
// the admin user.
func handlerLogger(ctx context.Context, fallback *slog.Logger, handlerName, operation string, attrs ...any) *slog.Logger {
	logger := LoggerFromContext(ctx)
	if logger == nil {
		logger = defaultLogger(fallback)
	}

	pairs := []any{"handler", handlerName, "operation", operation}
	if user, ok := AdminFromContext(ctx); ok {
		pairs = append(pairs, "admin", user)
	}
	return logger.With(append(pairs, attrs...)...)
}
