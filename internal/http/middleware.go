package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/cors"

	"github.com/example/briefings/internal/application"
)

const requestIDHeader = "X-Request-ID"

// Authenticator verifies admin credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, user, password string) error
}

// RequireAdmin guards a handler with HTTP basic auth.
func RequireAdmin(auth Authenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, password, ok := r.BasicAuth()
			if !ok {
				w.Header().Set("WWW-Authenticate", `Basic realm="briefings"`)
				responder.writeJSON(r.Context(), w, http.StatusUnauthorized, errorResponse{Message: "authentication required"})
				return
			}

			if err := auth.Authenticate(r.Context(), user, password); err != nil {
				if errors.Is(err, application.ErrUnauthorized) {
					w.Header().Set("WWW-Authenticate", `Basic realm="briefings"`)
					responder.writeJSON(r.Context(), w, http.StatusUnauthorized, errorResponse{Message: "invalid credentials"})
					return
				}
				responder.writeError(r.Context(), w, http.StatusInternalServerError, errors.New("try again"))
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithAdmin(r.Context(), user)))
		})
	}
}

// RequestLogger attaches a request scoped logger and logs request completion.
// An incoming X-Request-ID is reused; otherwise a new id is generated.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(requestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, id)

			logger := base.With(
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
			)

			ctx := ContextWithLogger(r.Context(), logger)
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(rec, r.WithContext(ctx))
			logger.InfoContext(ctx, "request completed", "status", rec.status, "duration", time.Since(start))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// CORS allows browser clients from origins to call the API. With no origins
// the handler is returned unchanged.
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader},
		AllowCredentials: true,
		MaxAge:           600,
	})
	return c.Handler
}
