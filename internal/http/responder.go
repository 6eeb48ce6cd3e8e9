package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/briefings/internal/application"
)

var (
	errBadRequestBody = errors.New("invalid request body")
	errInvalidDate    = errors.New("invalid date")
)

const (
	msgInvalidLink     = "invalid link"
	msgPastEvent       = "cannot edit past events"
	msgDateUnavailable = "that date is no longer available, contact the organizer"
	msgTryAgain        = "try again"
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := http.StatusText(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		logger := r.loggerFor(ctx)
		if status >= http.StatusInternalServerError {
			logger.ErrorContext(ctx, "request failed", "status", status, "error", err)
		} else {
			logger.WarnContext(ctx, "request rejected", "status", status, "error", err)
		}
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

// handleServiceError maps application errors onto statuses and the messages
// shown to speakers and organizers.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	switch {
	case errors.Is(err, application.ErrUnauthorized):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{ErrorCode: "unauthorized", Message: "invalid credentials"})
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{ErrorCode: "not_found", Message: msgInvalidLink})
	case errors.Is(err, application.ErrExpired):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{ErrorCode: "expired", Message: msgPastEvent})
	case errors.Is(err, application.ErrDateUnavailable):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{ErrorCode: "date_unavailable", Message: msgDateUnavailable})
	case errors.Is(err, application.ErrNotifierFailure):
		r.loggerFor(ctx).ErrorContext(ctx, "notifier failed", "error", err)
		r.writeJSON(ctx, w, http.StatusBadGateway, errorResponse{ErrorCode: "notifier_failure", Message: msgTryAgain})
	default:
		var vErr *application.ValidationError
		if errors.As(err, &vErr) {
			r.writeJSON(ctx, w, http.StatusBadRequest, errorResponse{
				ErrorCode: "validation",
				Message:   "validation failed",
				Errors:    vErr.FieldErrors,
			})
			return
		}

		r.loggerFor(ctx).ErrorContext(ctx, "service failure", "error", err, "error_kind", application.ErrorKind(err))
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{ErrorCode: application.ErrorKind(err), Message: msgTryAgain})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}
