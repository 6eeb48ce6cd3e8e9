package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/briefings/internal/application"
)

type applicationService interface {
	SubmitApplication(ctx context.Context, input application.ApplicationInput) (application.Proposal, error)
	ApplicationAvailability(ctx context.Context, token string) (application.Availability, error)
	AcceptApplication(ctx context.Context, token string, date time.Time) (application.ConfirmResult, error)
	DeclineApplication(ctx context.Context, token string) error
	PendingApplications(ctx context.Context) ([]application.Proposal, error)
}

// ApplicationHandler serves warmup applications.
type ApplicationHandler struct {
	service   applicationService
	location  *time.Location
	responder responder
}

func NewApplicationHandler(service applicationService, loc *time.Location, logger *slog.Logger) *ApplicationHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &ApplicationHandler{service: service, location: loc, responder: newResponder(logger)}
}

func (h *ApplicationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req applicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	dates, ok := parseTimes(req.Dates, h.location)
	if !ok {
		h.responder.handleServiceError(r.Context(), w, invalidField("dates", "must be valid dates"))
		return
	}

	proposal, err := h.service.SubmitApplication(r.Context(), application.ApplicationInput{
		Email:       strings.TrimSpace(req.Email),
		Speaker:     strings.TrimSpace(req.Speaker),
		Affiliation: strings.TrimSpace(req.Affiliation),
		Bio:         req.Bio,
		Title:       strings.TrimSpace(req.Title),
		Abstract:    req.Abstract,
		Dates:       dates,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, submitApplicationResponse{Token: proposal.Token})
}

func (h *ApplicationHandler) Availability(w http.ResponseWriter, r *http.Request) {
	availability, err := h.service.ApplicationAvailability(r.Context(), r.PathValue("token"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toAvailabilityDTO(availability))
}

func (h *ApplicationHandler) Pending(w http.ResponseWriter, r *http.Request) {
	pending, err := h.service.PendingApplications(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	out := make([]proposalDTO, 0, len(pending))
	for _, p := range pending {
		out = append(out, toProposalDTO(p))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listApplicationsResponse{Applications: out})
}

func (h *ApplicationHandler) Accept(w http.ResponseWriter, r *http.Request) {
	var req acceptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	date, ok := parseTime(req.Date, h.location)
	if !ok {
		h.responder.handleServiceError(r.Context(), w, invalidField("date", "must be a valid date"))
		return
	}

	token := r.PathValue("token")
	result, err := h.service.AcceptApplication(r.Context(), token, date)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	handlerLogger(r.Context(), h.responder.logger, "ApplicationHandler", "Accept", "token", token).
		InfoContext(r.Context(), "application accepted", "date", formatTime(date), "first", result.First)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toConfirmResponse(result))
}

func (h *ApplicationHandler) Decline(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	if err := h.service.DeclineApplication(r.Context(), token); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	handlerLogger(r.Context(), h.responder.logger, "ApplicationHandler", "Decline", "token", token).
		InfoContext(r.Context(), "application declined")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type applicationRequest struct {
	Email       string   `json:"email"`
	Speaker     string   `json:"speaker"`
	Affiliation string   `json:"affiliation"`
	Bio         string   `json:"bio"`
	Title       string   `json:"title"`
	Abstract    string   `json:"abstract"`
	Dates       []string `json:"dates"`
}

type acceptRequest struct {
	Date string `json:"date"`
}

type submitApplicationResponse struct {
	Token string `json:"token"`
}

type listApplicationsResponse struct {
	Applications []proposalDTO `json:"applications"`
}
