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

type invitationService interface {
	CreateInvitation(ctx context.Context, input application.CreateInvitationInput) (application.Proposal, error)
	InvitationAvailability(ctx context.Context, token string) (application.Availability, error)
	ConfirmInvitation(ctx context.Context, token string, date time.Time, fields application.EventFields) (application.ConfirmResult, error)
	InvitationStatuses(ctx context.Context) ([]application.InvitationStatusView, error)
}

// InvitationHandler serves the invitee date picker and the organizer views.
type InvitationHandler struct {
	service   invitationService
	location  *time.Location
	responder responder
}

// NewInvitationHandler builds the handler. Dates without a zone are read in loc.
func NewInvitationHandler(service invitationService, loc *time.Location, logger *slog.Logger) *InvitationHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &InvitationHandler{service: service, location: loc, responder: newResponder(logger)}
}

func (h *InvitationHandler) Availability(w http.ResponseWriter, r *http.Request) {
	availability, err := h.service.InvitationAvailability(r.Context(), r.PathValue("token"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toAvailabilityDTO(availability))
}

func (h *InvitationHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	date, ok := parseTime(req.Date, h.location)
	if !ok {
		h.responder.handleServiceError(r.Context(), w, invalidField("date", "must be a valid date"))
		return
	}

	result, err := h.service.ConfirmInvitation(r.Context(), r.PathValue("token"), date, req.fields())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toConfirmResponse(result))
}

func (h *InvitationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createInvitationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	input, vErr := req.toInput(h.location)
	if vErr != nil {
		h.responder.handleServiceError(r.Context(), w, vErr)
		return
	}

	proposal, err := h.service.CreateInvitation(r.Context(), input)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	handlerLogger(r.Context(), h.responder.logger, "InvitationHandler", "Create", "token", proposal.Token).
		InfoContext(r.Context(), "invitation created", "candidates", len(proposal.CandidateDates), "sent", input.SendEmail)
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toProposalDTO(proposal))
}

func (h *InvitationHandler) List(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.InvitationStatuses(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	out := make([]invitationStatusDTO, 0, len(views))
	for _, v := range views {
		out = append(out, invitationStatusDTO{Invitation: toProposalDTO(v.Proposal), Status: string(v.Status)})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listInvitationsResponse{Invitations: out})
}

type confirmRequest struct {
	Date             string `json:"date"`
	Speaker          string `json:"speaker"`
	Affiliation      string `json:"affiliation"`
	Bio              string `json:"bio"`
	Title            string `json:"title"`
	Abstract         string `json:"abstract"`
	Email            string `json:"email"`
	Location         string `json:"location"`
	RecordingConsent bool   `json:"recording_consent"`
}

func (r confirmRequest) fields() application.EventFields {
	return application.EventFields{
		Speaker:          strings.TrimSpace(r.Speaker),
		Affiliation:      strings.TrimSpace(r.Affiliation),
		Bio:              r.Bio,
		Title:            strings.TrimSpace(r.Title),
		Abstract:         r.Abstract,
		Email:            strings.TrimSpace(r.Email),
		Location:         strings.TrimSpace(r.Location),
		RecordingConsent: r.RecordingConsent,
	}
}

type seriesRequest struct {
	First         string `json:"first"`
	Count         int    `json:"count"`
	IntervalWeeks int    `json:"interval_weeks"`
}

type createInvitationRequest struct {
	Email     string         `json:"email"`
	Host      string         `json:"host"`
	HostEmail string         `json:"host_email"`
	Warmup    warmupFlag     `json:"warmup"`
	Dates     []string       `json:"dates"`
	Series    *seriesRequest `json:"series"`
	SendEmail bool           `json:"send_email"`
}

func (r createInvitationRequest) toInput(loc *time.Location) (application.CreateInvitationInput, *application.ValidationError) {
	dates, ok := parseTimes(r.Dates, loc)
	if !ok {
		return application.CreateInvitationInput{}, invalidField("dates", "must be valid dates")
	}
	input := application.CreateInvitationInput{
		Email:     strings.TrimSpace(r.Email),
		Host:      strings.TrimSpace(r.Host),
		HostEmail: strings.TrimSpace(r.HostEmail),
		Warmup:    bool(r.Warmup),
		Dates:     dates,
		SendEmail: r.SendEmail,
	}
	if r.Series != nil {
		first, ok := parseTime(r.Series.First, loc)
		if !ok {
			return application.CreateInvitationInput{}, invalidField("series.first", "must be a valid date")
		}
		input.Series = &application.Series{First: first, Count: r.Series.Count, IntervalWeeks: r.Series.IntervalWeeks}
	}
	return input, nil
}

type confirmResponse struct {
	FirstConfirmation bool     `json:"first_confirmation"`
	Event             eventDTO `json:"event"`
}

func toConfirmResponse(result application.ConfirmResult) confirmResponse {
	return confirmResponse{FirstConfirmation: result.First, Event: toEventDTO(result.Event)}
}

type availabilityDTO struct {
	Token         string   `json:"token"`
	Kind          string   `json:"kind"`
	Warmup        bool     `json:"warmup"`
	Dates         []string `json:"dates"`
	ConfirmedDate *string  `json:"confirmed_date,omitempty"`
	Speaker       string   `json:"speaker,omitempty"`
	Title         string   `json:"title,omitempty"`
	Host          *string  `json:"host,omitempty"`
}

func toAvailabilityDTO(a application.Availability) availabilityDTO {
	return availabilityDTO{
		Token:         a.Token,
		Kind:          string(a.Kind),
		Warmup:        a.Warmup,
		Dates:         formatTimes(a.Dates),
		ConfirmedDate: formatOptionalTime(a.ConfirmedDate),
		Speaker:       a.Proposal.Speaker,
		Title:         a.Proposal.Title,
		Host:          a.Proposal.Host,
	}
}

type proposalDTO struct {
	Token          string   `json:"token"`
	Kind           string   `json:"kind"`
	Email          string   `json:"email"`
	Warmup         bool     `json:"warmup"`
	Host           *string  `json:"host,omitempty"`
	HostEmail      *string  `json:"host_email,omitempty"`
	Speaker        string   `json:"speaker,omitempty"`
	Affiliation    string   `json:"affiliation,omitempty"`
	Title          string   `json:"title,omitempty"`
	Abstract       string   `json:"abstract,omitempty"`
	Declined       bool     `json:"declined"`
	CandidateDates []string `json:"candidate_dates"`
	ConfirmedDate  *string  `json:"confirmed_date,omitempty"`
	CreatedAt      string   `json:"created_at"`
}

func toProposalDTO(p application.Proposal) proposalDTO {
	return proposalDTO{
		Token:          p.Token,
		Kind:           string(p.Kind),
		Email:          p.Email,
		Warmup:         p.Warmup,
		Host:           p.Host,
		HostEmail:      p.HostEmail,
		Speaker:        p.Speaker,
		Affiliation:    p.Affiliation,
		Title:          p.Title,
		Abstract:       p.Abstract,
		Declined:       p.Declined,
		CandidateDates: formatTimes(p.CandidateDates),
		ConfirmedDate:  formatOptionalTime(p.ConfirmedDate),
		CreatedAt:      formatTime(p.CreatedAt),
	}
}

type invitationStatusDTO struct {
	Invitation proposalDTO `json:"invitation"`
	Status     string      `json:"status"`
}

type listInvitationsResponse struct {
	Invitations []invitationStatusDTO `json:"invitations"`
}
