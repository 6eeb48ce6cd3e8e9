package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/briefings/internal/application"
)

type eventService interface {
	Upcoming(ctx context.Context) ([]application.Event, error)
	Past(ctx context.Context) ([]application.Event, error)
	Get(ctx context.Context, key application.EventKey) (application.EventDetail, error)
	Bookings(ctx context.Context) ([]application.EventBooking, error)
	WarmupSlots(ctx context.Context) ([]time.Time, error)
	RerunChannel(ctx context.Context, key application.EventKey, channel application.Channel) (application.Event, error)
}

// EventHandler serves talk listings and the admin event views.
type EventHandler struct {
	service   eventService
	responder responder
	logger    *slog.Logger
}

func NewEventHandler(service eventService, logger *slog.Logger) *EventHandler {
	return &EventHandler{service: service, responder: newResponder(logger), logger: defaultLogger(logger)}
}

func (h *EventHandler) Upcoming(w http.ResponseWriter, r *http.Request) {
	events, err := h.service.Upcoming(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listEventsResponse{Events: toEventDTOs(events)})
}

func (h *EventHandler) Past(w http.ResponseWriter, r *http.Request) {
	events, err := h.service.Past(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listEventsResponse{Events: toEventDTOs(events)})
}

func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	key, ok := eventKeyFromPath(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
		return
	}

	detail, err := h.service.Get(r.Context(), key)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, eventDetailResponse{
		Event:     toEventDTO(detail.Event),
		HasWarmup: detail.HasWarmup,
	})
}

// WarmupSlots lists dates a speaker may apply for.
func (h *EventHandler) WarmupSlots(w http.ResponseWriter, r *http.Request) {
	slots, err := h.service.WarmupSlots(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, slotsResponse{Dates: formatTimes(slots)})
}

// Bookings is the admin event status view.
func (h *EventHandler) Bookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.service.Bookings(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	out := make([]bookingDTO, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, bookingDTO{
			Event:           toEventDTO(b.Event),
			Email:           b.Event.Email,
			HostEmail:       b.Event.HostEmail,
			InvitationToken: b.InvitationToken,
			InvitationEmail: b.InvitationEmail,
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listBookingsResponse{Bookings: out})
}

// Rerun recreates one notifier resource for an existing talk.
func (h *EventHandler) Rerun(w http.ResponseWriter, r *http.Request) {
	key, ok := eventKeyFromPath(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
		return
	}
	channel := application.Channel(r.PathValue("channel"))

	logger := handlerLogger(r.Context(), h.logger, "EventHandler", "Rerun", "channel", string(channel))
	event, err := h.service.RerunChannel(r.Context(), key, channel)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	logger.InfoContext(r.Context(), "notifier channel re-run", "date", formatTime(key.Date), "track", trackName(key.Warmup))
	h.responder.writeJSON(r.Context(), w, http.StatusOK, eventDetailResponse{Event: toEventDTO(event)})
}

func eventKeyFromPath(r *http.Request) (application.EventKey, bool) {
	date, ok := parseTime(r.PathValue("date"), time.UTC)
	if !ok {
		return application.EventKey{}, false
	}
	return application.EventKey{Date: date, Warmup: parseWarmup(r.PathValue("warmup"))}, true
}

type listEventsResponse struct {
	Events []eventDTO `json:"events"`
}

type eventDetailResponse struct {
	Event     eventDTO `json:"event"`
	HasWarmup bool     `json:"has_warmup"`
}

type slotsResponse struct {
	Dates []string `json:"dates"`
}

type listBookingsResponse struct {
	Bookings []bookingDTO `json:"bookings"`
}

type bookingDTO struct {
	Event           eventDTO `json:"event"`
	Email           string   `json:"email,omitempty"`
	HostEmail       string   `json:"host_email,omitempty"`
	InvitationToken *string  `json:"invitation_token,omitempty"`
	InvitationEmail *string  `json:"invitation_email,omitempty"`
}

// eventDTO is the public view of a talk. Contact addresses are left out.
type eventDTO struct {
	Date               string  `json:"date"`
	Warmup             bool    `json:"warmup"`
	Speaker            string  `json:"speaker"`
	Affiliation        string  `json:"affiliation,omitempty"`
	Bio                string  `json:"bio,omitempty"`
	Title              string  `json:"title"`
	Abstract           string  `json:"abstract,omitempty"`
	Host               string  `json:"host,omitempty"`
	Location           string  `json:"location,omitempty"`
	RecordingConsent   bool    `json:"recording_consent"`
	ConfLink           *string `json:"conf_link,omitempty"`
	SchedLink          *string `json:"sched_link,omitempty"`
	CalendarLink       *string `json:"calendar_link,omitempty"`
	RecordingLink      *string `json:"recording_link,omitempty"`
	RecordingProcessed bool    `json:"recording_processed"`
	Announced          int     `json:"announced"`
}

func toEventDTO(event application.Event) eventDTO {
	return eventDTO{
		Date:               formatTime(event.Date),
		Warmup:             event.Warmup,
		Speaker:            event.Speaker,
		Affiliation:        event.Affiliation,
		Bio:                event.Bio,
		Title:              event.Title,
		Abstract:           event.Abstract,
		Host:               event.Host,
		Location:           event.Location,
		RecordingConsent:   event.RecordingConsent,
		ConfLink:           event.ConfLink,
		SchedLink:          event.SchedLink,
		CalendarLink:       event.CalendarLink,
		RecordingLink:      event.RecordingLink,
		RecordingProcessed: event.RecordingProcessed,
		Announced:          event.Announced,
	}
}

func toEventDTOs(events []application.Event) []eventDTO {
	out := make([]eventDTO, 0, len(events))
	for _, event := range events {
		out = append(out, toEventDTO(event))
	}
	return out
}
