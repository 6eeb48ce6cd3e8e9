package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// upcomingGrace keeps talks from the last two days on the upcoming list.
const upcomingGrace = 2 * 24 * time.Hour

// EventRepository captures the event queries needed by the listing service.
type EventRepository interface {
	GetEvent(ctx context.Context, key EventKey) (Event, error)
	ListEvents(ctx context.Context, filter EventFilter) ([]Event, error)
	ListEventBookings(ctx context.Context) ([]EventBooking, error)
}

// LinkWriter stores notifier produced links on an event.
type LinkWriter interface {
	UpdateEventLinks(ctx context.Context, key EventKey, links EventLinks) error
}

// Notifier runs the best-effort side effects of a first confirmation.
type Notifier interface {
	// Provision runs every configured channel and returns the links that
	// were produced. Channel failures are logged by the notifier.
	Provision(ctx context.Context, event Event) EventLinks
	// ProvisionChannel runs a single channel and reports its failure.
	ProvisionChannel(ctx context.Context, channel Channel, event Event) (EventLinks, error)
}

// EventService serves public listings and administrative event views.
type EventService struct {
	events   EventRepository
	links    LinkWriter
	notifier Notifier
	now      func() time.Time
	logger   *slog.Logger
}

// NewEventService wires dependencies for event operations.
func NewEventService(events EventRepository, links LinkWriter, notifier Notifier, now func() time.Time) *EventService {
	return NewEventServiceWithLogger(events, links, notifier, now, nil)
}

// NewEventServiceWithLogger wires dependencies and a base logger.
func NewEventServiceWithLogger(events EventRepository, links LinkWriter, notifier Notifier, now func() time.Time, logger *slog.Logger) *EventService {
	if now == nil {
		now = time.Now
	}
	return &EventService{
		events:   events,
		links:    links,
		notifier: notifier,
		now:      now,
		logger:   defaultLogger(logger),
	}
}

// Upcoming lists main talks from two days ago onwards, soonest first.
func (s *EventService) Upcoming(ctx context.Context) ([]Event, error) {
	if s == nil {
		return nil, fmt.Errorf("EventService is nil")
	}
	main := false
	after := s.now().Add(-upcomingGrace)
	return s.list(ctx, "Upcoming", EventFilter{Warmup: &main, After: &after})
}

// Past lists main talks that already happened, most recent first.
func (s *EventService) Past(ctx context.Context) ([]Event, error) {
	if s == nil {
		return nil, fmt.Errorf("EventService is nil")
	}
	main := false
	before := s.now()
	return s.list(ctx, "Past", EventFilter{Warmup: &main, Before: &before, Descending: true})
}

func (s *EventService) list(ctx context.Context, op string, filter EventFilter) ([]Event, error) {
	events, err := s.events.ListEvents(ctx, filter)
	if err != nil {
		err = storeFailure(err)
		logOutcome(ctx, serviceLogger(ctx, s.logger, "EventService", op), "listing events failed", err)
		return nil, err
	}
	return events, nil
}

// Get returns one event and whether a warmup talk shares its date.
func (s *EventService) Get(ctx context.Context, key EventKey) (EventDetail, error) {
	if s == nil {
		return EventDetail{}, fmt.Errorf("EventService is nil")
	}
	logger := serviceLogger(ctx, s.logger, "EventService", "Get", "date", key.Date.UTC().Format(time.RFC3339), "warmup", key.Warmup)

	event, err := s.events.GetEvent(ctx, key)
	if err != nil {
		err = mapLookupError(err)
		logOutcome(ctx, logger, "event lookup failed", err)
		return EventDetail{}, err
	}

	detail := EventDetail{Event: event}
	if key.Warmup {
		return detail, nil
	}

	_, err = s.events.GetEvent(ctx, EventKey{Date: key.Date, Warmup: true})
	switch mapped := mapLookupError(err); {
	case err == nil:
		detail.HasWarmup = true
	case errors.Is(mapped, ErrNotFound):
	default:
		logOutcome(ctx, logger, "warmup lookup failed", mapped)
		return EventDetail{}, mapped
	}
	return detail, nil
}

// Bookings returns every event with the invitation that booked it.
func (s *EventService) Bookings(ctx context.Context) ([]EventBooking, error) {
	if s == nil {
		return nil, fmt.Errorf("EventService is nil")
	}
	bookings, err := s.events.ListEventBookings(ctx)
	if err != nil {
		err = storeFailure(err)
		logOutcome(ctx, serviceLogger(ctx, s.logger, "EventService", "Bookings"), "listing bookings failed", err)
		return nil, err
	}
	return bookings, nil
}

// WarmupSlots lists future main-talk dates that have no warmup talk yet.
func (s *EventService) WarmupSlots(ctx context.Context) ([]time.Time, error) {
	if s == nil {
		return nil, fmt.Errorf("EventService is nil")
	}
	logger := serviceLogger(ctx, s.logger, "EventService", "WarmupSlots")

	now := s.now()
	main, warmup := false, true
	mainEvents, err := s.events.ListEvents(ctx, EventFilter{Warmup: &main, After: &now})
	if err != nil {
		err = storeFailure(err)
		logOutcome(ctx, logger, "listing main talks failed", err)
		return nil, err
	}
	warmupEvents, err := s.events.ListEvents(ctx, EventFilter{Warmup: &warmup, After: &now})
	if err != nil {
		err = storeFailure(err)
		logOutcome(ctx, logger, "listing warmup talks failed", err)
		return nil, err
	}

	taken := make(map[int64]struct{}, len(warmupEvents))
	for _, e := range warmupEvents {
		taken[e.Date.UnixNano()] = struct{}{}
	}
	slots := make([]time.Time, 0, len(mainEvents))
	for _, e := range mainEvents {
		if _, ok := taken[e.Date.UnixNano()]; ok {
			continue
		}
		slots = append(slots, e.Date)
	}
	return slots, nil
}

// RerunChannel recreates one notifier resource for an existing event and
// stores the new link.
func (s *EventService) RerunChannel(ctx context.Context, key EventKey, channel Channel) (Event, error) {
	if s == nil {
		return Event{}, fmt.Errorf("EventService is nil")
	}
	logger := serviceLogger(ctx, s.logger, "EventService", "RerunChannel",
		"date", key.Date.UTC().Format(time.RFC3339), "warmup", key.Warmup, "channel", string(channel))

	if !channel.Valid() {
		vErr := &ValidationError{}
		vErr.add("channel", "must be one of conf, sched, calendar")
		logOutcome(ctx, logger, "rerun rejected", vErr)
		return Event{}, vErr
	}
	if s.notifier == nil {
		vErr := channelDisabled(channel)
		logOutcome(ctx, logger, "rerun rejected", vErr)
		return Event{}, vErr
	}

	event, err := s.events.GetEvent(ctx, key)
	if err != nil {
		err = mapLookupError(err)
		logOutcome(ctx, logger, "event lookup failed", err)
		return Event{}, err
	}

	links, err := s.notifier.ProvisionChannel(ctx, channel, event)
	if errors.Is(err, ErrChannelDisabled) {
		vErr := channelDisabled(channel)
		logOutcome(ctx, logger, "rerun rejected", vErr)
		return Event{}, vErr
	}
	if err != nil {
		err = fmt.Errorf("%w: %s: %w", ErrNotifierFailure, channel, err)
		logOutcome(ctx, logger, "channel rerun failed", err)
		return Event{}, err
	}
	if links.Empty() {
		return event, nil
	}
	if err := s.links.UpdateEventLinks(ctx, key, links); err != nil {
		err = mapLookupError(err)
		logOutcome(ctx, logger, "storing links failed", err)
		return Event{}, err
	}
	logger.InfoContext(ctx, "channel rerun completed")
	return applyLinks(event, links), nil
}

func channelDisabled(channel Channel) *ValidationError {
	vErr := &ValidationError{}
	vErr.add("channel", fmt.Sprintf("%s is not configured", channel))
	return vErr
}

func applyLinks(event Event, links EventLinks) Event {
	if links.ConfLink != nil {
		event.ConfLink = links.ConfLink
	}
	if links.SchedLink != nil {
		event.SchedLink = links.SchedLink
	}
	if links.CalendarLink != nil {
		event.CalendarLink = links.CalendarLink
	}
	return event
}
