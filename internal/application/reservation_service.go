package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/example/briefings/internal/application"

// ProposalReader loads proposals by token.
type ProposalReader interface {
	GetProposal(ctx context.Context, kind ProposalKind, token string) (Proposal, error)
}

// OccupancyReader lists dates already booked on a track.
type OccupancyReader interface {
	OccupiedDates(ctx context.Context, warmup bool) ([]time.Time, error)
}

// ReservationStore commits the event and the proposal's confirmed date
// atomically.
type ReservationStore interface {
	CommitReservation(ctx context.Context, reservation Reservation) (Event, error)
}

// ReservationObserver receives the outcome of each confirmation attempt.
type ReservationObserver interface {
	ObserveConfirmation(kind ProposalKind, outcome string)
}

// ReservationService decides which candidate dates a proposal can still book
// and commits the chosen one.
type ReservationService struct {
	proposals ProposalReader
	events    OccupancyReader
	store     ReservationStore
	observer  ReservationObserver
	now       func() time.Time
	logger    *slog.Logger
	tracer    trace.Tracer
}

// NewReservationService wires dependencies for reservation operations.
func NewReservationService(proposals ProposalReader, events OccupancyReader, store ReservationStore, observer ReservationObserver, now func() time.Time) *ReservationService {
	return NewReservationServiceWithLogger(proposals, events, store, observer, now, nil)
}

// NewReservationServiceWithLogger wires dependencies and a base logger.
func NewReservationServiceWithLogger(proposals ProposalReader, events OccupancyReader, store ReservationStore, observer ReservationObserver, now func() time.Time, logger *slog.Logger) *ReservationService {
	if now == nil {
		now = time.Now
	}
	return &ReservationService{
		proposals: proposals,
		events:    events,
		store:     store,
		observer:  observer,
		now:       now,
		logger:    defaultLogger(logger),
		tracer:    otel.Tracer(tracerName),
	}
}

// ComputeAvailableDates returns the candidate dates of the proposal that are
// neither booked on its track nor within dayOffset days from now. The
// proposal's own confirmed date always stays available to it. Declined
// applications have no available dates. An empty result is not an error.
func (s *ReservationService) ComputeAvailableDates(ctx context.Context, token string, kind ProposalKind, dayOffset int) (Availability, error) {
	if s == nil {
		return Availability{}, fmt.Errorf("ReservationService is nil")
	}
	logger := serviceLogger(ctx, s.logger, "ReservationService", "ComputeAvailableDates", "kind", string(kind))

	availability, err := s.computeAvailableDates(ctx, token, kind, dayOffset)
	if err != nil {
		logOutcome(ctx, logger, "availability lookup failed", err)
		return Availability{}, err
	}
	return availability, nil
}

func (s *ReservationService) computeAvailableDates(ctx context.Context, token string, kind ProposalKind, dayOffset int) (Availability, error) {
	if err := validateLookup(token, kind, dayOffset); err != nil {
		return Availability{}, err
	}

	proposal, err := s.proposals.GetProposal(ctx, kind, token)
	if err != nil {
		return Availability{}, mapLookupError(err)
	}

	availability := Availability{
		Token:         proposal.Token,
		Kind:          kind,
		Warmup:        proposal.Warmup,
		ConfirmedDate: proposal.ConfirmedDate,
		Proposal:      proposal,
		Dates:         []time.Time{},
	}
	if proposal.Declined {
		return availability, nil
	}

	occupied, err := s.events.OccupiedDates(ctx, proposal.Warmup)
	if err != nil {
		return Availability{}, storeFailure(err)
	}

	availability.Dates = availableDates(proposal.CandidateDates, occupied, proposal.ConfirmedDate, s.cutoff(dayOffset))
	return availability, nil
}

// availableDates computes (candidates - occupied) + {confirmed}, keeps dates
// strictly after cutoff and sorts ascending. Instants are compared exactly.
func availableDates(candidates, occupied []time.Time, confirmed *time.Time, cutoff time.Time) []time.Time {
	taken := make(map[int64]struct{}, len(occupied))
	for _, d := range occupied {
		taken[d.UnixNano()] = struct{}{}
	}

	seen := make(map[int64]struct{}, len(candidates)+1)
	free := make([]time.Time, 0, len(candidates)+1)
	add := func(d time.Time) {
		key := d.UnixNano()
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		if d.After(cutoff) {
			free = append(free, d)
		}
	}

	for _, d := range candidates {
		if _, ok := taken[d.UnixNano()]; ok {
			continue
		}
		add(d)
	}
	if confirmed != nil {
		add(*confirmed)
	}

	sort.Slice(free, func(i, j int) bool { return free[i].Before(free[j]) })
	return free
}

// Confirm books params.Date for the proposal.
//
// The checks run in order: a confirmed date already in the past fails with
// ErrExpired; a declined application, a date outside ComputeAvailableDates or
// a date other than the one already confirmed fails with ErrDateUnavailable.
// The event upsert and the proposal update are then committed in one
// transaction. A concurrent commit that took the slot first also yields
// ErrDateUnavailable. Persistence failures are wrapped in ErrStoreFailure and
// never retried here.
func (s *ReservationService) Confirm(ctx context.Context, params ConfirmParams) (result ConfirmResult, err error) {
	if s == nil {
		return ConfirmResult{}, fmt.Errorf("ReservationService is nil")
	}
	ctx, span := s.tracer.Start(ctx, "ReservationService.Confirm", trace.WithAttributes(
		attribute.String("proposal.kind", string(params.Kind)),
		attribute.String("event.date", params.Date.UTC().Format(time.RFC3339)),
	))
	logger := serviceLogger(ctx, s.logger, "ReservationService", "Confirm",
		"kind", string(params.Kind), "date", params.Date.UTC().Format(time.RFC3339))

	defer func() {
		outcome := "first"
		switch {
		case err != nil:
			outcome = ErrorKind(err)
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
			logOutcome(ctx, logger, "confirmation rejected", err)
		case !result.First:
			outcome = "repeat"
		}
		if err == nil {
			span.SetAttributes(attribute.Bool("confirmation.first", result.First))
			logger.InfoContext(ctx, "confirmation committed", "first", result.First)
		}
		if s.observer != nil {
			s.observer.ObserveConfirmation(params.Kind, outcome)
		}
		span.End()
	}()

	availability, err := s.computeAvailableDates(ctx, params.Token, params.Kind, params.DayOffset)
	if err != nil {
		return ConfirmResult{}, err
	}
	proposal := availability.Proposal

	if proposal.ConfirmedDate != nil && proposal.ConfirmedDate.Before(s.now()) {
		return ConfirmResult{}, ErrExpired
	}
	if proposal.Declined {
		return ConfirmResult{}, fmt.Errorf("%w: application is declined", ErrDateUnavailable)
	}
	if proposal.ConfirmedDate != nil && !proposal.ConfirmedDate.Equal(params.Date) {
		return ConfirmResult{}, fmt.Errorf("%w: proposal already holds another date", ErrDateUnavailable)
	}
	if !containsInstant(availability.Dates, params.Date) {
		return ConfirmResult{}, ErrDateUnavailable
	}

	event := buildEvent(proposal, params.Date, params.Fields)
	stored, err := s.store.CommitReservation(ctx, Reservation{
		Kind:              params.Kind,
		Token:             proposal.Token,
		Event:             event,
		ExpectedConfirmed: proposal.ConfirmedDate,
	})
	if err != nil {
		return ConfirmResult{}, mapReservationError(err)
	}

	return ConfirmResult{
		Event:        stored,
		First:        proposal.ConfirmedDate == nil,
		PreviousDate: proposal.ConfirmedDate,
	}, nil
}

func (s *ReservationService) cutoff(dayOffset int) time.Time {
	return s.now().Add(time.Duration(dayOffset) * 24 * time.Hour)
}

func buildEvent(proposal Proposal, date time.Time, fields EventFields) Event {
	event := Event{
		Date:             date,
		Warmup:           proposal.Warmup,
		Speaker:          fields.Speaker,
		Affiliation:      fields.Affiliation,
		Bio:              fields.Bio,
		Title:            fields.Title,
		Abstract:         fields.Abstract,
		Email:            fields.Email,
		Location:         fields.Location,
		RecordingConsent: fields.RecordingConsent,
		ConfLink:         fields.ConfLink,
		SchedLink:        fields.SchedLink,
	}
	if event.Email == "" {
		event.Email = proposal.Email
	}
	if proposal.Host != nil {
		event.Host = *proposal.Host
	}
	if proposal.HostEmail != nil {
		event.HostEmail = *proposal.HostEmail
	}
	return event
}

func validateLookup(token string, kind ProposalKind, dayOffset int) error {
	if token == "" {
		return ErrNotFound
	}
	vErr := &ValidationError{}
	if !kind.Valid() {
		vErr.add("kind", "unknown proposal kind")
	}
	if dayOffset < 0 {
		vErr.add("day_offset", "must not be negative")
	}
	if vErr.HasErrors() {
		return vErr
	}
	return nil
}

func containsInstant(dates []time.Time, target time.Time) bool {
	for _, d := range dates {
		if d.Equal(target) {
			return true
		}
	}
	return false
}
