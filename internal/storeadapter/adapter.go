// Package storeadapter bridges the persistence repositories to the
// interfaces declared by the application services. Errors pass through
// unchanged so the services can classify persistence sentinels themselves.
package storeadapter

import (
	"context"
	"time"

	"github.com/example/briefings/internal/application"
	"github.com/example/briefings/internal/persistence"
)

// Events adapts a persistence.EventRepository.
type Events struct {
	repo persistence.EventRepository
}

// NewEvents wraps repo.
func NewEvents(repo persistence.EventRepository) *Events {
	return &Events{repo: repo}
}

func (a *Events) GetEvent(ctx context.Context, key application.EventKey) (application.Event, error) {
	stored, err := a.repo.GetEvent(ctx, toPersistenceKey(key))
	if err != nil {
		return application.Event{}, err
	}
	return ToApplicationEvent(stored), nil
}

func (a *Events) ListEvents(ctx context.Context, filter application.EventFilter) ([]application.Event, error) {
	models, err := a.repo.ListEvents(ctx, persistence.EventFilter{
		Warmup:     cloneBool(filter.Warmup),
		After:      cloneTime(filter.After),
		Before:     cloneTime(filter.Before),
		Descending: filter.Descending,
	})
	if err != nil {
		return nil, err
	}
	return toApplicationEvents(models), nil
}

func (a *Events) ListEventBookings(ctx context.Context) ([]application.EventBooking, error) {
	models, err := a.repo.ListEventBookings(ctx)
	if err != nil {
		return nil, err
	}
	bookings := make([]application.EventBooking, 0, len(models))
	for _, model := range models {
		bookings = append(bookings, application.EventBooking{
			Event:           ToApplicationEvent(model.Event),
			InvitationToken: cloneString(model.InvitationToken),
			InvitationEmail: cloneString(model.InvitationEmail),
		})
	}
	return bookings, nil
}

func (a *Events) OccupiedDates(ctx context.Context, warmup bool) ([]time.Time, error) {
	return a.repo.OccupiedDates(ctx, warmup)
}

func (a *Events) UpdateEventLinks(ctx context.Context, key application.EventKey, links application.EventLinks) error {
	return a.repo.UpdateEventLinks(ctx, toPersistenceKey(key), persistence.EventLinks{
		ConfLink:     cloneString(links.ConfLink),
		SchedLink:    cloneString(links.SchedLink),
		CalendarLink: cloneString(links.CalendarLink),
	})
}

// ListEventsForReminder returns events whose announced counter is at most
// announced and whose date lies strictly between from and to.
func (a *Events) ListEventsForReminder(ctx context.Context, announced int, from, to time.Time) ([]application.Event, error) {
	models, err := a.repo.ListEventsForReminder(ctx, announced, from, to)
	if err != nil {
		return nil, err
	}
	return toApplicationEvents(models), nil
}

func (a *Events) AdvanceAnnounced(ctx context.Context, key application.EventKey, to int) (bool, error) {
	return a.repo.AdvanceAnnounced(ctx, toPersistenceKey(key), to)
}

func (a *Events) ListEventsAwaitingRecording(ctx context.Context, before time.Time) ([]application.Event, error) {
	models, err := a.repo.ListEventsAwaitingRecording(ctx, before)
	if err != nil {
		return nil, err
	}
	return toApplicationEvents(models), nil
}

func (a *Events) MarkRecordingProcessed(ctx context.Context, key application.EventKey, link *string) (bool, error) {
	return a.repo.MarkRecordingProcessed(ctx, toPersistenceKey(key), cloneString(link))
}

// Proposals adapts a persistence.ProposalRepository.
type Proposals struct {
	repo persistence.ProposalRepository
}

// NewProposals wraps repo.
func NewProposals(repo persistence.ProposalRepository) *Proposals {
	return &Proposals{repo: repo}
}

func (a *Proposals) CreateProposal(ctx context.Context, proposal application.Proposal) error {
	return a.repo.CreateProposal(ctx, toPersistenceProposal(proposal))
}

func (a *Proposals) GetProposal(ctx context.Context, kind application.ProposalKind, token string) (application.Proposal, error) {
	stored, err := a.repo.GetProposal(ctx, persistence.ProposalKind(kind), token)
	if err != nil {
		return application.Proposal{}, err
	}
	return toApplicationProposal(stored), nil
}

func (a *Proposals) ListProposals(ctx context.Context, kind application.ProposalKind) ([]application.Proposal, error) {
	models, err := a.repo.ListProposals(ctx, persistence.ProposalKind(kind))
	if err != nil {
		return nil, err
	}
	proposals := make([]application.Proposal, 0, len(models))
	for _, model := range models {
		proposals = append(proposals, toApplicationProposal(model))
	}
	return proposals, nil
}

func (a *Proposals) DeclineApplication(ctx context.Context, token string) error {
	return a.repo.DeclineApplication(ctx, token)
}

// Reservations adapts a persistence.ReservationStore.
type Reservations struct {
	store persistence.ReservationStore
}

// NewReservations wraps store.
func NewReservations(store persistence.ReservationStore) *Reservations {
	return &Reservations{store: store}
}

func (a *Reservations) CommitReservation(ctx context.Context, reservation application.Reservation) (application.Event, error) {
	stored, err := a.store.CommitReservation(ctx, persistence.Reservation{
		Kind:              persistence.ProposalKind(reservation.Kind),
		Token:             reservation.Token,
		Event:             ToPersistenceEvent(reservation.Event),
		ExpectedConfirmed: cloneTime(reservation.ExpectedConfirmed),
	})
	if err != nil {
		return application.Event{}, err
	}
	return ToApplicationEvent(stored), nil
}

// ToApplicationEvent converts a stored event.
func ToApplicationEvent(model persistence.Event) application.Event {
	return application.Event{
		Date:               model.Date,
		Warmup:             model.Warmup,
		Speaker:            model.Speaker,
		Affiliation:        model.Affiliation,
		Bio:                model.Bio,
		Title:              model.Title,
		Abstract:           model.Abstract,
		Email:              model.Email,
		Host:               model.Host,
		HostEmail:          model.HostEmail,
		Location:           model.Location,
		RecordingConsent:   model.RecordingConsent,
		ConfLink:           cloneString(model.ConfLink),
		SchedLink:          cloneString(model.SchedLink),
		CalendarLink:       cloneString(model.CalendarLink),
		RecordingLink:      cloneString(model.RecordingLink),
		RecordingProcessed: model.RecordingProcessed,
		Announced:          model.Announced,
		CreatedAt:          model.CreatedAt,
		UpdatedAt:          model.UpdatedAt,
	}
}

// ToPersistenceEvent converts an application event for storage.
func ToPersistenceEvent(event application.Event) persistence.Event {
	return persistence.Event{
		Date:               event.Date,
		Warmup:             event.Warmup,
		Speaker:            event.Speaker,
		Affiliation:        event.Affiliation,
		Bio:                event.Bio,
		Title:              event.Title,
		Abstract:           event.Abstract,
		Email:              event.Email,
		Host:               event.Host,
		HostEmail:          event.HostEmail,
		Location:           event.Location,
		RecordingConsent:   event.RecordingConsent,
		ConfLink:           cloneString(event.ConfLink),
		SchedLink:          cloneString(event.SchedLink),
		CalendarLink:       cloneString(event.CalendarLink),
		RecordingLink:      cloneString(event.RecordingLink),
		RecordingProcessed: event.RecordingProcessed,
		Announced:          event.Announced,
		CreatedAt:          event.CreatedAt,
		UpdatedAt:          event.UpdatedAt,
	}
}

func toApplicationEvents(models []persistence.Event) []application.Event {
	events := make([]application.Event, 0, len(models))
	for _, model := range models {
		events = append(events, ToApplicationEvent(model))
	}
	return events
}

func toPersistenceKey(key application.EventKey) persistence.EventKey {
	return persistence.EventKey{Date: key.Date, Warmup: key.Warmup}
}

func toApplicationProposal(model persistence.Proposal) application.Proposal {
	return application.Proposal{
		Token:          model.Token,
		Kind:           application.ProposalKind(model.Kind),
		Email:          model.Email,
		Warmup:         model.Warmup,
		Host:           cloneString(model.Host),
		HostEmail:      cloneString(model.HostEmail),
		Speaker:        model.Speaker,
		Affiliation:    model.Affiliation,
		Bio:            model.Bio,
		Title:          model.Title,
		Abstract:       model.Abstract,
		Declined:       model.Declined,
		CandidateDates: append([]time.Time(nil), model.CandidateDates...),
		ConfirmedDate:  cloneTime(model.ConfirmedDate),
		CreatedAt:      model.CreatedAt,
	}
}

func toPersistenceProposal(proposal application.Proposal) persistence.Proposal {
	return persistence.Proposal{
		Token:          proposal.Token,
		Kind:           persistence.ProposalKind(proposal.Kind),
		Email:          proposal.Email,
		Warmup:         proposal.Warmup,
		Host:           cloneString(proposal.Host),
		HostEmail:      cloneString(proposal.HostEmail),
		Speaker:        proposal.Speaker,
		Affiliation:    proposal.Affiliation,
		Bio:            proposal.Bio,
		Title:          proposal.Title,
		Abstract:       proposal.Abstract,
		Declined:       proposal.Declined,
		CandidateDates: append([]time.Time(nil), proposal.CandidateDates...),
		ConfirmedDate:  cloneTime(proposal.ConfirmedDate),
		CreatedAt:      proposal.CreatedAt,
	}
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}

func cloneBool(value *bool) *bool {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
