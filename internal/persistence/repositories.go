package persistence

import (
	"context"
	"time"
)

// EventRepository exposes the event table.
type EventRepository interface {
	UpsertEvent(ctx context.Context, event Event) error
	GetEvent(ctx context.Context, key EventKey) (Event, error)
	ListEvents(ctx context.Context, filter EventFilter) ([]Event, error)
	ListEventBookings(ctx context.Context) ([]EventBooking, error)
	OccupiedDates(ctx context.Context, warmup bool) ([]time.Time, error)
	UpdateEventLinks(ctx context.Context, key EventKey, links EventLinks) error
	ListEventsForReminder(ctx context.Context, announced int, from, to time.Time) ([]Event, error)
	AdvanceAnnounced(ctx context.Context, key EventKey, to int) (bool, error)
	ListEventsAwaitingRecording(ctx context.Context, before time.Time) ([]Event, error)
	MarkRecordingProcessed(ctx context.Context, key EventKey, link *string) (bool, error)
}

// ProposalRepository exposes the invitations and applications tables.
type ProposalRepository interface {
	CreateProposal(ctx context.Context, proposal Proposal) error
	GetProposal(ctx context.Context, kind ProposalKind, token string) (Proposal, error)
	ListProposals(ctx context.Context, kind ProposalKind) ([]Proposal, error)
	DeclineApplication(ctx context.Context, token string) error
}

// ReservationStore commits a confirmation atomically.
type ReservationStore interface {
	CommitReservation(ctx context.Context, reservation Reservation) (Event, error)
}
