package persistence

import "time"

// ProposalKind selects the proposal table a token lives in.
type ProposalKind string

const (
	// KindInvitation marks organizer-initiated proposals.
	KindInvitation ProposalKind = "invitation"
	// KindApplication marks speaker-initiated proposals.
	KindApplication ProposalKind = "application"
)

// Valid reports whether the kind names a known proposal table.
func (k ProposalKind) Valid() bool {
	return k == KindInvitation || k == KindApplication
}

// EventKey identifies an event slot.
type EventKey struct {
	Date   time.Time
	Warmup bool
}

// Event is a confirmed talk occupying one (date, warmup) slot.
type Event struct {
	Date               time.Time
	Warmup             bool
	Speaker            string
	Affiliation        string
	Bio                string
	Title              string
	Abstract           string
	Email              string
	Host               string
	HostEmail          string
	Location           string
	RecordingConsent   bool
	ConfLink           *string
	SchedLink          *string
	CalendarLink       *string
	RecordingLink      *string
	RecordingProcessed bool
	Announced          int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Key returns the slot identity of the event.
func (e Event) Key() EventKey {
	return EventKey{Date: e.Date, Warmup: e.Warmup}
}

// EventLinks carries the notifier-owned link columns. Nil fields leave the
// stored value untouched.
type EventLinks struct {
	ConfLink     *string
	SchedLink    *string
	CalendarLink *string
}

// Proposal is an invitation or application row with its candidate dates.
type Proposal struct {
	Token          string
	Kind           ProposalKind
	Email          string
	Warmup         bool
	Host           *string
	HostEmail      *string
	Speaker        string
	Affiliation    string
	Bio            string
	Title          string
	Abstract       string
	Declined       bool
	CandidateDates []time.Time
	ConfirmedDate  *time.Time
	CreatedAt      time.Time
}

// Reservation describes the two writes committed by a confirmation.
//
// ExpectedConfirmed is the confirmed date the caller observed when it checked
// availability; the commit fails with ErrConflict when the stored value no
// longer matches.
type Reservation struct {
	Kind              ProposalKind
	Token             string
	Event             Event
	ExpectedConfirmed *time.Time
}

// EventFilter narrows event listings. Zero values disable a bound.
type EventFilter struct {
	Warmup     *bool
	After      *time.Time
	Before     *time.Time
	Descending bool
}

// EventBooking pairs an event with the invitation that booked it, if any.
type EventBooking struct {
	Event           Event
	InvitationToken *string
	InvitationEmail *string
}
