package application

import "time"

// ProposalKind distinguishes organizer invitations from speaker applications.
type ProposalKind string

const (
	// KindInvitation marks a proposal created by an organizer.
	KindInvitation ProposalKind = "invitation"
	// KindApplication marks a proposal submitted by a speaker.
	KindApplication ProposalKind = "application"
)

// Valid reports whether k is a known proposal kind.
func (k ProposalKind) Valid() bool {
	return k == KindInvitation || k == KindApplication
}

// EventKey identifies one booking slot. Main talks and warmup talks are
// separate tracks, so the same date can hold one of each.
type EventKey struct {
	Date   time.Time
	Warmup bool
}

// Event is a confirmed talk.
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

// Key returns the slot the event occupies.
func (e Event) Key() EventKey {
	return EventKey{Date: e.Date, Warmup: e.Warmup}
}

// EventFields are the speaker supplied parts of an event. ConfLink and
// SchedLink normally belong to the notifier and are only written when set.
type EventFields struct {
	Speaker          string
	Affiliation      string
	Bio              string
	Title            string
	Abstract         string
	Email            string
	Location         string
	RecordingConsent bool
	ConfLink         *string
	SchedLink        *string
}

// EventLinks are the URLs produced by notifier channels.
type EventLinks struct {
	ConfLink     *string
	SchedLink    *string
	CalendarLink *string
}

// Empty reports whether no link is set.
func (l EventLinks) Empty() bool {
	return l.ConfLink == nil && l.SchedLink == nil && l.CalendarLink == nil
}

// Proposal is an offer of candidate dates awaiting confirmation.
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

// Availability is the result of ComputeAvailableDates.
type Availability struct {
	Token         string
	Kind          ProposalKind
	Warmup        bool
	Dates         []time.Time
	ConfirmedDate *time.Time
	Proposal      Proposal
}

// ConfirmParams describes a request to book Date for the proposal behind Token.
// DayOffset is the minimum lead time in days.
type ConfirmParams struct {
	Token     string
	Kind      ProposalKind
	Date      time.Time
	DayOffset int
	Fields    EventFields
}

// ConfirmResult reports the stored event and whether this was the proposal's
// first confirmation.
type ConfirmResult struct {
	Event        Event
	First        bool
	PreviousDate *time.Time
}

// Reservation is the atomic write requested from the store.
type Reservation struct {
	Kind              ProposalKind
	Token             string
	Event             Event
	ExpectedConfirmed *time.Time
}

// EventFilter narrows event listings.
type EventFilter struct {
	Warmup     *bool
	After      *time.Time
	Before     *time.Time
	Descending bool
}

// EventBooking pairs an event with the invitation that booked it.
type EventBooking struct {
	Event           Event
	InvitationToken *string
	InvitationEmail *string
}

// EventDetail is a single event page.
type EventDetail struct {
	Event     Event
	HasWarmup bool
}

// InvitationStatus classifies an invitation for the admin overview.
type InvitationStatus string

const (
	// InvitationConfirmed means a date has been booked.
	InvitationConfirmed InvitationStatus = "confirmed"
	// InvitationPending means at least one candidate is still beyond the lead time.
	InvitationPending InvitationStatus = "pending"
	// InvitationExpired means every candidate fell within the lead time unbooked.
	InvitationExpired InvitationStatus = "expired"
)

// InvitationStatusView is one row of the invitation overview.
type InvitationStatusView struct {
	Proposal Proposal
	Status   InvitationStatus
}

// Series describes candidate dates repeating every IntervalWeeks weeks.
type Series struct {
	First         time.Time
	Count         int
	IntervalWeeks int
}

// CreateInvitationInput captures organizer provided invitation fields.
type CreateInvitationInput struct {
	Email     string
	Host      string
	HostEmail string
	Warmup    bool
	Dates     []time.Time
	Series    *Series
	SendEmail bool
}

// ApplicationInput captures a speaker's application.
type ApplicationInput struct {
	Email       string
	Speaker     string
	Affiliation string
	Bio         string
	Title       string
	Abstract    string
	Dates       []time.Time
}

// Message is an outgoing email.
type Message struct {
	To      []string
	Cc      []string
	Subject string
	Body    string
}

// Channel names one notifier side effect that produces a link.
type Channel string

const (
	// ChannelConf creates the video meeting.
	ChannelConf Channel = "conf"
	// ChannelSched creates the shared speaker document.
	ChannelSched Channel = "sched"
	// ChannelCalendar creates the calendar entry.
	ChannelCalendar Channel = "calendar"
)

// Valid reports whether c is a known channel.
func (c Channel) Valid() bool {
	switch c {
	case ChannelConf, ChannelSched, ChannelCalendar:
		return true
	}
	return false
}
