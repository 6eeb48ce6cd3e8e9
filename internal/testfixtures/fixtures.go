package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/briefings/internal/application"
	"github.com/example/briefings/internal/persistence"
)

var (
	eventCounter    uint64
	proposalCounter uint64
)

var referenceTime = time.Date(2024, time.February, 1, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// TalkDate returns the evening talk slot weeksAhead weeks after the reference
// time. Week zero is 2024-03-01T19:00Z.
func TalkDate(weeksAhead int) time.Time {
	return time.Date(2024, time.March, 1, 19, 0, 0, 0, time.UTC).AddDate(0, 0, 7*weeksAhead)
}

// ----------------------------- Event fixtures -----------------------------

// EventFixture represents a deterministic event record that can be
// materialised for application or persistence tests.
type EventFixture struct {
	Date               time.Time
	Warmup             bool
	Speaker            string
	Affiliation        string
	Title              string
	Abstract           string
	Email              string
	Host               string
	HostEmail          string
	RecordingConsent   bool
	ConfLink           *string
	SchedLink          *string
	RecordingLink      *string
	RecordingProcessed bool
	Announced          int
}

// EventOption configures the generated event fixture.
type EventOption func(*EventFixture)

// NewEventFixture returns a deterministic event fixture with optional overrides.
func NewEventFixture(opts ...EventOption) EventFixture {
	idx := atomic.AddUint64(&eventCounter, 1)
	fixture := EventFixture{
		Date:        TalkDate(int(idx % 50)),
		Speaker:     fmt.Sprintf("Speaker %03d", idx),
		Affiliation: "Example University",
		Title:       fmt.Sprintf("Talk %03d", idx),
		Abstract:    "An abstract.",
		Email:       fmt.Sprintf("speaker-%03d@example.com", idx),
		Host:        "Host",
		HostEmail:   "host@example.com",
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithEventDate overrides the event date.
func WithEventDate(date time.Time) EventOption {
	return func(f *EventFixture) {
		f.Date = date
	}
}

// WithEventWarmup puts the event on the warmup track.
func WithEventWarmup(warmup bool) EventOption {
	return func(f *EventFixture) {
		f.Warmup = warmup
	}
}

// WithEventSpeaker overrides the speaker name and email.
func WithEventSpeaker(name, email string) EventOption {
	return func(f *EventFixture) {
		f.Speaker = name
		f.Email = email
	}
}

// WithEventTitle overrides the talk title.
func WithEventTitle(title string) EventOption {
	return func(f *EventFixture) {
		f.Title = title
	}
}

// WithEventConfLink sets the video meeting link.
func WithEventConfLink(link string) EventOption {
	return func(f *EventFixture) {
		f.ConfLink = &link
	}
}

// WithEventRecordingConsent sets the recording consent flag.
func WithEventRecordingConsent(consent bool) EventOption {
	return func(f *EventFixture) {
		f.RecordingConsent = consent
	}
}

// WithEventAnnounced sets the reminder wave counter.
func WithEventAnnounced(announced int) EventOption {
	return func(f *EventFixture) {
		f.Announced = announced
	}
}

// Application returns the fixture as an application.Event value.
func (f EventFixture) Application() application.Event {
	return application.Event{
		Date:               f.Date,
		Warmup:             f.Warmup,
		Speaker:            f.Speaker,
		Affiliation:        f.Affiliation,
		Title:              f.Title,
		Abstract:           f.Abstract,
		Email:              f.Email,
		Host:               f.Host,
		HostEmail:          f.HostEmail,
		RecordingConsent:   f.RecordingConsent,
		ConfLink:           cloneString(f.ConfLink),
		SchedLink:          cloneString(f.SchedLink),
		RecordingLink:      cloneString(f.RecordingLink),
		RecordingProcessed: f.RecordingProcessed,
		Announced:          f.Announced,
	}
}

// Persistence returns the fixture as a persistence.Event value.
func (f EventFixture) Persistence() persistence.Event {
	return persistence.Event{
		Date:               f.Date,
		Warmup:             f.Warmup,
		Speaker:            f.Speaker,
		Affiliation:        f.Affiliation,
		Title:              f.Title,
		Abstract:           f.Abstract,
		Email:              f.Email,
		Host:               f.Host,
		HostEmail:          f.HostEmail,
		RecordingConsent:   f.RecordingConsent,
		ConfLink:           cloneString(f.ConfLink),
		SchedLink:          cloneString(f.SchedLink),
		RecordingLink:      cloneString(f.RecordingLink),
		RecordingProcessed: f.RecordingProcessed,
		Announced:          f.Announced,
	}
}

// ---------------------------- Proposal fixtures ----------------------------

// ProposalFixture represents a deterministic invitation or application.
type ProposalFixture struct {
	Token          string
	Kind           persistence.ProposalKind
	Email          string
	Warmup         bool
	Host           *string
	HostEmail      *string
	Speaker        string
	Title          string
	Declined       bool
	CandidateDates []time.Time
	CreatedAt      time.Time
}

// ProposalOption configures the generated proposal fixture.
type ProposalOption func(*ProposalFixture)

// NewProposalFixture returns an invitation fixture offering the first two
// talk dates, with optional overrides.
func NewProposalFixture(opts ...ProposalOption) ProposalFixture {
	idx := atomic.AddUint64(&proposalCounter, 1)
	fixture := ProposalFixture{
		Token:          fmt.Sprintf("token-%03d", idx),
		Kind:           persistence.KindInvitation,
		Email:          fmt.Sprintf("invitee-%03d@example.com", idx),
		CandidateDates: []time.Time{TalkDate(0), TalkDate(1)},
		CreatedAt:      referenceTime.Add(time.Duration(idx) * time.Minute),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithProposalToken overrides the generated token.
func WithProposalToken(token string) ProposalOption {
	return func(f *ProposalFixture) {
		f.Token = token
	}
}

// AsApplication turns the fixture into a warmup application.
func AsApplication(speaker, title string) ProposalOption {
	return func(f *ProposalFixture) {
		f.Kind = persistence.KindApplication
		f.Warmup = true
		f.Speaker = speaker
		f.Title = title
	}
}

// WithProposalWarmup sets the warmup flag.
func WithProposalWarmup(warmup bool) ProposalOption {
	return func(f *ProposalFixture) {
		f.Warmup = warmup
	}
}

// WithProposalHost sets the hosting organizer.
func WithProposalHost(name, email string) ProposalOption {
	return func(f *ProposalFixture) {
		f.Host = &name
		f.HostEmail = &email
	}
}

// WithCandidateDates replaces the offered dates.
func WithCandidateDates(dates ...time.Time) ProposalOption {
	return func(f *ProposalFixture) {
		f.CandidateDates = append([]time.Time(nil), dates...)
	}
}

// WithProposalDeclined marks an application as declined.
func WithProposalDeclined() ProposalOption {
	return func(f *ProposalFixture) {
		f.Declined = true
	}
}

// Application returns the fixture as an application.Proposal value.
func (f ProposalFixture) Application() application.Proposal {
	return application.Proposal{
		Token:          f.Token,
		Kind:           application.ProposalKind(f.Kind),
		Email:          f.Email,
		Warmup:         f.Warmup,
		Host:           cloneString(f.Host),
		HostEmail:      cloneString(f.HostEmail),
		Speaker:        f.Speaker,
		Title:          f.Title,
		Declined:       f.Declined,
		CandidateDates: append([]time.Time(nil), f.CandidateDates...),
		CreatedAt:      f.CreatedAt,
	}
}

// Persistence returns the fixture as a persistence.Proposal value.
func (f ProposalFixture) Persistence() persistence.Proposal {
	return persistence.Proposal{
		Token:          f.Token,
		Kind:           f.Kind,
		Email:          f.Email,
		Warmup:         f.Warmup,
		Host:           cloneString(f.Host),
		HostEmail:      cloneString(f.HostEmail),
		Speaker:        f.Speaker,
		Title:          f.Title,
		Declined:       f.Declined,
		CandidateDates: append([]time.Time(nil), f.CandidateDates...),
		CreatedAt:      f.CreatedAt,
	}
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
