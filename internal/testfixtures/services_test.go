package testfixtures

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/briefings/internal/application"
	"github.com/example/briefings/internal/notifier"
)

type capturingMailer struct {
	mu   sync.Mutex
	sent []application.Message
}

func (c *capturingMailer) Send(ctx context.Context, msg application.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	return nil
}

type stalledProvisioner struct{}

func (stalledProvisioner) Provision(ctx context.Context, event application.Event) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

type linkProvisioner struct {
	mu    sync.Mutex
	link  string
	errs  []error
	calls int
}

func (p *linkProvisioner) Provision(ctx context.Context, event application.Event) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if err := ctx.Err(); err != nil {
		p.errs = append(p.errs, err)
		return "", err
	}
	return p.link, nil
}

func TestServiceFactoryNewServices_StalledChannelDoesNotStarveOthers(t *testing.T) {
	factory := NewServiceFactory()
	harness := NewSQLiteHarness(t)
	harness.SeedProposals(t, NewProposalFixture(WithProposalToken("invite")))

	sched := &linkProvisioner{link: "https://pad.example/p/talk"}
	n := notifier.New(notifier.Channels{Conf: stalledProvisioner{}, Sched: sched}, notifier.Settings{Timeout: 50 * time.Millisecond})
	services := factory.NewServices(harness, ServiceDeps{Notifier: n})
	ctx := context.Background()

	result, err := services.Proposals.ConfirmInvitation(ctx, "invite", TalkDate(0), application.EventFields{Speaker: "Ada", Title: "Engines"})
	if err != nil {
		t.Fatalf("ConfirmInvitation returned error: %v", err)
	}
	if sched.calls != 1 || len(sched.errs) != 0 {
		t.Fatalf("expected one successful document call, got calls=%d errs=%v", sched.calls, sched.errs)
	}
	if result.Event.SchedLink == nil || *result.Event.SchedLink != sched.link {
		t.Fatalf("expected document link on the result, got %v", result.Event.SchedLink)
	}
	if result.Event.ConfLink != nil {
		t.Fatalf("expected no meeting link from the stalled channel, got %v", *result.Event.ConfLink)
	}

	detail, err := services.Events.Get(ctx, application.EventKey{Date: TalkDate(0)})
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if detail.Event.SchedLink == nil || *detail.Event.SchedLink != sched.link {
		t.Fatalf("expected stored document link, got %v", detail.Event.SchedLink)
	}
}

func TestServiceFactoryNewServices_InvitationRoundTrip(t *testing.T) {
	factory := NewServiceFactory()
	harness := NewSQLiteHarness(t)
	mailer := &capturingMailer{}
	services := factory.NewServices(harness, ServiceDeps{
		Mailer:   mailer,
		Settings: application.ProposalSettings{EventName: "Briefings", ServerURL: "https://talks.example", InvitationLeadDays: 3},
	})
	ctx := context.Background()

	invitation, err := services.Proposals.CreateInvitation(ctx, application.CreateInvitationInput{
		Email:     "ada@example.com",
		Dates:     []time.Time{TalkDate(0), TalkDate(1)},
		SendEmail: true,
	})
	if err != nil {
		t.Fatalf("CreateInvitation returned error: %v", err)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("expected invitation mail, got %d", len(mailer.sent))
	}

	availability, err := services.Proposals.InvitationAvailability(ctx, invitation.Token)
	if err != nil {
		t.Fatalf("InvitationAvailability returned error: %v", err)
	}
	if len(availability.Dates) != 2 {
		t.Fatalf("expected both dates available, got %v", availability.Dates)
	}

	result, err := services.Proposals.ConfirmInvitation(ctx, invitation.Token, TalkDate(1), application.EventFields{Speaker: "Ada", Title: "Engines"})
	if err != nil {
		t.Fatalf("ConfirmInvitation returned error: %v", err)
	}
	if !result.First || result.Event.Email != "ada@example.com" {
		t.Fatalf("unexpected confirmation result: %+v", result)
	}

	detail, err := services.Events.Get(ctx, application.EventKey{Date: TalkDate(1)})
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if detail.Event.Title != "Engines" {
		t.Fatalf("unexpected stored event: %+v", detail.Event)
	}

	statuses, err := services.Proposals.InvitationStatuses(ctx)
	if err != nil {
		t.Fatalf("InvitationStatuses returned error: %v", err)
	}
	if len(statuses) != 1 || statuses[0].Status != application.InvitationConfirmed {
		t.Fatalf("unexpected statuses: %+v", statuses)
	}
}

func TestServiceFactoryNewServices_SecondInviteeLosesTakenDate(t *testing.T) {
	factory := NewServiceFactory()
	harness := NewSQLiteHarness(t)
	harness.SeedProposals(t,
		NewProposalFixture(WithProposalToken("first")),
		NewProposalFixture(WithProposalToken("second")),
	)
	services := factory.NewServices(harness, ServiceDeps{})
	ctx := context.Background()

	if _, err := services.Reservations.Confirm(ctx, application.ConfirmParams{
		Token: "first", Kind: application.KindInvitation, Date: TalkDate(0),
	}); err != nil {
		t.Fatalf("first Confirm returned error: %v", err)
	}

	_, err := services.Reservations.Confirm(ctx, application.ConfirmParams{
		Token: "second", Kind: application.KindInvitation, Date: TalkDate(0),
	})
	if !errors.Is(err, application.ErrDateUnavailable) {
		t.Fatalf("expected ErrDateUnavailable, got %v", err)
	}

	availability, err := services.Reservations.ComputeAvailableDates(ctx, "second", application.KindInvitation, 0)
	if err != nil {
		t.Fatalf("ComputeAvailableDates returned error: %v", err)
	}
	if len(availability.Dates) != 1 || !availability.Dates[0].Equal(TalkDate(1)) {
		t.Fatalf("expected only the second date to remain, got %v", availability.Dates)
	}
}

func TestServiceFactoryUsesFactoryClock(t *testing.T) {
	clock := NewClock(time.Time{})
	factory := NewServiceFactory(WithClock(clock), WithIDGenerator(NewIDGenerator("inv")))
	harness := NewSQLiteHarness(t)
	services := factory.NewServices(harness, ServiceDeps{})

	proposal, err := services.Proposals.CreateInvitation(context.Background(), application.CreateInvitationInput{
		Email: "ada@example.com",
		Dates: []time.Time{TalkDate(0)},
	})
	if err != nil {
		t.Fatalf("CreateInvitation returned error: %v", err)
	}
	if proposal.Token != "inv-1" {
		t.Fatalf("expected generated token inv-1, got %q", proposal.Token)
	}
	if !proposal.CreatedAt.Equal(clock.Current()) {
		t.Fatalf("expected timestamp %v, got %v", clock.Current(), proposal.CreatedAt)
	}
}
