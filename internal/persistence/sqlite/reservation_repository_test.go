package sqlite

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/example/briefings/internal/persistence"
)

func seedInvitation(t *testing.T, storage *Storage, token string, warmup bool, dates ...time.Time) {
	t.Helper()
	err := storage.Proposals.CreateProposal(context.Background(), persistence.Proposal{
		Token:          token,
		Kind:           persistence.KindInvitation,
		Email:          token + "@example.com",
		Warmup:         warmup,
		CandidateDates: dates,
	})
	if err != nil {
		t.Fatalf("CreateProposal(%s) failed: %v", token, err)
	}
}

func TestReservationRepository_FirstAndRepeatConfirmation(t *testing.T) {
	t.Parallel()

	storage := newTestStorage(t)
	ctx := context.Background()
	date := mustTime(t, "2024-03-01T14:00:00Z")
	seedInvitation(t, storage, "inv-1", false, date)

	event, err := storage.Reservations.CommitReservation(ctx, persistence.Reservation{
		Kind:  persistence.KindInvitation,
		Token: "inv-1",
		Event: persistence.Event{Date: date, Title: "Draft title", Speaker: "Ada"},
	})
	if err != nil {
		t.Fatalf("first CommitReservation failed: %v", err)
	}
	if event.Title != "Draft title" {
		t.Fatalf("unexpected stored event: %+v", event)
	}

	if err := storage.Events.UpdateEventLinks(ctx, event.Key(), persistence.EventLinks{SchedLink: stringRef("https://pad.example/p/x")}); err != nil {
		t.Fatalf("UpdateEventLinks failed: %v", err)
	}

	event, err = storage.Reservations.CommitReservation(ctx, persistence.Reservation{
		Kind:              persistence.KindInvitation,
		Token:             "inv-1",
		Event:             persistence.Event{Date: date, Title: "Final title", Speaker: "Ada"},
		ExpectedConfirmed: &date,
	})
	if err != nil {
		t.Fatalf("repeat CommitReservation failed: %v", err)
	}
	if event.Title != "Final title" {
		t.Errorf("expected title to be overwritten, got %q", event.Title)
	}
	if event.SchedLink == nil {
		t.Error("expected notifier link to be preserved")
	}

	proposal, err := storage.Proposals.GetProposal(ctx, persistence.KindInvitation, "inv-1")
	if err != nil {
		t.Fatalf("GetProposal failed: %v", err)
	}
	if proposal.ConfirmedDate == nil || !proposal.ConfirmedDate.Equal(date) {
		t.Fatalf("expected confirmed date %v, got %v", date, proposal.ConfirmedDate)
	}
}

func TestReservationRepository_Rejections(t *testing.T) {
	t.Parallel()

	storage := newTestStorage(t)
	ctx := context.Background()
	date := mustTime(t, "2024-03-01T14:00:00Z")
	other := mustTime(t, "2024-03-08T14:00:00Z")
	seedInvitation(t, storage, "holder", false, date, other)
	seedInvitation(t, storage, "rival", false, date)

	if _, err := storage.Reservations.CommitReservation(ctx, persistence.Reservation{
		Kind: persistence.KindInvitation, Token: "holder", Event: persistence.Event{Date: date},
	}); err != nil {
		t.Fatalf("CommitReservation failed: %v", err)
	}

	tests := []struct {
		name string
		res  persistence.Reservation
		want error
	}{
		{
			name: "slot already taken",
			res:  persistence.Reservation{Kind: persistence.KindInvitation, Token: "rival", Event: persistence.Event{Date: date}},
			want: persistence.ErrDuplicate,
		},
		{
			name: "stale expectation",
			res:  persistence.Reservation{Kind: persistence.KindInvitation, Token: "holder", Event: persistence.Event{Date: other}},
			want: persistence.ErrConflict,
		},
		{
			name: "moving to another date",
			res:  persistence.Reservation{Kind: persistence.KindInvitation, Token: "holder", Event: persistence.Event{Date: other}, ExpectedConfirmed: &date},
			want: persistence.ErrConflict,
		},
		{
			name: "unknown token",
			res:  persistence.Reservation{Kind: persistence.KindInvitation, Token: "nope", Event: persistence.Event{Date: other}},
			want: persistence.ErrNotFound,
		},
	}

	for _, tc := range tests {
		_, err := storage.Reservations.CommitReservation(ctx, tc.res)
		if !errors.Is(err, tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}

	rival, err := storage.Proposals.GetProposal(ctx, persistence.KindInvitation, "rival")
	if err != nil {
		t.Fatalf("GetProposal failed: %v", err)
	}
	if rival.ConfirmedDate != nil {
		t.Fatal("expected losing proposal to stay unconfirmed")
	}
	if _, err := storage.Events.GetEvent(ctx, persistence.EventKey{Date: other}); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected no event at the rejected date, got %v", err)
	}
}

func TestReservationRepository_DeclinedApplication(t *testing.T) {
	t.Parallel()

	storage := newTestStorage(t)
	ctx := context.Background()
	date := mustTime(t, "2024-03-01T14:00:00Z")

	err := storage.Proposals.CreateProposal(ctx, persistence.Proposal{
		Token: "app-1", Kind: persistence.KindApplication, Email: "a@example.com", CandidateDates: []time.Time{date},
	})
	if err != nil {
		t.Fatalf("CreateProposal failed: %v", err)
	}
	if err := storage.Proposals.DeclineApplication(ctx, "app-1"); err != nil {
		t.Fatalf("DeclineApplication failed: %v", err)
	}

	_, err = storage.Reservations.CommitReservation(ctx, persistence.Reservation{
		Kind: persistence.KindApplication, Token: "app-1", Event: persistence.Event{Date: date},
	})
	if !errors.Is(err, persistence.ErrConflict) {
		t.Fatalf("expected ErrConflict for declined application, got %v", err)
	}
}

func TestReservationRepository_ConcurrentCommitsForSameSlot(t *testing.T) {
	t.Parallel()

	storage := newTestStorage(t)
	ctx := context.Background()
	date := mustTime(t, "2024-03-01T14:00:00Z")

	const contenders = 8
	for i := 0; i < contenders; i++ {
		seedInvitation(t, storage, fmt.Sprintf("inv-%d", i), false, date)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		losses    int
		others    []error
	)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := storage.Reservations.CommitReservation(ctx, persistence.Reservation{
				Kind:  persistence.KindInvitation,
				Token: fmt.Sprintf("inv-%d", i),
				Event: persistence.Event{Date: date, Title: fmt.Sprintf("talk %d", i)},
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, persistence.ErrDuplicate):
				losses++
			default:
				others = append(others, err)
			}
		}(i)
	}
	wg.Wait()

	if len(others) > 0 {
		t.Fatalf("unexpected errors: %v", others)
	}
	if successes != 1 || losses != contenders-1 {
		t.Fatalf("expected exactly one winner, got %d winners and %d losers", successes, losses)
	}

	proposals, err := storage.Proposals.ListProposals(ctx, persistence.KindInvitation)
	if err != nil {
		t.Fatalf("ListProposals failed: %v", err)
	}
	confirmed := 0
	for _, p := range proposals {
		if p.ConfirmedDate != nil {
			confirmed++
		}
	}
	if confirmed != 1 {
		t.Fatalf("expected exactly one confirmed proposal, got %d", confirmed)
	}
}
