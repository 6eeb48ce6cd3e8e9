package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/briefings/internal/persistence"
)

func TestProposalRepository_CreateAndGet(t *testing.T) {
	t.Parallel()

	storage := newTestStorage(t)
	repo := storage.Proposals
	ctx := context.Background()

	first := mustTime(t, "2024-03-08T19:00:00Z")
	second := mustTime(t, "2024-03-01T19:00:00Z")
	host := "Grace"

	err := repo.CreateProposal(ctx, persistence.Proposal{
		Token:          "inv-1",
		Kind:           persistence.KindInvitation,
		Email:          "speaker@example.com",
		Warmup:         true,
		Host:           &host,
		CandidateDates: []time.Time{first, second, first},
	})
	if err != nil {
		t.Fatalf("CreateProposal failed: %v", err)
	}

	proposal, err := repo.GetProposal(ctx, persistence.KindInvitation, "inv-1")
	if err != nil {
		t.Fatalf("GetProposal failed: %v", err)
	}
	if !proposal.Warmup || proposal.Host == nil || *proposal.Host != "Grace" {
		t.Errorf("unexpected proposal fields: %+v", proposal)
	}
	if proposal.ConfirmedDate != nil {
		t.Errorf("expected no confirmed date, got %v", proposal.ConfirmedDate)
	}
	if len(proposal.CandidateDates) != 2 {
		t.Fatalf("expected duplicate candidates collapsed to 2, got %v", proposal.CandidateDates)
	}
	if !proposal.CandidateDates[0].Equal(second) || !proposal.CandidateDates[1].Equal(first) {
		t.Errorf("expected candidates sorted ascending, got %v", proposal.CandidateDates)
	}
}

func TestProposalRepository_KindsAreSeparate(t *testing.T) {
	t.Parallel()

	storage := newTestStorage(t)
	repo := storage.Proposals
	ctx := context.Background()

	err := repo.CreateProposal(ctx, persistence.Proposal{
		Token:          "app-1",
		Kind:           persistence.KindApplication,
		Email:          "applicant@example.com",
		Speaker:        "Ada",
		Title:          "Engines",
		CandidateDates: []time.Time{mustTime(t, "2024-03-01T19:00:00Z")},
	})
	if err != nil {
		t.Fatalf("CreateProposal failed: %v", err)
	}

	if _, err := repo.GetProposal(ctx, persistence.KindInvitation, "app-1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for wrong kind, got %v", err)
	}

	application, err := repo.GetProposal(ctx, persistence.KindApplication, "app-1")
	if err != nil {
		t.Fatalf("GetProposal failed: %v", err)
	}
	if application.Speaker != "Ada" || application.Title != "Engines" {
		t.Errorf("unexpected application fields: %+v", application)
	}

	if _, err := repo.GetProposal(ctx, persistence.ProposalKind("bogus"), "app-1"); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestProposalRepository_ListProposals(t *testing.T) {
	t.Parallel()

	storage := newTestStorage(t)
	repo := storage.Proposals
	repo.now = func() time.Time { return mustTime(t, "2024-02-01T00:00:00Z") }
	ctx := context.Background()

	for i, token := range []string{"inv-a", "inv-b"} {
		err := repo.CreateProposal(ctx, persistence.Proposal{
			Token:          token,
			Kind:           persistence.KindInvitation,
			Email:          token + "@example.com",
			CreatedAt:      mustTime(t, "2024-02-01T00:00:00Z").Add(time.Duration(i) * time.Hour),
			CandidateDates: []time.Time{mustTime(t, "2024-03-01T19:00:00Z"), mustTime(t, "2024-03-08T19:00:00Z")},
		})
		if err != nil {
			t.Fatalf("CreateProposal(%s) failed: %v", token, err)
		}
	}

	proposals, err := repo.ListProposals(ctx, persistence.KindInvitation)
	if err != nil {
		t.Fatalf("ListProposals failed: %v", err)
	}
	if len(proposals) != 2 {
		t.Fatalf("expected 2 proposals, got %d", len(proposals))
	}
	if proposals[0].Token != "inv-b" {
		t.Errorf("expected newest first, got %s", proposals[0].Token)
	}
	for _, p := range proposals {
		if len(p.CandidateDates) != 2 {
			t.Errorf("expected 2 candidate dates on %s, got %d", p.Token, len(p.CandidateDates))
		}
	}
}

func TestProposalRepository_DeclineApplication(t *testing.T) {
	t.Parallel()

	storage := newTestStorage(t)
	repo := storage.Proposals
	ctx := context.Background()
	date := mustTime(t, "2024-03-01T19:00:00Z")

	for _, token := range []string{"app-open", "app-booked"} {
		err := repo.CreateProposal(ctx, persistence.Proposal{
			Token:          token,
			Kind:           persistence.KindApplication,
			Email:          "a@example.com",
			CandidateDates: []time.Time{date},
		})
		if err != nil {
			t.Fatalf("CreateProposal failed: %v", err)
		}
	}
	if _, err := storage.Reservations.CommitReservation(ctx, persistence.Reservation{
		Kind:  persistence.KindApplication,
		Token: "app-booked",
		Event: persistence.Event{Date: date, Title: "booked"},
	}); err != nil {
		t.Fatalf("CommitReservation failed: %v", err)
	}

	if err := repo.DeclineApplication(ctx, "app-open"); err != nil {
		t.Fatalf("DeclineApplication failed: %v", err)
	}
	if err := repo.DeclineApplication(ctx, "app-open"); err != nil {
		t.Fatalf("repeated DeclineApplication failed: %v", err)
	}
	declined, err := repo.GetProposal(ctx, persistence.KindApplication, "app-open")
	if err != nil {
		t.Fatalf("GetProposal failed: %v", err)
	}
	if !declined.Declined {
		t.Fatal("expected application to be declined")
	}

	if err := repo.DeclineApplication(ctx, "app-booked"); !errors.Is(err, persistence.ErrConflict) {
		t.Fatalf("expected ErrConflict for confirmed application, got %v", err)
	}
	if err := repo.DeclineApplication(ctx, "missing"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
