package application

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/example/briefings/internal/persistence"
)

type eventRepoStub struct {
	events      []Event
	bookings    []EventBooking
	err         error
	linkErr     error
	linkUpdates []EventLinks
	filters     []EventFilter
}

func (e *eventRepoStub) GetEvent(ctx context.Context, key EventKey) (Event, error) {
	if e.err != nil {
		return Event{}, e.err
	}
	for _, ev := range e.events {
		if ev.Date.Equal(key.Date) && ev.Warmup == key.Warmup {
			return ev, nil
		}
	}
	return Event{}, persistence.ErrNotFound
}

func (e *eventRepoStub) ListEvents(ctx context.Context, filter EventFilter) ([]Event, error) {
	e.filters = append(e.filters, filter)
	if e.err != nil {
		return nil, e.err
	}
	var out []Event
	for _, ev := range e.events {
		if filter.Warmup != nil && ev.Warmup != *filter.Warmup {
			continue
		}
		if filter.After != nil && !ev.Date.After(*filter.After) {
			continue
		}
		if filter.Before != nil && !ev.Date.Before(*filter.Before) {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

func (e *eventRepoStub) ListEventBookings(ctx context.Context) ([]EventBooking, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.bookings, nil
}

func (e *eventRepoStub) UpdateEventLinks(ctx context.Context, key EventKey, links EventLinks) error {
	if e.linkErr != nil {
		return e.linkErr
	}
	e.linkUpdates = append(e.linkUpdates, links)
	return nil
}

type notifierStub struct {
	links      EventLinks
	channelErr error
	provisions []Event
	channels   []Channel
}

func (n *notifierStub) Provision(ctx context.Context, event Event) EventLinks {
	n.provisions = append(n.provisions, event)
	return n.links
}

func (n *notifierStub) ProvisionChannel(ctx context.Context, channel Channel, event Event) (EventLinks, error) {
	n.channels = append(n.channels, channel)
	if n.channelErr != nil {
		return EventLinks{}, n.channelErr
	}
	return n.links, nil
}

func TestEventService_UpcomingAndPast(t *testing.T) {
	t.Parallel()

	now := "2024-03-10T12:00:00Z"
	repo := &eventRepoStub{events: []Event{
		{Date: mustUTC(t, "2024-03-01T19:00:00Z"), Title: "old"},
		{Date: mustUTC(t, "2024-03-09T19:00:00Z"), Title: "yesterday"},
		{Date: mustUTC(t, "2024-03-15T19:00:00Z"), Title: "next"},
		{Date: mustUTC(t, "2024-03-15T19:00:00Z"), Warmup: true, Title: "warmup"},
	}}
	svc := NewEventService(repo, repo, nil, fixedNow(t, now))

	upcoming, err := svc.Upcoming(context.Background())
	if err != nil {
		t.Fatalf("Upcoming returned error: %v", err)
	}
	if len(upcoming) != 2 || upcoming[0].Title != "yesterday" || upcoming[1].Title != "next" {
		t.Fatalf("unexpected upcoming events: %+v", upcoming)
	}

	past, err := svc.Past(context.Background())
	if err != nil {
		t.Fatalf("Past returned error: %v", err)
	}
	if len(past) != 2 {
		t.Fatalf("expected 2 past main talks, got %+v", past)
	}
	last := repo.filters[len(repo.filters)-1]
	if !last.Descending {
		t.Fatal("expected past events to be requested newest first")
	}
}

func TestEventService_Get(t *testing.T) {
	t.Parallel()

	date := mustUTC(t, "2024-03-15T19:00:00Z")
	repo := &eventRepoStub{events: []Event{
		{Date: date, Title: "main"},
		{Date: date, Warmup: true, Title: "warmup"},
	}}
	svc := NewEventService(repo, repo, nil, fixedNow(t, "2024-03-01T00:00:00Z"))

	detail, err := svc.Get(context.Background(), EventKey{Date: date})
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if detail.Event.Title != "main" || !detail.HasWarmup {
		t.Fatalf("unexpected detail: %+v", detail)
	}

	if _, err := svc.Get(context.Background(), EventKey{Date: date.AddDate(0, 0, 7)}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	repo.err = errors.New("database is locked")
	if _, err := svc.Get(context.Background(), EventKey{Date: date}); !errors.Is(err, ErrStoreFailure) {
		t.Fatalf("expected ErrStoreFailure, got %v", err)
	}
}

func TestEventService_WarmupSlots(t *testing.T) {
	t.Parallel()

	repo := &eventRepoStub{events: []Event{
		{Date: mustUTC(t, "2024-02-20T19:00:00Z")},
		{Date: mustUTC(t, "2024-03-08T19:00:00Z")},
		{Date: mustUTC(t, "2024-03-15T19:00:00Z")},
		{Date: mustUTC(t, "2024-03-15T19:00:00Z"), Warmup: true},
	}}
	svc := NewEventService(repo, repo, nil, fixedNow(t, "2024-03-01T00:00:00Z"))

	slots, err := svc.WarmupSlots(context.Background())
	if err != nil {
		t.Fatalf("WarmupSlots returned error: %v", err)
	}
	if len(slots) != 1 || !slots[0].Equal(mustUTC(t, "2024-03-08T19:00:00Z")) {
		t.Fatalf("unexpected slots: %v", slots)
	}
}

func TestEventService_RerunChannel(t *testing.T) {
	t.Parallel()

	date := mustUTC(t, "2024-03-15T19:00:00Z")
	link := "https://zoom.example/j/42"

	t.Run("stores the new link", func(t *testing.T) {
		t.Parallel()
		repo := &eventRepoStub{events: []Event{{Date: date, Speaker: "Ada"}}}
		notifier := &notifierStub{links: EventLinks{ConfLink: &link}}
		svc := NewEventService(repo, repo, notifier, fixedNow(t, "2024-03-01T00:00:00Z"))

		event, err := svc.RerunChannel(context.Background(), EventKey{Date: date}, ChannelConf)
		if err != nil {
			t.Fatalf("RerunChannel returned error: %v", err)
		}
		if event.ConfLink == nil || *event.ConfLink != link {
			t.Fatalf("expected conf link on returned event, got %+v", event)
		}
		if len(repo.linkUpdates) != 1 || notifier.channels[0] != ChannelConf {
			t.Fatalf("expected one link update for conf, got %+v / %v", repo.linkUpdates, notifier.channels)
		}
	})

	t.Run("rejects unknown channel", func(t *testing.T) {
		t.Parallel()
		repo := &eventRepoStub{events: []Event{{Date: date}}}
		svc := NewEventService(repo, repo, &notifierStub{}, fixedNow(t, "2024-03-01T00:00:00Z"))

		_, err := svc.RerunChannel(context.Background(), EventKey{Date: date}, Channel("fax"))
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("unknown event", func(t *testing.T) {
		t.Parallel()
		repo := &eventRepoStub{}
		svc := NewEventService(repo, repo, &notifierStub{}, fixedNow(t, "2024-03-01T00:00:00Z"))

		if _, err := svc.RerunChannel(context.Background(), EventKey{Date: date}, ChannelSched); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("disabled channel is a validation error", func(t *testing.T) {
		t.Parallel()
		repo := &eventRepoStub{events: []Event{{Date: date}}}

		for name, svc := range map[string]*EventService{
			"no notifier":      NewEventService(repo, repo, nil, fixedNow(t, "2024-03-01T00:00:00Z")),
			"channel disabled": NewEventService(repo, repo, &notifierStub{channelErr: fmt.Errorf("%w: calendar", ErrChannelDisabled)}, fixedNow(t, "2024-03-01T00:00:00Z")),
		} {
			_, err := svc.RerunChannel(context.Background(), EventKey{Date: date}, ChannelCalendar)
			var vErr *ValidationError
			if !errors.As(err, &vErr) || vErr.FieldErrors["channel"] == "" {
				t.Fatalf("%s: expected channel ValidationError, got %v", name, err)
			}
			if kind := ErrorKind(err); kind != "validation" {
				t.Fatalf("%s: expected validation kind, got %q", name, kind)
			}
		}
		if len(repo.linkUpdates) != 0 {
			t.Fatal("expected no link update for a disabled channel")
		}
	})

	t.Run("channel failure is reported", func(t *testing.T) {
		t.Parallel()
		repo := &eventRepoStub{events: []Event{{Date: date}}}
		boom := errors.New("etherpad down")
		svc := NewEventService(repo, repo, &notifierStub{channelErr: boom}, fixedNow(t, "2024-03-01T00:00:00Z"))

		_, err := svc.RerunChannel(context.Background(), EventKey{Date: date}, ChannelSched)
		if !errors.Is(err, boom) || !errors.Is(err, ErrNotifierFailure) {
			t.Fatalf("expected wrapped notifier failure, got %v", err)
		}
		if len(repo.linkUpdates) != 0 {
			t.Fatal("expected no link update after failure")
		}
	})
}
