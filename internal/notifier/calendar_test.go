package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

func TestCalendar_Provision(t *testing.T) {
	t.Parallel()

	var inserted calendar.Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/calendar/v3/calendars/talks@example.com/events" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&inserted); err != nil {
			t.Errorf("decode event: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"evt1","htmlLink":"https://calendar.example/event?eid=evt1"}`))
	}))
	defer srv.Close()

	cal, err := NewCalendar(context.Background(), CalendarSettings{
		CalendarID: "talks@example.com",
		EventName:  "Briefings",
		Duration:   2 * time.Hour,
	}, option.WithHTTPClient(srv.Client()), option.WithEndpoint(srv.URL+"/calendar/v3/"))
	if err != nil {
		t.Fatalf("NewCalendar returned error: %v", err)
	}

	event := talk()
	event.Warmup = true
	event.Email = "ada@example.com"
	link, err := cal.Provision(context.Background(), event)
	if err != nil {
		t.Fatalf("Provision returned error: %v", err)
	}
	if link != "https://calendar.example/event?eid=evt1" {
		t.Fatalf("unexpected link %q", link)
	}
	if inserted.Summary != "Briefings warmup: Ada" {
		t.Fatalf("unexpected summary %q", inserted.Summary)
	}
	if inserted.End == nil || inserted.End.DateTime != "2024-03-01T21:00:00Z" {
		t.Fatalf("unexpected end %+v", inserted.End)
	}
	if len(inserted.Attendees) != 1 || inserted.Attendees[0].Email != "ada@example.com" {
		t.Fatalf("unexpected attendees %+v", inserted.Attendees)
	}
}
