package notifier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/example/briefings/internal/application"
)

// CalendarSettings configures the Google Calendar channel. The refresh token
// belongs to the organizer account that owns CalendarID.
type CalendarSettings struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	CalendarID   string
	EventName    string
	Duration     time.Duration
	Location     *time.Location
}

// Calendar inserts one calendar entry per talk.
type Calendar struct {
	settings CalendarSettings
	service  *calendar.Service
}

// NewCalendar builds the calendar service. Extra options are applied after
// the OAuth client so tests can point the service at a local server.
func NewCalendar(ctx context.Context, settings CalendarSettings, opts ...option.ClientOption) (*Calendar, error) {
	if settings.Duration <= 0 {
		settings.Duration = 4 * time.Hour
	}
	if settings.Location == nil {
		settings.Location = time.UTC
	}

	conf := &oauth2.Config{
		ClientID:     settings.ClientID,
		ClientSecret: settings.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{calendar.CalendarEventsScope},
	}
	client := conf.Client(ctx, &oauth2.Token{RefreshToken: settings.RefreshToken})

	all := append([]option.ClientOption{option.WithHTTPClient(client)}, opts...)
	service, err := calendar.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("calendar: create service: %w", err)
	}
	return &Calendar{settings: settings, service: service}, nil
}

// Provision inserts the calendar entry and returns its HTML link.
func (c *Calendar) Provision(ctx context.Context, event application.Event) (string, error) {
	tz := c.settings.Location.String()
	entry := &calendar.Event{
		Summary:     c.summary(event),
		Description: c.description(event),
		Location:    event.Location,
		Start: &calendar.EventDateTime{
			DateTime: event.Date.In(c.settings.Location).Format(time.RFC3339),
			TimeZone: tz,
		},
		End: &calendar.EventDateTime{
			DateTime: event.Date.Add(c.settings.Duration).In(c.settings.Location).Format(time.RFC3339),
			TimeZone: tz,
		},
	}
	if event.Email != "" {
		entry.Attendees = append(entry.Attendees, &calendar.EventAttendee{Email: event.Email})
	}
	if event.HostEmail != "" {
		entry.Attendees = append(entry.Attendees, &calendar.EventAttendee{Email: event.HostEmail})
	}

	created, err := c.service.Events.Insert(c.settings.CalendarID, entry).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("calendar: insert event: %w", err)
	}
	return created.HtmlLink, nil
}

func (c *Calendar) summary(event application.Event) string {
	prefix := c.settings.EventName
	if event.Warmup {
		prefix += " warmup"
	}
	return fmt.Sprintf("%s: %s", prefix, event.Speaker)
}

func (c *Calendar) description(event application.Event) string {
	var b strings.Builder
	b.WriteString(event.Title)
	if event.Abstract != "" {
		b.WriteString("\n\n")
		b.WriteString(event.Abstract)
	}
	if event.ConfLink != nil {
		b.WriteString("\n\nJoin: ")
		b.WriteString(*event.ConfLink)
	}
	return b.String()
}
