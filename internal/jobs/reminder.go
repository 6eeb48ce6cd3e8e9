package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/briefings/internal/application"
)

const day = 24 * time.Hour

// previewWindow bounds the list of other upcoming talks in a reminder.
const previewWindow = 60 * day

// wave selects events with announced <= prev whose date lies in
// (now+min, now+max) and raises their counter to prev+1.
type wave struct {
	prev     int
	min, max time.Duration
}

// Waves are evaluated in order so a talk that is already close skips the
// early announcement.
var reminderWaves = []wave{
	{prev: 1, min: 1 * day, max: 2 * day},
	{prev: 0, min: 1 * day, max: 6 * day},
}

// ReminderStore is the event access needed by the reminder job.
type ReminderStore interface {
	ListEventsForReminder(ctx context.Context, announced int, from, to time.Time) ([]application.Event, error)
	AdvanceAnnounced(ctx context.Context, key application.EventKey, to int) (bool, error)
}

// ReminderSettings configures announcement mails.
type ReminderSettings struct {
	EventName  string
	Location   *time.Location
	Recipients []string
	// PrivateRecipients get a second copy with the speaker document link.
	PrivateRecipients []string
}

// ReminderJob sends the announcement waves.
type ReminderJob struct {
	store    ReminderStore
	mailer   application.Mailer
	settings ReminderSettings
	now      func() time.Time
	logger   *slog.Logger
}

// NewReminderJob wires the reminder job.
func NewReminderJob(store ReminderStore, mailer application.Mailer, settings ReminderSettings, now func() time.Time, logger *slog.Logger) *ReminderJob {
	if now == nil {
		now = time.Now
	}
	return &ReminderJob{store: store, mailer: mailer, settings: settings, now: now, logger: logger}
}

// Name implements Job.
func (j *ReminderJob) Name() string { return "reminder" }

// Run evaluates every wave. The counter of an event only moves after its
// mail went out, so a failed send is retried on the next run.
func (j *ReminderJob) Run(ctx context.Context) (int, error) {
	logger := jobLogger(ctx, j.logger)
	now := j.now()

	upcoming, err := j.store.ListEventsForReminder(ctx, 0, now, now.Add(previewWindow))
	if err != nil {
		return 0, fmt.Errorf("list preview events: %w", err)
	}

	var (
		handled int
		errs    []error
	)
	for _, w := range reminderWaves {
		events, err := j.store.ListEventsForReminder(ctx, w.prev, now.Add(w.min), now.Add(w.max))
		if err != nil {
			return handled, fmt.Errorf("list events for wave %d: %w", w.prev, err)
		}
		for _, event := range events {
			if err := j.announce(ctx, event, others(upcoming, event)); err != nil {
				logger.WarnContext(ctx, "sending reminder failed", "error", err, "channel", "mail",
					"date", event.Date.UTC().Format(time.RFC3339), "warmup", event.Warmup)
				errs = append(errs, err)
				continue
			}
			moved, err := j.store.AdvanceAnnounced(ctx, event.Key(), w.prev+1)
			if err != nil {
				errs = append(errs, fmt.Errorf("advance announced: %w", err))
				continue
			}
			if moved {
				handled++
			}
		}
	}
	return handled, errors.Join(errs...)
}

func (j *ReminderJob) announce(ctx context.Context, event application.Event, others []application.Event) error {
	if j.mailer == nil {
		return nil
	}
	cc := make([]string, 0, 2)
	if event.Email != "" {
		cc = append(cc, event.Email)
	}
	if event.HostEmail != "" {
		cc = append(cc, event.HostEmail)
	}

	msg := application.ReminderMessage(j.settings.EventName, j.settings.Location, j.settings.Recipients, event, others)
	msg.Cc = append(msg.Cc, cc...)
	if err := j.mailer.Send(ctx, msg); err != nil {
		return err
	}
	if len(j.settings.PrivateRecipients) == 0 {
		return nil
	}
	private := application.PrivateReminderMessage(j.settings.EventName, j.settings.Location, j.settings.PrivateRecipients, event, others)
	private.Cc = append(private.Cc, cc...)
	if err := j.mailer.Send(ctx, private); err != nil {
		return fmt.Errorf("private reminder: %w", err)
	}
	return nil
}

func others(events []application.Event, current application.Event) []application.Event {
	out := make([]application.Event, 0, len(events))
	for _, e := range events {
		if e.Date.Equal(current.Date) && e.Warmup == current.Warmup {
			continue
		}
		out = append(out, e)
	}
	return out
}
