// Package notifier implements the best-effort side effects of a confirmed
// talk: the video meeting, the shared speaker document, the calendar entry
// and outgoing mail.
package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/example/briefings/internal/application"
	"github.com/example/briefings/internal/logging"
)

const tracerName = "github.com/example/briefings/internal/notifier"

// ErrChannelDisabled is returned when a channel is requested that has no
// provisioner configured.
var ErrChannelDisabled = application.ErrChannelDisabled

// Provisioner creates one external resource for an event and returns its URL.
type Provisioner interface {
	Provision(ctx context.Context, event application.Event) (string, error)
}

// Observer receives the outcome of every channel call.
type Observer interface {
	ObserveNotification(channel string, err error)
}

// Channels holds the configured provisioners. A nil field disables the channel.
type Channels struct {
	Conf     Provisioner
	Sched    Provisioner
	Calendar Provisioner
}

// Settings tunes a Notifier.
type Settings struct {
	// Timeout bounds every single channel call. Zero means 20 seconds.
	Timeout  time.Duration
	Observer Observer
	Logger   *slog.Logger
}

// Notifier runs the configured channels. It implements application.Notifier.
type Notifier struct {
	channels Channels
	timeout  time.Duration
	observer Observer
	logger   *slog.Logger
	tracer   trace.Tracer
}

var _ application.Notifier = (*Notifier)(nil)

// New builds a Notifier over the given channels.
func New(channels Channels, settings Settings) *Notifier {
	if settings.Timeout <= 0 {
		settings.Timeout = 20 * time.Second
	}
	logger := settings.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		channels: channels,
		timeout:  settings.Timeout,
		observer: settings.Observer,
		logger:   logger,
		tracer:   otel.Tracer(tracerName),
	}
}

// Provision runs every configured channel in order: the meeting first so the
// document and calendar entry can carry its link. Failures are logged and
// leave the corresponding link empty.
func (n *Notifier) Provision(ctx context.Context, event application.Event) application.EventLinks {
	var links application.EventLinks
	for _, channel := range []application.Channel{application.ChannelConf, application.ChannelSched, application.ChannelCalendar} {
		if n.provisioner(channel) == nil {
			continue
		}
		produced, err := n.run(ctx, channel, event)
		if err != nil {
			continue
		}
		links = merge(links, produced)
		if produced.ConfLink != nil {
			event.ConfLink = produced.ConfLink
		}
	}
	return links
}

// ProvisionChannel runs one channel and reports its failure.
func (n *Notifier) ProvisionChannel(ctx context.Context, channel application.Channel, event application.Event) (application.EventLinks, error) {
	if n.provisioner(channel) == nil {
		return application.EventLinks{}, fmt.Errorf("%w: %s", ErrChannelDisabled, channel)
	}
	return n.run(ctx, channel, event)
}

func (n *Notifier) provisioner(channel application.Channel) Provisioner {
	if n == nil {
		return nil
	}
	switch channel {
	case application.ChannelConf:
		return n.channels.Conf
	case application.ChannelSched:
		return n.channels.Sched
	case application.ChannelCalendar:
		return n.channels.Calendar
	}
	return nil
}

func (n *Notifier) run(ctx context.Context, channel application.Channel, event application.Event) (application.EventLinks, error) {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = n.logger
	}
	logger = logger.With("component", "notifier", "channel", string(channel),
		"date", event.Date.UTC().Format(time.RFC3339), "warmup", event.Warmup)

	ctx, span := n.tracer.Start(ctx, "notifier."+string(channel), trace.WithAttributes(
		attribute.String("briefings.channel", string(channel)),
		attribute.Bool("briefings.warmup", event.Warmup),
	))
	defer span.End()

	callCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	link, err := n.provisioner(channel).Provision(callCtx, event)
	if n.observer != nil {
		n.observer.ObserveNotification(string(channel), err)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.WarnContext(ctx, "notifier channel failed", "error", err)
		return application.EventLinks{}, err
	}
	logger.InfoContext(ctx, "notifier channel completed", "link", link)

	var links application.EventLinks
	if link == "" {
		return links, nil
	}
	switch channel {
	case application.ChannelConf:
		links.ConfLink = &link
	case application.ChannelSched:
		links.SchedLink = &link
	case application.ChannelCalendar:
		links.CalendarLink = &link
	}
	return links, nil
}

func merge(into, from application.EventLinks) application.EventLinks {
	if from.ConfLink != nil {
		into.ConfLink = from.ConfLink
	}
	if from.SchedLink != nil {
		into.SchedLink = from.SchedLink
	}
	if from.CalendarLink != nil {
		into.CalendarLink = from.CalendarLink
	}
	return into
}
