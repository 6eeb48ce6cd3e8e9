package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/briefings/internal/application"
	"github.com/example/briefings/internal/config"
	httptransport "github.com/example/briefings/internal/http"
	"github.com/example/briefings/internal/jobs"
	"github.com/example/briefings/internal/logging"
	"github.com/example/briefings/internal/metrics"
	"github.com/example/briefings/internal/notifier"
	"github.com/example/briefings/internal/persistence/sqlite"
	"github.com/example/briefings/internal/persistence/sqlite/migration"
	"github.com/example/briefings/internal/storeadapter"
	"github.com/example/briefings/internal/telemetry"
)

const serviceName = "briefings"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel, os.Stdout)

	shutdownTracing, err := telemetry.Setup(ctx, serviceName, cfg.OTELEndpoint)
	if err != nil {
		logger.Error("failed to set up tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Error("failed to flush traces", "error", err)
		}
	}()

	server, err := newServer(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialise server", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := server.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	go server.runner.Start(ctx)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           server.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Confirmation waits on the notifier channels, each bounded by NotifierTimeout.
		WriteTimeout: 30*time.Second + 3*cfg.NotifierTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("briefings API listening", "addr", httpServer.Addr, "event", cfg.EventName)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

// server is the wired application: the HTTP handler, the background job
// runner and the storage they share.
type server struct {
	handler http.Handler
	runner  *jobs.Runner
	metrics *metrics.Metrics
	storage *sqlite.Storage
}

func (s *server) Close() error {
	return s.storage.Close()
}

func newServer(ctx context.Context, cfg config.Config, logger *slog.Logger) (*server, error) {
	storage, err := sqlite.Open(migration.DefaultSQLiteConfig(cfg.SQLitePath), logger)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	if err := storage.Migrate(ctx); err != nil {
		_ = storage.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	loc := cfg.Location()
	now := time.Now
	reg := metrics.New()

	events := storeadapter.NewEvents(storage.Events)
	proposals := storeadapter.NewProposals(storage.Proposals)
	reservations := storeadapter.NewReservations(storage.Reservations)

	zoom := newZoom(ctx, cfg)
	notify, err := newNotifier(ctx, cfg, zoom, reg, logger)
	if err != nil {
		_ = storage.Close()
		return nil, err
	}
	mailer := newMailer(cfg)

	reservationService := application.NewReservationServiceWithLogger(proposals, events, reservations, reg, now, logger)
	eventService := application.NewEventServiceWithLogger(events, events, notify, now, logger)
	proposalService := application.NewProposalServiceWithLogger(application.ProposalServiceDeps{
		Proposals: proposals,
		Reserver:  reservationService,
		Slots:     eventService,
		Links:     events,
		Notifier:  notify,
		Mailer:    mailer,
	}, application.ProposalSettings{
		EventName:           cfg.EventName,
		ServerURL:           cfg.ServerURL,
		OrganizerEmails:     cfg.OrganizerEmails,
		InvitationLeadDays:  cfg.InvitationLeadDays,
		ApplicationLeadDays: cfg.ApplicationLeadDays,
		DefaultHour:         cfg.DefaultHour,
		DefaultMinute:       cfg.DefaultMinute,
		Location:            loc,
	}, uuid.NewString, now, logger)
	authService := application.NewAuthServiceWithLogger(application.AdminCredentials{
		User:         cfg.AdminUser,
		PasswordHash: cfg.AdminPasswordHash,
	}, nil, logger)

	var scheduled []jobs.Job
	if mailer != nil {
		scheduled = append(scheduled, jobs.NewReminderJob(events, mailer, jobs.ReminderSettings{
			EventName:         cfg.EventName,
			Location:          loc,
			Recipients:        reminderRecipients(cfg),
			PrivateRecipients: privateReminderRecipients(cfg),
		}, now, logger))
	}
	if zoom != nil {
		scheduled = append(scheduled, jobs.NewRecordingJob(events, zoom, jobs.RecordingSettings{
			Dir:      cfg.RecordingsDir,
			BaseURL:  strings.TrimRight(cfg.ServerURL, "/") + "/recordings",
			Location: loc,
		}, now, logger))
	}
	runner := jobs.NewRunner(cfg.JobInterval, reg, logger, scheduled...)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Events:       httptransport.NewEventHandler(eventService, logger),
		Invitations:  httptransport.NewInvitationHandler(proposalService, loc, logger),
		Applications: httptransport.NewApplicationHandler(proposalService, loc, logger),
		Admin:        httptransport.RequireAdmin(authService, logger),
		Metrics:      reg.Handler(),
		Recordings:   http.FileServer(http.Dir(cfg.RecordingsDir)),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
			httptransport.CORS(cfg.CORSOrigins),
		},
	})

	return &server{handler: router, runner: runner, metrics: reg, storage: storage}, nil
}

// newZoom returns nil when the video channel is not configured.
func newZoom(ctx context.Context, cfg config.Config) *notifier.Zoom {
	if !cfg.Zoom.Enabled() {
		return nil
	}
	return notifier.NewZoom(ctx, notifier.ZoomSettings{
		AccountID:    cfg.Zoom.AccountID,
		ClientID:     cfg.Zoom.ClientID,
		ClientSecret: cfg.Zoom.ClientSecret,
		UserID:       cfg.Zoom.UserID,
		APIURL:       cfg.Zoom.APIURL,
		TokenURL:     cfg.Zoom.TokenURL,
		EventName:    cfg.EventName,
		Duration:     cfg.EventDuration,
		Location:     cfg.Location(),
	})
}

// newNotifier returns a nil application.Notifier when no channel is
// configured so the services skip provisioning entirely.
func newNotifier(ctx context.Context, cfg config.Config, zoom *notifier.Zoom, reg *metrics.Metrics, logger *slog.Logger) (application.Notifier, error) {
	var channels notifier.Channels
	if zoom != nil {
		channels.Conf = zoom
	}
	if cfg.Etherpad.Enabled() {
		channels.Sched = notifier.NewEtherpad(notifier.EtherpadSettings{
			URL:         cfg.Etherpad.URL,
			APIKey:      cfg.Etherpad.APIKey,
			TemplatePad: cfg.Etherpad.TemplatePad,
			Location:    cfg.Location(),
		}, nil)
	}
	if cfg.Google.Enabled() {
		cal, err := notifier.NewCalendar(ctx, notifier.CalendarSettings{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			RefreshToken: cfg.Google.RefreshToken,
			CalendarID:   cfg.Google.CalendarID,
			EventName:    cfg.EventName,
			Duration:     cfg.EventDuration,
			Location:     cfg.Location(),
		})
		if err != nil {
			return nil, fmt.Errorf("calendar channel: %w", err)
		}
		channels.Calendar = cal
	}

	if channels.Conf == nil && channels.Sched == nil && channels.Calendar == nil {
		return nil, nil
	}
	return notifier.New(channels, notifier.Settings{
		Timeout:  cfg.NotifierTimeout,
		Observer: reg,
		Logger:   logger,
	}), nil
}

// newMailer returns a nil application.Mailer when SMTP is not configured.
func newMailer(cfg config.Config) application.Mailer {
	if !cfg.SMTP.Enabled() {
		return nil
	}
	return notifier.NewSMTPMailer(notifier.SMTPSettings{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		User:     cfg.SMTP.User,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	})
}

func reminderRecipients(cfg config.Config) []string {
	if len(cfg.AnnounceEmails) > 0 {
		return cfg.AnnounceEmails
	}
	return cfg.OrganizerEmails
}

// privateReminderRecipients falls back to the organizers only when the public
// copy goes to a separate list, so organizers never get the reminder twice.
func privateReminderRecipients(cfg config.Config) []string {
	if len(cfg.PrivateEmails) > 0 {
		return cfg.PrivateEmails
	}
	if len(cfg.AnnounceEmails) > 0 {
		return cfg.OrganizerEmails
	}
	return nil
}
