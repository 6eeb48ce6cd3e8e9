package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/briefings/internal/application"
	"github.com/example/briefings/internal/storeadapter"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewTokenGenerator("token"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewTokenGenerator("token")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// Services bundles application services wired to one SQLite harness.
type Services struct {
	Reservations *application.ReservationService
	Proposals    *application.ProposalService
	Events       *application.EventService
}

// ServiceDeps captures the optional collaborators of the service stack.
type ServiceDeps struct {
	Notifier application.Notifier
	Mailer   application.Mailer
	Observer application.ReservationObserver
	Settings application.ProposalSettings
	Logger   *slog.Logger
}

// NewServices builds the reservation, proposal and event services over the
// harness storage using the factory clock and token generator.
func (f *ServiceFactory) NewServices(harness *SQLiteHarness, deps ServiceDeps) Services {
	now := f.Clock.NowFunc()
	events := storeadapter.NewEvents(harness.Events)
	proposals := storeadapter.NewProposals(harness.Proposals)
	reservations := storeadapter.NewReservations(harness.Reservations)

	reservationService := application.NewReservationServiceWithLogger(proposals, events, reservations, deps.Observer, now, deps.Logger)
	eventService := application.NewEventServiceWithLogger(events, events, deps.Notifier, now, deps.Logger)
	proposalService := application.NewProposalServiceWithLogger(application.ProposalServiceDeps{
		Proposals: proposals,
		Reserver:  reservationService,
		Slots:     eventService,
		Links:     events,
		Notifier:  deps.Notifier,
		Mailer:    deps.Mailer,
	}, deps.Settings, f.IDGenerator.NextFunc(), now, deps.Logger)

	return Services{
		Reservations: reservationService,
		Proposals:    proposalService,
		Events:       eventService,
	}
}
