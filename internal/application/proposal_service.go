package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/example/briefings/internal/persistence"
	"github.com/example/briefings/internal/recurrence"
)

// ProposalRepository captures the proposal persistence needed by the service.
type ProposalRepository interface {
	CreateProposal(ctx context.Context, proposal Proposal) error
	GetProposal(ctx context.Context, kind ProposalKind, token string) (Proposal, error)
	ListProposals(ctx context.Context, kind ProposalKind) ([]Proposal, error)
	DeclineApplication(ctx context.Context, token string) error
}

// Reserver is the reservation engine as seen by the proposal workflows.
type Reserver interface {
	ComputeAvailableDates(ctx context.Context, token string, kind ProposalKind, dayOffset int) (Availability, error)
	Confirm(ctx context.Context, params ConfirmParams) (ConfirmResult, error)
}

// SlotFinder lists dates open for warmup talks.
type SlotFinder interface {
	WarmupSlots(ctx context.Context) ([]time.Time, error)
}

// Mailer delivers outgoing mail.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// ProposalSettings carries the configuration the proposal workflows depend on.
type ProposalSettings struct {
	EventName           string
	ServerURL           string
	OrganizerEmails     []string
	InvitationLeadDays  int
	ApplicationLeadDays int
	DefaultHour         int
	DefaultMinute       int
	Location            *time.Location
}

// ProposalService runs the invitation and application workflows around the
// reservation engine.
type ProposalService struct {
	proposals   ProposalRepository
	reserver    Reserver
	slots       SlotFinder
	links       LinkWriter
	notifier    Notifier
	mailer      Mailer
	settings    ProposalSettings
	engine      *recurrence.Engine
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// ProposalServiceDeps groups the collaborators of ProposalService.
type ProposalServiceDeps struct {
	Proposals ProposalRepository
	Reserver  Reserver
	Slots     SlotFinder
	Links     LinkWriter
	Notifier  Notifier
	Mailer    Mailer
}

// NewProposalService wires dependencies for proposal operations.
func NewProposalService(deps ProposalServiceDeps, settings ProposalSettings, idGenerator func() string, now func() time.Time) *ProposalService {
	return NewProposalServiceWithLogger(deps, settings, idGenerator, now, nil)
}

// NewProposalServiceWithLogger wires dependencies and a base logger.
func NewProposalServiceWithLogger(deps ProposalServiceDeps, settings ProposalSettings, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ProposalService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ProposalService{
		proposals:   deps.Proposals,
		reserver:    deps.Reserver,
		slots:       deps.Slots,
		links:       deps.Links,
		notifier:    deps.Notifier,
		mailer:      deps.Mailer,
		settings:    settings,
		engine:      recurrence.NewEngine(settings.Location),
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

// CreateInvitation validates and stores a new invitation, optionally mailing
// the link to the speaker.
func (s *ProposalService) CreateInvitation(ctx context.Context, input CreateInvitationInput) (Proposal, error) {
	if s == nil {
		return Proposal{}, fmt.Errorf("ProposalService is nil")
	}
	logger := serviceLogger(ctx, s.logger, "ProposalService", "CreateInvitation", "warmup", input.Warmup)

	vErr := &ValidationError{}
	email, emailErr := normalizeEmail(input.Email)
	if emailErr != "" {
		vErr.add("email", emailErr)
	}
	hostEmail := strings.TrimSpace(input.HostEmail)
	if hostEmail != "" {
		if _, err := mail.ParseAddress(hostEmail); err != nil {
			vErr.add("host_email", "must be a valid email address")
		}
	}

	dates := make([]time.Time, 0, len(input.Dates))
	dates = append(dates, input.Dates...)
	expanded, seriesErr := s.expandSeries(input.Series)
	vErr.merge(seriesErr)
	dates = s.normalizeDates(append(dates, expanded...))
	if len(dates) == 0 && vErr.FieldErrors["series"] == "" {
		vErr.add("dates", "at least one candidate date is required")
	}

	if vErr.HasErrors() {
		logOutcome(ctx, logger, "invitation rejected", vErr)
		return Proposal{}, vErr
	}

	proposal := Proposal{
		Token:          s.idGenerator(),
		Kind:           KindInvitation,
		Email:          email,
		Warmup:         input.Warmup,
		Host:           optionalString(input.Host),
		HostEmail:      optionalString(hostEmail),
		CandidateDates: dates,
		CreatedAt:      s.now(),
	}
	if err := s.proposals.CreateProposal(ctx, proposal); err != nil {
		err = storeFailure(err)
		logOutcome(ctx, logger, "storing invitation failed", err)
		return Proposal{}, err
	}
	logger.InfoContext(ctx, "invitation created", "token", proposal.Token, "candidates", len(dates))

	if input.SendEmail {
		msg := invitationMessage(s.settings, proposal)
		s.sendBestEffort(ctx, logger, msg)
	}
	return proposal, nil
}

// SubmitApplication stores a speaker's application for open warmup slots and
// notifies the organizers.
func (s *ProposalService) SubmitApplication(ctx context.Context, input ApplicationInput) (Proposal, error) {
	if s == nil {
		return Proposal{}, fmt.Errorf("ProposalService is nil")
	}
	logger := serviceLogger(ctx, s.logger, "ProposalService", "SubmitApplication")

	vErr := &ValidationError{}
	email, emailErr := normalizeEmail(input.Email)
	if emailErr != "" {
		vErr.add("email", emailErr)
	}
	if strings.TrimSpace(input.Speaker) == "" {
		vErr.add("speaker", "speaker is required")
	}
	if strings.TrimSpace(input.Title) == "" {
		vErr.add("title", "title is required")
	}

	dates := s.normalizeDates(input.Dates)
	if len(dates) == 0 {
		vErr.add("dates", "at least one candidate date is required")
	} else {
		open, err := s.slots.WarmupSlots(ctx)
		if err != nil {
			err = storeFailure(err)
			logOutcome(ctx, logger, "loading warmup slots failed", err)
			return Proposal{}, err
		}
		for _, d := range dates {
			if !containsInstant(open, d) {
				vErr.add("dates", fmt.Sprintf("%s is not open for warmup talks", d.Format(time.RFC3339)))
				break
			}
		}
	}

	if vErr.HasErrors() {
		logOutcome(ctx, logger, "application rejected", vErr)
		return Proposal{}, vErr
	}

	proposal := Proposal{
		Token:          s.idGenerator(),
		Kind:           KindApplication,
		Email:          email,
		Warmup:         true,
		Speaker:        strings.TrimSpace(input.Speaker),
		Affiliation:    strings.TrimSpace(input.Affiliation),
		Bio:            input.Bio,
		Title:          strings.TrimSpace(input.Title),
		Abstract:       input.Abstract,
		CandidateDates: dates,
		CreatedAt:      s.now(),
	}
	if err := s.proposals.CreateProposal(ctx, proposal); err != nil {
		err = storeFailure(err)
		logOutcome(ctx, logger, "storing application failed", err)
		return Proposal{}, err
	}
	logger.InfoContext(ctx, "application submitted", "token", proposal.Token, "candidates", len(dates))

	if len(s.settings.OrganizerEmails) > 0 {
		s.sendBestEffort(ctx, logger, applicationMessage(s.settings, proposal))
	}
	return proposal, nil
}

// InvitationAvailability returns the bookable dates of an invitation.
func (s *ProposalService) InvitationAvailability(ctx context.Context, token string) (Availability, error) {
	if s == nil {
		return Availability{}, fmt.Errorf("ProposalService is nil")
	}
	return s.reserver.ComputeAvailableDates(ctx, token, KindInvitation, s.settings.InvitationLeadDays)
}

// ApplicationAvailability returns the bookable dates of an application.
func (s *ProposalService) ApplicationAvailability(ctx context.Context, token string) (Availability, error) {
	if s == nil {
		return Availability{}, fmt.Errorf("ProposalService is nil")
	}
	return s.reserver.ComputeAvailableDates(ctx, token, KindApplication, s.settings.ApplicationLeadDays)
}

// ConfirmInvitation books date for the invited speaker. Side effects run after
// the commit and never fail the confirmation.
func (s *ProposalService) ConfirmInvitation(ctx context.Context, token string, date time.Time, fields EventFields) (ConfirmResult, error) {
	if s == nil {
		return ConfirmResult{}, fmt.Errorf("ProposalService is nil")
	}
	result, err := s.reserver.Confirm(ctx, ConfirmParams{
		Token:     token,
		Kind:      KindInvitation,
		Date:      date,
		DayOffset: s.settings.InvitationLeadDays,
		Fields:    fields,
	})
	if err != nil {
		return ConfirmResult{}, err
	}
	return s.afterConfirm(ctx, "ConfirmInvitation", result), nil
}

// AcceptApplication books date for an application using the speaker details
// it was submitted with.
func (s *ProposalService) AcceptApplication(ctx context.Context, token string, date time.Time) (ConfirmResult, error) {
	if s == nil {
		return ConfirmResult{}, fmt.Errorf("ProposalService is nil")
	}
	logger := serviceLogger(ctx, s.logger, "ProposalService", "AcceptApplication")

	application, err := s.proposals.GetProposal(ctx, KindApplication, token)
	if err != nil {
		err = mapLookupError(err)
		logOutcome(ctx, logger, "application lookup failed", err)
		return ConfirmResult{}, err
	}
	if application.Declined || application.ConfirmedDate != nil {
		err := fmt.Errorf("%w: application already judged", ErrDateUnavailable)
		logOutcome(ctx, logger, "accept rejected", err)
		return ConfirmResult{}, err
	}

	result, err := s.reserver.Confirm(ctx, ConfirmParams{
		Token: token,
		Kind:  KindApplication,
		Date:  date,
		Fields: EventFields{
			Speaker:          application.Speaker,
			Affiliation:      application.Affiliation,
			Bio:              application.Bio,
			Title:            application.Title,
			Abstract:         application.Abstract,
			Email:            application.Email,
			RecordingConsent: true,
		},
	})
	if err != nil {
		return ConfirmResult{}, err
	}
	return s.afterConfirm(ctx, "AcceptApplication", result), nil
}

// DeclineApplication marks an application as declined.
func (s *ProposalService) DeclineApplication(ctx context.Context, token string) error {
	if s == nil {
		return fmt.Errorf("ProposalService is nil")
	}
	logger := serviceLogger(ctx, s.logger, "ProposalService", "DeclineApplication")

	err := s.proposals.DeclineApplication(ctx, token)
	switch {
	case err == nil:
		logger.InfoContext(ctx, "application declined")
		return nil
	case errors.Is(err, persistence.ErrConflict):
		err = fmt.Errorf("%w: application already confirmed", ErrDateUnavailable)
	default:
		err = mapLookupError(err)
	}
	logOutcome(ctx, logger, "decline rejected", err)
	return err
}

// InvitationStatuses classifies every invitation as confirmed, pending or
// expired.
func (s *ProposalService) InvitationStatuses(ctx context.Context) ([]InvitationStatusView, error) {
	if s == nil {
		return nil, fmt.Errorf("ProposalService is nil")
	}
	invitations, err := s.proposals.ListProposals(ctx, KindInvitation)
	if err != nil {
		err = storeFailure(err)
		logOutcome(ctx, serviceLogger(ctx, s.logger, "ProposalService", "InvitationStatuses"), "listing invitations failed", err)
		return nil, err
	}

	cutoff := s.now().Add(time.Duration(s.settings.InvitationLeadDays) * 24 * time.Hour)
	views := make([]InvitationStatusView, 0, len(invitations))
	for _, inv := range invitations {
		views = append(views, InvitationStatusView{Proposal: inv, Status: invitationStatus(inv, cutoff)})
	}
	return views, nil
}

func invitationStatus(inv Proposal, cutoff time.Time) InvitationStatus {
	if inv.ConfirmedDate != nil {
		return InvitationConfirmed
	}
	for _, d := range inv.CandidateDates {
		if d.After(cutoff) {
			return InvitationPending
		}
	}
	return InvitationExpired
}

// PendingApplications lists applications that are neither declined nor
// confirmed.
func (s *ProposalService) PendingApplications(ctx context.Context) ([]Proposal, error) {
	if s == nil {
		return nil, fmt.Errorf("ProposalService is nil")
	}
	applications, err := s.proposals.ListProposals(ctx, KindApplication)
	if err != nil {
		err = storeFailure(err)
		logOutcome(ctx, serviceLogger(ctx, s.logger, "ProposalService", "PendingApplications"), "listing applications failed", err)
		return nil, err
	}
	pending := make([]Proposal, 0, len(applications))
	for _, app := range applications {
		if !app.Declined && app.ConfirmedDate == nil {
			pending = append(pending, app)
		}
	}
	return pending, nil
}

// afterConfirm runs the notifier on first confirmation and mails the speaker.
// It detaches from the caller's cancellation so a dropped request does not
// abort provisioning halfway. The notifier bounds each channel on its own.
func (s *ProposalService) afterConfirm(ctx context.Context, op string, result ConfirmResult) ConfirmResult {
	logger := serviceLogger(ctx, s.logger, "ProposalService", op,
		"date", result.Event.Date.UTC().Format(time.RFC3339), "warmup", result.Event.Warmup)
	ctx = context.WithoutCancel(ctx)

	if result.First && s.notifier != nil {
		links := s.notifier.Provision(ctx, result.Event)

		if !links.Empty() {
			if err := s.links.UpdateEventLinks(ctx, result.Event.Key(), links); err != nil {
				logger.WarnContext(ctx, "storing notifier links failed", "error", err)
			} else {
				result.Event = applyLinks(result.Event, links)
			}
		}
	}

	s.sendBestEffort(ctx, logger, confirmationMessage(s.settings, result))
	return result
}

func (s *ProposalService) sendBestEffort(ctx context.Context, logger *slog.Logger, msg Message) {
	if s.mailer == nil || len(msg.To) == 0 {
		return
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		logger.WarnContext(ctx, "sending mail failed", "error", err, "channel", "mail", "subject", msg.Subject)
	}
}

// expandSeries turns a weekly series into candidate dates. A nil series
// yields nothing.
func (s *ProposalService) expandSeries(series *Series) ([]time.Time, *ValidationError) {
	if series == nil {
		return nil, nil
	}
	expanded, err := s.engine.Expand(recurrence.Rule{
		First:         series.First,
		Count:         series.Count,
		IntervalWeeks: series.IntervalWeeks,
	}, recurrence.GenerateOptions{})
	if err != nil {
		vErr := &ValidationError{}
		vErr.add("series", err.Error())
		return nil, vErr
	}
	return expanded, nil
}

// normalizeDates applies the default talk time to bare dates, collapses
// duplicates and sorts the result.
func (s *ProposalService) normalizeDates(dates []time.Time) []time.Time {
	seen := make(map[int64]struct{}, len(dates))
	out := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		if d.IsZero() {
			continue
		}
		d = s.engine.ApplyDefaultTime(d, s.settings.DefaultHour, s.settings.DefaultMinute)
		if _, dup := seen[d.UnixNano()]; dup {
			continue
		}
		seen[d.UnixNano()] = struct{}{}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func normalizeEmail(raw string) (string, string) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", "email is required"
	}
	addr, err := mail.ParseAddress(trimmed)
	if err != nil {
		return "", "must be a valid email address"
	}
	return addr.Address, ""
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
