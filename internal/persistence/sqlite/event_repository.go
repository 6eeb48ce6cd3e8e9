package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/briefings/internal/persistence"
)

const eventColumns = `date, warmup, speaker, affiliation, bio, title, abstract, email, host, host_email,
	location, recording_consent, conf_link, sched_link, calendar_link, recording_link,
	recording_processed, announced, created_at, updated_at`

// EventRepository implements persistence.EventRepository using SQLite
type EventRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
	now    func() time.Time
}

// NewEventRepository creates a new SQLite event repository
func NewEventRepository(pool *ConnectionPool) *EventRepository {
	return &EventRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
		now:    time.Now,
	}
}

// UpsertEvent inserts an event or overwrites the editable columns of the event
// already stored at the same slot. Link columns are only replaced when the
// incoming event carries a value; counters and recording state are kept.
func (r *EventRepository) UpsertEvent(ctx context.Context, event persistence.Event) error {
	if event.Date.IsZero() {
		return fmt.Errorf("%w: event date is required", persistence.ErrConstraintViolation)
	}
	_, err := r.helper.Exec(ctx, upsertEventSQL, upsertEventArgs(event, r.now())...)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return nil
}

const insertEventSQL = `
	INSERT INTO events (` + eventColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const upsertEventSQL = insertEventSQL + `
	ON CONFLICT(date, warmup) DO UPDATE SET
		speaker = excluded.speaker,
		affiliation = excluded.affiliation,
		bio = excluded.bio,
		title = excluded.title,
		abstract = excluded.abstract,
		email = excluded.email,
		host = excluded.host,
		host_email = excluded.host_email,
		location = excluded.location,
		recording_consent = excluded.recording_consent,
		conf_link = COALESCE(excluded.conf_link, events.conf_link),
		sched_link = COALESCE(excluded.sched_link, events.sched_link),
		calendar_link = COALESCE(excluded.calendar_link, events.calendar_link),
		recording_link = COALESCE(excluded.recording_link, events.recording_link),
		updated_at = excluded.updated_at`

func upsertEventArgs(event persistence.Event, now time.Time) []any {
	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	return []any{
		formatTime(event.Date),
		boolInt(event.Warmup),
		event.Speaker,
		event.Affiliation,
		event.Bio,
		event.Title,
		event.Abstract,
		event.Email,
		event.Host,
		event.HostEmail,
		event.Location,
		boolInt(event.RecordingConsent),
		nullString(event.ConfLink),
		nullString(event.SchedLink),
		nullString(event.CalendarLink),
		nullString(event.RecordingLink),
		boolInt(event.RecordingProcessed),
		event.Announced,
		formatTime(createdAt),
		formatTime(now),
	}
}

// GetEvent retrieves the event stored at key.
func (r *EventRepository) GetEvent(ctx context.Context, key persistence.EventKey) (persistence.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE date = ? AND warmup = ?`
	event, err := scanEvent(r.helper.QueryRow(ctx, query, formatTime(key.Date), boolInt(key.Warmup)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Event{}, persistence.ErrNotFound
		}
		return persistence.Event{}, r.mapper.MapError(err)
	}
	return event, nil
}

// ListEvents returns events matching filter ordered by date.
func (r *EventRepository) ListEvents(ctx context.Context, filter persistence.EventFilter) ([]persistence.Event, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.Warmup != nil {
		conditions = append(conditions, "warmup = ?")
		args = append(args, boolInt(*filter.Warmup))
	}
	if filter.After != nil {
		conditions = append(conditions, "date > ?")
		args = append(args, formatTime(*filter.After))
	}
	if filter.Before != nil {
		conditions = append(conditions, "date < ?")
		args = append(args, formatTime(*filter.Before))
	}

	query := `SELECT ` + eventColumns + ` FROM events`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	if filter.Descending {
		query += " ORDER BY date DESC, warmup DESC"
	} else {
		query += " ORDER BY date ASC, warmup ASC"
	}

	return r.queryEvents(ctx, query, args...)
}

// ListEventBookings returns every event, newest first, joined with the
// invitation that booked it when there is one.
func (r *EventRepository) ListEventBookings(ctx context.Context) ([]persistence.EventBooking, error) {
	query := `
		SELECT e.date, e.warmup, e.speaker, e.affiliation, e.bio, e.title, e.abstract, e.email, e.host, e.host_email,
			e.location, e.recording_consent, e.conf_link, e.sched_link, e.calendar_link, e.recording_link,
			e.recording_processed, e.announced, e.created_at, e.updated_at,
			i.token, i.email
		FROM events e
		LEFT JOIN invitations i ON i.confirmed_date = e.date AND i.warmup = e.warmup
		ORDER BY e.date DESC, e.warmup DESC
	`
	rows, err := r.helper.Query(ctx, query)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var bookings []persistence.EventBooking
	for rows.Next() {
		var (
			token, email sql.NullString
			booking      persistence.EventBooking
		)
		event, err := scanEvent(rows, &token, &email)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		booking.Event = event
		booking.InvitationToken = stringPtr(token)
		booking.InvitationEmail = stringPtr(email)
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return bookings, nil
}

// OccupiedDates returns the dates already booked on the given track.
func (r *EventRepository) OccupiedDates(ctx context.Context, warmup bool) ([]time.Time, error) {
	return occupiedDates(ctx, r.pool.DB(), warmup)
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func occupiedDates(ctx context.Context, q queryer, warmup bool) ([]time.Time, error) {
	rows, err := q.QueryContext(ctx, `SELECT date FROM events WHERE warmup = ? ORDER BY date`, boolInt(warmup))
	if err != nil {
		return nil, NewErrorMapper().MapError(err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, NewErrorMapper().MapError(err)
		}
		date, err := parseTime(raw)
		if err != nil {
			return nil, err
		}
		dates = append(dates, date)
	}
	if err := rows.Err(); err != nil {
		return nil, NewErrorMapper().MapError(err)
	}
	return dates, nil
}

// UpdateEventLinks stores the links produced by the notifier. Nil links leave
// the stored value untouched. The write is idempotent and retried while the
// database is busy.
func (r *EventRepository) UpdateEventLinks(ctx context.Context, key persistence.EventKey, links persistence.EventLinks) error {
	query := `
		UPDATE events
		SET conf_link = COALESCE(?, conf_link),
			sched_link = COALESCE(?, sched_link),
			calendar_link = COALESCE(?, calendar_link),
			updated_at = ?
		WHERE date = ? AND warmup = ?
	`
	return r.retry.WithRetry(ctx, func() error {
		result, err := r.helper.Exec(ctx, query,
			nullString(links.ConfLink),
			nullString(links.SchedLink),
			nullString(links.CalendarLink),
			formatTime(r.now()),
			formatTime(key.Date),
			boolInt(key.Warmup),
		)
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			return persistence.ErrNotFound
		}
		return nil
	})
}

// ListEventsForReminder returns events that have received at most announced
// reminder waves and whose date lies strictly between from and to.
func (r *EventRepository) ListEventsForReminder(ctx context.Context, announced int, from, to time.Time) ([]persistence.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events
		WHERE announced <= ? AND date > ? AND date < ?
		ORDER BY date ASC, warmup ASC`
	return r.queryEvents(ctx, query, announced, formatTime(from), formatTime(to))
}

// AdvanceAnnounced raises the announced counter to the given value. It never
// lowers the counter and reports whether a row changed.
func (r *EventRepository) AdvanceAnnounced(ctx context.Context, key persistence.EventKey, to int) (bool, error) {
	query := `UPDATE events SET announced = ?, updated_at = ? WHERE date = ? AND warmup = ? AND announced < ?`
	return r.monotonicUpdate(ctx, query, to, formatTime(r.now()), formatTime(key.Date), boolInt(key.Warmup), to)
}

// ListEventsAwaitingRecording returns consenting events before the given
// instant whose recording has not been processed, newest first.
func (r *EventRepository) ListEventsAwaitingRecording(ctx context.Context, before time.Time) ([]persistence.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events
		WHERE recording_processed = 0 AND recording_consent = 1 AND date < ?
		ORDER BY date DESC, warmup DESC`
	return r.queryEvents(ctx, query, formatTime(before))
}

// MarkRecordingProcessed flips recording_processed to true, storing link when
// one is given. Events already processed are left alone.
func (r *EventRepository) MarkRecordingProcessed(ctx context.Context, key persistence.EventKey, link *string) (bool, error) {
	query := `
		UPDATE events
		SET recording_processed = 1, recording_link = COALESCE(?, recording_link), updated_at = ?
		WHERE date = ? AND warmup = ? AND recording_processed = 0
	`
	return r.monotonicUpdate(ctx, query, nullString(link), formatTime(r.now()), formatTime(key.Date), boolInt(key.Warmup))
}

func (r *EventRepository) monotonicUpdate(ctx context.Context, query string, args ...any) (bool, error) {
	var changed bool
	err := r.retry.WithRetry(ctx, func() error {
		result, err := r.helper.Exec(ctx, query, args...)
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		changed = affected > 0
		return nil
	})
	return changed, err
}

func (r *EventRepository) queryEvents(ctx context.Context, query string, args ...any) ([]persistence.Event, error) {
	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var events []persistence.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return events, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanEvent scans the event columns followed by any extra destinations.
func scanEvent(row rowScanner, extra ...any) (persistence.Event, error) {
	var (
		event                                persistence.Event
		date, createdAt, updatedAt           string
		warmup, consent, processed           int
		confLink, schedLink, calLink, recURL sql.NullString
	)
	dest := []any{
		&date, &warmup, &event.Speaker, &event.Affiliation, &event.Bio, &event.Title, &event.Abstract,
		&event.Email, &event.Host, &event.HostEmail, &event.Location, &consent,
		&confLink, &schedLink, &calLink, &recURL, &processed, &event.Announced, &createdAt, &updatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return persistence.Event{}, err
	}

	var err error
	if event.Date, err = parseTime(date); err != nil {
		return persistence.Event{}, err
	}
	if event.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Event{}, err
	}
	if event.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Event{}, err
	}
	event.Warmup = warmup == 1
	event.RecordingConsent = consent == 1
	event.RecordingProcessed = processed == 1
	event.ConfLink = stringPtr(confLink)
	event.SchedLink = stringPtr(schedLink)
	event.CalendarLink = stringPtr(calLink)
	event.RecordingLink = stringPtr(recURL)
	return event, nil
}
