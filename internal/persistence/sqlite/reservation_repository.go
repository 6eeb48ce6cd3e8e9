package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/briefings/internal/persistence"
)

// ReservationRepository implements persistence.ReservationStore.
type ReservationRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	now    func() time.Time
}

// NewReservationRepository creates a new SQLite reservation repository
func NewReservationRepository(pool *ConnectionPool) *ReservationRepository {
	return &ReservationRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		now:    time.Now,
	}
}

// CommitReservation writes the event and the proposal's confirmed date in one
// transaction and returns the stored event.
//
// The proposal's confirmed date must still equal res.ExpectedConfirmed, and
// a declined application cannot be committed; either mismatch yields
// persistence.ErrConflict. A first confirmation inserts the event, so a slot
// taken by a concurrent commit surfaces as persistence.ErrDuplicate. A
// re-confirmation must target the date already held and updates that event in
// place. Nothing is written unless every step succeeds.
func (r *ReservationRepository) CommitReservation(ctx context.Context, res persistence.Reservation) (persistence.Event, error) {
	tables, err := tablesFor(res.Kind)
	if err != nil {
		return persistence.Event{}, err
	}
	if res.Token == "" || res.Event.Date.IsZero() {
		return persistence.Event{}, fmt.Errorf("%w: token and event date are required", persistence.ErrConstraintViolation)
	}

	var stored persistence.Event
	err = r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		current, declined, err := r.readProposalState(ctx, tx, res.Kind, tables, res.Token)
		if err != nil {
			return err
		}
		if declined {
			return fmt.Errorf("%w: application %s is declined", persistence.ErrConflict, res.Token)
		}
		if !sameInstant(current, res.ExpectedConfirmed) {
			return fmt.Errorf("%w: proposal %s was confirmed concurrently", persistence.ErrConflict, res.Token)
		}

		args := upsertEventArgs(res.Event, r.now())
		if current == nil {
			if _, err := r.helper.ExecTx(ctx, tx, insertEventSQL, args...); err != nil {
				return r.mapper.MapError(err)
			}
		} else {
			if !current.Equal(res.Event.Date) {
				return fmt.Errorf("%w: proposal %s already holds %s", persistence.ErrConflict, res.Token, formatTime(*current))
			}
			if _, err := r.helper.ExecTx(ctx, tx, upsertEventSQL, args...); err != nil {
				return r.mapper.MapError(err)
			}
		}

		update := `UPDATE ` + tables.proposals + ` SET confirmed_date = ?
			WHERE token = ? AND (confirmed_date IS NULL OR confirmed_date = ?)`
		date := formatTime(res.Event.Date)
		result, err := r.helper.ExecTx(ctx, tx, update, date, res.Token, date)
		if err != nil {
			return r.mapper.MapError(err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("%w: proposal %s changed during commit", persistence.ErrConflict, res.Token)
		}

		query := `SELECT ` + eventColumns + ` FROM events WHERE date = ? AND warmup = ?`
		stored, err = scanEvent(r.helper.QueryRowTx(ctx, tx, query, date, boolInt(res.Event.Warmup)))
		if err != nil {
			return r.mapper.MapError(err)
		}
		return nil
	})
	if err != nil {
		return persistence.Event{}, err
	}
	return stored, nil
}

func (r *ReservationRepository) readProposalState(ctx context.Context, tx *sql.Tx, kind persistence.ProposalKind, tables proposalTables, token string) (*time.Time, bool, error) {
	query := `SELECT confirmed_date, 0 FROM ` + tables.proposals + ` WHERE token = ?`
	if kind == persistence.KindApplication {
		query = `SELECT confirmed_date, declined FROM applications WHERE token = ?`
	}

	var (
		confirmed sql.NullString
		declined  int
	)
	if err := r.helper.QueryRowTx(ctx, tx, query, token).Scan(&confirmed, &declined); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, persistence.ErrNotFound
		}
		return nil, false, r.mapper.MapError(err)
	}
	current, err := parseNullTime(confirmed)
	if err != nil {
		return nil, false, err
	}
	return current, declined == 1, nil
}

func sameInstant(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
