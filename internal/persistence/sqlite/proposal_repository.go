package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/example/briefings/internal/persistence"
)

// ProposalRepository implements persistence.ProposalRepository over the
// invitations and applications tables.
type ProposalRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	now    func() time.Time
}

// NewProposalRepository creates a new SQLite proposal repository
func NewProposalRepository(pool *ConnectionPool) *ProposalRepository {
	return &ProposalRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		now:    time.Now,
	}
}

// CreateProposal inserts a proposal together with its candidate dates.
func (r *ProposalRepository) CreateProposal(ctx context.Context, proposal persistence.Proposal) error {
	if proposal.Token == "" {
		return fmt.Errorf("%w: proposal token is required", persistence.ErrConstraintViolation)
	}
	tables, err := tablesFor(proposal.Kind)
	if err != nil {
		return err
	}

	createdAt := proposal.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.now()
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		var err error
		switch proposal.Kind {
		case persistence.KindInvitation:
			_, err = r.helper.ExecTx(ctx, tx, `
				INSERT INTO invitations (token, email, warmup, host, host_email, confirmed_date, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				proposal.Token,
				proposal.Email,
				boolInt(proposal.Warmup),
				nullString(proposal.Host),
				nullString(proposal.HostEmail),
				nullTime(proposal.ConfirmedDate),
				formatTime(createdAt),
			)
		case persistence.KindApplication:
			_, err = r.helper.ExecTx(ctx, tx, `
				INSERT INTO applications (token, email, warmup, host, host_email, speaker, affiliation, bio, title,
					abstract, declined, confirmed_date, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				proposal.Token,
				proposal.Email,
				boolInt(proposal.Warmup),
				nullString(proposal.Host),
				nullString(proposal.HostEmail),
				proposal.Speaker,
				proposal.Affiliation,
				proposal.Bio,
				proposal.Title,
				proposal.Abstract,
				boolInt(proposal.Declined),
				nullTime(proposal.ConfirmedDate),
				formatTime(createdAt),
			)
		}
		if err != nil {
			return r.mapper.MapError(err)
		}

		insertDate := `INSERT OR IGNORE INTO ` + tables.dates + ` (token, date) VALUES (?, ?)`
		for _, date := range proposal.CandidateDates {
			if _, err := r.helper.ExecTx(ctx, tx, insertDate, proposal.Token, formatTime(date)); err != nil {
				return r.mapper.MapError(err)
			}
		}
		return nil
	})
}

// GetProposal reads a proposal and its candidate dates by token.
func (r *ProposalRepository) GetProposal(ctx context.Context, kind persistence.ProposalKind, token string) (persistence.Proposal, error) {
	if token == "" {
		return persistence.Proposal{}, persistence.ErrNotFound
	}
	return getProposal(ctx, r.pool.DB(), kind, token)
}

// ListProposals returns every proposal of kind, newest first.
func (r *ProposalRepository) ListProposals(ctx context.Context, kind persistence.ProposalKind) ([]persistence.Proposal, error) {
	tables, err := tablesFor(kind)
	if err != nil {
		return nil, err
	}

	rows, err := r.helper.Query(ctx, proposalSelect(kind, tables)+` ORDER BY p.created_at DESC, p.token`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var (
		proposals []persistence.Proposal
		index     = make(map[string]int)
	)
	for rows.Next() {
		proposal, err := scanProposal(rows, kind)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		index[proposal.Token] = len(proposals)
		proposals = append(proposals, proposal)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	rows.Close()

	dateRows, err := r.helper.Query(ctx, `SELECT token, date FROM `+tables.dates+` ORDER BY date`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer dateRows.Close()

	for dateRows.Next() {
		var token, raw string
		if err := dateRows.Scan(&token, &raw); err != nil {
			return nil, r.mapper.MapError(err)
		}
		i, ok := index[token]
		if !ok {
			continue
		}
		date, err := parseTime(raw)
		if err != nil {
			return nil, err
		}
		proposals[i].CandidateDates = append(proposals[i].CandidateDates, date)
	}
	if err := dateRows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return proposals, nil
}

// DeclineApplication marks an unconfirmed application as declined. Declining
// twice is a no-op; declining a confirmed application fails with ErrConflict.
func (r *ProposalRepository) DeclineApplication(ctx context.Context, token string) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		var confirmed sql.NullString
		err := r.helper.QueryRowTx(ctx, tx, `SELECT confirmed_date FROM applications WHERE token = ?`, token).Scan(&confirmed)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return persistence.ErrNotFound
			}
			return r.mapper.MapError(err)
		}
		if confirmed.Valid {
			return fmt.Errorf("%w: application %s is already confirmed", persistence.ErrConflict, token)
		}
		if _, err := r.helper.ExecTx(ctx, tx, `UPDATE applications SET declined = 1 WHERE token = ?`, token); err != nil {
			return r.mapper.MapError(err)
		}
		return nil
	})
}

func proposalSelect(kind persistence.ProposalKind, tables proposalTables) string {
	if kind == persistence.KindApplication {
		return `SELECT p.token, p.email, p.warmup, p.host, p.host_email, p.speaker, p.affiliation, p.bio, p.title,
			p.abstract, p.declined, p.confirmed_date, p.created_at FROM applications p`
	}
	return `SELECT p.token, p.email, p.warmup, p.host, p.host_email, '', '', '', '', '', 0, p.confirmed_date,
		p.created_at FROM ` + tables.proposals + ` p`
}

func scanProposal(row rowScanner, kind persistence.ProposalKind) (persistence.Proposal, error) {
	var (
		proposal         persistence.Proposal
		warmup, declined int
		host, hostEmail  sql.NullString
		confirmed        sql.NullString
		createdAt        string
	)
	err := row.Scan(
		&proposal.Token, &proposal.Email, &warmup, &host, &hostEmail,
		&proposal.Speaker, &proposal.Affiliation, &proposal.Bio, &proposal.Title, &proposal.Abstract,
		&declined, &confirmed, &createdAt,
	)
	if err != nil {
		return persistence.Proposal{}, err
	}

	proposal.Kind = kind
	proposal.Warmup = warmup == 1
	proposal.Declined = declined == 1
	proposal.Host = stringPtr(host)
	proposal.HostEmail = stringPtr(hostEmail)
	if proposal.ConfirmedDate, err = parseNullTime(confirmed); err != nil {
		return persistence.Proposal{}, err
	}
	if proposal.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Proposal{}, err
	}
	return proposal, nil
}

type rowQueryer interface {
	queryer
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// getProposal loads one proposal through q, which may be the pool or an open
// transaction.
func getProposal(ctx context.Context, q rowQueryer, kind persistence.ProposalKind, token string) (persistence.Proposal, error) {
	tables, err := tablesFor(kind)
	if err != nil {
		return persistence.Proposal{}, err
	}
	mapper := NewErrorMapper()

	proposal, err := scanProposal(q.QueryRowContext(ctx, proposalSelect(kind, tables)+` WHERE p.token = ?`, token), kind)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Proposal{}, persistence.ErrNotFound
		}
		return persistence.Proposal{}, mapper.MapError(err)
	}

	rows, err := q.QueryContext(ctx, `SELECT date FROM `+tables.dates+` WHERE token = ?`, token)
	if err != nil {
		return persistence.Proposal{}, mapper.MapError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return persistence.Proposal{}, mapper.MapError(err)
		}
		date, err := parseTime(raw)
		if err != nil {
			return persistence.Proposal{}, err
		}
		proposal.CandidateDates = append(proposal.CandidateDates, date)
	}
	if err := rows.Err(); err != nil {
		return persistence.Proposal{}, mapper.MapError(err)
	}

	sort.Slice(proposal.CandidateDates, func(i, j int) bool {
		return proposal.CandidateDates[i].Before(proposal.CandidateDates[j])
	})
	return proposal, nil
}
