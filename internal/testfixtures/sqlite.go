package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/briefings/internal/persistence"
	"github.com/example/briefings/internal/persistence/sqlite"
	"github.com/example/briefings/internal/persistence/sqlite/migration"
)

// SQLiteHarness provides repository access backed by a temporary SQLite storage
// instance for integration-style tests.
type SQLiteHarness struct {
	Storage      *sqlite.Storage
	Events       persistence.EventRepository
	Proposals    persistence.ProposalRepository
	Reservations persistence.ReservationStore

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a SQLiteHarness using a temporary file that is
// migrated automatically. Callers may optionally invoke Close, but the helper
// will also register a cleanup callback with the provided testing.TB.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "briefings.db")
	storage, err := sqlite.Open(migration.TempFileTestSQLiteConfig(path), nil)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if err := storage.Migrate(context.Background()); err != nil {
		_ = storage.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Storage:      storage,
		Events:       storage.Events,
		Proposals:    storage.Proposals,
		Reservations: storage.Reservations,
		cleanup: func() {
			_ = storage.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}

// SeedEvents upserts the given fixtures.
func (h *SQLiteHarness) SeedEvents(tb testing.TB, fixtures ...EventFixture) {
	tb.Helper()
	for _, f := range fixtures {
		if err := h.Events.UpsertEvent(context.Background(), f.Persistence()); err != nil {
			tb.Fatalf("failed to seed event %v: %v", f.Date, err)
		}
	}
}

// SeedProposals inserts the given fixtures.
func (h *SQLiteHarness) SeedProposals(tb testing.TB, fixtures ...ProposalFixture) {
	tb.Helper()
	for _, f := range fixtures {
		if err := h.Proposals.CreateProposal(context.Background(), f.Persistence()); err != nil {
			tb.Fatalf("failed to seed proposal %s: %v", f.Token, err)
		}
	}
}
