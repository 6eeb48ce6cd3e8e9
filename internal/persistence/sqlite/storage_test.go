package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/briefings/internal/persistence"
	"github.com/example/briefings/internal/persistence/sqlite/migration"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()

	storage, err := Open(migration.TempFileTestSQLiteConfig(filepath.Join(t.TempDir(), "briefings.db")), nil)
	if err != nil {
		t.Fatalf("failed to open storage: %v", err)
	}
	t.Cleanup(func() { _ = storage.Close() })

	if err := storage.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate storage: %v", err)
	}
	return storage
}

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("invalid time %q: %v", value, err)
	}
	return parsed
}

func stringRef(s string) *string {
	return &s
}

func TestStorage_MigrateIsRepeatable(t *testing.T) {
	t.Parallel()

	storage := newTestStorage(t)
	if err := storage.Migrate(context.Background()); err != nil {
		t.Fatalf("second migration failed: %v", err)
	}
	if err := storage.Ping(context.Background()); err != nil {
		t.Fatalf("ping failed: %v", err)
	}
}

func TestTimeEncoding_RoundTripsExactInstant(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("EST", -5*3600)
	original := time.Date(2024, 3, 1, 14, 0, 0, 123456789, loc)

	parsed, err := parseTime(formatTime(original))
	if err != nil {
		t.Fatalf("parseTime returned error: %v", err)
	}
	if !parsed.Equal(original) {
		t.Fatalf("expected %v, got %v", original, parsed)
	}

	earlier := formatTime(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	later := formatTime(time.Date(2024, 3, 1, 10, 0, 0, 5, time.UTC))
	if !(earlier < later) {
		t.Fatalf("expected text encoding to preserve ordering: %s vs %s", earlier, later)
	}
}

func TestErrorMapper_MapError(t *testing.T) {
	t.Parallel()

	storage := newTestStorage(t)
	ctx := context.Background()
	db := storage.Pool().DB()
	mapper := NewErrorMapper()

	insert := `INSERT INTO invitations (token, email, warmup, created_at) VALUES (?, ?, ?, ?)`
	if _, err := db.ExecContext(ctx, insert, "tok", "a@example.com", 0, formatTime(time.Now())); err != nil {
		t.Fatalf("seed insert failed: %v", err)
	}

	_, err := db.ExecContext(ctx, insert, "tok", "b@example.com", 0, formatTime(time.Now()))
	if mapped := mapper.MapError(err); !errors.Is(mapped, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", mapped)
	}

	_, err = db.ExecContext(ctx, insert, "tok2", "b@example.com", 7, formatTime(time.Now()))
	if mapped := mapper.MapError(err); !errors.Is(mapped, persistence.ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation, got %v", mapped)
	}

	_, err = db.ExecContext(ctx, `INSERT INTO invitation_dates (token, date) VALUES (?, ?)`, "missing", formatTime(time.Now()))
	if mapped := mapper.MapError(err); !errors.Is(mapped, persistence.ErrForeignKeyViolation) {
		t.Fatalf("expected ErrForeignKeyViolation, got %v", mapped)
	}
}
