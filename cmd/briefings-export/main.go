// Command briefings-export writes every stored talk to an xlsx workbook.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/briefings/internal/application"
	"github.com/example/briefings/internal/config"
	"github.com/example/briefings/internal/export"
	"github.com/example/briefings/internal/logging"
	"github.com/example/briefings/internal/persistence/sqlite"
	"github.com/example/briefings/internal/persistence/sqlite/migration"
	"github.com/example/briefings/internal/storeadapter"
)

func main() {
	output := flag.String("o", "briefings.xlsx", "output file, - for stdout")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel, os.Stderr)

	if err := run(ctx, cfg, *output, logger); err != nil {
		logger.Error("export failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, output string, logger *slog.Logger) error {
	storage, err := sqlite.Open(migration.DefaultSQLiteConfig(cfg.SQLitePath), logger)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer storage.Close()
	if err := storage.Migrate(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	events, err := storeadapter.NewEvents(storage.Events).ListEvents(ctx, application.EventFilter{})
	if err != nil {
		return fmt.Errorf("list events: %w", err)
	}

	var w io.Writer = os.Stdout
	if output != "-" {
		f, err := os.Create(output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if err := export.Write(w, events, cfg.Location()); err != nil {
		return err
	}
	logger.Info("events exported", "count", len(events), "output", output)
	return nil
}
