// Package jobs runs the periodic background work: reminder mails and
// recording retrieval.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/example/briefings/internal/logging"
)

const (
	tracerName      = "github.com/example/briefings/internal/jobs"
	defaultInterval = 15 * time.Minute
)

// Job is one unit of periodic work. Run reports how many events it handled.
type Job interface {
	Name() string
	Run(ctx context.Context) (int, error)
}

// Observer receives the outcome of every job run.
type Observer interface {
	ObserveJob(job string, handled int, err error)
}

// Runner executes jobs sequentially on a fixed interval.
type Runner struct {
	interval time.Duration
	jobs     []Job
	observer Observer
	logger   *slog.Logger
	tracer   trace.Tracer
}

// NewRunner builds a runner. A non-positive interval means 15 minutes.
func NewRunner(interval time.Duration, observer Observer, logger *slog.Logger, jobs ...Job) *Runner {
	if interval <= 0 {
		interval = defaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		interval: interval,
		jobs:     jobs,
		observer: observer,
		logger:   logger,
		tracer:   otel.Tracer(tracerName),
	}
}

// Start runs every job once and then on each tick until ctx is cancelled.
func (r *Runner) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce executes each job a single time. A failing job does not stop the
// ones after it.
func (r *Runner) RunOnce(ctx context.Context) {
	for _, job := range r.jobs {
		if ctx.Err() != nil {
			return
		}
		r.run(ctx, job)
	}
}

func (r *Runner) run(ctx context.Context, job Job) {
	logger := r.logger.With("job", job.Name())
	ctx = logging.ContextWithLogger(ctx, logger)
	ctx, span := r.tracer.Start(ctx, "job."+job.Name())
	defer span.End()

	start := time.Now()
	handled, err := job.Run(ctx)
	if r.observer != nil {
		r.observer.ObserveJob(job.Name(), handled, err)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.ErrorContext(ctx, "job run failed", "error", err, "handled", handled, "duration", time.Since(start))
		return
	}
	if handled > 0 {
		logger.InfoContext(ctx, "job run completed", "handled", handled, "duration", time.Since(start))
	}
}

func jobLogger(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if logger := logging.FromContext(ctx); logger != nil {
		return logger
	}
	if fallback != nil {
		return fallback
	}
	return slog.Default()
}
