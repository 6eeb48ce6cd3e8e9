package jobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/example/briefings/internal/application"
	"github.com/example/briefings/internal/notifier"
)

// RecordingStore is the event access needed by the recording job.
type RecordingStore interface {
	ListEventsAwaitingRecording(ctx context.Context, before time.Time) ([]application.Event, error)
	MarkRecordingProcessed(ctx context.Context, key application.EventKey, link *string) (bool, error)
}

// RecordingSource lists and downloads cloud recordings.
type RecordingSource interface {
	Recordings(ctx context.Context, meetingID string) ([]notifier.RecordingFile, error)
	Download(ctx context.Context, url string, w io.Writer) (int64, error)
}

// RecordingSettings configures where recordings land.
type RecordingSettings struct {
	Dir      string
	BaseURL  string
	Location *time.Location
}

// RecordingJob downloads the screen recording of past talks whose speakers
// consented. At most one download happens per run.
type RecordingJob struct {
	store    RecordingStore
	source   RecordingSource
	settings RecordingSettings
	now      func() time.Time
	logger   *slog.Logger
}

// NewRecordingJob wires the recording job.
func NewRecordingJob(store RecordingStore, source RecordingSource, settings RecordingSettings, now func() time.Time, logger *slog.Logger) *RecordingJob {
	if now == nil {
		now = time.Now
	}
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	return &RecordingJob{store: store, source: source, settings: settings, now: now, logger: logger}
}

// Name implements Job.
func (j *RecordingJob) Name() string { return "recording" }

// Run processes candidates newest first. Events without a meeting link or
// without a recording are marked processed with no link; the first real
// download ends the run.
func (j *RecordingJob) Run(ctx context.Context) (int, error) {
	logger := jobLogger(ctx, j.logger)

	events, err := j.store.ListEventsAwaitingRecording(ctx, j.now().Add(-day))
	if err != nil {
		return 0, fmt.Errorf("list events awaiting recording: %w", err)
	}

	handled := 0
	for _, event := range events {
		logger := logger.With("date", event.Date.UTC().Format(time.RFC3339), "warmup", event.Warmup)

		meetingID := ""
		if event.ConfLink != nil {
			meetingID = notifier.MeetingID(*event.ConfLink)
		}
		if meetingID == "" {
			if err := j.mark(ctx, event, nil, &handled); err != nil {
				return handled, err
			}
			logger.InfoContext(ctx, "no meeting link, recording skipped")
			continue
		}

		link, err := j.fetch(ctx, event, meetingID)
		if errors.Is(err, notifier.ErrRecordingNotFound) || errors.Is(err, errNoScreenRecording) {
			if err := j.mark(ctx, event, nil, &handled); err != nil {
				return handled, err
			}
			logger.InfoContext(ctx, "no screen recording available", "meeting_id", meetingID)
			continue
		}
		if err != nil {
			return handled, fmt.Errorf("fetch recording for meeting %s: %w", meetingID, err)
		}

		if err := j.mark(ctx, event, &link, &handled); err != nil {
			return handled, err
		}
		logger.InfoContext(ctx, "recording stored", "meeting_id", meetingID, "link", link)
		return handled, nil
	}
	return handled, nil
}

var errNoScreenRecording = errors.New("no screen recording")

func (j *RecordingJob) fetch(ctx context.Context, event application.Event, meetingID string) (string, error) {
	files, err := j.source.Recordings(ctx, meetingID)
	if err != nil {
		return "", err
	}
	file, ok := largestScreenRecording(files)
	if !ok {
		return "", errNoScreenRecording
	}

	if err := os.MkdirAll(j.settings.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create recordings dir: %w", err)
	}
	name := recordingFileName(event, j.settings.Location)
	target := filepath.Join(j.settings.Dir, name)

	tmp, err := os.CreateTemp(j.settings.Dir, name+".*.part")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := j.source.Download(ctx, file.DownloadURL, tmp); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("move recording into place: %w", err)
	}

	if j.settings.BaseURL == "" {
		return target, nil
	}
	return strings.TrimRight(j.settings.BaseURL, "/") + "/" + name, nil
}

func (j *RecordingJob) mark(ctx context.Context, event application.Event, link *string, handled *int) error {
	moved, err := j.store.MarkRecordingProcessed(ctx, event.Key(), link)
	if err != nil {
		return fmt.Errorf("mark recording processed: %w", err)
	}
	if moved {
		*handled++
	}
	return nil
}

func largestScreenRecording(files []notifier.RecordingFile) (notifier.RecordingFile, bool) {
	var (
		best  notifier.RecordingFile
		found bool
	)
	for _, f := range files {
		if !strings.EqualFold(f.FileType, "MP4") || !strings.HasPrefix(f.RecordingType, "shared_screen") {
			continue
		}
		if !found || f.FileSize > best.FileSize {
			best, found = f, true
		}
	}
	return best, found
}

func recordingFileName(event application.Event, loc *time.Location) string {
	name := event.Date.In(loc).Format("2006-01-02")
	if event.Warmup {
		name += "-warmup"
	}
	return name + ".mp4"
}
