package jobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/briefings/internal/application"
	"github.com/example/briefings/internal/notifier"
)

type recordingStoreStub struct {
	events []application.Event
	marked map[string]*string
}

func (s *recordingStoreStub) ListEventsAwaitingRecording(ctx context.Context, before time.Time) ([]application.Event, error) {
	var out []application.Event
	for _, e := range s.events {
		if _, done := s.marked[e.Date.String()]; !done && e.Date.Before(before) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *recordingStoreStub) MarkRecordingProcessed(ctx context.Context, key application.EventKey, link *string) (bool, error) {
	if s.marked == nil {
		s.marked = make(map[string]*string)
	}
	if _, done := s.marked[key.Date.String()]; done {
		return false, nil
	}
	s.marked[key.Date.String()] = link
	return true, nil
}

type recordingSourceStub struct {
	files      map[string][]notifier.RecordingFile
	downloaded []string
}

func (s *recordingSourceStub) Recordings(ctx context.Context, meetingID string) ([]notifier.RecordingFile, error) {
	files, ok := s.files[meetingID]
	if !ok {
		return nil, fmt.Errorf("%w: meeting %s", notifier.ErrRecordingNotFound, meetingID)
	}
	return files, nil
}

func (s *recordingSourceStub) Download(ctx context.Context, url string, w io.Writer) (int64, error) {
	s.downloaded = append(s.downloaded, url)
	n, err := io.WriteString(w, "video:"+url)
	return int64(n), err
}

func link(s string) *string { return &s }

func TestRecordingJob_Run(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	noLink := application.Event{Date: jobNow.Add(-2 * day), RecordingConsent: true}
	missing := application.Event{Date: jobNow.Add(-3 * day), RecordingConsent: true, ConfLink: link("https://zoom.us/j/404")}
	recorded := application.Event{Date: jobNow.Add(-4 * day), RecordingConsent: true, ConfLink: link("https://zoom.us/j/42?pwd=x")}
	older := application.Event{Date: jobNow.Add(-5 * day), RecordingConsent: true, ConfLink: link("https://zoom.us/j/43")}

	store := &recordingStoreStub{events: []application.Event{noLink, missing, recorded, older}}
	source := &recordingSourceStub{files: map[string][]notifier.RecordingFile{
		"42": {
			{FileType: "MP4", RecordingType: "shared_screen_with_speaker_view", FileSize: 10, DownloadURL: "small"},
			{FileType: "MP4", RecordingType: "shared_screen_with_gallery_view", FileSize: 50, DownloadURL: "large"},
			{FileType: "MP4", RecordingType: "active_speaker", FileSize: 90, DownloadURL: "speaker"},
			{FileType: "M4A", RecordingType: "audio_only", FileSize: 5, DownloadURL: "audio"},
		},
		"43": {{FileType: "MP4", RecordingType: "shared_screen", FileSize: 1, DownloadURL: "older"}},
	}}

	job := NewRecordingJob(store, source, RecordingSettings{Dir: dir, BaseURL: "https://talks.example/recordings/"}, fixedClock, nil)
	handled, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if handled != 3 {
		t.Fatalf("expected three events processed, got %d", handled)
	}
	if len(source.downloaded) != 1 || source.downloaded[0] != "large" {
		t.Fatalf("expected only the largest screen recording downloaded, got %v", source.downloaded)
	}
	if got := store.marked[noLink.Date.String()]; got != nil {
		t.Fatalf("expected no link for event without meeting, got %q", *got)
	}
	if got := store.marked[missing.Date.String()]; got != nil {
		t.Fatalf("expected no link for meeting without recording, got %q", *got)
	}
	got := store.marked[recorded.Date.String()]
	if got == nil || *got != "https://talks.example/recordings/2024-02-26.mp4" {
		t.Fatalf("unexpected recording link %v", got)
	}
	if _, done := store.marked[older.Date.String()]; done {
		t.Fatal("expected the older talk to wait for the next run")
	}

	contents, err := os.ReadFile(filepath.Join(dir, "2024-02-26.mp4"))
	if err != nil {
		t.Fatalf("expected recording on disk: %v", err)
	}
	if string(contents) != "video:large" {
		t.Fatalf("unexpected file contents %q", contents)
	}
	leftovers, _ := filepath.Glob(filepath.Join(dir, "*.part"))
	if len(leftovers) != 0 {
		t.Fatalf("expected temp files cleaned up, got %v", leftovers)
	}

	handled, err = job.Run(context.Background())
	if err != nil || handled != 1 {
		t.Fatalf("expected the second run to take the older talk, handled=%d err=%v", handled, err)
	}
}

func TestRecordingJob_DownloadFailureLeavesEvent(t *testing.T) {
	t.Parallel()

	event := application.Event{Date: jobNow.Add(-2 * day), RecordingConsent: true, ConfLink: link("https://zoom.us/j/42")}
	store := &recordingStoreStub{events: []application.Event{event}}
	job := NewRecordingJob(store, failingSource{}, RecordingSettings{Dir: t.TempDir()}, fixedClock, nil)

	if _, err := job.Run(context.Background()); err == nil {
		t.Fatal("expected download error")
	}
	if len(store.marked) != 0 {
		t.Fatal("expected event to stay unprocessed")
	}
}

type failingSource struct{}

func (failingSource) Recordings(ctx context.Context, meetingID string) ([]notifier.RecordingFile, error) {
	return []notifier.RecordingFile{{FileType: "MP4", RecordingType: "shared_screen", DownloadURL: "x"}}, nil
}

func (failingSource) Download(ctx context.Context, url string, w io.Writer) (int64, error) {
	return 0, errors.New("connection reset")
}
