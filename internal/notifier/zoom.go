package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/example/briefings/internal/application"
)

// ErrRecordingNotFound is returned when a meeting has no cloud recording.
var ErrRecordingNotFound = errors.New("zoom: recording not found")

// ZoomSettings configures the server-to-server OAuth app.
type ZoomSettings struct {
	AccountID    string
	ClientID     string
	ClientSecret string
	UserID       string
	APIURL       string
	TokenURL     string
	EventName    string
	Duration     time.Duration
	Location     *time.Location
}

// Zoom creates meetings and reads cloud recordings.
type Zoom struct {
	settings ZoomSettings
	client   *http.Client
}

// RecordingFile is one file of a cloud recording.
type RecordingFile struct {
	ID            string `json:"id"`
	FileType      string `json:"file_type"`
	FileExtension string `json:"file_extension"`
	RecordingType string `json:"recording_type"`
	FileSize      int64  `json:"file_size"`
	DownloadURL   string `json:"download_url"`
}

// NewZoom builds a client that obtains account-credentials tokens on demand.
func NewZoom(ctx context.Context, settings ZoomSettings) *Zoom {
	if settings.UserID == "" {
		settings.UserID = "me"
	}
	if settings.Duration <= 0 {
		settings.Duration = 4 * time.Hour
	}
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	settings.APIURL = strings.TrimRight(settings.APIURL, "/")

	cc := clientcredentials.Config{
		ClientID:     settings.ClientID,
		ClientSecret: settings.ClientSecret,
		TokenURL:     settings.TokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
		EndpointParams: url.Values{
			"grant_type": {"account_credentials"},
			"account_id": {settings.AccountID},
		},
	}
	return &Zoom{settings: settings, client: cc.Client(ctx)}
}

type meetingRequest struct {
	Topic     string `json:"topic"`
	Type      int    `json:"type"`
	StartTime string `json:"start_time"`
	Duration  int    `json:"duration"`
	Timezone  string `json:"timezone"`
	Agenda    string `json:"agenda,omitempty"`
}

type meetingResponse struct {
	ID      int64  `json:"id"`
	JoinURL string `json:"join_url"`
}

// Provision schedules a meeting for the talk and returns its join URL.
func (z *Zoom) Provision(ctx context.Context, event application.Event) (string, error) {
	body, err := json.Marshal(meetingRequest{
		Topic:     fmt.Sprintf("%s: %s", z.settings.EventName, event.Speaker),
		Type:      2,
		StartTime: event.Date.In(z.settings.Location).Format("2006-01-02T15:04:05"),
		Duration:  int(z.settings.Duration / time.Minute),
		Timezone:  z.settings.Location.String(),
		Agenda:    event.Title,
	})
	if err != nil {
		return "", fmt.Errorf("zoom: encode meeting: %w", err)
	}

	endpoint := fmt.Sprintf("%s/users/%s/meetings", z.settings.APIURL, url.PathEscape(z.settings.UserID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("zoom: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var meeting meetingResponse
	if err := z.do(req, &meeting); err != nil {
		return "", err
	}
	if meeting.JoinURL == "" {
		return "", fmt.Errorf("zoom: meeting %d has no join url", meeting.ID)
	}
	return meeting.JoinURL, nil
}

// Recordings lists the cloud recording files of a meeting.
func (z *Zoom) Recordings(ctx context.Context, meetingID string) ([]RecordingFile, error) {
	endpoint := fmt.Sprintf("%s/meetings/%s/recordings", z.settings.APIURL, url.PathEscape(meetingID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("zoom: build request: %w", err)
	}
	var payload struct {
		RecordingFiles []RecordingFile `json:"recording_files"`
	}
	if err := z.do(req, &payload); err != nil {
		var status *statusError
		if errors.As(err, &status) && status.code == http.StatusNotFound {
			return nil, fmt.Errorf("%w: meeting %s", ErrRecordingNotFound, meetingID)
		}
		return nil, err
	}
	return payload.RecordingFiles, nil
}

// Download streams a recording file into w and returns the bytes written.
func (z *Zoom) Download(ctx context.Context, downloadURL string, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return 0, fmt.Errorf("zoom: build request: %w", err)
	}
	resp, err := z.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("zoom: download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("zoom: download: unexpected status %d", resp.StatusCode)
	}
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("zoom: download: %w", err)
	}
	return n, nil
}

func (z *Zoom) do(req *http.Request, out any) error {
	resp, err := z.client.Do(req)
	if err != nil {
		return fmt.Errorf("zoom: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("zoom: %s %s: %w", req.Method, req.URL.Path,
			&statusError{code: resp.StatusCode, body: strings.TrimSpace(string(snippet))})
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("zoom: decode response: %w", err)
	}
	return nil
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.code, e.body)
}

// MeetingID extracts the meeting id from a join URL: the last path segment.
func MeetingID(joinURL string) string {
	u, err := url.Parse(joinURL)
	if err != nil {
		return ""
	}
	path := strings.TrimRight(u.Path, "/")
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}
