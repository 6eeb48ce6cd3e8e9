package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newZoomServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if got := r.Form.Get("grant_type"); got != "account_credentials" {
			t.Errorf("expected account_credentials grant, got %q", got)
		}
		if got := r.Form.Get("account_id"); got != "acct-1" {
			t.Errorf("expected account id, got %q", got)
		}
		if user, _, ok := r.BasicAuth(); !ok || user != "client" {
			t.Errorf("expected client credentials in basic auth")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/v2/users/me/meetings", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		var req meetingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode meeting: %v", err)
		}
		if req.Duration != 240 || req.Topic != "Briefings: Ada" || req.StartTime != "2024-03-01T19:00:00" || req.Timezone != "UTC" {
			t.Errorf("unexpected meeting request: %+v", req)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":42,"join_url":"https://zoom.example/j/42?pwd=x"}`))
	})
	mux.HandleFunc("/v2/meetings/42/recordings", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"recording_files":[
			{"id":"a","file_type":"MP4","recording_type":"shared_screen_with_speaker_view","file_size":10,"download_url":"` + "http://" + r.Host + `/download/a"},
			{"id":"b","file_type":"M4A","recording_type":"audio_only","file_size":5,"download_url":"http://` + r.Host + `/download/b"}
		]}`))
	})
	mux.HandleFunc("/download/a", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte("0123456789"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestZoom(srv *httptest.Server) *Zoom {
	return NewZoom(context.Background(), ZoomSettings{
		AccountID:    "acct-1",
		ClientID:     "client",
		ClientSecret: "secret",
		APIURL:       srv.URL + "/v2/",
		TokenURL:     srv.URL + "/oauth/token",
		EventName:    "Briefings",
		Duration:     4 * time.Hour,
	})
}

func TestZoom_Provision(t *testing.T) {
	t.Parallel()

	srv := newZoomServer(t)
	link, err := newTestZoom(srv).Provision(context.Background(), talk())
	if err != nil {
		t.Fatalf("Provision returned error: %v", err)
	}
	if link != "https://zoom.example/j/42?pwd=x" {
		t.Fatalf("unexpected join url %q", link)
	}
}

func TestZoom_RecordingsAndDownload(t *testing.T) {
	t.Parallel()

	srv := newZoomServer(t)
	zoom := newTestZoom(srv)

	files, err := zoom.Recordings(context.Background(), "42")
	if err != nil {
		t.Fatalf("Recordings returned error: %v", err)
	}
	if len(files) != 2 || files[0].RecordingType != "shared_screen_with_speaker_view" {
		t.Fatalf("unexpected files: %+v", files)
	}

	var buf bytes.Buffer
	n, err := zoom.Download(context.Background(), files[0].DownloadURL, &buf)
	if err != nil {
		t.Fatalf("Download returned error: %v", err)
	}
	if n != 10 || buf.String() != "0123456789" {
		t.Fatalf("unexpected download: %d bytes %q", n, buf.String())
	}
}

func TestZoom_ReportsAPIErrors(t *testing.T) {
	t.Parallel()

	srv := newZoomServer(t)
	if _, err := newTestZoom(srv).Recordings(context.Background(), "missing"); !errors.Is(err, ErrRecordingNotFound) {
		t.Fatalf("expected ErrRecordingNotFound, got %v", err)
	}
}

func TestMeetingID(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"https://zoom.us/j/123456789?pwd=abc": "123456789",
		"https://zoom.us/j/987/":              "987",
		"https://us02web.zoom.us/j/555":       "555",
	}
	for input, want := range cases {
		if got := MeetingID(input); got != want {
			t.Errorf("MeetingID(%q) = %q, want %q", input, got, want)
		}
	}
}
