package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/example/briefings/internal/application"
)

func TestMetrics_Counters(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObserveConfirmation(application.KindInvitation, "first")
	m.ObserveConfirmation(application.KindInvitation, "first")
	m.ObserveConfirmation(application.KindApplication, "date_unavailable")
	m.ObserveNotification("conf", nil)
	m.ObserveNotification("conf", errors.New("boom"))
	m.ObserveJob("reminder", 3, nil)
	m.ObserveJob("reminder", 0, errors.New("store"))

	if got := testutil.ToFloat64(m.confirmations.WithLabelValues("invitation", "first")); got != 2 {
		t.Fatalf("expected 2 first confirmations, got %v", got)
	}
	if got := testutil.ToFloat64(m.notifications.WithLabelValues("conf", "failure")); got != 1 {
		t.Fatalf("expected 1 failed notification, got %v", got)
	}
	if got := testutil.ToFloat64(m.jobItems.WithLabelValues("reminder")); got != 3 {
		t.Fatalf("expected 3 job items, got %v", got)
	}
	if got := testutil.ToFloat64(m.jobRuns.WithLabelValues("reminder", "failure")); got != 1 {
		t.Fatalf("expected 1 failed run, got %v", got)
	}
}

func TestMetrics_Handler(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObserveConfirmation(application.KindApplication, "repeat")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `briefings_confirmations_total{kind="application",outcome="repeat"} 1`) {
		t.Fatalf("expected confirmation counter in output, got:\n%s", body)
	}
}

func TestMetrics_NilReceiver(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.ObserveConfirmation(application.KindInvitation, "first")
	m.ObserveNotification("sched", nil)
	m.ObserveJob("recording", 1, nil)
	if m.Registry() != nil {
		t.Fatal("expected nil registry")
	}
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 from nil metrics, got %d", rec.Code)
	}
}
