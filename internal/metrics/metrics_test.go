package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"lyrica/pkg/music"
)

func TestObserve(t *testing.T) {
	m := New()

	m.ObserveAttempt(music.FetchAttempt{Provider: "LRCLIB", Success: true, Elapsed: 200 * time.Millisecond})
	m.ObserveAttempt(music.FetchAttempt{Provider: "LRCLIB", Reason: music.ReasonTimeout})
	m.ObserveAttempt(music.FetchAttempt{Provider: "Genius", Reason: music.ReasonNotConfigured})
	m.ObserveCache("hit")
	m.ObserveCache("hit")
	m.ObserveRun("race", "success")

	if got := testutil.ToFloat64(m.attempts.WithLabelValues("LRCLIB", "success")); got != 1 {
		t.Errorf("expected 1 success, got %v", got)
	}
	if got := testutil.ToFloat64(m.attempts.WithLabelValues("LRCLIB", "timeout")); got != 1 {
		t.Errorf("expected 1 timeout, got %v", got)
	}
	if got := testutil.ToFloat64(m.attempts.WithLabelValues("Genius", "not_configured")); got != 1 {
		t.Errorf("expected 1 not_configured, got %v", got)
	}
	if got := testutil.ToFloat64(m.cache.WithLabelValues("hit")); got != 2 {
		t.Errorf("expected 2 hits, got %v", got)
	}
	if got := testutil.ToFloat64(m.runs.WithLabelValues("race", "success")); got != 1 {
		t.Errorf("expected 1 run, got %v", got)
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveCache("miss")

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `lyrica_cache_events_total{event="miss"} 1`) {
		t.Errorf("metrics output missing cache counter:\n%s", body)
	}
}
