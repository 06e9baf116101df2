package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New()
	m.IncUpdate("message")
	m.IncUpdate("message")
	m.IncUpdate("callback_query")
	m.IncAction(ActionBan)
	m.IncPollError()
	m.IncPanic()
	m.AddDropped(3)
	m.IncQueueFull()
	m.ObserveHandler("moderation", 20*time.Millisecond)

	if got := testutil.ToFloat64(m.Updates.WithLabelValues("message")); got != 2 {
		t.Fatalf("updates{message} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.Actions.WithLabelValues(ActionBan)); got != 1 {
		t.Fatalf("actions{ban} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.PollErrors); got != 1 {
		t.Fatalf("poll errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.DroppedOnShutdown); got != 3 {
		t.Fatalf("dropped = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.QueueFull); got != 1 {
		t.Fatalf("queue full = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.HandlerDuration); got != 1 {
		t.Fatalf("handler duration series = %d, want 1", got)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.IncUpdate("message")
	m.IncAction(ActionWarn)
	m.IncPollError()
	m.IncPanic()
	m.AddDropped(1)
	m.IncQueueFull()
	m.ObserveHandler("admin", time.Second)
	m.RegisterModeratedChats(func() int { return 1 })
	if m.Registry() != nil {
		t.Fatalf("Registry() on nil = non-nil")
	}
}

func TestHandlerServesMetricsAndHealth(t *testing.T) {
	m := New()
	chats := 4
	m.RegisterModeratedChats(func() int { return chats })
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics error = %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if !strings.Contains(string(body), "modguard_moderated_chats 4") {
		t.Fatalf("/metrics missing gauge: %s", body)
	}

	resp, err = http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz error = %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/healthz status = %d", resp.StatusCode)
	}
}
