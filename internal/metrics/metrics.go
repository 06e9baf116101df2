// Package metrics provides Prometheus instrumentation for the moderation bot:
// counters for update intake and moderation actions, a gauge for the
// moderated chat set, and a histogram of handler latency. All methods are
// safe on a nil *Metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Moderation action labels.
const (
	ActionFloodDelete   = "flood_delete"
	ActionLengthDelete  = "length_delete"
	ActionKeywordDelete = "keyword_delete"
	ActionWarn          = "warn"
	ActionBan           = "ban"
	ActionBanSkipped    = "ban_skipped"
	ActionBanFailed     = "ban_failed"
)

type Metrics struct {
	registry *prometheus.Registry

	Updates           *prometheus.CounterVec
	PollErrors        prometheus.Counter
	Actions           *prometheus.CounterVec
	HandlerPanics     prometheus.Counter
	HandlerDuration   *prometheus.HistogramVec
	DroppedOnShutdown prometheus.Counter
	QueueFull         prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		// Updates counts received updates, labeled by kind.
		Updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "modguard_updates_total",
			Help: "Total number of updates received from getUpdates",
		}, []string{"kind"}),

		PollErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "modguard_poll_errors_total",
			Help: "Total number of failed getUpdates calls",
		}),

		Actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "modguard_moderation_actions_total",
			Help: "Total number of moderation actions taken",
		}, []string{"action"}),

		HandlerPanics: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "modguard_handler_panics_total",
			Help: "Total number of recovered handler panics",
		}),

		// HandlerDuration records handler latency, labeled by route: "admin",
		// "callback" or "moderation".
		HandlerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "modguard_handler_duration_seconds",
			Help:    "Update handler latency in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"route"}),

		DroppedOnShutdown: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "modguard_dispatch_dropped_total",
			Help: "Total number of queued updates dropped at shutdown",
		}),

		// QueueFull counts intake stalls on a full dispatch queue.
		QueueFull: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "modguard_dispatch_queue_full_total",
			Help: "Total number of times intake waited on a full dispatch queue",
		}),
	}
	m.registry.MustRegister(
		m.Updates,
		m.PollErrors,
		m.Actions,
		m.HandlerPanics,
		m.HandlerDuration,
		m.DroppedOnShutdown,
		m.QueueFull,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// RegisterModeratedChats exposes modguard_moderated_chats, read from count on
// every scrape.
func (m *Metrics) RegisterModeratedChats(count func() int) {
	if m == nil || count == nil {
		return
	}
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "modguard_moderated_chats",
		Help: "Current number of moderated chats",
	}, func() float64 { return float64(count()) }))
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) IncUpdate(kind string) {
	if m == nil {
		return
	}
	m.Updates.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncPollError() {
	if m == nil {
		return
	}
	m.PollErrors.Inc()
}

func (m *Metrics) IncAction(action string) {
	if m == nil {
		return
	}
	m.Actions.WithLabelValues(action).Inc()
}

func (m *Metrics) IncPanic() {
	if m == nil {
		return
	}
	m.HandlerPanics.Inc()
}

func (m *Metrics) AddDropped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.DroppedOnShutdown.Add(float64(n))
}

func (m *Metrics) IncQueueFull() {
	if m == nil {
		return
	}
	m.QueueFull.Inc()
}

func (m *Metrics) ObserveHandler(route string, d time.Duration) {
	if m == nil {
		return
	}
	m.HandlerDuration.WithLabelValues(route).Observe(d.Seconds())
}

// Handler serves /metrics for this instance and a plain /healthz probe.
func (m *Metrics) Handler() http.Handler {
	mux := http.NewServeMux()
	if m != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}
