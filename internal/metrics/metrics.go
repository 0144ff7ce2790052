package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Mention outcomes recorded by the assistant relay.
const (
	MentionScheduled = "scheduled"
	MentionAnswered  = "answered"
	MentionFailed    = "failed"
	MentionThrottled = "throttled"
	MentionSaturated = "saturated"
)

// Metrics holds the relay's Prometheus collectors. A nil *Metrics is valid and
// records nothing, so components can be built without instrumentation in tests.
type Metrics struct {
	registry *prometheus.Registry

	connections     prometheus.Gauge
	rooms           prometheus.Gauge
	events          *prometheus.CounterVec
	dropped         prometheus.Counter
	mentions        *prometheus.CounterVec
	mentionDuration prometheus.Histogram
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mindora",
			Subsystem: "relay",
			Name:      "connections",
			Help:      "Currently connected websocket clients.",
		}),
		rooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mindora",
			Subsystem: "relay",
			Name:      "rooms",
			Help:      "Rooms with at least one member.",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mindora",
			Subsystem: "relay",
			Name:      "events_total",
			Help:      "Inbound events processed by the hub.",
		}, []string{"event"}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mindora",
			Subsystem: "relay",
			Name:      "dropped_total",
			Help:      "Outbound events dropped because a client buffer was full.",
		}),
		mentions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mindora",
			Subsystem: "assistant",
			Name:      "mentions_total",
			Help:      "Assistant mentions by outcome.",
		}, []string{"outcome"}),
		mentionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mindora",
			Subsystem: "assistant",
			Name:      "answer_duration_seconds",
			Help:      "Latency of answer requests.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.connections,
		m.rooms,
		m.events,
		m.dropped,
		m.mentions,
		m.mentionDuration,
	)
	return m
}

// Handler exposes the registry at /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ClientConnected() {
	if m != nil {
		m.connections.Inc()
	}
}

func (m *Metrics) ClientDisconnected() {
	if m != nil {
		m.connections.Dec()
	}
}

func (m *Metrics) SetRooms(n int) {
	if m != nil {
		m.rooms.Set(float64(n))
	}
}

func (m *Metrics) EventHandled(event string) {
	if m != nil {
		m.events.WithLabelValues(event).Inc()
	}
}

func (m *Metrics) EventDropped() {
	if m != nil {
		m.dropped.Inc()
	}
}

func (m *Metrics) Mention(outcome string) {
	if m != nil {
		m.mentions.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) ObserveAnswer(d time.Duration) {
	if m != nil {
		m.mentionDuration.Observe(d.Seconds())
	}
}
