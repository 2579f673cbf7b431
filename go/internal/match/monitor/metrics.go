package monitor

import (
	"context"
	"net/http"
	"time"

	"github.com/mcdev12/spinrace/go/internal/match"
	"github.com/mcdev12/spinrace/go/internal/match/events"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector defines the interface for collecting match metrics
type MetricsCollector interface {
	RecordTransition(change match.StateChange)
	RecordTimeRemaining(seconds int)
	RecordEventSent(code events.EventCode, success bool, duration time.Duration)
	RecordEventReceived(code events.EventCode, success bool, duration time.Duration)
}

// NoOpMetricsCollector is a no-op implementation for when metrics aren't needed
type NoOpMetricsCollector struct{}

func (NoOpMetricsCollector) RecordTransition(change match.StateChange)                 {}
func (NoOpMetricsCollector) RecordTimeRemaining(seconds int)                           {}
func (NoOpMetricsCollector) RecordEventSent(events.EventCode, bool, time.Duration)     {}
func (NoOpMetricsCollector) RecordEventReceived(events.EventCode, bool, time.Duration) {}

// PrometheusMetrics implements MetricsCollector on its own registry
type PrometheusMetrics struct {
	registry      *prometheus.Registry
	state         prometheus.Gauge
	timeRemaining prometheus.Gauge
	transitions   *prometheus.CounterVec
	eventsSent    *prometheus.CounterVec
	eventsRecv    *prometheus.CounterVec
	eventDuration *prometheus.HistogramVec
}

func NewPrometheusMetrics() *PrometheusMetrics {
	m := &PrometheusMetrics{
		registry: prometheus.NewRegistry(),
		state: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "match_state",
			Help: "Current game state (0 None, 1 GameReady, 2 GameStart, 3 GamePlaying, 4 GameFinish)",
		}),
		timeRemaining: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "match_time_remaining_seconds",
			Help: "Seconds left on the match timer",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "match_transitions_total",
			Help: "Accepted state transitions",
		}, []string{"state", "origin"}),
		eventsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "match_relay_events_sent_total",
			Help: "Events published to peers",
		}, []string{"code", "status"}),
		eventsRecv: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "match_relay_events_received_total",
			Help: "Events received from peers",
		}, []string{"code", "status"}),
		eventDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "match_relay_event_duration_seconds",
			Help:    "Time spent publishing or handling a relay event",
			Buckets: prometheus.DefBuckets,
		}, []string{"code", "direction"}),
	}

	m.registry.MustRegister(m.state, m.timeRemaining, m.transitions, m.eventsSent, m.eventsRecv, m.eventDuration)
	return m
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

func (m *PrometheusMetrics) RecordTransition(change match.StateChange) {
	m.state.Set(float64(change.State))
	m.transitions.WithLabelValues(change.State.String(), string(change.Origin)).Inc()
}

func (m *PrometheusMetrics) RecordTimeRemaining(seconds int) {
	m.timeRemaining.Set(float64(seconds))
}

func (m *PrometheusMetrics) RecordEventSent(code events.EventCode, success bool, duration time.Duration) {
	m.eventsSent.WithLabelValues(string(code), status(success)).Inc()
	m.eventDuration.WithLabelValues(string(code), "sent").Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordEventReceived(code events.EventCode, success bool, duration time.Duration) {
	m.eventsRecv.WithLabelValues(string(code), status(success)).Inc()
	m.eventDuration.WithLabelValues(string(code), "received").Observe(duration.Seconds())
}

// Registry exposes the underlying registry, mostly for tests
func (m *PrometheusMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus text format
func (m *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// MetricRelay wraps a match.Relay with metrics collection
type MetricRelay struct {
	relay   match.Relay
	metrics MetricsCollector
}

func NewMetricRelay(relay match.Relay, metrics MetricsCollector) *MetricRelay {
	return &MetricRelay{relay: relay, metrics: metrics}
}

func (r *MetricRelay) Send(ctx context.Context, code events.EventCode, payload any) error {
	start := time.Now()
	err := r.relay.Send(ctx, code, payload)
	r.metrics.RecordEventSent(code, err == nil, time.Since(start))

	if p, ok := payload.(events.GameTimePayload); ok && err == nil {
		r.metrics.RecordTimeRemaining(p.TimeRemainingSec)
	}
	return err
}

// EventHandler matches relay.Handler
type EventHandler interface {
	HandleEvent(ctx context.Context, code events.EventCode, payload []byte, senderID string) error
}

// MetricHandler wraps an EventHandler with metrics collection
type MetricHandler struct {
	handler EventHandler
	metrics MetricsCollector
}

func NewMetricHandler(handler EventHandler, metrics MetricsCollector) *MetricHandler {
	return &MetricHandler{handler: handler, metrics: metrics}
}

func (h *MetricHandler) HandleEvent(ctx context.Context, code events.EventCode, payload []byte, senderID string) error {
	start := time.Now()
	err := h.handler.HandleEvent(ctx, code, payload, senderID)
	h.metrics.RecordEventReceived(code, err == nil, time.Since(start))
	return err
}

// RecordTransitions feeds state-change notifications into the collector until ctx ends or changes closes
func RecordTransitions(ctx context.Context, changes <-chan match.StateChange, metrics MetricsCollector) {
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-changes:
			if !ok {
				return
			}
			metrics.RecordTransition(change)
			metrics.RecordTimeRemaining(change.TimeRemaining)
		}
	}
}
