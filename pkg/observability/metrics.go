package observability

import (
	"context"
	"net/http"

	"github.com/aretw0/compass/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "compass"

// Metrics holds the collectors of one assistant instance.
type Metrics struct {
	registry *prometheus.Registry

	NodeVisits    *prometheus.CounterVec
	NodeErrors    *prometheus.CounterVec
	NodeDuration  *prometheus.HistogramVec
	ToolCalls     *prometheus.CounterVec
	Turns         *prometheus.CounterVec
	ActiveStreams prometheus.Gauge
}

// NewMetrics creates the collectors on a private registry, which also
// carries the Go runtime and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		NodeVisits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "node_visits_total",
			Help:      "Total number of workflow node executions.",
		}, []string{"node"}),
		NodeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "node_errors_total",
			Help:      "Node executions that returned an error.",
		}, []string{"node"}),
		NodeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "node_duration_seconds",
			Help:      "Duration of workflow node executions.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"node"}),
		ToolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Tool executions requested by the agent.",
		}, []string{"tool", "outcome"}),
		Turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_turns_total",
			Help:      "Streamed conversation turns by outcome.",
		}, []string{"outcome"}),
		ActiveStreams: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_streams",
			Help:      "Currently open chat streams.",
		}),
	}
	m.registry.MustRegister(
		m.NodeVisits, m.NodeErrors, m.NodeDuration, m.ToolCalls, m.Turns, m.ActiveStreams,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Hooks returns lifecycle hooks recording node and tool metrics.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) {
			m.NodeVisits.WithLabelValues(e.Node).Inc()
		},
		OnNodeLeave: func(_ context.Context, e *domain.NodeEvent) {
			m.NodeDuration.WithLabelValues(e.Node).Observe(e.Duration.Seconds())
			if e.Err != nil {
				m.NodeErrors.WithLabelValues(e.Node).Inc()
			}
		},
		OnToolReturn: func(_ context.Context, e *domain.ToolEvent) {
			outcome := "ok"
			if e.IsError {
				outcome = "error"
			}
			m.ToolCalls.WithLabelValues(e.ToolName, outcome).Inc()
		},
	}
}

// StreamStarted implements the runner's stream observer.
func (m *Metrics) StreamStarted() {
	m.ActiveStreams.Inc()
}

// StreamFinished implements the runner's stream observer.
func (m *Metrics) StreamFinished(err error) {
	m.ActiveStreams.Dec()
	if err != nil {
		m.Turns.WithLabelValues("error").Inc()
		return
	}
	m.Turns.WithLabelValues("ok").Inc()
}
