// Package metrics defines the Prometheus collectors used by the server and
// the recorder and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the platform.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	AggregationDuration  *prometheus.HistogramVec
	AggregationFailures  *prometheus.CounterVec
	SnapshotsTotal       *prometheus.CounterVec
	PagesRenderedTotal   *prometheus.CounterVec
	ChatEventsTotal      *prometheus.CounterVec
	EventsDroppedTotal   prometheus.Counter
	BreakerState         *prometheus.GaugeVec
	RateLimitedTotal     *prometheus.CounterVec
}

// New creates all collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		AggregationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "analytics_query_duration_seconds",
				Help:    "Latency of each analytics aggregate query, by snapshot field.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"field"},
		),
		AggregationFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "analytics_query_failures_total",
				Help: "Analytics aggregate queries that returned an error, by snapshot field.",
			},
			[]string{"field"},
		),
		SnapshotsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "analytics_snapshots_total",
				Help: "Analytics snapshots computed, by outcome (ok, error).",
			},
			[]string{"outcome"},
		),
		PagesRenderedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pages_rendered_total",
				Help: "HTML views rendered, by page.",
			},
			[]string{"page"},
		),
		ChatEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chat_events_total",
				Help: "Chat events handled by the recorder, by event type and status.",
			},
			[]string{"type", "status"},
		),
		EventsDroppedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "chat_events_dropped_total",
				Help: "Chat events dropped by the intake collector because its buffer was full.",
			},
		),
		BreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state by name (0 closed, 1 open, 2 half-open).",
			},
			[]string{"name"},
		),
		RateLimitedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_rate_limited_total",
				Help: "Requests rejected by the rate limiter, by route.",
			},
			[]string{"path"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.AggregationDuration,
		m.AggregationFailures,
		m.SnapshotsTotal,
		m.PagesRenderedTotal,
		m.ChatEventsTotal,
		m.EventsDroppedTotal,
		m.BreakerState,
		m.RateLimitedTotal,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler for g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
