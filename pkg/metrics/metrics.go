package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	SourcesInQueue      prometheus.Gauge
	ProbesTotal         *prometheus.CounterVec
	ProbeDuration       *prometheus.HistogramVec
	ConsecutiveFailures prometheus.Gauge
	SchedulerState      prometheus.Gauge
	TransitionsTotal    *prometheus.CounterVec
	AlertsTotal         *prometheus.CounterVec
}

// New registers all metrics with reg. Tests pass a fresh prometheus.NewRegistry().
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		SourcesInQueue: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "slotwatch_sources_in_queue",
				Help: "Number of sources in the poll rotation.",
			},
		),
		ProbesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "slotwatch_probes_total",
				Help: "Total number of probe attempts.",
			},
			[]string{"kind", "status", "error_type"}, // status: success, failure
		),
		ProbeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "slotwatch_probe_duration_seconds",
				Help:    "Duration of probe attempts.",
				Buckets: []float64{0.5, 1, 5, 10, 15, 30, 60, 120},
			},
			[]string{"kind"},
		),
		ConsecutiveFailures: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "slotwatch_consecutive_failures",
				Help: "Current number of consecutive probe failures.",
			},
		),
		SchedulerState: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "slotwatch_scheduler_state",
				Help: "Current scheduler state (0 idle, 1 probing, 2 cooldown, 3 error backoff, 4 degraded).",
			},
		),
		TransitionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "slotwatch_transitions_total",
				Help: "Classified availability transitions.",
			},
			[]string{"transition"},
		),
		AlertsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "slotwatch_alerts_total",
				Help: "Alert delivery outcomes per sink.",
			},
			[]string{"sink", "status"}, // status: delivered, retry, dropped, abandoned
		),
	}
}
