// Package metrics exposes Prometheus collectors for acquisition, evaluation,
// pump delivery and the HTTP API.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/anibaldeboni/zero-paper/cropwatch/evaluator"
	"github.com/anibaldeboni/zero-paper/cropwatch/queue"
	"github.com/anibaldeboni/zero-paper/cropwatch/telemetry"
)

const namespace = "cropwatch"

// Outcome labels
const (
	OutcomeOK      = "ok"
	OutcomeAbsent  = "absent"
	OutcomeRetry   = "retry"
	OutcomeFailed  = "failed"
	OutcomeDropped = "dropped"
)

// Metrics holds every collector on a private registry. A nil *Metrics is a
// valid no-op recorder.
type Metrics struct {
	registry *prometheus.Registry

	acquisitions  *prometheus.CounterVec
	verdicts      *prometheus.CounterVec
	cycleDuration prometheus.Histogram
	pumpCommands  *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		acquisitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "acquisitions_total",
			Help:      "Sensor fetches by metric and outcome.",
		}, []string{"metric", "outcome"}),
		verdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verdicts_total",
			Help:      "Range verdicts by metric and kind.",
		}, []string{"metric", "kind"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of one acquisition and evaluation cycle.",
			Buckets:   prometheus.DefBuckets,
		}),
		pumpCommands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pump_commands_total",
			Help:      "Pump command delivery attempts by pump and outcome.",
		}, []string{"pump", "outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Histogram of HTTP request durations by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	m.registry.MustRegister(
		m.acquisitions,
		m.verdicts,
		m.cycleDuration,
		m.pumpCommands,
		m.httpRequests,
		m.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveCycle records the outcome of one monitoring cycle.
func (m *Metrics) ObserveCycle(readings telemetry.Readings, verdicts evaluator.Verdicts, elapsed time.Duration) {
	if m == nil {
		return
	}

	m.cycleDuration.Observe(elapsed.Seconds())
	m.ObserveReadings(readings)
	for metric, v := range verdicts {
		m.verdicts.WithLabelValues(string(metric), v.Kind.String()).Inc()
	}
}

// ObserveReadings counts fetch outcomes per metric.
func (m *Metrics) ObserveReadings(readings telemetry.Readings) {
	if m == nil {
		return
	}

	for metric, r := range readings {
		outcome := OutcomeOK
		if !r.IsPresent() {
			outcome = OutcomeAbsent
		}
		m.acquisitions.WithLabelValues(string(metric), outcome).Inc()
	}
}

// PumpCommand matches queue.ResultHook's shape so it can be plugged into the
// pump queue directly.
func (m *Metrics) PumpCommand(pump string, err error, final bool) {
	if m == nil {
		return
	}

	outcome := OutcomeOK
	switch {
	case err == nil:
	case errors.Is(err, queue.ErrQueueClosed):
		outcome = OutcomeDropped
	case !final:
		outcome = OutcomeRetry
	default:
		outcome = OutcomeFailed
	}
	m.pumpCommands.WithLabelValues(pump, outcome).Inc()
}

// ObserveHTTPRequest records a served request.
func (m *Metrics) ObserveHTTPRequest(route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}

	m.httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}
