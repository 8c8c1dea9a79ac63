package web

import (
	"context"
	"net/http"
	"time"

	"github.com/anibaldeboni/zero-paper/cropwatch/evaluator"
	"github.com/anibaldeboni/zero-paper/cropwatch/monitor"
	"github.com/anibaldeboni/zero-paper/cropwatch/queue"
	"github.com/anibaldeboni/zero-paper/cropwatch/telemetry"
)

// Monitor is what the API needs from the monitoring loop. *monitor.Monitor
// satisfies it.
type Monitor interface {
	Cycle(ctx context.Context, profileKey string) monitor.Snapshot
	Readings(ctx context.Context) telemetry.Readings
	Metrics() []telemetry.Metric
	ActiveProfile() string
	Catalog() *evaluator.Catalog
}

// PumpController queues pump activations. *pump.Controller satisfies it.
type PumpController interface {
	Activate(name string) (string, error)
	Pumps() []string
}

// QueueStatsProvider define a interface para obter estatísticas da fila
type QueueStatsProvider interface {
	Stats() queue.QueueStats
}

// RequestObserver records served requests. *metrics.Metrics satisfies it.
type RequestObserver interface {
	ObserveHTTPRequest(route string, status int, elapsed time.Duration)
	Handler() http.Handler
}

// ReadingsResponse represents the JSON response for GET /readings
type ReadingsResponse struct {
	Timestamp time.Time          `json:"timestamp"`
	Readings  telemetry.Readings `json:"readings"`
}

// EvaluationResponse represents the JSON response for GET /evaluation
type EvaluationResponse struct {
	Timestamp time.Time          `json:"timestamp"`
	Requested string             `json:"requested"`
	Profile   evaluator.Profile  `json:"profile"`
	Fallback  bool               `json:"fallback"`
	Readings  telemetry.Readings `json:"readings"`
	Verdicts  evaluator.Verdicts `json:"verdicts"`
}

// ProfilesResponse represents the JSON response for GET /profiles
type ProfilesResponse struct {
	Active   string                       `json:"active"`
	Default  evaluator.Profile            `json:"default"`
	Profiles map[string]evaluator.Profile `json:"profiles"`
}

// PumpResponse is returned once a pump activation is queued
type PumpResponse struct {
	ID        string    `json:"id"`
	Pump      string    `json:"pump"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorResponse represents the JSON response for errors
type ErrorResponse struct {
	Error string    `json:"error"`
	Code  int       `json:"code"`
	Time  time.Time `json:"timestamp"`
}

// loggingResponseWriter wraps http.ResponseWriter to capture status codes
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}
