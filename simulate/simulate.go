// Package simulate provides a random telemetry source for development and
// demos without hardware or a gateway.
package simulate

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/anibaldeboni/zero-paper/cropwatch/telemetry"
)

var ErrClosed = errors.New("simulated source is closed")

// Bounds is the interval a simulated metric is drawn from.
type Bounds struct {
	Min float64
	Max float64
}

// Config holds the bounds of each simulated metric.
type Config struct {
	Metrics map[telemetry.Metric]Bounds
}

// DefaultConfig returns bounds that straddle the stock plant profiles so
// every verdict kind shows up.
func DefaultConfig() *Config {
	return &Config{
		Metrics: map[telemetry.Metric]Bounds{
			telemetry.Temperature:  {Min: 15.0, Max: 35.0},
			telemetry.Humidity:     {Min: 30.0, Max: 90.0},
			telemetry.SoilMoisture: {Min: 20.0, Max: 90.0},
		},
	}
}

// Source draws uniform values within the configured bounds.
type Source struct {
	config *Config
	rand   *rand.Rand
	mu     sync.Mutex
	closed bool
}

// New creates a simulated source seeded from the clock.
func New(config *Config) *Source {
	return NewWithSeed(config, time.Now().UnixNano())
}

// NewWithSeed creates a deterministic simulated source.
func NewWithSeed(config *Config, seed int64) *Source {
	if config == nil {
		config = DefaultConfig()
	}
	return &Source{
		config: config,
		rand:   rand.New(rand.NewSource(seed)),
	}
}

// Read implements telemetry.Source
func (s *Source) Read(ctx context.Context, metric telemetry.Metric) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrClosed
	}

	b, ok := s.config.Metrics[metric]
	if !ok {
		return 0, fmt.Errorf("%w: %s", telemetry.ErrUnknownMetric, metric)
	}

	return b.Min + s.rand.Float64()*(b.Max-b.Min), nil
}

// Metrics returns the simulated metrics in lexical order.
func (s *Source) Metrics() []telemetry.Metric {
	out := make([]telemetry.Metric, 0, len(s.config.Metrics))
	for m := range s.config.Metrics {
		out = append(out, m)
	}
	return telemetry.SortMetrics(out)
}

// Close makes every further read fail.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

var _ telemetry.Source = (*Source)(nil)
