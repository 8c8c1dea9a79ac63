package telemetry

import (
	"context"
	"errors"
	"fmt"
)

var ErrUnknownMetric = errors.New("no source configured for metric")

// Source performs a single fetch of one metric from an external collaborator.
type Source interface {
	Read(ctx context.Context, metric Metric) (float64, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context, metric Metric) (float64, error)

func (f SourceFunc) Read(ctx context.Context, metric Metric) (float64, error) {
	return f(ctx, metric)
}

// Mux routes each metric to the source responsible for it.
type Mux struct {
	routes map[Metric]Source
}

// NewMux creates an empty router.
func NewMux() *Mux {
	return &Mux{routes: make(map[Metric]Source)}
}

// Handle routes metric to src, replacing any previous route.
func (m *Mux) Handle(metric Metric, src Source) {
	m.routes[metric] = src
}

// Metrics returns the routed metrics in lexical order.
func (m *Mux) Metrics() []Metric {
	out := make([]Metric, 0, len(m.routes))
	for metric := range m.routes {
		out = append(out, metric)
	}
	return SortMetrics(out)
}

func (m *Mux) Read(ctx context.Context, metric Metric) (float64, error) {
	src, ok := m.routes[metric]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownMetric, metric)
	}
	return src.Read(ctx, metric)
}

var _ Source = (*Mux)(nil)
