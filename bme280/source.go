package bme280

import (
	"context"
	"fmt"

	"github.com/anibaldeboni/zero-paper/cropwatch/telemetry"
)

// Metrics lists what a BME280 can answer for.
var Metrics = []telemetry.Metric{telemetry.Humidity, telemetry.Pressure, telemetry.Temperature}

// Source adapts a Reader to telemetry.Source. Every Read performs one
// measurement and picks the requested field.
type Source struct {
	reader Reader
}

// NewSource wraps reader.
func NewSource(reader Reader) *Source {
	return &Source{reader: reader}
}

// Read implements telemetry.Source
func (s *Source) Read(ctx context.Context, metric telemetry.Metric) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m, err := s.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", s.reader.Name(), err)
	}

	switch metric {
	case telemetry.Temperature:
		return m.Temperature, nil
	case telemetry.Humidity:
		return m.Humidity, nil
	case telemetry.Pressure:
		return float64(m.Pressure), nil
	default:
		return 0, fmt.Errorf("%w: %s not provided by %s", telemetry.ErrUnknownMetric, metric, s.reader.Name())
	}
}

var _ telemetry.Source = (*Source)(nil)
