// Package telemetry acquires named sensor readings from external sources.
// Every requested metric yields a Reading, either a value or an explicit
// absence carrying the reason the fetch failed.
package telemetry

import "sort"

// Metric identifies a scalar quantity being monitored, e.g. "temperature".
type Metric string

// Well-known metrics. The set actually sampled comes from configuration.
const (
	Temperature  Metric = "temperature"
	Humidity     Metric = "humidity"
	SoilMoisture Metric = "soil_moisture"
	Pressure     Metric = "pressure"
)

func (m Metric) String() string {
	return string(m)
}

// SortMetrics returns the metrics in lexical order.
func SortMetrics(metrics []Metric) []Metric {
	out := make([]Metric, len(metrics))
	copy(out, metrics)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
