package gateway

import (
	"context"
	"fmt"

	"github.com/anibaldeboni/zero-paper/cropwatch/telemetry"
)

// PinSource reads metrics from the gateway pins they are mapped to.
type PinSource struct {
	client *Client
	pins   map[telemetry.Metric]string
}

// NewPinSource maps each metric to a gateway pin, e.g. temperature -> V0.
func NewPinSource(client *Client, pins map[telemetry.Metric]string) *PinSource {
	copied := make(map[telemetry.Metric]string, len(pins))
	for m, p := range pins {
		copied[m] = p
	}
	return &PinSource{client: client, pins: copied}
}

// Read implements telemetry.Source
func (s *PinSource) Read(ctx context.Context, metric telemetry.Metric) (float64, error) {
	pin, ok := s.pins[metric]
	if !ok {
		return 0, fmt.Errorf("%w: %s", telemetry.ErrUnknownMetric, metric)
	}
	return s.client.ReadPin(ctx, pin)
}

var _ telemetry.Source = (*PinSource)(nil)
