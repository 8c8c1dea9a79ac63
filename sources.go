package main

import (
	"errors"
	"fmt"
	"log"

	"github.com/anibaldeboni/zero-paper/cropwatch/bme280"
	"github.com/anibaldeboni/zero-paper/cropwatch/config"
	"github.com/anibaldeboni/zero-paper/cropwatch/gateway"
	"github.com/anibaldeboni/zero-paper/cropwatch/simulate"
	"github.com/anibaldeboni/zero-paper/cropwatch/telemetry"
)

var errNoGatewayClient = errors.New("gateway metrics configured without a gateway client")

// newSensor is replaced in tests; the real one needs an I2C bus
var newSensor = func(cfg *bme280.Config) (bme280.Reader, func() error, error) {
	sensor, err := bme280.NewSensor(cfg)
	if err != nil {
		return nil, nil, err
	}
	return sensor, sensor.Close, nil
}

// buildSource routes every configured metric to its source. The returned
// function releases hardware and simulators.
func buildSource(cfg *config.AppConfig, gw *gateway.Client) (telemetry.Source, func(), error) {
	mux := telemetry.NewMux()
	var closers []func() error

	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				log.Printf("Error closing source: %v", err)
			}
		}
	}

	if pins := cfg.GatewayPins(); len(pins) > 0 {
		if gw == nil {
			return nil, nil, errNoGatewayClient
		}
		src := gateway.NewPinSource(gw, pins)
		for metric := range pins {
			mux.Handle(metric, src)
		}
		log.Printf("Reading %v from gateway pins", telemetry.SortMetrics(keys(pins)))
	}

	if metrics := cfg.MetricsBySource(config.SourceBME280); len(metrics) > 0 {
		reader, closeFn, err := newSensor(cfg.BME280Config())
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("failed to initialize BME280 sensor: %w", err)
		}
		closers = append(closers, closeFn)

		src := bme280.NewSource(reader)
		for _, metric := range metrics {
			mux.Handle(metric, src)
		}
		log.Printf("Reading %v from %s", metrics, reader.Name())
	}

	if metrics := cfg.MetricsBySource(config.SourceSimulated); len(metrics) > 0 {
		sim := simulate.New(cfg.SimulatedConfig())
		closers = append(closers, sim.Close)
		for _, metric := range metrics {
			mux.Handle(metric, sim)
		}
		log.Printf("Using simulated values for %v", metrics)
	}

	return mux, closeAll, nil
}

func keys(pins map[telemetry.Metric]string) []telemetry.Metric {
	out := make([]telemetry.Metric, 0, len(pins))
	for m := range pins {
		out = append(out, m)
	}
	return out
}
