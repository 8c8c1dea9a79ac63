package config

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"periph.io/x/devices/v3/bmxx80"

	"github.com/anibaldeboni/zero-paper/cropwatch/bme280"
	"github.com/anibaldeboni/zero-paper/cropwatch/evaluator"
	"github.com/anibaldeboni/zero-paper/cropwatch/monitor"
	"github.com/anibaldeboni/zero-paper/cropwatch/mqttpub"
	"github.com/anibaldeboni/zero-paper/cropwatch/queue"
	"github.com/anibaldeboni/zero-paper/cropwatch/simulate"
	"github.com/anibaldeboni/zero-paper/cropwatch/telemetry"
	"github.com/anibaldeboni/zero-paper/cropwatch/web"
)

// Validate checks everything that must hold before the service starts.
func (c *AppConfig) Validate() error {
	var errs []error

	if len(c.Sensors.Metrics) == 0 {
		errs = append(errs, ErrNoMetrics)
	}

	for _, metric := range c.Metrics() {
		m := c.Sensors.Metrics[string(metric)]
		switch m.Source {
		case SourceGateway:
			if m.Pin == "" {
				errs = append(errs, fmt.Errorf("%w: %s", ErrMissingPin, metric))
			}
			if c.Gateway.BaseURL == "" {
				errs = append(errs, fmt.Errorf("%w (metric %s)", ErrMissingGateway, metric))
			}
		case SourceBME280:
			if !slices.Contains(bme280.Metrics, metric) {
				errs = append(errs, fmt.Errorf("%w: %s", ErrUnsupportedBME, metric))
			}
		case SourceSimulated:
			if _, ok := c.Sensors.Simulation[string(metric)]; !ok {
				errs = append(errs, fmt.Errorf("%w: %s", ErrMissingBounds, metric))
			}
		default:
			errs = append(errs, fmt.Errorf("%w %q for metric %s", ErrUnknownSource, m.Source, metric))
		}
	}

	if _, err := c.Catalog(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Evaluator(); err != nil {
		errs = append(errs, err)
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		errs = append(errs, ErrMissingMQTTHost)
	}

	return errors.Join(errs...)
}

// Metrics returns every configured metric in sorted order.
func (c *AppConfig) Metrics() []telemetry.Metric {
	metrics := make([]telemetry.Metric, 0, len(c.Sensors.Metrics))
	for name := range c.Sensors.Metrics {
		metrics = append(metrics, telemetry.Metric(name))
	}
	return telemetry.SortMetrics(metrics)
}

// MetricsBySource returns the metrics routed to source.
func (c *AppConfig) MetricsBySource(source string) []telemetry.Metric {
	var metrics []telemetry.Metric
	for _, metric := range c.Metrics() {
		if c.Sensors.Metrics[string(metric)].Source == source {
			metrics = append(metrics, metric)
		}
	}
	return metrics
}

// GatewayPins maps gateway-routed metrics to their pins.
func (c *AppConfig) GatewayPins() map[telemetry.Metric]string {
	pins := make(map[telemetry.Metric]string)
	for _, metric := range c.MetricsBySource(SourceGateway) {
		pins[metric] = c.Sensors.Metrics[string(metric)].Pin
	}
	return pins
}

// Catalog builds the validated profile catalog.
func (c *AppConfig) Catalog() (*evaluator.Catalog, error) {
	var errs []error

	fallback, err := toProfile(c.Evaluation.DefaultProfile.Name, c.Evaluation.DefaultProfile)
	if err != nil {
		errs = append(errs, err)
	}

	keys := make([]string, 0, len(c.Evaluation.Profiles))
	for k := range c.Evaluation.Profiles {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	profiles := make(map[string]evaluator.Profile, len(keys))
	for _, k := range keys {
		p, err := toProfile(k, c.Evaluation.Profiles[k])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		profiles[k] = p
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return evaluator.NewCatalog(profiles, fallback)
}

func toProfile(key string, pc ProfileConfig) (evaluator.Profile, error) {
	name := pc.Name
	if name == "" {
		name = key
	}

	p := evaluator.Profile{Name: name, Ranges: make(map[telemetry.Metric]evaluator.Range, len(pc.Ranges))}
	for metric, rc := range pc.Ranges {
		if rc.Min == nil || rc.Max == nil {
			r := evaluator.Range{}
			if rc.Min != nil {
				r.Min = *rc.Min
			}
			if rc.Max != nil {
				r.Max = *rc.Max
			}
			return evaluator.Profile{}, &evaluator.ConfigurationError{
				Profile: name,
				Metric:  telemetry.Metric(metric),
				Range:   r,
				Err:     ErrMissingBound,
			}
		}
		p.Ranges[telemetry.Metric(metric)] = evaluator.Range{Min: *rc.Min, Max: *rc.Max}
	}
	return p, nil
}

// Evaluator builds the range evaluator with the configured tolerance.
func (c *AppConfig) Evaluator() (*evaluator.Evaluator, error) {
	return evaluator.New(c.Evaluation.Tolerance)
}

// AcquirerConfig converts config to telemetry.AcquirerConfig
func (c *AppConfig) AcquirerConfig() telemetry.AcquirerConfig {
	return telemetry.AcquirerConfig{
		Timeout:        c.Sensors.AcquisitionTimeout,
		MaxConcurrency: c.Sensors.MaxConcurrency,
	}
}

// MonitorConfig converts config to monitor.Config
func (c *AppConfig) MonitorConfig() monitor.Config {
	return monitor.Config{
		Interval:      c.Sensors.ReadInterval,
		Metrics:       c.Metrics(),
		ActiveProfile: c.Evaluation.ActiveProfile,
	}
}

// WebConfig converts config to web.Config
func (c *AppConfig) WebConfig() *web.Config {
	return &web.Config{
		Port:            c.Web.Port,
		ReadTimeout:     c.Web.ReadTimeout,
		WriteTimeout:    c.Web.WriteTimeout,
		IdleTimeout:     c.Web.IdleTimeout,
		ShutdownTimeout: c.Timeouts.WebShutdownTimeout,
	}
}

// QueueConfig converts config to queue.QueueConfig
func (c *AppConfig) QueueConfig() queue.QueueConfig {
	return queue.QueueConfig{
		Workers:           c.Queue.Workers,
		BufferSize:        c.Queue.BufferSize,
		ShutdownTimeout:   c.Timeouts.QueueShutdownTimeout,
		ProcessingTimeout: c.Timeouts.ProcessingTimeout,
		RetryPolicy: queue.RetryPolicy{
			MaxRetries: c.Queue.Retry.MaxRetries,
			BaseDelay:  c.Queue.Retry.BaseDelay,
			MaxDelay:   c.Queue.Retry.MaxDelay,
		},
		CircuitBreakerConfig: queue.CircuitBreakerConfig{
			FailureThreshold: c.Queue.Circuit.FailureThreshold,
			Timeout:          c.Queue.Circuit.Timeout,
		},
	}
}

// BME280Config converts config to bme280.Config
func (c *AppConfig) BME280Config() *bme280.Config {
	return &bme280.Config{
		Address: c.Sensors.BME280.I2CAddress,
		BusName: c.Sensors.BME280.I2CBus,
		Options: &bmxx80.DefaultOpts,
	}
}

// SimulatedConfig converts config to simulate.Config
func (c *AppConfig) SimulatedConfig() *simulate.Config {
	cfg := &simulate.Config{Metrics: make(map[telemetry.Metric]simulate.Bounds, len(c.Sensors.Simulation))}
	for name, b := range c.Sensors.Simulation {
		cfg.Metrics[telemetry.Metric(name)] = simulate.Bounds{Min: b.Min, Max: b.Max}
	}
	return cfg
}

// MQTTConfig converts config to mqttpub.Config
func (c *AppConfig) MQTTConfig() mqttpub.Config {
	return mqttpub.Config{
		Broker:         c.MQTT.Broker,
		ClientID:       c.MQTT.ClientID,
		Username:       c.MQTT.Username,
		Password:       c.MQTT.Password,
		TopicPrefix:    c.MQTT.TopicPrefix,
		QoS:            c.MQTT.QoS,
		Retained:       c.MQTT.Retained,
		ConnectTimeout: c.MQTT.Timeout,
	}
}
