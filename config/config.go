// Package config provides configuration management for the cropwatch service.
// It loads YAML files with fallback to sensible defaults; secrets may be
// supplied through the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/anibaldeboni/zero-paper/cropwatch/pump"
)

// Sources a metric can be routed to
const (
	SourceGateway   = "gateway"
	SourceBME280    = "bme280"
	SourceSimulated = "simulated"
)

// Environment variables that override the file
const (
	EnvGatewayURL   = "CROPWATCH_GATEWAY_URL"
	EnvGatewayToken = "CROPWATCH_GATEWAY_TOKEN"
	EnvMQTTPassword = "CROPWATCH_MQTT_PASSWORD"
)

var (
	ErrUnknownSource   = errors.New("unknown metric source")
	ErrMissingPin      = errors.New("gateway metric has no pin")
	ErrMissingGateway  = errors.New("gateway base_url is required")
	ErrMissingBound    = errors.New("range needs both min and max")
	ErrUnsupportedBME  = errors.New("metric not provided by bme280")
	ErrMissingBounds   = errors.New("simulated metric has no simulation bounds")
	ErrNoMetrics       = errors.New("no metrics configured")
	ErrMissingMQTTHost = errors.New("mqtt broker is required when mqtt is enabled")
)

// AppConfig represents the complete application configuration
type AppConfig struct {
	// HTTP API
	Web WebConfig `yaml:"web"`

	// Pump command queue
	Queue QueueConfig `yaml:"queue"`

	// Telemetry acquisition
	Sensors SensorsConfig `yaml:"sensors"`

	// Virtual-pin gateway
	Gateway GatewayConfig `yaml:"gateway"`

	// Plant profiles and range evaluation
	Evaluation EvaluationConfig `yaml:"evaluation"`

	// Pump name -> gateway pin
	Pumps map[string]string `yaml:"pumps"`

	// Snapshot broadcasting
	MQTT MQTTConfig `yaml:"mqtt"`

	// Timeouts and shutdown configuration
	Timeouts TimeoutConfig `yaml:"timeouts"`

	// File the configuration was read from; empty when defaults are in use
	Path string `yaml:"-"`
}

// WebConfig contains HTTP server configuration
type WebConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// QueueConfig contains queue processing configuration
type QueueConfig struct {
	Workers    int           `yaml:"workers"`
	BufferSize int           `yaml:"buffer_size"`
	Retry      RetryConfig   `yaml:"retry"`
	Circuit    CircuitConfig `yaml:"circuit_breaker"`
}

// RetryConfig contains retry policy configuration
type RetryConfig struct {
	MaxRetries int           `yaml:"max_retries"`
	BaseDelay  time.Duration `yaml:"base_delay"`
	MaxDelay   time.Duration `yaml:"max_delay"`
}

// CircuitConfig contains circuit breaker configuration
type CircuitConfig struct {
	FailureThreshold int           `yaml:"failure_threshold"`
	Timeout          time.Duration `yaml:"timeout"`
}

// SensorsConfig contains acquisition configuration
type SensorsConfig struct {
	ReadInterval       time.Duration           `yaml:"read_interval"`
	AcquisitionTimeout time.Duration           `yaml:"acquisition_timeout"`
	MaxConcurrency     int                     `yaml:"max_concurrency"`
	Metrics            map[string]MetricConfig `yaml:"metrics"`
	BME280             BME280Config            `yaml:"bme280"`
	Simulation         map[string]BoundsConfig `yaml:"simulation"`
}

// MetricConfig routes one metric to a source
type MetricConfig struct {
	Source string `yaml:"source"` // "gateway", "bme280" or "simulated"
	Pin    string `yaml:"pin,omitempty"`
}

// BME280Config contains BME280 hardware sensor configuration
type BME280Config struct {
	I2CAddress uint16 `yaml:"i2c_address"`
	I2CBus     string `yaml:"i2c_bus"`
}

// BoundsConfig is the interval a simulated metric is drawn from
type BoundsConfig struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// GatewayConfig contains the virtual-pin gateway connection
type GatewayConfig struct {
	BaseURL string        `yaml:"base_url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

// EvaluationConfig contains the profile table
type EvaluationConfig struct {
	Tolerance      float64                  `yaml:"tolerance"`
	ActiveProfile  string                   `yaml:"active_profile"`
	DefaultProfile ProfileConfig            `yaml:"default_profile"`
	Profiles       map[string]ProfileConfig `yaml:"profiles"`
}

// ProfileConfig is a plant profile as written in YAML
type ProfileConfig struct {
	Name   string                 `yaml:"name,omitempty"`
	Ranges map[string]RangeConfig `yaml:"ranges"`
}

// RangeConfig uses pointers so a missing bound is detected instead of
// silently becoming zero
type RangeConfig struct {
	Min *float64 `yaml:"min"`
	Max *float64 `yaml:"max"`
}

// MQTTConfig contains the broker connection
type MQTTConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Broker      string        `yaml:"broker"`
	ClientID    string        `yaml:"client_id"`
	Username    string        `yaml:"username"`
	Password    string        `yaml:"password"`
	TopicPrefix string        `yaml:"topic_prefix"`
	QoS         byte          `yaml:"qos"`
	Retained    bool          `yaml:"retained"`
	Timeout     time.Duration `yaml:"timeout"`
}

// TimeoutConfig contains various timeout configurations
type TimeoutConfig struct {
	ShutdownTimeout      time.Duration `yaml:"shutdown_timeout"`
	QueueShutdownTimeout time.Duration `yaml:"queue_shutdown_timeout"`
	WebShutdownTimeout   time.Duration `yaml:"web_shutdown_timeout"`
	ProcessingTimeout    time.Duration `yaml:"processing_timeout"`
}

// searchPaths lists where Load looks for a file, in order
func searchPaths(configPath string) []string {
	return []string{
		configPath,
		"cropwatch.yaml",
		"cropwatch.yml",
		"config/cropwatch.yaml",
		"config/cropwatch.yml",
		"/etc/cropwatch/cropwatch.yaml",
	}
}

// Load reads the first configuration file found, or defaults when there is
// none. A file that cannot be parsed or fails validation is an error.
func Load(configPath string) (*AppConfig, error) {
	configFile := findConfigFile(searchPaths(configPath))

	config := &AppConfig{}
	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configFile, err)
		}
		config.Path = configFile
	}

	applyEnv(config)
	applyDefaults(config)

	if err := config.Validate(); err != nil {
		if configFile != "" {
			return nil, fmt.Errorf("invalid config file %s: %w", configFile, err)
		}
		return nil, err
	}

	return config, nil
}

func findConfigFile(paths []string) string {
	for _, path := range paths {
		if path == "" {
			continue
		}
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// defaultConfig returns a configuration with sensible defaults
func defaultConfig() *AppConfig {
	config := &AppConfig{}
	applyDefaults(config)
	return config
}

func applyEnv(config *AppConfig) {
	if v, ok := os.LookupEnv(EnvGatewayURL); ok {
		config.Gateway.BaseURL = v
	}
	if v, ok := os.LookupEnv(EnvGatewayToken); ok {
		config.Gateway.Token = v
	}
	if v, ok := os.LookupEnv(EnvMQTTPassword); ok {
		config.MQTT.Password = v
	}
}

// applyDefaults fills in missing configuration values with sensible defaults
func applyDefaults(config *AppConfig) {
	// Web defaults
	if config.Web.Port == 0 {
		config.Web.Port = 8080
	}
	if config.Web.ReadTimeout == 0 {
		config.Web.ReadTimeout = 10 * time.Second
	}
	if config.Web.WriteTimeout == 0 {
		config.Web.WriteTimeout = 30 * time.Second
	}
	if config.Web.IdleTimeout == 0 {
		config.Web.IdleTimeout = 120 * time.Second
	}

	// Queue defaults
	if config.Queue.Workers == 0 {
		config.Queue.Workers = 1
	}
	if config.Queue.BufferSize == 0 {
		config.Queue.BufferSize = 32
	}
	if config.Queue.Retry.MaxRetries == 0 {
		config.Queue.Retry.MaxRetries = 3
	}
	if config.Queue.Retry.BaseDelay == 0 {
		config.Queue.Retry.BaseDelay = 1 * time.Second
	}
	if config.Queue.Retry.MaxDelay == 0 {
		config.Queue.Retry.MaxDelay = 30 * time.Second
	}
	if config.Queue.Circuit.FailureThreshold == 0 {
		config.Queue.Circuit.FailureThreshold = 5
	}
	if config.Queue.Circuit.Timeout == 0 {
		config.Queue.Circuit.Timeout = 60 * time.Second
	}

	// Sensor defaults
	if config.Sensors.ReadInterval == 0 {
		config.Sensors.ReadInterval = 30 * time.Second
	}
	if config.Sensors.AcquisitionTimeout == 0 {
		config.Sensors.AcquisitionTimeout = 5 * time.Second
	}
	if len(config.Sensors.Metrics) == 0 {
		config.Sensors.Metrics = map[string]MetricConfig{
			"temperature":   {Pin: "V0"},
			"soil_moisture": {Pin: "V1"},
			"humidity":      {Pin: "V2"},
		}
	}
	for name, m := range config.Sensors.Metrics {
		if m.Source == "" {
			m.Source = SourceSimulated
			if config.Gateway.BaseURL != "" {
				m.Source = SourceGateway
			}
			config.Sensors.Metrics[name] = m
		}
	}
	if config.Sensors.BME280.I2CAddress == 0 {
		config.Sensors.BME280.I2CAddress = 0x76
	}
	if len(config.Sensors.Simulation) == 0 {
		config.Sensors.Simulation = map[string]BoundsConfig{
			"temperature":   {Min: 15, Max: 35},
			"humidity":      {Min: 30, Max: 90},
			"soil_moisture": {Min: 20, Max: 90},
		}
	}

	// Gateway defaults
	if config.Gateway.Timeout == 0 {
		config.Gateway.Timeout = 10 * time.Second
	}

	// Evaluation defaults
	if config.Evaluation.ActiveProfile == "" {
		config.Evaluation.ActiveProfile = "pepper"
	}
	if config.Evaluation.DefaultProfile.Ranges == nil {
		config.Evaluation.DefaultProfile = ProfileConfig{
			Name: "generic",
			Ranges: map[string]RangeConfig{
				"temperature":   bounds(20, 30),
				"humidity":      bounds(50, 80),
				"soil_moisture": bounds(40, 70),
			},
		}
	}
	if config.Evaluation.DefaultProfile.Name == "" {
		config.Evaluation.DefaultProfile.Name = "generic"
	}
	if config.Evaluation.Profiles == nil {
		config.Evaluation.Profiles = defaultProfiles()
	}

	// Pump defaults
	if config.Pumps == nil {
		config.Pumps = pump.DefaultPumps()
	}

	// MQTT defaults
	if config.MQTT.ClientID == "" {
		config.MQTT.ClientID = "cropwatch"
	}
	if config.MQTT.TopicPrefix == "" {
		config.MQTT.TopicPrefix = "cropwatch"
	}
	if config.MQTT.Timeout == 0 {
		config.MQTT.Timeout = 10 * time.Second
	}

	// Timeout defaults
	if config.Timeouts.ShutdownTimeout == 0 {
		config.Timeouts.ShutdownTimeout = 10 * time.Second
	}
	if config.Timeouts.QueueShutdownTimeout == 0 {
		config.Timeouts.QueueShutdownTimeout = 10 * time.Second
	}
	if config.Timeouts.WebShutdownTimeout == 0 {
		config.Timeouts.WebShutdownTimeout = 10 * time.Second
	}
	if config.Timeouts.ProcessingTimeout == 0 {
		config.Timeouts.ProcessingTimeout = 5 * time.Second
	}
}

func defaultProfiles() map[string]ProfileConfig {
	return map[string]ProfileConfig{
		"pepper": {Ranges: map[string]RangeConfig{
			"temperature":   bounds(25, 30),
			"soil_moisture": bounds(50, 70),
			"humidity":      bounds(60, 75),
		}},
		"groundnut": {Ranges: map[string]RangeConfig{
			"temperature":   bounds(20, 28),
			"soil_moisture": bounds(40, 60),
			"humidity":      bounds(50, 70),
		}},
		"tomato": {Ranges: map[string]RangeConfig{
			"temperature":   bounds(22, 28),
			"soil_moisture": bounds(60, 80),
			"humidity":      bounds(65, 80),
		}},
	}
}

func bounds(lo, hi float64) RangeConfig {
	return RangeConfig{Min: &lo, Max: &hi}
}

// GenerateExampleConfig creates an example configuration file
func GenerateExampleConfig(outputPath string) error {
	config := defaultConfig()

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Create directory if it doesn't exist
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", outputPath, err)
	}

	return nil
}
