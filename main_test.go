package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/anibaldeboni/zero-paper/cropwatch/bme280"
	"github.com/anibaldeboni/zero-paper/cropwatch/config"
	"github.com/anibaldeboni/zero-paper/cropwatch/gateway"
	"github.com/anibaldeboni/zero-paper/cropwatch/metrics"
	"github.com/anibaldeboni/zero-paper/cropwatch/pump"
	"github.com/anibaldeboni/zero-paper/cropwatch/queue"
	"github.com/anibaldeboni/zero-paper/cropwatch/telemetry"
)

type stubReader struct{}

func (stubReader) Read() (bme280.Measurement, error) {
	return bme280.Measurement{Temperature: 24.5, Humidity: 61, Pressure: 101325}, nil
}

func (stubReader) Name() string { return "stub" }

func loadDefaults(t *testing.T) *config.AppConfig {
	t.Helper()
	t.Setenv(config.EnvGatewayURL, "")
	cfg, err := config.Load(t.TempDir() + "/missing.yaml")
	if err != nil {
		t.Fatalf("config.Load error: %v", err)
	}
	return cfg
}

func TestBuildSourceSimulated(t *testing.T) {
	cfg := loadDefaults(t)

	src, closeFn, err := buildSource(cfg, nil)
	if err != nil {
		t.Fatalf("buildSource error: %v", err)
	}
	defer closeFn()

	readings := telemetry.NewAcquirer(src, cfg.AcquirerConfig()).Acquire(context.Background(), cfg.Metrics())
	for _, metric := range cfg.Metrics() {
		if !readings[metric].IsPresent() {
			t.Errorf("%s should be simulated, got %v", metric, readings[metric])
		}
	}
}

func TestBuildSourceMixed(t *testing.T) {
	gw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`["48.5"]`))
	}))
	defer gw.Close()

	original := newSensor
	newSensor = func(*bme280.Config) (bme280.Reader, func() error, error) {
		return stubReader{}, func() error { return nil }, nil
	}
	defer func() { newSensor = original }()

	cfg := loadDefaults(t)
	cfg.Gateway.BaseURL = gw.URL
	cfg.Sensors.Metrics = map[string]config.MetricConfig{
		"temperature":   {Source: config.SourceBME280},
		"humidity":      {Source: config.SourceBME280},
		"soil_moisture": {Source: config.SourceGateway, Pin: "V1"},
	}

	client, err := gateway.NewClient(gw.URL, "token")
	if err != nil {
		t.Fatal(err)
	}

	src, closeFn, err := buildSource(cfg, client)
	if err != nil {
		t.Fatalf("buildSource error: %v", err)
	}
	defer closeFn()

	readings := telemetry.NewAcquirer(src, cfg.AcquirerConfig()).Acquire(context.Background(), cfg.Metrics())

	want := map[telemetry.Metric]float64{
		telemetry.Temperature:  24.5,
		telemetry.Humidity:     61,
		telemetry.SoilMoisture: 48.5,
	}
	for metric, v := range want {
		if got, ok := readings[metric].Value(); !ok || got != v {
			t.Errorf("%s = %v (present %v), want %v", metric, got, ok, v)
		}
	}
}

func TestBuildSourceGatewayWithoutClient(t *testing.T) {
	cfg := loadDefaults(t)
	cfg.Sensors.Metrics = map[string]config.MetricConfig{
		"temperature": {Source: config.SourceGateway, Pin: "V0"},
	}

	if _, _, err := buildSource(cfg, nil); !errors.Is(err, errNoGatewayClient) {
		t.Errorf("buildSource error = %v, want errNoGatewayClient", err)
	}
}

func TestBuildSourceSensorFailure(t *testing.T) {
	original := newSensor
	sensorErr := errors.New("no i2c bus")
	newSensor = func(*bme280.Config) (bme280.Reader, func() error, error) {
		return nil, nil, sensorErr
	}
	defer func() { newSensor = original }()

	cfg := loadDefaults(t)
	cfg.Sensors.Metrics = map[string]config.MetricConfig{
		"temperature": {Source: config.SourceBME280},
	}

	if _, _, err := buildSource(cfg, nil); !errors.Is(err, sensorErr) {
		t.Errorf("buildSource error = %v, want %v", err, sensorErr)
	}
}

func TestPumpQueueWritesToGateway(t *testing.T) {
	writes := make(chan string, 1)
	gw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writes <- r.URL.Path + "?" + r.URL.Query().Get("pin") + "=" + r.URL.Query().Get("value")
	}))
	defer gw.Close()

	client, err := gateway.NewClient(gw.URL, "token")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	q := newPumpQueue(ctx, queue.DefaultQueueConfig(), client, metrics.New())
	go q.Start()
	defer func() {
		cancel()
		<-q.Done()
	}()

	controller, err := pump.NewController(pump.DefaultPumps(), q)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := controller.Activate("irrigation"); err != nil {
		t.Fatalf("Activate error: %v", err)
	}

	select {
	case got := <-writes:
		if !strings.HasSuffix(got, "update?V4=1") {
			t.Errorf("gateway request = %q, want update of V4 to 1", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pump command never reached the gateway")
	}
}

func TestBuildInfoString(t *testing.T) {
	info := BuildInfo{Version: "v1.2.0", Commit: "abc1234", Date: "2024-06-01", GoVersion: "go1.24", Module: "cropwatch"}
	s := info.String()
	for _, want := range []string{"Version: v1.2.0", "Commit: abc1234", "Go Version: go1.24"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() missing %q", want)
		}
	}
	if got := shortCommit("0123456789abcdef"); got != "0123456" {
		t.Errorf("shortCommit = %q", got)
	}
}
