package bme280

import (
	"context"
	"errors"
	"testing"

	"github.com/anibaldeboni/zero-paper/cropwatch/telemetry"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Address != 0x76 {
		t.Errorf("Expected default address 0x76, got 0x%02X", config.Address)
	}

	if config.BusName != "" {
		t.Errorf("Expected empty bus name, got %s", config.BusName)
	}

	if config.Options == nil {
		t.Error("Expected non-nil options")
	}
}

func TestMeasurementString(t *testing.T) {
	measurement := &Measurement{
		Temperature: 25.5,
		Humidity:    60.0,
		Pressure:    101325,
	}

	expected := "Temperature: 25.50°C, Humidity: 60.00%, Pressure: 101325 Pa"
	if result := measurement.String(); result != expected {
		t.Errorf("Expected %q, got %q", expected, result)
	}
}

func TestClosedSensorRead(t *testing.T) {
	s := &Sensor{}
	if _, err := s.Read(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Expected ErrNotInitialized, got %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Expected closing an empty sensor to succeed, got %v", err)
	}
}

// Mock para testar sem hardware real
type mockReader struct {
	measurement Measurement
	err         error
	reads       int
}

func (m *mockReader) Read() (Measurement, error) {
	m.reads++
	return m.measurement, m.err
}

func (m *mockReader) Name() string {
	return "Mock"
}

func TestSourceSelectsField(t *testing.T) {
	reader := &mockReader{measurement: Measurement{Temperature: 24.5, Humidity: 68.0, Pressure: 101200}}
	src := NewSource(reader)

	tests := []struct {
		metric   telemetry.Metric
		expected float64
	}{
		{telemetry.Temperature, 24.5},
		{telemetry.Humidity, 68.0},
		{telemetry.Pressure, 101200},
	}

	for _, tt := range tests {
		v, err := src.Read(context.Background(), tt.metric)
		if err != nil {
			t.Errorf("%s: unexpected error %v", tt.metric, err)
			continue
		}
		if v != tt.expected {
			t.Errorf("%s: expected %v, got %v", tt.metric, tt.expected, v)
		}
	}
}

func TestSourceErrors(t *testing.T) {
	src := NewSource(&mockReader{})
	if _, err := src.Read(context.Background(), telemetry.SoilMoisture); !errors.Is(err, telemetry.ErrUnknownMetric) {
		t.Errorf("Expected ErrUnknownMetric, got %v", err)
	}

	boom := errors.New("i2c nack")
	src = NewSource(&mockReader{err: boom})
	if _, err := src.Read(context.Background(), telemetry.Temperature); !errors.Is(err, boom) {
		t.Errorf("Expected wrapped sensor error, got %v", err)
	}

	reader := &mockReader{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewSource(reader).Read(ctx, telemetry.Temperature); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if reader.reads != 0 {
		t.Errorf("Expected no sensor reads after cancellation, got %d", reader.reads)
	}
}

func BenchmarkMeasurementString(b *testing.B) {
	measurement := &Measurement{
		Temperature: 25.5,
		Humidity:    60.0,
		Pressure:    101325,
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = measurement.String()
	}
}
