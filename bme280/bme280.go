// Package bme280 reads temperature, humidity and pressure from a BME280
// sensor on the I2C bus and exposes it as a telemetry source.
package bme280

import (
	"errors"
	"fmt"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/bmxx80"
	"periph.io/x/host/v3"
)

var ErrNotInitialized = errors.New("sensor not initialized")

// Measurement representa uma leitura do sensor BME280
type Measurement struct {
	Temperature float64 `json:"temperature"` // Temperatura em Celsius
	Humidity    float64 `json:"humidity"`    // Umidade relativa em %
	Pressure    int64   `json:"pressure"`    // Pressão em Pascal
}

// String retorna uma representação em string da medição
func (m *Measurement) String() string {
	return fmt.Sprintf("Temperature: %.2f°C, Humidity: %.2f%%, Pressure: %d Pa",
		m.Temperature, m.Humidity, m.Pressure)
}

// Reader defines the interface for reading measurements
type Reader interface {
	Read() (Measurement, error)
	Name() string
}

// Config contém as configurações para o sensor BME280
type Config struct {
	Address uint16       // Endereço I2C do sensor (padrão: 0x76)
	BusName string       // Nome do barramento I2C (vazio para padrão)
	Options *bmxx80.Opts // Opções avançadas (nil para padrão)
}

// DefaultConfig retorna uma configuração padrão para o sensor
func DefaultConfig() *Config {
	return &Config{
		Address: 0x76,
		BusName: "",
		Options: &bmxx80.DefaultOpts,
	}
}

// Sensor representa um sensor BME280 conectado via I2C
type Sensor struct {
	device *bmxx80.Dev
	bus    i2c.BusCloser
	mu     sync.Mutex
}

// NewSensor cria uma nova instância do sensor BME280
func NewSensor(config *Config) (*Sensor, error) {
	if config == nil {
		config = DefaultConfig()
	}

	opts := config.Options
	if opts == nil {
		opts = &bmxx80.DefaultOpts
	}

	// Inicializa os drivers do periph.io
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph.io drivers: %w", err)
	}

	bus, err := i2creg.Open(config.BusName)
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus '%s': %w", config.BusName, err)
	}

	dev, err := bmxx80.NewI2C(bus, config.Address, opts)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("failed to initialize BME280 at address 0x%02X: %w", config.Address, err)
	}

	return &Sensor{device: dev, bus: bus}, nil
}

// Read realiza uma leitura do sensor. The bus is not shared between
// concurrent senses.
func (s *Sensor) Read() (Measurement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.device == nil {
		return Measurement{}, ErrNotInitialized
	}

	var env physic.Env
	if err := s.device.Sense(&env); err != nil {
		return Measurement{}, fmt.Errorf("failed to read sensor data: %w", err)
	}

	return Measurement{
		Temperature: float64(env.Temperature-physic.ZeroCelsius) / float64(physic.Celsius),
		Humidity:    float64(env.Humidity) / float64(physic.PercentRH),
		Pressure:    int64(env.Pressure / physic.Pascal),
	}, nil
}

// Name returns the sensor type name
func (s *Sensor) Name() string {
	return "BME280"
}

// Close fecha a conexão com o sensor e libera os recursos
func (s *Sensor) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error

	if s.device != nil {
		if err := s.device.Halt(); err != nil {
			errs = append(errs, fmt.Errorf("failed to halt device: %w", err))
		}
		s.device = nil
	}

	if s.bus != nil {
		if err := s.bus.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close I2C bus: %w", err))
		}
		s.bus = nil
	}

	return errors.Join(errs...)
}

var _ Reader = (*Sensor)(nil)
