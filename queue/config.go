package queue

import "time"

// QueueConfig define a configuração da fila
type QueueConfig struct {
	Workers              int
	BufferSize           int
	RetryPolicy          RetryPolicy
	CircuitBreakerConfig CircuitBreakerConfig
	ShutdownTimeout      time.Duration // Timeout para shutdown gracioso
	ProcessingTimeout    time.Duration // Timeout para processamento durante shutdown
}

// DefaultQueueConfig retorna uma configuração padrão
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		Workers:           1,
		BufferSize:        32,
		RetryPolicy:       DefaultRetryPolicy(),
		ShutdownTimeout:   10 * time.Second,
		ProcessingTimeout: 5 * time.Second,
		CircuitBreakerConfig: CircuitBreakerConfig{
			FailureThreshold: 5,
			Timeout:          60 * time.Second,
		},
	}
}

// CircuitBreakerConfig define a configuração do circuit breaker
type CircuitBreakerConfig struct {
	FailureThreshold int
	Timeout          time.Duration
}

// QueueStats representa estatísticas da fila
type QueueStats struct {
	QueueSize           int                 `json:"queue_size"`
	RetryQueueSize      int                 `json:"retry_queue_size"`
	CircuitBreakerState CircuitBreakerState `json:"circuit_breaker_state"`
	Workers             int                 `json:"workers"`
	Processed           uint64              `json:"processed"`
	Failed              uint64              `json:"failed"`
	Dropped             uint64              `json:"dropped"`
}
