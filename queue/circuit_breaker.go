package queue

import (
	"sync"
	"time"
)

// CircuitBreakerState representa o estado do circuit breaker
type CircuitBreakerState int

const (
	CircuitBreakerClosed CircuitBreakerState = iota
	CircuitBreakerOpen
	CircuitBreakerHalfOpen
)

func (s CircuitBreakerState) String() string {
	switch s {
	case CircuitBreakerClosed:
		return "closed"
	case CircuitBreakerOpen:
		return "open"
	case CircuitBreakerHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s CircuitBreakerState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CircuitBreaker implementa o padrão Circuit Breaker
type CircuitBreaker struct {
	mu                sync.Mutex
	state             CircuitBreakerState
	failureCount      int
	lastFailureTime   time.Time
	failureThreshold  int
	timeout           time.Duration
	halfOpenSuccesses int
	maxHalfOpenTries  int
	now               func() time.Time
}

// NewCircuitBreaker cria um novo circuit breaker
func NewCircuitBreaker(failureThreshold int, timeout time.Duration) *CircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = 1
	}
	return &CircuitBreaker{
		state:            CircuitBreakerClosed,
		failureThreshold: failureThreshold,
		timeout:          timeout,
		maxHalfOpenTries: 3,
		now:              time.Now,
	}
}

// Call executa uma função através do circuit breaker
func (cb *CircuitBreaker) Call(fn func() error) error {
	if !cb.allowCall() {
		return ErrCircuitBreakerOpen
	}

	err := fn()
	cb.recordResult(err)
	return err
}

// allowCall verifica se a chamada é permitida
func (cb *CircuitBreaker) allowCall() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitBreakerClosed:
		return true
	case CircuitBreakerOpen:
		if cb.now().Sub(cb.lastFailureTime) >= cb.timeout {
			cb.state = CircuitBreakerHalfOpen
			cb.halfOpenSuccesses = 0
			return true
		}
		return false
	case CircuitBreakerHalfOpen:
		return cb.halfOpenSuccesses < cb.maxHalfOpenTries
	default:
		return false
	}
}

// recordResult registra o resultado da chamada
func (cb *CircuitBreaker) recordResult(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.failureCount++
		cb.lastFailureTime = cb.now()

		if cb.state == CircuitBreakerHalfOpen || cb.failureCount >= cb.failureThreshold {
			cb.state = CircuitBreakerOpen
		}
		return
	}

	cb.failureCount = 0
	if cb.state == CircuitBreakerHalfOpen {
		cb.halfOpenSuccesses++
		if cb.halfOpenSuccesses >= cb.maxHalfOpenTries {
			cb.state = CircuitBreakerClosed
		}
	}
}

// State retorna o estado atual do circuit breaker
func (cb *CircuitBreaker) State() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
