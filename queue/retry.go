package queue

import (
	"context"
	"errors"
	"math"
	"time"
)

// RetryPolicy define a política de retry
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryPolicy retorna uma política de retry padrão
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  1 * time.Second,
		MaxDelay:   30 * time.Second,
	}
}

// CalculateDelay calcula o delay para a próxima tentativa usando backoff exponencial
func (rp RetryPolicy) CalculateDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 30 {
		attempt = 30
	}
	factor := time.Duration(1) << uint(attempt)
	delay := rp.BaseDelay * factor
	if rp.BaseDelay > 0 && delay/factor != rp.BaseDelay {
		delay = time.Duration(math.MaxInt64)
	}
	if rp.MaxDelay > 0 {
		delay = min(delay, rp.MaxDelay)
	}
	return delay
}

// ShouldRetry determina se um erro deve ser retentado.
// Durante o shutdown nenhuma nova tentativa é agendada.
func ShouldRetry(ctx context.Context, err error, attempts int, maxTries int) bool {
	if err == nil || attempts >= maxTries {
		return false
	}
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, ErrCircuitBreakerOpen) {
		return true
	}

	var retryableErr RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.IsRetryable()
	}

	// Outros tipos de erro (timeout, connection refused) são retentáveis
	return true
}
