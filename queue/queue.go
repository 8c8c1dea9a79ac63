// Package queue implementa uma fila genérica com workers, retry com backoff
// exponencial e circuit breaker.
package queue

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// Option configura a fila
type Option[T any] func(*Queue[T])

// WithResultHook registra um callback chamado após cada tentativa
func WithResultHook[T any](hook ResultHook[T]) Option[T] {
	return func(q *Queue[T]) {
		q.hook = hook
	}
}

// Queue representa uma fila de processamento de mensagens
type Queue[T any] struct {
	config         QueueConfig
	messages       chan Message[T]
	retryQueue     chan Message[T]
	worker         Worker[T]
	circuitBreaker *CircuitBreaker
	hook           ResultHook[T]

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	done   chan struct{}

	// mu protege closed e os envios para messages, que é fechado no shutdown
	mu     sync.RWMutex
	closed bool

	processed atomic.Uint64
	failed    atomic.Uint64
	dropped   atomic.Uint64
}

// NewQueue cria uma nova instância da fila (não inicia os workers)
func NewQueue[T any](ctx context.Context, worker Worker[T], config QueueConfig, opts ...Option[T]) *Queue[T] {
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.BufferSize <= 0 {
		config.BufferSize = 1
	}
	if config.RetryPolicy.MaxRetries <= 0 {
		config.RetryPolicy.MaxRetries = 1
	}

	queueCtx, cancel := context.WithCancel(ctx)

	q := &Queue[T]{
		config:     config,
		messages:   make(chan Message[T], config.BufferSize),
		retryQueue: make(chan Message[T], config.BufferSize),
		worker:     worker,
		circuitBreaker: NewCircuitBreaker(
			config.CircuitBreakerConfig.FailureThreshold,
			config.CircuitBreakerConfig.Timeout,
		),
		ctx:    queueCtx,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	for _, opt := range opts {
		opt(q)
	}

	return q
}

// Start inicia os workers e bloqueia até o contexto ser cancelado e o
// shutdown gracioso terminar
func (q *Queue[T]) Start() error {
	defer close(q.done)

	log.Printf("Starting queue with %d workers", q.config.Workers)

	for i := 0; i < q.config.Workers; i++ {
		q.wg.Add(1)
		go q.workerLoop(i)
	}

	retryDone := make(chan struct{})
	go func() {
		defer close(retryDone)
		q.retryLoop()
	}()

	<-q.ctx.Done()
	log.Println("Queue: Starting graceful shutdown...")

	// Para de aceitar novas mensagens
	q.mu.Lock()
	q.closed = true
	close(q.messages)
	q.mu.Unlock()

	<-retryDone

	workersDone := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(workersDone)
	}()

	select {
	case <-workersDone:
		log.Println("Queue: Graceful shutdown completed")
	case <-time.After(q.config.ShutdownTimeout):
		log.Println("Queue: Shutdown timeout reached, abandoning pending messages")
	}

	return q.ctx.Err()
}

// Stop cancela a fila; Start retorna após o shutdown gracioso
func (q *Queue[T]) Stop() {
	q.cancel()
}

// Done é fechado quando Start retorna
func (q *Queue[T]) Done() <-chan struct{} {
	return q.done
}

// Enqueue adiciona uma nova mensagem à fila e retorna o seu ID
func (q *Queue[T]) Enqueue(data T) (string, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed || q.ctx.Err() != nil {
		return "", ErrQueueClosed
	}

	msg := Message[T]{
		ID:        generateID(),
		Data:      data,
		MaxTries:  q.config.RetryPolicy.MaxRetries,
		CreatedAt: time.Now(),
	}

	select {
	case q.messages <- msg:
		return msg.ID, nil
	default:
		return "", ErrQueueFull
	}
}

// workerLoop consome mensagens até o canal ser fechado e drenado
func (q *Queue[T]) workerLoop(workerID int) {
	defer q.wg.Done()

	for msg := range q.messages {
		q.processMessage(msg, workerID)
	}
	log.Printf("Worker %d: Messages channel closed, shutting down", workerID)
}

// retryLoop reenvia mensagens que falharam após o delay de backoff
func (q *Queue[T]) retryLoop() {
	for {
		select {
		case msg := <-q.retryQueue:
			q.waitAndRequeue(msg)
		case <-q.ctx.Done():
			q.dropPendingRetries()
			return
		}
	}
}

func (q *Queue[T]) waitAndRequeue(msg Message[T]) {
	delay := q.config.RetryPolicy.CalculateDelay(msg.Attempts - 1)
	log.Printf("RetryLoop: Waiting %v before retrying message %s", delay, msg.ID)

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-q.ctx.Done():
		q.drop(msg, "RetryLoop: Dropping message due to shutdown during delay")
		return
	}

	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.drop(msg, "RetryLoop: Dropping message, queue closed")
		return
	}

	select {
	case q.messages <- msg:
	default:
		q.drop(msg, "RetryLoop: Messages queue full, dropping message")
	}
}

func (q *Queue[T]) dropPendingRetries() {
	for {
		select {
		case msg := <-q.retryQueue:
			q.drop(msg, "RetryLoop: Dropping message due to shutdown")
		default:
			return
		}
	}
}

// processMessage processa uma mensagem individual
func (q *Queue[T]) processMessage(msg Message[T], workerID int) {
	msg.Attempts++
	msg.LastTry = time.Now()

	ctx, cancel := q.processingContext()
	err := q.circuitBreaker.Call(func() error {
		return q.worker.Process(ctx, msg)
	})
	cancel()

	if err == nil {
		q.processed.Add(1)
		log.Printf("Worker %d: Successfully processed message %s", workerID, msg.ID)
		q.notify(msg, nil, true)
		return
	}

	log.Printf("Worker %d: Error processing message %s (attempt %d/%d): %v",
		workerID, msg.ID, msg.Attempts, msg.MaxTries, err)

	if ShouldRetry(q.ctx, err, msg.Attempts, msg.MaxTries) && q.scheduleRetry(msg) {
		q.notify(msg, err, false)
		return
	}

	q.failed.Add(1)
	log.Printf("Worker %d: Dropping message %s after %d attempts", workerID, msg.ID, msg.Attempts)
	q.notify(msg, err, true)
}

// processingContext usa o contexto da fila em operação normal e um timeout
// próprio durante o shutdown, para drenar as mensagens restantes
func (q *Queue[T]) processingContext() (context.Context, context.CancelFunc) {
	if q.ctx.Err() != nil {
		return context.WithTimeout(context.Background(), q.config.ProcessingTimeout)
	}
	return context.WithCancel(q.ctx)
}

func (q *Queue[T]) scheduleRetry(msg Message[T]) bool {
	select {
	case q.retryQueue <- msg:
		return true
	default:
		log.Printf("Retry queue full, cannot retry message %s", msg.ID)
		return false
	}
}

func (q *Queue[T]) drop(msg Message[T], reason string) {
	q.dropped.Add(1)
	log.Printf("%s %s", reason, msg.ID)
	q.notify(msg, ErrQueueClosed, true)
}

func (q *Queue[T]) notify(msg Message[T], err error, final bool) {
	if q.hook != nil {
		q.hook(msg, err, final)
	}
}

// Stats retorna estatísticas da fila
func (q *Queue[T]) Stats() QueueStats {
	return QueueStats{
		QueueSize:           len(q.messages),
		RetryQueueSize:      len(q.retryQueue),
		CircuitBreakerState: q.circuitBreaker.State(),
		Workers:             q.config.Workers,
		Processed:           q.processed.Load(),
		Failed:              q.failed.Load(),
		Dropped:             q.dropped.Load(),
	}
}
