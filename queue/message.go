package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Message representa uma mensagem na fila com metadados de controle
type Message[T any] struct {
	ID        string    `json:"id"`
	Data      T         `json:"data"`
	Attempts  int       `json:"attempts"`
	MaxTries  int       `json:"max_tries"`
	CreatedAt time.Time `json:"created_at"`
	LastTry   time.Time `json:"last_try"`
}

// Worker define a interface para processamento de mensagens
type Worker[T any] interface {
	Process(ctx context.Context, msg Message[T]) error
}

// WorkerFunc é um adapter que permite usar funções como Worker
type WorkerFunc[T any] func(ctx context.Context, msg Message[T]) error

func (f WorkerFunc[T]) Process(ctx context.Context, msg Message[T]) error {
	return f(ctx, msg)
}

// ResultHook is told about every finished attempt; err is nil on success.
// final is true once the message will not be tried again.
type ResultHook[T any] func(msg Message[T], err error, final bool)

func generateID() string {
	return uuid.NewString()
}
