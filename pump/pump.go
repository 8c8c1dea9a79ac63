// Package pump drives the irrigation and fertigation pumps wired to gateway
// pins. Activations are queued and written to the gateway by a Worker.
package pump

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/anibaldeboni/zero-paper/cropwatch/queue"
)

const activeValue = "1"

var (
	ErrUnknownPump = errors.New("unknown pump")
	ErrInvalidPin  = errors.New("pump has no pin")
)

// DefaultPumps returns the pin layout used by the reference field kit.
func DefaultPumps() map[string]string {
	return map[string]string{
		"irrigation": "V4",
		"fertilizer": "V3",
	}
}

// Command is a single pump activation.
type Command struct {
	Pump        string    `json:"pump"`
	Pin         string    `json:"pin"`
	Value       string    `json:"value"`
	RequestedAt time.Time `json:"requested_at"`
}

// Enqueuer accepts commands for asynchronous delivery. *queue.Queue[Command]
// satisfies it.
type Enqueuer interface {
	Enqueue(cmd Command) (string, error)
}

// Controller maps pump names to pins and queues activations.
type Controller struct {
	pins  map[string]string
	queue Enqueuer
}

// NewController cria um controlador para as bombas configuradas
func NewController(pins map[string]string, q Enqueuer) (*Controller, error) {
	copied := make(map[string]string, len(pins))
	for name, pin := range pins {
		if pin == "" {
			return nil, fmt.Errorf("%w: %s", ErrInvalidPin, name)
		}
		copied[name] = pin
	}
	return &Controller{pins: copied, queue: q}, nil
}

// Activate queues an activation for the named pump and returns the command id.
func (c *Controller) Activate(name string) (string, error) {
	pin, ok := c.pins[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownPump, name)
	}

	cmd := Command{
		Pump:        name,
		Pin:         pin,
		Value:       activeValue,
		RequestedAt: time.Now(),
	}

	id, err := c.queue.Enqueue(cmd)
	if err != nil {
		return "", fmt.Errorf("activate %s: %w", name, err)
	}
	return id, nil
}

// Pumps returns the configured pump names in sorted order.
func (c *Controller) Pumps() []string {
	names := make([]string, 0, len(c.pins))
	for name := range c.pins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Pin returns the gateway pin of a pump.
func (c *Controller) Pin(name string) (string, bool) {
	pin, ok := c.pins[name]
	return pin, ok
}

// PinWriter writes a value to a gateway pin. *gateway.Client satisfies it.
type PinWriter interface {
	WritePin(ctx context.Context, pin, value string) error
}

// Worker delivers queued commands to the gateway.
type Worker struct {
	writer PinWriter
}

// NewWorker cria um worker que escreve os comandos no gateway
func NewWorker(writer PinWriter) *Worker {
	return &Worker{writer: writer}
}

// Process implementa queue.Worker
func (w *Worker) Process(ctx context.Context, msg queue.Message[Command]) error {
	cmd := msg.Data
	if err := w.writer.WritePin(ctx, cmd.Pin, cmd.Value); err != nil {
		return fmt.Errorf("pump %s (pin %s): %w", cmd.Pump, cmd.Pin, err)
	}
	return nil
}
