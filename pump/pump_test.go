package pump_test

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/anibaldeboni/zero-paper/cropwatch/gateway"
	"github.com/anibaldeboni/zero-paper/cropwatch/pump"
	"github.com/anibaldeboni/zero-paper/cropwatch/queue"
)

type fakeEnqueuer struct {
	commands []pump.Command
	err      error
}

func (f *fakeEnqueuer) Enqueue(cmd pump.Command) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.commands = append(f.commands, cmd)
	return "cmd-1", nil
}

type write struct {
	pin, value string
}

type fakeWriter struct {
	mu     sync.Mutex
	writes []write
	errs   []error
}

func (f *fakeWriter) WritePin(ctx context.Context, pin, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, write{pin, value})
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return err
	}
	return nil
}

func TestActivate(t *testing.T) {
	q := &fakeEnqueuer{}
	c, err := pump.NewController(pump.DefaultPumps(), q)
	if err != nil {
		t.Fatalf("NewController error: %v", err)
	}

	id, err := c.Activate("irrigation")
	if err != nil {
		t.Fatalf("Activate error: %v", err)
	}
	if id != "cmd-1" {
		t.Errorf("id = %q, want cmd-1", id)
	}
	if len(q.commands) != 1 {
		t.Fatalf("enqueued %d commands, want 1", len(q.commands))
	}

	cmd := q.commands[0]
	if cmd.Pump != "irrigation" || cmd.Pin != "V4" || cmd.Value != "1" {
		t.Errorf("command = %+v, want irrigation on V4 with value 1", cmd)
	}
	if cmd.RequestedAt.IsZero() {
		t.Error("RequestedAt not set")
	}
}

func TestActivateUnknownPump(t *testing.T) {
	q := &fakeEnqueuer{}
	c, _ := pump.NewController(pump.DefaultPumps(), q)

	if _, err := c.Activate("sprinkler"); !errors.Is(err, pump.ErrUnknownPump) {
		t.Errorf("Activate(sprinkler) error = %v, want ErrUnknownPump", err)
	}
	if len(q.commands) != 0 {
		t.Errorf("unknown pump enqueued %d commands", len(q.commands))
	}
}

func TestActivateQueueClosed(t *testing.T) {
	c, _ := pump.NewController(pump.DefaultPumps(), &fakeEnqueuer{err: queue.ErrQueueClosed})

	if _, err := c.Activate("fertilizer"); !errors.Is(err, queue.ErrQueueClosed) {
		t.Errorf("Activate error = %v, want ErrQueueClosed", err)
	}
}

func TestNewControllerRejectsEmptyPin(t *testing.T) {
	_, err := pump.NewController(map[string]string{"irrigation": ""}, &fakeEnqueuer{})
	if !errors.Is(err, pump.ErrInvalidPin) {
		t.Errorf("NewController error = %v, want ErrInvalidPin", err)
	}
}

func TestPumps(t *testing.T) {
	c, _ := pump.NewController(pump.DefaultPumps(), &fakeEnqueuer{})

	if got, want := c.Pumps(), []string{"fertilizer", "irrigation"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Pumps() = %v, want %v", got, want)
	}
	if pin, ok := c.Pin("fertilizer"); !ok || pin != "V3" {
		t.Errorf("Pin(fertilizer) = %q, %v", pin, ok)
	}
}

func TestWorkerProcess(t *testing.T) {
	w := &fakeWriter{}
	worker := pump.NewWorker(w)

	msg := queue.Message[pump.Command]{Data: pump.Command{Pump: "irrigation", Pin: "V4", Value: "1"}}
	if err := worker.Process(context.Background(), msg); err != nil {
		t.Fatalf("Process error: %v", err)
	}
	if want := []write{{"V4", "1"}}; !reflect.DeepEqual(w.writes, want) {
		t.Errorf("writes = %v, want %v", w.writes, want)
	}
}

func TestWorkerKeepsRetryability(t *testing.T) {
	w := &fakeWriter{errs: []error{gateway.NewHTTPError(http.StatusBadGateway, "upstream")}}
	worker := pump.NewWorker(w)

	err := worker.Process(context.Background(), queue.Message[pump.Command]{Data: pump.Command{Pump: "irrigation", Pin: "V4", Value: "1"}})

	var retryable queue.RetryableError
	if !errors.As(err, &retryable) || !retryable.IsRetryable() {
		t.Errorf("Process error = %v, want retryable gateway error", err)
	}
}

func TestActivateThroughQueue(t *testing.T) {
	w := &fakeWriter{errs: []error{gateway.NewHTTPError(http.StatusServiceUnavailable, "busy")}}

	cfg := queue.DefaultQueueConfig()
	cfg.RetryPolicy.BaseDelay = time.Millisecond
	cfg.RetryPolicy.MaxDelay = time.Millisecond

	done := make(chan error, 1)
	q := queue.NewQueue[pump.Command](context.Background(), pump.NewWorker(w), cfg,
		queue.WithResultHook[pump.Command](func(msg queue.Message[pump.Command], err error, final bool) {
			if final {
				done <- err
			}
		}))
	go q.Start()
	defer func() {
		q.Stop()
		<-q.Done()
	}()

	c, _ := pump.NewController(pump.DefaultPumps(), q)
	if _, err := c.Activate("irrigation"); err != nil {
		t.Fatalf("Activate error: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("command finished with error %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("command was not delivered")
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.writes) != 2 {
		t.Errorf("writes = %d, want 2 (one failure, one retry)", len(w.writes))
	}
}
