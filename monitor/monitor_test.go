package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/anibaldeboni/zero-paper/cropwatch/evaluator"
	"github.com/anibaldeboni/zero-paper/cropwatch/telemetry"
)

type fixedSource map[telemetry.Metric]float64

func (f fixedSource) Read(ctx context.Context, metric telemetry.Metric) (float64, error) {
	v, ok := f[metric]
	if !ok {
		return 0, errors.New("sensor offline")
	}
	return v, nil
}

type recordingPublisher struct {
	mu    sync.Mutex
	snaps []Snapshot
	err   error
}

func (p *recordingPublisher) Publish(ctx context.Context, snap Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snaps = append(p.snaps, snap)
	return p.err
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.snaps)
}

type recordingObserver struct {
	mu     sync.Mutex
	cycles int
}

func (o *recordingObserver) ObserveCycle(telemetry.Readings, evaluator.Verdicts, time.Duration) {
	o.mu.Lock()
	o.cycles++
	o.mu.Unlock()
}

func testCatalog(t *testing.T) *evaluator.Catalog {
	t.Helper()
	catalog, err := evaluator.NewCatalog(map[string]evaluator.Profile{
		"pepper": {Ranges: map[telemetry.Metric]evaluator.Range{
			telemetry.Temperature:  {Min: 25, Max: 30},
			telemetry.SoilMoisture: {Min: 50, Max: 70},
			telemetry.Humidity:     {Min: 60, Max: 75},
		}},
	}, evaluator.Profile{Name: "generic", Ranges: map[telemetry.Metric]evaluator.Range{
		telemetry.Temperature: {Min: 20, Max: 30},
	}})
	if err != nil {
		t.Fatalf("NewCatalog error: %v", err)
	}
	return catalog
}

func newTestMonitor(t *testing.T, src telemetry.Source, opts ...Option) *Monitor {
	t.Helper()
	eval, _ := evaluator.New(0)
	acq := telemetry.NewAcquirer(src, telemetry.AcquirerConfig{Timeout: time.Second})
	m, err := New(acq, eval, testCatalog(t), Config{
		Interval:      10 * time.Millisecond,
		Metrics:       []telemetry.Metric{telemetry.Temperature, telemetry.Humidity, telemetry.SoilMoisture},
		ActiveProfile: "pepper",
	}, opts...)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	return m
}

func TestCycle(t *testing.T) {
	src := fixedSource{telemetry.Temperature: 32, telemetry.SoilMoisture: 55}
	obs := &recordingObserver{}
	m := newTestMonitor(t, src, WithObserver(obs))

	snap := m.Cycle(context.Background(), "")

	if snap.Profile.Requested != "pepper" || snap.Profile.Fallback {
		t.Errorf("Profile = %+v, want pepper without fallback", snap.Profile)
	}

	want := map[telemetry.Metric]evaluator.Kind{
		telemetry.Temperature:  evaluator.AboveRange,
		telemetry.SoilMoisture: evaluator.InRange,
		telemetry.Humidity:     evaluator.NoData,
	}
	if len(snap.Verdicts) != len(want) {
		t.Fatalf("got %d verdicts, want %d", len(snap.Verdicts), len(want))
	}
	for metric, kind := range want {
		if got := snap.Verdicts[metric].Kind; got != kind {
			t.Errorf("%s: kind = %v, want %v", metric, got, kind)
		}
	}
	if d := snap.Verdicts[telemetry.Temperature].Delta; d != 2 {
		t.Errorf("temperature delta = %v, want 2", d)
	}
	if obs.cycles != 1 {
		t.Errorf("observer cycles = %d, want 1", obs.cycles)
	}
}

func TestCycleUnknownProfileFallsBack(t *testing.T) {
	m := newTestMonitor(t, fixedSource{telemetry.Temperature: 25, telemetry.Humidity: 70, telemetry.SoilMoisture: 10})

	snap := m.Cycle(context.Background(), "cactus")

	if !snap.Profile.Fallback || snap.Profile.Profile.Name != "generic" {
		t.Fatalf("Profile = %+v, want fallback to generic", snap.Profile)
	}
	if got := snap.Verdicts[telemetry.Temperature].Kind; got != evaluator.InRange {
		t.Errorf("temperature = %v, want in_range", got)
	}
	if got := snap.Verdicts[telemetry.Humidity].Kind; got != evaluator.NoRangeDefined {
		t.Errorf("humidity = %v, want no_range_defined", got)
	}
}

func TestCycleIsStateless(t *testing.T) {
	src := fixedSource{telemetry.Temperature: 27}
	m := newTestMonitor(t, src)

	first := m.Cycle(context.Background(), "pepper")
	delete(src, telemetry.Temperature)
	second := m.Cycle(context.Background(), "pepper")

	if first.Verdicts[telemetry.Temperature].Kind != evaluator.InRange {
		t.Errorf("first cycle temperature = %v, want in_range", first.Verdicts[telemetry.Temperature].Kind)
	}
	if second.Verdicts[telemetry.Temperature].Kind != evaluator.NoData {
		t.Errorf("second cycle temperature = %v, want no_data", second.Verdicts[telemetry.Temperature].Kind)
	}
}

func TestNewRequiresMetrics(t *testing.T) {
	eval, _ := evaluator.New(0)
	_, err := New(nil, eval, testCatalog(t), Config{})
	if !errors.Is(err, ErrNoMetrics) {
		t.Errorf("New error = %v, want ErrNoMetrics", err)
	}
}

func TestStartPublishesSnapshots(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	obs := &recordingObserver{}
	m := newTestMonitor(t, fixedSource{telemetry.Temperature: 26}, WithPublisher(pub), WithObserver(obs))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Start(ctx) }()

	deadline := time.After(2 * time.Second)
	for pub.count() < 3 {
		select {
		case <-deadline:
			t.Fatalf("published %d snapshots, want at least 3", pub.count())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Start() = %v, want context.Canceled", err)
	}

	pub.mu.Lock()
	defer pub.mu.Unlock()
	for _, snap := range pub.snaps {
		if snap.Profile.Profile.Name != "pepper" {
			t.Errorf("snapshot profile = %q, want pepper", snap.Profile.Profile.Name)
		}
	}
}

func TestSnapshotJSON(t *testing.T) {
	m := newTestMonitor(t, fixedSource{telemetry.Temperature: 32})
	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	snap := m.Cycle(context.Background(), "pepper")
	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	var decoded struct {
		Time     time.Time                  `json:"time"`
		Readings map[string]*float64        `json:"readings"`
		Verdicts map[string]json.RawMessage `json:"verdicts"`
		Profile  struct {
			Requested string `json:"requested"`
			Fallback  bool   `json:"fallback"`
		} `json:"profile"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}

	if !decoded.Time.Equal(fixed) {
		t.Errorf("time = %v, want %v", decoded.Time, fixed)
	}
	if decoded.Readings["humidity"] != nil {
		t.Errorf("absent humidity encoded as %v, want null", *decoded.Readings["humidity"])
	}
	if v := decoded.Readings["temperature"]; v == nil || *v != 32 {
		t.Errorf("temperature = %v, want 32", v)
	}
	if got := string(decoded.Verdicts["humidity"]); got != `{"kind":"no_data"}` {
		t.Errorf("humidity verdict = %s", got)
	}
	if decoded.Profile.Requested != "pepper" || decoded.Profile.Fallback {
		t.Errorf("profile = %+v", decoded.Profile)
	}
}
