// Package monitor runs the acquisition and evaluation cycle: one fresh set of
// readings per tick, classified against the active plant profile.
package monitor

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/anibaldeboni/zero-paper/cropwatch/evaluator"
	"github.com/anibaldeboni/zero-paper/cropwatch/telemetry"
)

const defaultInterval = 30 * time.Second

var ErrNoMetrics = errors.New("monitor needs at least one metric")

// Snapshot is the outcome of one cycle.
type Snapshot struct {
	Time     time.Time           `json:"time"`
	Profile  evaluator.Selection `json:"profile"`
	Readings telemetry.Readings  `json:"readings"`
	Verdicts evaluator.Verdicts  `json:"verdicts"`
}

// Acquirer fetches one set of readings. *telemetry.Acquirer satisfies it.
type Acquirer interface {
	Acquire(ctx context.Context, metrics []telemetry.Metric) telemetry.Readings
}

// Publisher receives every snapshot produced by Start.
type Publisher interface {
	Publish(ctx context.Context, snap Snapshot) error
}

// Observer is told how each cycle went.
type Observer interface {
	ObserveCycle(readings telemetry.Readings, verdicts evaluator.Verdicts, elapsed time.Duration)
}

// Config define o ciclo de monitoramento
type Config struct {
	Interval      time.Duration
	Metrics       []telemetry.Metric
	ActiveProfile string
}

// Option configura o Monitor
type Option func(*Monitor)

// WithPublisher adiciona um destino para os snapshots
func WithPublisher(p Publisher) Option {
	return func(m *Monitor) {
		m.publishers = append(m.publishers, p)
	}
}

// WithObserver registra um observador de ciclos
func WithObserver(o Observer) Option {
	return func(m *Monitor) {
		m.observer = o
	}
}

// Monitor ties acquisition to evaluation.
type Monitor struct {
	acquirer   Acquirer
	evaluator  *evaluator.Evaluator
	catalog    *evaluator.Catalog
	config     Config
	publishers []Publisher
	observer   Observer
	now        func() time.Time
}

// New cria um novo monitor
func New(acq Acquirer, eval *evaluator.Evaluator, catalog *evaluator.Catalog, config Config, opts ...Option) (*Monitor, error) {
	if len(config.Metrics) == 0 {
		return nil, ErrNoMetrics
	}
	if config.Interval <= 0 {
		config.Interval = defaultInterval
	}
	config.Metrics = telemetry.SortMetrics(config.Metrics)

	m := &Monitor{
		acquirer:  acq,
		evaluator: eval,
		catalog:   catalog,
		config:    config,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Metrics returns the metrics acquired on every cycle.
func (m *Monitor) Metrics() []telemetry.Metric {
	return append([]telemetry.Metric(nil), m.config.Metrics...)
}

// ActiveProfile returns the profile key used by Start.
func (m *Monitor) ActiveProfile() string {
	return m.config.ActiveProfile
}

// Catalog returns the profile catalog.
func (m *Monitor) Catalog() *evaluator.Catalog {
	return m.catalog
}

// Readings performs one acquisition pass without evaluating it.
func (m *Monitor) Readings(ctx context.Context) telemetry.Readings {
	return m.acquirer.Acquire(ctx, m.config.Metrics)
}

// Cycle acquires fresh readings and evaluates them against profileKey. An
// unknown key falls back to the catalog default; an empty key means the
// active profile.
func (m *Monitor) Cycle(ctx context.Context, profileKey string) Snapshot {
	if profileKey == "" {
		profileKey = m.config.ActiveProfile
	}

	start := m.now()
	selection := m.catalog.Resolve(profileKey)
	readings := m.acquirer.Acquire(ctx, m.config.Metrics)
	verdicts := m.evaluator.Evaluate(readings, selection.Profile)

	if m.observer != nil {
		m.observer.ObserveCycle(readings, verdicts, m.now().Sub(start))
	}

	return Snapshot{
		Time:     start,
		Profile:  selection,
		Readings: readings,
		Verdicts: verdicts,
	}
}

// Start executa ciclos até o contexto ser cancelado
func (m *Monitor) Start(ctx context.Context) error {
	selection := m.catalog.Resolve(m.config.ActiveProfile)
	if selection.Fallback {
		log.Printf("Profile %q not found, using %q", selection.Requested, selection.Profile.Name)
	}
	log.Printf("Starting monitor for profile %s (every %v)", selection.Profile.Name, m.config.Interval)

	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	m.runCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("Monitor stopped")
			return ctx.Err()
		case <-ticker.C:
			m.runCycle(ctx)
		}
	}
}

func (m *Monitor) runCycle(ctx context.Context) {
	snap := m.Cycle(ctx, m.config.ActiveProfile)
	if ctx.Err() != nil {
		return
	}

	log.Printf("Cycle %s: %d in range, %d below, %d above, %d without data",
		snap.Profile.Profile.Name,
		snap.Verdicts.Count(evaluator.InRange),
		snap.Verdicts.Count(evaluator.BelowRange),
		snap.Verdicts.Count(evaluator.AboveRange),
		snap.Verdicts.Count(evaluator.NoData))

	for _, p := range m.publishers {
		if err := p.Publish(ctx, snap); err != nil {
			log.Printf("Error publishing snapshot: %v", err)
		}
	}
}
