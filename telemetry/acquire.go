package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"golang.org/x/sync/errgroup"
)

var ErrNonFiniteValue = errors.New("source returned a non-finite value")

// AcquirerConfig controls one acquisition pass.
type AcquirerConfig struct {
	// Timeout bounds every single fetch. Zero disables the per-fetch deadline.
	Timeout time.Duration
	// MaxConcurrency caps in-flight fetches. Zero means one goroutine per metric.
	MaxConcurrency int
}

// Acquirer fans out one fetch per metric and collects every outcome.
type Acquirer struct {
	source Source
	config AcquirerConfig
}

// NewAcquirer creates an acquirer over src.
func NewAcquirer(src Source, config AcquirerConfig) *Acquirer {
	return &Acquirer{source: src, config: config}
}

// Acquire fetches each metric exactly once. A failed fetch only turns its own
// metric absent; the call returns after all fetches have finished.
func (a *Acquirer) Acquire(ctx context.Context, metrics []Metric) Readings {
	unique := make([]Metric, 0, len(metrics))
	seen := make(map[Metric]struct{}, len(metrics))
	for _, m := range metrics {
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		unique = append(unique, m)
	}

	results := make([]Reading, len(unique))

	var g errgroup.Group
	if a.config.MaxConcurrency > 0 {
		g.SetLimit(a.config.MaxConcurrency)
	}
	for i, m := range unique {
		i, m := i, m
		g.Go(func() error {
			results[i] = a.fetch(ctx, m)
			return nil
		})
	}
	_ = g.Wait()

	readings := make(Readings, len(unique))
	for i, m := range unique {
		readings[m] = results[i]
		if f := results[i].Failure(); f != nil {
			log.Printf("Acquisition failed: %v", f)
		}
	}
	return readings
}

type outcome struct {
	value float64
	err   error
}

// fetch returns when the source answers or the deadline passes, whichever
// comes first. A source that ignores ctx is abandoned, not waited on.
func (a *Acquirer) fetch(ctx context.Context, metric Metric) Reading {
	if err := ctx.Err(); err != nil {
		return Absent(metric, err)
	}

	fetchCtx := ctx
	if a.config.Timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, a.config.Timeout)
		defer cancel()
	}

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- outcome{err: fmt.Errorf("source panic: %v", p)}
			}
		}()
		v, err := a.source.Read(fetchCtx, metric)
		done <- outcome{value: v, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return Absent(metric, out.err)
		}
		if math.IsNaN(out.value) || math.IsInf(out.value, 0) {
			return Absent(metric, ErrNonFiniteValue)
		}
		return Present(out.value)
	case <-fetchCtx.Done():
		return Absent(metric, fetchCtx.Err())
	}
}
