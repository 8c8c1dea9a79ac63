package evaluator

import (
	"errors"
	"math"

	"github.com/anibaldeboni/zero-paper/cropwatch/telemetry"
)

var ErrNegativeTolerance = errors.New("tolerance must be a finite non-negative number")

// Evaluator applies profiles to readings.
type Evaluator struct {
	tolerance float64
}

// New creates an evaluator. tolerance widens every range on both sides and
// defaults to exact comparison when zero.
func New(tolerance float64) (*Evaluator, error) {
	if tolerance < 0 || math.IsNaN(tolerance) || math.IsInf(tolerance, 0) {
		return nil, ErrNegativeTolerance
	}
	return &Evaluator{tolerance: tolerance}, nil
}

// Tolerance returns the configured boundary tolerance.
func (e *Evaluator) Tolerance() float64 {
	return e.tolerance
}

// Evaluate produces one verdict per metric present in readings.
func (e *Evaluator) Evaluate(readings telemetry.Readings, profile Profile) Verdicts {
	verdicts := make(Verdicts, len(readings))
	for metric, reading := range readings {
		verdicts[metric] = e.verdict(reading, profile, metric)
	}
	return verdicts
}

func (e *Evaluator) verdict(reading telemetry.Reading, profile Profile, metric telemetry.Metric) Verdict {
	v, ok := reading.Value()
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return Verdict{Kind: NoData}
	}

	r, ok := profile.Range(metric)
	if !ok {
		return Verdict{Kind: NoRangeDefined, Value: &v}
	}

	switch {
	case r.Contains(v, e.tolerance):
		return Verdict{Kind: InRange, Value: &v, Range: &r}
	case v < r.Min:
		return Verdict{Kind: BelowRange, Value: &v, Range: &r, Delta: r.Min - v}
	default:
		return Verdict{Kind: AboveRange, Value: &v, Range: &r, Delta: v - r.Max}
	}
}

// Evaluate classifies readings with exact boundary comparison.
func Evaluate(readings telemetry.Readings, profile Profile) Verdicts {
	return (&Evaluator{}).Evaluate(readings, profile)
}
