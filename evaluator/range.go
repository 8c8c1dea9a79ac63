// Package evaluator classifies telemetry readings against plant profiles.
//
// Evaluation is pure: the same readings and profile always yield the same
// verdicts, and nothing is retained between calls.
package evaluator

import (
	"errors"
	"fmt"
	"math"

	"github.com/anibaldeboni/zero-paper/cropwatch/telemetry"
)

var (
	ErrInvertedRange  = errors.New("range minimum is greater than maximum")
	ErrNonFiniteBound = errors.New("range bounds must be finite")
)

// Range is the closed interval [Min, Max] of acceptable values.
type Range struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Validate checks that both bounds are finite and Min <= Max.
func (r Range) Validate() error {
	if math.IsNaN(r.Min) || math.IsNaN(r.Max) || math.IsInf(r.Min, 0) || math.IsInf(r.Max, 0) {
		return ErrNonFiniteBound
	}
	if r.Min > r.Max {
		return ErrInvertedRange
	}
	return nil
}

// Contains reports whether v lies in the interval widened by tolerance.
func (r Range) Contains(v, tolerance float64) bool {
	return r.Min-tolerance <= v && v <= r.Max+tolerance
}

func (r Range) String() string {
	return fmt.Sprintf("[%g, %g]", r.Min, r.Max)
}

// ConfigurationError reports an invalid range inside a profile.
type ConfigurationError struct {
	Profile string
	Metric  telemetry.Metric
	Range   Range
	Err     error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("profile %q: metric %s range %s: %v", e.Profile, e.Metric, e.Range, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}
