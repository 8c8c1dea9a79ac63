package telemetry

import (
	"encoding/json"
	"fmt"
)

// AcquisitionFailure records why a metric could not be read.
type AcquisitionFailure struct {
	Metric Metric
	Reason error
}

func (e *AcquisitionFailure) Error() string {
	return fmt.Sprintf("acquire %s: %v", e.Metric, e.Reason)
}

func (e *AcquisitionFailure) Unwrap() error {
	return e.Reason
}

// Reading is the outcome of one fetch: a value, or absent.
type Reading struct {
	value   float64
	present bool
	failure *AcquisitionFailure
}

// Present builds a reading holding v.
func Present(v float64) Reading {
	return Reading{value: v, present: true}
}

// Absent builds a reading for a failed fetch. reason may be nil.
func Absent(metric Metric, reason error) Reading {
	r := Reading{}
	if reason != nil {
		r.failure = &AcquisitionFailure{Metric: metric, Reason: reason}
	}
	return r
}

// Value returns the reading value and whether it is present.
func (r Reading) Value() (float64, bool) {
	return r.value, r.present
}

// IsPresent reports whether the reading holds a value.
func (r Reading) IsPresent() bool {
	return r.present
}

// Failure returns the acquisition failure behind an absent reading, or nil.
func (r Reading) Failure() *AcquisitionFailure {
	return r.failure
}

// MarshalJSON encodes a present reading as a number and an absent one as null.
// The failure reason is never exposed.
func (r Reading) MarshalJSON() ([]byte, error) {
	if !r.present {
		return []byte("null"), nil
	}
	return json.Marshal(r.value)
}

// UnmarshalJSON accepts a number or null.
func (r *Reading) UnmarshalJSON(data []byte) error {
	var v *float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v == nil {
		*r = Reading{}
		return nil
	}
	*r = Present(*v)
	return nil
}

func (r Reading) String() string {
	if !r.present {
		return "absent"
	}
	return fmt.Sprintf("%.2f", r.value)
}

// Readings maps each sampled metric to its reading.
type Readings map[Metric]Reading

// Metrics returns the sampled metrics in lexical order.
func (rs Readings) Metrics() []Metric {
	out := make([]Metric, 0, len(rs))
	for m := range rs {
		out = append(out, m)
	}
	return SortMetrics(out)
}

// Failures returns the acquisition failures of this cycle.
func (rs Readings) Failures() []*AcquisitionFailure {
	var out []*AcquisitionFailure
	for _, m := range rs.Metrics() {
		if f := rs[m].Failure(); f != nil {
			out = append(out, f)
		}
	}
	return out
}
