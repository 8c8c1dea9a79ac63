package evaluator

import (
	"fmt"

	"github.com/anibaldeboni/zero-paper/cropwatch/telemetry"
)

// Kind classifies a reading against its range.
type Kind int

const (
	NoData Kind = iota
	InRange
	BelowRange
	AboveRange
	NoRangeDefined
)

var kindNames = map[Kind]string{
	NoData:         "no_data",
	InRange:        "in_range",
	BelowRange:     "below_range",
	AboveRange:     "above_range",
	NoRangeDefined: "no_range_defined",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	name, ok := kindNames[k]
	if !ok {
		return nil, fmt.Errorf("unknown verdict kind %d", int(k))
	}
	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	for kind, name := range kindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown verdict kind %q", text)
}

// Verdict is the evaluation of one metric.
//
// Value is set whenever a reading was present, Range whenever the profile
// defines one. Delta is min-v for BelowRange, v-max for AboveRange and zero
// otherwise.
type Verdict struct {
	Kind  Kind     `json:"kind"`
	Value *float64 `json:"value,omitempty"`
	Range *Range   `json:"range,omitempty"`
	Delta float64  `json:"delta,omitempty"`
}

// Verdicts maps each sampled metric to its verdict.
type Verdicts map[telemetry.Metric]Verdict

// Count returns how many verdicts have the given kind.
func (vs Verdicts) Count(kind Kind) int {
	n := 0
	for _, v := range vs {
		if v.Kind == kind {
			n++
		}
	}
	return n
}
