// Package fitness defines the three-state fitness value shared by individuals
// and selection. Lower is better; zero is a perfect fit.
package fitness

import (
	"fmt"
	"math"
	"strconv"
)

type State uint8

const (
	StateUnset State = iota
	StateInvalid
	StateValid
)

func (s State) String() string {
	switch s {
	case StateUnset:
		return "unset"
	case StateInvalid:
		return "invalid"
	case StateValid:
		return "valid"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

func ParseState(raw string) (State, error) {
	switch raw {
	case "unset", "":
		return StateUnset, nil
	case "invalid":
		return StateInvalid, nil
	case "valid":
		return StateValid, nil
	default:
		return 0, fmt.Errorf("unknown fitness state: %q", raw)
	}
}

// Score is Unset, Invalid or Valid(v) with v >= 0. The zero value is Unset.
type Score struct {
	state State
	value float64
}

func Unset() Score {
	return Score{}
}

func Invalid() Score {
	return Score{state: StateInvalid}
}

// Valid wraps a computed deviation. NaN collapses to Invalid.
func Valid(v float64) Score {
	if math.IsNaN(v) {
		return Invalid()
	}
	if v < 0 {
		panic(fmt.Sprintf("fitness must be non-negative, got %v", v))
	}
	return Score{state: StateValid, value: v}
}

// Zero is the additive identity.
func Zero() Score {
	return Valid(0)
}

func (s Score) State() State { return s.state }
func (s Score) IsValid() bool { return s.state == StateValid }
func (s Score) IsUnset() bool { return s.state == StateUnset }
func (s Score) IsInvalid() bool { return s.state == StateInvalid }

// Value returns the fitness, or +Inf for non-valid scores.
func (s Score) Value() float64 {
	if s.state != StateValid {
		return math.Inf(1)
	}
	return s.value
}

// Add accumulates v. Adding to Unset assigns. Invalid absorbs further additions.
// Sums saturate at math.MaxFloat64.
func (s Score) Add(v float64) Score {
	switch s.state {
	case StateUnset:
		return Valid(saturate(v))
	case StateInvalid:
		return s
	default:
		return Valid(saturate(s.value + v))
	}
}

func saturate(v float64) float64 {
	if math.IsInf(v, 1) || v > math.MaxFloat64 {
		return math.MaxFloat64
	}
	return v
}

// Compare orders Valid scores ascending. Unset and Invalid sort after every
// Valid score and tie with each other.
func (s Score) Compare(other Score) int {
	switch {
	case s.IsValid() && other.IsValid():
		switch {
		case s.value < other.value:
			return -1
		case s.value > other.value:
			return 1
		default:
			return 0
		}
	case s.IsValid():
		return -1
	case other.IsValid():
		return 1
	default:
		return 0
	}
}

func (s Score) Less(other Score) bool {
	return s.Compare(other) < 0
}

func (s Score) Equal(other Score) bool {
	return s.Compare(other) == 0
}

func (s Score) String() string {
	switch s.state {
	case StateValid:
		return strconv.FormatFloat(s.value, 'g', -1, 64)
	case StateInvalid:
		return "*Invalid"
	default:
		return "*Unset"
	}
}
