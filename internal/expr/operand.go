package expr

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Operand is a terminal: either the input variable or a numeric constant.
type Operand struct {
	Variable bool
	Value    float64
}

func Var() Operand {
	return Operand{Variable: true}
}

func Const(value float64) Operand {
	return Operand{Value: value}
}

// Resolve returns the operand's value for input x.
func (o Operand) Resolve(x float64) float64 {
	if o.Variable {
		return x
	}
	return o.Value
}

func (o Operand) String() string {
	if o.Variable {
		return "x"
	}
	if o.Value == math.Trunc(o.Value) && math.Abs(o.Value) < 1e15 {
		return strconv.FormatInt(int64(o.Value), 10)
	}
	return strconv.FormatFloat(o.Value, 'g', -1, 64)
}

// ParseOperand accepts "x" (any case) or a decimal constant.
func ParseOperand(raw string) (Operand, error) {
	token := strings.TrimSpace(raw)
	if strings.EqualFold(token, "x") {
		return Var(), nil
	}
	value, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return Operand{}, fmt.Errorf("parse operand %q: %w", raw, err)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Operand{}, fmt.Errorf("operand %q is not finite", raw)
	}
	return Const(value), nil
}

func ParseOperands(raw []string) ([]Operand, error) {
	out := make([]Operand, 0, len(raw))
	for _, item := range raw {
		operand, err := ParseOperand(item)
		if err != nil {
			return nil, err
		}
		out = append(out, operand)
	}
	return out, nil
}

// IntegerOperands returns the constants lo..hi followed by the variable.
func IntegerOperands(lo, hi int) []Operand {
	out := make([]Operand, 0, hi-lo+2)
	for v := lo; v <= hi; v++ {
		out = append(out, Const(float64(v)))
	}
	return append(out, Var())
}
