package expr

import (
	"fmt"
	"strings"
)

// Operator is the closed set of function symbols a tree may contain.
type Operator uint8

const (
	Add Operator = iota
	Sub
	Mul
	Div
	Sin
	Cos
	Pow
)

// MaxExponent bounds the exponent applied by Pow.
const MaxExponent = 20.0

var operatorNames = map[Operator]string{
	Add: "ADD",
	Sub: "SUB",
	Mul: "MUL",
	Div: "DIV",
	Sin: "SIN",
	Cos: "COS",
	Pow: "POW",
}

// AllOperators lists every supported operator in declaration order.
func AllOperators() []Operator {
	return []Operator{Add, Sub, Mul, Div, Sin, Cos, Pow}
}

// Arity returns how many children an operator node carries.
func (o Operator) Arity() int {
	switch o {
	case Add, Sub, Mul, Div, Pow:
		return 2
	case Sin, Cos:
		return 1
	default:
		panic(fmt.Sprintf("unknown operator: %d", uint8(o)))
	}
}

// Symbol is the token used when rendering a tree.
func (o Operator) Symbol() string {
	switch o {
	case Add:
		return "+"
	case Sub:
		return "-"
	case Mul:
		return "*"
	case Div:
		return "/"
	case Sin:
		return "sin"
	case Cos:
		return "cos"
	case Pow:
		return "^"
	default:
		panic(fmt.Sprintf("unknown operator: %d", uint8(o)))
	}
}

// AlwaysInvalid reports operators that mark their node invalid whenever evaluated.
func (o Operator) AlwaysInvalid() bool {
	return o == Sin || o == Cos || o == Pow
}

func (o Operator) String() string {
	if name, ok := operatorNames[o]; ok {
		return name
	}
	return fmt.Sprintf("Operator(%d)", uint8(o))
}

func ParseOperator(raw string) (Operator, error) {
	name := strings.ToUpper(strings.TrimSpace(raw))
	for op, candidate := range operatorNames {
		if candidate == name {
			return op, nil
		}
	}
	return 0, fmt.Errorf("unknown operator: %q", raw)
}

func ParseOperators(raw []string) ([]Operator, error) {
	out := make([]Operator, 0, len(raw))
	for _, item := range raw {
		op, err := ParseOperator(item)
		if err != nil {
			return nil, err
		}
		out = append(out, op)
	}
	return out, nil
}
