// Package factory generates random expression trees from an operator and
// operand alphabet.
package factory

import (
	"fmt"
	"strings"

	"gpsr/internal/expr"
	"gpsr/internal/random"
)

// Method selects how an initial population is generated.
type Method uint8

const (
	Full Method = iota
	Grow
	RampedFull
	RampedGrow
	RampedHalfAndHalf
)

var methodNames = []string{
	Full:              "FULL",
	Grow:              "GROW",
	RampedFull:        "RAMPED_FULL",
	RampedGrow:        "RAMPED_GROW",
	RampedHalfAndHalf: "RAMPED_HALF_AND_HALF",
}

func (m Method) String() string {
	if int(m) < len(methodNames) {
		return methodNames[m]
	}
	return fmt.Sprintf("Method(%d)", uint8(m))
}

func ParseMethod(raw string) (Method, error) {
	name := strings.ToUpper(strings.TrimSpace(raw))
	for i, candidate := range methodNames {
		if candidate == name {
			return Method(i), nil
		}
	}
	return 0, fmt.Errorf("unknown generation method: %q", raw)
}

// MethodNames lists every method name in declaration order.
func MethodNames() []string {
	return append([]string(nil), methodNames...)
}

// Factory builds trees by drawing from a shared random source. Every draw goes
// through rng, so the same seed and call sequence yields the same trees.
type Factory struct {
	rng       random.Source
	operators []expr.Operator
	operands  []expr.Operand
}

func New(rng random.Source, operators []expr.Operator, operands []expr.Operand) (*Factory, error) {
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if len(operators) == 0 {
		return nil, fmt.Errorf("at least one operator is required")
	}
	if len(operands) == 0 {
		return nil, fmt.Errorf("at least one operand is required")
	}
	return &Factory{
		rng:       rng,
		operators: append([]expr.Operator(nil), operators...),
		operands:  append([]expr.Operand(nil), operands...),
	}, nil
}

func (f *Factory) RandomOperator() *expr.Node {
	return expr.NewOperator(f.operators[f.rng.Intn(len(f.operators))])
}

func (f *Factory) RandomOperand() *expr.Node {
	return expr.NewOperand(f.operands[f.rng.Intn(len(f.operands))])
}

// RandomNode flips a coin between an operator and an operand.
func (f *Factory) RandomNode() *expr.Node {
	if f.rng.Intn(2) == 1 {
		return f.RandomOperator()
	}
	return f.RandomOperand()
}

// Full returns a tree whose every leaf sits at exactly height.
func (f *Factory) Full(height int) *expr.Tree {
	return expr.NewTree(f.full(height))
}

func (f *Factory) full(height int) *expr.Node {
	if height <= 0 {
		return f.RandomOperand()
	}
	n := f.RandomOperator()
	f.fillChildren(n, func() *expr.Node { return f.full(height - 1) })
	return n
}

// Grow returns a tree of height at most height. A single-leaf result is
// discarded and regenerated.
func (f *Factory) Grow(height int) *expr.Tree {
	for {
		root := f.GrowSubtree(height)
		if height <= 0 || root.Height() > 0 {
			return expr.NewTree(root)
		}
	}
}

// GrowSubtree is Grow without the leaf rejection, for splicing into an
// existing tree.
func (f *Factory) GrowSubtree(height int) *expr.Node {
	if height <= 0 {
		return f.RandomOperand()
	}
	n := f.RandomNode()
	if n.IsOperator() {
		f.fillChildren(n, func() *expr.Node { return f.GrowSubtree(height - 1) })
	}
	return n
}

func (f *Factory) fillChildren(n *expr.Node, child func() *expr.Node) {
	n.SetLeft(child())
	if n.Operator().Arity() == 2 {
		n.SetRight(child())
	}
}

// RampedHalfAndHalf generates, for every height from 2 to maxHeight, batches
// of one Full and one Grow tree. The result may hold fewer or more than size
// trees; it is never topped up.
func (f *Factory) RampedHalfAndHalf(size, maxHeight int) []*expr.Tree {
	maxHeight = max(maxHeight, 2)
	batch := max(size/((maxHeight-1)*2), 1)
	out := make([]*expr.Tree, 0, batch*2*(maxHeight-1))
	for h := 2; h <= maxHeight; h++ {
		for i := 0; i < batch; i++ {
			out = append(out, f.Full(h), f.Grow(h))
		}
	}
	return out
}

// RampedFull is RampedHalfAndHalf using Full trees only.
func (f *Factory) RampedFull(size, maxHeight int) []*expr.Tree {
	return f.ramped(size, maxHeight, f.Full)
}

// RampedGrow is RampedHalfAndHalf using Grow trees only.
func (f *Factory) RampedGrow(size, maxHeight int) []*expr.Tree {
	return f.ramped(size, maxHeight, f.Grow)
}

func (f *Factory) ramped(size, maxHeight int, build func(int) *expr.Tree) []*expr.Tree {
	maxHeight = max(maxHeight, 2)
	batch := max(size/(maxHeight-1), 1)
	out := make([]*expr.Tree, 0, batch*(maxHeight-1))
	for h := 2; h <= maxHeight; h++ {
		for i := 0; i < batch; i++ {
			out = append(out, build(h))
		}
	}
	return out
}

// Population builds an initial population with method.
func (f *Factory) Population(method Method, size, height int) ([]*expr.Tree, error) {
	if size <= 0 {
		return nil, fmt.Errorf("population size must be > 0")
	}
	switch method {
	case Full:
		return f.repeat(size, height, f.Full), nil
	case Grow:
		return f.repeat(size, height, f.Grow), nil
	case RampedFull:
		return f.RampedFull(size, height), nil
	case RampedGrow:
		return f.RampedGrow(size, height), nil
	case RampedHalfAndHalf:
		return f.RampedHalfAndHalf(size, height), nil
	default:
		return nil, fmt.Errorf("unsupported generation method: %s", method)
	}
}

func (f *Factory) repeat(size, height int, build func(int) *expr.Tree) []*expr.Tree {
	out := make([]*expr.Tree, 0, size)
	for i := 0; i < size; i++ {
		out = append(out, build(height))
	}
	return out
}
