package expr

import (
	"fmt"
	"math"
	"strings"
)

// Sentinel is the value produced by an evaluation that failed.
const Sentinel = math.MaxFloat64

type Kind uint8

const (
	KindOperand Kind = iota
	KindOperator
)

// Side records which slot of its parent a node occupies.
type Side uint8

const (
	SideRoot Side = iota
	SideLeft
	SideRight
)

// Node is one vertex of an expression tree. A node owns its children; the
// parent pointer is a back-reference only and is rebuilt on Clone.
type Node struct {
	kind    Kind
	op      Operator
	operand Operand

	left   *Node
	right  *Node
	parent *Node
	side   Side

	valid bool
}

// NewOperator builds an operator node. Children are optional at construction
// but when given their count must match the operator's arity.
func NewOperator(op Operator, children ...*Node) *Node {
	arity := op.Arity()
	if len(children) != 0 && len(children) != arity {
		panic(fmt.Sprintf("operator %s takes %d children, got %d", op, arity, len(children)))
	}
	n := &Node{kind: KindOperator, op: op, valid: true}
	if len(children) > 0 {
		n.SetLeft(children[0])
	}
	if len(children) > 1 {
		n.SetRight(children[1])
	}
	return n
}

func NewOperand(operand Operand) *Node {
	return &Node{kind: KindOperand, operand: operand, valid: true}
}

func NewConst(value float64) *Node {
	return NewOperand(Const(value))
}

func NewVar() *Node {
	return NewOperand(Var())
}

func (n *Node) Kind() Kind { return n.kind }
func (n *Node) IsOperator() bool { return n.kind == KindOperator }
func (n *Node) Operator() Operator { return n.op }
func (n *Node) Operand() Operand { return n.operand }
func (n *Node) Left() *Node { return n.left }
func (n *Node) Right() *Node { return n.right }
func (n *Node) Parent() *Node { return n.parent }
func (n *Node) Side() Side { return n.side }
func (n *Node) IsRoot() bool { return n.parent == nil }
func (n *Node) IsValid() bool { return n.valid }

func (n *Node) NumberOfChildren() int {
	count := 0
	if n.left != nil {
		count++
	}
	if n.right != nil {
		count++
	}
	return count
}

// SetLeft attaches child as the first operand of n.
func (n *Node) SetLeft(child *Node) {
	if n.kind != KindOperator {
		panic("cannot attach a child to an operand node")
	}
	n.left = child
	if child != nil {
		child.parent = n
		child.side = SideLeft
	}
}

// SetRight attaches child as the second operand of a binary operator.
func (n *Node) SetRight(child *Node) {
	if n.kind != KindOperator {
		panic("cannot attach a child to an operand node")
	}
	if n.op.Arity() < 2 {
		panic(fmt.Sprintf("operator %s has no right operand", n.op))
	}
	n.right = child
	if child != nil {
		child.parent = n
		child.side = SideRight
	}
}

// Children returns the attached children, left first.
func (n *Node) Children() []*Node {
	out := make([]*Node, 0, 2)
	if n.left != nil {
		out = append(out, n.left)
	}
	if n.right != nil {
		out = append(out, n.right)
	}
	return out
}

// Height is 0 for a leaf and 1 + the tallest child otherwise.
func (n *Node) Height() int {
	if n.kind == KindOperand {
		return 0
	}
	h := 0
	for _, child := range n.Children() {
		h = max(h, child.Height())
	}
	return h + 1
}

// Invalidate clears the validity flag on n and all of its ancestors.
func (n *Node) Invalidate() {
	for cur := n; cur != nil; cur = cur.parent {
		cur.valid = false
	}
}

func (n *Node) resetValidity() {
	n.valid = true
	for _, child := range n.Children() {
		child.resetValidity()
	}
}

// Evaluate computes the subtree's value at x. ok is false when a division by
// zero occurred somewhere below; the value is then Sentinel.
func (n *Node) Evaluate(x float64) (float64, bool) {
	switch n.kind {
	case KindOperand:
		return n.operand.Resolve(x), true
	case KindOperator:
		return n.evaluateOperator(x)
	default:
		panic(fmt.Sprintf("unknown node kind: %d", n.kind))
	}
}

func (n *Node) evaluateOperator(x float64) (float64, bool) {
	if n.left == nil || (n.op.Arity() == 2 && n.right == nil) {
		panic(fmt.Sprintf("operator %s is missing children", n.op))
	}

	l, lok := n.left.Evaluate(x)
	if n.op.Arity() == 1 {
		if !lok {
			return Sentinel, false
		}
		n.Invalidate()
		switch n.op {
		case Sin:
			return math.Sin(l), true
		case Cos:
			return math.Cos(l), true
		default:
			panic(fmt.Sprintf("unknown unary operator: %s", n.op))
		}
	}

	r, rok := n.right.Evaluate(x)
	if !lok || !rok {
		return Sentinel, false
	}
	switch n.op {
	case Add:
		return l + r, true
	case Sub:
		return l - r, true
	case Mul:
		return l * r, true
	case Div:
		if r == 0 {
			n.Invalidate()
			return Sentinel, false
		}
		return l / r, true
	case Pow:
		n.Invalidate()
		return math.Pow(l, math.Min(r, MaxExponent)), true
	default:
		panic(fmt.Sprintf("unknown binary operator: %s", n.op))
	}
}

// Clone deep-copies the subtree. The copy is detached: its parent is nil.
func (n *Node) Clone() *Node {
	out := &Node{kind: n.kind, op: n.op, operand: n.operand, valid: n.valid}
	if n.left != nil {
		out.SetLeft(n.left.Clone())
	}
	if n.right != nil {
		out.SetRight(n.right.Clone())
	}
	return out
}

// Equal compares node payloads only, ignoring children and position.
func (n *Node) Equal(other *Node) bool {
	if n == nil || other == nil {
		return n == other
	}
	if n.kind != other.kind {
		return false
	}
	if n.kind == KindOperator {
		return n.op == other.op
	}
	return n.operand == other.operand
}

func (n *Node) String() string {
	var b strings.Builder
	n.render(&b, true)
	return b.String()
}

func (n *Node) render(b *strings.Builder, top bool) {
	if n.kind == KindOperand {
		b.WriteString(n.operand.String())
		return
	}
	if n.op.Arity() == 1 {
		b.WriteString(n.op.Symbol())
		b.WriteByte('(')
		if n.left != nil {
			n.left.render(b, true)
		}
		b.WriteByte(')')
		return
	}
	if !top {
		b.WriteByte('(')
	}
	if n.left != nil {
		n.left.render(b, false)
	}
	b.WriteString(n.op.Symbol())
	if n.right != nil {
		n.right.render(b, false)
	}
	if !top {
		b.WriteByte(')')
	}
}

func (n *Node) detach() {
	n.parent = nil
	n.side = SideRoot
}
