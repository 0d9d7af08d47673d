package expr

import (
	"gpsr/internal/random"
)

// Tree exclusively owns a root node. Height, validity and rendering all derive
// from the root.
type Tree struct {
	root *Node
}

func NewTree(root *Node) *Tree {
	if root == nil {
		panic("tree root is required")
	}
	root.detach()
	return &Tree{root: root}
}

func (t *Tree) Root() *Node {
	return t.root
}

func (t *Tree) Height() int {
	return t.root.Height()
}

func (t *Tree) IsValid() bool {
	return t.root.IsValid()
}

// Evaluate computes the tree at x; see Node.Evaluate.
func (t *Tree) Evaluate(x float64) (float64, bool) {
	return t.root.Evaluate(x)
}

// ResetValidity marks every node valid again.
func (t *Tree) ResetValidity() {
	t.root.resetValidity()
}

func (t *Tree) Clone() *Tree {
	return &Tree{root: t.root.Clone()}
}

func (t *Tree) String() string {
	return t.root.String()
}

// PostOrder lists every node, children before their parent, left before right.
func (t *Tree) PostOrder() []*Node {
	out := make([]*Node, 0, 16)
	var walk func(*Node)
	walk = func(n *Node) {
		if n.left != nil {
			walk(n.left)
		}
		if n.right != nil {
			walk(n.right)
		}
		out = append(out, n)
	}
	walk(t.root)
	return out
}

// Size is the number of nodes in the tree.
func (t *Tree) Size() int {
	return len(t.PostOrder())
}

// RandomNode picks a node uniformly from the post-order listing with a single draw.
func (t *Tree) RandomNode(rng random.Source) *Node {
	nodes := t.PostOrder()
	return nodes[rng.Intn(len(nodes))]
}

// Replace splices replacement into the slot target occupies. Replacing the
// root makes replacement the new root. target is left detached.
func (t *Tree) Replace(target, replacement *Node) {
	parent, side := target.parent, target.side
	target.detach()
	t.place(parent, side, replacement)
}

func (t *Tree) place(parent *Node, side Side, n *Node) {
	switch {
	case parent == nil:
		n.detach()
		t.root = n
	case side == SideLeft:
		parent.SetLeft(n)
	case side == SideRight:
		parent.SetRight(n)
	default:
		panic("non-root node without a parent slot")
	}
}

// SwapSubtrees exchanges the subtree rooted at na in a with the one rooted at
// nb in b. Either node may be a root.
func SwapSubtrees(a *Tree, na *Node, b *Tree, nb *Node) {
	pa, sa := na.parent, na.side
	pb, sb := nb.parent, nb.side
	na.detach()
	nb.detach()
	a.place(pa, sa, nb)
	b.place(pb, sb, na)
}

// Equal reports structural equality: same shape and same payload at every node.
func (t *Tree) Equal(other *Tree) bool {
	if t == nil || other == nil {
		return t == other
	}
	return subtreeEqual(t.root, other.root)
}

func subtreeEqual(a, b *Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(b) && subtreeEqual(a.left, b.left) && subtreeEqual(a.right, b.right)
}
