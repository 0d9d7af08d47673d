package evo

import (
	"gpsr/internal/expr"
)

// Crossover swaps one randomly chosen subtree between clones of x and y and
// returns the two offspring. Offspring taller than MaxCrossoverHeight are
// replaced by freshly grown individuals. When either parent is a single leaf
// the swap is skipped and the clones are returned unchanged. The parents are
// never modified.
func (g *Generation) Crossover(x, y *Individual) []*Individual {
	a, b := x.Clone(), y.Clone()
	if a.Height() == 0 || b.Height() == 0 {
		return []*Individual{a, b}
	}

	na := a.tree.RandomNode(g.rt.Rand)
	nb := b.tree.RandomNode(g.rt.Rand)
	expr.SwapSubtrees(a.tree, na, b.tree, nb)

	out := []*Individual{a, b}
	for i, child := range out {
		if child.Height() > g.rt.Config.MaxCrossoverHeight {
			out[i] = g.rt.newIndividual(g.rt.Factory.Grow(g.rt.Config.InitialHeight))
			continue
		}
		child.markChanged()
	}
	return out
}

// Mutate replaces a random subtree of ind with a grown subtree of height in
// [1, MaxMutationHeight]. The individual's fitness is reset.
func (g *Generation) Mutate(ind *Individual) {
	target := ind.tree.RandomNode(g.rt.Rand)
	height := 1 + g.rt.Rand.Intn(g.rt.Config.MaxMutationHeight)
	ind.tree.Replace(target, g.rt.Factory.GrowSubtree(height))
	ind.markChanged()
}
