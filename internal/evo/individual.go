package evo

import (
	"math"

	"gpsr/internal/dataset"
	"gpsr/internal/expr"
	"gpsr/internal/fitness"
)

// Individual pairs one expression tree with its fitness against a shared,
// read-only training set.
type Individual struct {
	tree    *expr.Tree
	fitness fitness.Score
	data    dataset.Dataset
}

func NewIndividual(tree *expr.Tree, data dataset.Dataset) *Individual {
	return &Individual{tree: tree, data: data}
}

func (i *Individual) Tree() *expr.Tree { return i.tree }
func (i *Individual) Fitness() fitness.Score { return i.fitness }
func (i *Individual) Height() int { return i.tree.Height() }
func (i *Individual) IsTreeValid() bool { return i.tree.IsValid() }
func (i *Individual) String() string { return i.tree.String() }

// CalculateFitness sums the absolute deviation from every training target.
// A failed evaluation, or a deviation that is not finite, costs
// math.MaxFloat64. The result is stored and returned.
func (i *Individual) CalculateFitness() fitness.Score {
	score := fitness.Unset()
	for idx := 0; idx < i.data.Len(); idx++ {
		sample := i.data.At(idx)
		value, ok := i.tree.Evaluate(sample.Input)
		deviation := math.Abs(value - sample.Target)
		if !ok || math.IsNaN(deviation) || math.IsInf(deviation, 0) {
			deviation = math.MaxFloat64
		}
		score = score.Add(deviation)
	}
	if i.data.Len() == 0 {
		score = fitness.Zero()
	}
	i.fitness = score
	return score
}

// Clone deep-copies the tree; the fitness value carries over.
func (i *Individual) Clone() *Individual {
	return &Individual{tree: i.tree.Clone(), fitness: i.fitness, data: i.data}
}

// markChanged is called after any structural edit of the tree.
func (i *Individual) markChanged() {
	i.tree.ResetValidity()
	i.fitness = fitness.Unset()
}

// Summary captures the reportable state of an individual.
func (i *Individual) Summary() IndividualSummary {
	return IndividualSummary{
		Fitness:    i.fitness,
		Height:     i.Height(),
		Valid:      i.IsTreeValid(),
		Expression: i.String(),
	}
}

type IndividualSummary struct {
	Fitness    fitness.Score
	Height     int
	Valid      bool
	Expression string
}
