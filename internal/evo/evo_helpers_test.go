package evo

import (
	"testing"

	"github.com/stretchr/testify/require"

	"gpsr/internal/dataset"
	"gpsr/internal/expr"
	"gpsr/internal/factory"
	"gpsr/internal/fitness"
	"gpsr/internal/random"
)

type scriptedSource struct {
	t     *testing.T
	draws []int
}

func (s *scriptedSource) Intn(n int) int {
	s.t.Helper()
	require.NotEmpty(s.t, s.draws, "script exhausted")
	v := s.draws[0]
	s.draws = s.draws[1:]
	require.Less(s.t, v, n)
	return v
}

type countingSource struct {
	inner random.Source
	count int
}

func (c *countingSource) Intn(n int) int {
	c.count++
	return c.inner.Intn(n)
}

func fixtureConfig(t *testing.T) Config {
	t.Helper()
	data, err := dataset.Build("two_x_squared_minus_four_over_two", []float64{-5, -1, 0, 1, 5})
	require.NoError(t, err)
	return Config{
		PopulationSize:       10,
		TournamentSize:       3,
		MaxGenerations:       100,
		InitialHeight:        3,
		MaxCrossoverHeight:   6,
		MaxMutationHeight:    2,
		CrossoverProbability: 0.9,
		MutationProbability:  0.1,
		FitnessMarginOfError: 0.001,
		GenerationMethod:     factory.RampedHalfAndHalf,
		ReproductionMethod:   TournamentSelection,
		Operators:            []expr.Operator{expr.Add, expr.Sub, expr.Mul, expr.Div},
		Operands:             expr.IntegerOperands(-9, 9),
		TrainingData:         data,
		RestartThreshold:     DefaultRestartThreshold,
		InjectionRatio:       DefaultInjectionRatio,
	}
}

func newRuntime(t *testing.T, cfg Config, rng random.Source) *Runtime {
	t.Helper()
	rt, err := NewRuntime(cfg, rng, nil)
	require.NoError(t, err)
	return rt
}

func individualWith(rt *Runtime, root *expr.Node, score fitness.Score) *Individual {
	ind := rt.newIndividual(expr.NewTree(root))
	ind.fitness = score
	return ind
}

func add(l, r *expr.Node) *expr.Node {
	return expr.NewOperator(expr.Add, l, r)
}

func mul(l, r *expr.Node) *expr.Node {
	return expr.NewOperator(expr.Mul, l, r)
}

func one() *expr.Node { return expr.NewConst(1) }
func two() *expr.Node { return expr.NewConst(2) }
func x() *expr.Node { return expr.NewVar() }

func crossover(rt *Runtime, a, b *Individual) []*Individual {
	return (&Generation{rt: rt}).Crossover(a, b)
}

func renderAll(g *Generation) []string {
	out := make([]string, g.Size())
	for i, ind := range g.Population() {
		out[i] = ind.String()
	}
	return out
}
