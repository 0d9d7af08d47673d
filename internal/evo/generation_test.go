package evo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gpsr/internal/dataset"
	"gpsr/internal/expr"
	"gpsr/internal/factory"
	"gpsr/internal/fitness"
	"gpsr/internal/random"
)

func TestConfigCounts(t *testing.T) {
	cfg := fixtureConfig(t)
	cfg.PopulationSize = 400
	cfg.CrossoverProbability = 0.9
	cfg.MutationProbability = 0.05
	cfg.MaxGenerations = 500000

	assert.Equal(t, 40, cfg.ReproductionCount())
	assert.Equal(t, 360, cfg.CrossoverCount())
	assert.Equal(t, 20, cfg.MutationCount())
	assert.Equal(t, 500, cfg.InjectionInterval())

	cfg.PopulationSize = 1
	cfg.CrossoverProbability = 1
	assert.Equal(t, 1, cfg.ReproductionCount())
	assert.Equal(t, 2, cfg.CrossoverCount())

	cfg.MaxGenerations = 100
	assert.Equal(t, 1, cfg.InjectionInterval())
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, fixtureConfig(t).Validate())

	cases := map[string]func(*Config){
		"population":   func(c *Config) { c.PopulationSize = 0 },
		"tournament":   func(c *Config) { c.TournamentSize = 0 },
		"generations":  func(c *Config) { c.MaxGenerations = 0 },
		"crossover":    func(c *Config) { c.MaxCrossoverHeight = c.InitialHeight - 1 },
		"mutation":     func(c *Config) { c.MaxMutationHeight = 0 },
		"probability":  func(c *Config) { c.CrossoverProbability = 1.5 },
		"operators":    func(c *Config) { c.Operators = nil },
		"operands":     func(c *Config) { c.Operands = nil },
		"training":     func(c *Config) { c.TrainingData = dataset.Dataset{} },
		"time budget":  func(c *Config) { c.TimeBudget = -1 },
		"margin":       func(c *Config) { c.FitnessMarginOfError = -0.1 },
		"reproduction": func(c *Config) { c.ReproductionMethod = 9 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := fixtureConfig(t)
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestInitialPopulationFixture(t *testing.T) {
	cfg := fixtureConfig(t)
	cfg.PopulationSize = 3
	cfg.GenerationMethod = factory.Full

	build := func(seed int64) *Generation {
		g := NewGeneration(newRuntime(t, cfg, random.NewStream(seed)))
		require.NoError(t, g.Init(context.Background()))
		return g
	}

	first := build(12345)
	require.Equal(t, 3, first.Size())
	assert.Equal(t, "((7+-8)/(-7/-3))/((-5*8)-(3-7))", first.Population()[0].String())
	assert.Equal(t, 3, first.Population()[0].Height())
	for _, ind := range first.Population() {
		assert.False(t, ind.Fitness().IsUnset())
	}

	assert.Equal(t, renderAll(first), renderAll(build(12345)))
	assert.NotEqual(t, renderAll(first), renderAll(build(54321)))
}

func TestBestIndividualFirstMinimumWins(t *testing.T) {
	rt := newRuntime(t, fixtureConfig(t), random.NewStream(1))
	a := individualWith(rt, one(), fitness.Valid(3))
	b := individualWith(rt, two(), fitness.Valid(1))
	c := individualWith(rt, x(), fitness.Valid(1))
	d := individualWith(rt, x(), fitness.Invalid())
	g := &Generation{rt: rt, population: []*Individual{d, a, b, c}}
	assert.Same(t, b, g.BestIndividual())
}

func TestNaturalSelectionIsStableAndCloned(t *testing.T) {
	rt := newRuntime(t, fixtureConfig(t), random.NewStream(1))
	a := individualWith(rt, one(), fitness.Valid(3))
	b := individualWith(rt, two(), fitness.Valid(1))
	c := individualWith(rt, x(), fitness.Valid(1))
	d := individualWith(rt, x(), fitness.Unset())
	g := &Generation{rt: rt, population: []*Individual{d, a, b, c}}

	picked := g.NaturalSelection(3)
	require.Len(t, picked, 3)
	assert.Equal(t, []string{"2", "x", "1"}, []string{picked[0].String(), picked[1].String(), picked[2].String()})
	assert.NotSame(t, b, picked[0])
	assert.Same(t, d, g.Population()[0], "population order is untouched")

	assert.Len(t, g.NaturalSelection(10), 4)
}

func TestTournamentSelectionPicksFittestDrawn(t *testing.T) {
	cfg := fixtureConfig(t)
	cfg.TournamentSize = 2
	src := &scriptedSource{t: t}
	rt := newRuntime(t, cfg, src)
	a := individualWith(rt, one(), fitness.Valid(5))
	b := individualWith(rt, two(), fitness.Valid(2))
	c := individualWith(rt, x(), fitness.Invalid())
	g := &Generation{rt: rt, population: []*Individual{a, b, c}}

	src.draws = []int{0, 1}
	winner := g.TournamentSelection()
	assert.Equal(t, "2", winner.String())
	assert.NotSame(t, b, winner)

	// An invalid winner forfeits and the tournament reruns.
	src.draws = []int{2, 2, 0, 0}
	assert.Equal(t, "1", g.TournamentSelection().String())
	assert.Empty(t, src.draws)
}

func TestTournamentSelectionRejectsStructurallyInvalidTrees(t *testing.T) {
	cfg := fixtureConfig(t)
	cfg.TournamentSize = 1
	src := &scriptedSource{t: t}
	rt := newRuntime(t, cfg, src)
	sine := individualWith(rt, expr.NewOperator(expr.Sin, x()), fitness.Valid(0))
	sine.Tree().Evaluate(1)
	require.False(t, sine.IsTreeValid())
	plain := individualWith(rt, one(), fitness.Valid(4))
	g := &Generation{rt: rt, population: []*Individual{sine, plain}}

	src.draws = []int{0, 1}
	assert.Equal(t, "1", g.TournamentSelection().String())
}

type fallbackCounter struct {
	NopObserver
	fallbacks int
}

func (f *fallbackCounter) OnTournamentFallback() { f.fallbacks++ }

func TestTournamentSelectionFallsBackToGrownTree(t *testing.T) {
	cfg := fixtureConfig(t)
	cfg.TournamentSize = 3
	src := &countingSource{inner: random.NewStream(3)}
	rt := newRuntime(t, cfg, src)
	counter := &fallbackCounter{}
	rt.Observer = counter

	g := &Generation{rt: rt, population: []*Individual{
		individualWith(rt, one(), fitness.Invalid()),
		individualWith(rt, two(), fitness.Unset()),
	}}

	ind := g.TournamentSelection()
	assert.True(t, ind.Fitness().IsUnset())
	assert.GreaterOrEqual(t, ind.Height(), 1)
	assert.LessOrEqual(t, ind.Height(), cfg.InitialHeight)
	assert.Equal(t, 1, counter.fallbacks)
	// six tournaments of three draws each precede the grown tree
	assert.Greater(t, src.count, (maxTournamentRetries+1)*cfg.TournamentSize)
}

func TestCrossoverSwapsSubtrees(t *testing.T) {
	src := &scriptedSource{t: t}
	rt := newRuntime(t, fixtureConfig(t), src)
	px := individualWith(rt, add(one(), two()), fitness.Valid(1))
	py := individualWith(rt, mul(x(), x()), fitness.Valid(2))

	// post-order of 1+2 is [1 2 +]; of x*x is [x x *]
	src.draws = []int{1, 2}
	out := crossover(rt, px, py)
	require.Len(t, out, 2)
	assert.Equal(t, "1+(x*x)", out[0].String())
	assert.Equal(t, "2", out[1].String())
	assert.True(t, out[0].Fitness().IsUnset())
	assert.True(t, out[1].Fitness().IsUnset())

	assert.Equal(t, "1+2", px.String())
	assert.Equal(t, "x*x", py.String())
	assert.Equal(t, 1.0, px.Fitness().Value())
}

func TestCrossoverHeightGuard(t *testing.T) {
	cfg := fixtureConfig(t)
	cfg.InitialHeight = 1
	cfg.MaxCrossoverHeight = 1
	cfg.Operators = []expr.Operator{expr.Add}
	cfg.Operands = []expr.Operand{expr.Const(1), expr.Var()}
	src := &scriptedSource{t: t}
	rt := newRuntime(t, cfg, src)

	px := individualWith(rt, add(one(), two()), fitness.Valid(1))
	py := individualWith(rt, add(mul(x(), x()), x()), fitness.Valid(2))

	// swap "1" with "x*x", then grow a replacement for the too-tall first child
	src.draws = []int{0, 2, 1, 0, 0, 1}
	out := crossover(rt, px, py)
	require.Len(t, out, 2)
	assert.Equal(t, "1+x", out[0].String())
	assert.Equal(t, "1+x", out[1].String())
	for _, child := range out {
		assert.LessOrEqual(t, child.Height(), cfg.MaxCrossoverHeight)
		assert.True(t, child.Fitness().IsUnset())
	}
	assert.Empty(t, src.draws)
}

func TestCrossoverSkipsLeafParents(t *testing.T) {
	src := &scriptedSource{t: t}
	rt := newRuntime(t, fixtureConfig(t), src)
	px := individualWith(rt, one(), fitness.Valid(1))
	py := individualWith(rt, add(x(), x()), fitness.Valid(2))

	out := crossover(rt, px, py)
	require.Len(t, out, 2)
	assert.Equal(t, "1", out[0].String())
	assert.Equal(t, "x+x", out[1].String())
	assert.Equal(t, 2.0, out[1].Fitness().Value())
}

func TestMutateReplacesSubtree(t *testing.T) {
	cfg := fixtureConfig(t)
	cfg.Operators = []expr.Operator{expr.Add}
	cfg.Operands = []expr.Operand{expr.Const(1), expr.Var()}
	src := &scriptedSource{t: t}
	rt := newRuntime(t, cfg, src)
	g := &Generation{rt: rt}

	ind := individualWith(rt, add(one(), two()), fitness.Valid(3))
	// node 2, height 1+0, coin=0 -> operand x
	src.draws = []int{1, 0, 0, 1}
	g.Mutate(ind)
	assert.Equal(t, "1+x", ind.String())
	assert.True(t, ind.Fitness().IsUnset())

	// mutating the root replaces the whole tree
	src.draws = []int{2, 1, 1, 0, 1, 0, 0, 0, 0, 0}
	g.Mutate(ind)
	assert.Equal(t, "(1+1)+1", ind.String())
	assert.Nil(t, ind.Tree().Root().Parent())
}

func TestMutateTouchesOnlyTarget(t *testing.T) {
	g := NewGeneration(newRuntime(t, fixtureConfig(t), random.NewStream(12345)))
	require.NoError(t, g.Init(context.Background()))
	pop := g.Population()
	require.Greater(t, len(pop), 2)

	before := renderAll(g)
	scores := make([]fitness.Score, len(pop))
	for i, ind := range pop {
		scores[i] = ind.Fitness()
	}

	const k = 2
	g.Mutate(pop[k])
	assert.True(t, pop[k].Fitness().IsUnset())
	for i, ind := range pop {
		if i == k {
			continue
		}
		assert.Equal(t, before[i], ind.String(), "individual %d", i)
		assert.Equal(t, scores[i], ind.Fitness(), "individual %d", i)
	}
}

func TestNextGenerationComposition(t *testing.T) {
	cfg := fixtureConfig(t)
	g := NewGeneration(newRuntime(t, cfg, random.NewStream(11)))
	require.NoError(t, g.Init(context.Background()))
	before := renderAll(g)
	bestBefore := g.BestIndividual().Fitness()

	next, err := g.NextGeneration(context.Background(), false)
	require.NoError(t, err)
	// R=1, crossover pairs until >= 9 -> 10, plus the elite
	assert.Equal(t, 12, next.Size())
	assert.Equal(t, before, renderAll(g))
	for _, ind := range next.Population() {
		assert.False(t, ind.Fitness().IsUnset())
	}
	assert.False(t, bestBefore.Less(next.BestIndividual().Fitness()))

	injected, err := g.NextGeneration(context.Background(), true)
	require.NoError(t, err)
	// RampedHalfAndHalf(1, 6) yields a batch per height 2..6
	assert.Equal(t, 10+10+1, injected.Size())
}

func TestNextGenerationElitismNeverRegresses(t *testing.T) {
	for _, method := range []ReproductionMethod{NaturalSelection, TournamentSelection} {
		cfg := fixtureConfig(t)
		cfg.ReproductionMethod = method
		cfg.PopulationSize = 30
		g := NewGeneration(newRuntime(t, cfg, random.NewStream(5)))
		require.NoError(t, g.Init(context.Background()))

		best := g.BestIndividual().Fitness()
		for i := 0; i < 25; i++ {
			next, err := g.NextGeneration(context.Background(), i%7 == 6)
			require.NoError(t, err)
			current := next.BestIndividual().Fitness()
			require.False(t, best.Less(current), "generation %d regressed: %s -> %s", i, best, current)
			best, g = current, next
		}
	}
}

func TestNextGenerationIsDeterministic(t *testing.T) {
	run := func() []string {
		cfg := fixtureConfig(t)
		g := NewGeneration(newRuntime(t, cfg, random.NewStream(99)))
		require.NoError(t, g.Init(context.Background()))
		for i := 0; i < 5; i++ {
			next, err := g.NextGeneration(context.Background(), i == 3)
			require.NoError(t, err)
			g = next
		}
		return renderAll(g)
	}
	assert.Equal(t, run(), run())
}

func TestNextGenerationRejectsEmptyPopulation(t *testing.T) {
	g := NewGeneration(newRuntime(t, fixtureConfig(t), random.NewStream(1)))
	_, err := g.NextGeneration(context.Background(), false)
	assert.Error(t, err)
}
