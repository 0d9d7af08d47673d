package evo

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"gpsr/internal/expr"
	"gpsr/internal/factory"
	"gpsr/internal/random"
)

// Runtime bundles the collaborators every generation of a run shares.
type Runtime struct {
	Config  Config
	Rand    random.Source
	Factory *factory.Factory
	Scorer  Scorer
	Logger  *slog.Logger
	// Observer, when set, is told about tournament fallbacks.
	Observer Observer
}

// NewRuntime validates cfg and wires a factory and scorer around rng.
func NewRuntime(cfg Config, rng random.Source, logger *slog.Logger) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}
	f, err := factory.New(rng, cfg.Operators, cfg.Operands)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runtime{
		Config:  cfg,
		Rand:    rng,
		Factory: f,
		Scorer:  NewScorer(cfg.Workers),
		Logger:  logger,
	}, nil
}

func (rt *Runtime) newIndividual(tree *expr.Tree) *Individual {
	return NewIndividual(tree, rt.Config.TrainingData)
}

func (rt *Runtime) wrap(trees []*expr.Tree) []*Individual {
	out := make([]*Individual, len(trees))
	for i, tree := range trees {
		out[i] = rt.newIndividual(tree)
	}
	return out
}

// Generation is one population snapshot. Its order is insertion order; no
// operation here reorders the slice in place.
type Generation struct {
	rt         *Runtime
	population []*Individual
}

func NewGeneration(rt *Runtime) *Generation {
	return &Generation{rt: rt}
}

// Init fills the population with the configured generation method and scores it.
func (g *Generation) Init(ctx context.Context) error {
	cfg := g.rt.Config
	trees, err := g.rt.Factory.Population(cfg.GenerationMethod, cfg.PopulationSize, cfg.InitialHeight)
	if err != nil {
		return err
	}
	g.population = g.rt.wrap(trees)
	return g.score(ctx)
}

func (g *Generation) score(ctx context.Context) error {
	if err := g.rt.Scorer.Score(ctx, g.population); err != nil {
		return fmt.Errorf("score generation: %w", err)
	}
	return nil
}

func (g *Generation) Population() []*Individual {
	return g.population
}

func (g *Generation) Size() int {
	return len(g.population)
}

// BestIndividual returns the first individual with the lowest fitness.
func (g *Generation) BestIndividual() *Individual {
	if len(g.population) == 0 {
		return nil
	}
	best := g.population[0]
	for _, ind := range g.population[1:] {
		if ind.Fitness().Less(best.Fitness()) {
			best = ind
		}
	}
	return best
}

// NextGeneration breeds a successor: reproduction (or injection of fresh
// trees), crossover, mutation, then the elite is appended and everything is
// rescored. The receiver is left untouched.
func (g *Generation) NextGeneration(ctx context.Context, injectNewDNA bool) (*Generation, error) {
	if len(g.population) == 0 {
		return nil, fmt.Errorf("generation is empty")
	}
	cfg := g.rt.Config
	elite := g.BestIndividual().Clone()

	reproduceCount := cfg.ReproductionCount()
	var next []*Individual
	switch {
	case injectNewDNA:
		next = g.rt.wrap(g.rt.Factory.RampedHalfAndHalf(reproduceCount, cfg.MaxCrossoverHeight))
	case cfg.ReproductionMethod == NaturalSelection:
		next = g.NaturalSelection(reproduceCount)
	default:
		next = make([]*Individual, 0, reproduceCount)
		for i := 0; i < reproduceCount; i++ {
			next = append(next, g.TournamentSelection())
		}
	}

	crossoverCount := cfg.CrossoverCount()
	crossed := make([]*Individual, 0, crossoverCount+1)
	for len(crossed) < crossoverCount {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		x := g.TournamentSelection()
		y := g.TournamentSelection()
		crossed = append(crossed, g.Crossover(x, y)...)
	}
	next = append(next, crossed...)

	for i := cfg.MutationCount(); i > 0; i-- {
		g.Mutate(next[g.rt.Rand.Intn(len(next))])
	}

	next = append(next, elite)
	out := &Generation{rt: g.rt, population: next}
	if err := out.score(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

func (g *Generation) String() string {
	var b strings.Builder
	for i, ind := range g.population {
		fmt.Fprintf(&b, "%d\t%s\t%s\n", i, ind.Fitness(), ind)
	}
	return b.String()
}
