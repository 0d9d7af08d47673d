package evo

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Scorer computes fitness for a batch of individuals in place.
type Scorer interface {
	Score(ctx context.Context, population []*Individual) error
}

// SerialScorer evaluates individuals one after another.
type SerialScorer struct{}

func (SerialScorer) Score(ctx context.Context, population []*Individual) error {
	for _, ind := range population {
		if err := ctx.Err(); err != nil {
			return err
		}
		ind.CalculateFitness()
	}
	return nil
}

// ParallelScorer evaluates individuals on a bounded set of goroutines. Each
// individual owns its tree and writes only its own fitness, so results are
// identical to SerialScorer regardless of scheduling.
type ParallelScorer struct {
	Workers int
}

func (s ParallelScorer) Score(ctx context.Context, population []*Individual) error {
	if s.Workers <= 1 || len(population) < 2 {
		return SerialScorer{}.Score(ctx, population)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(s.Workers, len(population)))
	for _, ind := range population {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ind.CalculateFitness()
			return nil
		})
	}
	return g.Wait()
}

// NewScorer picks the scorer matching a worker count.
func NewScorer(workers int) Scorer {
	if workers > 1 {
		return ParallelScorer{Workers: workers}
	}
	return SerialScorer{}
}
