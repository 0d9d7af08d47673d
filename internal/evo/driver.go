package evo

import (
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"gonum.org/v1/gonum/stat"
)

// State is where a run ended up.
type State uint8

const (
	StateRunning State = iota
	StateConverged
	StateBudgetExhausted
	StateInterrupted
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "RUNNING"
	case StateConverged:
		return "CONVERGED"
	case StateBudgetExhausted:
		return "BUDGET_EXHAUSTED"
	case StateInterrupted:
		return "INTERRUPTED"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// RunResult is everything a finished run reports.
type RunResult struct {
	State       State
	Generations int
	Elapsed     time.Duration
	First       IndividualSummary
	Final       IndividualSummary
	BestHistory []float64
	Injections  int
	Restarts    int
}

// Driver steps generations until the best individual fits the training data,
// the generation or time budget runs out, or the context is cancelled. It
// escapes stagnation by injecting fresh trees and, when that keeps failing, by
// restarting from a new initial population.
type Driver struct {
	rt       *Runtime
	observer Observer
	now      func() time.Time
}

type DriverOption func(*Driver)

func WithObserver(o Observer) DriverOption {
	return func(d *Driver) {
		if o != nil {
			d.observer = o
		}
	}
}

// WithClock replaces time.Now for elapsed-time accounting.
func WithClock(now func() time.Time) DriverOption {
	return func(d *Driver) {
		if now != nil {
			d.now = now
		}
	}
}

func NewDriver(rt *Runtime, opts ...DriverOption) *Driver {
	d := &Driver{rt: rt, observer: NopObserver{}, now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	rt.Observer = d.observer
	return d
}

func (d *Driver) Run(ctx context.Context) (RunResult, error) {
	cfg := d.rt.Config
	log := d.rt.Logger
	start := d.now()

	gen := NewGeneration(d.rt)
	if err := gen.Init(ctx); err != nil {
		return RunResult{}, fmt.Errorf("initialize population: %w", err)
	}
	generation := 1
	best := gen.BestIndividual()

	result := RunResult{First: best.Summary()}
	result.BestHistory = append(result.BestHistory, historyValue(best))
	d.observer.OnGeneration(d.report(gen, generation, StepInit, 0, 0, d.now().Sub(start)))
	log.Info("population initialized",
		"size", gen.Size(),
		"method", cfg.GenerationMethod.String(),
		"best_fitness", best.Fitness().String(),
		"best", best.String(),
	)

	duplicateCount, injectCount := 0, 0
	state := StateRunning
	for state == StateRunning {
		switch {
		case d.converged(best):
			state = StateConverged
			continue
		case generation >= cfg.MaxGenerations:
			state = StateBudgetExhausted
			continue
		case cfg.TimeBudget > 0 && d.now().Sub(start) > cfg.TimeBudget:
			state = StateBudgetExhausted
			continue
		case ctx.Err() != nil:
			state = StateInterrupted
			continue
		}

		step := d.nextStep(duplicateCount, injectCount)
		stepStart := d.now()
		var (
			next *Generation
			err  error
		)
		switch step {
		case StepRestart:
			log.Warn("restarting population", "generation", generation+1, "injections", injectCount)
			next = NewGeneration(d.rt)
			err = next.Init(ctx)
			duplicateCount, injectCount = 0, 0
			result.Restarts++
		case StepInjectDNA:
			log.Warn("injecting new trees", "generation", generation+1, "stagnant_generations", duplicateCount)
			next, err = gen.NextGeneration(ctx, true)
			injectCount++
			result.Injections++
		default:
			next, err = gen.NextGeneration(ctx, false)
		}
		if err != nil {
			if ctx.Err() != nil {
				state = StateInterrupted
				continue
			}
			return result, fmt.Errorf("generation %d: %w", generation+1, err)
		}

		gen = next
		generation++
		nextBest := gen.BestIndividual()
		if nextBest.Fitness().Equal(best.Fitness()) {
			duplicateCount++
		} else {
			duplicateCount, injectCount = 0, 0
		}
		best = nextBest

		result.BestHistory = append(result.BestHistory, historyValue(best))
		d.observer.OnGeneration(d.report(gen, generation, step, duplicateCount, injectCount, d.now().Sub(stepStart)))
		log.Debug("generation",
			"generation", generation,
			"step", step.String(),
			"best_fitness", best.Fitness().String(),
			"height", best.Height(),
		)
	}

	result.State = state
	result.Generations = generation
	result.Elapsed = d.now().Sub(start)
	result.Final = best.Summary()
	log.Info("run finished",
		"state", state.String(),
		"generations", generation,
		"elapsed", result.Elapsed,
		"best_fitness", best.Fitness().String(),
		"best", best.String(),
	)
	d.observer.OnRunComplete(result)
	return result, nil
}

func (d *Driver) nextStep(duplicateCount, injectCount int) Step {
	cfg := d.rt.Config
	switch {
	case injectCount > cfg.RestartThreshold:
		return StepRestart
	case duplicateCount/cfg.InjectionInterval() > injectCount:
		return StepInjectDNA
	default:
		return StepEvolve
	}
}

func (d *Driver) converged(best *Individual) bool {
	f := best.Fitness()
	return f.IsValid() && f.Value() <= d.rt.Config.FitnessMarginOfError && best.IsTreeValid()
}

func (d *Driver) report(gen *Generation, generation int, step Step, duplicateCount, injectCount int, elapsed time.Duration) GenerationReport {
	valid := make([]float64, 0, gen.Size())
	invalid := 0
	for _, ind := range gen.Population() {
		if !ind.Fitness().IsValid() || !ind.IsTreeValid() {
			invalid++
		}
		if ind.Fitness().IsValid() {
			valid = append(valid, ind.Fitness().Value())
		}
	}
	median := math.MaxFloat64
	if len(valid) > 0 {
		slices.Sort(valid)
		median = stat.Quantile(0.5, stat.Empirical, valid, nil)
	}
	return GenerationReport{
		Generation:     generation,
		Step:           step,
		Best:           gen.BestIndividual().Summary(),
		MedianFitness:  median,
		InvalidCount:   invalid,
		PopulationSize: gen.Size(),
		DuplicateCount: duplicateCount,
		InjectCount:    injectCount,
		Duration:       elapsed,
	}
}

func historyValue(best *Individual) float64 {
	if !best.Fitness().IsValid() {
		return math.MaxFloat64
	}
	return best.Fitness().Value()
}
