package evo

import (
	"fmt"
	"math"
	"strings"
	"time"

	"gpsr/internal/dataset"
	"gpsr/internal/expr"
	"gpsr/internal/factory"
)

// ReproductionMethod selects how the reproduction share of a new generation is
// chosen.
type ReproductionMethod uint8

const (
	NaturalSelection ReproductionMethod = iota
	TournamentSelection
)

func (m ReproductionMethod) String() string {
	switch m {
	case NaturalSelection:
		return "NATURAL_SELECTION"
	case TournamentSelection:
		return "TOURNAMENT_SELECTION"
	default:
		return fmt.Sprintf("ReproductionMethod(%d)", uint8(m))
	}
}

func ParseReproductionMethod(raw string) (ReproductionMethod, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "NATURAL_SELECTION":
		return NaturalSelection, nil
	case "TOURNAMENT_SELECTION":
		return TournamentSelection, nil
	default:
		return 0, fmt.Errorf("unknown reproduction method: %q", raw)
	}
}

const (
	DefaultRestartThreshold = 10
	DefaultInjectionRatio   = 0.001

	// maxTournamentRetries bounds how many times a tournament is rerun when
	// its winner is unusable.
	maxTournamentRetries = 5
)

// Config is the read-only snapshot a run is built from.
type Config struct {
	PopulationSize int
	TournamentSize int
	MaxGenerations int

	InitialHeight      int
	MaxCrossoverHeight int
	MaxMutationHeight  int

	CrossoverProbability float64
	MutationProbability  float64
	FitnessMarginOfError float64

	GenerationMethod   factory.Method
	ReproductionMethod ReproductionMethod

	Operators    []expr.Operator
	Operands     []expr.Operand
	TrainingData dataset.Dataset

	// Workers bounds concurrent fitness evaluation; values below 2 score serially.
	Workers int
	// TimeBudget stops a run once exceeded; zero disables the check.
	TimeBudget time.Duration

	RestartThreshold int
	InjectionRatio   float64
}

// Validate reports the first setting that cannot drive a run.
func (c Config) Validate() error {
	if c.PopulationSize <= 0 {
		return fmt.Errorf("population size must be > 0")
	}
	if c.TournamentSize <= 0 {
		return fmt.Errorf("tournament size must be > 0")
	}
	if c.MaxGenerations <= 0 {
		return fmt.Errorf("max generations must be > 0")
	}
	if c.InitialHeight < 1 {
		return fmt.Errorf("initial height must be >= 1")
	}
	if c.MaxCrossoverHeight < c.InitialHeight {
		return fmt.Errorf("max crossover height must be >= initial height")
	}
	if c.MaxMutationHeight < 1 {
		return fmt.Errorf("max mutation height must be >= 1")
	}
	if c.CrossoverProbability < 0 || c.CrossoverProbability > 1 {
		return fmt.Errorf("crossover probability must be in [0, 1]")
	}
	if c.MutationProbability < 0 || c.MutationProbability > 1 {
		return fmt.Errorf("mutation probability must be in [0, 1]")
	}
	if c.FitnessMarginOfError < 0 || math.IsNaN(c.FitnessMarginOfError) {
		return fmt.Errorf("fitness margin of error must be >= 0")
	}
	if c.GenerationMethod > factory.RampedHalfAndHalf {
		return fmt.Errorf("unsupported generation method: %s", c.GenerationMethod)
	}
	if c.ReproductionMethod > TournamentSelection {
		return fmt.Errorf("unsupported reproduction method: %s", c.ReproductionMethod)
	}
	if len(c.Operators) == 0 {
		return fmt.Errorf("at least one operator is required")
	}
	if len(c.Operands) == 0 {
		return fmt.Errorf("at least one operand is required")
	}
	if c.TrainingData.Len() == 0 {
		return fmt.Errorf("training data is required")
	}
	if c.TimeBudget < 0 {
		return fmt.Errorf("time budget must be >= 0")
	}
	if c.RestartThreshold < 0 {
		return fmt.Errorf("restart threshold must be >= 0")
	}
	if c.InjectionRatio < 0 {
		return fmt.Errorf("injection ratio must be >= 0")
	}
	return nil
}

// ReproductionCount is the number of individuals copied forward each step.
func (c Config) ReproductionCount() int {
	return max(int(math.Round((1-c.CrossoverProbability)*float64(c.PopulationSize))), 1)
}

// CrossoverCount is the minimum number of crossover offspring each step.
func (c Config) CrossoverCount() int {
	return max(int(math.Round(c.CrossoverProbability*float64(c.PopulationSize))), 2)
}

// MutationCount is how many mutations are applied to a new generation.
func (c Config) MutationCount() int {
	return int(math.Floor(float64(c.PopulationSize) * c.MutationProbability))
}

// InjectionInterval is the number of stagnant generations that earns one
// more injection of fresh trees. Never below 1.
func (c Config) InjectionInterval() int {
	return max(int(math.Round(float64(c.MaxGenerations)*c.InjectionRatio)), 1)
}
