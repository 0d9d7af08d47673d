// Package config loads, validates and persists run settings.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"gpsr/internal/dataset"
	"gpsr/internal/evo"
	"gpsr/internal/expr"
	"gpsr/internal/factory"
)

// Settings is the on-disk form of a run configuration.
type Settings struct {
	// RandomSeed fixes the random stream; nil seeds from the clock.
	RandomSeed *int64 `json:"random_seed,omitempty" yaml:"random_seed,omitempty"`

	PopulationSize int `json:"population_size" yaml:"population_size" validate:"gte=1"`
	TournamentSize int `json:"tournament_size" yaml:"tournament_size" validate:"gte=1"`
	MaxGenerations int `json:"max_generations" yaml:"max_generations" validate:"gte=1"`

	InitialHeight      int `json:"initial_height" yaml:"initial_height" validate:"gte=1"`
	MaxCrossoverHeight int `json:"max_crossover_height" yaml:"max_crossover_height" validate:"gtefield=InitialHeight"`
	MaxMutationHeight  int `json:"max_mutation_height" yaml:"max_mutation_height" validate:"gte=1"`

	CrossoverProbability float64 `json:"crossover_probability" yaml:"crossover_probability" validate:"gte=0,lte=1"`
	MutationProbability  float64 `json:"mutation_probability" yaml:"mutation_probability" validate:"gte=0,lte=1"`
	FitnessMarginOfError float64 `json:"fitness_margin_of_error" yaml:"fitness_margin_of_error" validate:"gte=0"`

	GenerationMethod   string `json:"generation_method" yaml:"generation_method" validate:"generation_method"`
	ReproductionMethod string `json:"reproduction_method" yaml:"reproduction_method" validate:"reproduction_method"`

	Operators      []string  `json:"operators" yaml:"operators" validate:"min=1,dive,operator"`
	Operands       []string  `json:"operands" yaml:"operands" validate:"min=1,dive,operand"`
	TrainingInputs []float64 `json:"training_inputs" yaml:"training_inputs" validate:"min=1"`
	TargetFunction string    `json:"target_function" yaml:"target_function" validate:"required,target_function"`

	Workers          int           `json:"workers" yaml:"workers" validate:"gte=0"`
	TimeBudget       time.Duration `json:"time_budget" yaml:"time_budget" validate:"gte=0s"`
	RestartThreshold int           `json:"restart_threshold" yaml:"restart_threshold" validate:"gte=0"`
	InjectionRatio   float64       `json:"injection_ratio" yaml:"injection_ratio" validate:"gte=0"`
}

// Default returns the settings a run uses when nothing is overridden.
func Default() Settings {
	operands := make([]string, 0, 20)
	for v := -9; v <= 9; v++ {
		operands = append(operands, fmt.Sprintf("%d", v))
	}
	operands = append(operands, "x")
	return Settings{
		PopulationSize:       400,
		TournamentSize:       6,
		MaxGenerations:       500000,
		InitialHeight:        4,
		MaxCrossoverHeight:   10,
		MaxMutationHeight:    2,
		CrossoverProbability: 0.90,
		MutationProbability:  0.05,
		FitnessMarginOfError: 0.001,
		GenerationMethod:     factory.RampedHalfAndHalf.String(),
		ReproductionMethod:   evo.TournamentSelection.String(),
		Operators:            []string{"ADD", "SUB", "MUL", "DIV"},
		Operands:             operands,
		TrainingInputs:       []float64{-5, -4, -3, -2, -1, 0, 1, 2, 3, 4, 5},
		TargetFunction:       "two_x_squared_minus_four_over_two",
		Workers:              1,
		TimeBudget:           15 * time.Minute,
		RestartThreshold:     evo.DefaultRestartThreshold,
		InjectionRatio:       evo.DefaultInjectionRatio,
	}
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("generation_method", func(fl validator.FieldLevel) bool {
		_, err := factory.ParseMethod(fl.Field().String())
		return err == nil
	})
	_ = validate.RegisterValidation("reproduction_method", func(fl validator.FieldLevel) bool {
		_, err := evo.ParseReproductionMethod(fl.Field().String())
		return err == nil
	})
	_ = validate.RegisterValidation("operator", func(fl validator.FieldLevel) bool {
		_, err := expr.ParseOperator(fl.Field().String())
		return err == nil
	})
	_ = validate.RegisterValidation("operand", func(fl validator.FieldLevel) bool {
		_, err := expr.ParseOperand(fl.Field().String())
		return err == nil
	})
	_ = validate.RegisterValidation("target_function", func(fl validator.FieldLevel) bool {
		_, ok := dataset.LookupTarget(fl.Field().String())
		return ok
	})
}

// Validate checks every field and reports all violations at once.
func (s Settings) Validate() error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate settings: %w", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s=%s (got %v)", fe.Namespace(), fe.Tag(), fe.Param(), fe.Value()))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s: failed %s (got %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid settings: %s", strings.Join(msgs, "; "))
}

// Load overlays the YAML file at path on Default and validates the result.
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("read settings %s: %w", path, err)
	}
	s, err := Parse(data)
	if err != nil {
		return Settings{}, fmt.Errorf("load settings %s: %w", path, err)
	}
	return s, nil
}

// Parse overlays YAML data on Default. Unknown keys are rejected.
func Parse(data []byte) (Settings, error) {
	s := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Save writes s as YAML.
func (s Settings) Save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write settings %s: %w", path, err)
	}
	return nil
}

// EvolutionConfig validates s and converts it into the snapshot a run is built from.
func (s Settings) EvolutionConfig() (evo.Config, error) {
	if err := s.Validate(); err != nil {
		return evo.Config{}, err
	}
	method, err := factory.ParseMethod(s.GenerationMethod)
	if err != nil {
		return evo.Config{}, err
	}
	reproduction, err := evo.ParseReproductionMethod(s.ReproductionMethod)
	if err != nil {
		return evo.Config{}, err
	}
	operators, err := expr.ParseOperators(s.Operators)
	if err != nil {
		return evo.Config{}, err
	}
	operands, err := expr.ParseOperands(s.Operands)
	if err != nil {
		return evo.Config{}, err
	}
	data, err := dataset.Build(s.TargetFunction, s.TrainingInputs)
	if err != nil {
		return evo.Config{}, err
	}

	cfg := evo.Config{
		PopulationSize:       s.PopulationSize,
		TournamentSize:       s.TournamentSize,
		MaxGenerations:       s.MaxGenerations,
		InitialHeight:        s.InitialHeight,
		MaxCrossoverHeight:   s.MaxCrossoverHeight,
		MaxMutationHeight:    s.MaxMutationHeight,
		CrossoverProbability: s.CrossoverProbability,
		MutationProbability:  s.MutationProbability,
		FitnessMarginOfError: s.FitnessMarginOfError,
		GenerationMethod:     method,
		ReproductionMethod:   reproduction,
		Operators:            operators,
		Operands:             operands,
		TrainingData:         data,
		Workers:              s.Workers,
		TimeBudget:           s.TimeBudget,
		RestartThreshold:     s.RestartThreshold,
		InjectionRatio:       s.InjectionRatio,
	}
	return cfg, cfg.Validate()
}

// Clone returns a copy that shares no slices with s.
func (s Settings) Clone() Settings {
	out := s
	out.Operators = append([]string(nil), s.Operators...)
	out.Operands = append([]string(nil), s.Operands...)
	out.TrainingInputs = append([]float64(nil), s.TrainingInputs...)
	if s.RandomSeed != nil {
		seed := *s.RandomSeed
		out.RandomSeed = &seed
	}
	return out
}
