package model

import "time"

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// RunSettings is the configuration snapshot stored with a run.
type RunSettings struct {
	PopulationSize       int       `json:"population_size"`
	TournamentSize       int       `json:"tournament_size"`
	MaxGenerations       int       `json:"max_generations"`
	InitialHeight        int       `json:"initial_height"`
	MaxCrossoverHeight   int       `json:"max_crossover_height"`
	MaxMutationHeight    int       `json:"max_mutation_height"`
	CrossoverProbability float64   `json:"crossover_probability"`
	MutationProbability  float64   `json:"mutation_probability"`
	FitnessMarginOfError float64   `json:"fitness_margin_of_error"`
	GenerationMethod     string    `json:"generation_method"`
	ReproductionMethod   string    `json:"reproduction_method"`
	Operators            []string  `json:"operators"`
	Operands             []string  `json:"operands"`
	TrainingInputs       []float64 `json:"training_inputs"`
	TargetFunction       string    `json:"target_function"`
	TimeBudgetMS         int64     `json:"time_budget_ms"`
	RestartThreshold     int       `json:"restart_threshold"`
	InjectionRatio       float64   `json:"injection_ratio"`
}

// IndividualRecord is a rendered snapshot of one individual.
type IndividualRecord struct {
	Fitness      float64 `json:"fitness"`
	FitnessState string  `json:"fitness_state"`
	Height       int     `json:"height"`
	Valid        bool    `json:"valid"`
	Expression   string  `json:"expression"`
}

type RunRecord struct {
	VersionedRecord
	ID          string           `json:"id"`
	CreatedAt   time.Time        `json:"created_at"`
	Seed        int64            `json:"seed"`
	Seeded      bool             `json:"seeded"`
	Settings    RunSettings      `json:"settings"`
	State       string           `json:"state"`
	Generations int              `json:"generations"`
	ElapsedMS   int64            `json:"elapsed_ms"`
	Injections  int              `json:"injections"`
	Restarts    int              `json:"restarts"`
	First       IndividualRecord `json:"first"`
	Final       IndividualRecord `json:"final"`
}

type GenerationDiagnostics struct {
	Generation     int     `json:"generation"`
	Step           string  `json:"step"`
	BestFitness    float64 `json:"best_fitness"`
	BestHeight     int     `json:"best_height"`
	BestValid      bool    `json:"best_valid"`
	MedianFitness  float64 `json:"median_fitness"`
	InvalidCount   int     `json:"invalid_count"`
	PopulationSize int     `json:"population_size"`
	DuplicateCount int     `json:"duplicate_count"`
	InjectCount    int     `json:"inject_count"`
	DurationMS     float64 `json:"duration_ms"`
}
