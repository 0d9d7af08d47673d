package storage

import (
	"time"

	"gpsr/internal/model"
)

func sampleRun(id string, created time.Time) model.RunRecord {
	return model.RunRecord{
		VersionedRecord: CurrentVersion(),
		ID:              id,
		CreatedAt:       created,
		Seed:            12345,
		Seeded:          true,
		Settings: model.RunSettings{
			PopulationSize:   3,
			GenerationMethod: "FULL",
			Operators:        []string{"ADD", "SUB"},
			Operands:         []string{"1", "x"},
			TrainingInputs:   []float64{-5, 0, 5},
			TargetFunction:   "x_squared_minus_one_over_two",
		},
		State:       "CONVERGED",
		Generations: 17,
		ElapsedMS:   250,
		First:       model.IndividualRecord{Fitness: 12, FitnessState: "valid", Height: 3, Valid: true, Expression: "(x+1)-(1-x)"},
		Final:       model.IndividualRecord{Fitness: 0, FitnessState: "valid", Height: 2, Valid: true, Expression: "((x*x)-1)/2"},
	}
}
