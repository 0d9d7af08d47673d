package stats

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"gpsr/internal/fitness"
	"gpsr/internal/model"
)

// ResultsHeader is the column set of the results report. The first sixteen
// columns are shared with the summary report.
var ResultsHeader = []string{
	"Generation",
	"Elapsed Time (milliseconds)",
	"Elapsed Time (mm:ss.mili)",
	"Population Size",
	"Tournament Size",
	"Max Generations",
	"Initial Tree Height",
	"Max Tree Height",
	"Mutation Tree Height",
	"Initial Generation Method",
	"Reproduction Method",
	"Input Training Data",
	"Final Fitness Goal",
	"Crossover Probability",
	"Reproduction Probability",
	"Mutation Probability",
	"Final Fitness",
	"Final Height",
	"Final isValid",
	"First Fitness",
	"First Height",
	"First isValid",
	"Final Tree",
	"First Tree",
	"Final State",
	"Run ID",
}

const settingsColumns = 16

// ResultsWriter appends run rows to a results report.
type ResultsWriter struct {
	w *csv.Writer
}

func NewResultsWriter(w io.Writer) *ResultsWriter {
	return &ResultsWriter{w: csv.NewWriter(w)}
}

func (r *ResultsWriter) WriteHeader() error {
	if err := r.w.Write(ResultsHeader); err != nil {
		return err
	}
	r.w.Flush()
	return r.w.Error()
}

func (r *ResultsWriter) WriteRun(run model.RunRecord) error {
	if err := r.w.Write(ResultsRow(run)); err != nil {
		return err
	}
	r.w.Flush()
	return r.w.Error()
}

// WriteSeparator ends a group of rows with a blank line.
func (r *ResultsWriter) WriteSeparator() error {
	if err := r.w.Write([]string{}); err != nil {
		return err
	}
	r.w.Flush()
	return r.w.Error()
}

func ResultsRow(run model.RunRecord) []string {
	s := run.Settings
	elapsed := time.Duration(run.ElapsedMS) * time.Millisecond
	return []string{
		strconv.Itoa(run.Generations),
		strconv.FormatInt(run.ElapsedMS, 10),
		FormatElapsed(elapsed),
		strconv.Itoa(s.PopulationSize),
		strconv.Itoa(s.TournamentSize),
		strconv.Itoa(s.MaxGenerations),
		strconv.Itoa(s.InitialHeight),
		strconv.Itoa(s.MaxCrossoverHeight),
		strconv.Itoa(s.MaxMutationHeight),
		s.GenerationMethod,
		s.ReproductionMethod,
		formatInputs(s.TrainingInputs),
		strconv.FormatFloat(s.FitnessMarginOfError, 'g', -1, 64),
		formatPercent(s.CrossoverProbability),
		formatPercent(1 - s.CrossoverProbability),
		formatPercent(s.MutationProbability),
		formatFitness(run.Final),
		strconv.Itoa(run.Final.Height),
		strconv.FormatBool(run.Final.Valid),
		formatFitness(run.First),
		strconv.Itoa(run.First.Height),
		strconv.FormatBool(run.First.Valid),
		run.Final.Expression,
		run.First.Expression,
		run.State,
		run.ID,
	}
}

// FormatElapsed renders d as mm:ss.mmm. Minutes are not wrapped into hours.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	minutes := ms / 60000
	seconds := (ms / 1000) % 60
	millis := ms % 1000
	return fmt.Sprintf("%02d:%02d.%03d", minutes, seconds, millis)
}

func formatInputs(inputs []float64) string {
	parts := make([]string, len(inputs))
	for i, v := range inputs {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, " ")
}

func formatPercent(p float64) string {
	return strconv.FormatFloat(p*100, 'f', 1, 64) + "%"
}

func formatFitness(rec model.IndividualRecord) string {
	state, err := fitness.ParseState(rec.FitnessState)
	if err != nil {
		return rec.FitnessState
	}
	switch state {
	case fitness.StateValid:
		return fitness.Valid(rec.Fitness).String()
	case fitness.StateInvalid:
		return fitness.Invalid().String()
	default:
		return fitness.Unset().String()
	}
}
