package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gpsr/internal/model"
)

const (
	runFile         = "run.json"
	historyFile     = "fitness_history.json"
	diagnosticsFile = "generation_diagnostics.json"
	seriesFile      = "fitness_series.csv"
)

// RunArtifacts is the on-disk bundle exported for one run.
type RunArtifacts struct {
	Run              model.RunRecord
	BestByGeneration []float64
	Diagnostics      []model.GenerationDiagnostics
}

// WriteRunArtifacts writes the bundle under baseDir/<run id> and returns that
// directory.
func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	runID := strings.TrimSpace(artifacts.Run.ID)
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, runID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, runFile), artifacts.Run); err != nil {
		return "", err
	}
	history := map[string]any{
		"best_by_generation": nonNil(artifacts.BestByGeneration),
		"final_fitness":      artifacts.Run.Final.Fitness,
		"final_expression":   artifacts.Run.Final.Expression,
	}
	if err := writeJSON(filepath.Join(runDir, historyFile), history); err != nil {
		return "", err
	}
	diagnostics := artifacts.Diagnostics
	if diagnostics == nil {
		diagnostics = []model.GenerationDiagnostics{}
	}
	if err := writeJSON(filepath.Join(runDir, diagnosticsFile), diagnostics); err != nil {
		return "", err
	}
	if err := WriteFitnessSeries(runDir, artifacts.BestByGeneration); err != nil {
		return "", err
	}
	return runDir, nil
}

func ReadRun(baseDir, runID string) (model.RunRecord, bool, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, runID, runFile))
	if err != nil {
		if os.IsNotExist(err) {
			return model.RunRecord{}, false, nil
		}
		return model.RunRecord{}, false, err
	}
	var run model.RunRecord
	if err := json.Unmarshal(data, &run); err != nil {
		return model.RunRecord{}, false, err
	}
	return run, true, nil
}

func ReadGenerationDiagnostics(baseDir, runID string) ([]model.GenerationDiagnostics, bool, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, runID, diagnosticsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var diagnostics []model.GenerationDiagnostics
	if err := json.Unmarshal(data, &diagnostics); err != nil {
		return nil, false, err
	}
	return diagnostics, true, nil
}

// WriteFitnessSeries writes one generation,best_fitness row per generation.
func WriteFitnessSeries(runDir string, bestByGeneration []float64) error {
	file, err := os.Create(filepath.Join(runDir, seriesFile))
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"generation", "best_fitness"}); err != nil {
		return err
	}
	for i, best := range bestByGeneration {
		if err := writer.Write([]string{
			strconv.Itoa(i + 1),
			strconv.FormatFloat(best, 'g', -1, 64),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func ReadFitnessSeries(baseDir, runID string) ([]float64, bool, error) {
	file, err := os.Open(filepath.Join(baseDir, runID, seriesFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return []float64{}, true, nil
		}
		return nil, false, err
	}
	if len(header) < 2 {
		return nil, false, fmt.Errorf("fitness series header must have at least 2 columns")
	}

	series := make([]float64, 0, 128)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, err
		}
		value, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, false, err
		}
		series = append(series, value)
	}
	return series, true, nil
}

func nonNil(values []float64) []float64 {
	if values == nil {
		return []float64{}
	}
	return values
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}
