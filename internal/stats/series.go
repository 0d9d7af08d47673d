package stats

import (
	"encoding/csv"
	"io"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// CurvePoint aggregates the best fitness of every run that reached Generation.
type CurvePoint struct {
	Generation int
	Runs       int
	Mean       float64
	Min        float64
}

// BuildConvergenceCurve samples generation 1 and every step-th generation after
// it. Runs that stopped earlier drop out of later points.
func BuildConvergenceCurve(histories [][]float64, step int) []CurvePoint {
	if step <= 0 {
		step = 1
	}
	longest := 0
	for _, h := range histories {
		longest = max(longest, len(h))
	}
	points := make([]CurvePoint, 0, longest/step+1)
	values := make([]float64, 0, len(histories))
	for g := 1; g <= longest; g += step {
		values = values[:0]
		for _, h := range histories {
			if len(h) >= g {
				values = append(values, h[g-1])
			}
		}
		points = append(points, CurvePoint{
			Generation: g,
			Runs:       len(values),
			Mean:       stat.Mean(values, nil),
			Min:        floats.Min(values),
		})
	}
	return points
}

func WriteConvergenceCurve(w io.Writer, points []CurvePoint) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"generation", "runs", "mean_best_fitness", "min_best_fitness"}); err != nil {
		return err
	}
	for _, p := range points {
		if err := writer.Write([]string{
			strconv.Itoa(p.Generation),
			strconv.Itoa(p.Runs),
			strconv.FormatFloat(p.Mean, 'g', -1, 64),
			strconv.FormatFloat(p.Min, 'g', -1, 64),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
