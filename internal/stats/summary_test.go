package stats

import (
	"bytes"
	"encoding/csv"
	"math"
	"strconv"
	"strings"
	"testing"
)

func TestTrimmedMean(t *testing.T) {
	values := []float64{100, 1, 2, 3, 4, 5, 6, 7, 8, -50}
	// floor(0.1*10) = 1 sample dropped from each end
	if got := TrimmedMean(values, 0.1); got != 4.5 {
		t.Fatalf("trimmed mean = %v, want 4.5", got)
	}
	if values[0] != 100 {
		t.Fatal("input slice was reordered")
	}
	if got := TrimmedMean(values, 0); got != 8.6 {
		t.Fatalf("untrimmed mean = %v, want 8.6", got)
	}
	if got := TrimmedMean([]float64{1, 2, 3}, 0.1); got != 2 {
		t.Fatalf("small sample mean = %v, want 2", got)
	}
	if got := TrimmedMean([]float64{1, 9}, 0.5); got != 5 {
		t.Fatalf("over-trimmed mean = %v, want 5", got)
	}
	if !math.IsNaN(TrimmedMean(nil, 0.1)) {
		t.Fatal("expected NaN for empty input")
	}
}

func writeResults(t *testing.T, groups ...[]int) string {
	t.Helper()
	var buf bytes.Buffer
	w := NewResultsWriter(&buf)
	if err := w.WriteHeader(); err != nil {
		t.Fatalf("header: %v", err)
	}
	for _, generations := range groups {
		for i, g := range generations {
			run := sampleRun("run-" + strconv.Itoa(i))
			run.Generations = g
			run.ElapsedMS = int64(g * 10)
			if err := w.WriteRun(run); err != nil {
				t.Fatalf("row: %v", err)
			}
		}
		if err := w.WriteSeparator(); err != nil {
			t.Fatalf("separator: %v", err)
		}
	}
	return buf.String()
}

func TestReadResultsGroupsByBlankLines(t *testing.T) {
	report := writeResults(t, []int{1, 2, 3}, []int{10, 20})
	groups, err := ReadResults(strings.NewReader(report))
	if err != nil {
		t.Fatalf("read results: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if len(groups[0].Rows) != 3 || len(groups[1].Rows) != 2 {
		t.Fatalf("unexpected group sizes: %d %d", len(groups[0].Rows), len(groups[1].Rows))
	}
}

func TestReadResultsRejectsMissingHeader(t *testing.T) {
	if _, err := ReadResults(strings.NewReader("1,2,3\n")); err == nil {
		t.Fatal("expected error for missing header")
	}
}

func TestReadResultsRejectsShortRows(t *testing.T) {
	report := strings.Join(ResultsHeader, ",") + "\n1,2,3\n"
	if _, err := ReadResults(strings.NewReader(report)); err == nil {
		t.Fatal("expected error for short row")
	}
}

func TestSummarizeResults(t *testing.T) {
	generations := []int{1000, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	report := writeResults(t, generations, []int{4, 6})

	var out bytes.Buffer
	summaries, err := SummarizeResults(strings.NewReader(report), &out, DefaultTrim)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}

	first := summaries[0]
	if first.Label != "10" || first.Samples != 10 {
		t.Fatalf("unexpected label: %+v", first)
	}
	if first.AvgGenerations != 104.5 {
		t.Fatalf("avg generations = %v", first.AvgGenerations)
	}
	// sorted 1..9,1000 minus one sample per end
	if first.TrimmedGenerations != 5.5 {
		t.Fatalf("trimmed generations = %v", first.TrimmedGenerations)
	}
	if first.TrimmedElapsedMS != 55 {
		t.Fatalf("trimmed elapsed = %v", first.TrimmedElapsedMS)
	}
	if first.Settings[0] != "400" || first.Settings[6] != "RAMPED_HALF_AND_HALF" {
		t.Fatalf("unexpected settings: %v", first.Settings)
	}
	if summaries[1].AvgGenerations != 5 || summaries[1].StdDevGenerations == 0 {
		t.Fatalf("unexpected second summary: %+v", summaries[1])
	}

	rows, err := csv.NewReader(&out).ReadAll()
	if err != nil {
		t.Fatalf("parse summary: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header and 2 rows, got %d", len(rows))
	}
	if len(rows[0]) != len(SummaryHeader) || rows[0][0] != "Summary Label" {
		t.Fatalf("unexpected summary header: %v", rows[0])
	}
	if rows[1][2] != "5.500" {
		t.Fatalf("unexpected trimmed column: %v", rows[1])
	}
}

func TestSummarizeRejectsEmptyGroup(t *testing.T) {
	if _, err := Summarize(ResultGroup{}, DefaultTrim); err == nil {
		t.Fatal("expected error for empty group")
	}
}
