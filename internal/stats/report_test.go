package stats

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"
)

func TestFormatElapsed(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00.000"},
		{1375 * time.Millisecond, "00:01.375"},
		{61234 * time.Millisecond, "01:01.234"},
		{75*time.Minute + 5*time.Second + 7*time.Millisecond, "75:05.007"},
		{-time.Second, "00:00.000"},
	}
	for _, tc := range cases {
		if got := FormatElapsed(tc.in); got != tc.want {
			t.Fatalf("FormatElapsed(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestResultsRowColumns(t *testing.T) {
	row := ResultsRow(sampleRun("run-1"))
	if len(row) != len(ResultsHeader) {
		t.Fatalf("row has %d columns, header has %d", len(row), len(ResultsHeader))
	}
	want := map[string]string{
		"Generation":                  "42",
		"Elapsed Time (milliseconds)": "61234",
		"Elapsed Time (mm:ss.mili)":   "01:01.234",
		"Population Size":             "400",
		"Input Training Data":         "-5 -1 0 1 5",
		"Crossover Probability":       "90.0%",
		"Reproduction Probability":    "10.0%",
		"Mutation Probability":        "5.0%",
		"Final Fitness":               "0",
		"First Fitness":               "61",
		"Final isValid":               "true",
		"Final Tree":                  "(x*x)-2",
		"Final State":                 "CONVERGED",
		"Run ID":                      "run-1",
	}
	for i, name := range ResultsHeader {
		if expected, ok := want[name]; ok && row[i] != expected {
			t.Fatalf("column %q = %q, want %q", name, row[i], expected)
		}
	}
}

func TestResultsRowRendersUnscoredFitness(t *testing.T) {
	run := sampleRun("run-2")
	run.Final.FitnessState = "invalid"
	run.First.FitnessState = ""
	row := ResultsRow(run)
	if row[16] != "*Invalid" || row[19] != "*Unset" {
		t.Fatalf("unexpected fitness columns: %q %q", row[16], row[19])
	}
}

func TestResultsWriterSeparatesGroups(t *testing.T) {
	var buf bytes.Buffer
	w := NewResultsWriter(&buf)
	if err := w.WriteHeader(); err != nil {
		t.Fatalf("header: %v", err)
	}
	if err := w.WriteRun(sampleRun("a")); err != nil {
		t.Fatalf("row: %v", err)
	}
	if err := w.WriteSeparator(); err != nil {
		t.Fatalf("separator: %v", err)
	}
	if err := w.WriteRun(sampleRun("b")); err != nil {
		t.Fatalf("row: %v", err)
	}

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d: %q", len(lines), lines)
	}
	if lines[2] != "" {
		t.Fatalf("expected blank separator, got %q", lines[2])
	}
	header, err := csv.NewReader(strings.NewReader(lines[0])).Read()
	if err != nil {
		t.Fatalf("parse header: %v", err)
	}
	if len(header) != len(ResultsHeader) || header[0] != "Generation" || header[23] != "First Tree" {
		t.Fatalf("unexpected header: %v", header)
	}
}
