package stats

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// DefaultTrim is the fraction dropped from each end for trimmed averages.
const DefaultTrim = 0.10

var SummaryHeader = append([]string{
	"Summary Label",
	"Avg Generation Cnt",
	"Trimmed Generation Cnt",
	"Avg Elapsed Time (milliseconds)",
	"Trimmed Elapsed Time (milliseconds)",
}, append(slices.Clone(ResultsHeader[3:settingsColumns]), "Generation Std Dev")...)

// ResultGroup is a run of consecutive rows between blank separator lines.
type ResultGroup struct {
	Rows [][]string
}

type GroupSummary struct {
	Label              string
	Samples            int
	AvgGenerations     float64
	TrimmedGenerations float64
	StdDevGenerations  float64
	AvgElapsedMS       float64
	TrimmedElapsedMS   float64
	Settings           []string
}

// ReadResults parses a results report. The first non-blank line must be the
// header; every later blank line closes the current group.
func ReadResults(r io.Reader) ([]ResultGroup, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var (
		groups  []ResultGroup
		current ResultGroup
		header  bool
		line    int
	)
	flush := func() {
		if len(current.Rows) > 0 {
			groups = append(groups, current)
			current = ResultGroup{}
		}
	}
	for scanner.Scan() {
		line++
		text := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			flush()
			continue
		}
		record, err := csv.NewReader(strings.NewReader(text)).Read()
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if !header {
			if len(record) == 0 || record[0] != ResultsHeader[0] {
				return nil, fmt.Errorf("line %d: missing results header", line)
			}
			header = true
			continue
		}
		if len(record) < settingsColumns {
			return nil, fmt.Errorf("line %d: expected at least %d columns, got %d", line, settingsColumns, len(record))
		}
		current.Rows = append(current.Rows, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()
	return groups, nil
}

// Summarize reduces a group to plain and trimmed averages of generation count
// and elapsed milliseconds.
func Summarize(group ResultGroup, trim float64) (GroupSummary, error) {
	if len(group.Rows) == 0 {
		return GroupSummary{}, fmt.Errorf("empty result group")
	}
	generations := make([]float64, 0, len(group.Rows))
	elapsed := make([]float64, 0, len(group.Rows))
	for i, row := range group.Rows {
		g, err := strconv.ParseFloat(row[0], 64)
		if err != nil {
			return GroupSummary{}, fmt.Errorf("row %d generation: %w", i+1, err)
		}
		e, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return GroupSummary{}, fmt.Errorf("row %d elapsed: %w", i+1, err)
		}
		generations = append(generations, g)
		elapsed = append(elapsed, e)
	}

	summary := GroupSummary{
		Label:              strconv.Itoa(len(group.Rows)),
		Samples:            len(group.Rows),
		AvgGenerations:     stat.Mean(generations, nil),
		TrimmedGenerations: TrimmedMean(generations, trim),
		AvgElapsedMS:       stat.Mean(elapsed, nil),
		TrimmedElapsedMS:   TrimmedMean(elapsed, trim),
		Settings:           slices.Clone(group.Rows[0][3:settingsColumns]),
	}
	if len(generations) > 1 {
		summary.StdDevGenerations = stat.StdDev(generations, nil)
	}
	return summary, nil
}

// TrimmedMean sorts a copy of values, drops floor(trim*n) samples from each
// end and averages the rest. At least one sample is always kept.
func TrimmedMean(values []float64, trim float64) float64 {
	n := len(values)
	if n == 0 {
		return math.NaN()
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	k := int(math.Floor(trim * float64(n)))
	if k < 0 {
		k = 0
	}
	if 2*k >= n {
		k = (n - 1) / 2
	}
	return stat.Mean(sorted[k:n-k], nil)
}

// WriteSummary writes the summary header followed by one row per group.
func WriteSummary(w io.Writer, summaries []GroupSummary) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(SummaryHeader); err != nil {
		return err
	}
	for _, s := range summaries {
		row := []string{
			s.Label,
			formatStat(s.AvgGenerations),
			formatStat(s.TrimmedGenerations),
			formatStat(s.AvgElapsedMS),
			formatStat(s.TrimmedElapsedMS),
		}
		row = append(row, s.Settings...)
		row = append(row, formatStat(s.StdDevGenerations))
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// SummarizeResults reads a results report from r and writes its summary to w.
func SummarizeResults(r io.Reader, w io.Writer, trim float64) ([]GroupSummary, error) {
	groups, err := ReadResults(r)
	if err != nil {
		return nil, err
	}
	summaries := make([]GroupSummary, 0, len(groups))
	for i, group := range groups {
		s, err := Summarize(group, trim)
		if err != nil {
			return nil, fmt.Errorf("group %d: %w", i+1, err)
		}
		summaries = append(summaries, s)
	}
	if err := WriteSummary(w, summaries); err != nil {
		return nil, err
	}
	return summaries, nil
}

func formatStat(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
