// Package dataset holds the immutable training samples a run is scored against.
package dataset

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
)

type Sample struct {
	Input  float64 `json:"input" yaml:"input"`
	Target float64 `json:"target" yaml:"target"`
}

// Dataset is a read-only, ordered list of samples shared by every individual.
type Dataset struct {
	samples []Sample
}

func New(samples []Sample) Dataset {
	return Dataset{samples: append([]Sample(nil), samples...)}
}

// FromTarget samples fn at every input.
func FromTarget(inputs []float64, fn TargetFunc) Dataset {
	samples := make([]Sample, 0, len(inputs))
	for _, x := range inputs {
		samples = append(samples, Sample{Input: x, Target: fn(x)})
	}
	return Dataset{samples: samples}
}

func (d Dataset) Len() int {
	return len(d.samples)
}

func (d Dataset) At(i int) Sample {
	return d.samples[i]
}

// Samples returns a copy of the samples.
func (d Dataset) Samples() []Sample {
	return append([]Sample(nil), d.samples...)
}

func (d Dataset) Inputs() []float64 {
	out := make([]float64, len(d.samples))
	for i, s := range d.samples {
		out[i] = s.Input
	}
	return out
}

// String renders the inputs as a comma separated list.
func (d Dataset) String() string {
	return FormatInputs(d.Inputs())
}

func FormatInputs(inputs []float64) string {
	parts := make([]string, len(inputs))
	for i, x := range inputs {
		parts[i] = strconv.FormatFloat(x, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}

// ParseInputs reads a comma separated list of finite numbers.
func ParseInputs(raw string) ([]float64, error) {
	fields := strings.Split(raw, ",")
	out := make([]float64, 0, len(fields))
	for _, field := range fields {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, fmt.Errorf("parse input %q: %w", field, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("input %q is not finite", field)
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no training inputs in %q", raw)
	}
	return out, nil
}

// TargetFunc is the unknown function a run tries to rediscover.
type TargetFunc func(x float64) float64

type targetEntry struct {
	fn          TargetFunc
	description string
}

var (
	targetsMu sync.RWMutex
	targets   = map[string]targetEntry{
		"x_squared_minus_one_over_two": {
			fn:          func(x float64) float64 { return (x*x - 1) / 2 },
			description: "(x^2-1)/2",
		},
		"two_x_squared_minus_four_over_two": {
			fn:          func(x float64) float64 { return (2*x*x - 4) / 2 },
			description: "(2x^2-4)/2",
		},
	}
)

// RegisterTarget adds or replaces a named target function.
func RegisterTarget(name, description string, fn TargetFunc) error {
	if name == "" {
		return fmt.Errorf("target name is required")
	}
	if fn == nil {
		return fmt.Errorf("target %s: function is required", name)
	}
	targetsMu.Lock()
	defer targetsMu.Unlock()
	targets[name] = targetEntry{fn: fn, description: description}
	return nil
}

func LookupTarget(name string) (TargetFunc, bool) {
	targetsMu.RLock()
	defer targetsMu.RUnlock()
	entry, ok := targets[name]
	return entry.fn, ok
}

func DescribeTarget(name string) string {
	targetsMu.RLock()
	defer targetsMu.RUnlock()
	return targets[name].description
}

func RegisteredTargets() []string {
	targetsMu.RLock()
	defer targetsMu.RUnlock()
	names := make([]string, 0, len(targets))
	for name := range targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build samples the named target at inputs.
func Build(target string, inputs []float64) (Dataset, error) {
	fn, ok := LookupTarget(target)
	if !ok {
		return Dataset{}, fmt.Errorf("unknown target function: %s", target)
	}
	if len(inputs) == 0 {
		return Dataset{}, fmt.Errorf("training inputs are required")
	}
	return FromTarget(inputs, fn), nil
}
