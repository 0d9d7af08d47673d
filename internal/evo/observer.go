package evo

import (
	"time"
)

// Step names what the driver did to produce a generation.
type Step uint8

const (
	StepInit Step = iota
	StepEvolve
	StepInjectDNA
	StepRestart
)

func (s Step) String() string {
	switch s {
	case StepInit:
		return "init"
	case StepEvolve:
		return "evolve"
	case StepInjectDNA:
		return "inject"
	case StepRestart:
		return "restart"
	default:
		return "unknown"
	}
}

// GenerationReport describes one generation after it has been scored.
type GenerationReport struct {
	Generation     int
	Step           Step
	Best           IndividualSummary
	MedianFitness  float64
	InvalidCount   int
	PopulationSize int
	DuplicateCount int
	InjectCount    int
	Duration       time.Duration
}

// Observer is notified as a run progresses. Callbacks run on the driver's
// goroutine and must not block for long.
type Observer interface {
	OnGeneration(report GenerationReport)
	OnTournamentFallback()
	OnRunComplete(result RunResult)
}

// NopObserver ignores every notification.
type NopObserver struct{}

func (NopObserver) OnGeneration(GenerationReport) {}
func (NopObserver) OnTournamentFallback() {}
func (NopObserver) OnRunComplete(RunResult) {}

type multiObserver []Observer

// Observers fans notifications out to every non-nil observer in order.
func Observers(observers ...Observer) Observer {
	out := make(multiObserver, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			out = append(out, o)
		}
	}
	return out
}

func (m multiObserver) OnGeneration(report GenerationReport) {
	for _, o := range m {
		o.OnGeneration(report)
	}
}

func (m multiObserver) OnTournamentFallback() {
	for _, o := range m {
		o.OnTournamentFallback()
	}
}

func (m multiObserver) OnRunComplete(result RunResult) {
	for _, o := range m {
		o.OnRunComplete(result)
	}
}

// Recorder keeps every Every-th generation report, plus the first and the
// last. Every below 1 keeps all of them.
type Recorder struct {
	NopObserver
	Every int

	reports []GenerationReport
	last    *GenerationReport
}

func (r *Recorder) OnGeneration(report GenerationReport) {
	every := max(r.Every, 1)
	if report.Generation == 1 || report.Generation%every == 0 {
		r.reports = append(r.reports, report)
		r.last = nil
		return
	}
	r.last = &report
}

func (r *Recorder) OnRunComplete(RunResult) {
	if r.last != nil {
		r.reports = append(r.reports, *r.last)
		r.last = nil
	}
}

// Reports returns the recorded reports in generation order.
func (r *Recorder) Reports() []GenerationReport {
	return append([]GenerationReport(nil), r.reports...)
}
