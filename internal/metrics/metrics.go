// Package metrics exposes run progress as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gpsr/internal/evo"
)

const namespace = "gpsr"

// Collector records driver notifications. It implements evo.Observer and
// registers on its own registry so several collectors can coexist.
type Collector struct {
	registry *prometheus.Registry

	GenerationsTotal   *prometheus.CounterVec
	FallbacksTotal     prometheus.Counter
	RunsTotal          *prometheus.CounterVec
	BestFitness        prometheus.Gauge
	MedianFitness      prometheus.Gauge
	InvalidIndividuals prometheus.Gauge
	DuplicateCount     prometheus.Gauge
	InjectCount        prometheus.Gauge
	GenerationDuration prometheus.Histogram
	RunGenerations     prometheus.Histogram
}

var _ evo.Observer = (*Collector)(nil)

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Collector{
		registry: reg,
		GenerationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Generations produced, by the step that produced them",
		}, []string{"step"}),
		FallbacksTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tournament_fallbacks_total",
			Help:      "Tournaments that gave up and grew a fresh tree",
		}),
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Finished runs by final state",
		}, []string{"state"}),
		BestFitness: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "best_fitness",
			Help:      "Fitness of the best individual in the latest generation",
		}),
		MedianFitness: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "median_fitness",
			Help:      "Median valid fitness of the latest generation",
		}),
		InvalidIndividuals: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "invalid_individuals",
			Help:      "Individuals in the latest generation with an invalid tree or score",
		}),
		DuplicateCount: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stagnant_generations",
			Help:      "Consecutive generations without a change in best fitness",
		}),
		InjectCount: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "injections_since_improvement",
			Help:      "DNA injections since the best fitness last changed",
		}),
		GenerationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Wall time spent producing and scoring one generation",
			Buckets:   []float64{0.0001, 0.001, 0.01, 0.1, 1, 10},
		}),
		RunGenerations: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_generations",
			Help:      "Generations per finished run",
			Buckets:   prometheus.ExponentialBuckets(1, 10, 7),
		}),
	}
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) OnGeneration(report evo.GenerationReport) {
	c.GenerationsTotal.WithLabelValues(report.Step.String()).Inc()
	if report.Best.Fitness.IsValid() {
		c.BestFitness.Set(report.Best.Fitness.Value())
	}
	c.MedianFitness.Set(report.MedianFitness)
	c.InvalidIndividuals.Set(float64(report.InvalidCount))
	c.DuplicateCount.Set(float64(report.DuplicateCount))
	c.InjectCount.Set(float64(report.InjectCount))
	c.GenerationDuration.Observe(report.Duration.Seconds())
}

func (c *Collector) OnTournamentFallback() {
	c.FallbacksTotal.Inc()
}

func (c *Collector) OnRunComplete(result evo.RunResult) {
	c.RunsTotal.WithLabelValues(result.State.String()).Inc()
	c.RunGenerations.Observe(float64(result.Generations))
}
