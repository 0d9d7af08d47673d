package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"gpsr/internal/config"
	"gpsr/internal/metrics"
	"gpsr/internal/model"
	"gpsr/internal/stats"
	"gpsr/pkg/gpsr"
)

type settingsFlags struct {
	configPath     string
	seed           int64
	population     int
	tournament     int
	maxGenerations int
	method         string
	reproduction   string
	workers        int
	timeBudget     time.Duration
}

func (f *settingsFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&f.configPath, "config", "c", "", "settings YAML file (defaults when empty)")
	flags.Int64Var(&f.seed, "seed", 0, "fix the random seed")
	flags.IntVar(&f.population, "population", 0, "population size")
	flags.IntVar(&f.tournament, "tournament", 0, "tournament size")
	flags.IntVar(&f.maxGenerations, "max-generations", 0, "generation budget")
	flags.StringVar(&f.method, "method", "", "generation method, e.g. RAMPED_HALF_AND_HALF")
	flags.StringVar(&f.reproduction, "reproduction", "", "NATURAL_SELECTION or TOURNAMENT_SELECTION")
	flags.IntVar(&f.workers, "workers", 0, "concurrent fitness evaluations")
	flags.DurationVar(&f.timeBudget, "time-budget", 0, "wall-clock budget per run (0 disables)")
}

// settings loads the configured file and applies every flag the user set.
func (f *settingsFlags) settings(cmd *cobra.Command) (config.Settings, error) {
	s, err := loadSettings(f.configPath)
	if err != nil {
		return config.Settings{}, err
	}
	flags := cmd.Flags()
	if flags.Changed("seed") {
		seed := f.seed
		s.RandomSeed = &seed
	}
	if flags.Changed("population") {
		s.PopulationSize = f.population
	}
	if flags.Changed("tournament") {
		s.TournamentSize = f.tournament
	}
	if flags.Changed("max-generations") {
		s.MaxGenerations = f.maxGenerations
	}
	if flags.Changed("method") {
		s.GenerationMethod = f.method
	}
	if flags.Changed("reproduction") {
		s.ReproductionMethod = f.reproduction
	}
	if flags.Changed("workers") {
		s.Workers = f.workers
	}
	if flags.Changed("time-budget") {
		s.TimeBudget = f.timeBudget
	}
	return s, s.Validate()
}

func newRunCmd(root *rootOptions) *cobra.Command {
	var (
		sf               settingsFlags
		resultsPath      string
		metricsAddr      string
		diagnosticsEvery int
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evolve one expression against the configured target",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			ctx := cmd.Context()
			settings, err := sf.settings(cmd)
			if err != nil {
				return err
			}
			logger, err := root.logger()
			if err != nil {
				return err
			}

			var collector *metrics.Collector
			if metricsAddr != "" {
				collector = metrics.NewCollector()
				shutdown, addr, err := serveMetrics(metricsAddr, collector, logger)
				if err != nil {
					return err
				}
				defer shutdown()
				logger.Info("serving metrics", "addr", addr)
			}

			client, err := root.client(ctx, collector)
			if err != nil {
				return err
			}
			defer closeClient(client, &err)

			summary, err := client.Run(ctx, gpsr.RunRequest{Settings: settings, DiagnosticsEvery: diagnosticsEvery})
			if err != nil {
				return err
			}
			printRun(root.stdout, summary.RunRecord)
			if resultsPath != "" {
				if err := appendResults(resultsPath, summary.RunRecord); err != nil {
					return err
				}
			}
			return nil
		},
	}
	sf.register(cmd)
	cmd.Flags().StringVar(&resultsPath, "results", "", "append a row to this results CSV")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")
	cmd.Flags().IntVar(&diagnosticsEvery, "diagnostics-every", 100, "store every n-th generation report")
	return cmd
}

func printRun(w io.Writer, run model.RunRecord) {
	fmt.Fprintf(w, "run %s %s after %s generations in %s\n",
		run.ID,
		run.State,
		humanize.Comma(int64(run.Generations)),
		stats.FormatElapsed(time.Duration(run.ElapsedMS)*time.Millisecond),
	)
	fmt.Fprintf(w, "seed=%d injections=%d restarts=%d\n", run.Seed, run.Injections, run.Restarts)
	fmt.Fprintf(w, "final %s\n", describeIndividual(run.Final))
	fmt.Fprintf(w, "first %s\n", describeIndividual(run.First))
}

func describeIndividual(rec model.IndividualRecord) string {
	fitness := rec.FitnessState
	if rec.FitnessState == "valid" {
		fitness = fmt.Sprintf("%g", rec.Fitness)
	}
	return fmt.Sprintf("fitness=%s height=%d valid=%t tree=%s", fitness, rec.Height, rec.Valid, rec.Expression)
}

// appendResults adds rows to the CSV at path, writing the header first when
// the file is new or empty.
func appendResults(path string, runs ...model.RunRecord) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open results %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	w := stats.NewResultsWriter(f)
	if info.Size() == 0 {
		if err := w.WriteHeader(); err != nil {
			return err
		}
	}
	for _, run := range runs {
		if err := w.WriteRun(run); err != nil {
			return err
		}
	}
	return f.Close()
}

func serveMetrics(addr string, collector *metrics.Collector, logger *slog.Logger) (func(), string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, "", fmt.Errorf("listen on %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "error", err)
		}
	}()
	shutdown := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
	return shutdown, ln.Addr().String(), nil
}
