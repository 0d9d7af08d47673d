package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"gpsr/internal/stats"
	"gpsr/pkg/gpsr"
)

func newSweepCmd(root *rootOptions) *cobra.Command {
	var (
		sf          settingsFlags
		methods     []string
		populations []int
		tournaments []int
		samples     int
		budget      time.Duration
		outPath     string
		curvePath   string
		curveStep   int
	)
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Repeat runs over combinations of generation method, population and tournament size",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			ctx := cmd.Context()
			settings, err := sf.settings(cmd)
			if err != nil {
				return err
			}

			var out io.Writer = root.stdout
			if outPath != "" && outPath != "-" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("create results %s: %w", outPath, err)
				}
				defer f.Close()
				out = f
			}

			client, err := root.client(ctx, nil)
			if err != nil {
				return err
			}
			defer closeClient(client, &err)

			summaries, err := client.Sweep(ctx, gpsr.SweepRequest{
				Base:              settings,
				GenerationMethods: methods,
				PopulationSizes:   populations,
				TournamentSizes:   tournaments,
				Samples:           samples,
				Budget:            budget,
			}, out)
			if err != nil {
				return err
			}
			if curvePath != "" {
				if err := writeCurve(curvePath, summaries, curveStep); err != nil {
					return err
				}
			}
			if out != root.stdout {
				converged := 0
				for _, s := range summaries {
					if s.State == "CONVERGED" {
						converged++
					}
				}
				fmt.Fprintf(root.stdout, "sweep finished: %s runs, %s converged, results in %s\n",
					humanize.Comma(int64(len(summaries))), humanize.Comma(int64(converged)), outPath)
			}
			return nil
		},
	}
	sf.register(cmd)
	flags := cmd.Flags()
	flags.StringSliceVar(&methods, "methods", nil, "generation methods to sweep (default: configured method)")
	flags.IntSliceVar(&populations, "populations", nil, "population sizes to sweep (default: configured size)")
	flags.IntSliceVar(&tournaments, "tournaments", nil, "tournament sizes to sweep (default: configured size)")
	flags.IntVar(&samples, "samples", 100, "runs per combination")
	flags.DurationVar(&budget, "budget", 0, "stop starting new runs after this long (0 disables)")
	flags.StringVarP(&outPath, "out", "o", "-", "results CSV path, - for stdout")
	flags.StringVar(&curvePath, "curve", "", "write the mean best fitness per generation across runs to this CSV")
	flags.IntVar(&curveStep, "curve-step", 1, "generation stride of the convergence curve")
	return cmd
}

func writeCurve(path string, summaries []gpsr.RunSummary, step int) error {
	histories := make([][]float64, len(summaries))
	for i, s := range summaries {
		histories[i] = s.BestByGeneration
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create curve %s: %w", path, err)
	}
	defer f.Close()
	if err := stats.WriteConvergenceCurve(f, stats.BuildConvergenceCurve(histories, step)); err != nil {
		return fmt.Errorf("write curve %s: %w", path, err)
	}
	return f.Close()
}
