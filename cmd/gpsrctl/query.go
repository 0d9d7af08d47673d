package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"gpsr/internal/stats"
	"gpsr/pkg/gpsr"
)

func newRunsCmd(root *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			client, err := root.client(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer closeClient(client, &err)

			runs, err := client.Runs(cmd.Context(), limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(root.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN ID\tCREATED\tSTATE\tGENERATIONS\tELAPSED\tFITNESS\tTREE")
			for _, run := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					run.ID,
					humanize.Time(run.CreatedAt),
					run.State,
					humanize.Comma(int64(run.Generations)),
					stats.FormatElapsed(time.Duration(run.ElapsedMS)*time.Millisecond),
					fitnessText(run.Final.FitnessState, run.Final.Fitness),
					run.Final.Expression,
				)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to list (0 lists all)")
	return cmd
}

func newHistoryCmd(root *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Print the best fitness of every generation of a run (latest by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			client, err := root.client(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer closeClient(client, &err)

			history, err := client.FitnessHistory(cmd.Context(), runArg(args))
			if err != nil {
				return err
			}
			if limit > 0 && len(history) > limit {
				history = history[:limit]
			}
			for i, best := range history {
				fmt.Fprintf(root.stdout, "%d\t%g\n", i+1, best)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "print at most this many generations (0 prints all)")
	return cmd
}

func newDiagnosticsCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diagnostics [run-id]",
		Short: "Print stored per-generation diagnostics of a run (latest by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			client, err := root.client(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer closeClient(client, &err)

			diagnostics, err := client.Diagnostics(cmd.Context(), runArg(args))
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(root.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "GENERATION\tSTEP\tBEST\tHEIGHT\tMEDIAN\tINVALID\tSTAGNANT\tINJECTS\tMS")
			for _, d := range diagnostics {
				fmt.Fprintf(tw, "%s\t%s\t%g\t%d\t%g\t%d/%d\t%d\t%d\t%.3f\n",
					humanize.Comma(int64(d.Generation)),
					d.Step,
					d.BestFitness,
					d.BestHeight,
					d.MedianFitness,
					d.InvalidCount,
					d.PopulationSize,
					d.DuplicateCount,
					d.InjectCount,
					d.DurationMS,
				)
			}
			return tw.Flush()
		},
	}
	return cmd
}

func newExportCmd(root *rootOptions) *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "export [run-id]",
		Short: "Write a run's record, history and diagnostics to a directory (latest by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			client, err := root.client(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer closeClient(client, &err)

			dir, err := client.Export(cmd.Context(), runArg(args), outDir)
			if err != nil {
				return err
			}
			size, err := dirSize(dir)
			if err != nil {
				return err
			}
			fmt.Fprintf(root.stdout, "exported %s (%s)\n", dir, humanize.Bytes(uint64(size)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "exports", "export base directory")
	return cmd
}

func runArg(args []string) string {
	if len(args) == 0 {
		return gpsr.LatestRun
	}
	return args[0]
}

func fitnessText(state string, value float64) string {
	if state != "valid" {
		return state
	}
	return fmt.Sprintf("%g", value)
}

func dirSize(dir string) (int64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, entry := range entries {
		info, err := os.Stat(filepath.Join(dir, entry.Name()))
		if err != nil {
			return 0, err
		}
		total += info.Size()
	}
	return total, nil
}
