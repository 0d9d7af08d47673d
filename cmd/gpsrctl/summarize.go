package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"gpsr/internal/stats"
)

func newSummarizeCmd(root *rootOptions) *cobra.Command {
	var (
		outPath string
		trim    float64
	)
	cmd := &cobra.Command{
		Use:   "summarize <results.csv>",
		Short: "Average generation counts and elapsed times per group of a results CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if trim < 0 || trim >= 0.5 {
				return fmt.Errorf("trim must be in [0, 0.5), got %g", trim)
			}
			in, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open results %s: %w", args[0], err)
			}
			defer in.Close()

			var out io.Writer = root.stdout
			if outPath != "" && outPath != "-" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("create summary %s: %w", outPath, err)
				}
				defer f.Close()
				out = f
			}
			summaries, err := stats.SummarizeResults(in, out, trim)
			if err != nil {
				return fmt.Errorf("summarize %s: %w", args[0], err)
			}
			if out != root.stdout {
				fmt.Fprintf(root.stdout, "summarized %d groups into %s\n", len(summaries), outPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "-", "summary CSV path, - for stdout")
	cmd.Flags().Float64Var(&trim, "trim", stats.DefaultTrim, "fraction dropped from each end for trimmed averages")
	return cmd
}
