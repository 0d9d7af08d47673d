package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"gpsr/internal/config"
	"gpsr/internal/logging"
	"gpsr/internal/metrics"
	"gpsr/pkg/gpsr"
)

type rootOptions struct {
	storeKind string
	dbPath    string
	logLevel  string
	logFormat string

	stdout io.Writer
	stderr io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{stdout: stdout, stderr: stderr}
	cmd := &cobra.Command{
		Use:           "gpsrctl",
		Short:         "Evolve symbolic regression expressions with genetic programming",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.storeKind, "store", "sqlite", "store backend: memory|sqlite")
	flags.StringVar(&opts.dbPath, "db-path", "gpsr.db", "sqlite database path")
	flags.StringVar(&opts.logLevel, "log-level", "info", "log level: debug|info|warn|error")
	flags.StringVar(&opts.logFormat, "log-format", logging.FormatAuto, "log format: auto|text|json")

	cmd.AddCommand(
		newRunCmd(opts),
		newSweepCmd(opts),
		newRunsCmd(opts),
		newHistoryCmd(opts),
		newDiagnosticsCmd(opts),
		newExportCmd(opts),
		newSummarizeCmd(opts),
		newConfigCmd(opts),
	)
	return cmd
}

func (o *rootOptions) logger() (*slog.Logger, error) {
	return logging.New(o.stderr, o.logLevel, o.logFormat)
}

func (o *rootOptions) client(ctx context.Context, collector *metrics.Collector) (*gpsr.Client, error) {
	logger, err := o.logger()
	if err != nil {
		return nil, err
	}
	return gpsr.New(ctx, gpsr.Options{
		StoreKind: o.storeKind,
		DBPath:    o.dbPath,
		Logger:    logger,
		Metrics:   collector,
	})
}

// loadSettings reads path when given, otherwise starts from the defaults.
func loadSettings(path string) (config.Settings, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func closeClient(c *gpsr.Client, errp *error) {
	if err := c.Close(); err != nil && *errp == nil {
		*errp = fmt.Errorf("close store: %w", err)
	}
}
