package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"gpsr/internal/config"
	"gpsr/internal/dataset"
	"gpsr/internal/factory"
)

func newConfigCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create and check settings files",
	}
	cmd.AddCommand(newConfigInitCmd(root), newConfigValidateCmd(root), newConfigOptionsCmd(root))
	return cmd
}

func newConfigInitCmd(root *rootOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init <path>",
		Short: "Write the default settings to a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			if err := config.Default().Save(path); err != nil {
				return err
			}
			fmt.Fprintf(root.stdout, "wrote default settings to %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func newConfigValidateCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <path>",
		Short: "Check a settings file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := config.Load(args[0])
			if err != nil {
				return err
			}
			if _, err := s.EvolutionConfig(); err != nil {
				return err
			}
			fmt.Fprintf(root.stdout, "%s is valid: population %d, %s, target %s\n",
				args[0], s.PopulationSize, s.GenerationMethod, s.TargetFunction)
			return nil
		},
	}
}

func newConfigOptionsCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "options",
		Short: "List generation methods and target functions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(root.stdout, "generation methods: %s\n", strings.Join(factory.MethodNames(), ", "))
			fmt.Fprintln(root.stdout, "target functions:")
			for _, name := range dataset.RegisteredTargets() {
				fmt.Fprintf(root.stdout, "  %s\t%s\n", name, dataset.DescribeTarget(name))
			}
			return nil
		},
	}
}
