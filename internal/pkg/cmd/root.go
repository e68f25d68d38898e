// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/elastic/elastic-agent-inputs/internal/pkg/basecmd"
	"github.com/elastic/elastic-agent-inputs/internal/pkg/cli"
	"github.com/elastic/elastic-agent-inputs/internal/pkg/inputs/orchestrator"
	"github.com/elastic/elastic-agent-inputs/pkg/core/logger"
)

const loggerName = "inputs"

// NewCommand returns the default command for the merger.
func NewCommand() *cobra.Command {
	return NewCommandWithArgs(os.Args, cli.NewIOStreams())
}

// NewCommandWithArgs returns the root command with its flags and subcommands.
// Running the root command merges every changed input file given as argument
// into the aggregate configuration found two directories above it.
func NewCommandWithArgs(args []string, streams *cli.IOStreams) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "elastic-agent-inputs [flags] [file...]",
		Short: "Merge changed input files into their elastic-agent.yml",
		Long: `Merges changed input files into the aggregate agent configuration.

Each argument is the path of a changed file, usually the list of files touched
by a commit. Files with a YAML extension that live under an "inputs" directory
are merged into the elastic-agent.yml found two directories above them. Every
entry of the input file replaces the aggregate input with the same id, or is
appended when the id is new. Other arguments are skipped.
`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(c *cobra.Command, files []string) error {
			return runMerge(c, files, streams)
		},
	}

	setupMergeFlags(cmd.Flags())

	cmd.AddCommand(basecmd.NewDefaultCommandsWithArgs(args, streams)...)
	cmd.AddCommand(newValidateCommandWithArgs(args, streams))

	return cmd
}

func runMerge(c *cobra.Command, files []string, streams *cli.IOStreams) error {
	s, err := loadSettings(c)
	if err != nil {
		return err
	}

	log, err := logger.New(loggerName, streams.Err, s.Logging)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	summary, err := orchestrator.New(s.Merge, log).Run(c.Context(), files)
	if err != nil {
		return err
	}

	format, _ := c.Flags().GetString("summary")
	printSummary(streams.Out, summary, format)
	return nil
}
