// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/elastic/elastic-agent-inputs/internal/pkg/cli"
	"github.com/elastic/elastic-agent-inputs/internal/pkg/inputs/yamlcheck"
)

func newValidateCommandWithArgs(_ []string, streams *cli.IOStreams) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "validate <file>...",
		Short:         "Validates the YAML syntax of files without merging them",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // do not display usage on error
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, files []string) error {
			for _, path := range files {
				if err := yamlcheck.File(path); err != nil {
					return err
				}
				fmt.Fprintf(streams.Out, "%s: valid\n", path)
			}
			return nil
		},
	}

	return cmd
}
