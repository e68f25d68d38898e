// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

package basecmd

import (
	"github.com/spf13/cobra"

	"github.com/elastic/elastic-agent-inputs/internal/pkg/basecmd/version"
	"github.com/elastic/elastic-agent-inputs/internal/pkg/cli"
)

// NewDefaultCommandsWithArgs returns a list of default commands to executes.
func NewDefaultCommandsWithArgs(_ []string, streams *cli.IOStreams) []*cobra.Command {
	return []*cobra.Command{
		version.NewCommandWithArgs(streams),
	}
}
