// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/elastic/elastic-agent-libs/service"

	"github.com/elastic/elastic-agent-inputs/internal/pkg/cmd"
)

// Merges the input files given as arguments.
func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	service.HandleSignals(func() {}, cancel)

	command := cmd.NewCommand()
	if err := command.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
