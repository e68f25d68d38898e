// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

package cmd

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/elastic/elastic-agent-inputs/internal/pkg/inputs/orchestrator"
)

const (
	summaryText  = "text"
	summaryTable = "table"
)

func printSummary(w io.Writer, s *orchestrator.Summary, format string) {
	if s.DryRun {
		fmt.Fprintln(w, "Dry run, no configuration was written.")
	}
	if s.NothingProcessed() {
		fmt.Fprintf(w, "No input files to process, skipped %d file(s).\n", len(s.Skipped))
	} else {
		fmt.Fprintf(w, "Processed %d file(s), skipped %d file(s).\n", len(s.Processed), len(s.Skipped))
	}

	switch format {
	case summaryTable:
		printTables(w, s)
	default:
		for _, r := range s.Processed {
			fmt.Fprintf(w, "  %s -> %s: %d replaced, %d appended, %d skipped entries\n",
				r.Path, r.Aggregate, r.Replaced, r.Appended, r.SkippedEntries)
		}
		for _, f := range s.Skipped {
			fmt.Fprintf(w, "  %s: skipped, %s\n", f.Path, f.Reason)
		}
	}
}

func printTables(w io.Writer, s *orchestrator.Summary) {
	if len(s.Processed) > 0 {
		t := table.NewWriter()
		t.AppendHeader(table.Row{"File", "Aggregate", "Replaced", "Appended", "Skipped entries"})
		for _, r := range s.Processed {
			t.AppendRow(table.Row{r.Path, r.Aggregate, r.Replaced, r.Appended, r.SkippedEntries})
		}
		fmt.Fprintln(w, t.Render())
	}

	if len(s.Skipped) > 0 {
		t := table.NewWriter()
		t.AppendHeader(table.Row{"Skipped file", "Reason"})
		for _, f := range s.Skipped {
			t.AppendRow(table.Row{f.Path, f.Reason})
		}
		fmt.Fprintln(w, t.Render())
	}
}
