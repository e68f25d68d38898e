// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/elastic/elastic-agent-inputs/internal/pkg/cli"
	"github.com/elastic/elastic-agent-inputs/internal/pkg/config"
	"github.com/elastic/elastic-agent-inputs/internal/pkg/inputs/orchestrator"
	"github.com/elastic/elastic-agent-inputs/pkg/core/logger"
)

// settings is the content of a settings file given with --config.
type settings struct {
	Merge   orchestrator.Config `config:",inline"`
	Logging logger.Config       `config:"logging"`
}

func defaultSettings() settings {
	return settings{
		Merge:   orchestrator.DefaultConfig(),
		Logging: logger.DefaultLoggingConfig(),
	}
}

func setupMergeFlags(flags *pflag.FlagSet) {
	defaults := defaultSettings()

	flags.StringSliceP("config", "c", nil, "Settings file, can be repeated; later files override earlier ones")
	flags.Bool("dry-run", false, "Merge and validate in memory without writing the aggregate")
	flags.Bool("lock", false, "Hold an advisory lock on the aggregate while it is rewritten")
	flags.Duration("lock-timeout", time.Duration(0), "How long to wait for the lock, 0 fails immediately when it is held")
	flags.String("aggregate-name", defaults.Merge.AggregateName, "File name of the aggregate configuration")
	flags.String("inputs-dir", defaults.Merge.InputsDir, "Directory name input files must live under")
	flags.String("extensions", ".yml,.yaml", "Comma separated list of input file extensions")
	flags.String("id-key", defaults.Merge.IDKey, "Field identifying an input entry")
	flags.String("summary", summaryText, "Summary format printed on stdout (text, table)")
	flags.String("log-level", defaults.Logging.Level.String(), "Log level (debug, info, warning, error)")
	flags.String("log-format", string(defaults.Logging.Format), "Log format (text, json)")
}

// loadSettings builds the settings from the defaults, the settings files and
// finally the flags explicitly set on the command line.
func loadSettings(c *cobra.Command) (settings, error) {
	s := defaultSettings()

	files, _ := c.Flags().GetStringSlice("config")
	if len(files) > 0 {
		cfg, err := config.LoadFiles(files...)
		if err != nil {
			return s, fmt.Errorf("could not read settings: %w", err)
		}
		if err := cfg.UnpackTo(&s); err != nil {
			return s, fmt.Errorf("invalid settings: %w", err)
		}
	}

	flags := c.Flags()
	if flags.Changed("dry-run") {
		s.Merge.DryRun, _ = flags.GetBool("dry-run")
	}
	if flags.Changed("lock") {
		s.Merge.Lock.Enabled, _ = flags.GetBool("lock")
	}
	if flags.Changed("lock-timeout") {
		s.Merge.Lock.Timeout, _ = flags.GetDuration("lock-timeout")
	}
	if flags.Changed("aggregate-name") {
		s.Merge.AggregateName, _ = flags.GetString("aggregate-name")
	}
	if flags.Changed("inputs-dir") {
		s.Merge.InputsDir, _ = flags.GetString("inputs-dir")
	}
	if flags.Changed("extensions") {
		exts, _ := flags.GetString("extensions")
		s.Merge.Extensions = cli.StringToSlice(exts)
	}
	if flags.Changed("id-key") {
		s.Merge.IDKey, _ = flags.GetString("id-key")
	}
	if flags.Changed("log-level") {
		name, _ := flags.GetString("log-level")
		lvl, err := logger.ParseLevel(name)
		if err != nil {
			return s, err
		}
		s.Logging.Level = lvl
	}
	if flags.Changed("log-format") {
		format, _ := flags.GetString("log-format")
		s.Logging.Format = logger.Format(format)
	}

	if err := s.Merge.Validate(); err != nil {
		return s, fmt.Errorf("invalid settings: %w", err)
	}
	switch s.Logging.Format {
	case logger.FormatText, logger.FormatJSON:
	default:
		return s, fmt.Errorf("invalid settings: unknown log format %q", s.Logging.Format)
	}

	format, _ := flags.GetString("summary")
	if format != summaryText && format != summaryTable {
		return s, fmt.Errorf("unknown summary format %q", format)
	}
	return s, nil
}
