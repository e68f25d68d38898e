// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

package orchestrator

import (
	"errors"
	"strings"
	"time"

	"github.com/elastic/elastic-agent-inputs/internal/pkg/inputs"
)

const (
	// DefaultAggregateName is the file name of the aggregate configuration.
	DefaultAggregateName = "elastic-agent.yml"
	// DefaultInputsDir is the directory segment input fragments live under.
	DefaultInputsDir = "inputs"
)

// Config drives which files are merged and how.
type Config struct {
	AggregateName string     `config:"aggregate_name"`
	InputsDir     string     `config:"inputs_dir"`
	Extensions    []string   `config:"extensions"`
	IDKey         string     `config:"id_key"`
	DryRun        bool       `config:"dry_run"`
	Lock          LockConfig `config:"lock"`
}

// LockConfig configures the advisory lock taken on the aggregate while it is
// rewritten.
type LockConfig struct {
	Enabled bool          `config:"enabled"`
	Timeout time.Duration `config:"timeout"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		AggregateName: DefaultAggregateName,
		InputsDir:     DefaultInputsDir,
		Extensions:    []string{".yml", ".yaml"},
		IDKey:         inputs.DefaultIDKey,
	}
}

// Validate implements the ucfg.Validator interface.
func (c *Config) Validate() error {
	var errs []error
	if c.AggregateName == "" {
		errs = append(errs, errors.New("aggregate_name must not be empty"))
	}
	if strings.ContainsAny(c.AggregateName, `/\`) {
		errs = append(errs, errors.New("aggregate_name must be a file name, not a path"))
	}
	if c.InputsDir == "" {
		errs = append(errs, errors.New("inputs_dir must not be empty"))
	}
	if len(c.Extensions) == 0 {
		errs = append(errs, errors.New("at least one extension is required"))
	}
	for _, ext := range c.Extensions {
		if strings.TrimPrefix(ext, ".") == "" {
			errs = append(errs, errors.New("extensions must not be empty"))
			break
		}
	}
	if c.IDKey == "" {
		errs = append(errs, errors.New("id_key must not be empty"))
	}
	if c.Lock.Timeout < 0 {
		errs = append(errs, errors.New("lock.timeout must not be negative"))
	}
	return errors.Join(errs...)
}

func (c *Config) extensions() []string {
	exts := make([]string, 0, len(c.Extensions))
	for _, ext := range c.Extensions {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = append(exts, ext)
	}
	return exts
}
