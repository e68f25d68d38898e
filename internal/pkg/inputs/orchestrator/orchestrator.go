// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

// Package orchestrator merges changed input fragment files into the
// aggregate agent configuration that sits two levels above them.
package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/elastic/elastic-agent-inputs/internal/pkg/filelock"
	"github.com/elastic/elastic-agent-inputs/internal/pkg/inputs"
	"github.com/elastic/elastic-agent-inputs/internal/pkg/inputs/yamlcheck"
	"github.com/elastic/elastic-agent-inputs/internal/pkg/storage"
	"github.com/elastic/elastic-agent-inputs/pkg/core/logger"
)

// ErrAggregateNotFound is returned when the aggregate derived from an input
// file does not exist.
var ErrAggregateNotFound = errors.New("aggregate configuration not found")

// FileError reports a failed operation on a file.
type FileError struct {
	Op   string
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// StoreFactory returns the storage for an aggregate path.
type StoreFactory func(path string) storage.Storage

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithStoreFactory replaces the disk store used to read and write aggregates.
func WithStoreFactory(f StoreFactory) Option {
	return func(o *Orchestrator) {
		o.newStore = f
	}
}

// Orchestrator merges input fragments into their aggregate configuration.
type Orchestrator struct {
	cfg      Config
	log      *logger.Logger
	newStore StoreFactory
}

// New returns an orchestrator using cfg.
func New(cfg Config, log *logger.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg: cfg,
		log: log,
		newStore: func(path string) storage.Storage {
			return storage.NewDiskStore(path)
		},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// AggregatePath derives the aggregate location of an input file: the
// grandparent directory of the input joined with aggregateName.
func AggregatePath(inputPath, aggregateName string) string {
	return filepath.Join(filepath.Dir(filepath.Dir(inputPath)), aggregateName)
}

// Eligible reports whether path is an input fragment to merge. When it is
// not, the reason is returned.
func (o *Orchestrator) Eligible(path string) (bool, string) {
	base := filepath.Base(path)

	hasExt := false
	for _, ext := range o.cfg.extensions() {
		if strings.HasSuffix(base, ext) && len(base) > len(ext) {
			hasExt = true
			break
		}
	}
	if !hasExt {
		return false, "not a YAML file"
	}

	if base == o.cfg.AggregateName {
		return false, "aggregate configuration"
	}

	dir := filepath.ToSlash(filepath.Dir(path))
	for _, segment := range strings.Split(dir, "/") {
		if segment == o.cfg.InputsDir {
			return true, ""
		}
	}
	return false, fmt.Sprintf("not under an %q directory", o.cfg.InputsDir)
}

// Run merges every eligible path in order. It stops at the first fatal error;
// aggregates updated before that keep their changes.
func (o *Orchestrator) Run(ctx context.Context, paths []string) (*Summary, error) {
	summary := &Summary{DryRun: o.cfg.DryRun}
	if len(paths) == 0 {
		o.log.Info("No changed files provided.")
		return summary, nil
	}

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		if ok, reason := o.Eligible(path); !ok {
			o.log.Infow("Skipping file", "file", path, "reason", reason)
			summary.Skipped = append(summary.Skipped, SkippedFile{Path: path, Reason: reason})
			continue
		}

		report, err := o.process(ctx, path)
		if err != nil {
			o.log.Errorw("Failed to update configuration", "file", path, "error", err)
			return summary, err
		}
		summary.Processed = append(summary.Processed, report)
	}

	if len(summary.Processed) == 0 {
		o.log.Infow("No input files to process.", "skipped", len(summary.Skipped))
	} else {
		o.log.Infow("Finished merging input files",
			"processed", len(summary.Processed),
			"skipped", len(summary.Skipped))
	}
	return summary, nil
}

func (o *Orchestrator) process(ctx context.Context, path string) (FileReport, error) {
	report := FileReport{Path: path, Aggregate: AggregatePath(path, o.cfg.AggregateName)}

	if err := yamlcheck.File(path); err != nil {
		return report, err
	}

	store := o.newStore(report.Aggregate)
	exists, err := store.Exists()
	if err != nil {
		return report, &FileError{Op: "checking", Path: report.Aggregate, Err: err}
	}
	if !exists {
		return report, &FileError{Op: "locating", Path: report.Aggregate, Err: ErrAggregateNotFound}
	}

	if o.cfg.Lock.Enabled {
		locker, err := filelock.NewFileLocker(report.Aggregate, o.cfg.Lock.Timeout)
		if err != nil {
			return report, &FileError{Op: "locking", Path: report.Aggregate, Err: err}
		}
		if err := locker.Lock(ctx); err != nil {
			return report, err
		}
		defer func() {
			if err := locker.Unlock(); err != nil {
				o.log.Warnw("Failed to release lock", "aggregate", report.Aggregate, "error", err)
			}
		}()
	}

	if err := yamlcheck.File(report.Aggregate); err != nil {
		return report, err
	}

	frag, err := o.loadFragment(path)
	if err != nil {
		return report, err
	}
	agg, err := o.loadAggregate(store, report.Aggregate)
	if err != nil {
		return report, err
	}

	result := inputs.Merge(agg, frag, inputs.WithIDKey(o.cfg.IDKey))
	for _, w := range result.Warnings() {
		o.log.Warnw("Skipping input entry",
			"file", path,
			"entry", w.Index,
			"reason", w.Reason)
	}
	for _, ch := range result.Changes {
		if ch.Kind != inputs.Skipped {
			o.log.Debugw("Merged input entry", "file", path, "id", ch.ID, "change", ch.Kind.String(), "position", ch.Position)
		}
		if ch.Dropped > 0 {
			o.log.Warnw("Removed duplicate input entries", "aggregate", report.Aggregate, "id", ch.ID, "count", ch.Dropped)
		}
	}
	counts := result.Counts()
	report.Replaced, report.Appended, report.SkippedEntries = counts.Replaced, counts.Appended, counts.Skipped

	out, err := agg.Marshal()
	if err != nil {
		return report, &FileError{Op: "encoding", Path: report.Aggregate, Err: err}
	}

	// The encoded result is checked before it can replace the aggregate.
	if err := yamlcheck.Bytes(report.Aggregate, out); err != nil {
		return report, err
	}

	if o.cfg.DryRun {
		o.log.Infow("Dry run, configuration not written", "file", path, "aggregate", report.Aggregate)
		return report, nil
	}

	if err := store.Save(bytes.NewReader(out)); err != nil {
		return report, &FileError{Op: "writing", Path: report.Aggregate, Err: err}
	}
	if err := yamlcheck.File(report.Aggregate); err != nil {
		return report, err
	}

	o.log.Infof("Successfully updated %s with %s", report.Aggregate, path)
	return report, nil
}

func (o *Orchestrator) loadFragment(path string) (*inputs.Fragment, error) {
	data, err := readAll(storage.NewDiskStore(path))
	if err != nil {
		return nil, &FileError{Op: "reading", Path: path, Err: err}
	}
	frag, err := inputs.ParseFragment(data)
	if err != nil {
		return nil, &FileError{Op: "loading", Path: path, Err: err}
	}
	return frag, nil
}

func (o *Orchestrator) loadAggregate(store storage.Storage, path string) (*inputs.Aggregate, error) {
	data, err := readAll(store)
	if err != nil {
		return nil, &FileError{Op: "reading", Path: path, Err: err}
	}
	agg, err := inputs.ParseAggregate(data)
	if err != nil {
		return nil, &FileError{Op: "loading", Path: path, Err: err}
	}
	return agg, nil
}

func readAll(s storage.Storage) ([]byte, error) {
	r, err := s.Load()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
