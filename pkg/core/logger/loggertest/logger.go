// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

package loggertest

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/elastic/elastic-agent-libs/logp"

	"github.com/elastic/elastic-agent-inputs/pkg/core/logger"
)

// New creates a testing logger that only records to the returned observer,
// at debug level. Check observer.ObservedLogs for more details.
func New(name string) (*logger.Logger, *observer.ObservedLogs) {
	core, obs := observer.New(zapcore.DebugLevel)

	log := logp.NewLogger(
		name,
		zap.WrapCore(func(zapcore.Core) zapcore.Core {
			return core
		}))

	return log, obs
}

// Messages returns the messages logged at level, oldest first.
func Messages(obs *observer.ObservedLogs, level zapcore.Level) []string {
	var msgs []string
	for _, entry := range obs.FilterLevelExact(level).All() {
		msgs = append(msgs, entry.Message)
	}
	return msgs
}
