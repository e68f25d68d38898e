// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

// Package release describes the build of the running binary.
package release

import (
	"fmt"
	"strconv"
	"time"

	"github.com/elastic/elastic-agent-inputs/version"
)

const hashLen = 6

// snapshot marks a snapshot build, set with -ldflags.
var snapshot = ""

// VersionInfo is the build description printed by `version`.
type VersionInfo struct {
	Version   string    `yaml:"version"`
	Commit    string    `yaml:"commit"`
	BuildTime time.Time `yaml:"build_time"`
	Snapshot  bool      `yaml:"snapshot"`
}

// Version returns the version of the binary.
func Version() string {
	return version.GetDefaultVersion()
}

// Info collects the build information injected at link time.
func Info() VersionInfo {
	isSnapshot, err := strconv.ParseBool(snapshot)
	return VersionInfo{
		Version:   Version(),
		Commit:    version.Commit(),
		BuildTime: version.BuildTime(),
		Snapshot:  err == nil && isSnapshot,
	}
}

// TrimCommit shortens a commit hash to its first 6 characters.
func TrimCommit(commit string) string {
	if len(commit) > hashLen {
		return commit[:hashLen]
	}
	return commit
}

// String renders v as "1.2.3[-SNAPSHOT] (build: abcdef at <time>)".
func (v VersionInfo) String() string {
	name := v.Version
	if v.Snapshot {
		name += "-SNAPSHOT"
	}
	return fmt.Sprintf("%s (build: %s at %s)", name, TrimCommit(v.Commit), v.BuildTime.Format("2006-01-02 15:04:05 -0700 MST"))
}
