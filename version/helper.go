// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

package version

import "time"

// Set at link time with -ldflags "-X github.com/elastic/elastic-agent-inputs/version.commit=...".
var (
	buildTime = "unknown"
	commit    = "unknown"
	qualifier = ""
)

// GetDefaultVersion returns the version of the binary, including the
// qualifier when one was injected at build time.
func GetDefaultVersion() string {
	if qualifier == "" {
		return defaultVersion
	}
	return defaultVersion + "-" + qualifier
}

// BuildTime exposes the compile-time build time information.
// It will represent the zero time instant if parsing fails.
func BuildTime() time.Time {
	t, err := time.Parse(time.RFC3339, buildTime)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Commit exposes the compile-time commit hash.
func Commit() string {
	return commit
}
