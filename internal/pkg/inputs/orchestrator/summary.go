// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

package orchestrator

// Summary is the outcome of a Run.
type Summary struct {
	Processed []FileReport
	Skipped   []SkippedFile
	DryRun    bool
}

// FileReport describes the merge of one input file.
type FileReport struct {
	Path      string
	Aggregate string
	Replaced  int
	Appended  int
	// SkippedEntries counts fragment entries ignored for lack of identity.
	SkippedEntries int
}

// SkippedFile is a supplied path that was not merged.
type SkippedFile struct {
	Path   string
	Reason string
}

// NothingProcessed is true when no supplied path was merged.
func (s *Summary) NothingProcessed() bool {
	return len(s.Processed) == 0
}
