// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

package cli

import (
	"bytes"
	"io"
	"os"
)

// IOStreams groups the pipes a command reads from and writes to. Commands
// never touch os.Stdout or os.Stderr directly so they can be exercised with
// in-memory buffers.
type IOStreams struct {
	// In is the command input.
	In io.Reader

	// Out receives the command result, for example the merge summary.
	Out io.Writer

	// Err receives logs and error messages.
	Err io.Writer
}

// NewIOStreams returns IOStreams bound to the process pipes.
func NewIOStreams() *IOStreams {
	return &IOStreams{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}
}

// NewTestingIOStreams returns IOStreams backed by buffers, along with the
// buffers themselves.
func NewTestingIOStreams() (*IOStreams, *bytes.Buffer, *bytes.Buffer, *bytes.Buffer) {
	in := &bytes.Buffer{}
	out := &bytes.Buffer{}
	err := &bytes.Buffer{}
	return &IOStreams{In: in, Out: out, Err: err}, in, out, err
}
