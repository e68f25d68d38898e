// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

// Package yamlcheck verifies that files are well-formed YAML.
package yamlcheck

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

var (
	// ErrNotFound is returned when the file to validate does not exist.
	ErrNotFound = errors.New("file not found")
	// ErrSyntax is returned when the content is not valid YAML.
	ErrSyntax = errors.New("invalid YAML")
)

// File validates the YAML syntax of the file at path.
func File(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("error validating %s: %w: %w", path, ErrNotFound, err)
		}
		return fmt.Errorf("error validating %s: %w", path, err)
	}
	return Bytes(path, data)
}

// Bytes validates data as a YAML stream, every document included. name
// identifies the content in the returned error.
func Bytes(name string, data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	for {
		var n yaml.Node
		err := dec.Decode(&n)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("error validating %s: %w: %w", name, ErrSyntax, err)
		}
	}
}
