// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

package yamlcheck

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFile(t *testing.T) {
	tests := map[string]struct {
		content string
		wantErr error
	}{
		"valid mapping":         {content: "inputs:\n  - id: a\n"},
		"valid sequence":        {content: "- id: a\n  type: log\n"},
		"empty":                 {content: ""},
		"comments only":         {content: "# nothing\n"},
		"several documents":     {content: "a: 1\n---\nb: 2\n"},
		"unclosed flow":         {content: "inputs: [\n", wantErr: ErrSyntax},
		"mapping in scalar":     {content: "a: b: c\n", wantErr: ErrSyntax},
		"broken second doc":     {content: "a: 1\n---\nb: [\n", wantErr: ErrSyntax},
		"unknown anchor":        {content: "a: *missing\n", wantErr: ErrSyntax},
		"tab indentation error": {content: "a:\n\t- b\n", wantErr: ErrSyntax},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "file.yml")
			require.NoError(t, os.WriteFile(path, []byte(tc.content), 0o600))

			err := File(path)
			if tc.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tc.wantErr)
			assert.Contains(t, err.Error(), path)
		})
	}
}

func TestFileNotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.yml")

	err := File(path)
	require.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.NotErrorIs(t, err, ErrSyntax)
	assert.Contains(t, err.Error(), path)
}

func TestBytes(t *testing.T) {
	require.NoError(t, Bytes("memory", []byte("inputs: []\n")))

	err := Bytes("memory", []byte("inputs: [\n"))
	require.ErrorIs(t, err, ErrSyntax)
	assert.Contains(t, err.Error(), "error validating memory")
}
