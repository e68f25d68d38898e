// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

package orchestrator

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/otiai10/copy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/elastic/elastic-agent-inputs/internal/pkg/filelock"
	"github.com/elastic/elastic-agent-inputs/internal/pkg/inputs"
	"github.com/elastic/elastic-agent-inputs/internal/pkg/inputs/yamlcheck"
	"github.com/elastic/elastic-agent-inputs/internal/pkg/storage"
	"github.com/elastic/elastic-agent-inputs/pkg/core/logger/loggertest"
)

func TestRunMergesInputs(t *testing.T) {
	dir := setupFleet(t)
	log, obs := loggertest.New(t.Name())

	o := New(DefaultConfig(), log)
	summary, err := o.Run(context.Background(), []string{
		filepath.Join(dir, "agent", "inputs", "nginx.yml"),
		filepath.Join(dir, "agent", "inputs", "redis.yaml"),
	})
	require.NoError(t, err)

	aggregate := filepath.Join(dir, "agent", "elastic-agent.yml")
	assert.Equal(t, []FileReport{
		{Path: filepath.Join(dir, "agent", "inputs", "nginx.yml"), Aggregate: aggregate, Replaced: 1},
		{Path: filepath.Join(dir, "agent", "inputs", "redis.yaml"), Aggregate: aggregate, Appended: 1, SkippedEntries: 1},
	}, summary.Processed)
	assert.Empty(t, summary.Skipped)
	assert.False(t, summary.NothingProcessed())

	expected := map[string]interface{}{
		"outputs": map[string]interface{}{
			"default": map[string]interface{}{
				"type":  "elasticsearch",
				"hosts": []interface{}{"127.0.0.1:9200"},
			},
		},
		"inputs": []interface{}{
			map[string]interface{}{
				"id":    "system-logs",
				"type":  "logfile",
				"paths": []interface{}{"/var/log/syslog"},
			},
			map[string]interface{}{
				"id":    "nginx",
				"type":  "filestream",
				"paths": []interface{}{"/var/log/nginx/access.log", "/var/log/nginx/error.log"},
			},
			map[string]interface{}{
				"id":    "redis",
				"type":  "redis/metrics",
				"hosts": []interface{}{"localhost:6379"},
			},
		},
		"agent": map[string]interface{}{
			"monitoring": map[string]interface{}{"enabled": false},
		},
	}
	if diff := cmp.Diff(expected, readYAML(t, aggregate)); diff != "" {
		t.Errorf("unexpected aggregate (-want +got):\n%s", diff)
	}

	assert.Equal(t, []string{"Skipping input entry"}, loggertest.Messages(obs, zapcore.WarnLevel))
	assert.Contains(t, loggertest.Messages(obs, zapcore.InfoLevel),
		"Successfully updated "+aggregate+" with "+filepath.Join(dir, "agent", "inputs", "nginx.yml"))
}

func TestRunIsIdempotent(t *testing.T) {
	dir := setupFleet(t)
	log, _ := loggertest.New(t.Name())
	paths := []string{
		filepath.Join(dir, "agent", "inputs", "nginx.yml"),
		filepath.Join(dir, "agent", "inputs", "redis.yaml"),
	}
	aggregate := filepath.Join(dir, "agent", "elastic-agent.yml")

	o := New(DefaultConfig(), log)
	_, err := o.Run(context.Background(), paths)
	require.NoError(t, err)
	first, err := os.ReadFile(aggregate)
	require.NoError(t, err)

	summary, err := o.Run(context.Background(), paths)
	require.NoError(t, err)
	second, err := os.ReadFile(aggregate)
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
	assert.Equal(t, 1, summary.Processed[1].Replaced)
	assert.Equal(t, 0, summary.Processed[1].Appended)
}

func TestRunSkipsIneligiblePaths(t *testing.T) {
	dir := setupFleet(t)
	log, obs := loggertest.New(t.Name())
	aggregate := filepath.Join(dir, "agent", "elastic-agent.yml")
	before, err := os.ReadFile(aggregate)
	require.NoError(t, err)

	o := New(DefaultConfig(), log)
	summary, err := o.Run(context.Background(), []string{
		filepath.Join(dir, "agent", "inputs", "notes.txt"),
		aggregate,
		filepath.Join(dir, "agent", "conf", "extra.yml"),
		filepath.Join(dir, "agent", "inputs-old", "extra.yml"),
	})
	require.NoError(t, err)

	assert.True(t, summary.NothingProcessed())
	assert.Equal(t, []SkippedFile{
		{Path: filepath.Join(dir, "agent", "inputs", "notes.txt"), Reason: "not a YAML file"},
		{Path: aggregate, Reason: "aggregate configuration"},
		{Path: filepath.Join(dir, "agent", "conf", "extra.yml"), Reason: `not under an "inputs" directory`},
		{Path: filepath.Join(dir, "agent", "inputs-old", "extra.yml"), Reason: `not under an "inputs" directory`},
	}, summary.Skipped)
	assert.Contains(t, loggertest.Messages(obs, zapcore.InfoLevel), "No input files to process.")

	after, err := os.ReadFile(aggregate)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRunNoPaths(t *testing.T) {
	log, obs := loggertest.New(t.Name())

	summary, err := New(DefaultConfig(), log).Run(context.Background(), nil)
	require.NoError(t, err)

	assert.True(t, summary.NothingProcessed())
	assert.Empty(t, summary.Skipped)
	assert.Equal(t, []string{"No changed files provided."}, loggertest.Messages(obs, zapcore.InfoLevel))
}

func TestRunMissingAggregate(t *testing.T) {
	dir := setupFleet(t)
	log, _ := loggertest.New(t.Name())

	_, err := New(DefaultConfig(), log).Run(context.Background(), []string{
		filepath.Join(dir, "orphan", "inputs", "udp.yml"),
	})
	require.ErrorIs(t, err, ErrAggregateNotFound)

	var fileErr *FileError
	require.True(t, errors.As(err, &fileErr))
	assert.Equal(t, filepath.Join(dir, "orphan", "elastic-agent.yml"), fileErr.Path)
	assert.Contains(t, err.Error(), filepath.Join(dir, "orphan", "elastic-agent.yml"))

	_, err = os.Stat(filepath.Join(dir, "orphan", "elastic-agent.yml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRunInvalidFragment(t *testing.T) {
	dir := setupFleet(t)
	log, _ := loggertest.New(t.Name())
	aggregate := filepath.Join(dir, "agent", "elastic-agent.yml")
	before, err := os.ReadFile(aggregate)
	require.NoError(t, err)

	_, err = New(DefaultConfig(), log).Run(context.Background(), []string{
		filepath.Join(dir, "agent", "inputs", "broken.yml"),
	})
	require.ErrorIs(t, err, yamlcheck.ErrSyntax)
	assert.Contains(t, err.Error(), "broken.yml")

	after, err := os.ReadFile(aggregate)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRunMissingFragment(t *testing.T) {
	dir := setupFleet(t)
	log, _ := loggertest.New(t.Name())

	_, err := New(DefaultConfig(), log).Run(context.Background(), []string{
		filepath.Join(dir, "agent", "inputs", "deleted.yml"),
	})
	require.ErrorIs(t, err, yamlcheck.ErrNotFound)
}

func TestRunInvalidAggregate(t *testing.T) {
	dir := setupFleet(t)
	log, _ := loggertest.New(t.Name())
	aggregate := filepath.Join(dir, "agent", "elastic-agent.yml")
	require.NoError(t, os.WriteFile(aggregate, []byte("inputs: [\n"), 0o644))

	_, err := New(DefaultConfig(), log).Run(context.Background(), []string{
		filepath.Join(dir, "agent", "inputs", "nginx.yml"),
	})
	require.ErrorIs(t, err, yamlcheck.ErrSyntax)
	assert.Contains(t, err.Error(), aggregate)
}

func TestRunAggregateWithWrongShape(t *testing.T) {
	dir := setupFleet(t)
	log, _ := loggertest.New(t.Name())
	aggregate := filepath.Join(dir, "agent", "elastic-agent.yml")
	require.NoError(t, os.WriteFile(aggregate, []byte("inputs: not-a-list\n"), 0o644))

	_, err := New(DefaultConfig(), log).Run(context.Background(), []string{
		filepath.Join(dir, "agent", "inputs", "nginx.yml"),
	})
	require.ErrorIs(t, err, inputs.ErrShape)

	content, err := os.ReadFile(aggregate)
	require.NoError(t, err)
	assert.Equal(t, "inputs: not-a-list\n", string(content))
}

func TestRunStopsAtFirstFatalError(t *testing.T) {
	dir := setupFleet(t)
	log, _ := loggertest.New(t.Name())
	aggregate := filepath.Join(dir, "agent", "elastic-agent.yml")

	summary, err := New(DefaultConfig(), log).Run(context.Background(), []string{
		filepath.Join(dir, "agent", "inputs", "nginx.yml"),
		filepath.Join(dir, "agent", "inputs", "broken.yml"),
		filepath.Join(dir, "agent", "inputs", "redis.yaml"),
	})
	require.ErrorIs(t, err, yamlcheck.ErrSyntax)
	require.Len(t, summary.Processed, 1)

	doc := readYAML(t, aggregate)
	ids := inputIDs(t, doc)
	assert.Equal(t, []string{"system-logs", "nginx"}, ids)
	nginx := doc["inputs"].([]interface{})[1].(map[string]interface{})
	assert.Equal(t, "filestream", nginx["type"])
}

func TestRunDryRun(t *testing.T) {
	dir := setupFleet(t)
	log, obs := loggertest.New(t.Name())
	aggregate := filepath.Join(dir, "agent", "elastic-agent.yml")
	before, err := os.ReadFile(aggregate)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.DryRun = true
	summary, err := New(cfg, log).Run(context.Background(), []string{
		filepath.Join(dir, "agent", "inputs", "redis.yaml"),
	})
	require.NoError(t, err)

	assert.True(t, summary.DryRun)
	require.Len(t, summary.Processed, 1)
	assert.Equal(t, 1, summary.Processed[0].Appended)
	assert.Contains(t, loggertest.Messages(obs, zapcore.InfoLevel), "Dry run, configuration not written")

	after, err := os.ReadFile(aggregate)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRunWithLock(t *testing.T) {
	dir := setupFleet(t)
	log, _ := loggertest.New(t.Name())

	cfg := DefaultConfig()
	cfg.Lock = LockConfig{Enabled: true, Timeout: time.Second}
	summary, err := New(cfg, log).Run(context.Background(), []string{
		filepath.Join(dir, "agent", "inputs", "nginx.yml"),
		filepath.Join(dir, "agent", "inputs", "redis.yaml"),
	})
	require.NoError(t, err)
	assert.Len(t, summary.Processed, 2)

	entries, err := os.ReadDir(filepath.Join(dir, "agent"))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".lock", "lock file must not be created next to the aggregate")
	}
}

func TestRunLocksBeforeReadingAggregate(t *testing.T) {
	dir := setupFleet(t)
	log, _ := loggertest.New(t.Name())
	aggregate := filepath.Join(dir, "agent", "elastic-agent.yml")
	require.NoError(t, os.WriteFile(aggregate, []byte("inputs: [\n"), 0o644))

	held, err := filelock.NewFileLocker(aggregate, 0)
	require.NoError(t, err)
	require.NoError(t, held.Lock(context.Background()))
	defer held.Unlock()

	cfg := DefaultConfig()
	cfg.Lock = LockConfig{Enabled: true}
	_, err = New(cfg, log).Run(context.Background(), []string{
		filepath.Join(dir, "agent", "inputs", "nginx.yml"),
	})
	require.ErrorIs(t, err, filelock.ErrLocked)
	assert.NotErrorIs(t, err, yamlcheck.ErrSyntax)
}

func TestRunReplacesAnchoredEntry(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "agent", "inputs"), 0o755))
	aggregate := filepath.Join(dir, "agent", "elastic-agent.yml")
	require.NoError(t, os.WriteFile(aggregate, []byte(`inputs:
  - id: x
    paths: &p [/a]
  - id: y
    paths: *p
`), 0o644))
	fragment := filepath.Join(dir, "agent", "inputs", "x.yml")
	require.NoError(t, os.WriteFile(fragment, []byte("- id: x\n  paths: [/b]\n"), 0o644))
	log, _ := loggertest.New(t.Name())

	summary, err := New(DefaultConfig(), log).Run(context.Background(), []string{fragment})
	require.NoError(t, err)
	require.Len(t, summary.Processed, 1)
	assert.Equal(t, 1, summary.Processed[0].Replaced)

	require.NoError(t, yamlcheck.File(aggregate))
	expected := map[string]interface{}{
		"inputs": []interface{}{
			map[string]interface{}{"id": "x", "paths": []interface{}{"/b"}},
			map[string]interface{}{"id": "y", "paths": []interface{}{"/a"}},
		},
	}
	if diff := cmp.Diff(expected, readYAML(t, aggregate)); diff != "" {
		t.Errorf("unexpected aggregate (-want +got):\n%s", diff)
	}
}

func TestRunCustomSettings(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "policy", "fragments"), 0o755))
	aggregate := filepath.Join(dir, "policy", "agent.yaml")
	require.NoError(t, os.WriteFile(aggregate, []byte("inputs:\n  - name: a\n    v: 1\n"), 0o644))
	fragment := filepath.Join(dir, "policy", "fragments", "a.yaml")
	require.NoError(t, os.WriteFile(fragment, []byte("- name: a\n  v: 2\n"), 0o644))
	log, _ := loggertest.New(t.Name())

	cfg := Config{
		AggregateName: "agent.yaml",
		InputsDir:     "fragments",
		Extensions:    []string{"yaml"},
		IDKey:         "name",
	}
	require.NoError(t, cfg.Validate())

	summary, err := New(cfg, log).Run(context.Background(), []string{fragment})
	require.NoError(t, err)
	require.Len(t, summary.Processed, 1)
	assert.Equal(t, 1, summary.Processed[0].Replaced)

	expected := map[string]interface{}{
		"inputs": []interface{}{
			map[string]interface{}{"name": "a", "v": 2},
		},
	}
	if diff := cmp.Diff(expected, readYAML(t, aggregate)); diff != "" {
		t.Errorf("unexpected aggregate (-want +got):\n%s", diff)
	}
}

func TestRunWriteFailure(t *testing.T) {
	dir := setupFleet(t)
	log, _ := loggertest.New(t.Name())
	aggregate := filepath.Join(dir, "agent", "elastic-agent.yml")
	before, err := os.ReadFile(aggregate)
	require.NoError(t, err)

	o := New(DefaultConfig(), log, WithStoreFactory(func(path string) storage.Storage {
		return &readOnlyStore{DiskStore: storage.NewDiskStore(path)}
	}))
	_, err = o.Run(context.Background(), []string{
		filepath.Join(dir, "agent", "inputs", "nginx.yml"),
	})
	require.ErrorIs(t, err, errReadOnly)

	var fileErr *FileError
	require.True(t, errors.As(err, &fileErr))
	assert.Equal(t, "writing", fileErr.Op)

	after, err := os.ReadFile(aggregate)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRunCanceled(t *testing.T) {
	dir := setupFleet(t)
	log, _ := loggertest.New(t.Name())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := New(DefaultConfig(), log).Run(ctx, []string{
		filepath.Join(dir, "agent", "inputs", "nginx.yml"),
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, summary.Processed)
}

func TestEligible(t *testing.T) {
	o := New(DefaultConfig(), nil)

	tests := map[string]struct {
		path   string
		ok     bool
		reason string
	}{
		"yml under inputs":         {path: "integrations/nginx/inputs/access.yml", ok: true},
		"yaml under inputs":        {path: "integrations/nginx/inputs/access.yaml", ok: true},
		"relative inputs":          {path: "inputs/access.yml", ok: true},
		"nested below inputs":      {path: "agent/inputs/extra/access.yml", ok: true},
		"wrong extension":          {path: "agent/inputs/README.md", reason: "not a YAML file"},
		"extension only":           {path: "agent/inputs/.yml", reason: "not a YAML file"},
		"no inputs segment":        {path: "agent/conf/access.yml", reason: `not under an "inputs" directory`},
		"inputs in file name only": {path: "agent/inputs.yml", reason: `not under an "inputs" directory`},
		"inputs as a prefix":       {path: "agent/my-inputs/access.yml", reason: `not under an "inputs" directory`},
		"aggregate itself":         {path: "agent/inputs/elastic-agent.yml", reason: "aggregate configuration"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			ok, reason := o.Eligible(filepath.FromSlash(tc.path))
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.reason, reason)
		})
	}
}

func TestAggregatePath(t *testing.T) {
	tests := map[string]struct {
		input    string
		expected string
	}{
		"nested":   {input: "integrations/nginx/inputs/access.yml", expected: "integrations/nginx/elastic-agent.yml"},
		"relative": {input: "inputs/access.yml", expected: "elastic-agent.yml"},
		"absolute": {input: "/srv/agent/inputs/access.yml", expected: "/srv/agent/elastic-agent.yml"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got := AggregatePath(filepath.FromSlash(tc.input), DefaultAggregateName)
			assert.Equal(t, filepath.FromSlash(tc.expected), got)
		})
	}
}

func TestConfigValidate(t *testing.T) {
	valid := DefaultConfig()
	require.NoError(t, valid.Validate())

	tests := map[string]func(c *Config){
		"empty aggregate name": func(c *Config) { c.AggregateName = "" },
		"aggregate is a path":  func(c *Config) { c.AggregateName = "agent/elastic-agent.yml" },
		"empty inputs dir":     func(c *Config) { c.InputsDir = "" },
		"no extensions":        func(c *Config) { c.Extensions = nil },
		"blank extension":      func(c *Config) { c.Extensions = []string{".yml", "."} },
		"empty id key":         func(c *Config) { c.IDKey = "" },
		"negative timeout":     func(c *Config) { c.Lock.Timeout = -time.Second },
	}

	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := DefaultConfig()
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

var errReadOnly = errors.New("read-only store")

type readOnlyStore struct {
	*storage.DiskStore
}

func (s *readOnlyStore) Save(io.Reader) error {
	return errReadOnly
}

func setupFleet(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, copy.Copy(filepath.Join("testdata", "fleet"), dir))
	return dir
}

func readYAML(t *testing.T, path string) map[string]interface{} {
	t.Helper()
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]interface{}
	require.NoError(t, yaml.Unmarshal(content, &doc))
	return doc
}

func inputIDs(t *testing.T, doc map[string]interface{}) []string {
	t.Helper()
	var ids []string
	for _, raw := range doc["inputs"].([]interface{}) {
		entry, ok := raw.(map[string]interface{})
		require.True(t, ok)
		ids = append(ids, entry["id"].(string))
	}
	return ids
}
