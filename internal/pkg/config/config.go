// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

package config

import (
	"fmt"
	"io"
	"maps"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/elastic/go-ucfg"
	"github.com/elastic/go-ucfg/cfgutil"
)

// DefaultOptions defaults options used to read the configuration
var DefaultOptions = []ucfg.Option{
	ucfg.PathSep("."),
	ucfg.ResolveEnv,
	ucfg.VarExp,
	ucfg.IgnoreCommas,
}

// Config wraps the settings read from files, maps or strings.
type Config struct {
	cfg *ucfg.Config
}

// NewConfigFrom takes a interface and read the configuration like it was YAML.
func NewConfigFrom(from interface{}, opts ...ucfg.Option) (*Config, error) {
	if len(opts) == 0 {
		opts = DefaultOptions
	}

	var data map[string]interface{}
	switch in := from.(type) {
	case []byte:
		if err := yaml.Unmarshal(in, &data); err != nil {
			return nil, err
		}
	case string:
		if err := yaml.Unmarshal([]byte(in), &data); err != nil {
			return nil, err
		}
	case io.Reader:
		if closer, ok := from.(io.Closer); ok {
			defer closer.Close()
		}
		fData, err := io.ReadAll(in)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(fData, &data); err != nil {
			return nil, err
		}
	case map[string]interface{}:
		// don't modify the incoming contents
		data = maps.Clone(in)
	default:
		c, err := ucfg.NewFrom(from, opts...)
		return newConfigFrom(c), err
	}

	if data == nil {
		data = map[string]interface{}{}
	}
	cfg, err := ucfg.NewFrom(data, opts...)
	if err != nil {
		return nil, err
	}
	return newConfigFrom(cfg), nil
}

func newConfigFrom(in *ucfg.Config) *Config {
	return &Config{cfg: in}
}

// UnpackTo unpacks this config into to with the given options.
func (c *Config) UnpackTo(to interface{}, opts ...ucfg.Option) error {
	if len(opts) == 0 {
		opts = DefaultOptions
	}
	return c.cfg.Unpack(to, opts...)
}

// LoadFile take a path and load the file and return a new configuration.
func LoadFile(path string) (*Config, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	c, err := NewConfigFrom(fp)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings from %s: %w", path, err)
	}
	return c, nil
}

// LoadFiles takes multiples files, load and merge all of them in a single one.
func LoadFiles(paths ...string) (*Config, error) {
	merger := cfgutil.NewCollector(nil, DefaultOptions...)
	for _, path := range paths {
		cfg, err := LoadFile(path)
		var c *ucfg.Config
		if cfg != nil {
			c = cfg.cfg
		}
		if err := merger.Add(c, err); err != nil {
			return nil, err
		}
	}
	return newConfigFrom(merger.Config()), nil
}
