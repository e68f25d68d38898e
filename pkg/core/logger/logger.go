// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

package logger

import (
	"fmt"
	"io"
	"time"

	"go.elastic.co/ecszap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/elastic/elastic-agent-libs/logp"
)

const iso8601Format = "2006-01-02T15:04:05.000Z0700"

// Level is the level used by the CLI.
type Level = logp.Level

// DefaultLogLevel used when no level is configured.
const DefaultLogLevel = logp.InfoLevel

// Logger alias logp.Logger with Logger.
type Logger = logp.Logger

// Format is the encoding of log lines.
type Format string

const (
	// FormatText writes human readable console lines.
	FormatText Format = "text"
	// FormatJSON writes ECS compatible JSON lines.
	FormatJSON Format = "json"
)

// Config is the logging configuration of the CLI.
type Config struct {
	Level  Level  `config:"level"`
	Format Format `config:"format"`
}

// DefaultLoggingConfig returns default configuration for CLI logging.
func DefaultLoggingConfig() Config {
	return Config{Level: DefaultLogLevel, Format: FormatText}
}

// ParseLevel converts a level name (debug, info, warning, error) to a Level.
func ParseLevel(name string) (Level, error) {
	var lvl Level
	if err := lvl.Unpack(name); err != nil {
		return lvl, fmt.Errorf("invalid log level %q: %w", name, err)
	}
	return lvl, nil
}

// New returns a logger named name writing to out.
func New(name string, out io.Writer, cfg Config) (*Logger, error) {
	var encoder zapcore.Encoder
	switch cfg.Format {
	case FormatText, "":
		encoderConfig := logp.ConsoleEncoderConfig()
		encoderConfig.EncodeTime = UtcTimestampEncode
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	case FormatJSON:
		encoderConfig := ecszap.ECSCompatibleEncoderConfig(logp.JSONEncoderConfig())
		encoderConfig.EncodeTime = UtcTimestampEncode
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(out), zap.NewAtomicLevelAt(cfg.Level.ZapLevel()))
	if cfg.Format == FormatJSON {
		core = ecszap.WrapCore(core)
	}

	return logp.NewLogger(
		name,
		zap.WrapCore(func(zapcore.Core) zapcore.Core {
			return core
		})), nil
}

// UtcTimestampEncode is a zapcore.TimeEncoder that formats time.Time in ISO-8601 in UTC.
func UtcTimestampEncode(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	type appendTimeEncoder interface {
		AppendTimeLayout(time.Time, string)
	}
	if enc, ok := enc.(appendTimeEncoder); ok {
		enc.AppendTimeLayout(t.UTC(), iso8601Format)
		return
	}
	enc.AppendString(t.UTC().Format(iso8601Format))
}
