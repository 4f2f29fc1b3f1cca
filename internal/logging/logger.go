// Package logging provides zap logger helpers.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects the encoder and minimum level.
type Options struct {
	Development bool
	// Level is a zap level name ("debug", "info", ...). Empty keeps the preset's default.
	Level string
}

// New builds a zap.Logger configured for development or production.
func New(opts Options) (*zap.Logger, error) {
	var cfg zap.Config
	if opts.Development {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.DisableStacktrace = false
	}
	cfg.EncoderConfig.TimeKey = "ts"

	if opts.Level != "" {
		level, err := zap.ParseAtomicLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("parse log level %q: %w", opts.Level, err)
		}
		cfg.Level = level
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}
