// Package logging wires the process-wide zap logger. The rest of the
// codebase never constructs its own logger; it receives one explicitly or
// calls zap.L() once New has installed it as the global, same as the
// teacher's internal/logutil convention.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures logger construction. Zero value is production JSON
// logging at info level.
type Options struct {
	Development bool
	Level       zapcore.Level
}

// New builds a *zap.Logger per Options and installs it as the global logger.
func New(opt Options) (*zap.Logger, error) {
	var cfg zap.Config
	if opt.Development {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(opt.Level)

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

// Values groups a set of zap.Fields under a single "values" object field,
// useful for attaching a whole bag of request context without reflection.
func Values(fields ...zap.Field) zap.Field {
	return zap.Object("values", zapcore.ObjectMarshalerFunc(func(enc zapcore.ObjectEncoder) error {
		for _, f := range fields {
			f.AddTo(enc)
		}
		return nil
	}))
}
