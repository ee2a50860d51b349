// Package logging bootstraps the process-wide zap logger, grounded on
// the teacher's config.InitLogger: a JSON production core by default,
// toggled to a console-friendly development core, with the level parsed
// from configuration.
package logging

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls logger construction.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // "console" or "json" (default)
}

// New builds a *zap.Logger from cfg without touching the global logger.
func New(cfg Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level := zapcore.InfoLevel
	if cfg.Level != "" {
		parsed, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, eris.Wrap(err, "logging: parse level")
		}
		level = parsed
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, eris.Wrap(err, "logging: build logger")
	}
	return logger, nil
}

// Init builds a logger from cfg and installs it as the package-global
// zap logger, mirroring the teacher's InitLogger.
func Init(cfg Config) error {
	logger, err := New(cfg)
	if err != nil {
		return err
	}
	zap.ReplaceGlobals(logger)
	return nil
}
