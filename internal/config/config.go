// Package config loads runtime configuration from GENEALOGY_* environment
// variables, optionally seeded from .env files.
package config

import (
	"errors"
	"fmt"
	"io/fs"

	"genealogycore/internal/blob"
	"genealogycore/internal/core"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Prefix is prepended to every variable name.
const Prefix = "GENEALOGY_"

// Config is the full runtime configuration.
type Config struct {
	Storage   core.StorageConfig `envPrefix:"STORAGE_"`
	Blob      blob.Config        `envPrefix:"BLOB_"`
	LogLevel  string             `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string             `env:"LOG_FORMAT" envDefault:"console"`
}

// Load reads the given .env files (missing files are skipped) and parses the
// environment into a Config. Variables already set in the process win over
// .env values.
func Load(envFiles ...string) (Config, error) {
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", file, err)
		}
	}
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: Prefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if _, err := zapcore.ParseLevel(cfg.LogLevel); err != nil {
		return Config{}, fmt.Errorf("parse env: %s: %w", Prefix+"LOG_LEVEL", err)
	}
	if cfg.LogFormat != "console" && cfg.LogFormat != "json" {
		return Config{}, fmt.Errorf("parse env: %sLOG_FORMAT must be console or json, got %q", Prefix, cfg.LogFormat)
	}
	return cfg, nil
}

// NewLogger builds the zap logger described by cfg.
func (c Config) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if c.LogFormat == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}
