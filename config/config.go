// Package config defines process configuration and its loading order.
//
// Precedence (low -> high):
//  1. defaults (Default())
//  2. YAML file, when a path is given
//  3. environment variables with the COMPLIANCE_ prefix
//     (COMPLIANCE_ADDR, COMPLIANCE_DB_PATH, COMPLIANCE_EXAM_COOLDOWN_DAYS, ...)
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config contains process configuration.
type Config struct {
	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBPath is the SQLite database path. ":memory:" for in-memory.
	DBPath string `koanf:"db_path"`

	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the encoder: json or console.
	LogFormat string `koanf:"log_format"`

	// CORSOrigins lists allowed browser origins.
	CORSOrigins []string `koanf:"cors_origins"`

	// ExamCooldownDays gates promotion exam retakes after a failed
	// attempt. Zero disables the cooldown.
	ExamCooldownDays int `koanf:"exam_cooldown_days"`

	// ImportMaxRows caps spreadsheet imports. Zero disables the cap.
	ImportMaxRows int `koanf:"import_max_rows"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Addr:             ":8080",
		DBPath:           "compliance.db",
		LogLevel:         "info",
		LogFormat:        "json",
		CORSOrigins:      []string{"http://localhost:5173", "http://localhost:8080"},
		ExamCooldownDays: 30,
		ImportMaxRows:    10_000,
	}
}

// Load builds a Config by layering defaults, an optional YAML file, and
// COMPLIANCE_-prefixed environment variables.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %q: %w", path, err)
		}
	}

	// COMPLIANCE_EXAM_COOLDOWN_DAYS -> exam_cooldown_days (flat keys,
	// underscores preserved to match the koanf tags).
	envProvider := env.Provider("COMPLIANCE_", ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), "compliance_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	cfg := *Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}

	if cfg.Addr == "" {
		return nil, errors.New("addr must not be empty")
	}
	if cfg.DBPath == "" {
		return nil, errors.New("db_path must not be empty")
	}
	if cfg.ExamCooldownDays < 0 {
		return nil, fmt.Errorf("exam_cooldown_days must not be negative, got %d", cfg.ExamCooldownDays)
	}
	return &cfg, nil
}
