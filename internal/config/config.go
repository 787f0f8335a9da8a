// Package config loads .cxxfacts.yaml.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/DeusData/cxxfacts/internal/lang"
)

// FileName is the per-root configuration file.
const FileName = ".cxxfacts.yaml"

// Config holds user-overridable indexing settings. Pointer fields
// distinguish "unset" from the zero value; use the Effective accessors.
type Config struct {
	// Database is the SQLite file. Empty selects the per-project database
	// in the cache directory.
	Database string `yaml:"database"`

	// IncludePaths are -I directories. Relative entries are resolved
	// against the directory holding the config file.
	IncludePaths []string `yaml:"include_paths"`

	// Defines are -D macros, NAME or NAME=VALUE.
	Defines []string `yaml:"defines"`

	// Language forces c or c++ for every file.
	Language string `yaml:"language"`

	// Std selects the language standard, e.g. c++17.
	Std string `yaml:"std"`

	// Strict skips extraction for files whose parse produced errors.
	// Default: false (best effort).
	Strict *bool `yaml:"strict"`

	// Workers bounds the parallel parse stage. Default: number of CPUs.
	Workers *int `yaml:"workers"`

	// Ignore holds extra discovery patterns in .gitignore syntax.
	Ignore []string `yaml:"ignore"`

	// LogLevel is debug, info, warn or error. Default: info.
	LogLevel string `yaml:"log_level"`

	// MaxIncludeDepth bounds #include nesting. Default: 32.
	MaxIncludeDepth *int `yaml:"max_include_depth"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{}
}

// Load reads FileName from dir. A missing file yields the defaults.
func Load(dir string) (*Config, error) {
	cfg, err := LoadFile(filepath.Join(dir, FileName))
	if errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}
	return cfg, err
}

// LoadFile reads a config file. Relative include paths are made absolute
// against the file's directory.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	base, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	for i, p := range cfg.IncludePaths {
		if !filepath.IsAbs(p) {
			cfg.IncludePaths[i] = filepath.Join(base, p)
		}
	}
	if cfg.Database != "" && !filepath.IsAbs(cfg.Database) {
		cfg.Database = filepath.Join(base, cfg.Database)
	}
	if _, err := cfg.EffectiveLanguage(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// EffectiveLanguage returns the forced language, or "" when not forced.
func (c *Config) EffectiveLanguage() (lang.Language, error) {
	return lang.ParseLanguage(c.Language)
}

// EffectiveStrict returns the configured strictness, or false.
func (c *Config) EffectiveStrict() bool {
	if c.Strict != nil {
		return *c.Strict
	}
	return false
}

// EffectiveWorkers returns the configured worker count, or the CPU count.
func (c *Config) EffectiveWorkers() int {
	if c.Workers != nil && *c.Workers > 0 {
		return *c.Workers
	}
	return runtime.NumCPU()
}

// EffectiveMaxIncludeDepth returns the configured include depth, or 32.
func (c *Config) EffectiveMaxIncludeDepth() int {
	if c.MaxIncludeDepth != nil && *c.MaxIncludeDepth > 0 {
		return *c.MaxIncludeDepth
	}
	return 32
}

// EffectiveLogLevel maps LogLevel to a slog level, defaulting to info.
func (c *Config) EffectiveLogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Merge overlays the set fields of o onto a copy of c. Lists are appended.
func (c *Config) Merge(o *Config) *Config {
	out := *c
	out.IncludePaths = append(append([]string(nil), c.IncludePaths...), o.IncludePaths...)
	out.Defines = append(append([]string(nil), c.Defines...), o.Defines...)
	out.Ignore = append(append([]string(nil), c.Ignore...), o.Ignore...)
	if o.Database != "" {
		out.Database = o.Database
	}
	if o.Language != "" {
		out.Language = o.Language
	}
	if o.Std != "" {
		out.Std = o.Std
	}
	if o.Strict != nil {
		out.Strict = o.Strict
	}
	if o.Workers != nil {
		out.Workers = o.Workers
	}
	if o.LogLevel != "" {
		out.LogLevel = o.LogLevel
	}
	if o.MaxIncludeDepth != nil {
		out.MaxIncludeDepth = o.MaxIncludeDepth
	}
	return &out
}
