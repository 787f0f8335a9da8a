package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/DeusData/cxxfacts/internal/lang"
)

func TestLoadConfigDefault(t *testing.T) {
	cfg, err := Load("/nonexistent/path")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.EffectiveStrict() {
		t.Error("expected best-effort default")
	}
	if cfg.EffectiveWorkers() != runtime.NumCPU() {
		t.Errorf("expected %d workers, got %d", runtime.NumCPU(), cfg.EffectiveWorkers())
	}
	if cfg.EffectiveMaxIncludeDepth() != 32 {
		t.Errorf("expected include depth 32, got %d", cfg.EffectiveMaxIncludeDepth())
	}
	if cfg.EffectiveLogLevel() != slog.LevelInfo {
		t.Errorf("expected info level, got %v", cfg.EffectiveLogLevel())
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	content := `
database: facts.db
include_paths:
  - include
  - /opt/sdk/include
defines:
  - DEBUG
  - VERSION=3
language: cpp
std: c++17
strict: true
workers: 2
ignore:
  - third_party/
log_level: debug
max_include_depth: 8
`
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database != filepath.Join(dir, "facts.db") {
		t.Errorf("database = %q", cfg.Database)
	}
	if len(cfg.IncludePaths) != 2 || cfg.IncludePaths[0] != filepath.Join(dir, "include") || cfg.IncludePaths[1] != "/opt/sdk/include" {
		t.Errorf("include paths = %v", cfg.IncludePaths)
	}
	if l, _ := cfg.EffectiveLanguage(); l != lang.CPP {
		t.Errorf("language = %q", l)
	}
	if !cfg.EffectiveStrict() || cfg.EffectiveWorkers() != 2 || cfg.EffectiveMaxIncludeDepth() != 8 {
		t.Errorf("unexpected effective values: %+v", cfg)
	}
	if cfg.EffectiveLogLevel() != slog.LevelDebug {
		t.Errorf("log level = %v", cfg.EffectiveLogLevel())
	}
	if len(cfg.Defines) != 2 || cfg.Std != "c++17" || len(cfg.Ignore) != 1 {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"invalid yaml", "not: [valid: yaml"},
		{"unknown language", "language: fortran\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if err := os.WriteFile(filepath.Join(dir, FileName), []byte(tt.content), 0o600); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(dir); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestMerge(t *testing.T) {
	strict := true
	workers := 4
	base := &Config{IncludePaths: []string{"/a"}, Std: "c++11", Language: "c"}
	flags := &Config{IncludePaths: []string{"/b"}, Std: "c++20", Strict: &strict, Workers: &workers}

	got := base.Merge(flags)
	if len(got.IncludePaths) != 2 || got.IncludePaths[1] != "/b" {
		t.Errorf("include paths = %v", got.IncludePaths)
	}
	if got.Std != "c++20" || got.Language != "c" || !got.EffectiveStrict() || got.EffectiveWorkers() != 4 {
		t.Errorf("unexpected merge: %+v", got)
	}
	if len(base.IncludePaths) != 1 {
		t.Error("Merge mutated the receiver")
	}
}
