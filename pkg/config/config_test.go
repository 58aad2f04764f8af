package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/coolbeans/sc2patches/pkg/logging"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.CatalogPath != "data/entities.json" {
		t.Errorf("CatalogPath = %q, want data/entities.json", cfg.CatalogPath)
	}
	if cfg.OutputDir != "data/processed/patches" {
		t.Errorf("OutputDir = %q, want data/processed/patches", cfg.OutputDir)
	}
	if cfg.Workers != 4 {
		t.Errorf("Workers = %d, want 4", cfg.Workers)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "console" {
		t.Errorf("Log = %+v, want info/console", cfg.Log)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sc2patches.yaml")
	content := "html_dir: pages\nworkers: 8\nlog:\n  level: debug\n  format: json\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SC2PATCHES_WORKERS", "2")
	t.Setenv("SC2PATCHES_LOG_FORMAT", "console")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.HTMLDir != "pages" {
		t.Errorf("HTMLDir = %q, want pages", cfg.HTMLDir)
	}
	if cfg.Workers != 2 {
		t.Errorf("Workers = %d, want the environment override 2", cfg.Workers)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "console" {
		t.Errorf("Log = %+v, want debug/console", cfg.Log)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() of a missing file should fail")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"empty catalog", Config{Workers: 1}},
		{"zero workers", Config{CatalogPath: "c.json"}},
		{"negative workers", Config{CatalogPath: "c.json", Workers: -3}},
		{"bad level", Config{CatalogPath: "c.json", Workers: 1, Log: logging.Config{Level: "chatty"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() error = %v, want ErrInvalidConfig", err)
			}
		})
	}

	valid := Config{CatalogPath: "c.json", Workers: 1}
	if err := valid.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}
