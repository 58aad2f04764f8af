// Package config loads runtime settings from an optional YAML file and
// SC2PATCHES_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/coolbeans/sc2patches/pkg/logging"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// EnvPrefix prefixes every environment override, with "." in keys mapped to
// "_": log.level is read from SC2PATCHES_LOG_LEVEL.
const EnvPrefix = "SC2PATCHES"

// Config holds every setting the CLI needs.
type Config struct {
	CatalogPath string         `mapstructure:"catalog_path"`
	PolicyPath  string         `mapstructure:"policy_path"`
	HTMLDir     string         `mapstructure:"html_dir"`
	OutputDir   string         `mapstructure:"output_dir"`
	CacheDir    string         `mapstructure:"cache_dir"`
	MetricsFile string         `mapstructure:"metrics_file"`
	Workers     int            `mapstructure:"workers"`
	Log         logging.Config `mapstructure:"log"`
}

var defaults = map[string]any{
	"catalog_path": "data/entities.json",
	"policy_path":  "data/attribution.yaml",
	"html_dir":     "data/raw_html",
	"output_dir":   "data/processed/patches",
	"cache_dir":    "",
	"metrics_file": "",
	"workers":      4,
	"log.level":    "info",
	"log.format":   logging.FormatConsole,
}

// New returns a viper instance with defaults and environment binding set.
func New() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	return v
}

// Load reads path when it is non-empty, applies environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	v := New()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}
	return FromViper(v)
}

// FromViper decodes and validates the settings held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that have no usable fallback.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.CatalogPath) == "" {
		return fmt.Errorf("%w: catalog_path is empty", ErrInvalidConfig)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidConfig, c.Workers)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}
