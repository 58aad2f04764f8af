package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/coolbeans/sc2patches/pkg/bulk"
	"github.com/coolbeans/sc2patches/pkg/catalog"
	"github.com/coolbeans/sc2patches/pkg/config"
	"github.com/coolbeans/sc2patches/pkg/logging"
	"github.com/coolbeans/sc2patches/pkg/metrics"
	"github.com/coolbeans/sc2patches/pkg/pattern"
	"github.com/coolbeans/sc2patches/pkg/pipeline"
)

// settings holds config file values, SC2PATCHES_* variables and bound flags.
var settings = config.New()

// app is what every command needs once configuration is resolved.
type app struct {
	config  *config.Config
	logger  *zap.Logger
	catalog *catalog.Catalog
	policy  *catalog.Policy
	metrics *metrics.Metrics
}

// flagKeys maps command-line flags to the config keys they override.
var flagKeys = map[string]string{
	"catalog":      "catalog_path",
	"policy":       "policy_path",
	"log-level":    "log.level",
	"log-format":   "log.format",
	"html-dir":     "html_dir",
	"output-dir":   "output_dir",
	"workers":      "workers",
	"cache-dir":    "cache_dir",
	"metrics-file": "metrics_file",
}

// bindFlags binds the running command's flags. Several commands share a
// flag name, so binding happens once the command is known.
func bindFlags(cmd *cobra.Command) error {
	for flag, key := range flagKeys {
		if f := cmd.Flags().Lookup(flag); f != nil {
			if err := settings.BindPFlag(key, f); err != nil {
				return fmt.Errorf("binding flag %s: %w", flag, err)
			}
		}
	}
	return nil
}

// loadConfig reads the --config file, if any, into settings.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if err := bindFlags(cmd); err != nil {
		return nil, err
	}
	configPath, _ := cmd.Flags().GetString("config")
	if configPath != "" {
		settings.SetConfigFile(configPath)
		if err := settings.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", configPath, err)
		}
	}
	return config.FromViper(settings)
}

// loadApp resolves configuration, builds the logger and loads the catalog
// and attribution policy.
func loadApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}

	var policy *catalog.Policy
	if cfg.PolicyPath != "" {
		policy, err = catalog.LoadPolicy(cfg.PolicyPath, cat)
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn("attribution policy not found; ids are not regrouped", zap.String("path", cfg.PolicyPath))
			policy, err = nil, nil
		}
		if err != nil {
			return nil, err
		}
	}

	logger.Debug("catalog loaded",
		zap.String("path", cfg.CatalogPath),
		zap.Int("entities", cat.Len()),
		zap.Int("regroup_rules", policy.Len()))

	return &app{config: cfg, logger: logger, catalog: cat, policy: policy}, nil
}

// pipeline builds a pipeline honoring the --pattern flag when the command
// has one.
func (a *app) pipeline(cmd *cobra.Command) (*pipeline.Pipeline, error) {
	opts := []pipeline.Option{
		pipeline.WithPolicy(a.policy),
		pipeline.WithLogger(a.logger),
		pipeline.WithMetrics(a.metrics),
	}
	if flag := cmd.Flags().Lookup("pattern"); flag != nil && flag.Value.String() != "" {
		tag, err := pattern.ParseTag(flag.Value.String())
		if err != nil {
			return nil, err
		}
		opts = append(opts, pipeline.WithPattern(tag))
	}
	return pipeline.New(a.catalog, opts...), nil
}

// cacheSalt changes whenever the catalog or the policy file changes.
func (a *app) cacheSalt() string {
	var parts []string
	for _, path := range []string{a.config.CatalogPath, a.config.PolicyPath} {
		data, err := os.ReadFile(path)
		if err != nil {
			parts = append(parts, path)
			continue
		}
		parts = append(parts, bulk.ContentHash(path, data))
	}
	return strings.Join(parts, ":")
}

func (a *app) close() {
	_ = a.logger.Sync()
}
