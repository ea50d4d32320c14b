// Package config loads and validates engine configuration for the quality
// coordinator and the conflict resolver.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/vampirenirmal/arbiter/pkg/quality"
	"github.com/vampirenirmal/arbiter/pkg/writing"
)

type Config struct {
	Quality    QualityConfig    `yaml:"quality" validate:"required"`
	Resolution ResolutionConfig `yaml:"resolution" validate:"required"`
}

type QualityConfig struct {
	Limits            quality.Limits                                  `yaml:"limits" validate:"required"`
	StandardOverrides map[writing.ModuleKind]quality.StandardOverride `yaml:"standard_overrides,omitempty"`
}

type ResolutionConfig struct {
	Limits              ResolverLimits  `yaml:"limits" validate:"required"`
	PreferenceRateLimit RateLimitConfig `yaml:"preference_rate_limit"`
}

// ResolverLimits mirrors the resolver's limits with file-level bounds.
type ResolverLimits struct {
	HistoryLimit           int  `yaml:"history_limit" validate:"min=1,max=100000"`
	MaxConcurrentConflicts int  `yaml:"max_concurrent_conflicts" validate:"min=1,max=64"`
	ReResolveInconsistent  bool `yaml:"re_resolve_inconsistent"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"min=0,max=1000"`
	Burst             int     `yaml:"burst" validate:"min=0,max=100"`
}

// Load reads configuration from the given path (or the ARBITER_CONFIG
// environment variable, or built-in defaults when neither is set), applies
// environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv("ARBITER_CONFIG")
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ARBITER_QUALITY_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Quality.Limits.DefaultQualityThreshold = f
		}
	}
	if v := os.Getenv("ARBITER_RERESOLVE_INCONSISTENT"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Resolution.Limits.ReResolveInconsistent = b
		}
	}
}

func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Quality.Limits.HistoryLimit == 0 {
		cfg.Quality.Limits.HistoryLimit = def.Quality.Limits.HistoryLimit
	}
	if cfg.Quality.Limits.MaxConcurrentModules == 0 {
		cfg.Quality.Limits.MaxConcurrentModules = def.Quality.Limits.MaxConcurrentModules
	}
	if cfg.Quality.Limits.DefaultQualityThreshold == 0 {
		cfg.Quality.Limits.DefaultQualityThreshold = def.Quality.Limits.DefaultQualityThreshold
	}
	if cfg.Resolution.Limits.HistoryLimit == 0 {
		cfg.Resolution.Limits.HistoryLimit = def.Resolution.Limits.HistoryLimit
	}
	if cfg.Resolution.Limits.MaxConcurrentConflicts == 0 {
		cfg.Resolution.Limits.MaxConcurrentConflicts = def.Resolution.Limits.MaxConcurrentConflicts
	}
}

func (c *Config) validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	for module, ov := range c.Quality.StandardOverrides {
		if !module.IsKnown() {
			return fmt.Errorf("standard override for unknown module %q", module)
		}
		if ov.MinimumScore != nil && ov.TargetScore != nil && *ov.MinimumScore > *ov.TargetScore {
			return fmt.Errorf("standard override for %s: minimum %.2f exceeds target %.2f",
				module, *ov.MinimumScore, *ov.TargetScore)
		}
	}
	return nil
}
