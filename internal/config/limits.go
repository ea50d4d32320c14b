package config

import (
	"github.com/vampirenirmal/arbiter/pkg/conflict"
	"github.com/vampirenirmal/arbiter/pkg/quality"
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Quality: QualityConfig{
			Limits: quality.DefaultLimits(),
		},
		Resolution: ResolutionConfig{
			Limits: ResolverLimits{
				HistoryLimit:           conflict.DefaultHistoryLimit,
				MaxConcurrentConflicts: 4,
			},
			PreferenceRateLimit: RateLimitConfig{
				RequestsPerSecond: 50,
				Burst:             10,
			},
		},
	}
}

// ToResolverLimits converts file-level limits into the resolver's limits type.
func (l ResolverLimits) ToResolverLimits() conflict.Limits {
	return conflict.Limits{
		HistoryLimit:           l.HistoryLimit,
		MaxConcurrentConflicts: l.MaxConcurrentConflicts,
		ReResolveInconsistent:  l.ReResolveInconsistent,
	}
}
