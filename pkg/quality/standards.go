// Package quality scores module results against declared standards and
// aggregates per-module and cross-module checks into a single traceable
// validation verdict.
package quality

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/vampirenirmal/arbiter/pkg/writing"
)

// QualityStandard is the scoring rubric for one module kind. Static; one per
// known module.
type QualityStandard struct {
	Module             writing.ModuleKind `yaml:"module" validate:"required"`
	MinimumScore       float64            `yaml:"minimum_score" validate:"min=0,max=1,ltefield=TargetScore"`
	TargetScore        float64            `yaml:"target_score" validate:"min=0,max=1"`
	CriticalThresholds map[string]float64 `yaml:"critical_thresholds"`
	ValidationRules    []string           `yaml:"validation_rules"`
	QualityMetrics     []string           `yaml:"quality_metrics" validate:"required,min=1"`
}

// DefaultCriticalThreshold applies when a metric has no explicit threshold.
const DefaultCriticalThreshold = 0.8

// Threshold returns the critical threshold for the named metric.
func (s QualityStandard) Threshold(metric string) float64 {
	if t, ok := s.CriticalThresholds[metric]; ok {
		return t
	}
	return DefaultCriticalThreshold
}

// StandardOverride adjusts score bounds of one registered standard.
type StandardOverride struct {
	MinimumScore *float64 `yaml:"minimum_score"`
	TargetScore  *float64 `yaml:"target_score"`
}

// StandardsRegistry holds one QualityStandard per known module kind. Modules
// without a registered standard are silently skipped during validation.
type StandardsRegistry struct {
	standards map[writing.ModuleKind]QualityStandard
}

func defaultStandards() []QualityStandard {
	return []QualityStandard{
		{
			Module:       writing.ModuleEmotionArc,
			MinimumScore: 0.75,
			TargetScore:  0.88,
			CriticalThresholds: map[string]float64{
				"emotional_depth": 0.7,
				"arc_consistency": 0.8,
			},
			ValidationRules: []string{"arc_present", "beats_ordered"},
			QualityMetrics: []string{
				"emotional_depth", "arc_consistency",
				"intensity_variation", "reader_engagement",
			},
		},
		{
			Module:       writing.ModuleNarrativeDashboard,
			MinimumScore: 0.78,
			TargetScore:  0.9,
			CriticalThresholds: map[string]float64{
				"structure_clarity": 0.8,
				"pacing_balance":    0.75,
			},
			ValidationRules: []string{"acts_complete", "scenes_linked"},
			QualityMetrics: []string{
				"structure_clarity", "pacing_balance",
				"tension_curve", "scene_flow",
			},
		},
		{
			Module:       writing.ModulePlotStructure,
			MinimumScore: 0.8,
			TargetScore:  0.92,
			CriticalThresholds: map[string]float64{
				"plot_coherence":     0.85,
				"causality_strength": 0.75,
			},
			ValidationRules: []string{"threads_resolved", "causality_chain"},
			QualityMetrics: []string{
				"plot_coherence", "causality_strength",
				"subplot_integration", "resolution_quality",
			},
		},
		{
			Module:       writing.ModuleStyleProfile,
			MinimumScore: 0.72,
			TargetScore:  0.85,
			CriticalThresholds: map[string]float64{
				"voice_consistency": 0.8,
			},
			ValidationRules: []string{"voice_stable", "register_matches_audience"},
			QualityMetrics: []string{
				"voice_consistency", "tone_alignment",
				"readability", "stylistic_variety",
			},
		},
		{
			Module:       writing.ModuleThemeAnalysis,
			MinimumScore: 0.7,
			TargetScore:  0.85,
			CriticalThresholds: map[string]float64{
				"theme_clarity": 0.75,
			},
			ValidationRules: []string{"themes_present", "motifs_recur"},
			QualityMetrics: []string{
				"theme_clarity", "thematic_depth",
				"symbol_density", "motif_consistency",
			},
		},
	}
}

// NewStandardsRegistry builds the registry from the built-in table, applying
// any overrides, and verifies every standard satisfies its invariants
// (minimum ≤ target, scores in [0,1], at least one metric).
func NewStandardsRegistry(overrides map[writing.ModuleKind]StandardOverride) (*StandardsRegistry, error) {
	validate := validator.New()

	reg := &StandardsRegistry{
		standards: make(map[writing.ModuleKind]QualityStandard),
	}

	for _, std := range defaultStandards() {
		if ov, ok := overrides[std.Module]; ok {
			if ov.MinimumScore != nil {
				std.MinimumScore = *ov.MinimumScore
			}
			if ov.TargetScore != nil {
				std.TargetScore = *ov.TargetScore
			}
		}
		if err := validate.Struct(std); err != nil {
			return nil, fmt.Errorf("standard for %s invalid: %w", std.Module, err)
		}
		reg.standards[std.Module] = std
	}

	return reg, nil
}

// Lookup returns the standard for a module kind, if registered.
func (r *StandardsRegistry) Lookup(module writing.ModuleKind) (QualityStandard, bool) {
	std, ok := r.standards[module]
	return std, ok
}

// Modules returns the registered module kinds in the registry's stable order.
func (r *StandardsRegistry) Modules() []writing.ModuleKind {
	out := make([]writing.ModuleKind, 0, len(r.standards))
	for _, m := range writing.KnownModules {
		if _, ok := r.standards[m]; ok {
			out = append(out, m)
		}
	}
	return out
}
