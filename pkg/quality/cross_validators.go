package quality

import (
	"fmt"
	"math"

	"github.com/vampirenirmal/arbiter/pkg/writing"
)

// Cross-module validators always run, regardless of which modules are present
// in the batch. Each starts from a neutral base score and skips metric pairs
// whose modules are missing, so partial batches degrade gracefully.

const (
	crossBaseScore = 0.8
	crossPassScore = 0.7
)

// metricPair relates one metric from each of two modules. When both modules
// are present and the values drift apart beyond the tolerance, the pair's
// penalty is deducted from the check score.
type metricPair struct {
	moduleA   writing.ModuleKind
	metricA   string
	moduleB   writing.ModuleKind
	metricB   string
	tolerance float64
	penalty   float64
}

// crossValidator is one of the four fixed cross-module checks.
type crossValidator struct {
	checkType CheckType
	modules   []writing.ModuleKind
	pairs     []metricPair
}

var relationalValidators = []crossValidator{
	{
		checkType: CheckNarrativeCoherence,
		modules: []writing.ModuleKind{
			writing.ModuleEmotionArc,
			writing.ModuleNarrativeDashboard,
			writing.ModulePlotStructure,
		},
		pairs: []metricPair{
			{
				moduleA: writing.ModuleEmotionArc, metricA: "arc_consistency",
				moduleB: writing.ModuleNarrativeDashboard, metricB: "tension_curve",
				tolerance: 0.2, penalty: 0.2,
			},
			{
				moduleA: writing.ModuleNarrativeDashboard, metricA: "scene_flow",
				moduleB: writing.ModulePlotStructure, metricB: "plot_coherence",
				tolerance: 0.15, penalty: 0.15,
			},
		},
	},
	{
		checkType: CheckThematicIntegration,
		modules: []writing.ModuleKind{
			writing.ModuleEmotionArc,
			writing.ModulePlotStructure,
			writing.ModuleThemeAnalysis,
		},
		pairs: []metricPair{
			{
				moduleA: writing.ModuleThemeAnalysis, metricA: "theme_clarity",
				moduleB: writing.ModulePlotStructure, metricB: "subplot_integration",
				tolerance: 0.2, penalty: 0.2,
			},
			{
				moduleA: writing.ModuleEmotionArc, metricA: "emotional_depth",
				moduleB: writing.ModuleThemeAnalysis, metricB: "thematic_depth",
				tolerance: 0.15, penalty: 0.15,
			},
		},
	},
	{
		checkType: CheckStyleVoiceAlignment,
		modules: []writing.ModuleKind{
			writing.ModuleEmotionArc,
			writing.ModuleNarrativeDashboard,
			writing.ModuleStyleProfile,
		},
		pairs: []metricPair{
			{
				moduleA: writing.ModuleStyleProfile, metricA: "tone_alignment",
				moduleB: writing.ModuleEmotionArc, metricB: "intensity_variation",
				tolerance: 0.2, penalty: 0.2,
			},
			{
				moduleA: writing.ModuleStyleProfile, metricA: "voice_consistency",
				moduleB: writing.ModuleNarrativeDashboard, metricB: "structure_clarity",
				tolerance: 0.15, penalty: 0.15,
			},
		},
	},
}

// run evaluates one relational cross validator against the indexed batch.
// With no comparable pair present the check is a neutral skip: passed, score
// zero, so it never enters the overall mean.
func (v crossValidator) run(byModule map[writing.ModuleKind]writing.ModuleResult) QualityCheck {
	check := QualityCheck{
		CheckType: v.checkType,
		Score:     crossBaseScore,
		Metadata:  map[string]interface{}{"pairs_checked": 0},
	}
	for _, m := range v.modules {
		if _, ok := byModule[m]; ok {
			check.Modules = append(check.Modules, m)
		}
	}

	checked := 0
	for _, pair := range v.pairs {
		ra, okA := byModule[pair.moduleA]
		rb, okB := byModule[pair.moduleB]
		if !okA || !okB {
			continue
		}
		checked++

		a := ra.Metric(pair.metricA)
		b := rb.Metric(pair.metricB)
		if math.Abs(a-b) > pair.tolerance {
			check.Score -= pair.penalty
			check.Issues = append(check.Issues,
				fmt.Sprintf("%s.%s (%.2f) diverges from %s.%s (%.2f) by more than %.2f",
					pair.moduleA, pair.metricA, a, pair.moduleB, pair.metricB, b, pair.tolerance))
			check.Suggestions = append(check.Suggestions,
				fmt.Sprintf("align %s output of %s with %s output of %s",
					pair.metricA, pair.moduleA, pair.metricB, pair.moduleB))
		}
	}

	if checked == 0 {
		return QualityCheck{
			CheckType: v.checkType,
			Passed:    true,
			Score:     0,
			Metadata:  map[string]interface{}{"pairs_checked": 0, "skipped": true},
		}
	}

	if check.Score < 0 {
		check.Score = 0
	}
	check.Passed = check.Score >= crossPassScore
	check.Metadata["pairs_checked"] = checked
	return check
}

// runOverallThreshold compares the mean of per-module metric means against the
// goal's quality threshold. With no scoreable modules it stays at the neutral
// base score.
func runOverallThreshold(byModule map[writing.ModuleKind]writing.ModuleResult, threshold float64) QualityCheck {
	check := QualityCheck{
		CheckType: CheckOverallThreshold,
		Score:     crossBaseScore,
		Metadata:  map[string]interface{}{"threshold": threshold},
	}

	var sum float64
	var counted int
	for _, m := range writing.KnownModules {
		result, ok := byModule[m]
		if !ok || len(result.QualityMetrics) == 0 {
			continue
		}
		var moduleSum float64
		for _, v := range result.QualityMetrics {
			moduleSum += v
		}
		sum += moduleSum / float64(len(result.QualityMetrics))
		counted++
		check.Modules = append(check.Modules, m)
	}

	if counted > 0 {
		check.Score = sum / float64(counted)
	}
	check.Passed = check.Score >= threshold
	if !check.Passed {
		check.Issues = append(check.Issues,
			fmt.Sprintf("overall quality %.2f below threshold %.2f", check.Score, threshold))
		check.Suggestions = append(check.Suggestions,
			"review lowest-scoring modules and regenerate their output")
	}
	return check
}
