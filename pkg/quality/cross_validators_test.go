package quality

import (
	"testing"

	"github.com/vampirenirmal/arbiter/pkg/writing"
)

func indexResults(results ...writing.ModuleResult) map[writing.ModuleKind]writing.ModuleResult {
	byModule := make(map[writing.ModuleKind]writing.ModuleResult, len(results))
	for _, r := range results {
		byModule[r.Module] = r
	}
	return byModule
}

func validatorFor(t *testing.T, checkType CheckType) crossValidator {
	t.Helper()
	for _, v := range relationalValidators {
		if v.checkType == checkType {
			return v
		}
	}
	t.Fatalf("no relational validator for %s", checkType)
	return crossValidator{}
}

func TestCrossValidatorAlignedMetricsPass(t *testing.T) {
	v := validatorFor(t, CheckNarrativeCoherence)

	check := v.run(indexResults(
		writing.ModuleResult{
			Module:         writing.ModuleEmotionArc,
			QualityMetrics: map[string]float64{"arc_consistency": 0.8},
		},
		writing.ModuleResult{
			Module:         writing.ModuleNarrativeDashboard,
			QualityMetrics: map[string]float64{"tension_curve": 0.85, "scene_flow": 0.8},
		},
		writing.ModuleResult{
			Module:         writing.ModulePlotStructure,
			QualityMetrics: map[string]float64{"plot_coherence": 0.82},
		},
	))

	if !check.Passed {
		t.Errorf("aligned metrics should pass, score %.2f, issues %v", check.Score, check.Issues)
	}
	if check.Score != crossBaseScore {
		t.Errorf("score %.2f, want base %.2f with no penalties", check.Score, crossBaseScore)
	}
	if got := check.Metadata["pairs_checked"]; got != 2 {
		t.Errorf("pairs_checked = %v, want 2", got)
	}
	if len(check.Modules) != 3 {
		t.Errorf("check covers %v, want all three modules", check.Modules)
	}
}

func TestCrossValidatorDivergentPairPenalized(t *testing.T) {
	v := validatorFor(t, CheckNarrativeCoherence)

	// arc_consistency and tension_curve drift 0.4 apart, past the 0.2
	// tolerance. The second pair cannot run without plotStructure.
	check := v.run(indexResults(
		writing.ModuleResult{
			Module:         writing.ModuleEmotionArc,
			QualityMetrics: map[string]float64{"arc_consistency": 0.9},
		},
		writing.ModuleResult{
			Module:         writing.ModuleNarrativeDashboard,
			QualityMetrics: map[string]float64{"tension_curve": 0.5},
		},
	))

	if check.Passed {
		t.Errorf("divergent pair should fail, score %.2f", check.Score)
	}
	if check.Score >= crossPassScore {
		t.Errorf("score %.2f, want below %.2f after penalty", check.Score, crossPassScore)
	}
	if len(check.Issues) != 1 || len(check.Suggestions) != 1 {
		t.Errorf("want one issue and one suggestion, got %v / %v", check.Issues, check.Suggestions)
	}
	if got := check.Metadata["pairs_checked"]; got != 1 {
		t.Errorf("pairs_checked = %v, want 1", got)
	}
}

func TestCrossValidatorBothPairsDiverge(t *testing.T) {
	v := validatorFor(t, CheckStyleVoiceAlignment)

	check := v.run(indexResults(
		writing.ModuleResult{
			Module:         writing.ModuleStyleProfile,
			QualityMetrics: map[string]float64{"tone_alignment": 0.95, "voice_consistency": 0.9},
		},
		writing.ModuleResult{
			Module:         writing.ModuleEmotionArc,
			QualityMetrics: map[string]float64{"intensity_variation": 0.3},
		},
		writing.ModuleResult{
			Module:         writing.ModuleNarrativeDashboard,
			QualityMetrics: map[string]float64{"structure_clarity": 0.4},
		},
	))

	if check.Passed {
		t.Errorf("doubly divergent batch should fail, score %.2f", check.Score)
	}
	if len(check.Issues) != 2 {
		t.Errorf("got %d issues, want 2: %v", len(check.Issues), check.Issues)
	}
}

func TestCrossValidatorNeutralSkip(t *testing.T) {
	v := validatorFor(t, CheckStyleVoiceAlignment)

	// styleProfile alone gives the validator nothing to compare against.
	check := v.run(indexResults(writing.ModuleResult{
		Module:         writing.ModuleStyleProfile,
		QualityMetrics: map[string]float64{"tone_alignment": 0.9},
	}))

	if !check.Passed {
		t.Error("skip must count as passed")
	}
	if check.Score != 0 {
		t.Errorf("skip score %.2f, want 0 so it stays out of the overall mean", check.Score)
	}
	if skipped, _ := check.Metadata["skipped"].(bool); !skipped {
		t.Errorf("metadata %v, want skipped marker", check.Metadata)
	}
}

func TestCrossValidatorMissingMetricCountsAsZero(t *testing.T) {
	v := validatorFor(t, CheckNarrativeCoherence)

	// Both modules present but tension_curve absent, so it reads as 0 and the
	// pair diverges.
	check := v.run(indexResults(
		writing.ModuleResult{
			Module:         writing.ModuleEmotionArc,
			QualityMetrics: map[string]float64{"arc_consistency": 0.9},
		},
		writing.ModuleResult{
			Module:         writing.ModuleNarrativeDashboard,
			QualityMetrics: map[string]float64{"scene_flow": 0.8},
		},
	))

	if check.Passed {
		t.Errorf("missing metric should read as zero and diverge, score %.2f", check.Score)
	}
	if got := check.Metadata["pairs_checked"]; got != 1 {
		t.Errorf("pairs_checked = %v, want 1", got)
	}
}

func TestOverallThresholdCheck(t *testing.T) {
	byModule := indexResults(
		writing.ModuleResult{
			Module:         writing.ModuleEmotionArc,
			QualityMetrics: map[string]float64{"emotional_depth": 0.9, "arc_consistency": 0.7},
		},
		writing.ModuleResult{
			Module:         writing.ModulePlotStructure,
			QualityMetrics: map[string]float64{"plot_coherence": 0.6},
		},
	)

	// Module means are 0.8 and 0.6, so the overall mean is 0.7.
	check := runOverallThreshold(byModule, 0.65)
	if !check.Passed {
		t.Errorf("score %.2f should clear threshold 0.65", check.Score)
	}

	check = runOverallThreshold(byModule, 0.75)
	if check.Passed {
		t.Errorf("score %.2f should miss threshold 0.75", check.Score)
	}
	if len(check.Issues) == 0 {
		t.Error("failed threshold check should report an issue")
	}
}

func TestOverallThresholdEmptyBatch(t *testing.T) {
	check := runOverallThreshold(nil, 0.8)
	if check.Score != crossBaseScore {
		t.Errorf("empty batch score %.2f, want neutral base %.2f", check.Score, crossBaseScore)
	}
	if !check.Passed {
		t.Error("neutral base meets the default threshold")
	}
}
