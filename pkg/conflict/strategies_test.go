package conflict

import (
	"testing"
	"time"

	"github.com/vampirenirmal/arbiter/pkg/writing"
)

func sampleConflict(t writing.ConflictType, modules ...writing.ModuleKind) writing.InterModuleConflict {
	return writing.InterModuleConflict{
		ID:          "conflict-" + string(t),
		Type:        t,
		Severity:    writing.SeverityMedium,
		Description: "test conflict",
		Modules:     modules,
		ConflictingData: map[string]interface{}{
			"left":  0.4,
			"right": 0.9,
		},
		DetectedAt: time.Now(),
		Impact:     writing.ConflictImpact{NarrativeCoherence: 0.5, UserExperience: 0.4, QualityScore: 0.6},
	}
}

func TestStrategyRegistryCoversEveryConflictType(t *testing.T) {
	reg, err := NewStrategyRegistry()
	if err != nil {
		t.Fatalf("building registry: %v", err)
	}

	wctx := writing.WritingContext{WritingPhase: "drafting", Genre: "fantasy", CurrentMode: writing.ModeHybrid}

	for _, ct := range writing.KnownConflictTypes {
		ct := ct
		t.Run(string(ct), func(t *testing.T) {
			strategy, ok := reg.Lookup(ct)
			if !ok {
				t.Fatalf("no strategy for %s", ct)
			}
			if strategy.Type != ct {
				t.Errorf("strategy type %s registered under %s", strategy.Type, ct)
			}
			if strategy.Name == "" || strategy.Description == "" {
				t.Error("strategy missing name or description")
			}

			decision := strategy.Resolve(sampleConflict(ct,
				writing.ModuleEmotionArc, writing.ModuleNarrativeDashboard), wctx)

			wantType := DecisionReconcile
			if ct == writing.ConflictQualityAssessmentDivergence {
				wantType = DecisionRecalculate
			}
			if decision.Type != wantType {
				t.Errorf("decision type %s, want %s", decision.Type, wantType)
			}
			if decision.Confidence != reconcileBaseConfidence {
				t.Errorf("base confidence %.2f, want %.2f", decision.Confidence, reconcileBaseConfidence)
			}
			if decision.PrimaryModule != writing.ModuleEmotionArc {
				t.Errorf("primary module %s, want first listed", decision.PrimaryModule)
			}
			if decision.Decision == "" || decision.Reasoning == "" {
				t.Error("decision missing text")
			}
		})
	}
}

func TestStrategyLookupUnknownType(t *testing.T) {
	reg, err := NewStrategyRegistry()
	if err != nil {
		t.Fatalf("building registry: %v", err)
	}

	if _, ok := reg.Lookup(writing.ConflictType("font_preference_conflict")); ok {
		t.Error("lookup of unregistered conflict type should fail")
	}
}

func TestPlanImplementationStepsPerDecision(t *testing.T) {
	tests := []struct {
		decisionType DecisionType
		firstAction  string
		secondAction string
	}{
		{DecisionMerge, "extract_complementary_elements", "synthesize_unified_output"},
		{DecisionPrioritize, "validate_primary_output", "align_secondary_outputs"},
		{DecisionReconcile, "analyze_context_requirements", "apply_reconciliation_rules"},
		{DecisionRecalculate, "invalidate_cached_scores", "recompute_module_outputs"},
		{DecisionEscalate, "capture_conflict_snapshot", "route_to_manual_review"},
	}

	for _, tt := range tests {
		t.Run(string(tt.decisionType), func(t *testing.T) {
			impl := planImplementation(ResolutionDecision{
				Type:          tt.decisionType,
				PrimaryModule: writing.ModuleStyleProfile,
			})

			if len(impl.Steps) != 2 {
				t.Fatalf("got %d steps, want 2", len(impl.Steps))
			}
			if impl.Steps[0].Action != tt.firstAction || impl.Steps[1].Action != tt.secondAction {
				t.Errorf("actions %s/%s, want %s/%s",
					impl.Steps[0].Action, impl.Steps[1].Action, tt.firstAction, tt.secondAction)
			}
			if impl.EstimatedTime != 2*time.Second {
				t.Errorf("estimated time %v, want 2s", impl.EstimatedTime)
			}
			if impl.RollbackPlan == "" {
				t.Error("missing rollback plan")
			}
			if len(impl.ValidationChecks) != 3 {
				t.Errorf("got %d validation checks, want 3", len(impl.ValidationChecks))
			}
		})
	}
}
