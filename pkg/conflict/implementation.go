package conflict

import (
	"time"
)

// stepDuration is the fixed per-step estimate of a resolution plan.
const stepDuration = time.Second

const rollbackPlan = "restore the pre-resolution module outputs and flag the conflict for manual review"

var defaultValidationChecks = []string{
	"resolved output passes the affected modules' quality standards",
	"narrative coherence score does not regress after applying the plan",
	"no new inter-module conflicts detected on re-scan",
}

// planImplementation builds the fixed two-step plan for a chosen decision.
func planImplementation(decision ResolutionDecision) ResolutionImplementation {
	target := decision.PrimaryModule

	var steps []ImplementationStep
	switch decision.Type {
	case DecisionMerge:
		steps = []ImplementationStep{
			{
				Step:            1,
				Action:          "extract_complementary_elements",
				Target:          target,
				ExpectedOutcome: "non-overlapping contributions identified from each module output",
			},
			{
				Step:            2,
				Action:          "synthesize_unified_output",
				Target:          target,
				ExpectedOutcome: "single merged output preserving both modules' contributions",
			},
		}
	case DecisionPrioritize:
		steps = []ImplementationStep{
			{
				Step:            1,
				Action:          "validate_primary_output",
				Target:          target,
				ExpectedOutcome: "primary module output confirmed against its quality standard",
			},
			{
				Step:            2,
				Action:          "align_secondary_outputs",
				Target:          target,
				ExpectedOutcome: "secondary modules regenerated consistent with the primary output",
			},
		}
	case DecisionRecalculate:
		steps = []ImplementationStep{
			{
				Step:            1,
				Action:          "invalidate_cached_scores",
				Target:          target,
				ExpectedOutcome: "stale per-module assessments discarded",
			},
			{
				Step:            2,
				Action:          "recompute_module_outputs",
				Target:          target,
				ExpectedOutcome: "fresh scores derived from the current shared draft",
			},
		}
	case DecisionEscalate:
		steps = []ImplementationStep{
			{
				Step:            1,
				Action:          "capture_conflict_snapshot",
				Target:          target,
				ExpectedOutcome: "full conflict state preserved for review",
			},
			{
				Step:            2,
				Action:          "route_to_manual_review",
				Target:          target,
				ExpectedOutcome: "conflict queued for a human decision",
			},
		}
	default: // DecisionReconcile
		steps = []ImplementationStep{
			{
				Step:            1,
				Action:          "analyze_context_requirements",
				Target:          target,
				ExpectedOutcome: "contextual constraints extracted from goal and writing phase",
			},
			{
				Step:            2,
				Action:          "apply_reconciliation_rules",
				Target:          target,
				ExpectedOutcome: "conflicting outputs adjusted to satisfy the shared constraints",
			},
		}
	}

	checks := make([]string, len(defaultValidationChecks))
	copy(checks, defaultValidationChecks)

	return ResolutionImplementation{
		Steps:            steps,
		EstimatedTime:    time.Duration(len(steps)) * stepDuration,
		RollbackPlan:     rollbackPlan,
		ValidationChecks: checks,
	}
}
