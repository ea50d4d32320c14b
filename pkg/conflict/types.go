// Package conflict resolves detected disagreements between content-generation
// modules into implementable, traceable decisions. Resolution is
// strategy-dispatched per conflict type, biased by user preferences and
// narrative coherence analysis, and validated for batch-level consistency.
package conflict

import (
	"time"

	"github.com/vampirenirmal/arbiter/pkg/writing"
)

// DecisionType classifies how a conflict is resolved.
type DecisionType string

const (
	DecisionMerge       DecisionType = "merge"
	DecisionPrioritize  DecisionType = "prioritize"
	DecisionReconcile   DecisionType = "reconcile"
	DecisionRecalculate DecisionType = "recalculate"
	DecisionEscalate    DecisionType = "escalate"
)

// ResolutionDecision is a candidate or chosen way to resolve one conflict.
type ResolutionDecision struct {
	Type             DecisionType         `json:"type"`
	PrimaryModule    writing.ModuleKind   `json:"primary_module"`
	SecondaryModules []writing.ModuleKind `json:"secondary_modules,omitempty"`
	Decision         string               `json:"decision"`
	Reasoning        string               `json:"reasoning"`
	Confidence       float64              `json:"confidence"` // [0,1]
}

// ImplementationStep is one concrete action of a resolution plan.
type ImplementationStep struct {
	Step            int                    `json:"step"`
	Action          string                 `json:"action"`
	Target          writing.ModuleKind     `json:"target"`
	Parameters      map[string]interface{} `json:"parameters,omitempty"`
	ExpectedOutcome string                 `json:"expected_outcome"`
}

// ResolutionImplementation is the executable plan for a chosen decision.
type ResolutionImplementation struct {
	Steps            []ImplementationStep `json:"steps"`
	EstimatedTime    time.Duration        `json:"estimated_time"`
	RollbackPlan     string               `json:"rollback_plan"`
	ValidationChecks []string             `json:"validation_checks"`
}

// ResolutionMetadata records provenance of one resolution.
type ResolutionMetadata struct {
	ResolutionTime         time.Duration `json:"resolution_time"`
	StrategyUsed           string        `json:"strategy_used"`
	AlternativesConsidered int           `json:"alternatives_considered"`
	UserPreferenceWeight   float64       `json:"user_preference_weight"`
	// Complexity is advisory only; computed but not used to branch logic.
	Complexity float64 `json:"complexity"`
	BatchID    string  `json:"batch_id,omitempty"`
}

// ConflictResolution is the final implementable outcome for one conflict.
type ConflictResolution struct {
	ConflictID      string                   `json:"conflict_id"`
	Resolution      ResolutionDecision       `json:"resolution"`
	Confidence      float64                  `json:"confidence"`
	Rationale       string                   `json:"rationale"`
	UserAligned     bool                     `json:"user_aligned"`
	NarrativeImpact float64                  `json:"narrative_impact"`
	Implementation  ResolutionImplementation `json:"implementation"`
	Metadata        ResolutionMetadata       `json:"metadata"`
}

// FallbackStrategyName marks resolutions produced by the deterministic
// fallback path rather than a registered strategy.
const FallbackStrategyName = "Fallback"

// IsFallback reports whether the resolution came from the fallback path.
func (r ConflictResolution) IsFallback() bool {
	return r.Metadata.StrategyUsed == FallbackStrategyName
}
