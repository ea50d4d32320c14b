package quality

import (
	"time"

	"github.com/vampirenirmal/arbiter/pkg/writing"
)

// CheckType identifies which validator produced a QualityCheck.
type CheckType string

const (
	CheckModuleValidation    CheckType = "module_validation"
	CheckNarrativeCoherence  CheckType = "narrative_coherence"
	CheckThematicIntegration CheckType = "thematic_integration"
	CheckStyleVoiceAlignment CheckType = "style_voice_alignment"
	CheckOverallThreshold    CheckType = "overall_threshold"
)

// QualityCheck is one validator's verdict. Immutable once returned.
type QualityCheck struct {
	Module      writing.ModuleKind     `json:"module"` // primary module, or "" for cross checks
	Modules     []writing.ModuleKind   `json:"modules,omitempty"`
	CheckType   CheckType              `json:"check_type"`
	Passed      bool                   `json:"passed"`
	Score       float64                `json:"score"`
	Issues      []string               `json:"issues,omitempty"`
	Suggestions []string               `json:"suggestions,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// Touches returns every module the check concerns.
func (c QualityCheck) Touches() []writing.ModuleKind {
	if len(c.Modules) > 0 {
		return c.Modules
	}
	if c.Module != "" {
		return []writing.ModuleKind{c.Module}
	}
	return nil
}

// Priority ranks an improvement suggestion.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

var priorityRank = map[Priority]int{
	PriorityLow:    0,
	PriorityMedium: 1,
	PriorityHigh:   2,
}

// Rank returns the sort rank of the priority; higher sorts first.
func (p Priority) Rank() int { return priorityRank[p] }

// ImprovementSuggestion is one actionable remediation derived from a check.
type ImprovementSuggestion struct {
	Module          writing.ModuleKind `json:"module"`
	Suggestion      string             `json:"suggestion"`
	Priority        Priority           `json:"priority"`
	EstimatedImpact float64            `json:"estimated_impact"`
	Implementation  string             `json:"implementation"`
	Effort          string             `json:"effort"`
}

// QualityValidation is the aggregate verdict for one coordinator call.
type QualityValidation struct {
	ID                string                         `json:"id"`
	OverallScore      float64                        `json:"overall_score"`
	ModuleScores      map[writing.ModuleKind]float64 `json:"module_scores"`
	Passed            bool                           `json:"passed"`
	Improvements      []ImprovementSuggestion        `json:"improvements"` // at most 10, priority-sorted
	ValidationDetails []QualityCheck                 `json:"validation_details"`
	Metadata          ValidationMetadata             `json:"metadata"`
}

// ValidationMetadata records provenance of a validation run.
type ValidationMetadata struct {
	SessionID      string        `json:"session_id"`
	ValidatedAt    time.Time     `json:"validated_at"`
	ValidationTime time.Duration `json:"validation_time"`
	ModuleCount    int           `json:"module_count"`
	CheckCount     int           `json:"check_count"`
}
