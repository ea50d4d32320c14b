package writing

import (
	"time"
)

// ConflictType classifies a detected disagreement between module outputs.
type ConflictType string

const (
	ConflictEmotionNarrativeMismatch   ConflictType = "emotion_narrative_mismatch"
	ConflictPlotTimelineDivergence     ConflictType = "plot_timeline_divergence"
	ConflictStyleVoice                 ConflictType = "style_voice_conflict"
	ConflictThemePlotMisalignment      ConflictType = "theme_plot_misalignment"
	ConflictPacingTension              ConflictType = "pacing_tension_conflict"
	ConflictCharacterArcDisagreement   ConflictType = "character_arc_disagreement"
	ConflictToneMoodInconsistency      ConflictType = "tone_mood_inconsistency"
	ConflictQualityAssessmentDivergence ConflictType = "quality_assessment_divergence"
)

// KnownConflictTypes lists every conflict type in stable order.
var KnownConflictTypes = []ConflictType{
	ConflictEmotionNarrativeMismatch,
	ConflictPlotTimelineDivergence,
	ConflictStyleVoice,
	ConflictThemePlotMisalignment,
	ConflictPacingTension,
	ConflictCharacterArcDisagreement,
	ConflictToneMoodInconsistency,
	ConflictQualityAssessmentDivergence,
}

// Severity grades how damaging an unresolved conflict is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ConflictImpact estimates what the conflict costs if left unresolved.
type ConflictImpact struct {
	NarrativeCoherence float64 `json:"narrative_coherence"`
	UserExperience     float64 `json:"user_experience"`
	QualityScore       float64 `json:"quality_score"`
}

// ConflictContext is the situational snapshot captured at detection time.
type ConflictContext struct {
	WritingPhase   string     `json:"writing_phase"`
	Genre          string     `json:"genre"`
	TargetAudience string     `json:"target_audience"`
	UserMode       SystemMode `json:"user_mode"`
}

// InterModuleConflict is a disagreement between two or more modules' outputs,
// detected upstream and handed to the resolver as-is.
type InterModuleConflict struct {
	ID              string                 `json:"id"`
	Type            ConflictType           `json:"type"`
	Severity        Severity               `json:"severity"`
	Description     string                 `json:"description"`
	Modules         []ModuleKind           `json:"modules"`
	ConflictingData map[string]interface{} `json:"conflicting_data"`
	DetectedAt      time.Time              `json:"detected_at"`
	Impact          ConflictImpact         `json:"impact"`
	Context         ConflictContext        `json:"context"`
}
