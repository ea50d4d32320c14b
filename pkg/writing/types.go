// Package writing defines the shared data model consumed by the quality
// coordinator and the conflict resolver: module results, writing goals and
// context, and detected inter-module conflicts.
package writing

import (
	"time"
)

// ModuleKind identifies one of the known content-generation modules.
type ModuleKind string

const (
	ModuleEmotionArc         ModuleKind = "emotionArc"
	ModuleNarrativeDashboard ModuleKind = "narrativeDashboard"
	ModulePlotStructure      ModuleKind = "plotStructure"
	ModuleStyleProfile       ModuleKind = "styleProfile"
	ModuleThemeAnalysis      ModuleKind = "themeAnalysis"
	ModuleUnknown            ModuleKind = "unknown"
)

// KnownModules lists every module kind the engines understand, in stable order.
var KnownModules = []ModuleKind{
	ModuleEmotionArc,
	ModuleNarrativeDashboard,
	ModulePlotStructure,
	ModuleStyleProfile,
	ModuleThemeAnalysis,
}

// IsKnown reports whether the kind names one of the five generation modules.
func (k ModuleKind) IsKnown() bool {
	for _, m := range KnownModules {
		if m == k {
			return true
		}
	}
	return false
}

// Payload is the closed union of per-module output payloads. Each generation
// module produces exactly one payload type; anything else is UnknownPayload
// and is skipped by the coordinator.
type Payload interface {
	Kind() ModuleKind
}

// EmotionArcPayload describes the emotional trajectory of the piece.
type EmotionArcPayload struct {
	Beats      []EmotionBeat `json:"beats"`
	PeakChange float64       `json:"peak_change"`
}

type EmotionBeat struct {
	Position  float64 `json:"position"` // 0..1 through the text
	Emotion   string  `json:"emotion"`
	Intensity float64 `json:"intensity"`
}

func (EmotionArcPayload) Kind() ModuleKind { return ModuleEmotionArc }

// NarrativeDashboardPayload summarizes structural health of the narrative.
type NarrativeDashboardPayload struct {
	Acts        int       `json:"acts"`
	SceneCount  int       `json:"scene_count"`
	TensionPlot []float64 `json:"tension_plot"`
}

func (NarrativeDashboardPayload) Kind() ModuleKind { return ModuleNarrativeDashboard }

// PlotStructurePayload captures plot arcs and causal links.
type PlotStructurePayload struct {
	Arcs        []string `json:"arcs"`
	OpenThreads int      `json:"open_threads"`
	Resolved    int      `json:"resolved"`
}

func (PlotStructurePayload) Kind() ModuleKind { return ModulePlotStructure }

// StyleProfilePayload captures voice and register measurements.
type StyleProfilePayload struct {
	Voice          string  `json:"voice"`
	AvgSentenceLen float64 `json:"avg_sentence_len"`
	Register       string  `json:"register"`
}

func (StyleProfilePayload) Kind() ModuleKind { return ModuleStyleProfile }

// ThemeAnalysisPayload captures detected themes and motifs.
type ThemeAnalysisPayload struct {
	Themes []string `json:"themes"`
	Motifs []string `json:"motifs"`
}

func (ThemeAnalysisPayload) Kind() ModuleKind { return ModuleThemeAnalysis }

// UnknownPayload carries output from a module the engines do not recognize.
// The coordinator skips it; the resolver treats its module as opaque.
type UnknownPayload struct {
	Raw map[string]interface{} `json:"raw"`
}

func (UnknownPayload) Kind() ModuleKind { return ModuleUnknown }

// ModuleResult is the declared output contract of one content-generation
// module invocation. Immutable once produced.
type ModuleResult struct {
	Module         ModuleKind             `json:"module"`
	Result         Payload                `json:"result"`
	ExecutionTime  time.Duration          `json:"execution_time"`
	QualityMetrics map[string]float64     `json:"quality_metrics"` // each in [0,1]
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// Metric returns the named quality metric, defaulting to 0 when absent.
func (r ModuleResult) Metric(name string) float64 {
	if r.QualityMetrics == nil {
		return 0
	}
	return r.QualityMetrics[name]
}

// SystemMode is the operating mode supplied by the orchestration layer.
type SystemMode string

const (
	ModeManual    SystemMode = "MANUAL"
	ModeHybrid    SystemMode = "HYBRID"
	ModeFullyAuto SystemMode = "FULLY_AUTO"
)

// GoalConstraints carries the tunable validation constraints of a goal.
type GoalConstraints struct {
	QualityThreshold float64 `json:"quality_threshold"` // 0 means use default
	MaxLength        int     `json:"max_length,omitempty"`
	MinLength        int     `json:"min_length,omitempty"`
}

// WritingGoal biases validation: what the user is trying to produce.
type WritingGoal struct {
	Genre          string          `json:"genre"`
	TargetAudience string          `json:"target_audience"`
	Constraints    GoalConstraints `json:"constraints"`
}

// WritingContext biases conflict resolution: where in the writing session the
// conflict arose and how autonomous the system currently is.
type WritingContext struct {
	WritingPhase   string     `json:"writing_phase"`
	Genre          string     `json:"genre"`
	TargetAudience string     `json:"target_audience"`
	CurrentMode    SystemMode `json:"current_mode"`
}
