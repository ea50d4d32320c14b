package conflict

import (
	"fmt"

	"github.com/vampirenirmal/arbiter/pkg/writing"
)

// ResolutionFunc is a pure function producing the strategy's contextual
// candidate for a conflict. It must not mutate its inputs.
type ResolutionFunc func(conflict writing.InterModuleConflict, wctx writing.WritingContext) ResolutionDecision

// ResolutionStrategy is the registered logic for one conflict type.
type ResolutionStrategy struct {
	Type                 writing.ConflictType
	Name                 string
	Description          string
	Priority             int
	ApplicableConditions []string
	Resolve              ResolutionFunc
	ValidationRules      []string
}

// StrategyRegistry maps each conflict type to exactly one strategy. A flat
// lookup table rather than virtual dispatch, so each type gets one exhaustive
// test.
type StrategyRegistry struct {
	strategies map[writing.ConflictType]ResolutionStrategy
}

// NewStrategyRegistry builds the registry and verifies every known conflict
// type has a strategy.
func NewStrategyRegistry() (*StrategyRegistry, error) {
	reg := &StrategyRegistry{
		strategies: make(map[writing.ConflictType]ResolutionStrategy),
	}
	for _, s := range defaultStrategies() {
		reg.strategies[s.Type] = s
	}
	for _, t := range writing.KnownConflictTypes {
		if _, ok := reg.strategies[t]; !ok {
			return nil, &MissingStrategyError{Type: t}
		}
	}
	return reg, nil
}

// Lookup returns the strategy for a conflict type, if registered.
func (r *StrategyRegistry) Lookup(t writing.ConflictType) (ResolutionStrategy, bool) {
	s, ok := r.strategies[t]
	return s, ok
}

// reconcileBaseConfidence is the base confidence of the contextual candidate.
const reconcileBaseConfidence = 0.75

// contextualDecision builds a reconcile-flavored decision shared by most
// strategies.
func contextualDecision(conflict writing.InterModuleConflict, wctx writing.WritingContext, decision, reasoning string) ResolutionDecision {
	d := ResolutionDecision{
		Type:       DecisionReconcile,
		Decision:   decision,
		Reasoning:  reasoning,
		Confidence: reconcileBaseConfidence,
	}
	if len(conflict.Modules) > 0 {
		d.PrimaryModule = conflict.Modules[0]
		d.SecondaryModules = conflict.Modules[1:]
	}
	return d
}

func defaultStrategies() []ResolutionStrategy {
	return []ResolutionStrategy{
		{
			Type:        writing.ConflictEmotionNarrativeMismatch,
			Name:        "EmotionNarrativeReconciliation",
			Description: "Rebalance emotional beats against the narrative structure",
			Priority:    1,
			ApplicableConditions: []string{
				"emotionArc and narrativeDashboard disagree on beat placement",
			},
			Resolve: func(c writing.InterModuleConflict, w writing.WritingContext) ResolutionDecision {
				return contextualDecision(c, w,
					"remap emotional beats onto the narrative act boundaries",
					fmt.Sprintf("narrative structure anchors the %s draft; emotion beats adjust to it", w.WritingPhase))
			},
			ValidationRules: []string{"beats_within_acts", "no_orphan_peaks"},
		},
		{
			Type:        writing.ConflictPlotTimelineDivergence,
			Name:        "TimelineReconciliation",
			Description: "Reconcile divergent event orderings between plot and narrative views",
			Priority:    1,
			ApplicableConditions: []string{
				"plotStructure and narrativeDashboard report different event orderings",
			},
			Resolve: func(c writing.InterModuleConflict, w writing.WritingContext) ResolutionDecision {
				return contextualDecision(c, w,
					"derive a single causal timeline and rebase both views on it",
					"causal ordering from plot structure wins; presentation order may still differ")
			},
			ValidationRules: []string{"timeline_monotonic", "causes_precede_effects"},
		},
		{
			Type:        writing.ConflictStyleVoice,
			Name:        "VoiceAlignment",
			Description: "Align style profile voice with the emotional register",
			Priority:    2,
			ApplicableConditions: []string{
				"styleProfile voice contradicts emotional register",
			},
			Resolve: func(c writing.InterModuleConflict, w writing.WritingContext) ResolutionDecision {
				return contextualDecision(c, w,
					fmt.Sprintf("blend voice toward the register expected for %s readers", w.TargetAudience),
					"voice shifts are cheaper than re-plotting emotional beats")
			},
			ValidationRules: []string{"voice_stable_across_scenes"},
		},
		{
			Type:        writing.ConflictThemePlotMisalignment,
			Name:        "ThemePlotWeaving",
			Description: "Weave under-supported themes into existing plot threads",
			Priority:    2,
			ApplicableConditions: []string{
				"themeAnalysis finds themes the plot never pays off",
			},
			Resolve: func(c writing.InterModuleConflict, w writing.WritingContext) ResolutionDecision {
				return contextualDecision(c, w,
					"attach each unsupported theme to the nearest plot thread or drop it",
					"plot threads are fixed this late; themes bend to them")
			},
			ValidationRules: []string{"every_theme_has_thread"},
		},
		{
			Type:        writing.ConflictPacingTension,
			Name:        "PacingTensionBalancing",
			Description: "Balance pacing against the tension curve",
			Priority:    3,
			ApplicableConditions: []string{
				"narrativeDashboard pacing contradicts emotionArc tension",
			},
			Resolve: func(c writing.InterModuleConflict, w writing.WritingContext) ResolutionDecision {
				return contextualDecision(c, w,
					"stretch or compress scenes so tension peaks land on act turns",
					fmt.Sprintf("%s pacing conventions take precedence", w.Genre))
			},
			ValidationRules: []string{"tension_peaks_on_turns"},
		},
		{
			Type:        writing.ConflictCharacterArcDisagreement,
			Name:        "CharacterArcMediation",
			Description: "Mediate disagreements about a character's trajectory",
			Priority:    1,
			ApplicableConditions: []string{
				"modules assign inconsistent arcs to the same character",
			},
			Resolve: func(c writing.InterModuleConflict, w writing.WritingContext) ResolutionDecision {
				return contextualDecision(c, w,
					"pick the arc with the strongest causal support and realign the rest",
					"a character can only walk one arc; secondary readings become subtext")
			},
			ValidationRules: []string{"one_arc_per_character"},
		},
		{
			Type:        writing.ConflictToneMoodInconsistency,
			Name:        "ToneMoodSmoothing",
			Description: "Smooth tonal shifts flagged across modules",
			Priority:    3,
			ApplicableConditions: []string{
				"styleProfile tone and themeAnalysis mood diverge",
			},
			Resolve: func(c writing.InterModuleConflict, w writing.WritingContext) ResolutionDecision {
				return contextualDecision(c, w,
					"insert transitional beats where tone jumps exceed one register",
					"abrupt tonal jumps read as errors unless deliberately framed")
			},
			ValidationRules: []string{"tone_shifts_bridged"},
		},
		{
			Type:        writing.ConflictQualityAssessmentDivergence,
			Name:        "ScoreRecalculation",
			Description: "Recompute quality scores when modules grade the same text apart",
			Priority:    4,
			ApplicableConditions: []string{
				"module self-assessments differ beyond tolerance",
			},
			Resolve: func(c writing.InterModuleConflict, w writing.WritingContext) ResolutionDecision {
				d := contextualDecision(c, w,
					"invalidate cached assessments and rescore from the shared draft",
					"divergent grades usually mean stale inputs, not genuine disagreement")
				d.Type = DecisionRecalculate
				return d
			},
			ValidationRules: []string{"rescored_within_tolerance"},
		},
	}
}
