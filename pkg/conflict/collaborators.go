package conflict

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"github.com/vampirenirmal/arbiter/pkg/writing"
)

// UserPreferences captures standing user choices that bias resolution.
type UserPreferences struct {
	PreferredModules     map[writing.ConflictType]writing.ModuleKind `json:"preferred_modules,omitempty"`
	AutoApproveThreshold float64                                     `json:"auto_approve_threshold"`
}

// UserPreferenceEngine supplies user-alignment signals to the resolver.
// Implementations may be backed by remote services; all calls take a context.
type UserPreferenceEngine interface {
	GetPreferenceWeight(ctx context.Context, conflict writing.InterModuleConflict, wctx writing.WritingContext) (float64, error)
	GetUserPreferences(ctx context.Context) (UserPreferences, error)
	UpdatePreferences(ctx context.Context, prefs UserPreferences) error
	GetHistoricalResolutions(ctx context.Context) ([]ConflictResolution, error)
}

// NarrativeCoherenceAnalyzer scores how well a candidate decision preserves
// narrative flow.
type NarrativeCoherenceAnalyzer interface {
	AnalyzeCoherence(ctx context.Context, conflict writing.InterModuleConflict, decision ResolutionDecision) (float64, error)
	ValidateNarrativeFlow(ctx context.Context, resolutions []ConflictResolution) (bool, error)
	SuggestCoherenceImprovements(ctx context.Context, conflict writing.InterModuleConflict) ([]string, error)
}

// HeuristicPreferenceEngine is the in-process reference implementation. The
// weight starts neutral and is boosted when the system runs fully autonomous
// or the conflict is critical.
type HeuristicPreferenceEngine struct {
	mu      sync.RWMutex
	prefs   UserPreferences
	history []ConflictResolution
}

// NewHeuristicPreferenceEngine returns a preference engine with the given
// standing preferences.
func NewHeuristicPreferenceEngine(prefs UserPreferences) *HeuristicPreferenceEngine {
	return &HeuristicPreferenceEngine{prefs: prefs}
}

func (e *HeuristicPreferenceEngine) GetPreferenceWeight(ctx context.Context, conflict writing.InterModuleConflict, wctx writing.WritingContext) (float64, error) {
	weight := 0.5
	if wctx.CurrentMode == writing.ModeFullyAuto {
		weight += 0.25
	}
	if conflict.Severity == writing.SeverityCritical {
		weight += 0.2
	}
	if weight > 1 {
		weight = 1
	}
	return weight, nil
}

func (e *HeuristicPreferenceEngine) GetUserPreferences(ctx context.Context) (UserPreferences, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.prefs, nil
}

func (e *HeuristicPreferenceEngine) UpdatePreferences(ctx context.Context, prefs UserPreferences) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.prefs = prefs
	return nil
}

// RecordResolution remembers a resolution so later calls can surface it.
func (e *HeuristicPreferenceEngine) RecordResolution(resolution ConflictResolution) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history = append(e.history, resolution)
}

func (e *HeuristicPreferenceEngine) GetHistoricalResolutions(ctx context.Context) ([]ConflictResolution, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]ConflictResolution, len(e.history))
	copy(out, e.history)
	return out, nil
}

// RateLimitedPreferenceEngine throttles calls to a backing preference engine,
// for deployments where preferences live behind a remote service.
type RateLimitedPreferenceEngine struct {
	inner   UserPreferenceEngine
	limiter *rate.Limiter
}

// NewRateLimitedPreferenceEngine wraps inner with a token-bucket limiter.
func NewRateLimitedPreferenceEngine(inner UserPreferenceEngine, requestsPerSecond float64, burst int) *RateLimitedPreferenceEngine {
	return &RateLimitedPreferenceEngine{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

func (e *RateLimitedPreferenceEngine) GetPreferenceWeight(ctx context.Context, conflict writing.InterModuleConflict, wctx writing.WritingContext) (float64, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	return e.inner.GetPreferenceWeight(ctx, conflict, wctx)
}

func (e *RateLimitedPreferenceEngine) GetUserPreferences(ctx context.Context) (UserPreferences, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return UserPreferences{}, err
	}
	return e.inner.GetUserPreferences(ctx)
}

func (e *RateLimitedPreferenceEngine) UpdatePreferences(ctx context.Context, prefs UserPreferences) error {
	if err := e.limiter.Wait(ctx); err != nil {
		return err
	}
	return e.inner.UpdatePreferences(ctx, prefs)
}

func (e *RateLimitedPreferenceEngine) GetHistoricalResolutions(ctx context.Context) ([]ConflictResolution, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return e.inner.GetHistoricalResolutions(ctx)
}

// StructuralCoherenceAnalyzer is the in-process reference analyzer. Scores
// are illustrative heuristics: merges preserve the most information, and
// conflicts with high coherence impact drag every candidate down.
type StructuralCoherenceAnalyzer struct{}

// NewStructuralCoherenceAnalyzer returns the reference analyzer.
func NewStructuralCoherenceAnalyzer() *StructuralCoherenceAnalyzer {
	return &StructuralCoherenceAnalyzer{}
}

func (a *StructuralCoherenceAnalyzer) AnalyzeCoherence(ctx context.Context, conflict writing.InterModuleConflict, decision ResolutionDecision) (float64, error) {
	score := 0.9 - 0.2*conflict.Impact.NarrativeCoherence
	switch decision.Type {
	case DecisionMerge:
		score += 0.05
	case DecisionReconcile:
		score += 0.03
	}
	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}
	return score, nil
}

func (a *StructuralCoherenceAnalyzer) ValidateNarrativeFlow(ctx context.Context, resolutions []ConflictResolution) (bool, error) {
	if len(resolutions) == 0 {
		return true, nil
	}
	var sum float64
	for _, r := range resolutions {
		sum += r.NarrativeImpact
	}
	return sum/float64(len(resolutions)) >= minBatchNarrativeImpact, nil
}

func (a *StructuralCoherenceAnalyzer) SuggestCoherenceImprovements(ctx context.Context, conflict writing.InterModuleConflict) ([]string, error) {
	suggestions := []string{
		"re-run the disagreeing modules with a shared narrative summary",
	}
	if len(conflict.Modules) > 2 {
		suggestions = append(suggestions,
			"resolve pairwise disagreements before arbitrating the full set")
	}
	return suggestions, nil
}
