package conflict

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/vampirenirmal/arbiter/pkg/writing"
)

type stubPrefEngine struct {
	weight float64
	err    error
}

func (s *stubPrefEngine) GetPreferenceWeight(ctx context.Context, conflict writing.InterModuleConflict, wctx writing.WritingContext) (float64, error) {
	return s.weight, s.err
}

func (s *stubPrefEngine) GetUserPreferences(ctx context.Context) (UserPreferences, error) {
	return UserPreferences{}, s.err
}

func (s *stubPrefEngine) UpdatePreferences(ctx context.Context, prefs UserPreferences) error {
	return s.err
}

func (s *stubPrefEngine) GetHistoricalResolutions(ctx context.Context) ([]ConflictResolution, error) {
	return nil, s.err
}

type stubAnalyzer struct {
	coherence float64
	err       error
}

func (s *stubAnalyzer) AnalyzeCoherence(ctx context.Context, conflict writing.InterModuleConflict, decision ResolutionDecision) (float64, error) {
	return s.coherence, s.err
}

func (s *stubAnalyzer) ValidateNarrativeFlow(ctx context.Context, resolutions []ConflictResolution) (bool, error) {
	return true, s.err
}

func (s *stubAnalyzer) SuggestCoherenceImprovements(ctx context.Context, conflict writing.InterModuleConflict) ([]string, error) {
	return nil, s.err
}

func newTestResolver(t *testing.T, opts ...ResolverOption) *Resolver {
	t.Helper()
	strategies, err := NewStrategyRegistry()
	if err != nil {
		t.Fatalf("building strategy registry: %v", err)
	}
	return NewResolver(strategies,
		NewHeuristicPreferenceEngine(UserPreferences{}),
		NewStructuralCoherenceAnalyzer(),
		opts...)
}

func TestResolveStyleVoiceConflictFullyAuto(t *testing.T) {
	r := newTestResolver(t)

	conflict := sampleConflict(writing.ConflictStyleVoice,
		writing.ModuleStyleProfile, writing.ModuleEmotionArc)
	wctx := writing.WritingContext{CurrentMode: writing.ModeFullyAuto}

	resolutions, err := r.ResolveConflicts(context.Background(),
		[]writing.InterModuleConflict{conflict}, wctx)
	if err != nil {
		t.Fatalf("ResolveConflicts: %v", err)
	}
	if len(resolutions) != 1 {
		t.Fatalf("got %d resolutions, want 1", len(resolutions))
	}

	res := resolutions[0]
	switch res.Resolution.Type {
	case DecisionMerge, DecisionPrioritize, DecisionReconcile:
	default:
		t.Errorf("unexpected decision type %s", res.Resolution.Type)
	}
	if res.Confidence <= 0 || res.Confidence > 1 {
		t.Errorf("confidence %.2f out of (0,1]", res.Confidence)
	}
	if res.Metadata.UserPreferenceWeight != 0.75 {
		t.Errorf("preference weight %.2f, want 0.75 (fully-auto boost)", res.Metadata.UserPreferenceWeight)
	}
	if !res.UserAligned {
		t.Error("weight above 0.7 should mark the resolution user-aligned")
	}
	if res.IsFallback() {
		t.Error("registered conflict type must not fall back")
	}
}

func TestMergeCandidateOnlyForTwoModuleConflicts(t *testing.T) {
	r := newTestResolver(t)
	ctx := context.Background()
	wctx := writing.WritingContext{CurrentMode: writing.ModeManual}

	two, err := r.ResolveConflicts(ctx, []writing.InterModuleConflict{
		sampleConflict(writing.ConflictStyleVoice,
			writing.ModuleStyleProfile, writing.ModuleEmotionArc),
	}, wctx)
	if err != nil {
		t.Fatalf("two-module batch: %v", err)
	}
	if got := two[0].Metadata.AlternativesConsidered; got != 3 {
		t.Errorf("two-module conflict considered %d candidates, want 3 (merge included)", got)
	}
	if two[0].Resolution.Type != DecisionMerge {
		t.Errorf("two-module conflict resolved as %s, want merge to win selection", two[0].Resolution.Type)
	}

	four, err := r.ResolveConflicts(ctx, []writing.InterModuleConflict{
		sampleConflict(writing.ConflictCharacterArcDisagreement,
			writing.ModuleEmotionArc, writing.ModuleNarrativeDashboard,
			writing.ModulePlotStructure, writing.ModuleThemeAnalysis),
	}, wctx)
	if err != nil {
		t.Fatalf("four-module batch: %v", err)
	}
	if got := four[0].Metadata.AlternativesConsidered; got != 2 {
		t.Errorf("four-module conflict considered %d candidates, want 2 (no merge)", got)
	}
	if four[0].Resolution.Type == DecisionMerge {
		t.Error("merge must never win for more than two modules")
	}
}

func TestUnknownConflictTypeFallsBack(t *testing.T) {
	r := newTestResolver(t)

	unknown := sampleConflict(writing.ConflictType("font_preference_conflict"),
		writing.ModuleStyleProfile, writing.ModuleEmotionArc)
	known := sampleConflict(writing.ConflictStyleVoice,
		writing.ModuleStyleProfile, writing.ModuleEmotionArc)

	resolutions, err := r.ResolveConflicts(context.Background(),
		[]writing.InterModuleConflict{unknown, known},
		writing.WritingContext{CurrentMode: writing.ModeHybrid})
	if err != nil {
		t.Fatalf("batch must survive an unregistered conflict type: %v", err)
	}
	if len(resolutions) != 2 {
		t.Fatalf("got %d resolutions, want 2", len(resolutions))
	}

	fb := resolutions[0]
	if !fb.IsFallback() {
		t.Fatalf("strategyUsed = %q, want %q", fb.Metadata.StrategyUsed, FallbackStrategyName)
	}
	if fb.Confidence != 0.5 {
		t.Errorf("fallback confidence %.2f, want 0.5", fb.Confidence)
	}
	if fb.Resolution.Type != DecisionPrioritize {
		t.Errorf("fallback decision %s, want prioritize", fb.Resolution.Type)
	}
	if fb.Resolution.PrimaryModule != writing.ModuleStyleProfile {
		t.Errorf("fallback primary %s, want first listed module", fb.Resolution.PrimaryModule)
	}

	if resolutions[1].IsFallback() {
		t.Error("known conflict type should resolve normally")
	}

	metrics := r.Metrics()
	if metrics.SuccessRate != 0.5 {
		t.Errorf("success rate %.2f, want 0.5 for one fallback of two", metrics.SuccessRate)
	}
}

func TestFallbackOnCollaboratorFailure(t *testing.T) {
	strategies, err := NewStrategyRegistry()
	if err != nil {
		t.Fatalf("building strategy registry: %v", err)
	}
	r := NewResolver(strategies,
		&stubPrefEngine{err: errors.New("preference store unreachable")},
		NewStructuralCoherenceAnalyzer())

	resolutions, err := r.ResolveConflicts(context.Background(),
		[]writing.InterModuleConflict{
			sampleConflict(writing.ConflictStyleVoice,
				writing.ModuleStyleProfile, writing.ModuleEmotionArc),
		},
		writing.WritingContext{})
	if err != nil {
		t.Fatalf("collaborator failure must not abort the batch: %v", err)
	}
	if !resolutions[0].IsFallback() {
		t.Error("expected fallback when the preference engine fails")
	}
}

func TestComplexityMetadata(t *testing.T) {
	r := newTestResolver(t)

	resolutions, err := r.ResolveConflicts(context.Background(),
		[]writing.InterModuleConflict{
			sampleConflict(writing.ConflictStyleVoice,
				writing.ModuleStyleProfile, writing.ModuleEmotionArc),
		},
		writing.WritingContext{})
	if err != nil {
		t.Fatalf("ResolveConflicts: %v", err)
	}

	// 2 of 5 modules, 2 data entries, impact 0.5/0.6.
	want := 0.2*0.4 + 0.1*0.2 + 0.3*0.5 + 0.4*0.6
	got := resolutions[0].Metadata.Complexity
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("complexity %.4f, want %.4f", got, want)
	}
	if got < 0 || got > 1 {
		t.Errorf("complexity %.4f out of [0,1]", got)
	}
}

func TestResolutionHistoryBoundedFIFO(t *testing.T) {
	r := newTestResolver(t, WithLimits(Limits{HistoryLimit: 3}))
	ctx := context.Background()
	wctx := writing.WritingContext{}

	var ids []string
	for batch := 0; batch < 2; batch++ {
		var conflicts []writing.InterModuleConflict
		for i := 0; i < 2; i++ {
			c := sampleConflict(writing.ConflictStyleVoice,
				writing.ModuleStyleProfile, writing.ModuleEmotionArc)
			c.ID = fmt.Sprintf("b%d-c%d", batch, i)
			conflicts = append(conflicts, c)
			ids = append(ids, c.ID)
		}
		if _, err := r.ResolveConflicts(ctx, conflicts, wctx); err != nil {
			t.Fatalf("batch %d: %v", batch, err)
		}
	}

	history := r.History()
	if len(history) != 3 {
		t.Fatalf("history length %d, want 3", len(history))
	}
	for i, entry := range history {
		if entry.ConflictID != ids[i+1] {
			t.Errorf("history[%d] = %s, want %s (oldest evicted first)", i, entry.ConflictID, ids[i+1])
		}
	}

	metrics := r.Metrics()
	if metrics.TotalConflictsResolved != 4 {
		t.Errorf("total resolved %d, want 4", metrics.TotalConflictsResolved)
	}
	if metrics.TotalBatches != 2 {
		t.Errorf("total batches %d, want 2", metrics.TotalBatches)
	}
}

func TestBatchConsistencySoftFailByDefault(t *testing.T) {
	r := newTestResolver(t)
	ctx := context.Background()
	wctx := writing.WritingContext{CurrentMode: writing.ModeManual}

	// Same primary module; the two-module conflict resolves to merge, the
	// three-module one to reconcile, so the batch is flagged inconsistent.
	conflicts := []writing.InterModuleConflict{
		sampleConflict(writing.ConflictCharacterArcDisagreement,
			writing.ModuleStyleProfile, writing.ModuleEmotionArc, writing.ModuleThemeAnalysis),
		sampleConflict(writing.ConflictStyleVoice,
			writing.ModuleStyleProfile, writing.ModuleEmotionArc),
	}

	resolutions, err := r.ResolveConflicts(ctx, conflicts, wctx)
	if err != nil {
		t.Fatalf("ResolveConflicts: %v", err)
	}
	if resolutions[0].Resolution.Type != DecisionReconcile {
		t.Errorf("first resolution %s, want reconcile", resolutions[0].Resolution.Type)
	}
	if resolutions[1].Resolution.Type != DecisionMerge {
		t.Errorf("second resolution %s, want merge kept (soft fail returns batch unchanged)",
			resolutions[1].Resolution.Type)
	}
}

func TestBatchConsistencyReResolvesWhenEnabled(t *testing.T) {
	r := newTestResolver(t, WithLimits(Limits{ReResolveInconsistent: true}))
	ctx := context.Background()
	wctx := writing.WritingContext{CurrentMode: writing.ModeManual}

	conflicts := []writing.InterModuleConflict{
		sampleConflict(writing.ConflictCharacterArcDisagreement,
			writing.ModuleStyleProfile, writing.ModuleEmotionArc, writing.ModuleThemeAnalysis),
		sampleConflict(writing.ConflictStyleVoice,
			writing.ModuleStyleProfile, writing.ModuleEmotionArc),
	}

	resolutions, err := r.ResolveConflicts(ctx, conflicts, wctx)
	if err != nil {
		t.Fatalf("ResolveConflicts: %v", err)
	}

	for i, res := range resolutions {
		if res.Resolution.Type != DecisionReconcile {
			t.Errorf("resolution %d is %s, want reconcile pinned across the batch",
				i, res.Resolution.Type)
		}
	}
}

func TestResolveConflictsEmptyBatch(t *testing.T) {
	r := newTestResolver(t)

	resolutions, err := r.ResolveConflicts(context.Background(), nil, writing.WritingContext{})
	if err != nil {
		t.Fatalf("ResolveConflicts: %v", err)
	}
	if len(resolutions) != 0 {
		t.Errorf("got %d resolutions for empty batch", len(resolutions))
	}
	if len(r.History()) != 0 {
		t.Error("empty batch must not touch history")
	}
}

func TestResolveConflictsCancelledContext(t *testing.T) {
	r := newTestResolver(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.ResolveConflicts(ctx, []writing.InterModuleConflict{
		sampleConflict(writing.ConflictStyleVoice,
			writing.ModuleStyleProfile, writing.ModuleEmotionArc),
	}, writing.WritingContext{})
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
