package conflict

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/vampirenirmal/arbiter/pkg/writing"
)

// minBatchNarrativeImpact is the floor for the batch-mean narrative impact
// before the batch is flagged inconsistent.
const minBatchNarrativeImpact = 0.7

// fallbackConfidence is the fixed confidence of the deterministic fallback.
const fallbackConfidence = 0.5

// Limits bounds resolver resource usage and gates optional behavior.
type Limits struct {
	HistoryLimit           int  `yaml:"history_limit" validate:"min=1"`
	MaxConcurrentConflicts int  `yaml:"max_concurrent_conflicts" validate:"min=1"`
	// ReResolveInconsistent enables re-derivation of inconsistent resolutions
	// with the module's majority decision pinned. Off by default: flagged
	// batches are logged and returned unchanged.
	ReResolveInconsistent bool `yaml:"re_resolve_inconsistent"`
}

// DefaultLimits returns sensible defaults.
func DefaultLimits() Limits {
	return Limits{
		HistoryLimit:           DefaultHistoryLimit,
		MaxConcurrentConflicts: 4,
	}
}

// Resolver turns detected inter-module conflicts into implementable
// resolutions. Each instance owns its history and metrics.
type Resolver struct {
	strategies *StrategyRegistry
	prefs      UserPreferenceEngine
	analyzer   NarrativeCoherenceAnalyzer
	logger     *slog.Logger
	limits     Limits
	now        func() time.Time

	mu      sync.Mutex
	history *resolutionHistory
}

// ResolverOption customizes a Resolver.
type ResolverOption func(*Resolver)

// WithLogger sets the resolver's logger.
func WithLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithLimits overrides the resolver's limits.
func WithLimits(limits Limits) ResolverOption {
	return func(r *Resolver) {
		if limits.HistoryLimit > 0 {
			r.limits.HistoryLimit = limits.HistoryLimit
		}
		if limits.MaxConcurrentConflicts > 0 {
			r.limits.MaxConcurrentConflicts = limits.MaxConcurrentConflicts
		}
		r.limits.ReResolveInconsistent = limits.ReResolveInconsistent
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

// NewResolver creates a resolver over the given strategy registry and
// collaborators.
func NewResolver(strategies *StrategyRegistry, prefs UserPreferenceEngine, analyzer NarrativeCoherenceAnalyzer, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		strategies: strategies,
		prefs:      prefs,
		analyzer:   analyzer,
		logger:     slog.Default(),
		limits:     DefaultLimits(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.history = newResolutionHistory(r.limits.HistoryLimit)
	return r
}

// ResolveConflicts resolves each conflict independently, then validates the
// batch for cross-conflict consistency. A single conflict's failure never
// aborts the batch: a deterministic fallback is substituted and resolution
// continues. Only cancellation surfaces as an error.
func (r *Resolver) ResolveConflicts(ctx context.Context, conflicts []writing.InterModuleConflict, wctx writing.WritingContext) ([]ConflictResolution, error) {
	if len(conflicts) == 0 {
		return []ConflictResolution{}, nil
	}

	batchID := uuid.New().String()
	r.logger.Info("Starting conflict resolution batch",
		"batch_id", batchID,
		"conflict_count", len(conflicts),
		"mode", wctx.CurrentMode,
	)

	resolutions := make([]ConflictResolution, len(conflicts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.limits.MaxConcurrentConflicts)

	for i, conflict := range conflicts {
		i, conflict := i, conflict
		g.Go(func() error {
			res, err := r.resolveOne(gctx, conflict, wctx, nil)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				r.logger.Warn("Conflict resolution failed, substituting fallback",
					"batch_id", batchID,
					"conflict_id", conflict.ID,
					"conflict_type", conflict.Type,
					"error", err,
				)
				res = r.fallbackResolution(conflict, err)
			}
			res.Metadata.BatchID = batchID
			resolutions[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("conflict resolution batch %s: %w", batchID, err)
	}

	// Consistency validation runs strictly after every individual resolution.
	resolutions = r.validateBatchConsistency(ctx, conflicts, resolutions, wctx, batchID)

	r.mu.Lock()
	r.history.recordBatch(resolutions)
	metrics := r.history.metrics
	r.mu.Unlock()

	r.logger.Info("Conflict resolution batch completed",
		"batch_id", batchID,
		"resolved", len(resolutions),
		"success_rate", metrics.SuccessRate,
	)

	return resolutions, nil
}

// resolveOne runs the full per-conflict pipeline. When pin is non-nil the
// candidate set is narrowed to that decision type (used by re-resolution).
// Any internal failure is returned as an error for the caller to turn into a
// fallback.
func (r *Resolver) resolveOne(ctx context.Context, conflict writing.InterModuleConflict, wctx writing.WritingContext, pin *DecisionType) (ConflictResolution, error) {
	start := r.now()

	if err := ctx.Err(); err != nil {
		return ConflictResolution{}, err
	}
	if len(conflict.Modules) == 0 {
		return ConflictResolution{}, ErrNoModules
	}

	complexity := conflictComplexity(conflict)

	strategy, ok := r.strategies.Lookup(conflict.Type)
	if !ok {
		return ConflictResolution{}, &MissingStrategyError{Type: conflict.Type}
	}

	prefWeight, err := r.prefs.GetPreferenceWeight(ctx, conflict, wctx)
	if err != nil {
		return ConflictResolution{}, fmt.Errorf("preference weight for %s: %w", conflict.ID, err)
	}

	candidates := r.generateCandidates(conflict, wctx, strategy, prefWeight)
	if pin != nil {
		pinned := candidates[:0:0]
		for _, c := range candidates {
			if c.Type == *pin {
				pinned = append(pinned, c)
			}
		}
		if len(pinned) > 0 {
			candidates = pinned
		}
	}

	winner, err := r.selectCandidate(ctx, conflict, wctx, candidates)
	if err != nil {
		return ConflictResolution{}, err
	}

	narrativeImpact, err := r.analyzer.AnalyzeCoherence(ctx, conflict, winner)
	if err != nil {
		return ConflictResolution{}, fmt.Errorf("coherence analysis for %s: %w", conflict.ID, err)
	}

	return ConflictResolution{
		ConflictID: conflict.ID,
		Resolution: winner,
		Confidence: winner.Confidence,
		Rationale: fmt.Sprintf("%s via %s: %s",
			conflict.Type, strategy.Name, winner.Reasoning),
		UserAligned:     prefWeight > 0.7,
		NarrativeImpact: narrativeImpact,
		Implementation:  planImplementation(winner),
		Metadata: ResolutionMetadata{
			ResolutionTime:         r.now().Sub(start),
			StrategyUsed:           strategy.Name,
			AlternativesConsidered: len(candidates),
			UserPreferenceWeight:   prefWeight,
			Complexity:             complexity,
		},
	}, nil
}

// conflictComplexity is an advisory [0,1] score; informational only.
func conflictComplexity(conflict writing.InterModuleConflict) float64 {
	moduleFactor := float64(len(conflict.Modules)) / float64(len(writing.KnownModules))
	if moduleFactor > 1 {
		moduleFactor = 1
	}
	dataFactor := float64(len(conflict.ConflictingData)) / 10
	if dataFactor > 1 {
		dataFactor = 1
	}
	c := 0.2*moduleFactor +
		0.1*dataFactor +
		0.3*conflict.Impact.NarrativeCoherence +
		0.4*conflict.Impact.QualityScore
	if c > 1 {
		c = 1
	}
	return c
}

// generateCandidates builds the candidate decisions: merge (only for exactly
// two modules), prioritize, and the strategy's contextual candidate. Each
// confidence is scaled up by the user preference weight and capped at 1.
func (r *Resolver) generateCandidates(conflict writing.InterModuleConflict, wctx writing.WritingContext, strategy ResolutionStrategy, prefWeight float64) []ResolutionDecision {
	primary := conflict.Modules[0]
	secondary := conflict.Modules[1:]

	var candidates []ResolutionDecision

	if len(conflict.Modules) == 2 {
		candidates = append(candidates, ResolutionDecision{
			Type:             DecisionMerge,
			PrimaryModule:    primary,
			SecondaryModules: secondary,
			Decision: fmt.Sprintf("merge complementary elements of %s and %s",
				conflict.Modules[0], conflict.Modules[1]),
			Reasoning:  "both outputs contribute non-overlapping value",
			Confidence: 0.8,
		})
	}

	candidates = append(candidates, ResolutionDecision{
		Type:             DecisionPrioritize,
		PrimaryModule:    primary,
		SecondaryModules: secondary,
		Decision:         fmt.Sprintf("adopt %s output and align the rest to it", primary),
		Reasoning:        "the first listed module owns the disputed aspect",
		Confidence:       0.7,
	})

	candidates = append(candidates, strategy.Resolve(conflict, wctx))

	scale := 1 + prefWeight*0.2
	for i := range candidates {
		candidates[i].Confidence *= scale
		if candidates[i].Confidence > 1 {
			candidates[i].Confidence = 1
		}
	}
	return candidates
}

// selectCandidate scores candidates by confidence, coherence, and mode, and
// picks the best. A single candidate wins outright.
func (r *Resolver) selectCandidate(ctx context.Context, conflict writing.InterModuleConflict, wctx writing.WritingContext, candidates []ResolutionDecision) (ResolutionDecision, error) {
	if len(candidates) == 0 {
		return ResolutionDecision{}, fmt.Errorf("no candidates generated for conflict %s", conflict.ID)
	}
	if len(candidates) == 1 {
		return candidates[0], nil
	}

	modeBonus := 0.2
	if wctx.CurrentMode == writing.ModeFullyAuto {
		modeBonus = 0.3
	}

	best := candidates[0]
	bestScore := -1.0
	for _, cand := range candidates {
		coherence, err := r.analyzer.AnalyzeCoherence(ctx, conflict, cand)
		if err != nil {
			return ResolutionDecision{}, fmt.Errorf("scoring candidate %s: %w", cand.Type, err)
		}
		score := cand.Confidence*0.4 + coherence*0.3 + modeBonus
		if score > bestScore {
			bestScore = score
			best = cand
		}
	}
	return best, nil
}

// fallbackResolution is the deterministic terminal state for a conflict the
// pipeline could not handle: the first listed module wins outright.
func (r *Resolver) fallbackResolution(conflict writing.InterModuleConflict, cause error) ConflictResolution {
	primary := writing.ModuleUnknown
	var secondary []writing.ModuleKind
	if len(conflict.Modules) > 0 {
		primary = conflict.Modules[0]
		secondary = conflict.Modules[1:]
	}

	decision := ResolutionDecision{
		Type:             DecisionPrioritize,
		PrimaryModule:    primary,
		SecondaryModules: secondary,
		Decision:         fmt.Sprintf("retain %s output unchanged", primary),
		Reasoning:        "automatic resolution unavailable; first listed module wins",
		Confidence:       fallbackConfidence,
	}

	return ConflictResolution{
		ConflictID:      conflict.ID,
		Resolution:      decision,
		Confidence:      fallbackConfidence,
		Rationale:       fmt.Sprintf("fallback for %s: %v", conflict.Type, cause),
		UserAligned:     false,
		NarrativeImpact: minBatchNarrativeImpact,
		Implementation:  planImplementation(decision),
		Metadata: ResolutionMetadata{
			StrategyUsed:           FallbackStrategyName,
			AlternativesConsidered: 0,
			Complexity:             conflictComplexity(conflict),
		},
	}
}

// validateBatchConsistency flags a batch when the same primary module
// received different decision types across conflicts, or when the mean
// narrative impact drops below the floor. By default flagged batches are
// logged and returned unchanged; with ReResolveInconsistent enabled, mixed
// decisions are re-derived with the module's majority decision type pinned.
func (r *Resolver) validateBatchConsistency(ctx context.Context, conflicts []writing.InterModuleConflict, resolutions []ConflictResolution, wctx writing.WritingContext, batchID string) []ConflictResolution {
	byModule := make(map[writing.ModuleKind][]int)
	var impactSum float64
	for i, res := range resolutions {
		byModule[res.Resolution.PrimaryModule] = append(byModule[res.Resolution.PrimaryModule], i)
		impactSum += res.NarrativeImpact
	}

	meanImpact := impactSum / float64(len(resolutions))
	if meanImpact < minBatchNarrativeImpact {
		for _, res := range resolutions {
			r.logger.Warn("Batch narrative impact below floor",
				"batch_id", batchID,
				"conflict_id", res.ConflictID,
				"mean_impact", meanImpact,
			)
		}
	}

	for module, indices := range byModule {
		types := make(map[DecisionType]int)
		for _, i := range indices {
			types[resolutions[i].Resolution.Type]++
		}
		if len(types) <= 1 {
			continue
		}

		for _, i := range indices {
			r.logger.Warn("Inconsistent decisions for module across batch",
				"batch_id", batchID,
				"conflict_id", resolutions[i].ConflictID,
				"module", module,
				"decision", resolutions[i].Resolution.Type,
			)
		}

		if !r.limits.ReResolveInconsistent {
			continue
		}

		pinned := majorityDecision(resolutions, indices)
		for _, i := range indices {
			if resolutions[i].Resolution.Type == pinned {
				continue
			}
			res, err := r.resolveOne(ctx, conflicts[i], wctx, &pinned)
			if err != nil {
				r.logger.Warn("Re-resolution failed, keeping original",
					"batch_id", batchID,
					"conflict_id", conflicts[i].ID,
					"error", err,
				)
				continue
			}
			res.Metadata.BatchID = batchID
			resolutions[i] = res
		}
	}

	return resolutions
}

// majorityDecision picks the most common decision type among the indexed
// resolutions, breaking ties by first appearance.
func majorityDecision(resolutions []ConflictResolution, indices []int) DecisionType {
	counts := make(map[DecisionType]int)
	var order []DecisionType
	for _, i := range indices {
		t := resolutions[i].Resolution.Type
		if counts[t] == 0 {
			order = append(order, t)
		}
		counts[t]++
	}

	best := order[0]
	for _, t := range order {
		if counts[t] > counts[best] {
			best = t
		}
	}
	return best
}

// Metrics returns a copy of the running metrics.
func (r *Resolver) Metrics() Metrics {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.history.metrics
}

// History returns a copy of the bounded resolution history, oldest first.
func (r *Resolver) History() []ConflictResolution {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.history.snapshot()
}
