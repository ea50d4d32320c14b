package quality

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/vampirenirmal/arbiter/pkg/writing"
)

// Limits bounds coordinator resource usage and supplies validation defaults.
type Limits struct {
	HistoryLimit            int     `yaml:"history_limit" validate:"min=1"`
	MaxConcurrentModules    int     `yaml:"max_concurrent_modules" validate:"min=1"`
	DefaultQualityThreshold float64 `yaml:"default_quality_threshold" validate:"min=0,max=1"`
}

// DefaultLimits returns sensible defaults.
func DefaultLimits() Limits {
	return Limits{
		HistoryLimit:            DefaultHistoryLimit,
		MaxConcurrentModules:    4,
		DefaultQualityThreshold: 0.8,
	}
}

// Coordinator orchestrates single-module and cross-module validation over a
// batch of module results. Each instance owns its history and metrics; share
// one instance across goroutines freely, or use one per request and aggregate
// externally.
type Coordinator struct {
	standards *StandardsRegistry
	validator moduleValidator
	logger    *slog.Logger
	limits    Limits
	sessionID string
	now       func() time.Time

	mu      sync.Mutex
	history *validationHistory
}

// CoordinatorOption customizes a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithLogger sets the coordinator's logger.
func WithLogger(logger *slog.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithLimits overrides the coordinator's limits.
func WithLimits(limits Limits) CoordinatorOption {
	return func(c *Coordinator) {
		if limits.HistoryLimit > 0 {
			c.limits.HistoryLimit = limits.HistoryLimit
		}
		if limits.MaxConcurrentModules > 0 {
			c.limits.MaxConcurrentModules = limits.MaxConcurrentModules
		}
		if limits.DefaultQualityThreshold > 0 {
			c.limits.DefaultQualityThreshold = limits.DefaultQualityThreshold
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) CoordinatorOption {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCoordinator creates a coordinator over the given standards registry.
func NewCoordinator(standards *StandardsRegistry, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		standards: standards,
		validator: moduleValidator{standards: standards},
		logger:    slog.Default(),
		limits:    DefaultLimits(),
		sessionID: uuid.New().String(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.history = newValidationHistory(c.limits.HistoryLimit)
	return c
}

// SessionID returns the coordinator instance identifier.
func (c *Coordinator) SessionID() string { return c.sessionID }

// ValidateResults scores each module result against its standard, runs the
// four cross-module validators, and aggregates everything into one
// QualityValidation. Modules without a registered standard are skipped.
// Per-module scoring failures become failed checks; only cancellation or an
// internal invariant break surfaces as an error.
func (c *Coordinator) ValidateResults(ctx context.Context, results []writing.ModuleResult, goal writing.WritingGoal) (*QualityValidation, error) {
	start := c.now()

	threshold := goal.Constraints.QualityThreshold
	if threshold <= 0 {
		threshold = c.limits.DefaultQualityThreshold
	}

	c.logger.Info("Starting quality validation",
		"session_id", c.sessionID,
		"module_count", len(results),
		"quality_threshold", threshold,
	)

	byModule := make(map[writing.ModuleKind]writing.ModuleResult, len(results))
	for _, r := range results {
		byModule[r.Module] = r
	}

	moduleChecks, err := c.runModulePass(ctx, results)
	if err != nil {
		return nil, err
	}

	checks := moduleChecks
	for _, v := range relationalValidators {
		checks = append(checks, v.run(byModule))
	}
	checks = append(checks, runOverallThreshold(byModule, threshold))

	validation := c.aggregate(checks, threshold)
	validation.ID = uuid.New().String()
	validation.Metadata = ValidationMetadata{
		SessionID:      c.sessionID,
		ValidatedAt:    start,
		ValidationTime: c.now().Sub(start),
		ModuleCount:    len(results),
		CheckCount:     len(checks),
	}

	c.mu.Lock()
	c.history.record(*validation, validation.Metadata.ValidationTime)
	c.mu.Unlock()

	c.logger.Info("Quality validation completed",
		"session_id", c.sessionID,
		"overall_score", validation.OverallScore,
		"passed", validation.Passed,
		"improvements", len(validation.Improvements),
	)

	return validation, nil
}

// runModulePass scores each result concurrently, preserving input order in
// the returned checks. Unknown modules contribute nothing.
func (c *Coordinator) runModulePass(ctx context.Context, results []writing.ModuleResult) ([]QualityCheck, error) {
	slots := make([]*QualityCheck, len(results))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.limits.MaxConcurrentModules)

	for i, result := range results {
		i, result := i, result
		std, ok := c.standards.Lookup(result.Module)
		if !ok {
			c.logger.Debug("No standard registered, skipping module",
				"module", result.Module,
			)
			continue
		}
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			check, err := c.validator.validate(result, std)
			if err != nil {
				c.logger.Warn("Module scoring failed, recording failed check",
					"module", result.Module,
					"error", err,
				)
				check = failedModuleCheck(result.Module, err)
			}
			slots[i] = &check
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("module validation pass: %w", err)
	}

	checks := make([]QualityCheck, 0, len(results))
	for _, slot := range slots {
		if slot != nil {
			checks = append(checks, *slot)
		}
	}
	return checks, nil
}

// failedModuleCheck converts a scoring error into a failed check so the rest
// of the batch keeps going.
func failedModuleCheck(module writing.ModuleKind, err error) QualityCheck {
	return QualityCheck{
		Module:    module,
		CheckType: CheckModuleValidation,
		Passed:    false,
		Score:     0,
		Issues:    []string{err.Error()},
		Suggestions: []string{
			fmt.Sprintf("re-run %s and validate its output contract", module),
		},
		Metadata: map[string]interface{}{"error": err.Error()},
	}
}

// aggregate folds all checks into the batch verdict.
func (c *Coordinator) aggregate(checks []QualityCheck, threshold float64) *QualityValidation {
	validation := &QualityValidation{
		ModuleScores:      make(map[writing.ModuleKind]float64),
		ValidationDetails: checks,
	}

	var sum float64
	var counted int
	for _, check := range checks {
		if check.Score > 0 {
			sum += check.Score
			counted++
		}
		for _, m := range check.Touches() {
			if prev, ok := validation.ModuleScores[m]; ok {
				// Midpoint fold, not a true moving average: the latest
				// check weighs as much as all earlier ones combined.
				validation.ModuleScores[m] = (prev + check.Score) / 2
			} else {
				validation.ModuleScores[m] = check.Score
			}
		}
	}
	if counted > 0 {
		validation.OverallScore = sum / float64(counted)
	}
	validation.Passed = validation.OverallScore >= threshold

	validation.Improvements = deriveImprovements(checks)
	return validation
}

// maxImprovements caps the suggestion list per validation.
const maxImprovements = 10

// deriveImprovements turns check remediation text into prioritized
// suggestions: every failed check contributes, as does any passed check that
// scored under 0.9.
func deriveImprovements(checks []QualityCheck) []ImprovementSuggestion {
	var out []ImprovementSuggestion
	for _, check := range checks {
		if check.Passed && check.Score >= 0.9 {
			continue
		}

		priority := PriorityMedium
		impact := 0.1
		effort := "low"
		if !check.Passed {
			priority = PriorityHigh
			impact = 0.3
			effort = "medium"
		}

		module := check.Module
		if module == "" && len(check.Modules) > 0 {
			module = check.Modules[0]
		}

		for _, text := range check.Suggestions {
			out = append(out, ImprovementSuggestion{
				Module:          module,
				Suggestion:      text,
				Priority:        priority,
				EstimatedImpact: impact,
				Implementation:  fmt.Sprintf("regenerate %s output with adjusted parameters", module),
				Effort:          effort,
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority.Rank() != out[j].Priority.Rank() {
			return out[i].Priority.Rank() > out[j].Priority.Rank()
		}
		return out[i].EstimatedImpact > out[j].EstimatedImpact
	})

	if len(out) > maxImprovements {
		out = out[:maxImprovements]
	}
	return out
}

// Metrics returns a copy of the running metrics.
func (c *Coordinator) Metrics() Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history.metrics
}

// History returns a copy of the bounded validation history, oldest first.
func (c *Coordinator) History() []QualityValidation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history.snapshot()
}
