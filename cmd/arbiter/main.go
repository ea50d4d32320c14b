// Command arbiter runs the quality coordinator and the conflict resolver over
// a batch described in a JSON input file, and writes the resulting reports to
// an output directory.
//
// The input file carries module results (quality metrics, no payloads),
// an optional writing goal, detected conflicts, and the writing context:
//
//	{
//	  "results":   [{"module": "emotionArc", "quality_metrics": {"emotional_depth": 0.86}}],
//	  "goal":      {"genre": "mystery", "constraints": {"quality_threshold": 0.8}},
//	  "conflicts": [{"id": "c-001", "type": "style_voice_conflict", "modules": ["styleProfile", "emotionArc"]}],
//	  "context":   {"writing_phase": "revision", "current_mode": "HYBRID"}
//	}
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/vampirenirmal/arbiter/internal/config"
	"github.com/vampirenirmal/arbiter/internal/storage"
	"github.com/vampirenirmal/arbiter/pkg/conflict"
	"github.com/vampirenirmal/arbiter/pkg/quality"
	"github.com/vampirenirmal/arbiter/pkg/writing"
)

type batchInput struct {
	Results   []writing.ModuleResult        `json:"results"`
	Goal      writing.WritingGoal           `json:"goal"`
	Conflicts []writing.InterModuleConflict `json:"conflicts"`
	Context   writing.WritingContext        `json:"context"`
}

func main() {
	var (
		inputPath  = flag.String("input", "", "path to the batch input JSON file (required)")
		configPath = flag.String("config", "", "path to the config file (defaults to ARBITER_CONFIG or built-ins)")
		outputDir  = flag.String("out", "arbiter-output", "directory for report output")
		verbose    = flag.Bool("v", false, "enable debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if *inputPath == "" {
		fmt.Fprintln(os.Stderr, "usage: arbiter -input batch.json [-config arbiter.yaml] [-out dir]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	if err := run(context.Background(), logger, *inputPath, *configPath, *outputDir); err != nil {
		logger.Error("Run failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, inputPath, configPath, outputDir string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	var input batchInput
	if err := json.Unmarshal(data, &input); err != nil {
		return fmt.Errorf("parsing input: %w", err)
	}
	if len(input.Results) == 0 && len(input.Conflicts) == 0 {
		return fmt.Errorf("input has neither results nor conflicts")
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	reports := storage.NewReportWriter(storage.NewFileSystem(outputDir))

	if len(input.Results) > 0 {
		if err := runValidation(ctx, logger, cfg, reports, input); err != nil {
			return err
		}
	}
	if len(input.Conflicts) > 0 {
		if err := runResolution(ctx, logger, cfg, reports, input); err != nil {
			return err
		}
	}
	return nil
}

func runValidation(ctx context.Context, logger *slog.Logger, cfg *config.Config, reports *storage.ReportWriter, input batchInput) error {
	standards, err := quality.NewStandardsRegistry(cfg.Quality.StandardOverrides)
	if err != nil {
		return fmt.Errorf("building standards registry: %w", err)
	}

	coordinator := quality.NewCoordinator(standards,
		quality.WithLogger(logger),
		quality.WithLimits(cfg.Quality.Limits),
	)

	validation, err := coordinator.ValidateResults(ctx, input.Results, input.Goal)
	if err != nil {
		return fmt.Errorf("validating results: %w", err)
	}

	path, err := reports.WriteValidation(ctx, validation)
	if err != nil {
		return err
	}

	fmt.Printf("validation %s: score %.2f, passed=%v (%d checks, %d improvements)\n",
		validation.ID, validation.OverallScore, validation.Passed,
		len(validation.ValidationDetails), len(validation.Improvements))
	for module, score := range validation.ModuleScores {
		fmt.Printf("  %-20s %.2f\n", module, score)
	}
	fmt.Printf("  report: %s\n", path)
	return nil
}

func runResolution(ctx context.Context, logger *slog.Logger, cfg *config.Config, reports *storage.ReportWriter, input batchInput) error {
	strategies, err := conflict.NewStrategyRegistry()
	if err != nil {
		return fmt.Errorf("building strategy registry: %w", err)
	}

	prefs := conflict.NewRateLimitedPreferenceEngine(
		conflict.NewHeuristicPreferenceEngine(conflict.UserPreferences{}),
		cfg.Resolution.PreferenceRateLimit.RequestsPerSecond,
		cfg.Resolution.PreferenceRateLimit.Burst,
	)

	resolver := conflict.NewResolver(strategies, prefs, conflict.NewStructuralCoherenceAnalyzer(),
		conflict.WithLogger(logger),
		conflict.WithLimits(cfg.Resolution.Limits.ToResolverLimits()),
	)

	resolutions, err := resolver.ResolveConflicts(ctx, input.Conflicts, input.Context)
	if err != nil {
		return fmt.Errorf("resolving conflicts: %w", err)
	}

	path, err := reports.WriteResolutions(ctx, resolutions)
	if err != nil {
		return err
	}

	for _, res := range resolutions {
		marker := ""
		if res.IsFallback() {
			marker = " [fallback]"
		}
		fmt.Printf("conflict %s: %s via %s, confidence %.2f%s\n",
			res.ConflictID, res.Resolution.Type, res.Metadata.StrategyUsed, res.Confidence, marker)
	}
	metrics := resolver.Metrics()
	fmt.Printf("  resolved %d conflicts, success rate %.2f\n",
		metrics.TotalConflictsResolved, metrics.SuccessRate)
	fmt.Printf("  report: %s\n", path)
	return nil
}
