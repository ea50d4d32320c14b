package quality

import (
	"fmt"

	"github.com/vampirenirmal/arbiter/pkg/writing"
)

// moduleValidator scores one ModuleResult against its registered standard.
type moduleValidator struct {
	standards *StandardsRegistry
}

// validate scores a single module result. A metric missing from the result
// counts as 0. The check fails when the mean metric score falls below the
// standard's minimum. An out-of-range metric is a contract violation and is
// returned as an error for the coordinator to absorb.
func (v *moduleValidator) validate(result writing.ModuleResult, std QualityStandard) (QualityCheck, error) {
	check := QualityCheck{
		Module:    result.Module,
		CheckType: CheckModuleValidation,
		Metadata: map[string]interface{}{
			"minimum_score": std.MinimumScore,
			"target_score":  std.TargetScore,
		},
	}

	var total float64
	for _, metric := range std.QualityMetrics {
		value := result.Metric(metric)
		if value < 0 || value > 1 {
			return QualityCheck{}, &ModuleValidationError{
				Module: result.Module,
				Cause:  fmt.Errorf("metric %s=%v: %w", metric, value, ErrMetricOutOfRange),
			}
		}
		total += value

		threshold := std.Threshold(metric)
		if value < threshold {
			check.Issues = append(check.Issues,
				fmt.Sprintf("%s below critical threshold: %.2f < %.2f", metric, value, threshold))
			check.Suggestions = append(check.Suggestions,
				fmt.Sprintf("improve %s for %s (currently %.2f, needs %.2f)",
					metric, result.Module, value, threshold))
		}
	}

	if n := len(std.QualityMetrics); n > 0 {
		check.Score = total / float64(n)
	}
	check.Passed = check.Score >= std.MinimumScore

	if check.Score < std.TargetScore {
		check.Suggestions = append(check.Suggestions,
			fmt.Sprintf("raise overall %s quality toward target %.2f (currently %.2f)",
				result.Module, std.TargetScore, check.Score))
	}

	return check, nil
}
