package quality

import (
	"time"
)

// DefaultHistoryLimit bounds the coordinator's validation history.
const DefaultHistoryLimit = 100

// Metrics are the coordinator's running accumulators. The improvement and
// critical-issue rates are exponentially weighted (0.9 old / 0.1 new), so
// recent batches dominate and old history decays.
type Metrics struct {
	TotalValidations       int           `json:"total_validations"`
	AverageValidationTime  time.Duration `json:"average_validation_time"`
	QualityImprovementRate float64       `json:"quality_improvement_rate"`
	CriticalIssueRate      float64       `json:"critical_issue_rate"`
}

// validationHistory is the bounded FIFO record of past validations plus the
// running metrics. Callers must hold the owning coordinator's lock.
type validationHistory struct {
	limit   int
	entries []QualityValidation
	metrics Metrics
}

func newValidationHistory(limit int) *validationHistory {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &validationHistory{limit: limit}
}

// record appends a validation and folds it into the running metrics. The
// improvement rate compares against the immediately preceding entry, so
// append and metric update happen together.
func (h *validationHistory) record(v QualityValidation, elapsed time.Duration) {
	if n := len(h.entries); n > 0 {
		prev := h.entries[n-1].OverallScore
		delta := v.OverallScore - prev
		h.metrics.QualityImprovementRate = 0.9*h.metrics.QualityImprovementRate + 0.1*delta
	}

	failed := 0.0
	if !v.Passed {
		failed = 1.0
	}
	h.metrics.CriticalIssueRate = 0.9*h.metrics.CriticalIssueRate + 0.1*failed

	h.metrics.TotalValidations++
	n := time.Duration(h.metrics.TotalValidations)
	h.metrics.AverageValidationTime = (h.metrics.AverageValidationTime*(n-1) + elapsed) / n

	h.entries = append(h.entries, v)
	if len(h.entries) > h.limit {
		h.entries = h.entries[1:]
	}
}

// snapshot returns a copy of the history entries, oldest first.
func (h *validationHistory) snapshot() []QualityValidation {
	out := make([]QualityValidation, len(h.entries))
	copy(out, h.entries)
	return out
}
