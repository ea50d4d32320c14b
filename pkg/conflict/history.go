package conflict

import (
	"time"
)

// DefaultHistoryLimit bounds the resolver's resolution history.
const DefaultHistoryLimit = 1000

// Metrics are the resolver's running accumulators. The success rate is an
// exponentially weighted per-batch rate (0.9 old / 0.1 new), folded once per
// completed batch rather than once per conflict.
type Metrics struct {
	TotalConflictsResolved int           `json:"total_conflicts_resolved"`
	TotalBatches           int           `json:"total_batches"`
	AverageResolutionTime  time.Duration `json:"average_resolution_time"`
	SuccessRate            float64       `json:"success_rate"`
}

// resolutionHistory is the bounded FIFO record of past resolutions plus the
// running metrics. Callers must hold the owning resolver's lock.
type resolutionHistory struct {
	limit   int
	entries []ConflictResolution
	metrics Metrics
}

func newResolutionHistory(limit int) *resolutionHistory {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &resolutionHistory{limit: limit}
}

// recordBatch appends a completed batch in order and folds it into the
// running metrics.
func (h *resolutionHistory) recordBatch(resolutions []ConflictResolution) {
	if len(resolutions) == 0 {
		return
	}

	succeeded := 0
	for _, r := range resolutions {
		h.metrics.TotalConflictsResolved++
		n := time.Duration(h.metrics.TotalConflictsResolved)
		h.metrics.AverageResolutionTime =
			(h.metrics.AverageResolutionTime*(n-1) + r.Metadata.ResolutionTime) / n

		if !r.IsFallback() {
			succeeded++
		}

		h.entries = append(h.entries, r)
	}

	batchRate := float64(succeeded) / float64(len(resolutions))
	if h.metrics.TotalBatches == 0 {
		h.metrics.SuccessRate = batchRate
	} else {
		h.metrics.SuccessRate = 0.9*h.metrics.SuccessRate + 0.1*batchRate
	}
	h.metrics.TotalBatches++

	if overflow := len(h.entries) - h.limit; overflow > 0 {
		h.entries = h.entries[overflow:]
	}
}

// snapshot returns a copy of the history entries, oldest first.
func (h *resolutionHistory) snapshot() []ConflictResolution {
	out := make([]ConflictResolution, len(h.entries))
	copy(out, h.entries)
	return out
}
