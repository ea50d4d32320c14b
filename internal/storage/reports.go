package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/vampirenirmal/arbiter/pkg/conflict"
	"github.com/vampirenirmal/arbiter/pkg/quality"
)

// ReportWriter serializes engine output into a Store as indented JSON.
// File names carry a timestamp plus a short run identifier so successive
// runs never collide.
type ReportWriter struct {
	store Store
	now   func() time.Time
}

func NewReportWriter(store Store) *ReportWriter {
	return &ReportWriter{store: store, now: time.Now}
}

// WriteValidation persists one validation verdict and returns its relative
// path within the store.
func (w *ReportWriter) WriteValidation(ctx context.Context, validation *quality.QualityValidation) (string, error) {
	path := reportPath("validations", validation.ID, w.now())
	if err := w.writeJSON(ctx, path, validation); err != nil {
		return "", fmt.Errorf("persisting validation %s: %w", validation.ID, err)
	}
	return path, nil
}

// WriteResolutions persists one resolution batch and returns its relative
// path within the store. The batch identifier is taken from the first
// resolution's metadata.
func (w *ReportWriter) WriteResolutions(ctx context.Context, resolutions []conflict.ConflictResolution) (string, error) {
	if len(resolutions) == 0 {
		return "", fmt.Errorf("empty resolution batch")
	}

	path := reportPath("resolutions", resolutions[0].Metadata.BatchID, w.now())
	if err := w.writeJSON(ctx, path, resolutions); err != nil {
		return "", fmt.Errorf("persisting resolution batch: %w", err)
	}
	return path, nil
}

func (w *ReportWriter) writeJSON(ctx context.Context, path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return w.store.Save(ctx, path, data)
}

// reportPath builds reports/<kind>/<2006-01-02_1504>_<shortID>.json.
func reportPath(kind, id string, at time.Time) string {
	return filepath.Join("reports", kind,
		fmt.Sprintf("%s_%s.json", at.Format("2006-01-02_1504"), shortID(id)))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	if id == "" {
		return "run"
	}
	return id
}
