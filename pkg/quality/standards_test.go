package quality

import (
	"testing"

	"github.com/vampirenirmal/arbiter/pkg/writing"
)

func TestDefaultStandardsInvariants(t *testing.T) {
	reg, err := NewStandardsRegistry(nil)
	if err != nil {
		t.Fatalf("building registry: %v", err)
	}

	for _, module := range writing.KnownModules {
		std, ok := reg.Lookup(module)
		if !ok {
			t.Fatalf("no standard registered for %s", module)
		}
		if std.MinimumScore > std.TargetScore {
			t.Errorf("%s: minimum %.2f exceeds target %.2f", module, std.MinimumScore, std.TargetScore)
		}
		if std.MinimumScore < 0 || std.MinimumScore > 1 || std.TargetScore < 0 || std.TargetScore > 1 {
			t.Errorf("%s: scores out of range: min=%.2f target=%.2f", module, std.MinimumScore, std.TargetScore)
		}
		if len(std.QualityMetrics) == 0 {
			t.Errorf("%s: no quality metrics declared", module)
		}
	}
}

func TestStandardsRegistryOverrides(t *testing.T) {
	min := 0.6
	target := 0.95

	reg, err := NewStandardsRegistry(map[writing.ModuleKind]StandardOverride{
		writing.ModuleEmotionArc: {MinimumScore: &min, TargetScore: &target},
	})
	if err != nil {
		t.Fatalf("building registry: %v", err)
	}

	std, _ := reg.Lookup(writing.ModuleEmotionArc)
	if std.MinimumScore != 0.6 || std.TargetScore != 0.95 {
		t.Errorf("override not applied: min=%.2f target=%.2f", std.MinimumScore, std.TargetScore)
	}
}

func TestStandardsRegistryRejectsInvertedBounds(t *testing.T) {
	min := 0.9
	target := 0.5

	_, err := NewStandardsRegistry(map[writing.ModuleKind]StandardOverride{
		writing.ModulePlotStructure: {MinimumScore: &min, TargetScore: &target},
	})
	if err == nil {
		t.Fatal("expected error for minimum > target")
	}
}

func TestLookupUnknownModule(t *testing.T) {
	reg, err := NewStandardsRegistry(nil)
	if err != nil {
		t.Fatalf("building registry: %v", err)
	}

	if _, ok := reg.Lookup(writing.ModuleKind("weatherReport")); ok {
		t.Error("lookup of unregistered module should fail")
	}
	if _, ok := reg.Lookup(writing.ModuleUnknown); ok {
		t.Error("unknown module kind must have no standard")
	}
}

func TestThresholdDefault(t *testing.T) {
	std := QualityStandard{
		CriticalThresholds: map[string]float64{"emotional_depth": 0.7},
	}

	if got := std.Threshold("emotional_depth"); got != 0.7 {
		t.Errorf("explicit threshold: got %.2f, want 0.7", got)
	}
	if got := std.Threshold("reader_engagement"); got != DefaultCriticalThreshold {
		t.Errorf("default threshold: got %.2f, want %.2f", got, DefaultCriticalThreshold)
	}
}
