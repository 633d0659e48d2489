package report

import (
	"math"
	"testing"

	"impulse-sim/internal/waveform"
)

func TestIsStandard(t *testing.T) {
	cases := []struct {
		value, target float64
		want          bool
	}{
		{1.2, 1.2, true},
		{1.55, 1.2, true},
		{0.85, 1.2, true},
		{1.6, 1.2, false},
		{0, 1.2, false},
		{60, 50, true},
		{66, 50, false},
	}
	for _, tc := range cases {
		if got := IsStandard(tc.value, tc.target, DefaultTolerance); got != tc.want {
			t.Errorf("IsStandard(%v, %v) = %v, want %v", tc.value, tc.target, got, tc.want)
		}
	}
}

// The band is inclusive, compared in float64 without rounding.
func TestIsStandardBoundary(t *testing.T) {
	cases := []struct {
		value, target float64
		want          bool
	}{
		{65, 50, true},
		{35, 50, true},
		{0.84, 1.2, true},
		// |1.56-1.2|/1.2 evaluates to 0.30000000000000004.
		{1.56, 1.2, false},
	}
	for _, tc := range cases {
		if got := IsStandard(tc.value, tc.target, DefaultTolerance); got != tc.want {
			t.Errorf("IsStandard(%v, %v) = %v, want %v", tc.value, tc.target, got, tc.want)
		}
	}
}

func TestClassifySimulatedRuns(t *testing.T) {
	std, err := waveform.Simulate(waveform.Parameters{Stages: 6, ChargingVoltage: 100, StageCapacitance: 100, LoadCapacitance: 2000, FrontResistor: 300, TailResistor: 4000})
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if c := Classify(std.Result); !c.Standard() || c.Label() != "standard" {
		t.Errorf("expected standard classification, got %+v for %+v", c, std.Result)
	}

	ref, err := waveform.Simulate(waveform.DefaultParameters())
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	c := Classify(ref.Result)
	if c.FrontStandard || c.TailStandard || c.Label() != "non-standard" {
		t.Errorf("expected non-standard classification, got %+v for %+v", c, ref.Result)
	}
}

func TestEfficiency(t *testing.T) {
	p := waveform.DefaultParameters()
	got := Efficiency(p, waveform.Result{PeakVoltage: 360})
	if math.Abs(got-0.9) > 1e-12 {
		t.Fatalf("efficiency = %v, want 0.9", got)
	}
	if Efficiency(waveform.Parameters{}, waveform.Result{PeakVoltage: 1}) != 0 {
		t.Fatalf("expected 0 efficiency without charging voltage")
	}
}

func TestCards(t *testing.T) {
	cards := Cards(waveform.Result{PeakVoltage: 398.123, FrontTime: 1.3, TailTime: 80})
	if len(cards) != 3 {
		t.Fatalf("expected 3 cards, got %d", len(cards))
	}
	if cards[0].Value != "398.12" || cards[0].Unit != "kV" || cards[0].TargetLabel() != "" {
		t.Errorf("unexpected peak card %+v", cards[0])
	}
	if cards[1].Standard == nil || !*cards[1].Standard || cards[1].TargetLabel() != "Std: 1.2 µs" {
		t.Errorf("unexpected front card %+v", cards[1])
	}
	if cards[2].Standard == nil || *cards[2].Standard || cards[2].TargetLabel() != "Std: 50 µs" {
		t.Errorf("unexpected tail card %+v", cards[2])
	}
}
