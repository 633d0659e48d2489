// Package report turns simulation results into the figures shown to users.
// The standard-shape check here is a display heuristic; the engine never uses it.
package report

import (
	"fmt"
	"math"

	"impulse-sim/internal/waveform"
)

// Reference lightning impulse shape (1.2/50 µs) and the tolerance used for display.
const (
	StandardFrontTime = 1.2
	StandardTailTime  = 50.0
	DefaultTolerance  = 0.3
)

// IsStandard reports whether value lies within tolerance (relative) of target.
func IsStandard(value, target, tolerance float64) bool {
	return math.Abs(value-target)/target <= tolerance
}

// Classification flags front and tail time against the standard shape.
type Classification struct {
	FrontStandard bool `json:"front_standard"`
	TailStandard  bool `json:"tail_standard"`
}

// Standard reports whether both metrics are within tolerance.
func (c Classification) Standard() bool {
	return c.FrontStandard && c.TailStandard
}

// Label is the short word shown next to a run.
func (c Classification) Label() string {
	if c.Standard() {
		return "standard"
	}
	return "non-standard"
}

// Classify compares r against the 1.2/50 µs shape with DefaultTolerance.
func Classify(r waveform.Result) Classification {
	return Classification{
		FrontStandard: IsStandard(r.FrontTime, StandardFrontTime, DefaultTolerance),
		TailStandard:  IsStandard(r.TailTime, StandardTailTime, DefaultTolerance),
	}
}

// Efficiency is the ratio of peak output voltage to total charging voltage.
func Efficiency(p waveform.Parameters, r waveform.Result) float64 {
	total := p.TotalChargingVoltage()
	if total <= 0 {
		return 0
	}
	return r.PeakVoltage / total
}

// Card is one metric tile.
type Card struct {
	Title    string
	Value    string
	Unit     string
	Target   *float64
	Standard *bool
}

// Cards returns the peak, front and tail tiles in display order.
func Cards(r waveform.Result) []Card {
	c := Classify(r)
	front, tail := StandardFrontTime, StandardTailTime
	return []Card{
		{Title: "Peak Voltage", Value: fmt.Sprintf("%.2f", r.PeakVoltage), Unit: "kV"},
		{Title: "Front Time (T1)", Value: fmt.Sprintf("%.2f", r.FrontTime), Unit: "µs", Target: &front, Standard: &c.FrontStandard},
		{Title: "Tail Time (T2)", Value: fmt.Sprintf("%.2f", r.TailTime), Unit: "µs", Target: &tail, Standard: &c.TailStandard},
	}
}

// TargetLabel renders the "Std: 1.2 µs" hint of a card, or "" when the card has no target.
func (c Card) TargetLabel() string {
	if c.Target == nil {
		return ""
	}
	return fmt.Sprintf("Std: %g %s", *c.Target, c.Unit)
}
