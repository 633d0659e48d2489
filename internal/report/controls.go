package report

import (
	"fmt"
	"math"
	"strconv"

	"impulse-sim/internal/waveform"
)

// Control describes one adjustable parameter with its input range.
type Control struct {
	Key   string
	Label string
	Unit  string
	Min   float64
	Max   float64
	Step  float64
	get   func(waveform.Parameters) float64
	set   func(*waveform.Parameters, float64)
}

// Controls lists the parameters in display order with their slider ranges.
func Controls() []Control {
	return []Control{
		{Key: "stages", Label: "Number of Stages", Unit: "", Min: 1, Max: 20, Step: 1,
			get: func(p waveform.Parameters) float64 { return float64(p.Stages) },
			set: func(p *waveform.Parameters, v float64) { p.Stages = int(math.Round(v)) }},
		{Key: "charging_voltage_kv", Label: "Charging Voltage (per stage)", Unit: "kV", Min: 10, Max: 500, Step: 10,
			get: func(p waveform.Parameters) float64 { return p.ChargingVoltage },
			set: func(p *waveform.Parameters, v float64) { p.ChargingVoltage = v }},
		{Key: "stage_capacitance_nf", Label: "Stage Capacitance (C1)", Unit: "nF", Min: 10, Max: 2000, Step: 10,
			get: func(p waveform.Parameters) float64 { return p.StageCapacitance },
			set: func(p *waveform.Parameters, v float64) { p.StageCapacitance = v }},
		{Key: "load_capacitance_pf", Label: "Load Capacitance (C2)", Unit: "pF", Min: 100, Max: 10000, Step: 100,
			get: func(p waveform.Parameters) float64 { return p.LoadCapacitance },
			set: func(p *waveform.Parameters, v float64) { p.LoadCapacitance = v }},
		{Key: "front_resistor_ohm", Label: "Front Resistor (R1)", Unit: "Ω", Min: 1, Max: 500, Step: 1,
			get: func(p waveform.Parameters) float64 { return p.FrontResistor },
			set: func(p *waveform.Parameters, v float64) { p.FrontResistor = v }},
		{Key: "tail_resistor_ohm", Label: "Tail Resistor (R2)", Unit: "Ω", Min: 1000, Max: 10000, Step: 100,
			get: func(p waveform.Parameters) float64 { return p.TailResistor },
			set: func(p *waveform.Parameters, v float64) { p.TailResistor = v }},
	}
}

// Get reads the control's value from p.
func (c Control) Get(p waveform.Parameters) float64 { return c.get(p) }

// Set writes v into p without clamping.
func (c Control) Set(p *waveform.Parameters, v float64) { c.set(p, v) }

// Nudge moves the value by steps increments, clamped to [Min, Max].
func (c Control) Nudge(p *waveform.Parameters, steps int) {
	v := c.get(*p) + float64(steps)*c.Step
	c.set(p, math.Max(c.Min, math.Min(c.Max, v)))
}

// Format renders the current value with its unit.
func (c Control) Format(p waveform.Parameters) string {
	s := strconv.FormatFloat(c.get(p), 'f', -1, 64)
	if c.Unit == "" {
		return s
	}
	return s + " " + c.Unit
}

// ApplyValues sets every control whose key is present in lookup. Values that
// fail to parse are reported with the key that carried them.
func ApplyValues(p waveform.Parameters, lookup func(key string) (string, bool)) (waveform.Parameters, error) {
	for _, c := range Controls() {
		raw, ok := lookup(c.Key)
		if !ok || raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return p, fmt.Errorf("%s: %w", c.Key, err)
		}
		c.set(&p, v)
	}
	return p, nil
}
