package report

import (
	"testing"

	"impulse-sim/internal/waveform"
)

func TestControlsOrderAndRanges(t *testing.T) {
	cs := Controls()
	keys := []string{"stages", "charging_voltage_kv", "stage_capacitance_nf", "load_capacitance_pf", "front_resistor_ohm", "tail_resistor_ohm"}
	if len(cs) != len(keys) {
		t.Fatalf("expected %d controls, got %d", len(keys), len(cs))
	}
	p := waveform.DefaultParameters()
	for i, c := range cs {
		if c.Key != keys[i] {
			t.Errorf("control %d key = %s, want %s", i, c.Key, keys[i])
		}
		if v := c.Get(p); v < c.Min || v > c.Max {
			t.Errorf("default %s = %v outside [%v, %v]", c.Key, v, c.Min, c.Max)
		}
	}
}

func TestControlNudgeClamps(t *testing.T) {
	p := waveform.DefaultParameters()
	stages := Controls()[0]
	stages.Nudge(&p, 1)
	if p.Stages != 5 {
		t.Fatalf("stages = %d, want 5", p.Stages)
	}
	stages.Nudge(&p, 100)
	if p.Stages != 20 {
		t.Fatalf("stages = %d, want clamp at 20", p.Stages)
	}
	r2 := Controls()[5]
	r2.Nudge(&p, -1)
	if p.TailResistor != 3900 {
		t.Fatalf("tail resistor = %v, want 3900", p.TailResistor)
	}
	if got := r2.Format(p); got != "3900 Ω" {
		t.Fatalf("Format = %q", got)
	}
}

func TestApplyValues(t *testing.T) {
	vals := map[string]string{"stages": "6", "front_resistor_ohm": "300", "tail_resistor_ohm": ""}
	lookup := func(k string) (string, bool) { v, ok := vals[k]; return v, ok }
	p, err := ApplyValues(waveform.DefaultParameters(), lookup)
	if err != nil {
		t.Fatalf("ApplyValues: %v", err)
	}
	if p.Stages != 6 || p.FrontResistor != 300 || p.TailResistor != 4000 {
		t.Fatalf("unexpected params %+v", p)
	}
	vals["load_capacitance_pf"] = "lots"
	if _, err := ApplyValues(p, lookup); err == nil {
		t.Fatalf("expected parse error")
	}
}
