package waveform

import (
	"errors"
	"math"
	"math/cmplx"
	"sort"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func TestSimulateReferenceScenario(t *testing.T) {
	p := DefaultParameters()
	out, err := Simulate(p)
	if err != nil {
		t.Fatalf("Simulate returned error: %v", err)
	}
	r := out.Result
	if r.PeakVoltage <= 0 || r.PeakVoltage >= p.TotalChargingVoltage() {
		t.Errorf("peak %.3f kV not below total charging voltage %.0f kV", r.PeakVoltage, p.TotalChargingVoltage())
	}
	if math.Abs(r.PeakVoltage-399.03) > 0.05 {
		t.Errorf("peak = %.4f kV, want ~399.03", r.PeakVoltage)
	}
	// 10 % and 90 % are both reached on the first sample after t = 0.
	if r.FrontTime != 0 {
		t.Errorf("front time = %v, want 0 at 2.5 µs resolution", r.FrontTime)
	}
	if r.TailTime < 340 || r.TailTime > 360 {
		t.Errorf("tail time = %v µs, want ~350", r.TailTime)
	}
}

func TestSimulateStandardLightningImpulse(t *testing.T) {
	p := Parameters{Stages: 6, ChargingVoltage: 100, StageCapacitance: 100, LoadCapacitance: 2000, FrontResistor: 300, TailResistor: 4000}
	out, err := Simulate(p)
	if err != nil {
		t.Fatalf("Simulate returned error: %v", err)
	}
	r := out.Result
	if math.Abs(r.FrontTime-1.25) > 1e-6 {
		t.Errorf("front time = %v, want 1.25", r.FrontTime)
	}
	if math.Abs(r.TailTime-49.6667) > 1e-3 {
		t.Errorf("tail time = %v, want ~49.667", r.TailTime)
	}
	if math.Abs(r.PeakVoltage-574.87) > 0.05 {
		t.Errorf("peak = %v, want ~574.87", r.PeakVoltage)
	}
}

func TestSimulateDeterministic(t *testing.T) {
	p := Parameters{Stages: 3, ChargingVoltage: 80, StageCapacitance: 750, LoadCapacitance: 1200, FrontResistor: 40, TailResistor: 2500}
	a, err := Simulate(p)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	b, err := Simulate(p)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if a.Result != b.Result {
		t.Fatalf("results differ: %+v vs %+v", a.Result, b.Result)
	}
	for i := range a.Waveform {
		if a.Waveform[i] != b.Waveform[i] {
			t.Fatalf("sample %d differs: %+v vs %+v", i, a.Waveform[i], b.Waveform[i])
		}
	}
}

func TestSimulateSampling(t *testing.T) {
	cases := []struct {
		name  string
		p     Parameters
		endUS float64
	}{
		{"reference", DefaultParameters(), 5000},
		{"short tail uses minimum window", Parameters{Stages: 1, ChargingVoltage: 100, StageCapacitance: 10, LoadCapacitance: 100, FrontResistor: 10, TailResistor: 100}, MinWindowUS},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := Simulate(tc.p)
			if err != nil {
				t.Fatalf("Simulate: %v", err)
			}
			if tc.endUS == MinWindowUS {
				alpha, _, err := Roots(tc.p)
				if err != nil || TailConstants/alpha*1e6 >= MinWindowUS {
					t.Fatalf("case must have a tail window below the minimum: alpha=%v err=%v", alpha, err)
				}
			}
			w := out.Waveform
			if len(w) != SampleCount {
				t.Fatalf("got %d samples, want %d", len(w), SampleCount)
			}
			if w[0].Time != 0 {
				t.Errorf("first sample at %v, want 0", w[0].Time)
			}
			if math.Abs(w[len(w)-1].Time-tc.endUS) > 1e-9*tc.endUS {
				t.Errorf("last sample at %v, want %v", w[len(w)-1].Time, tc.endUS)
			}
			times := make([]float64, len(w))
			for i, pt := range w {
				times[i] = pt.Time
				if i > 0 && pt.Time <= w[i-1].Time {
					t.Fatalf("time not strictly increasing at %d: %v <= %v", i, pt.Time, w[i-1].Time)
				}
				if math.IsNaN(pt.Voltage) || math.IsInf(pt.Voltage, 0) {
					t.Fatalf("sample %d not finite: %v", i, pt.Voltage)
				}
			}
			if !sort.Float64sAreSorted(times) {
				t.Fatalf("times not sorted")
			}
		})
	}
}

func TestSimulatePeakConsistency(t *testing.T) {
	for _, p := range []Parameters{
		DefaultParameters(),
		{Stages: 6, ChargingVoltage: 100, StageCapacitance: 100, LoadCapacitance: 2000, FrontResistor: 300, TailResistor: 4000},
		{Stages: 1, ChargingVoltage: 100, StageCapacitance: 1000, LoadCapacitance: 1, FrontResistor: 400, TailResistor: 100},
	} {
		out, err := Simulate(p)
		if err != nil {
			t.Fatalf("Simulate(%+v): %v", p, err)
		}
		volts := make([]float64, len(out.Waveform))
		for i, pt := range out.Waveform {
			volts[i] = pt.Voltage
		}
		max := floats.Max(volts)
		peak := out.Result.PeakVoltage
		if max > peak*(1+1e-12) {
			t.Errorf("sampled max %.6f exceeds analytic peak %.6f", max, peak)
		}
		if (peak-max)/peak > 0.01 {
			t.Errorf("sampled max %.6f too far below analytic peak %.6f", max, peak)
		}
	}
}

func TestSimulateInvalidComponentValues(t *testing.T) {
	base := DefaultParameters()
	cases := []struct {
		name   string
		mutate func(*Parameters)
	}{
		{"zero stages", func(p *Parameters) { p.Stages = 0 }},
		{"negative stages", func(p *Parameters) { p.Stages = -2 }},
		{"zero stage capacitance", func(p *Parameters) { p.StageCapacitance = 0 }},
		{"negative load capacitance", func(p *Parameters) { p.LoadCapacitance = -100 }},
		{"zero front resistor", func(p *Parameters) { p.FrontResistor = 0 }},
		{"negative tail resistor", func(p *Parameters) { p.TailResistor = -1 }},
		{"NaN tail resistor", func(p *Parameters) { p.TailResistor = math.NaN() }},
		{"infinite load capacitance", func(p *Parameters) { p.LoadCapacitance = math.Inf(1) }},
		{"zero charging voltage", func(p *Parameters) { p.ChargingVoltage = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := base
			tc.mutate(&p)
			out, err := Simulate(p)
			if out != nil {
				t.Fatalf("expected no output, got %d samples", len(out.Waveform))
			}
			if !errors.Is(err, ErrInvalidComponentValues) {
				t.Fatalf("expected InvalidComponentValues, got %v", err)
			}
			if err := Validate(p); !errors.Is(err, ErrInvalidComponentValues) {
				t.Fatalf("Validate: expected InvalidComponentValues, got %v", err)
			}
		})
	}
}

func TestDecayRootsOscillatory(t *testing.T) {
	_, _, err := decayRoots(1, 1)
	if !errors.Is(err, ErrOscillatoryCircuit) {
		t.Fatalf("expected OscillatoryCircuit, got %v", err)
	}
	if kind, ok := KindOf(err); !ok || kind != OscillatoryCircuit {
		t.Fatalf("KindOf = %v, %v", kind, ok)
	}
}

func TestDecayRootsDegenerate(t *testing.T) {
	// a² = 4b exactly: one repeated root.
	_, _, err := decayRoots(4, 4)
	if !errors.Is(err, ErrInvalidWaveformShape) {
		t.Fatalf("expected InvalidWaveformShape, got %v", err)
	}
}

func TestSimulateCriticalDamping(t *testing.T) {
	// 1/(R1·C2) == 1/(R2·C1): the discriminant is zero up to rounding, so the
	// run either fails with a domain error or stays finite.
	p := Parameters{Stages: 1, ChargingVoltage: 100, StageCapacitance: 1, LoadCapacitance: 1000, FrontResistor: 1, TailResistor: 1}
	out, err := Simulate(p)
	if err != nil {
		if out != nil {
			t.Fatalf("expected no output alongside error")
		}
		kind, ok := KindOf(err)
		if !ok || (kind != OscillatoryCircuit && kind != InvalidWaveformShape) {
			t.Fatalf("expected OscillatoryCircuit or InvalidWaveformShape, got %v", err)
		}
		return
	}
	for _, pt := range out.Waveform {
		if math.IsNaN(pt.Voltage) || math.IsInf(pt.Voltage, 0) {
			t.Fatalf("non-finite sample %+v", pt)
		}
	}
}

func TestSimulateNearCriticalDampingFinite(t *testing.T) {
	p := Parameters{Stages: 1, ChargingVoltage: 100, StageCapacitance: 1000, LoadCapacitance: 1e6, FrontResistor: 1, TailResistor: 0.999}
	out, err := Simulate(p)
	if err != nil {
		if !errors.Is(err, ErrInvalidWaveformShape) {
			t.Fatalf("expected finite result or InvalidWaveformShape, got %v", err)
		}
		return
	}
	r := out.Result
	for _, v := range []float64{r.PeakVoltage, r.FrontTime, r.TailTime} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("non-finite metric in %+v", r)
		}
	}
}

func TestThresholdsFirstCrossingWins(t *testing.T) {
	th := thresholds{vPeak: 100, tPeak: 2e-6}
	samples := []Point{
		{0, 0}, {1, 20}, {2, 100}, {3, 40}, {4, 95}, {5, 30},
	}
	for _, s := range samples {
		th.observe(s.Time, s.Voltage)
	}
	r := th.result()
	if r.FrontTime != 1.25*(2-1) {
		t.Errorf("front time = %v, want 1.25", r.FrontTime)
	}
	if r.TailTime != 3 {
		t.Errorf("tail time = %v, want 3 (first dip after peak)", r.TailTime)
	}
}

func TestThresholdsTailNotReached(t *testing.T) {
	th := thresholds{vPeak: 100, tPeak: 2e-6}
	for i, v := range []float64{0, 50, 100, 90, 80, 70} {
		th.observe(float64(i), v)
	}
	if r := th.result(); r.TailTime != 0 {
		t.Fatalf("tail time = %v, want 0 when 50 %% is never reached", r.TailTime)
	}
}

func TestRootsMatchStateMatrixEigenvalues(t *testing.T) {
	p := DefaultParameters()
	c, err := toCircuit(p)
	if err != nil {
		t.Fatalf("toCircuit: %v", err)
	}
	a, b := c.characteristic()
	alpha, beta, err := Roots(p)
	if err != nil {
		t.Fatalf("Roots: %v", err)
	}
	if alpha >= beta {
		t.Fatalf("alpha %v not below beta %v", alpha, beta)
	}

	// Companion matrix of s² + a·s + b has eigenvalues -alpha and -beta.
	m := mat.NewDense(2, 2, []float64{0, 1, -b, -a})
	var eig mat.Eigen
	if ok := eig.Factorize(m, mat.EigenNone); !ok {
		t.Fatalf("eigen decomposition failed")
	}
	vals := eig.Values(nil)
	got := []float64{-real(vals[0]), -real(vals[1])}
	sort.Float64s(got)
	for i, v := range vals {
		if math.Abs(imag(v)) > 1e-9*cmplx.Abs(v) {
			t.Fatalf("eigenvalue %d has imaginary part: %v", i, v)
		}
	}
	if math.Abs(got[0]-alpha)/alpha > 1e-6 {
		t.Errorf("slow root %v, eigen %v", alpha, got[0])
	}
	if math.Abs(got[1]-beta)/beta > 1e-9 {
		t.Errorf("fast root %v, eigen %v", beta, got[1])
	}
}
