// Analytic double-exponential impulse model and IEC 60060-1 front/tail metrics
package waveform

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

const (
	// SampleCount is the fixed number of waveform samples per run, both ends included.
	SampleCount = 2001
	// MinWindowUS is the shortest sampling window in µs.
	MinWindowUS = 200.0
	// TailConstants is the number of tail time constants the window always covers.
	TailConstants = 10.0
	// FrontTimeFactor scales the 10-90 % rise interval to the virtual front time.
	FrontTimeFactor = 1.25
)

// circuit is the lumped network in SI units.
type circuit struct {
	v0 float64 // total series-charged voltage, V
	c1 float64 // series generator capacitance, F
	c2 float64 // load capacitance, F
	r1 float64 // front resistor, Ω
	r2 float64 // tail resistor, Ω
}

func finitePositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

func toCircuit(p Parameters) (circuit, error) {
	if p.Stages < 1 {
		return circuit{}, newError(InvalidComponentValues, "stage count must be at least 1, got %d", p.Stages)
	}
	n := float64(p.Stages)
	c := circuit{
		v0: p.ChargingVoltage * 1e3 * n,
		c1: p.StageCapacitance * 1e-9 / n,
		c2: p.LoadCapacitance * 1e-12,
		r1: p.FrontResistor,
		r2: p.TailResistor,
	}
	if !finitePositive(c.c1) || !finitePositive(c.c2) || !finitePositive(c.r1) || !finitePositive(c.r2) {
		return circuit{}, newError(InvalidComponentValues, "component values must be positive")
	}
	if !finitePositive(c.v0) {
		return circuit{}, newError(InvalidComponentValues, "charging voltage must be positive")
	}
	return c, nil
}

// Validate reports whether p describes a physically valid set of components.
func Validate(p Parameters) error {
	_, err := toCircuit(p)
	return err
}

// characteristic returns the coefficients of s² + a·s + b for the network.
func (c circuit) characteristic() (a, b float64) {
	a = 1/(c.r1*c.c2) + 1/(c.r2*c.c1)
	b = 1 / (c.r1 * c.r2 * c.c1 * c.c2)
	return a, b
}

// decayRoots solves the characteristic equation. alpha is the slow tail rate, beta the fast front rate.
func decayRoots(a, b float64) (alpha, beta float64, err error) {
	disc := a*a - 4*b
	if disc < 0 {
		return 0, 0, newError(OscillatoryCircuit, "oscillatory circuit detected: parameters result in a non-standard impulse; increase resistance or decrease capacitance")
	}
	sqrtD := math.Sqrt(disc)
	beta = (a + sqrtD) / 2
	alpha = (a - sqrtD) / 2
	if alpha >= beta {
		return 0, 0, newError(InvalidWaveformShape, "invalid waveform parameters (alpha >= beta); check component values")
	}
	if alpha <= 0 {
		return 0, 0, newError(InvalidWaveformShape, "invalid waveform parameters (tail decay rate is not positive); check component values")
	}
	return alpha, beta, nil
}

// Roots returns the tail (alpha) and front (beta) decay rates in 1/s.
func Roots(p Parameters) (alpha, beta float64, err error) {
	c, err := toCircuit(p)
	if err != nil {
		return 0, 0, err
	}
	return decayRoots(c.characteristic())
}

// thresholds tracks first crossings during the forward sampling pass.
// Each crossing is captured once and never revisited.
type thresholds struct {
	vPeak float64 // V
	tPeak float64 // s

	t10, t90, t50             float64 // µs
	found10, found90, found50 bool
}

func (th *thresholds) observe(tUS, v float64) {
	if !th.found10 && v >= 0.1*th.vPeak {
		th.t10, th.found10 = tUS, true
	}
	if !th.found90 && v >= 0.9*th.vPeak {
		th.t90, th.found90 = tUS, true
	}
	if !th.found50 && tUS*1e-6 > th.tPeak && v <= 0.5*th.vPeak {
		th.t50, th.found50 = tUS, true
	}
}

// result converts the crossings into metrics. A crossing at t = 0 counts as not found.
func (th *thresholds) result() Result {
	r := Result{PeakVoltage: th.vPeak / 1000}
	if th.found10 && th.found90 && th.t10 > 0 && th.t90 > 0 {
		r.FrontTime = FrontTimeFactor * (th.t90 - th.t10)
	}
	if th.found50 && th.t50 > 0 {
		r.TailTime = th.t50
	}
	return r
}

// Simulate computes the generator output waveform and its impulse metrics.
// It returns a *SimulationError and no output when the parameters cannot be modelled.
func Simulate(p Parameters) (*Output, error) {
	c, err := toCircuit(p)
	if err != nil {
		return nil, err
	}
	alpha, beta, err := decayRoots(c.characteristic())
	if err != nil {
		return nil, err
	}

	k := c.v0 / (c.r1 * c.c2 * (beta - alpha))
	if math.IsNaN(k) || math.IsInf(k, 0) || k == 0 {
		return nil, newError(InvalidWaveformShape, "peak factor is not finite (near-critical damping); check component values")
	}
	voltage := func(t float64) float64 {
		return k * (math.Exp(-alpha*t) - math.Exp(-beta*t))
	}

	tPeak := math.Log(beta/alpha) / (beta - alpha)
	vPeak := voltage(tPeak)
	if math.IsNaN(tPeak) || math.IsInf(tPeak, 0) || math.IsNaN(vPeak) || math.IsInf(vPeak, 0) || vPeak <= 0 {
		return nil, newError(InvalidWaveformShape, "waveform peak is not finite; check component values")
	}

	endUS := math.Max(MinWindowUS, TailConstants/alpha*1e6)
	times := floats.Span(make([]float64, SampleCount), 0, endUS)

	th := thresholds{vPeak: vPeak, tPeak: tPeak}
	points := make([]Point, len(times))
	for i, tUS := range times {
		v := voltage(tUS * 1e-6)
		points[i] = Point{Time: tUS, Voltage: v / 1000}
		th.observe(tUS, v)
	}

	return &Output{Waveform: points, Result: th.result()}, nil
}
