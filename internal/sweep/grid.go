// Package sweep expands parameter grids and runs independent simulations concurrently.
package sweep

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"impulse-sim/internal/waveform"
)

// DefaultMaxRuns caps the size of an expanded grid when no explicit limit is given.
const DefaultMaxRuns = 10000

// Range is an inclusive arithmetic progression From, From+Step, ... <= To.
type Range struct {
	From float64 `yaml:"from" json:"from"`
	To   float64 `yaml:"to" json:"to"`
	Step float64 `yaml:"step" json:"step"`
}

// ParseRange parses "from:to:step", "from:to" (step 1) or a single value.
func ParseRange(s string) (Range, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) > 3 {
		return Range{}, fmt.Errorf("range %q: want from:to[:step]", s)
	}
	vals := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Range{}, fmt.Errorf("range %q: %w", s, err)
		}
		vals[i] = v
	}
	r := Range{From: vals[0], To: vals[0], Step: 1}
	if len(vals) >= 2 {
		r.To = vals[1]
	}
	if len(vals) == 3 {
		r.Step = vals[2]
	}
	return r, r.Validate()
}

// Validate checks that the range is well formed.
func (r Range) Validate() error {
	for _, v := range []float64{r.From, r.To, r.Step} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("range bounds must be finite")
		}
	}
	if r.To < r.From {
		return fmt.Errorf("range end %g is below start %g", r.To, r.From)
	}
	if r.Step <= 0 && r.To != r.From {
		return fmt.Errorf("range step must be positive, got %g", r.Step)
	}
	return nil
}

// Values lists the points of the range. Each point is computed from its index.
// It returns an error when the range has more than maxPoints points.
func (r Range) Values(maxPoints int) ([]float64, error) {
	n := r.count()
	if n > float64(maxPoints) {
		return nil, fmt.Errorf("range %g:%g:%g has more than %d points", r.From, r.To, r.Step, maxPoints)
	}
	out := make([]float64, int(n))
	for i := range out {
		out[i] = r.From + float64(i)*r.Step
	}
	return out, nil
}

// count is kept in float64 so that huge ranges cannot overflow int.
func (r Range) count() float64 {
	if r.To == r.From || r.Step <= 0 {
		return 1
	}
	return math.Floor((r.To-r.From)/r.Step+1e-9) + 1
}

// Grid holds an optional range per parameter. Unset fields keep the base value.
type Grid struct {
	Stages           *Range `yaml:"stages,omitempty" json:"stages,omitempty"`
	ChargingVoltage  *Range `yaml:"charging_voltage_kv,omitempty" json:"charging_voltage_kv,omitempty"`
	StageCapacitance *Range `yaml:"stage_capacitance_nf,omitempty" json:"stage_capacitance_nf,omitempty"`
	LoadCapacitance  *Range `yaml:"load_capacitance_pf,omitempty" json:"load_capacitance_pf,omitempty"`
	FrontResistor    *Range `yaml:"front_resistor_ohm,omitempty" json:"front_resistor_ohm,omitempty"`
	TailResistor     *Range `yaml:"tail_resistor_ohm,omitempty" json:"tail_resistor_ohm,omitempty"`
}

// axis binds one grid dimension to the parameter field it sets.
type axis struct {
	name string
	r    *Range
	set  func(*waveform.Parameters, float64)
}

func (g Grid) axes() []axis {
	return []axis{
		{"stages", g.Stages, func(p *waveform.Parameters, v float64) { p.Stages = int(math.Round(v)) }},
		{"charging_voltage_kv", g.ChargingVoltage, func(p *waveform.Parameters, v float64) { p.ChargingVoltage = v }},
		{"stage_capacitance_nf", g.StageCapacitance, func(p *waveform.Parameters, v float64) { p.StageCapacitance = v }},
		{"load_capacitance_pf", g.LoadCapacitance, func(p *waveform.Parameters, v float64) { p.LoadCapacitance = v }},
		{"front_resistor_ohm", g.FrontResistor, func(p *waveform.Parameters, v float64) { p.FrontResistor = v }},
		{"tail_resistor_ohm", g.TailResistor, func(p *waveform.Parameters, v float64) { p.TailResistor = v }},
	}
}

// Expand returns the cartesian product of the grid applied to base, ordered with
// stages varying slowest and tail resistor fastest. maxRuns <= 0 means DefaultMaxRuns.
func Expand(base waveform.Parameters, g Grid, maxRuns int) ([]waveform.Parameters, error) {
	if maxRuns <= 0 {
		maxRuns = DefaultMaxRuns
	}
	var active []axis
	total := 1.0
	for _, a := range g.axes() {
		if a.r == nil {
			continue
		}
		if err := a.r.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", a.name, err)
		}
		if a.name == "stages" && (a.r.From != math.Trunc(a.r.From) || (a.r.count() > 1 && a.r.Step != math.Trunc(a.r.Step))) {
			return nil, fmt.Errorf("stages: range must use whole numbers")
		}
		total *= a.r.count()
		if total > float64(maxRuns) {
			return nil, fmt.Errorf("grid expands to more than %d runs", maxRuns)
		}
		active = append(active, a)
	}

	sets := []waveform.Parameters{base}
	for _, a := range active {
		vals, err := a.r.Values(maxRuns)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", a.name, err)
		}
		next := make([]waveform.Parameters, 0, len(sets)*len(vals))
		for _, p := range sets {
			for _, v := range vals {
				q := p
				a.set(&q, v)
				next = append(next, q)
			}
		}
		sets = next
	}
	return sets, nil
}
