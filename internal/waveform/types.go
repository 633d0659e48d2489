// Circuit parameters and simulation outputs for the impulse generator model
package waveform

// Parameters describes one impulse generator and its load network.
// Values are in engineering units: kV and nF per stage, pF for the load, Ω for resistors.
type Parameters struct {
	Stages           int     `json:"stages" yaml:"stages"`
	ChargingVoltage  float64 `json:"charging_voltage_kv" yaml:"charging_voltage_kv"`
	StageCapacitance float64 `json:"stage_capacitance_nf" yaml:"stage_capacitance_nf"`
	LoadCapacitance  float64 `json:"load_capacitance_pf" yaml:"load_capacitance_pf"`
	FrontResistor    float64 `json:"front_resistor_ohm" yaml:"front_resistor_ohm"`
	TailResistor     float64 `json:"tail_resistor_ohm" yaml:"tail_resistor_ohm"`
}

// Point is one waveform sample.
type Point struct {
	Time    float64 `json:"time_us"`    // µs
	Voltage float64 `json:"voltage_kv"` // kV
}

// Result holds the standard impulse metrics of a run.
type Result struct {
	PeakVoltage float64 `json:"peak_voltage_kv"`
	FrontTime   float64 `json:"front_time_us"`
	TailTime    float64 `json:"tail_time_us"`
}

// Output is the outcome of a successful simulation.
type Output struct {
	Waveform []Point `json:"waveform"`
	Result   Result  `json:"result"`
}

// DefaultParameters returns the reference generator: four 100 kV stages of 500 nF
// into 2000 pF through 75 Ω front and 4 kΩ tail resistors.
func DefaultParameters() Parameters {
	return Parameters{
		Stages:           4,
		ChargingVoltage:  100,
		StageCapacitance: 500,
		LoadCapacitance:  2000,
		FrontResistor:    75,
		TailResistor:     4000,
	}
}

// TotalChargingVoltage is the series-charged voltage in kV before any efficiency loss.
func (p Parameters) TotalChargingVoltage() float64 {
	return float64(p.Stages) * p.ChargingVoltage
}
