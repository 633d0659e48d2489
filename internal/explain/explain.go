// Package explain produces natural-language explanations of simulation results.
package explain

import (
	"bytes"
	"context"
	"errors"
	"text/template"

	"impulse-sim/internal/waveform"
)

var (
	// ErrCommunication wraps every failure to obtain a reply from the explanation service.
	ErrCommunication = errors.New("failed to communicate with the explanation service; check the API key and network connection")
	// ErrMissingAPIKey is returned when no API key could be resolved.
	ErrMissingAPIKey = errors.New("explanation API key not set")
)

// Explainer turns a parameter set and its result into prose.
type Explainer interface {
	Explain(ctx context.Context, p waveform.Parameters, r waveform.Result) (string, error)
}

// Func adapts a plain function to Explainer.
type Func func(ctx context.Context, p waveform.Parameters, r waveform.Result) (string, error)

// Explain calls f.
func (f Func) Explain(ctx context.Context, p waveform.Parameters, r waveform.Result) (string, error) {
	return f(ctx, p, r)
}

var promptTmpl = template.Must(template.New("prompt").Funcs(template.FuncMap{
	"fixed2": formatFixed,
}).Parse(`You are an expert in high-voltage engineering. Explain the results of a Marx impulse generator simulation in a clear and concise way for an engineering student.

The simulation was run with the following parameters:
- Number of Stages: {{.P.Stages}}
- Charging Voltage per Stage: {{.P.ChargingVoltage}} kV
- Stage Capacitance (per stage): {{.P.StageCapacitance}} nF
- Load Capacitance: {{.P.LoadCapacitance}} pF
- Front Shaping Resistor (R1): {{.P.FrontResistor}} Ω
- Tail Shaping Resistor (R2): {{.P.TailResistor}} Ω

The simulation produced the following waveform characteristics:
- Peak Voltage: {{fixed2 .R.PeakVoltage}} kV
- Front Time (T1): {{fixed2 .R.FrontTime}} µs
- Tail Time (T2): {{fixed2 .R.TailTime}} µs

Based on these inputs and outputs, please provide an analysis covering:
1. A brief summary of the resulting waveform, comparing it to the standard lightning impulse (1.2/50 µs).
2. How the peak voltage relates to the total charging voltage ({{.Total}} kV). Mention the concept of voltage efficiency.
3. The role of the front resistor (R1) and load capacitance (C2) in shaping the front time (T1).
4. The role of the tail resistor (R2) and the generator's series capacitance in shaping the tail time (T2).
5. A concluding remark on whether these parameters produce a standard or non-standard impulse waveform.

Format the response clearly. Do not use markdown code blocks.
`))

// Prompt renders the explanation request for one run.
func Prompt(p waveform.Parameters, r waveform.Result) (string, error) {
	var buf bytes.Buffer
	err := promptTmpl.Execute(&buf, struct {
		P     waveform.Parameters
		R     waveform.Result
		Total float64
	}{p, r, p.TotalChargingVoltage()})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
