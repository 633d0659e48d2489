// Package chart renders simulated waveforms as HTML pages, static images and terminal plots.
package chart

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"impulse-sim/internal/waveform"
)

// SeriesName is the legend entry of the voltage curve.
const SeriesName = "Impulse Voltage"

// Subtitle summarises the metrics of out.
func Subtitle(out *waveform.Output) string {
	r := out.Result
	return fmt.Sprintf("Peak %.2f kV, T1 %.2f µs, T2 %.2f µs", r.PeakVoltage, r.FrontTime, r.TailTime)
}

// NewLine builds the go-echarts line chart for out.
func NewLine(title string, out *waveform.Output) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: title,
			Theme:     types.ThemeWesteros,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: Subtitle(out),
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Name:        "Time (µs)",
			SplitNumber: 20,
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name:  "Voltage (kV)",
			Scale: opts.Bool(true),
		}),
		charts.WithDataZoomOpts(opts.DataZoom{
			Type:       "inside",
			Start:      0,
			End:        100,
			XAxisIndex: []int{0},
		}),
	)

	xs := make([]string, len(out.Waveform))
	ys := make([]opts.LineData, len(out.Waveform))
	for i, pt := range out.Waveform {
		xs[i] = fmt.Sprintf("%.2f", pt.Time)
		ys[i] = opts.LineData{Value: pt.Voltage}
	}
	line.SetXAxis(xs).AddSeries(SeriesName, ys,
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
	)
	return line
}

// RenderHTML writes a standalone HTML page with the waveform chart.
func RenderHTML(w io.Writer, title string, out *waveform.Output) error {
	if out == nil {
		return fmt.Errorf("no waveform to render")
	}
	return NewLine(title, out).Render(w)
}
