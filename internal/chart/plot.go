package chart

import (
	"fmt"
	"image/color"
	"io"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"impulse-sim/internal/waveform"
)

const (
	plotWidth  = 8 * vg.Inch
	plotHeight = 4 * vg.Inch
)

var (
	waveColor = color.RGBA{R: 0x22, G: 0xd3, B: 0xee, A: 0xff}
	refColor  = color.RGBA{R: 0x9c, G: 0xa3, B: 0xaf, A: 0xff}
)

// NewPlot builds a gonum plot of out with dashed 90 % and 50 % peak reference lines.
func NewPlot(out *waveform.Output) (*plot.Plot, error) {
	if out == nil || len(out.Waveform) == 0 {
		return nil, fmt.Errorf("no waveform to plot")
	}
	p := plot.New()
	p.Title.Text = SeriesName + " (" + Subtitle(out) + ")"
	p.X.Label.Text = "Time (µs)"
	p.Y.Label.Text = "Voltage (kV)"
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(out.Waveform))
	for i, pt := range out.Waveform {
		pts[i].X = pt.Time
		pts[i].Y = pt.Voltage
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.LineStyle.Color = waveColor
	line.LineStyle.Width = vg.Points(1.5)
	p.Add(line)
	p.Legend.Add("V(t)", line)

	peak := out.Result.PeakVoltage
	for _, frac := range []float64{0.9, 0.5} {
		level := frac * peak
		ref := plotter.NewFunction(func(float64) float64 { return level })
		ref.LineStyle.Color = refColor
		ref.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
		p.Add(ref)
		p.Legend.Add(fmt.Sprintf("%.0f %% peak", frac*100), ref)
	}
	p.X.Min = out.Waveform[0].Time
	p.X.Max = out.Waveform[len(out.Waveform)-1].Time
	return p, nil
}

// WritePlot renders out as png or svg to w.
func WritePlot(w io.Writer, format string, out *waveform.Output) error {
	format = strings.ToLower(format)
	if format != "png" && format != "svg" {
		return fmt.Errorf("unsupported plot format %q", format)
	}
	p, err := NewPlot(out)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(plotWidth, plotHeight, format)
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// SavePlot writes out to path; the extension selects the format.
func SavePlot(path string, out *waveform.Output) error {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext != "png" && ext != "svg" {
		return fmt.Errorf("unsupported plot file %q: use .png or .svg", path)
	}
	p, err := NewPlot(out)
	if err != nil {
		return err
	}
	return p.Save(plotWidth, plotHeight, path)
}
