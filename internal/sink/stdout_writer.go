// Writers printing run records to STDOUT
package sink

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"text/tabwriter"
	"time"

	"impulse-sim/internal/report"
)

const (
	colorReset  = "\x1b[0m"
	colorRed    = "\x1b[31m"
	colorGreen  = "\x1b[32m"
	colorYellow = "\x1b[33m"
	colorBlue   = "\x1b[34m"
	colorCyan   = "\x1b[36m"
	colorGray   = "\x1b[90m"
)

// NewStdoutWriter returns a colorized writer when colorize is set, JSON lines otherwise.
// A nil out writes to os.Stdout.
func NewStdoutWriter(out io.Writer, colorize bool) RecordWriter {
	if out == nil {
		out = os.Stdout
	}
	if colorize {
		return &ColorStdoutWriter{out: out}
	}
	return &JSONStdoutWriter{out: out}
}

// JSONStdoutWriter prints one JSON object per record.
type JSONStdoutWriter struct {
	out io.Writer
}

// NewJSONStdoutWriter creates a JSONStdoutWriter writing to os.Stdout.
func NewJSONStdoutWriter() *JSONStdoutWriter {
	return &JSONStdoutWriter{out: os.Stdout}
}

// Write outputs a record in JSON format.
func (w *JSONStdoutWriter) Write(rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w.out, string(data))
	return err
}

// WriteBatch outputs multiple records in JSON format.
func (w *JSONStdoutWriter) WriteBatch(recs []Record) error {
	for _, r := range recs {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// ColorStdoutWriter prints a human-friendly summary line per run using ANSI colors.
type ColorStdoutWriter struct {
	out  io.Writer
	once sync.Once
}

func (w *ColorStdoutWriter) printOverview() {
	fmt.Fprintln(w.out, "Reference lightning impulse:")
	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Front time (T1):\t%.1f µs\n", report.StandardFrontTime)
	fmt.Fprintf(tw, "Tail time (T2):\t%.0f µs\n", report.StandardTailTime)
	fmt.Fprintf(tw, "Tolerance:\t±%.0f %%\n", report.DefaultTolerance*100)
	tw.Flush()
	fmt.Fprintln(w.out)
}

// Write outputs a single record in colorized format.
func (w *ColorStdoutWriter) Write(rec Record) error {
	w.once.Do(w.printOverview)

	id := rec.RunID
	if len(id) > 8 {
		id = id[:8]
	}
	p := rec.Params
	fmt.Fprintf(w.out, "%s[%s]%s ", colorGray, rec.Timestamp.Format(time.RFC3339), colorReset)
	fmt.Fprintf(w.out, "%srun=%s%s ", colorBlue, id, colorReset)
	if rec.Label != "" {
		fmt.Fprintf(w.out, "%slabel=%s%s ", colorCyan, rec.Label, colorReset)
	}
	fmt.Fprintf(w.out, "n=%d vc=%gkV c1=%gnF c2=%gpF r1=%gΩ r2=%gΩ ",
		p.Stages, p.ChargingVoltage, p.StageCapacitance, p.LoadCapacitance, p.FrontResistor, p.TailResistor)
	if rec.Failed() {
		fmt.Fprintf(w.out, "%sERROR %s: %s%s\n", colorRed, rec.ErrorKind, rec.Error, colorReset)
		return nil
	}
	if rec.Result == nil {
		fmt.Fprintln(w.out)
		return nil
	}
	r := *rec.Result
	c := report.Classify(r)
	fmt.Fprintf(w.out, "%speak=%.2fkV%s ", colorYellow, r.PeakVoltage, colorReset)
	fmt.Fprintf(w.out, "%sT1=%.2fµs%s ", flagColor(c.FrontStandard), r.FrontTime, colorReset)
	fmt.Fprintf(w.out, "%sT2=%.2fµs%s ", flagColor(c.TailStandard), r.TailTime, colorReset)
	fmt.Fprintf(w.out, "%seff=%.1f%%%s ", colorCyan, report.Efficiency(p, r)*100, colorReset)
	fmt.Fprintf(w.out, "%s%s%s\n", flagColor(c.Standard()), c.Label(), colorReset)
	return nil
}

// WriteBatch outputs multiple records.
func (w *ColorStdoutWriter) WriteBatch(recs []Record) error {
	for _, r := range recs {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}

func flagColor(ok bool) string {
	if ok {
		return colorGreen
	}
	return colorYellow
}
