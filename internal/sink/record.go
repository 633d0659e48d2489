// Package sink writes completed simulation runs to stdout, files and GreptimeDB.
package sink

import (
	"time"

	"github.com/google/uuid"

	"impulse-sim/internal/report"
	"impulse-sim/internal/waveform"
)

// Record is one completed run. Exactly one of Result and Error is set.
type Record struct {
	RunID     string              `json:"run_id"`
	Label     string              `json:"label,omitempty"`
	Timestamp time.Time           `json:"timestamp"`
	Params    waveform.Parameters `json:"params"`
	Result    *waveform.Result    `json:"result,omitempty"`
	Standard  bool                `json:"standard"`
	Waveform  []waveform.Point    `json:"waveform,omitempty"`
	ErrorKind string              `json:"error_kind,omitempty"`
	Error     string              `json:"error,omitempty"`
}

// NewRecord builds a record for a run that produced out or failed with err.
func NewRecord(label string, p waveform.Parameters, out *waveform.Output, err error, now time.Time) Record {
	rec := Record{
		RunID:     uuid.NewString(),
		Label:     label,
		Timestamp: now.UTC(),
		Params:    p,
	}
	if err != nil {
		rec.Error = err.Error()
		if kind, ok := waveform.KindOf(err); ok {
			rec.ErrorKind = kind.String()
		}
		return rec
	}
	if out != nil {
		r := out.Result
		rec.Result = &r
		rec.Standard = report.Classify(r).Standard()
		rec.Waveform = out.Waveform
	}
	return rec
}

// Failed reports whether the run ended in an error.
func (r Record) Failed() bool { return r.Error != "" }

// WithoutWaveform returns a copy of r without samples.
func (r Record) WithoutWaveform() Record {
	r.Waveform = nil
	return r
}

// RecordWriter consumes run records.
type RecordWriter interface {
	Write(Record) error
}

// Optional: writers may support batch mode.
type batchWriter interface {
	WriteBatch([]Record) error
}

// WriteAll sends recs to w, in one batch when w supports it.
func WriteAll(w RecordWriter, recs []Record) error {
	if bw, ok := w.(batchWriter); ok {
		return bw.WriteBatch(recs)
	}
	for _, r := range recs {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}
