package sink

import (
	"encoding/json"
	"os"
	"sync"
)

// sampleRow is one waveform sample in the waveform log.
type sampleRow struct {
	RunID   string  `json:"run_id"`
	Index   int     `json:"index"`
	Time    float64 `json:"time_us"`
	Voltage float64 `json:"voltage_kv"`
}

// FileWriter writes run records, and optionally their samples, to JSONL files.
// It is safe for concurrent use.
type FileWriter struct {
	mu       sync.Mutex
	runFile  *os.File
	waveFile *os.File
	runEnc   *json.Encoder
	waveEnc  *json.Encoder
}

// NewFileWriter creates a FileWriter. waveformPath may be empty to skip the sample log.
func NewFileWriter(runsPath, waveformPath string) (*FileWriter, error) {
	rf, err := os.Create(runsPath)
	if err != nil {
		return nil, err
	}
	fw := &FileWriter{runFile: rf, runEnc: json.NewEncoder(rf)}
	if waveformPath != "" {
		wf, err := os.Create(waveformPath)
		if err != nil {
			rf.Close()
			return nil, err
		}
		fw.waveFile = wf
		fw.waveEnc = json.NewEncoder(wf)
	}
	return fw, nil
}

// Write logs a single record. Samples go to the waveform log only.
func (f *FileWriter) Write(rec Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.runEnc.Encode(rec.WithoutWaveform()); err != nil {
		return err
	}
	if f.waveEnc == nil {
		return nil
	}
	for i, pt := range rec.Waveform {
		if err := f.waveEnc.Encode(sampleRow{RunID: rec.RunID, Index: i, Time: pt.Time, Voltage: pt.Voltage}); err != nil {
			return err
		}
	}
	return nil
}

// WriteBatch logs multiple records.
func (f *FileWriter) WriteBatch(recs []Record) error {
	for _, r := range recs {
		if err := f.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// Close closes any underlying files.
func (f *FileWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var err error
	if f.runFile != nil {
		if e := f.runFile.Close(); e != nil && err == nil {
			err = e
		}
	}
	if f.waveFile != nil {
		if e := f.waveFile.Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}
