package sink

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/google/uuid"

	"impulse-sim/internal/logging"
	"impulse-sim/internal/waveform"
)

func standardParams() waveform.Parameters {
	return waveform.Parameters{Stages: 6, ChargingVoltage: 100, StageCapacitance: 100, LoadCapacitance: 2000, FrontResistor: 300, TailResistor: 4000}
}

func okRecord(t *testing.T) Record {
	t.Helper()
	p := standardParams()
	out, err := waveform.Simulate(p)
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	return NewRecord("std", p, out, nil, time.Unix(0, 0))
}

func failedRecord() Record {
	p := standardParams()
	p.FrontResistor = 0
	_, err := waveform.Simulate(p)
	return NewRecord("bad", p, nil, err, time.Unix(1, 0))
}

func TestNewRecord(t *testing.T) {
	rec := okRecord(t)
	if _, err := uuid.Parse(rec.RunID); err != nil {
		t.Fatalf("run id %q is not a uuid: %v", rec.RunID, err)
	}
	if rec.Result == nil || !rec.Standard || len(rec.Waveform) != waveform.SampleCount || rec.Failed() {
		t.Fatalf("unexpected record %+v", rec.WithoutWaveform())
	}
	bad := failedRecord()
	if !bad.Failed() || bad.ErrorKind != "InvalidComponentValues" || bad.Result != nil || bad.Waveform != nil {
		t.Fatalf("unexpected failed record %+v", bad)
	}
}

func TestJSONStdoutWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewStdoutWriter(buf, false)
	if err := w.Write(failedRecord()); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	var got Record
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("expected JSON output, got %q", buf.String())
	}
	if got.ErrorKind != "InvalidComponentValues" || got.Label != "bad" {
		t.Fatalf("unexpected decoded record %+v", got)
	}
}

func TestColorStdoutWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewStdoutWriter(buf, true)
	if err := WriteAll(w, []Record{okRecord(t), failedRecord()}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	out := buf.String()
	if strings.Count(out, "Reference lightning impulse:") != 1 {
		t.Fatalf("expected overview once, got %q", out)
	}
	for _, want := range []string{"label=std", "T1=1.25µs", "standard", colorRed + "ERROR InvalidComponentValues"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestFileWriter(t *testing.T) {
	dir := t.TempDir()
	runs := filepath.Join(dir, "runs.jsonl")
	wave := filepath.Join(dir, "waveform.jsonl")
	fw, err := NewFileWriter(runs, wave)
	if err != nil {
		t.Fatalf("NewFileWriter: %v", err)
	}
	ok := okRecord(t)
	if err := fw.WriteBatch([]Record{ok, failedRecord()}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := fw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(runs)
	if err != nil {
		t.Fatalf("read runs: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 run lines, got %d", len(lines))
	}
	var got Record
	if err := json.Unmarshal([]byte(lines[0]), &got); err != nil {
		t.Fatalf("decode run: %v", err)
	}
	if got.RunID != ok.RunID || got.Waveform != nil || *got.Result != *ok.Result {
		t.Fatalf("unexpected run record %+v", got)
	}

	f, err := os.Open(wave)
	if err != nil {
		t.Fatalf("open waveform: %v", err)
	}
	defer f.Close()
	n := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var s sampleRow
		if err := json.Unmarshal(sc.Bytes(), &s); err != nil {
			t.Fatalf("decode sample: %v", err)
		}
		if s.RunID != ok.RunID || s.Index != n {
			t.Fatalf("unexpected sample %+v at line %d", s, n)
		}
		n++
	}
	if n != waveform.SampleCount {
		t.Fatalf("expected %d samples, got %d", waveform.SampleCount, n)
	}
}

func TestFileWriterConcurrentWrites(t *testing.T) {
	runs := filepath.Join(t.TempDir(), "runs.jsonl")
	fw, err := NewFileWriter(runs, "")
	if err != nil {
		t.Fatalf("NewFileWriter: %v", err)
	}
	rec := failedRecord()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				if err := fw.Write(rec); err != nil {
					t.Errorf("write: %v", err)
				}
			}
		}()
	}
	wg.Wait()
	fw.Close()

	data, err := os.ReadFile(runs)
	if err != nil {
		t.Fatalf("read runs: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 200 {
		t.Fatalf("expected 200 lines, got %d", len(lines))
	}
	for i, l := range lines {
		var got Record
		if err := json.Unmarshal([]byte(l), &got); err != nil {
			t.Fatalf("line %d interleaved: %v", i, err)
		}
	}
}

type collectWriter struct{ recs []Record }

func (c *collectWriter) Write(r Record) error {
	c.recs = append(c.recs, r)
	return nil
}

type batchCollectWriter struct {
	collectWriter
	batches int
}

func (b *batchCollectWriter) WriteBatch(rs []Record) error {
	b.batches++
	b.recs = append(b.recs, rs...)
	return nil
}

type failingWriter struct{}

func (failingWriter) Write(Record) error { return errors.New("disk full") }

func TestMultiWriter(t *testing.T) {
	plain := &collectWriter{}
	batch := &batchCollectWriter{}
	mw := NewMultiWriter(plain, batch)
	recs := []Record{failedRecord(), failedRecord()}
	if err := mw.WriteBatch(recs); err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}
	if len(plain.recs) != 2 || len(batch.recs) != 2 || batch.batches != 1 {
		t.Fatalf("fan-out mismatch: plain=%d batch=%d batches=%d", len(plain.recs), len(batch.recs), batch.batches)
	}
	mw.Add(failingWriter{})
	if err := mw.Write(recs[0]); err == nil {
		t.Fatalf("expected error from failing writer")
	}
}

func encodeLog(t *testing.T, recs ...Record) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, r := range recs {
		if err := enc.Encode(r.WithoutWaveform()); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	return &buf
}

func TestReplay(t *testing.T) {
	recs := []Record{okRecord(t), failedRecord()}
	recs[1].Timestamp = recs[0].Timestamp.Add(time.Second)
	cw := &collectWriter{}
	stats, err := Replay(context.Background(), encodeLog(t, recs...), cw, ReplayOptions{Logger: logging.Discard()})
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if stats.Replayed != 2 || len(cw.recs) != 2 {
		t.Fatalf("expected 2 records, got %+v", stats)
	}
	for i, r := range recs {
		if cw.recs[i].RunID != r.RunID {
			t.Fatalf("record %d mismatch: %+v vs %+v", i, cw.recs[i], r)
		}
	}
	if cw.recs[0].Waveform != nil {
		t.Fatalf("samples restored without Resimulate")
	}
}

func TestReplaySkipFailedAndResimulate(t *testing.T) {
	ok := okRecord(t)
	cw := &collectWriter{}
	stats, err := Replay(context.Background(), encodeLog(t, failedRecord(), ok), cw,
		ReplayOptions{SkipFailed: true, Resimulate: true, Logger: logging.Discard()})
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if stats.Replayed != 1 || stats.Failed != 1 || len(cw.recs) != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	got := cw.recs[0]
	if got.RunID != ok.RunID || len(got.Waveform) != waveform.SampleCount {
		t.Fatalf("samples not rebuilt: %d", len(got.Waveform))
	}
	if got.Waveform[100] != ok.Waveform[100] {
		t.Fatalf("rebuilt sample differs: %+v vs %+v", got.Waveform[100], ok.Waveform[100])
	}
}

func TestReplayRejectsInconsistentRecords(t *testing.T) {
	bad := okRecord(t)
	bad.Params.LoadCapacitance = 0
	noResult := okRecord(t)
	noResult.Result = nil
	cw := &collectWriter{}
	stats, err := Replay(context.Background(), encodeLog(t, bad, noResult, okRecord(t)), cw, ReplayOptions{Logger: logging.Discard()})
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if stats.Rejected != 2 || stats.Replayed != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestReplayDecodeErrorNamesLine(t *testing.T) {
	buf := encodeLog(t, failedRecord())
	buf.WriteString("\n{not json}\n")
	_, err := Replay(context.Background(), buf, &collectWriter{}, ReplayOptions{Logger: logging.Discard()})
	if err == nil || !strings.Contains(err.Error(), "line 3") {
		t.Fatalf("expected error on line 3, got %v", err)
	}
}

func TestReplayCancelledDuringDelay(t *testing.T) {
	recs := []Record{failedRecord(), failedRecord()}
	recs[1].Timestamp = recs[0].Timestamp.Add(time.Hour)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	cw := &collectWriter{}
	stats, err := Replay(ctx, encodeLog(t, recs...), cw, ReplayOptions{Speed: 1, Logger: logging.Discard()})
	if !errors.Is(err, context.DeadlineExceeded) || stats.Replayed != 1 {
		t.Fatalf("expected cancellation after the first record, got %+v, %v", stats, err)
	}
}

func TestReplayFileMissing(t *testing.T) {
	if _, err := ReplayFile(context.Background(), filepath.Join(t.TempDir(), "nope.jsonl"), &collectWriter{}, ReplayOptions{}); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

type mockGreptimeClient struct {
	tables []*table.Table
}

func (m *mockGreptimeClient) Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error) {
	m.tables = append(m.tables, tables...)
	return &gpb.GreptimeResponse{}, nil
}

func TestGreptimeWriterRuns(t *testing.T) {
	m := &mockGreptimeClient{}
	w := &GreptimeDBWriter{client: m, runsTable: RunsTable, waveformTable: WaveformTable, logger: logging.Discard()}

	ok := okRecord(t)
	if err := w.WriteBatch([]Record{ok, failedRecord()}); err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}
	if len(m.tables) != 1 {
		t.Fatalf("expected only the runs table, got %d", len(m.tables))
	}
	rows := m.tables[0].GetRows()
	if len(rows.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows.Rows))
	}
	if schema := rows.Schema; schema[0].SemanticType != gpb.SemanticType_TAG || schema[2].Datatype != gpb.ColumnDataType_INT64 {
		t.Fatalf("unexpected schema %v", schema[:3])
	}
	first := rows.Rows[0].Values
	if got := first[0].GetStringValue(); got != ok.RunID {
		t.Fatalf("run_id = %s, want %s", got, ok.RunID)
	}
	if got := first[2].GetI64Value(); got != 6 {
		t.Fatalf("stages = %d, want 6", got)
	}
	if got := first[9].GetF64Value(); got != ok.Result.FrontTime {
		t.Fatalf("front_time_us = %v, want %v", got, ok.Result.FrontTime)
	}
	if !first[11].GetBoolValue() {
		t.Fatalf("standard flag not exported")
	}
	if got := rows.Rows[1].Values[12].GetStringValue(); got != "InvalidComponentValues" {
		t.Fatalf("error_kind = %s", got)
	}
}

func TestGreptimeWriterWaveform(t *testing.T) {
	m := &mockGreptimeClient{}
	w := &GreptimeDBWriter{client: m, runsTable: RunsTable, waveformTable: WaveformTable, withWaveform: true, logger: logging.Discard()}
	ok := okRecord(t)
	if err := w.Write(ok); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if len(m.tables) != 2 {
		t.Fatalf("expected runs and waveform tables, got %d", len(m.tables))
	}
	rows := m.tables[1].GetRows().Rows
	if len(rows) != waveform.SampleCount {
		t.Fatalf("expected %d samples, got %d", waveform.SampleCount, len(rows))
	}
	last := rows[len(rows)-1].Values
	if got := last[1].GetF64Value(); got != ok.Waveform[len(ok.Waveform)-1].Time {
		t.Fatalf("time_us = %v", got)
	}
}
