package sink

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"
)

// Table names used for the run and sample exports.
const (
	RunsTable     = "impulse_runs"
	WaveformTable = "impulse_waveform"
)

const writeTimeout = 10 * time.Second

// greptimeClient is the subset of *greptime.Client used by the writer.
type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeDBWriter exports run records to GreptimeDB via the ingester client.
type GreptimeDBWriter struct {
	client        greptimeClient
	runsTable     string
	waveformTable string
	withWaveform  bool
	logger        *slog.Logger
}

// NewGreptimeDBWriter connects to endpoint:port/database. Samples are exported when withWaveform is set.
func NewGreptimeDBWriter(endpoint string, port int, database string, withWaveform bool, logger *slog.Logger) (*GreptimeDBWriter, error) {
	cfg := greptime.NewConfig(endpoint).WithPort(port).WithDatabase(database)
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("greptime client: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GreptimeDBWriter{
		client:        client,
		runsTable:     RunsTable,
		waveformTable: WaveformTable,
		withWaveform:  withWaveform,
		logger:        logger,
	}, nil
}

// Write inserts a single record.
func (w *GreptimeDBWriter) Write(rec Record) error {
	return w.WriteBatch([]Record{rec})
}

// WriteBatch inserts multiple records in one request.
func (w *GreptimeDBWriter) WriteBatch(recs []Record) error {
	if len(recs) == 0 {
		return nil
	}
	tables := make([]*table.Table, 0, 2)
	runs, err := w.runRows(recs)
	if err != nil {
		return err
	}
	tables = append(tables, runs)
	if w.withWaveform {
		wave, err := w.waveformRows(recs)
		if err != nil {
			return err
		}
		if wave != nil {
			tables = append(tables, wave)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if _, err := w.client.Write(ctx, tables...); err != nil {
		w.logger.Error("greptime write failed", "records", len(recs), "error", err)
		return err
	}
	w.logger.Debug("greptime write", "records", len(recs))
	return nil
}

func (w *GreptimeDBWriter) runRows(recs []Record) (*table.Table, error) {
	tbl, err := table.New(w.runsTable)
	if err != nil {
		return nil, err
	}
	cols := []struct {
		name string
		typ  types.ColumnType
		tag  bool
	}{
		{"run_id", types.STRING, true},
		{"label", types.STRING, true},
		{"stages", types.INT64, false},
		{"charging_voltage_kv", types.FLOAT64, false},
		{"stage_capacitance_nf", types.FLOAT64, false},
		{"load_capacitance_pf", types.FLOAT64, false},
		{"front_resistor_ohm", types.FLOAT64, false},
		{"tail_resistor_ohm", types.FLOAT64, false},
		{"peak_voltage_kv", types.FLOAT64, false},
		{"front_time_us", types.FLOAT64, false},
		{"tail_time_us", types.FLOAT64, false},
		{"standard", types.BOOLEAN, false},
		{"error_kind", types.STRING, false},
	}
	for _, c := range cols {
		if c.tag {
			err = tbl.AddTagColumn(c.name, c.typ)
		} else {
			err = tbl.AddFieldColumn(c.name, c.typ)
		}
		if err != nil {
			return nil, err
		}
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return nil, err
	}

	for _, r := range recs {
		var res struct{ peak, front, tail float64 }
		if r.Result != nil {
			res.peak, res.front, res.tail = r.Result.PeakVoltage, r.Result.FrontTime, r.Result.TailTime
		}
		p := r.Params
		if err := tbl.AddRow(
			r.RunID, r.Label, int64(p.Stages),
			p.ChargingVoltage, p.StageCapacitance, p.LoadCapacitance, p.FrontResistor, p.TailResistor,
			res.peak, res.front, res.tail, r.Standard, r.ErrorKind, r.Timestamp,
		); err != nil {
			return nil, err
		}
	}
	return tbl, nil
}

// waveformRows returns nil when no record carries samples. Each sample is
// timestamped at the run timestamp plus its simulated time.
func (w *GreptimeDBWriter) waveformRows(recs []Record) (*table.Table, error) {
	tbl, err := table.New(w.waveformTable)
	if err != nil {
		return nil, err
	}
	if err := tbl.AddTagColumn("run_id", types.STRING); err != nil {
		return nil, err
	}
	if err := tbl.AddFieldColumn("time_us", types.FLOAT64); err != nil {
		return nil, err
	}
	if err := tbl.AddFieldColumn("voltage_kv", types.FLOAT64); err != nil {
		return nil, err
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MICROSECOND); err != nil {
		return nil, err
	}
	n := 0
	for _, r := range recs {
		for _, pt := range r.Waveform {
			ts := r.Timestamp.Add(time.Duration(pt.Time * float64(time.Microsecond)))
			if err := tbl.AddRow(r.RunID, pt.Time, pt.Voltage, ts); err != nil {
				return nil, err
			}
			n++
		}
	}
	if n == 0 {
		return nil, nil
	}
	return tbl, nil
}
