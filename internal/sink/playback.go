package sink

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"impulse-sim/internal/waveform"
)

// maxReplayLine bounds a single JSONL line; stdout logs may carry full waveforms.
const maxReplayLine = 64 << 20

// ReplayOptions controls how recorded runs are fed back to a writer.
type ReplayOptions struct {
	// Speed scales the recorded gaps between runs. Values <= 0 disable delays.
	Speed float64
	// SkipFailed drops runs that ended in a simulation error.
	SkipFailed bool
	// Resimulate recomputes each successful run to restore the samples the runs log omits.
	Resimulate bool
	Logger     *slog.Logger
}

// ReplayStats counts what happened to the records of a log.
type ReplayStats struct {
	Replayed int `json:"replayed"`
	Failed   int `json:"skipped_failed"`
	Rejected int `json:"rejected"`
}

// Replay reads JSONL run records from r and writes them to w in order.
// Successful records whose parameters no longer describe a valid circuit, or
// that carry no result, are rejected and logged rather than written.
func Replay(ctx context.Context, r io.Reader, w RecordWriter, opts ReplayOptions) (ReplayStats, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var stats ReplayStats
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxReplayLine)
	var prev time.Time
	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return stats, fmt.Errorf("line %d: %w", line, err)
		}
		if rec.Failed() && opts.SkipFailed {
			stats.Failed++
			continue
		}
		if !rec.Failed() {
			if err := checkReplayed(&rec, opts.Resimulate, logger); err != nil {
				stats.Rejected++
				logger.Warn("rejecting recorded run", "line", line, "run_id", rec.RunID, "error", err)
				continue
			}
		}

		if !prev.IsZero() && opts.Speed > 0 {
			if err := sleepCtx(ctx, scaledGap(rec.Timestamp.Sub(prev), opts.Speed)); err != nil {
				return stats, err
			}
		} else if err := ctx.Err(); err != nil {
			return stats, err
		}
		if err := w.Write(rec); err != nil {
			return stats, err
		}
		stats.Replayed++
		prev = rec.Timestamp
	}
	if err := sc.Err(); err != nil {
		return stats, fmt.Errorf("line %d: %w", line+1, err)
	}
	return stats, nil
}

// ReplayFile opens path and replays its run records.
func ReplayFile(ctx context.Context, path string, w RecordWriter, opts ReplayOptions) (ReplayStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return ReplayStats{}, err
	}
	defer f.Close()
	return Replay(ctx, f, w, opts)
}

func checkReplayed(rec *Record, resimulate bool, logger *slog.Logger) error {
	if rec.RunID == "" {
		return fmt.Errorf("missing run id")
	}
	if rec.Result == nil {
		return fmt.Errorf("successful run without a result")
	}
	if err := waveform.Validate(rec.Params); err != nil {
		return err
	}
	if !resimulate || len(rec.Waveform) > 0 {
		return nil
	}
	out, err := waveform.Simulate(rec.Params)
	if err != nil {
		return err
	}
	if out.Result != *rec.Result {
		logger.Debug("recomputed result differs from the log; keeping the recorded one", "run_id", rec.RunID)
	}
	rec.Waveform = out.Waveform
	return nil
}

func scaledGap(d time.Duration, speed float64) time.Duration {
	if speed != 1 {
		d = time.Duration(float64(d) / speed)
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
