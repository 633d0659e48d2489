package sweep

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"impulse-sim/internal/metrics"
	"impulse-sim/internal/report"
	"impulse-sim/internal/waveform"
)

// Outcome is the result of one parameter set. Exactly one of Output and Err is set.
type Outcome struct {
	Index  int
	Params waveform.Parameters
	Output *waveform.Output
	Err    error
}

// Options configures Run.
type Options struct {
	Workers  int
	Simulate func(waveform.Parameters) (*waveform.Output, error)
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

// Run simulates every set with at most Workers concurrent runs. Outcomes are
// returned in input order. Simulation failures are reported per outcome; only
// context cancellation fails the sweep, in which case unscheduled entries stay zero.
func Run(ctx context.Context, sets []waveform.Parameters, opts Options) ([]Outcome, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	simulate := opts.Simulate
	if simulate == nil {
		simulate = waveform.Simulate
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	outcomes := make([]Outcome, len(sets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, p := range sets {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			out, err := simulate(p)
			opts.Metrics.ObserveSimulation(time.Since(start), out, err)
			if err != nil {
				logger.Debug("sweep run failed", "index", i, "error", err)
			}
			outcomes[i] = Outcome{Index: i, Params: p, Output: out, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return outcomes, err
	}
	if err := ctx.Err(); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}

// Summary aggregates a finished sweep.
type Summary struct {
	Total    int            `json:"total"`
	OK       int            `json:"ok"`
	Standard int            `json:"standard"`
	Errors   map[string]int `json:"errors,omitempty"`
}

// Summarize counts successful, standard-shape and failed outcomes by error kind.
func Summarize(outcomes []Outcome) Summary {
	s := Summary{Total: len(outcomes), Errors: map[string]int{}}
	for _, o := range outcomes {
		if o.Err != nil {
			s.Errors[metrics.SimulationOutcome(o.Err)]++
			continue
		}
		if o.Output == nil {
			continue
		}
		s.OK++
		if report.Classify(o.Output.Result).Standard() {
			s.Standard++
		}
	}
	return s
}
