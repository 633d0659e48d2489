// Package session holds the interactive state shared by the TUI and HTTP hosts:
// current parameters, the latest committed run and the explanation flow.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"impulse-sim/internal/explain"
	"impulse-sim/internal/metrics"
	"impulse-sim/internal/waveform"
)

// DefaultDebounce delays recomputation after a parameter change.
const DefaultDebounce = 200 * time.Millisecond

var (
	ErrNoResult        = errors.New("no simulation result to explain")
	ErrExplainInFlight = errors.New("an explanation is already in progress")
	ErrStale           = errors.New("explanation discarded: parameters changed while it was generated")
	ErrNoExplainer     = errors.New("no explanation service configured")
	ErrPending         = errors.New("a simulation run is pending for the latest parameters")
)

// State is a copy of the controller state. Output is shared between snapshots and must not be modified.
// OutputParams are the parameters Output was computed from; they differ from Params
// while a run is pending or when a failed run retained the previous output.
type State struct {
	Params       waveform.Parameters
	Output       *waveform.Output
	OutputParams waveform.Parameters
	Err          error
	Explanation  string
	ExplainErr   error
	Explaining   bool
	Generation   uint64
	Pending      bool
}

// Listener receives a snapshot after every committed change.
type Listener func(State)

// Option configures a Controller.
type Option func(*Controller)

func WithDebounce(d time.Duration) Option { return func(c *Controller) { c.debounce = d } }

func WithSimulator(f func(waveform.Parameters) (*waveform.Output, error)) Option {
	return func(c *Controller) { c.simulate = f }
}

func WithExplainer(e explain.Explainer) Option { return func(c *Controller) { c.explainer = e } }

func WithListener(l Listener) Option { return func(c *Controller) { c.listener = l } }

// WithRetainOnError keeps the last valid output visible next to a newer error.
func WithRetainOnError(keep bool) Option { return func(c *Controller) { c.retainOnError = keep } }

func WithLogger(l *slog.Logger) Option { return func(c *Controller) { c.logger = l } }

func WithMetrics(m *metrics.Metrics) Option { return func(c *Controller) { c.metrics = m } }

// WithParams sets the initial parameters.
func WithParams(p waveform.Parameters) Option { return func(c *Controller) { c.params = p } }

// Controller serialises parameter updates and explanation requests.
// A run or explanation whose generation is no longer current is discarded.
type Controller struct {
	debounce      time.Duration
	simulate      func(waveform.Parameters) (*waveform.Output, error)
	explainer     explain.Explainer
	listener      Listener
	retainOnError bool
	logger        *slog.Logger
	metrics       *metrics.Metrics

	mu          sync.Mutex
	params      waveform.Parameters
	outParams   waveform.Parameters
	output      *waveform.Output
	err         error
	explanation string
	explainErr  error
	explaining  bool
	generation  uint64
	computed    uint64
	explainSeq  uint64
	timer       *time.Timer
}

// New creates a controller. Nothing is computed until SetParams or Flush.
func New(opts ...Option) *Controller {
	c := &Controller{
		debounce:   DefaultDebounce,
		simulate:   waveform.Simulate,
		params:     waveform.DefaultParameters(),
		generation: 1,
	}
	for _, o := range opts {
		o(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// SetParams records p, invalidates the previous explanation and schedules a run.
// With a zero debounce the run happens before SetParams returns.
func (c *Controller) SetParams(p waveform.Parameters) {
	c.mu.Lock()
	c.params = p
	c.generation++
	gen := c.generation
	c.explanation = ""
	c.explainErr = nil
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.debounce <= 0 {
		c.mu.Unlock()
		c.run(gen)
		return
	}
	c.timer = time.AfterFunc(c.debounce, func() { c.run(gen) })
	st := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(st)
}

// Flush runs the current generation immediately and returns the resulting state.
func (c *Controller) Flush() State {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	gen := c.generation
	c.mu.Unlock()
	c.run(gen)
	return c.Snapshot()
}

func (c *Controller) run(gen uint64) {
	c.mu.Lock()
	if gen != c.generation || gen == c.computed {
		c.mu.Unlock()
		return
	}
	p := c.params
	c.mu.Unlock()

	start := time.Now()
	out, err := c.simulate(p)
	c.metrics.ObserveSimulation(time.Since(start), out, err)

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		c.logger.Debug("discarding superseded run", "generation", gen)
		return
	}
	c.computed = gen
	c.timer = nil
	if err != nil {
		c.err = err
		if !c.retainOnError {
			c.output = nil
		}
		kind, _ := waveform.KindOf(err)
		c.logger.Info("simulation failed", "generation", gen, "kind", kind.String(), "error", err)
	} else {
		c.err = nil
		c.output = out
		c.outParams = p
		c.logger.Debug("simulation committed", "generation", gen, "peak_kv", out.Result.PeakVoltage)
	}
	st := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(st)
}

// Explain requests an explanation of the current output. Only one request may be
// in flight; a reply that arrives after the parameters changed returns ErrStale.
// While a run for the latest parameters is pending it returns ErrPending.
// Failures are stored in ExplainErr and never touch the output.
func (c *Controller) Explain(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.output == nil || c.err != nil {
		c.mu.Unlock()
		return "", ErrNoResult
	}
	if c.computed != c.generation {
		c.mu.Unlock()
		return "", ErrPending
	}
	if c.explaining {
		c.mu.Unlock()
		return "", ErrExplainInFlight
	}
	if c.explainer == nil {
		c.mu.Unlock()
		return "", ErrNoExplainer
	}
	c.explaining = true
	c.explainSeq++
	seq, gen := c.explainSeq, c.generation
	p, r := c.outParams, c.output.Result
	c.explanation = ""
	c.explainErr = nil
	st := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(st)

	text, err := c.explainer.Explain(ctx, p, r)
	c.metrics.ObserveExplanation(err)

	c.mu.Lock()
	c.explaining = false
	if seq != c.explainSeq || gen != c.generation {
		st := c.snapshotLocked()
		c.mu.Unlock()
		c.logger.Debug("discarding stale explanation", "generation", gen)
		c.notify(st)
		return "", ErrStale
	}
	if err != nil {
		c.explainErr = err
		c.logger.Warn("explanation failed", "generation", gen, "error", err)
	} else {
		c.explanation = text
	}
	st = c.snapshotLocked()
	c.mu.Unlock()
	c.notify(st)
	return text, err
}

// Params returns the current parameters.
func (c *Controller) Params() waveform.Parameters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.params
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Close stops a pending debounce timer.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Controller) snapshotLocked() State {
	return State{
		Params:       c.params,
		Output:       c.output,
		OutputParams: c.outParams,
		Err:          c.err,
		Explanation:  c.explanation,
		ExplainErr:   c.explainErr,
		Explaining:   c.explaining,
		Generation:   c.generation,
		Pending:      c.computed != c.generation,
	}
}

func (c *Controller) notify(st State) {
	if c.listener != nil {
		c.listener(st)
	}
}
