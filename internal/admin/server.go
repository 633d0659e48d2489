package admin

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"impulse-sim/internal/chart"
	"impulse-sim/internal/explain"
	"impulse-sim/internal/metrics"
	"impulse-sim/internal/report"
	"impulse-sim/internal/session"
	"impulse-sim/internal/sink"
	"impulse-sim/internal/waveform"
)

//go:embed templates/index.html
var content embed.FS

// DefaultRecentRuns is how many run records the server keeps for /api/runs.
const DefaultRecentRuns = 50

// Options configures a Server. Zero values select defaults.
type Options struct {
	Defaults   waveform.Parameters
	Gatherer   prometheus.Gatherer
	Metrics    *metrics.Metrics
	Recorder   sink.RecordWriter // additional sink for /api/simulate runs
	Logger     *slog.Logger
	RecentRuns int
}

// Server is the HTTP host around a session controller.
type Server struct {
	ctrl     *session.Controller
	defaults waveform.Parameters
	tpl      *template.Template
	gatherer prometheus.Gatherer
	metrics  *metrics.Metrics
	recorder sink.RecordWriter
	logger   *slog.Logger

	mu     sync.Mutex
	recent []sink.Record
	limit  int
}

// NewServer creates a Server for ctrl.
func NewServer(ctrl *session.Controller, opts Options) *Server {
	tpl := template.Must(template.New("index.html").Funcs(template.FuncMap{
		"fixed2":  func(v float64) string { return fmt.Sprintf("%.2f", v) },
		"percent": func(v float64) float64 { return v * 100 },
		"deref":   func(b *bool) bool { return b != nil && *b },
	}).ParseFS(content, "templates/index.html"))
	s := &Server{
		ctrl:     ctrl,
		defaults: opts.Defaults,
		tpl:      tpl,
		gatherer: opts.Gatherer,
		metrics:  opts.Metrics,
		recorder: opts.Recorder,
		logger:   opts.Logger,
		limit:    opts.RecentRuns,
	}
	if s.defaults == (waveform.Parameters{}) {
		s.defaults = waveform.DefaultParameters()
	}
	if s.gatherer == nil {
		s.gatherer = prometheus.DefaultGatherer
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.limit <= 0 {
		s.limit = DefaultRecentRuns
	}
	return s
}

// Write keeps rec in the recent-runs list, making the server usable as a sink.
func (s *Server) Write(rec sink.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recent = append(s.recent, rec.WithoutWaveform())
	if over := len(s.recent) - s.limit; over > 0 {
		s.recent = append([]sink.Record(nil), s.recent[over:]...)
	}
	return nil
}

// Recent returns the kept run records, oldest first.
func (s *Server) Recent() []sink.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sink.Record(nil), s.recent...)
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/api/simulate", s.handleSimulate)
	mux.HandleFunc("/api/params", s.handleParams)
	mux.HandleFunc("/api/state", s.handleState)
	mux.HandleFunc("/api/explain", s.handleExplain)
	mux.HandleFunc("/api/runs", s.handleRuns)
	mux.HandleFunc("/chart", s.handleChart)
	mux.HandleFunc("/chart.png", s.handleChartPNG)
	mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	return mux
}

// Start serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("admin server listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

type errorView struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func newErrorView(err error) *errorView {
	if err == nil {
		return nil
	}
	v := &errorView{Error: err.Error()}
	if kind, ok := waveform.KindOf(err); ok {
		v.Kind = kind.String()
	}
	return v
}

type simulateView struct {
	Params         waveform.Parameters   `json:"params"`
	Result         waveform.Result       `json:"result"`
	Classification report.Classification `json:"classification"`
	Efficiency     float64               `json:"efficiency"`
	Waveform       []waveform.Point      `json:"waveform,omitempty"`
}

type stateView struct {
	Params         waveform.Parameters    `json:"params"`
	ResultParams   *waveform.Parameters   `json:"result_params,omitempty"`
	Result         *waveform.Result       `json:"result,omitempty"`
	Classification *report.Classification `json:"classification,omitempty"`
	Efficiency     float64                `json:"efficiency,omitempty"`
	Error          *errorView             `json:"error,omitempty"`
	Explanation    string                 `json:"explanation,omitempty"`
	ExplainError   string                 `json:"explain_error,omitempty"`
	Explaining     bool                   `json:"explaining"`
	Pending        bool                   `json:"pending"`
	Generation     uint64                 `json:"generation"`
}

func newStateView(st session.State) stateView {
	v := stateView{
		Params:      st.Params,
		Error:       newErrorView(st.Err),
		Explanation: st.Explanation,
		Explaining:  st.Explaining,
		Pending:     st.Pending,
		Generation:  st.Generation,
	}
	if st.Output != nil {
		r, p := st.Output.Result, st.OutputParams
		c := report.Classify(r)
		v.ResultParams = &p
		v.Result = &r
		v.Classification = &c
		v.Efficiency = report.Efficiency(p, r)
	}
	if st.ExplainErr != nil {
		v.ExplainError = st.ExplainErr.Error()
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func queryLookup(r *http.Request) func(string) (string, bool) {
	q := r.URL.Query()
	return func(k string) (string, bool) {
		if !q.Has(k) {
			return "", false
		}
		return q.Get(k), true
	}
}

// handleSimulate runs the engine statelessly on the query parameters layered over the defaults.
func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	p, err := report.ApplyValues(s.defaults, queryLookup(r))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorView{Error: err.Error()})
		return
	}
	start := time.Now()
	out, err := waveform.Simulate(p)
	s.metrics.ObserveSimulation(time.Since(start), out, err)
	rec := sink.NewRecord("api", p, out, err, time.Now())
	s.Write(rec)
	if s.recorder != nil {
		if werr := s.recorder.Write(rec); werr != nil {
			s.logger.Warn("record write failed", "run_id", rec.RunID, "error", werr)
		}
	}
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, newErrorView(err))
		return
	}
	v := simulateView{
		Params:         p,
		Result:         out.Result,
		Classification: report.Classify(out.Result),
		Efficiency:     report.Efficiency(p, out.Result),
	}
	if r.URL.Query().Get("waveform") != "false" {
		v.Waveform = out.Waveform
	}
	writeJSON(w, http.StatusOK, v)
}

// handleParams reads or replaces the controller parameters. POST bodies are
// decoded over the current parameters, so partial updates are allowed.
func (s *Server) handleParams(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.ctrl.Params())
	case http.MethodPost:
		p := s.ctrl.Params()
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			writeJSON(w, http.StatusBadRequest, errorView{Error: err.Error()})
			return
		}
		s.ctrl.SetParams(p)
		writeJSON(w, http.StatusAccepted, newStateView(s.ctrl.Snapshot()))
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newStateView(s.ctrl.Snapshot()))
}

func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	text, err := s.ctrl.Explain(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"explanation": text})
	case errors.Is(err, session.ErrNoResult), errors.Is(err, session.ErrExplainInFlight),
		errors.Is(err, session.ErrStale), errors.Is(err, session.ErrPending):
		writeJSON(w, http.StatusConflict, errorView{Error: err.Error()})
	case errors.Is(err, session.ErrNoExplainer):
		writeJSON(w, http.StatusServiceUnavailable, errorView{Error: err.Error()})
	case errors.Is(err, explain.ErrCommunication):
		writeJSON(w, http.StatusBadGateway, errorView{Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, errorView{Error: err.Error()})
	}
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Recent())
}

func (s *Server) currentOutput(w http.ResponseWriter) *waveform.Output {
	st := s.ctrl.Snapshot()
	if st.Output == nil {
		http.Error(w, "no simulation result", http.StatusNotFound)
		return nil
	}
	return st.Output
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	out := s.currentOutput(w)
	if out == nil {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := chart.RenderHTML(w, "Impulse Waveform", out); err != nil {
		s.logger.Error("chart render failed", "error", err)
	}
}

func (s *Server) handleChartPNG(w http.ResponseWriter, r *http.Request) {
	out := s.currentOutput(w)
	if out == nil {
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if err := chart.WritePlot(w, "png", out); err != nil {
		s.logger.Error("plot render failed", "error", err)
	}
}

type indexField struct {
	report.Control
	Value float64
}

// handleIndex renders the control page. Query parameters, when present, are applied and computed first.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if len(r.URL.Query()) > 0 {
		p, err := report.ApplyValues(s.ctrl.Params(), queryLookup(r))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.ctrl.SetParams(p)
		s.ctrl.Flush()
	}
	st := s.ctrl.Snapshot()
	var fields []indexField
	for _, c := range report.Controls() {
		fields = append(fields, indexField{Control: c, Value: c.Get(st.Params)})
	}
	data := struct {
		Fields []indexField
		State  stateView
		Cards  []report.Card
		Total  float64
	}{
		Fields: fields,
		State:  newStateView(st),
		Total:  st.Params.TotalChargingVoltage(),
	}
	if st.Output != nil {
		data.Cards = report.Cards(st.Output.Result)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tpl.Execute(w, data); err != nil {
		s.logger.Error("index render failed", "error", err)
	}
}
