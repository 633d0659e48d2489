// Package metrics instruments simulation and explanation runs with prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"impulse-sim/internal/waveform"
)

// Outcome label values besides the waveform error kinds.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	simulations  *prometheus.CounterVec
	duration     prometheus.Histogram
	explanations *prometheus.CounterVec
	lastPeak     prometheus.Gauge
}

// New creates the collectors and registers them with reg. A nil reg uses prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		simulations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "impulse_simulations_total",
			Help: "Simulation runs by outcome (ok or error kind).",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "impulse_simulation_duration_seconds",
			Help:    "Wall time of a single waveform simulation.",
			Buckets: prometheus.ExponentialBuckets(0.00001, 2, 14),
		}),
		explanations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "impulse_explanations_total",
			Help: "Explanation requests by outcome.",
		}, []string{"outcome"}),
		lastPeak: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "impulse_last_peak_kv",
			Help: "Peak voltage of the most recent successful simulation.",
		}),
	}
	reg.MustRegister(m.simulations, m.duration, m.explanations, m.lastPeak)
	return m
}

// SimulationOutcome maps a simulation error to its label value.
func SimulationOutcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	if kind, ok := waveform.KindOf(err); ok {
		return kind.String()
	}
	return OutcomeError
}

// ObserveSimulation records one run. out may be nil on failure.
func (m *Metrics) ObserveSimulation(dur time.Duration, out *waveform.Output, err error) {
	if m == nil {
		return
	}
	m.simulations.WithLabelValues(SimulationOutcome(err)).Inc()
	m.duration.Observe(dur.Seconds())
	if err == nil && out != nil {
		m.lastPeak.Set(out.Result.PeakVoltage)
	}
}

// ObserveExplanation records one explanation request.
func (m *Metrics) ObserveExplanation(err error) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	m.explanations.WithLabelValues(outcome).Inc()
}
