package main

import (
	"context"
	"log/slog"

	"impulse-sim/internal/config"
	"impulse-sim/internal/explain"
	"impulse-sim/internal/metrics"
	"impulse-sim/internal/session"
	"impulse-sim/internal/waveform"
)

// newExplainer builds the Gemini explainer from the explain section of the config.
func newExplainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (explain.Explainer, error) {
	key := cfg.Explain.ResolveAPIKey()
	if key == "" {
		return nil, explain.ErrMissingAPIKey
	}
	g, err := explain.NewGeminiExplainer(ctx, key, cfg.Explain.Model, logger)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// newController wires a session controller for the interactive hosts.
// Explanations are disabled with a warning when no explainer can be built.
func newController(ctx context.Context, cfg *config.Config, p waveform.Parameters, m *metrics.Metrics, logger *slog.Logger, extra ...session.Option) *session.Controller {
	opts := []session.Option{
		session.WithParams(p),
		session.WithDebounce(cfg.Session.Debounce),
		session.WithRetainOnError(cfg.Session.RetainOnError),
		session.WithLogger(logger),
		session.WithMetrics(m),
	}
	if e, err := newExplainer(ctx, cfg, logger); err != nil {
		logger.Warn("explanations disabled", "error", err)
	} else {
		opts = append(opts, session.WithExplainer(e))
	}
	return session.New(append(opts, extra...)...)
}
