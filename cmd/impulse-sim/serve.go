package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"impulse-sim/internal/admin"
	"impulse-sim/internal/metrics"
)

var (
	serveAddr     string
	serveLogFile  string
	serveGreptime bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the web interface and JSON API",
	Long:  "serve starts the HTTP host: an interactive page, the simulate/params/state/explain API, charts and Prometheus metrics.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		p, _, err := resolveParams(cmd, cfg)
		if err != nil {
			return err
		}
		addr := cfg.Server.Addr
		if cmd.Flags().Changed("addr") {
			addr = serveAddr
		}

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m := metrics.New(reg)

		ctx := cmd.Context()
		ctrl := newController(ctx, cfg, p, m, logger)
		defer ctrl.Close()
		ctrl.Flush()

		opts := admin.Options{Defaults: cfg.Defaults, Gatherer: reg, Metrics: m, Logger: logger}
		if serveLogFile != "" || serveGreptime {
			w, cleanup, err := newWriters(cfg, writerOptions{Quiet: true, LogFile: serveLogFile, Greptime: serveGreptime}, logger)
			if err != nil {
				return err
			}
			defer cleanup()
			opts.Recorder = w
		}
		return admin.NewServer(ctrl, opts).Start(ctx, addr)
	},
}

func init() {
	addParamFlags(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address (default from config)")
	serveCmd.Flags().StringVar(&serveLogFile, "log-file", "", "Record API runs to a JSONL log")
	serveCmd.Flags().BoolVar(&serveGreptime, "greptime", false, "Export API runs to GreptimeDB")
}
