package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"impulse-sim/internal/config"
	"impulse-sim/internal/report"
	"impulse-sim/internal/sink"
	"impulse-sim/internal/sweep"
)

var (
	sweepWorkers  int
	sweepMaxRuns  int
	sweepJSON     bool
	sweepWaveform bool
	sweepLogFile  string
	sweepGreptime bool
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Simulate a grid of parameter sets",
	Long: `sweep expands parameter ranges (from:to[:step]) into a grid and simulates every set concurrently.
Without range flags the grid from the sweep section of the config is used.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		base, label, err := baseParams(cmd, cfg)
		if err != nil {
			return err
		}
		if label == "" {
			label = "sweep"
		}
		grid, err := gridFromFlags(cmd, cfg)
		if err != nil {
			return err
		}
		maxRuns := cfg.Sweep.MaxRuns
		if cmd.Flags().Changed("max-runs") {
			maxRuns = sweepMaxRuns
		}
		sets, err := sweep.Expand(base, grid, maxRuns)
		if err != nil {
			return err
		}
		workers := cfg.Sweep.Workers
		if cmd.Flags().Changed("workers") {
			workers = sweepWorkers
		}

		w, cleanup, err := newWriters(cfg, writerOptions{
			JSON:     sweepJSON,
			LogFile:  sweepLogFile,
			Greptime: sweepGreptime,
			Waveform: sweepWaveform,
		}, logger)
		if err != nil {
			return err
		}
		defer cleanup()

		logger.Info("sweep started", "runs", len(sets), "workers", workers)
		start := time.Now()
		outcomes, runErr := sweep.Run(cmd.Context(), sets, sweep.Options{Workers: workers, Logger: logger})

		now := time.Now()
		recs := make([]sink.Record, 0, len(outcomes))
		for _, o := range outcomes {
			if o.Output == nil && o.Err == nil {
				continue
			}
			rec := sink.NewRecord(fmt.Sprintf("%s-%d", label, o.Index), o.Params, o.Output, o.Err, now)
			if !sweepWaveform {
				rec = rec.WithoutWaveform()
			}
			recs = append(recs, rec)
		}
		if err := sink.WriteAll(w, recs); err != nil {
			return fmt.Errorf("write records: %w", err)
		}

		sum := sweep.Summarize(outcomes)
		logger.Info("sweep finished",
			"total", sum.Total, "ok", sum.OK, "standard", sum.Standard,
			"errors", sum.Errors, "duration", time.Since(start))
		return runErr
	},
}

// gridFromFlags builds the sweep grid from range flags, falling back to the config grid.
func gridFromFlags(cmd *cobra.Command, cfg *config.Config) (sweep.Grid, error) {
	var g sweep.Grid
	fields := map[string]**sweep.Range{
		"stages":               &g.Stages,
		"charging_voltage_kv":  &g.ChargingVoltage,
		"stage_capacitance_nf": &g.StageCapacitance,
		"load_capacitance_pf":  &g.LoadCapacitance,
		"front_resistor_ohm":   &g.FrontResistor,
		"tail_resistor_ohm":    &g.TailResistor,
	}
	lookup := changedFlag(cmd)
	set := false
	for _, c := range report.Controls() {
		raw, ok := lookup(c.Key)
		if !ok {
			continue
		}
		r, err := sweep.ParseRange(raw)
		if err != nil {
			return g, fmt.Errorf("--%s: %w", flagName(c.Key), err)
		}
		*fields[c.Key] = &r
		set = true
	}
	if !set {
		return cfg.Sweep.Grid, nil
	}
	return g, nil
}

func init() {
	for _, c := range report.Controls() {
		sweepCmd.Flags().String(flagName(c.Key), "", fmt.Sprintf("Range for %s as from:to[:step]", c.Label))
	}
	sweepCmd.Flags().String("preset", "", "Named parameter preset used as the sweep base")
	sweepCmd.Flags().IntVar(&sweepWorkers, "workers", 0, "Concurrent simulations (default from config, 0 = GOMAXPROCS)")
	sweepCmd.Flags().IntVar(&sweepMaxRuns, "max-runs", sweep.DefaultMaxRuns, "Refuse grids larger than this")
	sweepCmd.Flags().BoolVar(&sweepJSON, "json", false, "Print JSON lines even on a terminal")
	sweepCmd.Flags().BoolVar(&sweepWaveform, "waveform", false, "Include sampled waveforms in the output")
	sweepCmd.Flags().StringVar(&sweepLogFile, "log-file", "", "Write runs to a JSONL log (samples in <file>.waveform)")
	sweepCmd.Flags().BoolVar(&sweepGreptime, "greptime", false, "Export runs to GreptimeDB")
}
