package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"impulse-sim/internal/chart"
	"impulse-sim/internal/sink"
	"impulse-sim/internal/waveform"
)

const (
	asciiWidth  = 72
	asciiHeight = 12
)

var (
	simJSON     bool
	simWaveform bool
	simPlot     string
	simHTML     string
	simASCII    bool
	simLogFile  string
	simGreptime bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run one simulation and report its metrics",
	Long:  "simulate computes the impulse waveform for one parameter set and prints peak voltage, front time, tail time and the standard-shape classification.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		p, label, err := resolveParams(cmd, cfg)
		if err != nil {
			return err
		}

		start := time.Now()
		out, simErr := waveform.Simulate(p)
		logger.Debug("simulation finished", "label", label, "duration", time.Since(start), "ok", simErr == nil)

		w, cleanup, err := newWriters(cfg, writerOptions{
			JSON:     simJSON,
			LogFile:  simLogFile,
			Greptime: simGreptime,
			Waveform: simWaveform,
		}, logger)
		if err != nil {
			return err
		}
		defer cleanup()

		rec := sink.NewRecord(label, p, out, simErr, time.Now())
		if !simWaveform {
			rec = rec.WithoutWaveform()
		}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
		if simErr != nil {
			return simErr
		}

		if simASCII {
			fmt.Fprintln(os.Stdout, chart.ASCII(out.Waveform, asciiWidth, asciiHeight))
		}
		if simPlot != "" {
			if err := chart.SavePlot(simPlot, out); err != nil {
				return err
			}
			logger.Info("plot written", "path", simPlot)
		}
		if simHTML != "" {
			f, err := os.Create(simHTML)
			if err != nil {
				return err
			}
			defer f.Close()
			if err := chart.RenderHTML(f, "Impulse Waveform", out); err != nil {
				return err
			}
			logger.Info("chart written", "path", simHTML)
		}
		return nil
	},
}

func init() {
	addParamFlags(simulateCmd)
	simulateCmd.Flags().BoolVar(&simJSON, "json", false, "Print JSON lines even on a terminal")
	simulateCmd.Flags().BoolVar(&simWaveform, "waveform", false, "Include the sampled waveform in the output")
	simulateCmd.Flags().StringVar(&simPlot, "plot", "", "Write a PNG or SVG plot of the waveform")
	simulateCmd.Flags().StringVar(&simHTML, "html", "", "Write an interactive HTML chart of the waveform")
	simulateCmd.Flags().BoolVar(&simASCII, "ascii", false, "Draw the waveform in the terminal")
	simulateCmd.Flags().StringVar(&simLogFile, "log-file", "", "Append the run to a JSONL log (samples in <file>.waveform)")
	simulateCmd.Flags().BoolVar(&simGreptime, "greptime", false, "Export the run to GreptimeDB")
}
