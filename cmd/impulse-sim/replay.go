package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"impulse-sim/internal/sink"
)

var (
	replayInput      string
	replaySpeed      float64
	replayPrintOnly  bool
	replaySkipFailed bool
	replayResimulate bool
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a run log file",
	Long:  "replay feeds run records from a JSONL log back into GreptimeDB or STDOUT, keeping their relative timing.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if replayInput == "" {
			return fmt.Errorf("input file required")
		}
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		writer, err := replayWriter(cfg, replayPrintOnly, replayResimulate, logger)
		if err != nil {
			return err
		}
		// Failed runs are only printed by default; the database gets successful runs.
		skipFailed := !replayPrintOnly
		if cmd.Flags().Changed("skip-failed") {
			skipFailed = replaySkipFailed
		}
		stats, err := sink.ReplayFile(cmd.Context(), replayInput, writer, sink.ReplayOptions{
			Speed:      replaySpeed,
			SkipFailed: skipFailed,
			Resimulate: replayResimulate,
			Logger:     logger,
		})
		logger.Info("replay finished", "replayed", stats.Replayed, "skipped_failed", stats.Failed, "rejected", stats.Rejected)
		return err
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayInput, "input", "", "Path to run log file")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1.0, "Playback speed multiplier (0 = no delay)")
	replayCmd.Flags().BoolVar(&replayPrintOnly, "print-only", false, "Print runs to STDOUT instead of writing to DB")
	replayCmd.Flags().BoolVar(&replaySkipFailed, "skip-failed", false, "Drop runs that ended in a simulation error (default: on unless --print-only)")
	replayCmd.Flags().BoolVar(&replayResimulate, "resimulate", false, "Recompute successful runs to restore waveform samples")
	replayCmd.MarkFlagRequired("input")
}
