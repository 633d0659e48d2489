package main

import (
	"github.com/spf13/cobra"

	"impulse-sim/internal/logging"
	"impulse-sim/internal/session"
	"impulse-sim/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Explore parameters interactively in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := setup()
		if err != nil {
			return err
		}
		p, _, err := resolveParams(cmd, cfg)
		if err != nil {
			return err
		}
		// The alternate screen owns the terminal; log lines would corrupt it.
		logger := logging.Discard()
		relay := &tui.Relay{}
		ctrl := newController(cmd.Context(), cfg, p, nil, logger, session.WithListener(relay.Listener()))
		defer ctrl.Close()
		return tui.Run(cmd.Context(), ctrl, relay, cfg.Defaults)
	},
}

func init() {
	addParamFlags(tuiCmd)
}
