package main

import (
	"fmt"
	"os"

	"github.com/muesli/reflow/wordwrap"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"impulse-sim/internal/report"
	"impulse-sim/internal/waveform"
)

const defaultWrapWidth = 80

var explainCmd = &cobra.Command{
	Use:   "explain",
	Short: "Simulate and ask the AI service to explain the result",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		p, _, err := resolveParams(cmd, cfg)
		if err != nil {
			return err
		}
		out, err := waveform.Simulate(p)
		if err != nil {
			return err
		}
		e, err := newExplainer(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		text, err := e.Explain(cmd.Context(), p, out.Result)
		if err != nil {
			return err
		}

		width := defaultWrapWidth
		if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
			width = w
		}
		stdout := cmd.OutOrStdout()
		for _, c := range report.Cards(out.Result) {
			line := fmt.Sprintf("%-16s %s %s", c.Title, c.Value, c.Unit)
			if c.Target != nil {
				line += fmt.Sprintf("  (%s)", c.TargetLabel())
			}
			fmt.Fprintln(stdout, line)
		}
		fmt.Fprintf(stdout, "%-16s %s\n\n", "Shape", report.Classify(out.Result).Label())
		fmt.Fprintln(stdout, wordwrap.String(text, width))
		return nil
	},
}

func init() {
	addParamFlags(explainCmd)
}
