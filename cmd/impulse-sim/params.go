package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"impulse-sim/internal/config"
	"impulse-sim/internal/report"
	"impulse-sim/internal/waveform"
)

func flagName(key string) string { return strings.ReplaceAll(key, "_", "-") }

// addParamFlags registers one flag per circuit parameter plus --preset.
func addParamFlags(cmd *cobra.Command) {
	for _, c := range report.Controls() {
		usage := c.Label
		if c.Unit != "" {
			usage += " in " + c.Unit
		}
		cmd.Flags().String(flagName(c.Key), "", usage)
	}
	cmd.Flags().String("preset", "", "Named parameter preset from the config")
}

// baseParams returns the preset named by --preset, or the configured defaults.
func baseParams(cmd *cobra.Command, cfg *config.Config) (waveform.Parameters, string, error) {
	name, _ := cmd.Flags().GetString("preset")
	if name == "" {
		return cfg.Defaults, "", nil
	}
	p, err := cfg.Preset(name)
	if err != nil {
		return waveform.Parameters{}, "", fmt.Errorf("%w (available: %s)", err, strings.Join(cfg.PresetNames(), ", "))
	}
	return p, name, nil
}

// changedFlag reads a parameter flag only when the user set it.
func changedFlag(cmd *cobra.Command) func(key string) (string, bool) {
	return func(key string) (string, bool) {
		f := cmd.Flags().Lookup(flagName(key))
		if f == nil || !f.Changed {
			return "", false
		}
		return f.Value.String(), true
	}
}

// resolveParams layers the parameter flags over the base parameters.
func resolveParams(cmd *cobra.Command, cfg *config.Config) (waveform.Parameters, string, error) {
	base, label, err := baseParams(cmd, cfg)
	if err != nil {
		return base, label, err
	}
	p, err := report.ApplyValues(base, changedFlag(cmd))
	if err != nil {
		return p, label, fmt.Errorf("invalid parameter flag: %w", err)
	}
	if label == "" {
		label = "cli"
	}
	return p, label, nil
}
