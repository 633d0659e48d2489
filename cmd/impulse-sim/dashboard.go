package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"impulse-sim/internal/dashboard"
)

var (
	dashboardOut   string
	dashboardTitle string
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Render Grafana dashboards for the GreptimeDB run tables",
	Long:  "dashboard renders Grafana dashboard JSON for the exported run tables. The datasource UID is read from " + dashboard.DatasourceEnv + ".",
	RunE: func(cmd *cobra.Command, args []string) error {
		data := dashboard.DefaultData()
		if dashboardTitle != "" {
			data.Title = dashboardTitle
		}
		paths, err := dashboard.Render(dashboardOut, data)
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}
		return nil
	},
}

func init() {
	dashboardCmd.Flags().StringVar(&dashboardOut, "out", "build", "Output directory")
	dashboardCmd.Flags().StringVar(&dashboardTitle, "title", "", "Dashboard title")
}
