package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"hydronom-sim/internal/config"
	"hydronom-sim/internal/dashboard"
	"hydronom-sim/internal/logging"
)

func newDashboardCmd() *cobra.Command {
	var (
		outDir string
		table  string
	)
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Render the Grafana dashboard for the GreptimeDB table",
		Long:  "dashboard writes a Grafana dashboard JSON that charts the telemetry table, using GREPTIMEDB_DATASOURCE_UID as datasource.",
		RunE: func(cmd *cobra.Command, args []string) error {
			uid := os.Getenv("GREPTIMEDB_DATASOURCE_UID")
			if uid == "" {
				return fmt.Errorf("environment variable GREPTIMEDB_DATASOURCE_UID not set")
			}
			if !cmd.Flags().Changed("table") {
				if v := os.Getenv("GREPTIMEDB_TABLE"); v != "" {
					table = v
				}
			}
			path, err := dashboard.RenderFile(outDir, dashboard.Options{DatasourceUID: uid, Table: table})
			if err != nil {
				return err
			}
			logging.FromContext(cmd.Context()).Info("dashboard written", "path", path, "table", table)
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "out", "build", "Output directory")
	cmd.Flags().StringVar(&table, "table", config.DefaultTable, "GreptimeDB table to chart")
	return cmd
}
