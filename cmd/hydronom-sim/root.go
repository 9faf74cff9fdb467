package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"hydronom-sim/internal/logging"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "hydronom-sim",
	Short: "Hydronom vehicle telemetry feeder",
	Long:  "hydronom-sim emits synthetic telemetry for a surface boat or submarine and delivers it to an ingestion endpoint.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logging.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		logger := logging.New(os.Stderr, level)
		slog.SetDefault(logger)
		cmd.SetContext(logging.NewContext(cmd.Context(), logger))
		return nil
	},
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.AddCommand(newFeedCmd())
	rootCmd.AddCommand(newReplayCmd())
	rootCmd.AddCommand(newTokenCmd())
	rootCmd.AddCommand(newDashboardCmd())
}
