package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"hydronom-sim/internal/config"
	"hydronom-sim/internal/feeder"
	"hydronom-sim/internal/logging"
)

func newReplayCmd() *cobra.Command {
	var (
		input     string
		speed     float64
		printOnly bool
		endpoint  string
		token     string
		timeout   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay a telemetry log file",
		Long:  "replay sends records from a JSONL log back to the ingestion endpoint or STDOUT, keeping their original spacing.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if input == "" {
				return fmt.Errorf("input file required")
			}
			cfg := config.Defaults()
			applyEnv(&cfg)
			if cmd.Flags().Changed("endpoint") {
				cfg.Transport.Endpoint = endpoint
			}
			if cmd.Flags().Changed("token") {
				cfg.Transport.Token = token
			}
			cfg.Transport.Timeout = timeout
			cfg.Outputs.PrintOnly = printOnly

			transport, err := newTransport(&cfg)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			stats, err := feeder.ReplayLogFile(ctx, input, transport, speed)
			logging.FromContext(ctx).Info("replay finished", "input", input, "sent", stats.Sent, "failed", stats.Failed)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&input, "input", "", "Path to telemetry log file")
	f.Float64Var(&speed, "speed", 1.0, "Playback speed multiplier (0 sends without delay)")
	f.BoolVar(&printOnly, "print-only", false, "Print records to STDOUT instead of posting them")
	f.StringVar(&endpoint, "endpoint", config.DefaultEndpoint, "Ingestion endpoint URL")
	f.StringVar(&token, "token", config.DefaultToken, "Static bearer token")
	f.DurationVar(&timeout, "timeout", config.DefaultTimeout, "Per-request delivery timeout")
	cmd.MarkFlagRequired("input")
	return cmd
}
