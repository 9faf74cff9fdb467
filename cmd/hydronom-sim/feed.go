package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"hydronom-sim/internal/admin"
	"hydronom-sim/internal/config"
	"hydronom-sim/internal/feeder"
	"hydronom-sim/internal/logging"
)

type feedOptions struct {
	configPath   string
	schemaPath   string
	vehicle      string
	hz           int
	asSub        bool
	leakAfter    int
	lowBattAfter int
	endpoint     string
	token        string
	tokenSecret  string
	timeout      time.Duration
	printOnly    bool
	logFile      string
	tui          bool
	adminAddr    string
	seed         int64
}

func newFeedCmd() *cobra.Command {
	return newFeedCmdWith(&feedOptions{})
}

func newFeedCmdWith(opts *feedOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Run the real-time telemetry feeder",
		Long:  "feed emits one telemetry record per tick for a single vehicle and posts it to the ingestion endpoint until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, opts)
			if err != nil {
				return err
			}
			return runFeed(cmd.Context(), cfg)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", "", "Path to an optional YAML run profile")
	f.StringVar(&opts.schemaPath, "schema", "schemas/feeder.cue", "Path to CUE schema for the run profile")
	f.StringVar(&opts.vehicle, "vehicle", config.DefaultVehicleID, "Vehicle identifier")
	f.IntVar(&opts.hz, "hz", config.DefaultHz, "Records per second (clamped to 1..10)")
	f.BoolVar(&opts.asSub, "as-sub", false, "Simulate a submarine instead of a surface boat")
	f.IntVar(&opts.leakAfter, "leak-after", 0, "Seconds after start when the leak fault begins (0 disables)")
	f.IntVar(&opts.lowBattAfter, "low-batt-after", 0, "Seconds after start when the low-battery fault begins (0 disables)")
	f.StringVar(&opts.endpoint, "endpoint", config.DefaultEndpoint, "Ingestion endpoint URL")
	f.StringVar(&opts.token, "token", config.DefaultToken, "Static bearer token")
	f.StringVar(&opts.tokenSecret, "token-secret", "", "HS256 secret; when set, short-lived JWTs replace the static token")
	f.DurationVar(&opts.timeout, "timeout", config.DefaultTimeout, "Per-request delivery timeout")
	f.BoolVar(&opts.printOnly, "print-only", false, "Print records to STDOUT instead of posting them")
	f.StringVar(&opts.logFile, "log-file", "", "Path to export records (JSONL, rotated)")
	f.BoolVar(&opts.tui, "tui", false, "Show the terminal dashboard")
	f.StringVar(&opts.adminAddr, "admin-addr", "", "Listen address for the admin server (empty disables)")
	f.Int64Var(&opts.seed, "seed", 0, "Random seed for reproducible runs (0 seeds from time)")
	return cmd
}

// resolveConfig layers defaults, the optional profile, environment and explicit flags.
func resolveConfig(cmd *cobra.Command, opts *feedOptions) (*config.RunConfig, error) {
	cfg := config.Defaults()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath, opts.schemaPath)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}
	applyEnv(&cfg)

	flags := cmd.Flags()
	if flags.Changed("vehicle") {
		cfg.VehicleID = opts.vehicle
	}
	if flags.Changed("hz") {
		cfg.Hz = opts.hz
	}
	if flags.Changed("as-sub") {
		cfg.AsSub = opts.asSub
	}
	if flags.Changed("leak-after") {
		cfg.LeakAfterS = opts.leakAfter
	}
	if flags.Changed("low-batt-after") {
		cfg.LowBattAfterS = opts.lowBattAfter
	}
	if flags.Changed("endpoint") {
		cfg.Transport.Endpoint = opts.endpoint
	}
	if flags.Changed("token") {
		cfg.Transport.Token = opts.token
	}
	if flags.Changed("token-secret") {
		cfg.Transport.TokenSecret = opts.tokenSecret
	}
	if flags.Changed("timeout") {
		cfg.Transport.Timeout = opts.timeout
	}
	if flags.Changed("print-only") {
		cfg.Outputs.PrintOnly = opts.printOnly
	}
	if flags.Changed("log-file") {
		cfg.Outputs.LogFile = opts.logFile
	}
	if flags.Changed("tui") {
		cfg.Outputs.TUI = opts.tui
	}
	if flags.Changed("admin-addr") {
		cfg.AdminAddr = opts.adminAddr
	}
	if flags.Changed("seed") {
		cfg.Seed = opts.seed
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *config.RunConfig) {
	if v := os.Getenv("FEEDER_ENDPOINT"); v != "" {
		cfg.Transport.Endpoint = v
	}
	if v := os.Getenv("FEEDER_TOKEN"); v != "" {
		cfg.Transport.Token = v
	}
	if v := os.Getenv("GREPTIMEDB_ENDPOINT"); v != "" {
		cfg.Outputs.Greptime.Endpoint = v
	}
	if v := os.Getenv("GREPTIMEDB_DATABASE"); v != "" {
		cfg.Outputs.Greptime.Database = v
	}
	if v := os.Getenv("GREPTIMEDB_TABLE"); v != "" {
		cfg.Outputs.Greptime.Table = v
	}
}

func runFeed(parent context.Context, cfg *config.RunConfig) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logging.FromContext(ctx)
	if cfg.Outputs.TUI {
		// the dashboard owns the terminal
		log = logging.New(io.Discard, slog.LevelInfo)
		ctx = logging.NewContext(ctx, log)
	}

	transport, err := newTransport(cfg)
	if err != nil {
		return err
	}
	taps, tui, cleanup, err := newTaps(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	opts := []feeder.Option{feeder.WithMetrics(feeder.NewMetrics(reg))}
	for _, t := range taps {
		opts = append(opts, feeder.WithTap(t))
	}
	var hub *admin.Hub
	if cfg.AdminAddr != "" {
		hub = admin.NewHub(cfg.VehicleID)
		opts = append(opts, feeder.WithTap(hub))
	}

	f, err := feeder.NewFeeder(*cfg, transport, opts...)
	if err != nil {
		return err
	}
	h := f.Start(ctx)

	adminCtx, cancelAdmin := context.WithCancel(ctx)
	adminDone := make(chan struct{})
	if cfg.AdminAddr != "" {
		srv := admin.NewServer(f, h.Stop, reg, hub)
		go func() {
			defer close(adminDone)
			if err := srv.Start(adminCtx, cfg.AdminAddr); err != nil {
				log.Error("admin server failed", "addr", cfg.AdminAddr, "err", err)
			}
		}()
		if tui != nil {
			tui.SetAdminAddr(cfg.AdminAddr)
		}
	} else {
		close(adminDone)
	}

	h.Wait()
	cancelAdmin()
	<-adminDone

	st := f.Status()
	log.Info("feed stopped",
		"run_id", st.RunID,
		"ticks", st.Ticks,
		"sent", st.Sent,
		"failed", st.Failed,
		"elapsed", strconv.FormatFloat(st.ElapsedSeconds, 'f', 1, 64)+"s",
	)
	return nil
}
