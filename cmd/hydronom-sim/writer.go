package main

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"hydronom-sim/internal/auth"
	"hydronom-sim/internal/config"
	"hydronom-sim/internal/feeder"
)

// newTokenSource returns a JWT source when a secret is configured, the static token otherwise.
func newTokenSource(cfg *config.RunConfig) (auth.TokenSource, error) {
	if cfg.Transport.TokenSecret != "" {
		return auth.NewJWTSource(cfg.Transport.TokenSecret, cfg.VehicleID, cfg.Transport.TokenTTL)
	}
	return auth.Static(cfg.Transport.Token), nil
}

// newTransport posts to the endpoint, or prints records in print-only mode.
func newTransport(cfg *config.RunConfig) (feeder.Transport, error) {
	if cfg.Outputs.PrintOnly {
		if cfg.Outputs.TUI {
			return feeder.DiscardTransport{}, nil
		}
		return feeder.WriterTransport{W: newConsoleWriter(cfg)}, nil
	}
	tokens, err := newTokenSource(cfg)
	if err != nil {
		return nil, err
	}
	return feeder.NewHTTPTransport(cfg.Transport.Endpoint, tokens, cfg.Transport.Timeout)
}

// newConsoleWriter picks colorized output for terminals and JSON lines otherwise.
func newConsoleWriter(cfg *config.RunConfig) feeder.TelemetryWriter {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		return feeder.NewColorStdoutWriter(cfg)
	}
	return feeder.NewJSONStdoutWriter()
}

// newTaps sets up the secondary record consumers selected by cfg.
// It returns the taps, the TUI writer if enabled, and a cleanup function to close any resources.
func newTaps(cfg *config.RunConfig) ([]feeder.TelemetryWriter, *feeder.TUIWriter, func(), error) {
	var taps []feeder.TelemetryWriter
	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
	}

	if cfg.Outputs.LogFile != "" {
		fw, err := feeder.NewFileWriter(cfg.Outputs.LogFile, cfg.Outputs.LogMaxSizeMB, cfg.Outputs.LogMaxBackups)
		if err != nil {
			return nil, nil, nil, err
		}
		taps = append(taps, fw)
		closers = append(closers, fw.Close)
	}
	if g := cfg.Outputs.Greptime; g.Endpoint != "" {
		gw, err := feeder.NewGreptimeDBWriter(g.Endpoint, g.Database, g.Table)
		if err != nil {
			cleanup()
			return nil, nil, nil, fmt.Errorf("init GreptimeDB writer: %w", err)
		}
		taps = append(taps, gw)
	}
	var tui *feeder.TUIWriter
	if cfg.Outputs.TUI {
		tui = feeder.NewTUIWriter(cfg)
		taps = append(taps, tui)
		closers = append(closers, tui.Close)
	}
	return taps, tui, cleanup, nil
}
