package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"hydronom-sim/internal/config"
)

func parseFeed(t *testing.T, args ...string) (*config.RunConfig, error) {
	t.Helper()
	opts := &feedOptions{}
	cmd := newFeedCmdWith(opts)
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return resolveConfig(cmd, opts)
}

func TestResolveConfigDefaults(t *testing.T) {
	cfg, err := parseFeed(t)
	if err != nil {
		t.Fatalf("resolveConfig: %v", err)
	}
	want := config.Defaults()
	if cfg.VehicleID != want.VehicleID || cfg.Hz != want.Hz || cfg.AsSub {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.Transport.Endpoint != config.DefaultEndpoint || cfg.Transport.Token != config.DefaultToken {
		t.Fatalf("unexpected transport defaults %+v", cfg.Transport)
	}
}

func TestResolveConfigFlags(t *testing.T) {
	cfg, err := parseFeed(t,
		"--vehicle", "hydronom-sub-02", "--as-sub", "--hz", "20",
		"--leak-after", "10", "--low-batt-after", "5",
		"--timeout", "500ms", "--print-only", "--seed", "7",
	)
	if err != nil {
		t.Fatalf("resolveConfig: %v", err)
	}
	if cfg.VehicleID != "hydronom-sub-02" || !cfg.AsSub || cfg.Hz != 20 {
		t.Fatalf("flags not applied: %+v", cfg)
	}
	if cfg.LeakAfterS != 10 || cfg.LowBattAfterS != 5 || cfg.Seed != 7 {
		t.Fatalf("fault flags not applied: %+v", cfg)
	}
	if cfg.Transport.Timeout != 500*time.Millisecond || !cfg.Outputs.PrintOnly {
		t.Fatalf("transport flags not applied: %+v", cfg)
	}
}

func TestResolveConfigPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "feeder.yaml")
	profile := "vehicle_id: profile-boat\nhz: 2\nleak_after_s: 30\ntransport:\n  endpoint: http://profile:5000/api/telemetry\n"
	if err := os.WriteFile(path, []byte(profile), 0o644); err != nil {
		t.Fatalf("write profile: %v", err)
	}
	t.Setenv("FEEDER_ENDPOINT", "http://env:5000/api/telemetry")
	t.Setenv("GREPTIMEDB_ENDPOINT", "greptime:4001")

	cfg, err := parseFeed(t, "--config", path, "--schema", "", "--hz", "8")
	if err != nil {
		t.Fatalf("resolveConfig: %v", err)
	}
	if cfg.VehicleID != "profile-boat" || cfg.LeakAfterS != 30 {
		t.Fatalf("profile not applied: %+v", cfg)
	}
	if cfg.Hz != 8 {
		t.Fatalf("flag should override profile, hz=%d", cfg.Hz)
	}
	if cfg.Transport.Endpoint != "http://env:5000/api/telemetry" {
		t.Fatalf("env should override profile, endpoint=%s", cfg.Transport.Endpoint)
	}
	if cfg.Outputs.Greptime.Endpoint != "greptime:4001" || cfg.Outputs.Greptime.Table != config.DefaultTable {
		t.Fatalf("greptime env not applied: %+v", cfg.Outputs.Greptime)
	}

	cfg, err = parseFeed(t, "--config", path, "--schema", "", "--endpoint", "http://flag/api/telemetry")
	if err != nil {
		t.Fatalf("resolveConfig: %v", err)
	}
	if cfg.Transport.Endpoint != "http://flag/api/telemetry" {
		t.Fatalf("flag should override env, endpoint=%s", cfg.Transport.Endpoint)
	}
}

func TestResolveConfigRejects(t *testing.T) {
	if _, err := parseFeed(t, "--vehicle", ""); err == nil {
		t.Fatalf("expected error for empty vehicle id")
	}
	if _, err := parseFeed(t, "--leak-after", "-1"); err == nil {
		t.Fatalf("expected error for negative onset")
	}
	if _, err := parseFeed(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "--schema", ""); err == nil {
		t.Fatalf("expected error for missing profile")
	}
}

func TestDashboardCommand(t *testing.T) {
	dir := t.TempDir()
	cmd := newDashboardCmd()
	cmd.SetArgs([]string{"--out", dir})
	t.Setenv("GREPTIMEDB_DATASOURCE_UID", "")
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected error without datasource uid")
	}

	t.Setenv("GREPTIMEDB_DATASOURCE_UID", "uid1")
	t.Setenv("GREPTIMEDB_TABLE", "boat_telemetry")
	cmd = newDashboardCmd()
	cmd.SetArgs([]string{"--out", dir})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(dir, "grafana-dashboard.json"))
	if err != nil {
		t.Fatalf("read dashboard: %v", err)
	}
	if !strings.Contains(string(b), "boat_telemetry") {
		t.Fatalf("table from env not used")
	}
}
