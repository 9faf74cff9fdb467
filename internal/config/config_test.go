package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"hydronom-sim/internal/telemetry"
)

const schemaPath = "../../schemas/feeder.cue"

func writeProfile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "feeder.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func TestLoadConfig_Valid(t *testing.T) {
	path := writeProfile(t, `
vehicle_id: hydronom-sub-07
as_sub: true
hz: 8
leak_after_s: 10
transport:
  timeout: 2s
outputs:
  log_file: /tmp/x.jsonl
`)
	cfg, err := Load(path, schemaPath)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.VehicleID != "hydronom-sub-07" || cfg.Class() != telemetry.ClassSub || cfg.Hz != 8 {
		t.Errorf("unexpected run data: %+v", cfg)
	}
	if cfg.LeakAfter() != 10*time.Second || cfg.LowBatteryAfter() != 0 {
		t.Errorf("unexpected onsets: leak=%v lowbatt=%v", cfg.LeakAfter(), cfg.LowBatteryAfter())
	}
	if cfg.Transport.Timeout != 2*time.Second {
		t.Errorf("timeout = %v, want 2s", cfg.Transport.Timeout)
	}
	// untouched fields keep defaults
	if cfg.Transport.Endpoint != DefaultEndpoint || cfg.Transport.Token != DefaultToken {
		t.Errorf("defaults lost: %+v", cfg.Transport)
	}
	if cfg.Outputs.Greptime.Table != DefaultTable {
		t.Errorf("greptime table = %q, want %q", cfg.Outputs.Greptime.Table, DefaultTable)
	}
}

func TestLoadConfig_SchemaRejects(t *testing.T) {
	cases := map[string]string{
		"hz too high":      "hz: 5000\n",
		"empty vehicle id": "vehicle_id: \"\"\n",
		"negative onset":   "leak_after_s: -3\n",
		"bad endpoint":     "transport:\n  endpoint: ftp://x\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeProfile(t, body), schemaPath); err == nil {
				t.Fatalf("expected schema validation error")
			}
		})
	}
}

func TestLoadConfig_NoSchema(t *testing.T) {
	cfg, err := Load(writeProfile(t, "hz: 3\n"), "")
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Hz != 3 || cfg.VehicleID != DefaultVehicleID {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), ""); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	ok := Defaults()
	if err := ok.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}

	cases := map[string]func(*RunConfig){
		"empty vehicle":  func(c *RunConfig) { c.VehicleID = "  " },
		"negative leak":  func(c *RunConfig) { c.LeakAfterS = -1 },
		"negative batt":  func(c *RunConfig) { c.LowBattAfterS = -1 },
		"empty endpoint": func(c *RunConfig) { c.Transport.Endpoint = "" },
	}
	for name, mod := range cases {
		c := Defaults()
		mod(&c)
		if err := c.Validate(); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}

	printOnly := Defaults()
	printOnly.Transport.Endpoint = ""
	printOnly.Outputs.PrintOnly = true
	if err := printOnly.Validate(); err != nil {
		t.Errorf("print-only without endpoint should validate: %v", err)
	}
}
