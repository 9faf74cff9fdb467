// YAML run profile loader with CUE validation integration
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"hydronom-sim/internal/telemetry"
)

// Defaults used when neither a profile nor a flag sets a value.
const (
	DefaultVehicleID = "hydronom-boat-01"
	DefaultHz        = 5
	DefaultEndpoint  = "http://localhost:5000/api/telemetry"
	DefaultToken     = "DEV_TOKEN"
	DefaultTimeout   = 3 * time.Second
	DefaultTokenTTL  = time.Hour
	DefaultDatabase  = "public"
	DefaultTable     = "hydronom_telemetry"
)

// Transport configures delivery to the ingestion endpoint.
type Transport struct {
	Endpoint    string        `yaml:"endpoint"`
	Token       string        `yaml:"token"`
	TokenSecret string        `yaml:"token_secret"`
	TokenTTL    time.Duration `yaml:"token_ttl"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Greptime configures the optional GreptimeDB tap.
type Greptime struct {
	Endpoint string `yaml:"endpoint"`
	Database string `yaml:"database"`
	Table    string `yaml:"table"`
}

// Outputs configures the secondary record consumers.
type Outputs struct {
	PrintOnly     bool     `yaml:"print_only"`
	LogFile       string   `yaml:"log_file"`
	LogMaxSizeMB  int      `yaml:"log_max_size_mb"`
	LogMaxBackups int      `yaml:"log_max_backups"`
	TUI           bool     `yaml:"tui"`
	Greptime      Greptime `yaml:"greptime"`
}

// RunConfig is resolved once at start and stays immutable for the run.
type RunConfig struct {
	VehicleID     string    `yaml:"vehicle_id"`
	AsSub         bool      `yaml:"as_sub"`
	Hz            int       `yaml:"hz"`
	LeakAfterS    int       `yaml:"leak_after_s"`
	LowBattAfterS int       `yaml:"low_batt_after_s"`
	Seed          int64     `yaml:"seed"`
	AdminAddr     string    `yaml:"admin_addr"`
	Transport     Transport `yaml:"transport"`
	Outputs       Outputs   `yaml:"outputs"`
}

// Defaults returns a RunConfig populated with the built-in defaults.
func Defaults() RunConfig {
	return RunConfig{
		VehicleID: DefaultVehicleID,
		Hz:        DefaultHz,
		Transport: Transport{
			Endpoint: DefaultEndpoint,
			Token:    DefaultToken,
			TokenTTL: DefaultTokenTTL,
			Timeout:  DefaultTimeout,
		},
		Outputs: Outputs{
			Greptime: Greptime{Database: DefaultDatabase, Table: DefaultTable},
		},
	}
}

// Class returns the vehicle class selected by the profile.
func (c RunConfig) Class() telemetry.VehicleClass {
	if c.AsSub {
		return telemetry.ClassSub
	}
	return telemetry.ClassBoat
}

// LeakAfter is the leak onset offset; zero disables the fault.
func (c RunConfig) LeakAfter() time.Duration {
	return time.Duration(c.LeakAfterS) * time.Second
}

// LowBatteryAfter is the low-battery onset offset; zero disables the fault.
func (c RunConfig) LowBatteryAfter() time.Duration {
	return time.Duration(c.LowBattAfterS) * time.Second
}

// Validate reports configuration that cannot start a run.
func (c RunConfig) Validate() error {
	if strings.TrimSpace(c.VehicleID) == "" {
		return fmt.Errorf("vehicle id required")
	}
	if c.LeakAfterS < 0 {
		return fmt.Errorf("leak onset must be >= 0, got %d", c.LeakAfterS)
	}
	if c.LowBattAfterS < 0 {
		return fmt.Errorf("low-battery onset must be >= 0, got %d", c.LowBattAfterS)
	}
	if !c.Outputs.PrintOnly && c.Transport.Endpoint == "" {
		return fmt.Errorf("transport endpoint required unless print-only")
	}
	return nil
}

// Load reads a YAML profile over the defaults after validating it against a CUE schema.
// An empty schema path skips schema validation.
func Load(configPath, cueSchemaPath string) (*RunConfig, error) {
	if cueSchemaPath != "" {
		if err := ValidateWithCue(configPath, cueSchemaPath); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := Defaults()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	slog.Info("loaded configuration", "path", configPath, "vehicle_id", cfg.VehicleID, "class", cfg.Class(), "hz", cfg.Hz)

	return &cfg, nil
}
