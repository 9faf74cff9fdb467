package feeder

import "hydronom-sim/internal/telemetry"

// TelemetryWriter is an interface to support different record consumers.
type TelemetryWriter interface {
	Write(telemetry.Record) error
}
