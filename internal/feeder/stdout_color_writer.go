// ColorStdoutWriter prints human-friendly, colorized telemetry to STDOUT.
package feeder

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"hydronom-sim/internal/config"
	"hydronom-sim/internal/telemetry"
)

const (
	colorReset   = "\x1b[0m"
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorBlue    = "\x1b[34m"
	colorMagenta = "\x1b[35m"
	colorCyan    = "\x1b[36m"
	colorGray    = "\x1b[90m"
)

// ColorStdoutWriter prints one colorized line per record and highlights alerts.
type ColorStdoutWriter struct {
	cfg  *config.RunConfig
	out  io.Writer
	once sync.Once
}

// NewColorStdoutWriter creates a ColorStdoutWriter writing to os.Stdout.
func NewColorStdoutWriter(cfg *config.RunConfig) *ColorStdoutWriter {
	return &ColorStdoutWriter{cfg: cfg, out: os.Stdout}
}

func (w *ColorStdoutWriter) printOverview() {
	if w.cfg == nil {
		return
	}
	fmt.Fprintln(w.out, "Feed Configuration:")
	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Vehicle:\t%s (%s)\n", w.cfg.VehicleID, w.cfg.Class())
	fmt.Fprintf(tw, "Rate (Hz):\t%d\n", w.cfg.Hz)
	fmt.Fprintf(tw, "Leak After:\t%s\n", onset(w.cfg.LeakAfter()))
	fmt.Fprintf(tw, "Low Battery After:\t%s\n", onset(w.cfg.LowBatteryAfter()))
	fmt.Fprintf(tw, "Endpoint:\t%s\n", w.cfg.Transport.Endpoint)
	tw.Flush()
	fmt.Fprintln(w.out)
}

func onset(d time.Duration) string {
	if d <= 0 {
		return "disabled"
	}
	return d.String()
}

// Write outputs a single record in colorized format.
func (w *ColorStdoutWriter) Write(row telemetry.Record) error {
	w.once.Do(w.printOverview)

	fmt.Fprintf(w.out, "%s[%s]%s ", colorGray, row.Timestamp.Format(time.RFC3339), colorReset)
	fmt.Fprintf(w.out, "%s%s/%s%s ", colorBlue, row.Vehicle.ID, row.Vehicle.Type, colorReset)
	fmt.Fprintf(w.out, "%swp=%d%s ", colorMagenta, row.Mission.WaypointIndex, colorReset)
	fmt.Fprintf(w.out, "%slat=%.5f lon=%.5f%s ", colorGreen, row.Pose.Lat, row.Pose.Lon, colorReset)
	fmt.Fprintf(w.out, "%shdg=%.1f spd=%.2f%s ", colorCyan, row.Pose.HeadingDeg, row.Pose.SpeedMPS, colorReset)
	fmt.Fprintf(w.out, "%sdepth=%.1f ballast=%d%s ", colorBlue, row.DepthM, row.Ballast.LevelPct, colorReset)
	fmt.Fprintf(w.out, "%sbatt=%.2fV soc=%.1f%%%s ", colorYellow, row.Battery.Voltage, row.Battery.SocPct, colorReset)
	fmt.Fprintf(w.out, "%stemp=%.1fC%s", colorYellow, row.TempC, colorReset)
	if alerts := telemetry.Alerts(row); len(alerts) > 0 {
		names := make([]string, len(alerts))
		for i, a := range alerts {
			names[i] = string(a)
		}
		fmt.Fprintf(w.out, " %sALERT %s%s", colorRed, strings.Join(names, " "), colorReset)
	}
	_, err := fmt.Fprintln(w.out)
	return err
}
