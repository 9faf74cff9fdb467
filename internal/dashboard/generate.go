// Package dashboard renders a Grafana dashboard for the GreptimeDB telemetry table.
package dashboard

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"hydronom-sim/internal/telemetry"
)

const templateFile = "grafana-dashboard.json.tmpl"

//go:embed templates/grafana-dashboard.json.tmpl
var content embed.FS

// Options selects the datasource and table the dashboard queries.
type Options struct {
	Title         string
	UID           string
	DatasourceUID string
	Table         string
}

// Panel is one time series or stat panel bound to a table column.
type Panel struct {
	Title        string
	Type         string
	Column       string
	Unit         string
	BaseColor    string
	AlertColor   string
	HasThreshold bool
	Threshold    float64
}

// Panels returns the dashboard panels. Thresholds match the alert rules.
func Panels() []Panel {
	return []Panel{
		{Title: "State of charge", Type: "timeseries", Column: "soc_pct", Unit: "percent", BaseColor: "red", AlertColor: "green", HasThreshold: true, Threshold: telemetry.LowSocThreshold},
		{Title: "Battery voltage", Type: "timeseries", Column: "voltage", Unit: "volt", BaseColor: "red", AlertColor: "green", HasThreshold: true, Threshold: telemetry.LowVoltThreshold},
		{Title: "Temperature", Type: "timeseries", Column: "temp_c", Unit: "celsius", BaseColor: "green", AlertColor: "red", HasThreshold: true, Threshold: telemetry.HighTempThreshold},
		{Title: "Leak", Type: "stat", Column: "CAST(leak AS INT) AS leak", Unit: "none", BaseColor: "green", AlertColor: "red", HasThreshold: true, Threshold: 1},
		{Title: "Speed", Type: "timeseries", Column: "speed_mps", Unit: "velocityms", BaseColor: "blue"},
		{Title: "Depth", Type: "timeseries", Column: "depth_m", Unit: "lengthm", BaseColor: "blue"},
		{Title: "Heading", Type: "timeseries", Column: "heading_deg", Unit: "degree", BaseColor: "blue"},
		{Title: "Waypoint", Type: "stat", Column: "waypoint_index", Unit: "none", BaseColor: "purple"},
	}
}

var funcMap = template.FuncMap{
	"json": func(v any) (string, error) {
		b, err := json.Marshal(v)
		return string(b), err
	},
	"add": func(a, b int) int { return a + b },
	"mul": func(a, b int) int { return a * b },
	"div": func(a, b int) int { return a / b },
	"mod": func(a, b int) int { return a % b },
}

// Render writes the dashboard JSON for opts to w.
func Render(w io.Writer, opts Options) error {
	if opts.DatasourceUID == "" {
		return errors.New("dashboard: datasource uid required")
	}
	if opts.Table == "" {
		return errors.New("dashboard: table required")
	}
	if opts.Title == "" {
		opts.Title = "Hydronom Telemetry"
	}
	if opts.UID == "" {
		opts.UID = strings.ReplaceAll(opts.Table, "_", "-")
	}
	t, err := template.New(templateFile).Funcs(funcMap).ParseFS(content, "templates/"+templateFile)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	data := struct {
		Options
		Panels []Panel
	}{opts, Panels()}
	if err := t.Execute(&buf, data); err != nil {
		return err
	}
	if !json.Valid(buf.Bytes()) {
		return fmt.Errorf("dashboard: rendered template is not valid JSON")
	}
	_, err = buf.WriteTo(w)
	return err
}

// RenderFile writes the dashboard into outDir and returns its path.
func RenderFile(outDir string, opts Options) (string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", err
	}
	outPath := filepath.Join(outDir, strings.TrimSuffix(templateFile, ".tmpl"))
	f, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	if err := Render(f, opts); err != nil {
		f.Close()
		return "", err
	}
	return outPath, f.Close()
}
