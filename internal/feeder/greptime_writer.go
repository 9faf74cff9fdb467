package feeder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"

	"hydronom-sim/internal/telemetry"
)

const defaultGreptimePort = 4001

// greptimeClient is the subset of the ingester client the writer needs.
type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeDBWriter writes flattened records to GreptimeDB via the ingester client.
type GreptimeDBWriter struct {
	client  greptimeClient
	table   string
	timeout time.Duration
}

// NewGreptimeDBWriter connects to endpoint ("host" or "host:port") and writes
// into database.tableName. The table is created on first insert.
func NewGreptimeDBWriter(endpoint, database, tableName string) (*GreptimeDBWriter, error) {
	if endpoint == "" {
		return nil, errors.New("greptime: endpoint required")
	}
	if tableName == "" {
		return nil, errors.New("greptime: table required")
	}
	host, port := endpoint, defaultGreptimePort
	if h, p, err := net.SplitHostPort(endpoint); err == nil {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("greptime: invalid port %q: %w", p, err)
		}
		host, port = h, n
	}
	cfg := greptime.NewConfig(host).WithPort(port).WithDatabase(database)
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("greptime: %w", err)
	}
	return &GreptimeDBWriter{client: client, table: tableName, timeout: DefaultSendTimeout}, nil
}

// Write inserts a single record.
func (w *GreptimeDBWriter) Write(row telemetry.Record) error {
	return w.WriteBatch([]telemetry.Record{row})
}

// WriteBatch inserts multiple records in one request.
func (w *GreptimeDBWriter) WriteBatch(rows []telemetry.Record) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := w.buildTable(rows)
	if err != nil {
		return err
	}
	timeout := w.timeout
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if _, err := w.client.Write(ctx, tbl); err != nil {
		slog.Error("greptime write failed", "table", w.table, "rows", len(rows), "err", err)
		return err
	}
	slog.Debug("greptime wrote rows", "table", w.table, "rows", len(rows))
	return nil
}

func (w *GreptimeDBWriter) buildTable(rows []telemetry.Record) (*table.Table, error) {
	tbl, err := table.New(w.table)
	if err != nil {
		return nil, err
	}
	cols := []struct {
		name string
		tag  bool
		typ  types.ColumnType
	}{
		{"vehicle_id", true, types.STRING},
		{"vehicle_type", true, types.STRING},
		{"lat", false, types.FLOAT64},
		{"lon", false, types.FLOAT64},
		{"heading_deg", false, types.FLOAT64},
		{"speed_mps", false, types.FLOAT64},
		{"depth_m", false, types.FLOAT64},
		{"roll_deg", false, types.FLOAT64},
		{"pitch_deg", false, types.FLOAT64},
		{"yaw_deg", false, types.FLOAT64},
		{"left_pwm", false, types.INT64},
		{"right_pwm", false, types.INT64},
		{"rudder_deg", false, types.FLOAT64},
		{"ballast_pct", false, types.INT64},
		{"voltage", false, types.FLOAT64},
		{"soc_pct", false, types.FLOAT64},
		{"leak", false, types.BOOLEAN},
		{"temp_c", false, types.FLOAT64},
		{"mission_mode", false, types.STRING},
		{"task_id", false, types.STRING},
		{"waypoint_index", false, types.INT64},
	}
	for _, c := range cols {
		if c.tag {
			err = tbl.AddTagColumn(c.name, c.typ)
		} else {
			err = tbl.AddFieldColumn(c.name, c.typ)
		}
		if err != nil {
			return nil, err
		}
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return nil, err
	}

	for _, r := range rows {
		err := tbl.AddRow(
			r.Vehicle.ID,
			string(r.Vehicle.Type),
			r.Pose.Lat,
			r.Pose.Lon,
			r.Pose.HeadingDeg,
			r.Pose.SpeedMPS,
			r.DepthM,
			r.IMU.RollDeg,
			r.IMU.PitchDeg,
			r.IMU.YawDeg,
			int64(r.Thrusters.LeftPWM),
			int64(r.Thrusters.RightPWM),
			r.RudderDeg,
			int64(r.Ballast.LevelPct),
			r.Battery.Voltage,
			r.Battery.SocPct,
			r.Leak,
			r.TempC,
			r.Mission.Mode,
			r.Mission.TaskID,
			int64(r.Mission.WaypointIndex),
			r.Timestamp,
		)
		if err != nil {
			return nil, err
		}
	}
	return tbl, nil
}
