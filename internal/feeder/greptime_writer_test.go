package feeder

import (
	"context"
	"errors"
	"testing"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"

	"hydronom-sim/internal/telemetry"
)

type mockGreptimeClient struct {
	table *table.Table
	calls int
	err   error
}

func (m *mockGreptimeClient) Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error) {
	m.calls++
	if len(tables) > 0 {
		m.table = tables[0]
	}
	return &gpb.GreptimeResponse{}, m.err
}

func TestGreptimeWriterFlattensRecord(t *testing.T) {
	rec := sampleRecord()
	rec.Leak = true
	rec.Thrusters = telemetry.Thrusters{LeftPWM: 1500, RightPWM: 1620}

	m := &mockGreptimeClient{}
	w := &GreptimeDBWriter{client: m, table: "hydronom_telemetry"}
	if err := w.Write(rec); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if m.table == nil {
		t.Fatalf("expected table to be captured")
	}

	rows := m.table.GetRows()
	if len(rows.Schema) != 22 {
		t.Fatalf("unexpected schema length: %d", len(rows.Schema))
	}
	if rows.Schema[0].ColumnName != "vehicle_id" || rows.Schema[0].SemanticType != gpb.SemanticType_TAG {
		t.Fatalf("vehicle_id should be the first tag column, got %+v", rows.Schema[0])
	}
	if rows.Schema[21].SemanticType != gpb.SemanticType_TIMESTAMP {
		t.Fatalf("last column should be the time index, got %+v", rows.Schema[21])
	}

	vals := rows.Rows[0].Values
	if got := vals[0].GetStringValue(); got != "hydronom-boat-01" {
		t.Fatalf("vehicle_id = %s", got)
	}
	if got := vals[1].GetStringValue(); got != "boat" {
		t.Fatalf("vehicle_type = %s", got)
	}
	if got := vals[11].GetI64Value(); got != 1620 {
		t.Fatalf("right_pwm = %d", got)
	}
	if !vals[16].GetBoolValue() {
		t.Fatalf("leak not stored")
	}
	if got := vals[20].GetI64Value(); got != 2 {
		t.Fatalf("waypoint_index = %d", got)
	}
}

func TestGreptimeWriterBatch(t *testing.T) {
	m := &mockGreptimeClient{}
	w := &GreptimeDBWriter{client: m, table: "t"}
	if err := w.WriteBatch(nil); err != nil || m.calls != 0 {
		t.Fatalf("empty batch should be a no-op")
	}
	if err := w.WriteBatch([]telemetry.Record{sampleRecord(), sampleRecord()}); err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}
	if m.calls != 1 || len(m.table.GetRows().Rows) != 2 {
		t.Fatalf("expected one request with 2 rows, got calls=%d", m.calls)
	}
}

func TestGreptimeWriterError(t *testing.T) {
	m := &mockGreptimeClient{err: errors.New("unavailable")}
	w := &GreptimeDBWriter{client: m, table: "t"}
	if err := w.Write(sampleRecord()); err == nil {
		t.Fatalf("expected client error to propagate")
	}
}

func TestNewGreptimeDBWriterRejects(t *testing.T) {
	if _, err := NewGreptimeDBWriter("", "public", "t"); err == nil {
		t.Errorf("expected error for empty endpoint")
	}
	if _, err := NewGreptimeDBWriter("localhost:4001", "public", ""); err == nil {
		t.Errorf("expected error for empty table")
	}
	if _, err := NewGreptimeDBWriter("localhost:port", "public", "t"); err == nil {
		t.Errorf("expected error for invalid port")
	}
}
