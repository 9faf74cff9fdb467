package feeder

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"hydronom-sim/internal/telemetry"
)

func encodeRecords(t *testing.T, rows []telemetry.Record) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, r := range rows {
		if err := enc.Encode(r); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	return &buf
}

func TestReplayLog(t *testing.T) {
	rows := make([]telemetry.Record, 3)
	for i := range rows {
		rows[i] = sampleRecord()
		rows[i].Timestamp = time.Unix(int64(i), 0).UTC()
		rows[i].Mission.WaypointIndex = i
	}
	tr := &MockTransport{Fail: func(i int) bool { return i == 1 }}
	stats, err := ReplayLog(context.Background(), encodeRecords(t, rows), tr, 0)
	if err != nil {
		t.Fatalf("ReplayLog: %v", err)
	}
	if stats.Sent != 2 || stats.Failed != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	for i, r := range tr.Records {
		if r.Mission.WaypointIndex != i || !r.Timestamp.Equal(rows[i].Timestamp) {
			t.Fatalf("record %d out of order: %+v", i, r)
		}
	}
}

func TestReplayLogSpeed(t *testing.T) {
	rows := []telemetry.Record{sampleRecord(), sampleRecord()}
	rows[1].Timestamp = rows[0].Timestamp.Add(time.Second)
	start := time.Now()
	stats, err := ReplayLog(context.Background(), encodeRecords(t, rows), &MockTransport{}, 100)
	if err != nil || stats.Sent != 2 {
		t.Fatalf("ReplayLog: %+v %v", stats, err)
	}
	if d := time.Since(start); d < 5*time.Millisecond {
		t.Fatalf("expected scaled gap to be kept, took %v", d)
	}
}

func TestReplayLogDecodeError(t *testing.T) {
	buf := encodeRecords(t, []telemetry.Record{sampleRecord()})
	buf.WriteString("{not json}\n")
	stats, err := ReplayLog(context.Background(), buf, &MockTransport{}, 0)
	if err == nil || !strings.Contains(err.Error(), "record 2") {
		t.Fatalf("expected decode error on record 2, got %v", err)
	}
	if stats.Sent != 1 {
		t.Fatalf("expected the first record to be sent, got %+v", stats)
	}
}

func TestReplayLogCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tr := &MockTransport{}
	if _, err := ReplayLog(ctx, encodeRecords(t, []telemetry.Record{sampleRecord()}), tr, 0); err == nil {
		t.Fatalf("expected cancellation error")
	}
	if len(tr.Records) != 0 {
		t.Fatalf("nothing should be sent after cancellation")
	}
}

func TestReplayLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.jsonl")
	if err := os.WriteFile(path, encodeRecords(t, []telemetry.Record{sampleRecord()}).Bytes(), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	stats, err := ReplayLogFile(context.Background(), path, &MockTransport{}, 0)
	if err != nil || stats.Sent != 1 {
		t.Fatalf("ReplayLogFile: %+v %v", stats, err)
	}
	if _, err := ReplayLogFile(context.Background(), filepath.Join(t.TempDir(), "missing"), &MockTransport{}, 0); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
