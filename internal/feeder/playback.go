package feeder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"hydronom-sim/internal/logging"
	"hydronom-sim/internal/telemetry"
)

// ReplayStats counts the outcome of a replay.
type ReplayStats struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// ReplayLog sends records from a JSONL log in r through transport.
// Gaps between record timestamps are kept, divided by speed; speed <= 0
// replays without delay. Send failures are counted, decode errors abort.
func ReplayLog(ctx context.Context, r io.Reader, transport Transport, speed float64) (ReplayStats, error) {
	log := logging.FromContext(ctx)
	dec := json.NewDecoder(r)
	var stats ReplayStats
	var prev time.Time
	for {
		var row telemetry.Record
		if err := dec.Decode(&row); err != nil {
			if errors.Is(err, io.EOF) {
				return stats, nil
			}
			return stats, fmt.Errorf("replay: record %d: %w", stats.Sent+stats.Failed+1, err)
		}
		if !prev.IsZero() && speed > 0 {
			diff := time.Duration(float64(row.Timestamp.Sub(prev)) / speed)
			if diff > 0 {
				if err := sleepContext(ctx, diff); err != nil {
					return stats, err
				}
			}
		}
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		out := transport.Send(ctx, row)
		if out.OK {
			stats.Sent++
		} else {
			stats.Failed++
			log.Warn("replay send failed", "vehicle_id", row.Vehicle.ID, "timestamp", row.Timestamp, "err", out.Err)
		}
		prev = row.Timestamp
	}
}

// ReplayLogFile opens a file and replays its records.
func ReplayLogFile(ctx context.Context, path string, transport Transport, speed float64) (ReplayStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return ReplayStats{}, err
	}
	defer f.Close()
	return ReplayLog(ctx, f, transport, speed)
}
