package feeder

import (
	"context"
	"fmt"
	"log/slog"

	"hydronom-sim/internal/logging"
	"hydronom-sim/internal/telemetry"
)

// Run starts the feeder loop and stops when the context is done.
// The context is checked before every tick and during the post-tick sleep.
// Run is meant to be called once per Feeder.
func (f *Feeder) Run(ctx context.Context) {
	log := logging.FromContext(ctx).With("run_id", f.runID, "vehicle_id", f.vehicleID)
	start := f.now()
	f.clock = NewRunClock(start)
	f.mu.Lock()
	f.status.Running = true
	f.status.StartedAt = start.UTC()
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.status.Running = false
		f.mu.Unlock()
	}()

	log.Info("starting feeder",
		"class", f.class,
		"period", f.period,
		"leak_after", f.faults.LeakAfter,
		"low_battery_after", f.faults.LowBatteryAfter,
	)
	for {
		if ctx.Err() != nil {
			break
		}
		f.tick(ctx, log)
		err := f.sleep(ctx, f.period)
		f.clock.Advance()
		if err != nil {
			break
		}
	}
	log.Info("stopping feeder", "ticks", f.clock.Ticks())
}

// tick generates one record, hands it to the transport and the taps.
func (f *Feeder) tick(ctx context.Context, log *slog.Logger) telemetry.Record {
	elapsed := f.clock.Elapsed(f.now())
	leak, lowBattery := f.faults.Active(elapsed)
	waypoint := f.clock.WaypointIndex()

	rec := f.gen.Generate(f.vehicleID, f.class, waypoint, leak, lowBattery)

	out := f.transport.Send(ctx, rec)
	if !out.OK {
		log.Warn("send failed", "tick", f.clock.Ticks(), "status", out.StatusCode, "err", out.Err)
	} else {
		log.Debug("sent", "tick", f.clock.Ticks(), "status", out.StatusCode, "latency", out.Latency)
	}
	f.metrics.observeSend(out)
	f.metrics.observeFaults(leak, lowBattery)

	for _, we := range WriterErrors(f.taps.Write(rec)) {
		log.Error("tap write failed", "tap", fmt.Sprintf("%T", we.Writer), "err", we.Err)
		f.metrics.observeTapError()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if leak && !f.status.Leak {
		log.Warn("leak fault active", "elapsed", elapsed)
	}
	if lowBattery && !f.status.LowBattery {
		log.Warn("low battery fault active", "elapsed", elapsed)
	}
	f.status.Ticks = f.clock.Ticks() + 1
	f.status.ElapsedSeconds = elapsed.Seconds()
	f.status.Leak = leak
	f.status.LowBattery = lowBattery
	if out.OK {
		f.status.Sent++
	} else {
		f.status.Failed++
		f.status.LastError = out.String()
	}
	last := rec
	f.status.Last = &last
	return rec
}
