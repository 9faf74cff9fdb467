package feeder

import "time"

// Rate bounds for the tick loop, in Hz.
const (
	MinHz = 1
	MaxHz = 10
)

// waypointCount is the length of the waypoint cycle reported in mission state.
const waypointCount = 3

// Period converts a requested rate to the fixed post-tick sleep.
// Rates outside [MinHz, MaxHz] are clamped silently.
func Period(hz int) time.Duration {
	if hz < MinHz {
		hz = MinHz
	} else if hz > MaxHz {
		hz = MaxHz
	}
	return time.Second / time.Duration(hz)
}

// RunClock tracks simulated mission time for one run.
type RunClock struct {
	start time.Time
	ticks int
}

// NewRunClock starts a clock at start.
func NewRunClock(start time.Time) *RunClock {
	return &RunClock{start: start}
}

// Elapsed returns the time since the run started.
func (c *RunClock) Elapsed(now time.Time) time.Duration {
	return now.Sub(c.start)
}

// Ticks returns the number of completed ticks.
func (c *RunClock) Ticks() int { return c.ticks }

// WaypointIndex is the waypoint cursor for the current tick.
func (c *RunClock) WaypointIndex() int { return c.ticks % waypointCount }

// Advance records a completed tick.
func (c *RunClock) Advance() { c.ticks++ }

// FaultSchedule holds the onset offsets of the injected faults. Zero disables a fault.
type FaultSchedule struct {
	LeakAfter       time.Duration
	LowBatteryAfter time.Duration
}

// Active derives the fault flags for an elapsed time. The flags depend only on
// elapsed and the schedule, so they never revert while elapsed grows.
func (f FaultSchedule) Active(elapsed time.Duration) (leak, lowBattery bool) {
	leak = f.LeakAfter > 0 && elapsed >= f.LeakAfter
	lowBattery = f.LowBatteryAfter > 0 && elapsed >= f.LowBatteryAfter
	return leak, lowBattery
}
