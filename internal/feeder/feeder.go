// Feeder orchestrating the sample model, fault injection and delivery ticks
package feeder

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"hydronom-sim/internal/config"
	"hydronom-sim/internal/telemetry"
)

// Feeder emits one telemetry record per tick for a single vehicle.
type Feeder struct {
	vehicleID string
	class     telemetry.VehicleClass
	period    time.Duration
	faults    FaultSchedule
	gen       *telemetry.Generator
	transport Transport
	taps      *MultiWriter
	metrics   *Metrics
	runID     string
	now       func() time.Time
	sleep     func(context.Context, time.Duration) error

	// clock is owned by the loop goroutine.
	clock *RunClock

	mu     sync.Mutex
	status Status
}

// Status is a point-in-time view of a run for admin surfaces.
type Status struct {
	RunID          string                 `json:"run_id"`
	VehicleID      string                 `json:"vehicle_id"`
	VehicleType    telemetry.VehicleClass `json:"vehicle_type"`
	PeriodSeconds  float64                `json:"period_s"`
	Running        bool                   `json:"running"`
	StartedAt      time.Time              `json:"started_at"`
	ElapsedSeconds float64                `json:"elapsed_s"`
	Ticks          int                    `json:"ticks"`
	Sent           int                    `json:"sent"`
	Failed         int                    `json:"failed"`
	Leak           bool                   `json:"leak"`
	LowBattery     bool                   `json:"low_battery"`
	LastError      string                 `json:"last_error,omitempty"`
	Last           *telemetry.Record      `json:"last,omitempty"`
}

// Option customizes a Feeder.
type Option func(*Feeder)

// WithGenerator replaces the sample model, e.g. with a seeded one.
func WithGenerator(g *telemetry.Generator) Option {
	return func(f *Feeder) { f.gen = g }
}

// WithClock replaces the wall clock used for elapsed time and record timestamps.
func WithClock(now func() time.Time) Option {
	return func(f *Feeder) { f.now = now }
}

// WithSleeper replaces the post-tick sleep. It must return ctx.Err() when ctx ends.
func WithSleeper(sleep func(context.Context, time.Duration) error) Option {
	return func(f *Feeder) { f.sleep = sleep }
}

// WithTap adds a secondary consumer that receives every record after the transport.
func WithTap(w TelemetryWriter) Option {
	return func(f *Feeder) { f.taps.Add(w) }
}

// WithMetrics records tick outcomes in m.
func WithMetrics(m *Metrics) Option {
	return func(f *Feeder) { f.metrics = m }
}

// WithRunID sets the run identifier used in logs and status.
func WithRunID(id string) Option {
	return func(f *Feeder) { f.runID = id }
}

// NewFeeder builds a feeder for cfg delivering through transport.
func NewFeeder(cfg config.RunConfig, transport Transport, opts ...Option) (*Feeder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if transport == nil {
		return nil, errors.New("feeder: transport required")
	}
	f := &Feeder{
		vehicleID: cfg.VehicleID,
		class:     cfg.Class(),
		period:    Period(cfg.Hz),
		faults:    FaultSchedule{LeakAfter: cfg.LeakAfter(), LowBatteryAfter: cfg.LowBatteryAfter()},
		transport: transport,
		taps:      NewMultiWriter(),
		now:       time.Now,
		sleep:     sleepContext,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.gen == nil {
		var rng *rand.Rand
		if cfg.Seed != 0 {
			rng = rand.New(rand.NewSource(cfg.Seed))
		}
		f.gen = telemetry.NewGenerator(rng)
	}
	f.gen.SetClock(f.now)
	if f.runID == "" {
		f.runID = uuid.NewString()
	}
	f.status = Status{
		RunID:         f.runID,
		VehicleID:     f.vehicleID,
		VehicleType:   f.class,
		PeriodSeconds: f.period.Seconds(),
	}
	return f, nil
}

// Period returns the fixed sleep between ticks.
func (f *Feeder) Period() time.Duration { return f.period }

// RunID returns the run identifier.
func (f *Feeder) RunID() string { return f.runID }

// Status returns a snapshot of the run.
func (f *Feeder) Status() Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := f.status
	if st.Last != nil {
		last := *st.Last
		st.Last = &last
	}
	return st
}

// RunHandle controls a feeder loop started with Start.
type RunHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Start runs the loop in a new goroutine and returns a handle to stop it.
func (f *Feeder) Start(ctx context.Context) *RunHandle {
	ctx, cancel := context.WithCancel(ctx)
	h := &RunHandle{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(h.done)
		f.Run(ctx)
	}()
	return h
}

// Stop asks the loop to exit before its next tick.
func (h *RunHandle) Stop() { h.cancel() }

// Done is closed once the loop has exited.
func (h *RunHandle) Done() <-chan struct{} { return h.done }

// Wait blocks until the loop has exited.
func (h *RunHandle) Wait() { <-h.done }

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
