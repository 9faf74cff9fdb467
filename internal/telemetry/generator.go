package telemetry

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Origin of the synthetic pose and the jitter applied around it, in degrees.
const (
	OriginLat     = 41.025
	OriginLon     = 28.85
	PoseJitterDeg = 1e-4
)

// Sampling ranges for the random fields.
const (
	SpeedMaxMPS = 2.0

	IMUTiltMaxDeg = 2.0
	RudderMaxDeg  = 10.0

	ThrusterMinPWM = 1400
	ThrusterMaxPWM = 1500

	BallastMaxPct = 100

	VoltageMin = 11.5
	VoltageMax = 16.8

	SocNormalMin = 70.0
	SocNormalMax = 100.0
	SocLowMin    = 10.0
	SocLowMax    = 19.0

	TempMinC = 18.0
	TempMaxC = 55.0

	// SubDepthM is the fixed depth reported by submersibles.
	SubDepthM = 1.5
)

// Generator draws telemetry samples for a single vehicle.
// It is not safe for concurrent use.
type Generator struct {
	rng *rand.Rand
	now func() time.Time
}

// NewGenerator creates a generator drawing from rng. A nil rng is seeded from the clock.
func NewGenerator(rng *rand.Rand) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Generator{rng: rng, now: time.Now}
}

// SetClock replaces the source of record timestamps.
func (g *Generator) SetClock(now func() time.Time) {
	g.now = now
}

// Generate returns a fully populated record. Every random field is a fresh
// independent draw; only the arguments carry state between calls.
// An unknown class is a programming error and panics.
func (g *Generator) Generate(vehicleID string, class VehicleClass, waypointIndex int, leak, lowBattery bool) Record {
	var depth float64
	var ballast int
	switch class {
	case ClassSub:
		depth = SubDepthM
		ballast = g.intn(0, BallastMaxPct)
	case ClassBoat:
	default:
		panic(fmt.Sprintf("telemetry: unknown vehicle class %q", class))
	}

	soc := g.uniform(SocNormalMin, SocNormalMax)
	if lowBattery {
		soc = g.uniform(SocLowMin, SocLowMax)
	}

	return Record{
		Timestamp: g.now().UTC(),
		Vehicle:   VehicleRef{ID: vehicleID, Type: class},
		Pose: Pose{
			Lat:        OriginLat + g.uniform(-PoseJitterDeg, PoseJitterDeg),
			Lon:        OriginLon + g.uniform(-PoseJitterDeg, PoseJitterDeg),
			HeadingDeg: g.uniform(0, 360),
			SpeedMPS:   g.uniform(0, SpeedMaxMPS),
		},
		DepthM: depth,
		IMU: IMU{
			RollDeg:  round(g.uniform(-IMUTiltMaxDeg, IMUTiltMaxDeg), 2),
			PitchDeg: round(g.uniform(-IMUTiltMaxDeg, IMUTiltMaxDeg), 2),
			YawDeg:   wrapDegrees(round(g.uniform(0, 360), 2)),
		},
		Thrusters: Thrusters{
			LeftPWM:  g.intn(ThrusterMinPWM, ThrusterMaxPWM),
			RightPWM: g.intn(ThrusterMinPWM, ThrusterMaxPWM),
		},
		RudderDeg: round(g.uniform(-RudderMaxDeg, RudderMaxDeg), 1),
		Ballast:   Ballast{LevelPct: ballast},
		Battery: Battery{
			Voltage: round(g.uniform(VoltageMin, VoltageMax), 2),
			SocPct:  round(soc, 2),
		},
		Leak:  leak,
		TempC: round(g.uniform(TempMinC, TempMaxC), 1),
		Mission: MissionState{
			Mode:          MissionModeAutonomous,
			TaskID:        DefaultTaskID,
			WaypointIndex: waypointIndex,
		},
	}
}

func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

// intn draws uniformly from the closed range [lo, hi].
func (g *Generator) intn(lo, hi int) int {
	return lo + g.rng.Intn(hi-lo+1)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// wrapDegrees keeps a rounded angle inside [0, 360).
func wrapDegrees(v float64) float64 {
	if v >= 360 {
		return v - 360
	}
	return v
}
