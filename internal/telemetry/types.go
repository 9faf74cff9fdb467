// Telemetry record wire types
package telemetry

import (
	"fmt"
	"strings"
	"time"
)

// VehicleClass selects boat or submersible behavior for depth and ballast.
type VehicleClass string

const (
	ClassBoat VehicleClass = "boat"
	ClassSub  VehicleClass = "sub"
)

// ParseVehicleClass converts a user-supplied class name to a VehicleClass.
func ParseVehicleClass(s string) (VehicleClass, error) {
	switch VehicleClass(strings.ToLower(strings.TrimSpace(s))) {
	case ClassBoat:
		return ClassBoat, nil
	case ClassSub:
		return ClassSub, nil
	}
	return "", fmt.Errorf("unknown vehicle class %q (want boat or sub)", s)
}

// Record is one telemetry sample as posted to the ingestion endpoint.
// Field names and nesting are the wire contract.
type Record struct {
	Timestamp time.Time    `json:"timestamp"`
	Vehicle   VehicleRef   `json:"vehicle"`
	Pose      Pose         `json:"pose"`
	DepthM    float64      `json:"depth_m"`
	IMU       IMU          `json:"imu"`
	Thrusters Thrusters    `json:"thrusters"`
	RudderDeg float64      `json:"rudder_deg"`
	Ballast   Ballast      `json:"ballast"`
	Battery   Battery      `json:"battery"`
	Leak      bool         `json:"leak"`
	TempC     float64      `json:"temp_c"`
	Mission   MissionState `json:"mission"`
}

type VehicleRef struct {
	ID   string       `json:"id"`
	Type VehicleClass `json:"type"`
}

type Pose struct {
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	HeadingDeg float64 `json:"heading_deg"`
	SpeedMPS   float64 `json:"speed_mps"`
}

type IMU struct {
	RollDeg  float64 `json:"roll_deg"`
	PitchDeg float64 `json:"pitch_deg"`
	YawDeg   float64 `json:"yaw_deg"`
}

type Thrusters struct {
	LeftPWM  int `json:"left_pwm"`
	RightPWM int `json:"right_pwm"`
}

type Ballast struct {
	LevelPct int `json:"level_pct"`
}

type Battery struct {
	Voltage float64 `json:"voltage"`
	SocPct  float64 `json:"soc_pct"`
}

// MissionState carries the mission constants and the waypoint cursor.
type MissionState struct {
	Mode          string `json:"mode"`
	TaskID        string `json:"task_id"`
	WaypointIndex int    `json:"waypoint_index"`
}

// Mission constants reported on every record.
const (
	MissionModeAutonomous = "AUTONOMOUS"
	DefaultTaskID         = "task-001"
)
