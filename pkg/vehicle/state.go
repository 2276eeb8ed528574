// Package vehicle holds the static vehicle model used in decoy mode and the
// emitter that turns it into telemetry frames.
package vehicle

import "github.com/dbehnke/mavtrap/pkg/mavlink"

// Default simulated vehicle (ArduCopter quad parked at Beijing)
const (
	DefaultLatitude         = 39.9042
	DefaultLongitude        = 116.4074
	DefaultAltitude         = 100.0 // meters
	DefaultVehicleType      = 2     // MAV_TYPE_QUADROTOR
	DefaultAutopilot        = 3     // MAV_AUTOPILOT_ARDUPILOTMEGA
	DefaultSatellites       = 12
	DefaultFixType          = 3 // 3D fix
	DefaultBatteryVoltage   = 12600
	DefaultBatteryCurrent   = -1 // not measured
	DefaultBatteryRemaining = 80
)

// Config describes the simulated vehicle. Zero values fall back to the
// defaults above.
type Config struct {
	Latitude         float64 // degrees
	Longitude        float64 // degrees
	Altitude         float64 // meters
	VehicleType      uint8
	Autopilot        uint8
	CustomMode       uint32
	Armed            bool
	Satellites       uint8
	FixType          uint8
	BatteryVoltage   uint16 // mV
	BatteryRemaining int8   // percent
}

// State is the vehicle snapshot every telemetry frame is built from. It is
// created once and never mutated.
type State struct {
	Lat         int32 // degrees * 1e7
	Lon         int32 // degrees * 1e7
	Alt         int32 // mm AMSL
	RelativeAlt int32 // mm above home
	VX, VY, VZ  int16 // cm/s
	Heading     uint16
	Roll        float32
	Pitch       float32
	Yaw         float32

	Satellites uint8
	FixType    uint8

	BatteryVoltage   uint16
	BatteryCurrent   int16
	BatteryRemaining int8

	VehicleType uint8
	Autopilot   uint8
	CustomMode  uint32
	Armed       bool
}

// NewState builds the vehicle state from cfg
func NewState(cfg Config) State {
	if cfg.Latitude == 0 && cfg.Longitude == 0 {
		cfg.Latitude = DefaultLatitude
		cfg.Longitude = DefaultLongitude
	}
	if cfg.Altitude == 0 {
		cfg.Altitude = DefaultAltitude
	}
	if cfg.VehicleType == 0 {
		cfg.VehicleType = DefaultVehicleType
	}
	if cfg.Autopilot == 0 {
		cfg.Autopilot = DefaultAutopilot
	}
	if cfg.Satellites == 0 {
		cfg.Satellites = DefaultSatellites
	}
	if cfg.FixType == 0 {
		cfg.FixType = DefaultFixType
	}
	if cfg.BatteryVoltage == 0 {
		cfg.BatteryVoltage = DefaultBatteryVoltage
	}
	if cfg.BatteryRemaining == 0 {
		cfg.BatteryRemaining = DefaultBatteryRemaining
	}

	return State{
		Lat:              int32(cfg.Latitude * 1e7),
		Lon:              int32(cfg.Longitude * 1e7),
		Alt:              int32(cfg.Altitude * 1000),
		RelativeAlt:      int32(cfg.Altitude * 1000),
		Satellites:       cfg.Satellites,
		FixType:          cfg.FixType,
		BatteryVoltage:   cfg.BatteryVoltage,
		BatteryCurrent:   DefaultBatteryCurrent,
		BatteryRemaining: cfg.BatteryRemaining,
		VehicleType:      cfg.VehicleType,
		Autopilot:        cfg.Autopilot,
		CustomMode:       cfg.CustomMode,
		Armed:            cfg.Armed,
	}
}

// BaseMode returns the HEARTBEAT base_mode flags for the state
func (s State) BaseMode() uint8 {
	mode := uint8(mavlink.ModeFlagCustomModeEnabled | mavlink.ModeFlagStabilizeEnabled)
	if s.Armed {
		mode |= mavlink.ModeFlagSafetyArmed
	}
	return mode
}

// SystemStatus returns the MAV_STATE reported in HEARTBEAT
func (s State) SystemStatus() uint8 {
	if s.Armed {
		return mavlink.StateActive
	}
	return mavlink.StateStandby
}
