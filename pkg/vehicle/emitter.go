package vehicle

import (
	"time"

	"github.com/dbehnke/mavtrap/pkg/mavlink"
)

// Family is a group of telemetry messages sent on one schedule
type Family int

const (
	FamilyHeartbeat Family = iota // HEARTBEAT
	FamilyPosition                // GLOBAL_POSITION_INT + GPS_RAW_INT
	FamilyStatus                  // ATTITUDE + SYS_STATUS
	numFamilies
)

// String returns the family name
func (f Family) String() string {
	switch f {
	case FamilyHeartbeat:
		return "heartbeat"
	case FamilyPosition:
		return "position"
	case FamilyStatus:
		return "status"
	default:
		return "unknown"
	}
}

// DefaultInterval is the emission interval of every family
const DefaultInterval = time.Second

const (
	sensorsAll   = 0x3FFFFFFF
	cpuLoad      = 500   // 50.0%
	gpsUnknown16 = 65535 // eph/epv/vel/cog not available
)

// Emitter builds telemetry frames from a fixed State. Each family keeps its
// own last-sent time; Due decides per family whether its interval elapsed.
// An Emitter is owned by a single control loop and is not safe for
// concurrent use.
type Emitter struct {
	state     State
	enc       *mavlink.Encoder
	boot      time.Time
	intervals [numFamilies]time.Duration
	last      [numFamilies]time.Time
}

// NewEmitter creates an emitter. Frames are built through enc so they share
// its sequence counter; boot is the reference for time_boot_ms.
func NewEmitter(state State, enc *mavlink.Encoder, boot time.Time) *Emitter {
	e := &Emitter{
		state: state,
		enc:   enc,
		boot:  boot,
	}
	for i := range e.intervals {
		e.intervals[i] = DefaultInterval
	}
	return e
}

// SetInterval changes the emission interval of one family
func (e *Emitter) SetInterval(f Family, d time.Duration) {
	if f < 0 || f >= numFamilies || d <= 0 {
		return
	}
	e.intervals[f] = d
}

// Due returns the encoded frames of every family whose interval has elapsed
// at now, and marks those families as sent.
func (e *Emitter) Due(now time.Time) [][]byte {
	var out [][]byte
	for f := Family(0); f < numFamilies; f++ {
		if !e.last[f].IsZero() && now.Sub(e.last[f]) < e.intervals[f] {
			continue
		}
		e.last[f] = now
		for _, frame := range e.Build(f, now) {
			if frame != nil {
				out = append(out, frame)
			}
		}
	}
	return out
}

// Build encodes the frames of family f at time now
func (e *Emitter) Build(f Family, now time.Time) [][]byte {
	switch f {
	case FamilyHeartbeat:
		return [][]byte{e.heartbeat()}
	case FamilyPosition:
		return [][]byte{e.globalPosition(now), e.gpsRaw(now)}
	case FamilyStatus:
		return [][]byte{e.attitude(now), e.sysStatus()}
	default:
		return nil
	}
}

func (e *Emitter) bootMillis(now time.Time) float64 {
	ms := now.Sub(e.boot).Milliseconds()
	if ms < 0 {
		ms = 0
	}
	return float64(uint32(ms))
}

func (e *Emitter) heartbeat() []byte {
	s := e.state
	payload := mavlink.HeartbeatPayload(s.VehicleType, s.Autopilot, s.BaseMode(), s.SystemStatus(), s.CustomMode)
	return e.enc.Build(mavlink.MsgIDHeartbeat, payload)
}

func (e *Emitter) globalPosition(now time.Time) []byte {
	s := e.state
	payload := mavlink.GlobalPositionIntLayout.Encode(mavlink.Values{
		"time_boot_ms": e.bootMillis(now),
		"lat":          float64(s.Lat),
		"lon":          float64(s.Lon),
		"alt":          float64(s.Alt),
		"relative_alt": float64(s.RelativeAlt),
		"vx":           float64(s.VX),
		"vy":           float64(s.VY),
		"vz":           float64(s.VZ),
		"hdg":          float64(s.Heading),
	})
	return e.enc.Build(mavlink.MsgIDGlobalPositionInt, payload)
}

func (e *Emitter) gpsRaw(now time.Time) []byte {
	s := e.state
	payload := mavlink.GPSRawIntLayout.Encode(mavlink.Values{
		"time_usec":          float64(now.UnixMicro()),
		"lat":                float64(s.Lat),
		"lon":                float64(s.Lon),
		"alt":                float64(s.Alt),
		"eph":                gpsUnknown16,
		"epv":                gpsUnknown16,
		"vel":                gpsUnknown16,
		"cog":                gpsUnknown16,
		"fix_type":           float64(s.FixType),
		"satellites_visible": float64(s.Satellites),
	})
	return e.enc.Build(mavlink.MsgIDGPSRawInt, payload)
}

func (e *Emitter) attitude(now time.Time) []byte {
	s := e.state
	payload := mavlink.AttitudeLayout.Encode(mavlink.Values{
		"time_boot_ms": e.bootMillis(now),
		"roll":         float64(s.Roll),
		"pitch":        float64(s.Pitch),
		"yaw":          float64(s.Yaw),
	})
	return e.enc.Build(mavlink.MsgIDAttitude, payload)
}

func (e *Emitter) sysStatus() []byte {
	s := e.state
	payload := mavlink.SysStatusLayout.Encode(mavlink.Values{
		"onboard_control_sensors_present": sensorsAll,
		"onboard_control_sensors_enabled": sensorsAll,
		"onboard_control_sensors_health":  sensorsAll,
		"load":                            cpuLoad,
		"voltage_battery":                 float64(s.BatteryVoltage),
		"current_battery":                 float64(s.BatteryCurrent),
		"battery_remaining":               float64(s.BatteryRemaining),
	})
	return e.enc.Build(mavlink.MsgIDSysStatus, payload)
}
