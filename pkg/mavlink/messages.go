package mavlink

// Payload layouts in MAVLink wire order (fields sorted by size, largest first)

var HeartbeatLayout = Layout{
	Name: "HEARTBEAT",
	Fields: []Field{
		{Name: "custom_mode", Offset: 0, Kind: Uint32},
		{Name: "type", Offset: 4, Kind: Uint8},
		{Name: "autopilot", Offset: 5, Kind: Uint8},
		{Name: "base_mode", Offset: 6, Kind: Uint8},
		{Name: "system_status", Offset: 7, Kind: Uint8},
		{Name: "mavlink_version", Offset: 8, Kind: Uint8, Optional: true},
	},
}

var SysStatusLayout = Layout{
	Name: "SYS_STATUS",
	Fields: []Field{
		{Name: "onboard_control_sensors_present", Offset: 0, Kind: Uint32},
		{Name: "onboard_control_sensors_enabled", Offset: 4, Kind: Uint32},
		{Name: "onboard_control_sensors_health", Offset: 8, Kind: Uint32},
		{Name: "load", Offset: 12, Kind: Uint16},
		{Name: "voltage_battery", Offset: 14, Kind: Uint16},
		{Name: "current_battery", Offset: 16, Kind: Int16},
		{Name: "drop_rate_comm", Offset: 18, Kind: Uint16},
		{Name: "errors_comm", Offset: 20, Kind: Uint16},
		{Name: "errors_count1", Offset: 22, Kind: Uint16},
		{Name: "errors_count2", Offset: 24, Kind: Uint16},
		{Name: "errors_count3", Offset: 26, Kind: Uint16},
		{Name: "errors_count4", Offset: 28, Kind: Uint16},
		{Name: "battery_remaining", Offset: 30, Kind: Int8},
	},
}

var ParamRequestReadLayout = Layout{
	Name: "PARAM_REQUEST_READ",
	Fields: []Field{
		{Name: "param_index", Offset: 0, Kind: Int16},
		{Name: "target_system", Offset: 2, Kind: Uint8},
		{Name: "target_component", Offset: 3, Kind: Uint8},
		// param_id char[16] at offset 4, read with ParamID
	},
}

var ParamValueLayout = Layout{
	Name: "PARAM_VALUE",
	Fields: []Field{
		{Name: "param_value", Offset: 0, Kind: Float32},
		{Name: "param_count", Offset: 4, Kind: Uint16},
		{Name: "param_index", Offset: 6, Kind: Uint16},
		// param_id char[16] at offset 8
		{Name: "param_type", Offset: 24, Kind: Uint8},
	},
}

var GPSRawIntLayout = Layout{
	Name: "GPS_RAW_INT",
	Fields: []Field{
		{Name: "time_usec", Offset: 0, Kind: Uint64},
		{Name: "lat", Offset: 8, Kind: Int32},
		{Name: "lon", Offset: 12, Kind: Int32},
		{Name: "alt", Offset: 16, Kind: Int32},
		{Name: "eph", Offset: 20, Kind: Uint16},
		{Name: "epv", Offset: 22, Kind: Uint16},
		{Name: "vel", Offset: 24, Kind: Uint16},
		{Name: "cog", Offset: 26, Kind: Uint16},
		{Name: "fix_type", Offset: 28, Kind: Uint8},
		{Name: "satellites_visible", Offset: 29, Kind: Uint8},
	},
}

var AttitudeLayout = Layout{
	Name: "ATTITUDE",
	Fields: []Field{
		{Name: "time_boot_ms", Offset: 0, Kind: Uint32},
		{Name: "roll", Offset: 4, Kind: Float32},
		{Name: "pitch", Offset: 8, Kind: Float32},
		{Name: "yaw", Offset: 12, Kind: Float32},
		{Name: "rollspeed", Offset: 16, Kind: Float32},
		{Name: "pitchspeed", Offset: 20, Kind: Float32},
		{Name: "yawspeed", Offset: 24, Kind: Float32},
	},
}

var GlobalPositionIntLayout = Layout{
	Name: "GLOBAL_POSITION_INT",
	Fields: []Field{
		{Name: "time_boot_ms", Offset: 0, Kind: Uint32},
		{Name: "lat", Offset: 4, Kind: Int32},
		{Name: "lon", Offset: 8, Kind: Int32},
		{Name: "alt", Offset: 12, Kind: Int32},
		{Name: "relative_alt", Offset: 16, Kind: Int32},
		{Name: "vx", Offset: 20, Kind: Int16},
		{Name: "vy", Offset: 22, Kind: Int16},
		{Name: "vz", Offset: 24, Kind: Int16},
		{Name: "hdg", Offset: 26, Kind: Uint16},
	},
}

// CommandLongLayout requires bytes through the command code; the target and
// confirmation bytes are decoded when present.
var CommandLongLayout = Layout{
	Name: "COMMAND_LONG",
	Fields: []Field{
		{Name: "param1", Offset: 0, Kind: Float32},
		{Name: "param2", Offset: 4, Kind: Float32},
		{Name: "param3", Offset: 8, Kind: Float32},
		{Name: "param4", Offset: 12, Kind: Float32},
		{Name: "param5", Offset: 16, Kind: Float32},
		{Name: "param6", Offset: 20, Kind: Float32},
		{Name: "param7", Offset: 24, Kind: Float32},
		{Name: "command", Offset: 28, Kind: Uint16},
		{Name: "target_system", Offset: 30, Kind: Uint8, Optional: true},
		{Name: "target_component", Offset: 31, Kind: Uint8, Optional: true},
		{Name: "confirmation", Offset: 32, Kind: Uint8, Optional: true},
	},
}

var CommandIntLayout = Layout{
	Name: "COMMAND_INT",
	Fields: []Field{
		{Name: "param1", Offset: 0, Kind: Float32},
		{Name: "param2", Offset: 4, Kind: Float32},
		{Name: "param3", Offset: 8, Kind: Float32},
		{Name: "param4", Offset: 12, Kind: Float32},
		{Name: "x", Offset: 16, Kind: Int32},
		{Name: "y", Offset: 20, Kind: Int32},
		{Name: "z", Offset: 24, Kind: Float32},
		{Name: "command", Offset: 28, Kind: Uint16},
		{Name: "target_system", Offset: 30, Kind: Uint8, Optional: true},
		{Name: "target_component", Offset: 31, Kind: Uint8, Optional: true},
		{Name: "frame", Offset: 32, Kind: Uint8, Optional: true},
		{Name: "current", Offset: 33, Kind: Uint8, Optional: true},
		{Name: "autocontinue", Offset: 34, Kind: Uint8, Optional: true},
	},
}

var CommandAckLayout = Layout{
	Name: "COMMAND_ACK",
	Fields: []Field{
		{Name: "command", Offset: 0, Kind: Uint16},
		{Name: "result", Offset: 2, Kind: Uint8},
	},
}

// param_id offsets inside PARAM_REQUEST_READ and PARAM_VALUE
const (
	paramIDLen               = 16
	paramRequestReadIDOffset = 4
	paramValueIDOffset       = 8
)

// ParamID extracts the NUL-padded parameter name from a PARAM_REQUEST_READ
// payload. It returns "" when the payload does not carry one.
func ParamID(payload []byte) string {
	if len(payload) <= paramRequestReadIDOffset {
		return ""
	}
	end := paramRequestReadIDOffset + paramIDLen
	if end > len(payload) {
		end = len(payload)
	}
	raw := payload[paramRequestReadIDOffset:end]
	for i, b := range raw {
		if b == 0 {
			return string(raw[:i])
		}
	}
	return string(raw)
}

// HeartbeatPayload builds a HEARTBEAT payload
func HeartbeatPayload(vehicleType, autopilot, baseMode, systemStatus uint8, customMode uint32) []byte {
	return HeartbeatLayout.Encode(Values{
		"custom_mode":     float64(customMode),
		"type":            float64(vehicleType),
		"autopilot":       float64(autopilot),
		"base_mode":       float64(baseMode),
		"system_status":   float64(systemStatus),
		"mavlink_version": ProtocolVersion,
	})
}

// CommandAckPayload builds a COMMAND_ACK payload
func CommandAckPayload(command uint16, result uint8) []byte {
	return CommandAckLayout.Encode(Values{
		"command": float64(command),
		"result":  float64(result),
	})
}

// ParamValuePayload builds a PARAM_VALUE payload for a REAL32 parameter
func ParamValuePayload(id string, value float32, index, count uint16) []byte {
	buf := ParamValueLayout.Encode(Values{
		"param_value": float64(value),
		"param_count": float64(count),
		"param_index": float64(index),
		"param_type":  ParamTypeReal32,
	})
	copy(buf[paramValueIDOffset:paramValueIDOffset+paramIDLen], id)
	return buf
}
