package intent

import (
	"math"
	"strconv"

	"github.com/dbehnke/mavtrap/pkg/mavlink"
)

// Scale for COMMAND_INT x/y coordinates (degrees * 1e7)
const coordScale = 1e-7

func decodeHeartbeat(f *mavlink.Frame) (*Intent, error) {
	v, err := mavlink.HeartbeatLayout.Decode(f.Payload)
	if err != nil {
		return nil, err
	}

	vehicleType := uint8(v["type"])
	autopilot := uint8(v["autopilot"])
	baseMode := uint8(v["base_mode"])
	customMode := int(v["custom_mode"])

	in := newIntent(CategoryHeartbeat, f)
	in.Params = map[string]interface{}{
		"vehicle_type":    VehicleTypeName(vehicleType),
		"vehicle_type_id": int(vehicleType),
		"autopilot":       AutopilotName(autopilot),
		"autopilot_id":    int(autopilot),
		"system_status":   SystemStateName(uint8(v["system_status"])),
		"armed":           baseMode&mavlink.ModeFlagSafetyArmed != 0,
		"custom_mode":     customMode,
	}
	if autopilot == autopilotArduPilot && multirotorTypes[vehicleType] && baseMode&mavlink.ModeFlagCustomModeEnabled != 0 {
		in.Params["flight_mode"] = FlightModeName(customMode)
	}
	return in, nil
}

func decodeCommandLong(f *mavlink.Frame) (*Intent, error) {
	v, err := mavlink.CommandLongLayout.Decode(f.Payload)
	if err != nil {
		return nil, err
	}

	cmd := uint16(v["command"])
	in := newIntent(CategoryCommand, f)
	in.CommandID = cmd
	in.Command = CommandName(cmd)

	switch cmd {
	case CmdComponentArmDisarm:
		action := UnknownLabel
		switch int(v["param1"]) {
		case 1:
			action = "arm"
		case 0:
			action = "disarm"
		}
		in.Params = map[string]interface{}{
			"action": action,
			"forced": int(v["param2"]) == forceArmMagic,
		}

	case CmdDoSetMode:
		mode := int(v["param2"])
		in.Params = map[string]interface{}{
			"mode_name":  FlightModeName(mode),
			"mode_value": mode,
			"base_mode":  int(v["param1"]),
		}

	case CmdNavTakeoff:
		in.Params = map[string]interface{}{
			"altitude": finite(v["param7"]),
		}

	case CmdNavLand:
		in.Params = map[string]interface{}{
			"latitude":  finite(v["param5"]),
			"longitude": finite(v["param6"]),
			"altitude":  finite(v["param7"]),
		}

	case CmdNavReturnToLaunch:
		in.Params = map[string]interface{}{}

	case CmdDoReposition:
		in.Params = map[string]interface{}{
			"speed":     finite(v["param1"]),
			"latitude":  finite(v["param5"]),
			"longitude": finite(v["param6"]),
			"altitude":  finite(v["param7"]),
		}

	case CmdSetMessageInterval, CmdRequestMessage:
		requested := int(v["param1"])
		in.Params = map[string]interface{}{
			"requested_message_id":   requested,
			"requested_message_name": requestedName(requested),
			"category":               requestedGroup(requested),
		}
		if cmd == CmdSetMessageInterval {
			in.Params["interval_us"] = finite(v["param2"])
		}

	default:
		in.Params = nonZeroParams(v, 7)
	}

	if ts, ok := v["target_system"]; ok {
		in.Params["target_system"] = int(ts)
	}
	return in, nil
}

func decodeCommandInt(f *mavlink.Frame) (*Intent, error) {
	v, err := mavlink.CommandIntLayout.Decode(f.Payload)
	if err != nil {
		return nil, err
	}

	cmd := uint16(v["command"])
	in := newIntent(CategoryCommand, f)
	in.CommandID = cmd
	in.Command = UnknownLabel
	if name, ok := intCommands[cmd]; ok {
		in.Command = name
	}

	in.Params = nonZeroParams(v, 4)
	in.Params["latitude"] = v["x"] * coordScale
	in.Params["longitude"] = v["y"] * coordScale
	in.Params["altitude"] = finite(v["z"])
	if frame, ok := v["frame"]; ok {
		in.Params["frame"] = int(frame)
	}
	if cmd == CmdDoReposition {
		in.Params["speed"] = finite(v["param1"])
	}
	return in, nil
}

// nonZeroParams returns param1..paramN, skipping zero values
func nonZeroParams(v mavlink.Values, n int) map[string]interface{} {
	params := make(map[string]interface{})
	for i := 1; i <= n; i++ {
		key := paramKeys[i-1]
		if p := v[key]; p != 0 {
			params[key] = finite(p)
		}
	}
	return params
}

var paramKeys = [...]string{"param1", "param2", "param3", "param4", "param5", "param6", "param7"}

func requestedName(id int) string {
	if id < 0 {
		return UnknownLabel
	}
	if name := MessageName(uint32(id)); name != "" {
		return name
	}
	return UnknownLabel
}

func requestedGroup(id int) string {
	if id < 0 {
		return UnknownLabel
	}
	if group := MessageGroup(uint32(id)); group != "" {
		return group
	}
	return UnknownLabel
}

// finite keeps NaN and Inf out of params so records stay JSON encodable
func finite(f float64) interface{} {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return f
}
