package intent

import "fmt"

// UnknownLabel is returned by every table lookup that misses
const UnknownLabel = "Unknown"

// Message groups used for labeling
const (
	GroupSystem     = "system"
	GroupTelemetry  = "telemetry"
	GroupParameter  = "parameter"
	GroupMission    = "mission"
	GroupCommand    = "command"
	GroupControl    = "control"
	GroupTimeSync   = "time-sync"
	GroupTerrain    = "terrain"
	GroupConnection = "connection"
)

// MAV_TYPE
var vehicleTypes = map[uint8]string{
	0:  "Generic",
	1:  "Fixed-wing",
	2:  "Quad-rotor",
	3:  "Coaxial helicopter",
	4:  "Helicopter",
	5:  "Antenna tracker",
	6:  "Ground control station",
	7:  "Airship",
	8:  "Free balloon",
	9:  "Rocket",
	10: "Ground rover",
	11: "Surface boat",
	12: "Submarine",
	13: "Hexa-rotor",
	14: "Octo-rotor",
	15: "Tri-copter",
	16: "Flapping wing",
	17: "Kite",
	18: "Onboard companion",
	19: "VTOL tailsitter duo-rotor",
	20: "VTOL tailsitter quad-rotor",
	21: "VTOL tilt-rotor",
	22: "VTOL fixed-rotor",
	23: "VTOL tailsitter",
	24: "VTOL tilt-wing",
	26: "Gimbal",
	27: "ADS-B",
	28: "Parafoil",
	29: "Dodeca-rotor",
}

const autopilotArduPilot = 3

// Vehicle types flown with the ArduCopter mode set
var multirotorTypes = map[uint8]bool{
	2: true, 3: true, 4: true, 13: true, 14: true, 15: true, 29: true,
}

// MAV_AUTOPILOT
var autopilots = map[uint8]string{
	0:  "Generic",
	2:  "SLUGS",
	3:  "ArduPilot",
	4:  "OpenPilot",
	5:  "Generic waypoints only",
	6:  "Generic waypoints and simple navigation",
	7:  "Generic mission full",
	8:  "Invalid",
	9:  "PPZ",
	10: "UDB",
	11: "FlexiPilot",
	12: "PX4",
	13: "SMACCMPilot",
	14: "AutoQuad",
	15: "Armazila",
	16: "Aerob",
	17: "ASLUAV",
	18: "SmartAP",
	19: "AirRails",
	20: "Reflex",
}

// MAV_STATE
var systemStates = map[uint8]string{
	0: "Uninitialized",
	1: "Booting",
	2: "Calibrating",
	3: "Standby",
	4: "Active",
	5: "Critical",
	6: "Emergency",
	7: "Poweroff",
	8: "Flight termination",
}

// ArduCopter custom modes
var flightModes = map[int]string{
	0:  "STABILIZE",
	1:  "ACRO",
	2:  "ALT_HOLD",
	3:  "AUTO",
	4:  "GUIDED",
	5:  "LOITER",
	6:  "RTL",
	7:  "CIRCLE",
	9:  "LAND",
	11: "DRIFT",
	13: "SPORT",
	14: "FLIP",
	15: "AUTOTUNE",
	16: "POSHOLD",
	17: "BRAKE",
	18: "THROW",
	19: "AVOID_ADSB",
	20: "GUIDED_NOGPS",
	21: "SMART_RTL",
	22: "FLOWHOLD",
	23: "FOLLOW",
	24: "ZIGZAG",
	25: "SYSTEMID",
	26: "AUTOROTATE",
	27: "AUTO_RTL",
}

// MAV_CMD codes
const (
	CmdNavWaypoint              = 16
	CmdNavLoiterUnlim           = 17
	CmdNavReturnToLaunch        = 20
	CmdNavLand                  = 21
	CmdNavTakeoff               = 22
	CmdDoSetMode                = 176
	CmdDoReposition             = 192
	CmdDoSetROILocation         = 195
	CmdDoSetROI                 = 201
	CmdComponentArmDisarm       = 400
	CmdSetMessageInterval       = 511
	CmdRequestMessage           = 512
	CmdRequestAutopilotCaps     = 520
	CmdRequestCameraInformation = 521
)

// Magic param2 value that forces arming/disarming
const forceArmMagic = 21196

var commands = map[uint16]string{
	16:   "NAV_WAYPOINT",
	17:   "NAV_LOITER_UNLIM",
	18:   "NAV_LOITER_TURNS",
	19:   "NAV_LOITER_TIME",
	20:   "NAV_RETURN_TO_LAUNCH",
	21:   "NAV_LAND",
	22:   "NAV_TAKEOFF",
	84:   "NAV_VTOL_TAKEOFF",
	85:   "NAV_VTOL_LAND",
	92:   "NAV_GUIDED_ENABLE",
	93:   "NAV_DELAY",
	112:  "CONDITION_DELAY",
	115:  "CONDITION_YAW",
	176:  "DO_SET_MODE",
	177:  "DO_JUMP",
	178:  "DO_CHANGE_SPEED",
	179:  "DO_SET_HOME",
	181:  "DO_SET_RELAY",
	183:  "DO_SET_SERVO",
	185:  "DO_FLIGHTTERMINATION",
	189:  "DO_LAND_START",
	192:  "DO_REPOSITION",
	193:  "DO_PAUSE_CONTINUE",
	195:  "DO_SET_ROI_LOCATION",
	200:  "DO_DIGICAM_CONTROL",
	201:  "DO_SET_ROI",
	205:  "DO_MOUNT_CONTROL",
	211:  "DO_GRIPPER",
	241:  "PREFLIGHT_CALIBRATION",
	245:  "PREFLIGHT_STORAGE",
	246:  "PREFLIGHT_REBOOT_SHUTDOWN",
	252:  "OVERRIDE_GOTO",
	300:  "MISSION_START",
	400:  "COMPONENT_ARM_DISARM",
	410:  "GET_HOME_POSITION",
	510:  "GET_MESSAGE_INTERVAL",
	511:  "SET_MESSAGE_INTERVAL",
	512:  "REQUEST_MESSAGE",
	519:  "REQUEST_PROTOCOL_VERSION",
	520:  "REQUEST_AUTOPILOT_CAPABILITIES",
	521:  "REQUEST_CAMERA_INFORMATION",
	522:  "REQUEST_CAMERA_SETTINGS",
	527:  "REQUEST_CAMERA_CAPTURE_STATUS",
	2000: "IMAGE_START_CAPTURE",
	2001: "IMAGE_STOP_CAPTURE",
	2500: "VIDEO_START_CAPTURE",
	2501: "VIDEO_STOP_CAPTURE",
}

// Commands understood inside COMMAND_INT
var intCommands = map[uint16]string{
	16:  "NAV_WAYPOINT",
	17:  "NAV_LOITER_UNLIM",
	21:  "NAV_LAND",
	22:  "NAV_TAKEOFF",
	192: "DO_REPOSITION",
	195: "DO_SET_ROI_LOCATION",
	201: "DO_SET_ROI",
}

type messageInfo struct {
	Name  string
	Group string
}

// Known message ids, used for labeling only
var messages = map[uint32]messageInfo{
	0:   {"HEARTBEAT", GroupSystem},
	1:   {"SYS_STATUS", GroupSystem},
	2:   {"SYSTEM_TIME", GroupTimeSync},
	4:   {"PING", GroupSystem},
	11:  {"SET_MODE", GroupControl},
	20:  {"PARAM_REQUEST_READ", GroupParameter},
	21:  {"PARAM_REQUEST_LIST", GroupParameter},
	22:  {"PARAM_VALUE", GroupParameter},
	23:  {"PARAM_SET", GroupParameter},
	24:  {"GPS_RAW_INT", GroupTelemetry},
	26:  {"SCALED_IMU", GroupTelemetry},
	27:  {"RAW_IMU", GroupTelemetry},
	29:  {"SCALED_PRESSURE", GroupTelemetry},
	30:  {"ATTITUDE", GroupTelemetry},
	31:  {"ATTITUDE_QUATERNION", GroupTelemetry},
	32:  {"LOCAL_POSITION_NED", GroupTelemetry},
	33:  {"GLOBAL_POSITION_INT", GroupTelemetry},
	35:  {"RC_CHANNELS_RAW", GroupTelemetry},
	36:  {"SERVO_OUTPUT_RAW", GroupTelemetry},
	39:  {"MISSION_ITEM", GroupMission},
	40:  {"MISSION_REQUEST", GroupMission},
	41:  {"MISSION_SET_CURRENT", GroupMission},
	42:  {"MISSION_CURRENT", GroupMission},
	43:  {"MISSION_REQUEST_LIST", GroupMission},
	44:  {"MISSION_COUNT", GroupMission},
	45:  {"MISSION_CLEAR_ALL", GroupMission},
	47:  {"MISSION_ACK", GroupMission},
	48:  {"SET_GPS_GLOBAL_ORIGIN", GroupControl},
	49:  {"GPS_GLOBAL_ORIGIN", GroupTelemetry},
	51:  {"MISSION_REQUEST_INT", GroupMission},
	62:  {"NAV_CONTROLLER_OUTPUT", GroupTelemetry},
	65:  {"RC_CHANNELS", GroupTelemetry},
	66:  {"REQUEST_DATA_STREAM", GroupTelemetry},
	69:  {"MANUAL_CONTROL", GroupControl},
	70:  {"RC_CHANNELS_OVERRIDE", GroupControl},
	73:  {"MISSION_ITEM_INT", GroupMission},
	74:  {"VFR_HUD", GroupTelemetry},
	75:  {"COMMAND_INT", GroupCommand},
	76:  {"COMMAND_LONG", GroupCommand},
	77:  {"COMMAND_ACK", GroupCommand},
	82:  {"SET_ATTITUDE_TARGET", GroupControl},
	84:  {"SET_POSITION_TARGET_LOCAL_NED", GroupControl},
	86:  {"SET_POSITION_TARGET_GLOBAL_INT", GroupControl},
	87:  {"POSITION_TARGET_GLOBAL_INT", GroupTelemetry},
	109: {"RADIO_STATUS", GroupSystem},
	110: {"FILE_TRANSFER_PROTOCOL", GroupSystem},
	111: {"TIMESYNC", GroupTimeSync},
	116: {"SCALED_IMU2", GroupTelemetry},
	125: {"POWER_STATUS", GroupSystem},
	126: {"SERIAL_CONTROL", GroupSystem},
	133: {"TERRAIN_REQUEST", GroupTerrain},
	134: {"TERRAIN_DATA", GroupTerrain},
	135: {"TERRAIN_CHECK", GroupTerrain},
	136: {"TERRAIN_REPORT", GroupTerrain},
	147: {"BATTERY_STATUS", GroupSystem},
	148: {"AUTOPILOT_VERSION", GroupSystem},
	230: {"ESTIMATOR_STATUS", GroupTelemetry},
	241: {"VIBRATION", GroupTelemetry},
	242: {"HOME_POSITION", GroupTelemetry},
	243: {"SET_HOME_POSITION", GroupControl},
	244: {"MESSAGE_INTERVAL", GroupTelemetry},
	245: {"EXTENDED_SYS_STATE", GroupSystem},
	253: {"STATUSTEXT", GroupSystem},
	300: {"PROTOCOL_VERSION", GroupSystem},
}

// VehicleTypeName resolves a MAV_TYPE value
func VehicleTypeName(v uint8) string {
	if name, ok := vehicleTypes[v]; ok {
		return name
	}
	return UnknownLabel
}

// AutopilotName resolves a MAV_AUTOPILOT value
func AutopilotName(v uint8) string {
	if name, ok := autopilots[v]; ok {
		return name
	}
	return UnknownLabel
}

// SystemStateName resolves a MAV_STATE value
func SystemStateName(v uint8) string {
	if name, ok := systemStates[v]; ok {
		return name
	}
	return UnknownLabel
}

// FlightModeName resolves an ArduCopter custom mode. Misses are labeled
// with the raw value, e.g. "Unknown(8)".
func FlightModeName(mode int) string {
	if name, ok := flightModes[mode]; ok {
		return name
	}
	return fmt.Sprintf("%s(%d)", UnknownLabel, mode)
}

// CommandName resolves a MAV_CMD code
func CommandName(cmd uint16) string {
	if name, ok := commands[cmd]; ok {
		return name
	}
	return UnknownLabel
}

// MessageName resolves a message id, returning "" when it is not known
func MessageName(id uint32) string {
	return messages[id].Name
}

// MessageGroup returns the labeling group for a message id, or "" when it
// is not known
func MessageGroup(id uint32) string {
	return messages[id].Group
}
