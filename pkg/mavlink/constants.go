package mavlink

// Header markers (first byte of every frame)
const (
	MarkerV1 = 0xFE // MAVLink 1: 6 byte header
	MarkerV2 = 0xFD // MAVLink 2: 10 byte header
)

// Frame size constants (in bytes)
const (
	HeaderLenV1   = 6
	HeaderLenV2   = 10
	ChecksumLen   = 2
	MaxPayloadLen = 255
	MaxFrameLenV1 = HeaderLenV1 + MaxPayloadLen + ChecksumLen
)

// Default identity used on every frame we build
const (
	DefaultSystemID    = 1
	DefaultComponentID = 1
)

// Message IDs used by the engine
const (
	MsgIDHeartbeat          = 0
	MsgIDSysStatus          = 1
	MsgIDSystemTime         = 2
	MsgIDParamRequestRead   = 20
	MsgIDParamRequestList   = 21
	MsgIDParamValue         = 22
	MsgIDGPSRawInt          = 24
	MsgIDAttitude           = 30
	MsgIDGlobalPositionInt  = 33
	MsgIDMissionRequestList = 43
	MsgIDMissionAck         = 47
	MsgIDMissionRequestInt  = 51
	MsgIDRequestDataStream  = 66
	MsgIDCommandInt         = 75
	MsgIDCommandLong        = 76
	MsgIDCommandAck         = 77
	MsgIDFileTransfer       = 110
	MsgIDTimesync           = 111
	MsgIDTerrainData        = 134
)

// Payload lengths of the messages we build (MAVLink 1 base lengths)
const (
	HeartbeatLen         = 9
	SysStatusLen         = 31
	ParamValueLen        = 25
	GPSRawIntLen         = 30
	AttitudeLen          = 28
	GlobalPositionIntLen = 28
	CommandAckLen        = 3
)

// Heartbeat field values
const (
	ModeFlagCustomModeEnabled = 0x01
	ModeFlagGuidedEnabled     = 0x08
	ModeFlagStabilizeEnabled  = 0x10
	ModeFlagSafetyArmed       = 0x80
	StateStandby              = 3
	StateActive               = 4
	ProtocolVersion           = 3
)

// MAV_RESULT values used in COMMAND_ACK
const (
	ResultAccepted    = 0
	ResultUnsupported = 3
)

// MAV_PARAM_TYPE_REAL32
const ParamTypeReal32 = 9
