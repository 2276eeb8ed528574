package relay

import (
	"encoding/binary"
	"math"

	"github.com/dbehnke/mavtrap/pkg/intent"
	"github.com/dbehnke/mavtrap/pkg/mavlink"
)

// Class is how the relay treats a frame from the external peer
type Class int

const (
	ClassSilent  Class = iota // forwarded, never logged
	ClassRequest              // logged as a request
	ClassCommand              // logged unless the noise filter suppresses it
	ClassOther                // logged as unknown
)

// String returns the class name
func (c Class) String() string {
	switch c {
	case ClassSilent:
		return "silent"
	case ClassRequest:
		return "request"
	case ClassCommand:
		return "command"
	default:
		return "other"
	}
}

// Routine ground station chatter
var silent = map[uint8]bool{
	mavlink.MsgIDHeartbeat:          true,
	mavlink.MsgIDSystemTime:         true,
	mavlink.MsgIDMissionRequestList: true,
	mavlink.MsgIDMissionAck:         true,
	mavlink.MsgIDMissionRequestInt:  true,
	mavlink.MsgIDRequestDataStream:  true,
	mavlink.MsgIDFileTransfer:       true,
	mavlink.MsgIDTimesync:           true,
	mavlink.MsgIDTerrainData:        true,
}

// Classify returns the class of a message id
func Classify(msgID uint8) Class {
	switch {
	case silent[msgID]:
		return ClassSilent
	case msgID == mavlink.MsgIDParamRequestRead, msgID == mavlink.MsgIDParamRequestList:
		return ClassRequest
	case msgID == mavlink.MsgIDCommandLong, msgID == mavlink.MsgIDCommandInt:
		return ClassCommand
	default:
		return ClassOther
	}
}

// Requested message ids polled by ground stations on connect
const (
	msgHomePosition      = 242
	msgExtendedSysStatus = 245
)

// commandOffset is where both COMMAND_LONG and COMMAND_INT carry the command
const commandOffset = 28

// Filter recognizes the automatic polling a ground station performs on
// connect. It remembers the previous command: a mode change directly after a
// guided reposition is part of the reposition.
type Filter struct {
	lastCommand uint16
}

// LastCommand returns the command code of the previous command frame, 0
// before any was seen
func (f *Filter) LastCommand() uint16 {
	return f.lastCommand
}

// Suppress evaluates a command frame and reports whether its event should be
// dropped. Every call updates the remembered command, whether or not the
// frame is suppressed. COMMAND_INT frames are never suppressed.
func (f *Filter) Suppress(fr *mavlink.Frame) bool {
	cmd, ok := commandCode(fr.Payload)
	if !ok {
		// An unreadable command still separates what came before from what follows
		f.lastCommand = 0
		return false
	}

	prev := f.lastCommand
	f.lastCommand = cmd

	if fr.MsgID != mavlink.MsgIDCommandLong {
		return false
	}

	requested := int(param1(fr.Payload))
	switch {
	case cmd == intent.CmdRequestMessage || cmd == intent.CmdRequestAutopilotCaps:
		return true
	case (cmd == intent.CmdSetMessageInterval || cmd == intent.CmdRequestMessage) &&
		(requested == msgHomePosition || requested == msgExtendedSysStatus):
		return true
	case cmd == intent.CmdRequestCameraInformation && requested == mavlink.MsgIDSysStatus:
		return true
	case cmd == intent.CmdDoSetMode && prev == intent.CmdDoReposition:
		return true
	}
	return false
}

func commandCode(payload []byte) (uint16, bool) {
	if len(payload) < commandOffset+2 {
		return 0, false
	}
	return binary.LittleEndian.Uint16(payload[commandOffset:]), true
}

func param1(payload []byte) float32 {
	v := math.Float32frombits(binary.LittleEndian.Uint32(payload[0:4]))
	if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
		return -1
	}
	return v
}
