package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dbehnke/mavtrap/pkg/intent"
	"github.com/dbehnke/mavtrap/pkg/mavlink"
)

func commandLong(cmd uint16, p1 float64) *mavlink.Frame {
	return &mavlink.Frame{
		MsgID:    mavlink.MsgIDCommandLong,
		RawMsgID: mavlink.MsgIDCommandLong,
		Payload: mavlink.CommandLongLayout.Encode(mavlink.Values{
			"command": float64(cmd),
			"param1":  p1,
		}),
	}
}

func commandInt(cmd uint16, p1 float64) *mavlink.Frame {
	return &mavlink.Frame{
		MsgID:    mavlink.MsgIDCommandInt,
		RawMsgID: mavlink.MsgIDCommandInt,
		Payload: mavlink.CommandIntLayout.Encode(mavlink.Values{
			"command": float64(cmd),
			"param1":  p1,
		}),
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		msgID uint8
		want  Class
	}{
		{mavlink.MsgIDHeartbeat, ClassSilent},
		{mavlink.MsgIDSystemTime, ClassSilent},
		{mavlink.MsgIDMissionRequestList, ClassSilent},
		{mavlink.MsgIDMissionAck, ClassSilent},
		{mavlink.MsgIDMissionRequestInt, ClassSilent},
		{mavlink.MsgIDRequestDataStream, ClassSilent},
		{mavlink.MsgIDFileTransfer, ClassSilent},
		{mavlink.MsgIDTimesync, ClassSilent},
		{mavlink.MsgIDTerrainData, ClassSilent},
		{mavlink.MsgIDParamRequestRead, ClassRequest},
		{mavlink.MsgIDParamRequestList, ClassRequest},
		{mavlink.MsgIDCommandInt, ClassCommand},
		{mavlink.MsgIDCommandLong, ClassCommand},
		{mavlink.MsgIDSysStatus, ClassOther},
		{200, ClassOther},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.msgID), "msg %d", tt.msgID)
	}
	assert.Equal(t, "silent", ClassSilent.String())
	assert.Equal(t, "other", Class(42).String())
}

func TestFilter_Rules(t *testing.T) {
	tests := []struct {
		name  string
		frame *mavlink.Frame
		want  bool
	}{
		{"request message", commandLong(intent.CmdRequestMessage, 33), true},
		{"autopilot capabilities", commandLong(intent.CmdRequestAutopilotCaps, 1), true},
		{"interval home position", commandLong(intent.CmdSetMessageInterval, 242), true},
		{"interval extended status", commandLong(intent.CmdSetMessageInterval, 245), true},
		{"interval other message", commandLong(intent.CmdSetMessageInterval, 33), false},
		{"camera info sys status", commandLong(intent.CmdRequestCameraInformation, 1), true},
		{"camera info other", commandLong(intent.CmdRequestCameraInformation, 0), false},
		{"arm", commandLong(intent.CmdComponentArmDisarm, 1), false},
		{"set mode alone", commandLong(intent.CmdDoSetMode, 1), false},
		{"command int request message", commandInt(intent.CmdRequestMessage, 33), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f Filter
			assert.Equal(t, tt.want, f.Suppress(tt.frame))
		})
	}
}

func TestFilter_ModeChangeAfterReposition(t *testing.T) {
	var f Filter

	assert.False(t, f.Suppress(commandLong(intent.CmdDoReposition, 0)))
	assert.Equal(t, uint16(intent.CmdDoReposition), f.LastCommand())
	assert.True(t, f.Suppress(commandLong(intent.CmdDoSetMode, 1)))

	// A second mode change no longer follows a reposition
	assert.False(t, f.Suppress(commandLong(intent.CmdDoSetMode, 1)))
}

func TestFilter_InterveningCommand(t *testing.T) {
	var f Filter

	f.Suppress(commandLong(intent.CmdDoReposition, 0))
	f.Suppress(commandLong(intent.CmdRequestMessage, 33))
	assert.False(t, f.Suppress(commandLong(intent.CmdDoSetMode, 1)))
}

func TestFilter_CommandIntUpdatesLastCommand(t *testing.T) {
	var f Filter

	assert.False(t, f.Suppress(commandInt(intent.CmdDoReposition, 0)))
	assert.Equal(t, uint16(intent.CmdDoReposition), f.LastCommand())
	assert.True(t, f.Suppress(commandLong(intent.CmdDoSetMode, 1)))
}

func TestFilter_ShortPayloadResets(t *testing.T) {
	var f Filter

	f.Suppress(commandLong(intent.CmdDoReposition, 0))
	short := &mavlink.Frame{MsgID: mavlink.MsgIDCommandLong, Payload: make([]byte, 20)}
	assert.False(t, f.Suppress(short))
	assert.Equal(t, uint16(0), f.LastCommand())
	assert.False(t, f.Suppress(commandLong(intent.CmdDoSetMode, 1)))
}
