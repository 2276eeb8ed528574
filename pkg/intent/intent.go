// Package intent turns parsed MAVLink frames into labeled records of what
// the sender was trying to do.
package intent

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dbehnke/mavtrap/pkg/mavlink"
)

// Category classifies a decoded frame
type Category string

const (
	CategoryConnection Category = "connection"
	CategoryHeartbeat  Category = "heartbeat"
	CategoryCommand    Category = "command"
	CategoryRequest    Category = "request"
	CategoryUnknown    Category = "unknown"
)

// Intent is a read-only view over one frame. It is built per frame and
// handed to the event sink.
type Intent struct {
	Category    Category               `json:"category"`
	MessageID   uint32                 `json:"message_id"`
	MessageName string                 `json:"message_name,omitempty"`
	Group       string                 `json:"group,omitempty"`
	CommandID   uint16                 `json:"command_id,omitempty"`
	Command     string                 `json:"command,omitempty"`
	Params      map[string]interface{} `json:"params,omitempty"`
	PayloadLen  int                    `json:"payload_len"`
}

// String renders a compact one-line description for console output
func (i *Intent) String() string {
	var b strings.Builder
	b.WriteString(string(i.Category))
	if i.MessageName != "" {
		fmt.Fprintf(&b, " %s", i.MessageName)
	} else {
		fmt.Fprintf(&b, " msg=%d", i.MessageID)
	}
	if i.Command != "" {
		fmt.Fprintf(&b, " %s(%d)", i.Command, i.CommandID)
	}
	if len(i.Params) > 0 {
		keys := make([]string, 0, len(i.Params))
		for k := range i.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, i.Params[k])
		}
	}
	return b.String()
}

type decoder func(f *mavlink.Frame) (*Intent, error)

// Registry of message ids (low byte) with dedicated decoding
var registry = map[uint8]decoder{
	mavlink.MsgIDHeartbeat:         decodeHeartbeat,
	mavlink.MsgIDCommandLong:       decodeCommandLong,
	mavlink.MsgIDCommandInt:        decodeCommandInt,
	mavlink.MsgIDParamRequestRead:  decodeRequest,
	mavlink.MsgIDParamRequestList:  decodeRequest,
	mavlink.MsgIDRequestDataStream: decodeRequest,
}

// Decode builds the intent for a frame. It never fails: frames without a
// decoder, or whose payload is too short for their layout, are returned as
// CategoryUnknown.
func Decode(f *mavlink.Frame) *Intent {
	if dec, ok := registry[f.MsgID]; ok {
		if in, err := dec(f); err == nil {
			return in
		}
	}
	return newIntent(CategoryUnknown, f)
}

// IsRegistered reports whether msgID has a dedicated decoder
func IsRegistered(msgID uint8) bool {
	_, ok := registry[msgID]
	return ok
}

func newIntent(category Category, f *mavlink.Frame) *Intent {
	return &Intent{
		Category:    category,
		MessageID:   f.RawMsgID,
		MessageName: MessageName(f.RawMsgID),
		Group:       MessageGroup(f.RawMsgID),
		PayloadLen:  len(f.Payload),
	}
}

func decodeRequest(f *mavlink.Frame) (*Intent, error) {
	return newIntent(CategoryRequest, f), nil
}
