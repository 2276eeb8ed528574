package mavlink

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Version identifies which header layout a frame arrived with
type Version uint8

const (
	V1 Version = 1 // marker 0xFE, 6 byte header
	V2 Version = 2 // marker 0xFD, 10 byte header
)

// String returns a short label for the version
func (v Version) String() string {
	switch v {
	case V1:
		return "v1"
	case V2:
		return "v2"
	default:
		return fmt.Sprintf("v?(%d)", uint8(v))
	}
}

// HeaderLen returns the header length for the version
func (v Version) HeaderLen() int {
	if v == V2 {
		return HeaderLenV2
	}
	return HeaderLenV1
}

var (
	// ErrShortBuffer is returned when the buffer cannot hold a complete frame
	ErrShortBuffer = errors.New("mavlink: buffer too short for frame")
	// ErrUnknownMarker is returned when the first byte is not a known header marker
	ErrUnknownMarker = errors.New("mavlink: unknown header marker")
)

// Frame is one parsed MAVLink frame. Both header variants are normalized
// into this shape at parse time.
type Frame struct {
	Version       Version
	Length        uint8
	IncompatFlags uint8 // v2 only
	CompatFlags   uint8 // v2 only
	Sequence      uint8
	SystemID      uint8
	ComponentID   uint8
	MsgID         uint8  // low byte of the message id
	RawMsgID      uint32 // full 24-bit id for v2, same as MsgID for v1
	Payload       []byte // exactly Length bytes
	Checksum      uint16 // as received, not verified
}

// Size returns the number of wire bytes the frame occupies
func (f *Frame) Size() int {
	return f.Version.HeaderLen() + int(f.Length) + ChecksumLen
}

// Parse parses a single frame from the start of data. Trailing bytes after
// the frame are ignored; use Size to find the next frame.
func Parse(data []byte) (*Frame, error) {
	if len(data) == 0 {
		return nil, ErrShortBuffer
	}

	var version Version
	switch data[0] {
	case MarkerV1:
		version = V1
	case MarkerV2:
		version = V2
	default:
		return nil, fmt.Errorf("%w: 0x%02X", ErrUnknownMarker, data[0])
	}

	headerLen := version.HeaderLen()
	if len(data) < headerLen+ChecksumLen {
		return nil, ErrShortBuffer
	}

	length := data[1]
	total := headerLen + int(length) + ChecksumLen
	if len(data) < total {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrShortBuffer, total, len(data))
	}

	f := &Frame{
		Version: version,
		Length:  length,
	}

	if version == V1 {
		f.Sequence = data[2]
		f.SystemID = data[3]
		f.ComponentID = data[4]
		f.MsgID = data[5]
		f.RawMsgID = uint32(data[5])
	} else {
		f.IncompatFlags = data[2]
		f.CompatFlags = data[3]
		f.Sequence = data[4]
		f.SystemID = data[5]
		f.ComponentID = data[6]
		f.RawMsgID = uint32(data[7]) | uint32(data[8])<<8 | uint32(data[9])<<16
		f.MsgID = data[7]
	}

	f.Payload = make([]byte, length)
	copy(f.Payload, data[headerLen:headerLen+int(length)])

	f.Checksum = binary.LittleEndian.Uint16(data[headerLen+int(length):])

	return f, nil
}

// ParseAll parses consecutive frames from a datagram. Parsing stops at the
// first failure; the frames parsed so far and the number of bytes they
// consumed are returned.
func ParseAll(data []byte) ([]*Frame, int) {
	var frames []*Frame
	offset := 0
	for offset < len(data) {
		f, err := Parse(data[offset:])
		if err != nil {
			break
		}
		frames = append(frames, f)
		offset += f.Size()
	}
	return frames, offset
}

// header rebuilds the checksummed header bytes (everything after the marker)
func (f *Frame) header() []byte {
	if f.Version == V2 {
		return []byte{
			f.Length,
			f.IncompatFlags,
			f.CompatFlags,
			f.Sequence,
			f.SystemID,
			f.ComponentID,
			byte(f.RawMsgID),
			byte(f.RawMsgID >> 8),
			byte(f.RawMsgID >> 16),
		}
	}
	return []byte{f.Length, f.Sequence, f.SystemID, f.ComponentID, f.MsgID}
}

// ComputeChecksum recomputes the checksum the sender should have written.
// known is false when no seed byte is registered for the message.
func (f *Frame) ComputeChecksum() (sum uint16, known bool) {
	extra, known := CRCExtra(f.MsgID)
	if f.Version == V2 && f.RawMsgID > 0xFF {
		known = false
	}
	crc := AccumulateBytes(checksumInit, f.header())
	crc = AccumulateBytes(crc, f.Payload)
	return Accumulate(crc, extra), known
}

// Verify reports whether the received checksum matches. Frames whose seed is
// unknown cannot be checked and report ok=true, known=false.
func (f *Frame) Verify() (ok bool, known bool) {
	sum, known := f.ComputeChecksum()
	if !known {
		return true, false
	}
	return sum == f.Checksum, true
}
