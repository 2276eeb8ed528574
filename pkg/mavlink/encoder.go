package mavlink

// Encoder builds MAVLink 1 frames. It owns the outgoing sequence counter, so
// every frame built through the same Encoder shares one sequence space.
type Encoder struct {
	systemID    uint8
	componentID uint8
	seq         uint8
}

// NewEncoder creates an encoder that stamps frames with the given identity
func NewEncoder(systemID, componentID uint8) *Encoder {
	return &Encoder{
		systemID:    systemID,
		componentID: componentID,
	}
}

// Sequence returns the sequence number the next frame will carry
func (e *Encoder) Sequence() uint8 {
	return e.seq
}

// Pack writes a frame for msgID into dst and returns its length. It returns
// 0 and writes nothing when dst is too small or the payload is too long.
func (e *Encoder) Pack(dst []byte, msgID uint8, payload []byte) int {
	if len(payload) > MaxPayloadLen {
		return 0
	}
	total := HeaderLenV1 + len(payload) + ChecksumLen
	if len(dst) < total {
		return 0
	}

	dst[0] = MarkerV1
	dst[1] = byte(len(payload))
	dst[2] = e.seq
	dst[3] = e.systemID
	dst[4] = e.componentID
	dst[5] = msgID
	copy(dst[HeaderLenV1:], payload)
	e.seq++

	// Unregistered messages fold in a zero seed
	extra, _ := CRCExtra(msgID)
	crc := ChecksumWithExtra(dst[1:HeaderLenV1+len(payload)], extra)
	dst[HeaderLenV1+len(payload)] = byte(crc)
	dst[HeaderLenV1+len(payload)+1] = byte(crc >> 8)

	return total
}

// Build allocates and returns a frame for msgID, or nil if the payload is
// too long.
func (e *Encoder) Build(msgID uint8, payload []byte) []byte {
	if len(payload) > MaxPayloadLen {
		return nil
	}
	buf := make([]byte, HeaderLenV1+len(payload)+ChecksumLen)
	n := e.Pack(buf, msgID, payload)
	if n == 0 {
		return nil
	}
	return buf[:n]
}
