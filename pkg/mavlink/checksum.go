package mavlink

// X.25 running checksum with the MAVLink CRC_EXTRA seed.
// The accumulator is the one every MAVLink peer uses; it is not one of the
// stdlib hash/crc variants.

const checksumInit uint16 = 0xFFFF

// crcExtra holds the per-message seed byte folded in after the payload.
var crcExtra = map[uint8]byte{
	MsgIDHeartbeat:         50,
	MsgIDSysStatus:         124,
	MsgIDSystemTime:        137,
	MsgIDParamRequestRead:  214,
	MsgIDParamRequestList:  159,
	MsgIDParamValue:        220,
	MsgIDGPSRawInt:         24,
	MsgIDAttitude:          39,
	MsgIDGlobalPositionInt: 104,
	MsgIDRequestDataStream: 148,
	MsgIDCommandInt:        158,
	MsgIDCommandLong:       152,
	MsgIDCommandAck:        143,
}

// CRCExtra returns the seed byte registered for msgID
func CRCExtra(msgID uint8) (byte, bool) {
	extra, ok := crcExtra[msgID]
	return extra, ok
}

// Accumulate folds one byte into a running checksum
func Accumulate(crc uint16, b byte) uint16 {
	tmp := b ^ byte(crc&0xFF)
	tmp ^= tmp << 4
	t := uint16(tmp)
	return (crc >> 8) ^ (t << 8) ^ (t << 3) ^ (t >> 4)
}

// AccumulateBytes folds data into a running checksum
func AccumulateBytes(crc uint16, data []byte) uint16 {
	for _, b := range data {
		crc = Accumulate(crc, b)
	}
	return crc
}

// Checksum computes the checksum of data without a seed byte
func Checksum(data []byte) uint16 {
	return AccumulateBytes(checksumInit, data)
}

// ChecksumWithExtra computes the checksum of data and folds extra in last
func ChecksumWithExtra(data []byte, extra byte) uint16 {
	return Accumulate(Checksum(data), extra)
}
