package mavlink

import (
	"testing"

	"github.com/sigurn/crc16"
)

var mcrf4xxTable = crc16.MakeTable(crc16.CRC16_MCRF4XX)

func TestChecksum_CheckValue(t *testing.T) {
	// CRC-16/MCRF4XX check value for "123456789"
	got := Checksum([]byte("123456789"))
	if got != 0x6F91 {
		t.Errorf("Expected check value 0x6F91, got 0x%04X", got)
	}
}

func TestChecksum_MatchesMCRF4XX(t *testing.T) {
	inputs := [][]byte{
		{},
		{0x00},
		{0xFF, 0xFF},
		{0x09, 0x00, 0x01, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x02, 0x03, 0x81, 0x04, 0x03},
		[]byte("mavtrap decoy payload with some length to it"),
	}

	for _, in := range inputs {
		want := crc16.Checksum(in, mcrf4xxTable)
		if got := Checksum(in); got != want {
			t.Errorf("Checksum(% X) = 0x%04X, want 0x%04X", in, got, want)
		}
	}
}

func TestChecksumWithExtra_FoldsSeedLast(t *testing.T) {
	data := []byte{0x1C, 0x05, 0x01, 0x01, 0x21}
	for _, extra := range []byte{0, 24, 50, 104, 220} {
		withSeed := append(append([]byte{}, data...), extra)
		want := crc16.Checksum(withSeed, mcrf4xxTable)
		if got := ChecksumWithExtra(data, extra); got != want {
			t.Errorf("extra=%d: got 0x%04X, want 0x%04X", extra, got, want)
		}
	}
}

func TestChecksum_SeedChangesResult(t *testing.T) {
	data := []byte{0x09, 0x00, 0x01, 0x01, 0x00}
	if ChecksumWithExtra(data, 50) == ChecksumWithExtra(data, 124) {
		t.Error("Expected different seeds to produce different checksums")
	}
}

func TestChecksum_Deterministic(t *testing.T) {
	data := []byte("repeatable")
	first := ChecksumWithExtra(data, 152)
	for i := 0; i < 100; i++ {
		if got := ChecksumWithExtra(data, 152); got != first {
			t.Fatalf("Iteration %d: got 0x%04X, want 0x%04X", i, got, first)
		}
	}
}

func TestCRCExtra_Table(t *testing.T) {
	tests := []struct {
		msgID uint8
		extra byte
	}{
		{MsgIDHeartbeat, 50},
		{MsgIDSysStatus, 124},
		{MsgIDGPSRawInt, 24},
		{MsgIDAttitude, 39},
		{MsgIDGlobalPositionInt, 104},
		{MsgIDCommandLong, 152},
		{MsgIDCommandInt, 158},
		{MsgIDParamValue, 220},
	}

	for _, tt := range tests {
		extra, ok := CRCExtra(tt.msgID)
		if !ok {
			t.Errorf("Expected seed registered for message %d", tt.msgID)
			continue
		}
		if extra != tt.extra {
			t.Errorf("Message %d: expected seed %d, got %d", tt.msgID, tt.extra, extra)
		}
	}

	if _, ok := CRCExtra(200); ok {
		t.Error("Expected no seed for message 200")
	}
}
