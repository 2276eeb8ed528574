package mavlink

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Kind is the wire encoding of a payload field. All fields are little-endian.
type Kind uint8

const (
	Uint8 Kind = iota
	Int8
	Uint16
	Int16
	Uint32
	Int32
	Float32
	Uint64
)

// Width returns the number of bytes the kind occupies
func (k Kind) Width() int {
	switch k {
	case Uint8, Int8:
		return 1
	case Uint16, Int16:
		return 2
	case Uint32, Int32, Float32:
		return 4
	case Uint64:
		return 8
	default:
		return 0
	}
}

// Field describes one fixed-offset payload field
type Field struct {
	Name     string
	Offset   int
	Kind     Kind
	Optional bool // may be missing from a short payload (trailing extension bytes)
}

func (f Field) end() int {
	return f.Offset + f.Kind.Width()
}

// Layout is the described field list of one message payload
type Layout struct {
	Name   string
	Fields []Field
}

// Values holds decoded numeric field values by name
type Values map[string]float64

// MinLen returns the shortest payload that carries every required field
func (l Layout) MinLen() int {
	n := 0
	for _, f := range l.Fields {
		if !f.Optional && f.end() > n {
			n = f.end()
		}
	}
	return n
}

// Len returns the full payload length covering every field
func (l Layout) Len() int {
	n := 0
	for _, f := range l.Fields {
		if f.end() > n {
			n = f.end()
		}
	}
	return n
}

// Decode reads every field from payload. It fails when a required field
// lies past the end of payload; optional fields that do not fit are omitted.
func (l Layout) Decode(payload []byte) (Values, error) {
	if len(payload) < l.MinLen() {
		return nil, fmt.Errorf("%s: payload %d bytes, need %d", l.Name, len(payload), l.MinLen())
	}
	values := make(Values, len(l.Fields))
	for _, f := range l.Fields {
		if f.end() > len(payload) {
			continue
		}
		values[f.Name] = readField(payload[f.Offset:f.end()], f.Kind)
	}
	return values, nil
}

// Encode writes values into a new payload of Len bytes. Missing values are
// written as zero.
func (l Layout) Encode(values Values) []byte {
	buf := make([]byte, l.Len())
	for _, f := range l.Fields {
		v, ok := values[f.Name]
		if !ok {
			continue
		}
		writeField(buf[f.Offset:f.end()], f.Kind, v)
	}
	return buf
}

func readField(b []byte, kind Kind) float64 {
	switch kind {
	case Uint8:
		return float64(b[0])
	case Int8:
		return float64(int8(b[0]))
	case Uint16:
		return float64(binary.LittleEndian.Uint16(b))
	case Int16:
		return float64(int16(binary.LittleEndian.Uint16(b)))
	case Uint32:
		return float64(binary.LittleEndian.Uint32(b))
	case Int32:
		return float64(int32(binary.LittleEndian.Uint32(b)))
	case Float32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	case Uint64:
		return float64(binary.LittleEndian.Uint64(b))
	default:
		return 0
	}
}

func writeField(b []byte, kind Kind, v float64) {
	switch kind {
	case Uint8:
		b[0] = uint8(v)
	case Int8:
		b[0] = byte(int8(v))
	case Uint16:
		binary.LittleEndian.PutUint16(b, uint16(v))
	case Int16:
		binary.LittleEndian.PutUint16(b, uint16(int16(v)))
	case Uint32:
		binary.LittleEndian.PutUint32(b, uint32(v))
	case Int32:
		binary.LittleEndian.PutUint32(b, uint32(int32(v)))
	case Float32:
		binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v)))
	case Uint64:
		binary.LittleEndian.PutUint64(b, uint64(v))
	}
}
