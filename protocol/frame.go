package protocol

import (
	"encoding/binary"
	"unicode/utf8"
)

// The codec handles exactly one unfragmented text frame per byte chunk. There
// is no reassembly across reads, no opcode validation and no control-frame
// handling; malformed input is dropped rather than answered.

// DecodeFrame parses a single frame out of raw and returns its unmasked text
// payload. ok is false when raw is too short, truncated relative to its
// declared length, or not valid UTF-8.
func DecodeFrame(raw []byte) ([]byte, bool) {
	if len(raw) < 2 {
		return nil, false
	}

	masked := raw[1]&0x80 != 0
	length := uint64(raw[1] & 0x7f)
	offset := 2

	switch length {
	case 126:
		if len(raw) < offset+2 {
			return nil, false
		}
		length = uint64(binary.BigEndian.Uint16(raw[offset:]))
		offset += 2
	case 127:
		if len(raw) < offset+8 {
			return nil, false
		}
		length = binary.BigEndian.Uint64(raw[offset:])
		offset += 8
	}

	var maskKey [4]byte
	if masked {
		if len(raw) < offset+4 {
			return nil, false
		}
		copy(maskKey[:], raw[offset:offset+4])
		offset += 4
	}

	if length > uint64(len(raw)-offset) {
		return nil, false
	}

	payload := make([]byte, length)
	copy(payload, raw[offset:offset+int(length)])
	if masked {
		for i := range payload {
			payload[i] ^= maskKey[i%4]
		}
	}

	if !utf8.Valid(payload) {
		return nil, false
	}
	return payload, true
}

// EncodeFrame wraps payload in a single final, unmasked text frame, using the
// shortest of the three length encodings.
func EncodeFrame(payload []byte) []byte {
	n := len(payload)

	var header []byte
	switch {
	case n < 126:
		header = []byte{0x81, byte(n)}
	case n < 65536:
		header = []byte{0x81, 126, 0, 0}
		binary.BigEndian.PutUint16(header[2:], uint16(n))
	default:
		header = []byte{0x81, 127, 0, 0, 0, 0, 0, 0, 0, 0}
		binary.BigEndian.PutUint64(header[2:], uint64(n))
	}

	frame := make([]byte, 0, len(header)+n)
	frame = append(frame, header...)
	frame = append(frame, payload...)
	return frame
}
