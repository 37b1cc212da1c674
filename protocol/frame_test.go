package protocol

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// maskFrame builds a client-style masked text frame around payload.
func maskFrame(payload []byte, key [4]byte) []byte {
	n := len(payload)
	var header []byte
	switch {
	case n < 126:
		header = []byte{0x81, 0x80 | byte(n)}
	case n < 65536:
		header = []byte{0x81, 0x80 | 126, 0, 0}
		binary.BigEndian.PutUint16(header[2:], uint16(n))
	default:
		header = []byte{0x81, 0x80 | 127, 0, 0, 0, 0, 0, 0, 0, 0}
		binary.BigEndian.PutUint64(header[2:], uint64(n))
	}

	frame := append([]byte{}, header...)
	frame = append(frame, key[:]...)
	for i, b := range payload {
		frame = append(frame, b^key[i%4])
	}
	return frame
}

func TestFrame_RoundTrip(t *testing.T) {
	// Boundary values for the three length encodings.
	for _, n := range []int{0, 1, 125, 126, 65535, 65536} {
		payload := bytes.Repeat([]byte("a"), n)
		got, ok := DecodeFrame(EncodeFrame(payload))
		require.True(t, ok, "length %d", n)
		assert.Equal(t, payload, got, "length %d", n)
	}
}

func TestFrame_EncodeHeader(t *testing.T) {
	tests := []struct {
		name       string
		length     int
		wantHeader []byte
	}{
		{name: "short length", length: 5, wantHeader: []byte{0x81, 5}},
		{name: "16-bit length", length: 300, wantHeader: []byte{0x81, 126, 0x01, 0x2c}},
		{name: "64-bit length", length: 65536, wantHeader: []byte{0x81, 127, 0, 0, 0, 0, 0, 1, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := EncodeFrame(bytes.Repeat([]byte("x"), tt.length))
			require.GreaterOrEqual(t, len(frame), len(tt.wantHeader))
			assert.Equal(t, tt.wantHeader, frame[:len(tt.wantHeader)])
			assert.Len(t, frame, len(tt.wantHeader)+tt.length)
		})
	}
}

func TestFrame_MaskedDecode(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		key     [4]byte
	}{
		{name: "short payload", payload: "hello", key: [4]byte{0x37, 0xfa, 0x21, 0x3d}},
		{name: "empty payload", payload: "", key: [4]byte{1, 2, 3, 4}},
		{name: "json command", payload: `{"type":"chat","message":"hi"}`, key: [4]byte{0xff, 0x00, 0xaa, 0x55}},
		{name: "extended length", payload: string(bytes.Repeat([]byte("ws"), 500)), key: [4]byte{9, 8, 7, 6}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DecodeFrame(maskFrame([]byte(tt.payload), tt.key))
			require.True(t, ok)
			assert.Equal(t, tt.payload, string(got))
		})
	}
}

func TestFrame_MalformedDropped(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{name: "empty", raw: nil},
		{name: "single byte", raw: []byte{0x81}},
		{name: "truncated 16-bit length", raw: []byte{0x81, 126, 0x01}},
		{name: "truncated 64-bit length", raw: []byte{0x81, 127, 0, 0, 0}},
		{name: "truncated mask key", raw: []byte{0x81, 0x80 | 2, 0x01, 0x02}},
		{name: "payload shorter than declared", raw: []byte{0x81, 10, 'h', 'i'}},
		{name: "invalid utf8", raw: []byte{0x81, 2, 0xff, 0xfe}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := DecodeFrame(tt.raw)
			assert.False(t, ok)
		})
	}
}
