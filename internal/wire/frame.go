// Package wire implements the length-prefixed framing used on the
// ServerLink TCP connection: every message in either direction is a 4-byte
// big-endian length followed by that many bytes of ASCII payload.
package wire

import (
	"encoding"
	"fmt"

	"github.com/roboime/soccer-agent-runtime/internal/byteorder"
	"github.com/roboime/soccer-agent-runtime/internal/debug"
)

// HeaderSize is the width of the length prefix in bytes.
const HeaderSize = 4

// MaxPayloadSize is the size of ServerLink's buffered reader. The vision
// message is the largest the server emits; this is generous headroom over
// that. Frames are not rejected for exceeding it: a longer payload is read
// into a larger frame buffer.
const MaxPayloadSize = 1 << 20

// Frame is an opaque view into a receive buffer. It is only valid until the
// next Receive call on the link that produced it; callers must consume or
// copy any derived slices before then.
type Frame []byte

// Header is the 4-byte big-endian payload length that precedes every frame.
type Header struct {
	Len uint32
}

var (
	_ encoding.BinaryMarshaler   = (*Header)(nil)
	_ encoding.BinaryUnmarshaler = (*Header)(nil)
)

// MarshalBinary encodes the header as its 4-byte big-endian wire form.
func (h *Header) MarshalBinary() ([]byte, error) {
	data := byteorder.Htonl(h.Len)
	debug.Assert(len(data) == HeaderSize)
	return data, nil
}

// UnmarshalBinary decodes a 4-byte big-endian header.
func (h *Header) UnmarshalBinary(data []byte) error {
	if len(data) != HeaderSize {
		return fmt.Errorf("wire: invalid header size (got %d; want %d)", len(data), HeaderSize)
	}
	h.Len = byteorder.Ntohl(data)
	return nil
}
