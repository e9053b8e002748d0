// Package protocol implements bit-exact pack/unpack of the LIFX LAN
// protocol's 36-byte header and its typed payloads.
//
// https://lan.developer.lifx.com/docs/packet-contents
package protocol

import (
	"encoding/binary"

	"github.com/dsymonds/lifx/lifxerrors"
)

// HeaderSize is the fixed on-the-wire size of a LIFX header.
const HeaderSize = 36

// protocolNumber is the fixed protocol version carried in every frame.
const protocolNumber = 1024

// Header represents the 36-byte LIFX message header. Field names and
// grouping follow the three documented sub-structures (frame header, frame
// address, protocol header).
type Header struct {
	// Frame header.
	Size        uint16 // total datagram length; set by Pack.
	Tagged      bool   // broadcast marker; must be true iff Target is the zero serial.
	Source      uint32 // client id, non-zero, stable per Connection.

	// Frame address.
	Target      [8]byte // 6-byte serial ++ 2 zero bytes.
	ResRequired bool
	AckRequired bool
	Sequence    uint8

	// Protocol header.
	Type uint16
}

// Pack serializes h into exactly HeaderSize bytes. The Size field is
// recomputed from payloadLen rather than trusting h.Size.
func Pack(h Header, payloadLen int) []byte {
	out := make([]byte, 0, HeaderSize)

	total := uint16(HeaderSize + payloadLen)
	out = binary.LittleEndian.AppendUint16(out, total)

	var packedFrame uint16 = protocolNumber & 0x0fff
	packedFrame |= 1 << 12 // addressable
	if h.Tagged {
		packedFrame |= 1 << 13
	}
	// origin = 0, bits 14-15.
	out = binary.LittleEndian.AppendUint16(out, packedFrame)
	out = binary.LittleEndian.AppendUint32(out, h.Source)

	out = append(out, h.Target[:]...)
	out = append(out, 0, 0, 0, 0, 0, 0) // reserved

	var flags byte
	if h.ResRequired {
		flags |= 1 << 0
	}
	if h.AckRequired {
		flags |= 1 << 1
	}
	out = append(out, flags)
	out = append(out, h.Sequence)

	out = append(out, 0, 0, 0, 0, 0, 0, 0, 0) // reserved
	out = binary.LittleEndian.AppendUint16(out, h.Type)
	out = append(out, 0, 0) // reserved

	return out
}

// Unpack parses a 36-byte header from the front of b, validating the fields
// spec.md requires: minimum length, protocol number, addressable bit, and
// origin. Reserved bytes being non-zero is tolerated (some devices have
// been observed setting them) and is not an error.
func Unpack(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, lifxerrors.MalformedHeader("length < 36 bytes")
	}
	var h Header
	h.Size = binary.LittleEndian.Uint16(b[0:2])

	packedFrame := binary.LittleEndian.Uint16(b[2:4])
	proto := packedFrame & 0x0fff
	addressable := (packedFrame >> 12) & 1
	tagged := (packedFrame >> 13) & 1
	origin := (packedFrame >> 14) & 0x3

	if proto != protocolNumber {
		return Header{}, lifxerrors.MalformedHeader("protocol field != 1024")
	}
	if addressable != 1 {
		return Header{}, lifxerrors.MalformedHeader("addressable bit != 1")
	}
	if origin != 0 {
		return Header{}, lifxerrors.MalformedHeader("origin != 0")
	}
	h.Tagged = tagged == 1

	h.Source = binary.LittleEndian.Uint32(b[4:8])
	copy(h.Target[:], b[8:16])
	// b[16:22] reserved, ignored.

	flags := b[22]
	h.ResRequired = flags&(1<<0) != 0
	h.AckRequired = flags&(1<<1) != 0
	h.Sequence = b[23]
	// b[24:32] reserved, ignored.

	h.Type = binary.LittleEndian.Uint16(b[32:34])
	// b[34:36] reserved, ignored.

	return h, nil
}

// TargetSerial extracts the 6-byte serial from the header's Target field.
func (h Header) TargetSerial() [6]byte {
	var s [6]byte
	copy(s[:], h.Target[0:6])
	return s
}

// SetTargetSerial writes serial into the header's Target field, zeroing the
// two trailing reserved bytes.
func (h *Header) SetTargetSerial(serial [6]byte) {
	copy(h.Target[0:6], serial[:])
	h.Target[6] = 0
	h.Target[7] = 0
}

// IsBroadcastSerial reports whether serial is the all-zero broadcast value.
func IsBroadcastSerial(serial [6]byte) bool {
	return serial == [6]byte{}
}

// Encode packs h and appends payload, producing a complete wire message.
func Encode(h Header, payload []byte) []byte {
	out := Pack(h, len(payload))
	return append(out, payload...)
}
