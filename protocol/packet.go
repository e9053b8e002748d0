package protocol

import "github.com/dsymonds/lifx/lifxerrors"

// Packet is implemented by every decoded payload variant. The concrete
// type identifies the schema; Type returns the wire packet-type code that
// selects it, so a decoded Packet can be re-encoded or re-dispatched
// without the caller needing a type switch.
type Packet interface {
	Type() PacketType
}

// Decoder parses a payload for a fixed PacketType into a concrete Packet.
type Decoder func(payload []byte) (Packet, error)

var registry = map[PacketType]Decoder{}

// register adds a decoder to the process-wide packet registry. Called only
// from package init functions.
func register(t PacketType, d Decoder) {
	registry[t] = d
}

// DecodePacket routes payload through the registry using hdr.Type, failing
// with ErrProtocol (via lifxerrors.UnknownPacketType) if the type code is
// not registered.
func DecodePacket(hdr Header, payload []byte) (Packet, error) {
	d, ok := registry[PacketType(hdr.Type)]
	if !ok {
		return nil, lifxerrors.UnknownPacketType(hdr.Type)
	}
	return d(payload)
}

// Registered reports whether t has a registered decoder. Exposed for tests
// and for callers that want to probe support before issuing a request.
func Registered(t PacketType) bool {
	_, ok := registry[t]
	return ok
}
