package protocol

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/google/uuid"
)

func init() {
	register(StateService, decodeStateService)
	register(StateHostFirmware, decodeStateHostFirmware)
	register(StatePower, decodeStatePower)
	register(StateLabel, decodeStateLabel)
	register(StateVersion, decodeStateVersion)
	register(Acknowledgement, decodeAcknowledgement)
	register(StateUnhandled, decodeStateUnhandled)
	register(StateGroup, decodeStateGroup)
	register(StateLocation, decodeStateLocation)
	register(EchoResponse, decodeEchoResponse)
}

// StateServicePacket announces a transport service and its port.
type StateServicePacket struct {
	Service uint8
	Port    uint32
}

func (StateServicePacket) Type() PacketType { return StateService }

func decodeStateService(p []byte) (Packet, error) {
	if len(p) != 5 {
		return nil, fmt.Errorf("StateService: bad length %d", len(p))
	}
	return StateServicePacket{
		Service: p[0],
		Port:    binary.LittleEndian.Uint32(p[1:5]),
	}, nil
}

// StateHostFirmwarePacket reports the device's host firmware version.
type StateHostFirmwarePacket struct {
	Build   time.Time
	Version uint32
	Major   uint16
	Minor   uint16
}

func (StateHostFirmwarePacket) Type() PacketType { return StateHostFirmware }

func decodeStateHostFirmware(p []byte) (Packet, error) {
	if len(p) != 20 {
		return nil, fmt.Errorf("StateHostFirmware: bad length %d", len(p))
	}
	buildNanos := binary.LittleEndian.Uint64(p[0:8])
	// p[8:16] reserved.
	version := binary.LittleEndian.Uint32(p[16:20])
	return StateHostFirmwarePacket{
		Build:   time.Unix(0, int64(buildNanos)).UTC(),
		Version: version,
		Major:   uint16(version >> 16),
		Minor:   uint16(version),
	}, nil
}

// StatePowerPacket carries a device power level: 0 = off, 65535 = on.
// Intermediate values are out-of-spec but round-trip exactly.
type StatePowerPacket struct {
	Level uint16
}

func (StatePowerPacket) Type() PacketType { return StatePower }

func decodeStatePower(p []byte) (Packet, error) {
	if len(p) != 2 {
		return nil, fmt.Errorf("StatePower: bad length %d", len(p))
	}
	return StatePowerPacket{Level: binary.LittleEndian.Uint16(p)}, nil
}

// EncodeSetPower builds the SetPower request payload.
func EncodeSetPower(level uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, level)
	return b
}

// StateLabelPacket carries a device label.
type StateLabelPacket struct {
	Label string
}

func (StateLabelPacket) Type() PacketType { return StateLabel }

func decodeStateLabel(p []byte) (Packet, error) {
	if len(p) != LabelSize {
		return nil, fmt.Errorf("StateLabel: bad length %d", len(p))
	}
	return StateLabelPacket{Label: DecodeLabel(p)}, nil
}

// EncodeSetLabel builds the SetLabel request payload.
func EncodeSetLabel(label string) []byte {
	b := make([]byte, LabelSize)
	EncodeLabel(label, LabelSize, b)
	return b
}

// StateVersionPacket identifies a device's vendor and product IDs.
type StateVersionPacket struct {
	Vendor  uint32
	Product uint32
}

func (StateVersionPacket) Type() PacketType { return StateVersion }

func decodeStateVersion(p []byte) (Packet, error) {
	if len(p) != 12 {
		return nil, fmt.Errorf("StateVersion: bad length %d", len(p))
	}
	return StateVersionPacket{
		Vendor:  binary.LittleEndian.Uint32(p[0:4]),
		Product: binary.LittleEndian.Uint32(p[4:8]),
		// p[8:12] is a reserved "version" field on current firmware.
	}, nil
}

// AcknowledgementPacket is the empty-payload ACK matched by sequence only.
type AcknowledgementPacket struct{}

func (AcknowledgementPacket) Type() PacketType { return Acknowledgement }

func decodeAcknowledgement(p []byte) (Packet, error) {
	return AcknowledgementPacket{}, nil
}

// StateUnhandledPacket is sent by firmware when it receives a packet type
// it does not implement.
type StateUnhandledPacket struct {
	UnhandledType uint16
}

func (StateUnhandledPacket) Type() PacketType { return StateUnhandled }

func decodeStateUnhandled(p []byte) (Packet, error) {
	if len(p) != 2 {
		return nil, fmt.Errorf("StateUnhandled: bad length %d", len(p))
	}
	return StateUnhandledPacket{UnhandledType: binary.LittleEndian.Uint16(p)}, nil
}

// StateGroupPacket identifies the group a device belongs to.
type StateGroupPacket struct {
	Group   uuid.UUID
	Label   string
	Updated time.Time
}

func (StateGroupPacket) Type() PacketType { return StateGroup }

func decodeStateGroup(p []byte) (Packet, error) {
	if len(p) != 16+GroupLabelSize+8 {
		return nil, fmt.Errorf("StateGroup: bad length %d", len(p))
	}
	id, err := uuid.FromBytes(p[0:16])
	if err != nil {
		return nil, fmt.Errorf("StateGroup: %w", err)
	}
	label := DecodeLabel(p[16 : 16+GroupLabelSize])
	updatedNanos := binary.LittleEndian.Uint64(p[16+GroupLabelSize:])
	return StateGroupPacket{
		Group:   id,
		Label:   label,
		Updated: time.Unix(0, int64(updatedNanos)).UTC(),
	}, nil
}

// StateLocationPacket identifies the location a device belongs to.
type StateLocationPacket struct {
	Location uuid.UUID
	Label    string
	Updated  time.Time
}

func (StateLocationPacket) Type() PacketType { return StateLocation }

func decodeStateLocation(p []byte) (Packet, error) {
	if len(p) != 16+GroupLabelSize+8 {
		return nil, fmt.Errorf("StateLocation: bad length %d", len(p))
	}
	id, err := uuid.FromBytes(p[0:16])
	if err != nil {
		return nil, fmt.Errorf("StateLocation: %w", err)
	}
	label := DecodeLabel(p[16 : 16+GroupLabelSize])
	updatedNanos := binary.LittleEndian.Uint64(p[16+GroupLabelSize:])
	return StateLocationPacket{
		Location: id,
		Label:    label,
		Updated:  time.Unix(0, int64(updatedNanos)).UTC(),
	}, nil
}

// EchoResponsePacket echoes back the 64 bytes sent in an EchoRequest.
type EchoResponsePacket struct {
	Payload [64]byte
}

func (EchoResponsePacket) Type() PacketType { return EchoResponse }

func decodeEchoResponse(p []byte) (Packet, error) {
	if len(p) != 64 {
		return nil, fmt.Errorf("EchoResponse: bad length %d", len(p))
	}
	var pkt EchoResponsePacket
	copy(pkt.Payload[:], p)
	return pkt, nil
}

// EncodeEchoRequest builds the EchoRequest payload.
func EncodeEchoRequest(payload [64]byte) []byte {
	b := make([]byte, 64)
	copy(b, payload[:])
	return b
}
