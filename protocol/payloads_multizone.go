package protocol

import (
	"encoding/binary"
	"fmt"
	"time"
)

func init() {
	register(StateZone, decodeStateZone)
	register(StateMultiZone, decodeStateMultiZone)
	register(StateMultiZoneEffect, decodeStateMultiZoneEffect)
	register(StateExtendedColorZones, decodeStateExtendedColorZones)
}

// ApplicationRequest selects how a multizone SET takes effect.
type ApplicationRequest uint8

const (
	ApplyNoApply ApplicationRequest = 0
	Apply        ApplicationRequest = 1
	ApplyOnly    ApplicationRequest = 2
)

// StateZonePacket reports one zone's colour (legacy, single-zone-per-packet).
type StateZonePacket struct {
	ZonesCount int
	ZoneIndex  int
	Color      HSBK
}

func (StateZonePacket) Type() PacketType { return StateZone }

func decodeStateZone(p []byte) (Packet, error) {
	if len(p) != 2+HSBKSize {
		return nil, fmt.Errorf("StateZone: bad length %d", len(p))
	}
	return StateZonePacket{
		ZonesCount: int(p[0]),
		ZoneIndex:  int(p[1]),
		Color:      DecodeHSBK(p[2:]),
	}, nil
}

// StateMultiZonePacket reports up to 8 zones' colours starting at ZoneIndex.
type StateMultiZonePacket struct {
	ZonesCount int
	ZoneIndex  int
	Colors     []HSBK
}

func (StateMultiZonePacket) Type() PacketType { return StateMultiZone }

func decodeStateMultiZone(p []byte) (Packet, error) {
	if len(p) != 2+8*HSBKSize {
		return nil, fmt.Errorf("StateMultiZone: bad length %d", len(p))
	}
	colors := make([]HSBK, 8)
	for i := 0; i < 8; i++ {
		off := 2 + i*HSBKSize
		colors[i] = DecodeHSBK(p[off : off+HSBKSize])
	}
	return StateMultiZonePacket{
		ZonesCount: int(p[0]),
		ZoneIndex:  int(p[1]),
		Colors:     colors,
	}, nil
}

// EncodeSetColorZones builds the (legacy) SetColorZones request payload for
// the inclusive zone range [start, end].
func EncodeSetColorZones(start, end uint8, c HSBK, duration time.Duration, apply ApplicationRequest) []byte {
	b := make([]byte, 2+HSBKSize+4+1)
	b[0] = start
	b[1] = end
	EncodeHSBK(c, b[2:2+HSBKSize])
	off := 2 + HSBKSize
	binary.LittleEndian.PutUint32(b[off:off+4], millis(duration))
	b[off+4] = byte(apply)
	return b
}

// MultiZoneEffectType selects a firmware-driven multizone effect.
type MultiZoneEffectType uint8

const (
	MultiZoneEffectOff   MultiZoneEffectType = 0
	MultiZoneEffectMove  MultiZoneEffectType = 1
)

// StateMultiZoneEffectPacket reports the currently running firmware
// multizone effect.
type StateMultiZoneEffectPacket struct {
	InstanceID uint32
	Effect     MultiZoneEffectType
	SpeedMs    uint32
	Duration   time.Duration
}

func (StateMultiZoneEffectPacket) Type() PacketType { return StateMultiZoneEffect }

func decodeStateMultiZoneEffect(p []byte) (Packet, error) {
	if len(p) < 1+8+4+8 {
		return nil, fmt.Errorf("StateMultiZoneEffect: bad length %d", len(p))
	}
	instanceID := binary.LittleEndian.Uint32(p[0:4])
	effect := p[4]
	speed := binary.LittleEndian.Uint32(p[5:9])
	durNanos := binary.LittleEndian.Uint64(p[9:17])
	return StateMultiZoneEffectPacket{
		InstanceID: instanceID,
		Effect:     MultiZoneEffectType(effect),
		SpeedMs:    speed,
		Duration:   time.Duration(durNanos),
	}, nil
}

// StateExtendedColorZonesPacket reports the full extended-multizone colour
// array in one packet (up to 82 zones).
type StateExtendedColorZonesPacket struct {
	ZonesCount  int
	ZoneIndex   int
	ColorsCount int
	Colors      []HSBK
}

func (StateExtendedColorZonesPacket) Type() PacketType { return StateExtendedColorZones }

// MaxExtendedZones is the maximum number of zones carried in a single
// extended multizone SET/STATE packet.
const MaxExtendedZones = 82

func decodeStateExtendedColorZones(p []byte) (Packet, error) {
	if len(p) < 5 {
		return nil, fmt.Errorf("StateExtendedColorZones: too short: %d", len(p))
	}
	zonesCount := int(binary.LittleEndian.Uint16(p[0:2]))
	zoneIndex := int(binary.LittleEndian.Uint16(p[2:4]))
	colorsCount := int(p[4])

	colors := p[5:]
	want := colorsCount * HSBKSize
	if want > len(colors) {
		return nil, fmt.Errorf("StateExtendedColorZones: colorsCount=%d but only %d bytes remain", colorsCount, len(colors))
	}
	colors = colors[:want]

	out := make([]HSBK, colorsCount)
	for i := 0; i < colorsCount; i++ {
		off := i * HSBKSize
		out[i] = DecodeHSBK(colors[off : off+HSBKSize])
	}
	return StateExtendedColorZonesPacket{
		ZonesCount:  zonesCount,
		ZoneIndex:   zoneIndex,
		ColorsCount: colorsCount,
		Colors:      out,
	}, nil
}

// EncodeSetExtendedColorZones builds the SetExtendedColorZones request
// payload, addressing zones starting at zoneIndex.
func EncodeSetExtendedColorZones(duration time.Duration, apply ApplicationRequest, zoneIndex int, zones []HSBK) ([]byte, error) {
	if len(zones) > MaxExtendedZones {
		return nil, fmt.Errorf("too many zones to set: %d > %d", len(zones), MaxExtendedZones)
	}
	b := make([]byte, 4+1+2+1+len(zones)*HSBKSize)
	binary.LittleEndian.PutUint32(b[0:4], millis(duration))
	b[4] = byte(apply)
	binary.LittleEndian.PutUint16(b[5:7], uint16(zoneIndex))
	b[7] = uint8(len(zones))
	for i, off := 0, 8; i < len(zones); i++ {
		EncodeHSBK(zones[i], b[off:off+HSBKSize])
		off += HSBKSize
	}
	return b, nil
}
