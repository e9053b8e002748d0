package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

func init() {
	register(LightState, decodeLightState)
	register(StateLightPower, decodeStateLightPower)
}

// LightStatePacket is the response to GetColor: current colour, power, and
// label.
type LightStatePacket struct {
	Color HSBK
	Power uint16
	Label string
}

func (LightStatePacket) Type() PacketType { return LightState }

func decodeLightState(p []byte) (Packet, error) {
	// hue,sat,bright,kelvin(8) + reserved(2) + power(2) + label(32) + reserved(8)
	if len(p) != HSBKSize+2+2+LabelSize+8 {
		return nil, fmt.Errorf("LightState: bad length %d", len(p))
	}
	color := DecodeHSBK(p[0:HSBKSize])
	off := HSBKSize + 2 // skip reserved
	power := binary.LittleEndian.Uint16(p[off : off+2])
	off += 2
	label := DecodeLabel(p[off : off+LabelSize])
	return LightStatePacket{Color: color, Power: power, Label: label}, nil
}

// EncodeSetColor builds the SetColor request payload.
func EncodeSetColor(c HSBK, duration time.Duration) []byte {
	b := make([]byte, 1+HSBKSize+4)
	// b[0] reserved
	EncodeHSBK(c, b[1:1+HSBKSize])
	binary.LittleEndian.PutUint32(b[1+HSBKSize:], millis(duration))
	return b
}

// Waveform identifies a firmware-resident periodic colour animation.
type Waveform uint8

const (
	SawWaveform      Waveform = 0
	SineWaveform     Waveform = 1
	HalfSineWaveform Waveform = 2
	TriangleWaveform Waveform = 3
	PulseWaveform    Waveform = 4
)

// WaveformConfig parameterizes a SetWaveform request.
type WaveformConfig struct {
	Waveform  Waveform
	Transient bool
	Color     HSBK
	Period    time.Duration
	Cycles    float32
	SkewRatio float32 // only meaningful for PulseWaveform; 0 encodes 0.5.
}

// EncodeSetWaveform builds the SetWaveform request payload.
func EncodeSetWaveform(cfg WaveformConfig) []byte {
	b := make([]byte, 21)
	// b[0] reserved
	b[1] = boolByte(cfg.Transient)
	EncodeHSBK(cfg.Color, b[2:2+HSBKSize])
	off := 2 + HSBKSize
	binary.LittleEndian.PutUint32(b[off:off+4], millis(cfg.Period))
	off += 4
	binary.LittleEndian.PutUint32(b[off:off+4], math.Float32bits(cfg.Cycles))
	off += 4
	skew := cfg.SkewRatio
	binary.LittleEndian.PutUint16(b[off:off+2], uint16(int16(skew*32767)))
	off += 2
	b[off] = byte(cfg.Waveform)
	return b
}

// StateLightPowerPacket reports the power level of a Light subtype
// (distinct from the generic device power in StatePowerPacket).
type StateLightPowerPacket struct {
	Level uint16
}

func (StateLightPowerPacket) Type() PacketType { return StateLightPower }

func decodeStateLightPower(p []byte) (Packet, error) {
	if len(p) != 2 {
		return nil, fmt.Errorf("StateLightPower: bad length %d", len(p))
	}
	return StateLightPowerPacket{Level: binary.LittleEndian.Uint16(p)}, nil
}

// EncodeSetLightPower builds the SetLightPower request payload.
func EncodeSetLightPower(level uint16, duration time.Duration) []byte {
	b := make([]byte, 6)
	binary.LittleEndian.PutUint16(b[0:2], level)
	binary.LittleEndian.PutUint32(b[2:6], millis(duration))
	return b
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
