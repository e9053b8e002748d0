package protocol

import "encoding/binary"

// HSBKSize is the wire size of a single HSBK tuple.
const HSBKSize = 2 + 2 + 2 + 2 // four uint16s

// HSBK represents hue/saturation/brightness/kelvin. On the wire all four
// fields are uint16; in memory they're kept as floats in their natural
// ranges (hue 0-360, saturation/brightness 0-1, kelvin 1500-9000) so the
// effect generators can do real math without re-deriving the scale factors
// at every call site.
type HSBK struct {
	Hue        float64 // degrees, [0, 360)
	Saturation float64 // [0, 1]
	Brightness float64 // [0, 1]
	Kelvin     uint16  // [1500, 9000]
}

const (
	hueScale  = 65535.0 / 360.0
	unitScale = 65535.0
)

// clamp01 clamps x to [0, 1].
func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// EncodeHSBK writes c into dst (which must have length >= HSBKSize),
// range-clamping saturation/brightness to [0,1] and hue modulo 360 per
// spec.md's "HSBK range-clamps on pack" rule.
func EncodeHSBK(c HSBK, dst []byte) {
	hue := c.Hue
	hue = hue - 360*float64(int64(hue/360))
	if hue < 0 {
		hue += 360
	}
	binary.LittleEndian.PutUint16(dst[0:2], uint16(hue*hueScale+0.5))
	binary.LittleEndian.PutUint16(dst[2:4], uint16(clamp01(c.Saturation)*unitScale+0.5))
	binary.LittleEndian.PutUint16(dst[4:6], uint16(clamp01(c.Brightness)*unitScale+0.5))
	binary.LittleEndian.PutUint16(dst[6:8], c.Kelvin)
}

// DecodeHSBK reads an HSBK tuple from b (which must have length >=
// HSBKSize). Unlike EncodeHSBK, this does not clamp: devices may report
// values outside the declared ranges during transitions, and callers need
// to see that.
func DecodeHSBK(b []byte) HSBK {
	return HSBK{
		Hue:        float64(binary.LittleEndian.Uint16(b[0:2])) / hueScale,
		Saturation: float64(binary.LittleEndian.Uint16(b[2:4])) / unitScale,
		Brightness: float64(binary.LittleEndian.Uint16(b[4:6])) / unitScale,
		Kelvin:     binary.LittleEndian.Uint16(b[6:8]),
	}
}
