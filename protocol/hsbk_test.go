package protocol

import "testing"

func TestHSBKRoundTrip(t *testing.T) {
	tests := []HSBK{
		{Hue: 0, Saturation: 0, Brightness: 0, Kelvin: 1500},
		{Hue: 180, Saturation: 0.5, Brightness: 0.75, Kelvin: 3500},
		{Hue: 359.99, Saturation: 1, Brightness: 1, Kelvin: 9000},
	}
	for _, c := range tests {
		b := make([]byte, HSBKSize)
		EncodeHSBK(c, b)
		got := DecodeHSBK(b)
		const tol = 360.0 / 65535.0 * 2
		if diff := got.Hue - c.Hue; diff < -tol || diff > tol {
			t.Errorf("Hue round trip: got %v, want ~%v", got.Hue, c.Hue)
		}
	}
}

func TestHSBKClampsOnPackOnly(t *testing.T) {
	b := make([]byte, HSBKSize)
	EncodeHSBK(HSBK{Saturation: 2, Brightness: -1, Kelvin: 1500}, b)
	got := DecodeHSBK(b)
	if got.Saturation != 1 {
		t.Errorf("Saturation should clamp to 1 on pack, got %v", got.Saturation)
	}
	if got.Brightness != 0 {
		t.Errorf("Brightness should clamp to 0 on pack, got %v", got.Brightness)
	}

	// Decode scales raw values straight through with no clamping step: the
	// largest raw saturation decodes to exactly 1.
	raw := make([]byte, HSBKSize)
	raw[2], raw[3] = 0xff, 0xff // saturation = 65535
	got2 := DecodeHSBK(raw)
	if got2.Saturation != 1 {
		t.Errorf("unexpected decode: %v", got2)
	}
}
