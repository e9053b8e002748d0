package protocol

import "testing"

func TestDecodePacketUnknownType(t *testing.T) {
	hdr := Header{Type: 0xfff0}
	if _, err := DecodePacket(hdr, nil); err == nil {
		t.Errorf("DecodePacket with unregistered type succeeded, want error")
	}
}

func TestDecodeLightState(t *testing.T) {
	c := HSBK{Hue: 120, Saturation: 0.5, Brightness: 1, Kelvin: 4000}
	payload := make([]byte, HSBKSize+2+2+LabelSize+8)
	EncodeHSBK(c, payload[0:HSBKSize])
	off := HSBKSize + 2
	payload[off] = 0xff
	payload[off+1] = 0xff // power = 65535
	EncodeLabel("Kitchen", LabelSize, payload[off+2:off+2+LabelSize])

	pkt, err := DecodePacket(Header{Type: uint16(LightState)}, payload)
	if err != nil {
		t.Fatalf("DecodePacket: %v", err)
	}
	ls, ok := pkt.(LightStatePacket)
	if !ok {
		t.Fatalf("got %T, want LightStatePacket", pkt)
	}
	if ls.Power != 65535 {
		t.Errorf("Power = %d, want 65535", ls.Power)
	}
	if ls.Label != "Kitchen" {
		t.Errorf("Label = %q, want %q", ls.Label, "Kitchen")
	}
}

func TestExpectedResponse(t *testing.T) {
	got, ok := ExpectedResponse(GetColor)
	if !ok || got != LightState {
		t.Errorf("ExpectedResponse(GetColor) = (%v, %v), want (LightState, true)", got, ok)
	}
	if _, ok := ExpectedResponse(SetColor); ok {
		t.Errorf("ExpectedResponse(SetColor) should not declare a response type")
	}
}
