package protocol

import (
	"reflect"
	"testing"
)

func TestHeaderRoundTrip(t *testing.T) {
	tests := []Header{
		{Tagged: true, Source: 0xdeadbeef, Type: uint16(GetService)},
		{Source: 1, Target: [8]byte{1, 2, 3, 4, 5, 6, 0, 0}, ResRequired: true, Sequence: 7, Type: uint16(GetColor)},
		{Source: 0xffffffff, AckRequired: true, Sequence: 255, Type: uint16(SetColor)},
	}
	for _, h := range tests {
		b := Pack(h, 0)
		if len(b) != HeaderSize {
			t.Fatalf("Pack: got %d bytes, want %d", len(b), HeaderSize)
		}
		got, err := Unpack(b)
		if err != nil {
			t.Fatalf("Unpack: %v", err)
		}
		got.Size = 0 // Size is recomputed by Pack, not part of the input Header's meaning.
		h.Size = 0
		if !reflect.DeepEqual(got, h) {
			t.Errorf("round trip mismatch:\n got  %+v\n want %+v", got, h)
		}
	}
}

func TestPackSizeField(t *testing.T) {
	b := Pack(Header{}, 10)
	got, err := Unpack(b[:HeaderSize])
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if want := uint16(HeaderSize + 10); got.Size != want {
		t.Errorf("Size = %d, want %d", got.Size, want)
	}
}

func TestUnpackMalformed(t *testing.T) {
	valid := Pack(Header{Type: 2}, 0)

	tests := []struct {
		name   string
		mutate func([]byte) []byte
	}{
		{"too short", func(b []byte) []byte { return b[:HeaderSize-1] }},
		{"bad protocol", func(b []byte) []byte {
			b = append([]byte(nil), b...)
			b[2], b[3] = 0xff, 0xff
			return b
		}},
		{"addressable clear", func(b []byte) []byte {
			b = append([]byte(nil), b...)
			b[3] &^= 1 << 4
			return b
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Unpack(tc.mutate(valid)); err == nil {
				t.Errorf("Unpack succeeded, want error")
			}
		})
	}
}

func TestUnpackToleratesReservedBytes(t *testing.T) {
	b := Pack(Header{Type: 2}, 0)
	// Devices have been observed setting reserved bytes; unpack must ignore them.
	b[16] = 0xff
	b[24] = 0xff
	if _, err := Unpack(b); err != nil {
		t.Errorf("Unpack with non-zero reserved bytes failed: %v", err)
	}
}

func TestTaggedBitMatchesBroadcast(t *testing.T) {
	var h Header
	h.Tagged = true
	b := Pack(h, 0)
	got, err := Unpack(b)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Tagged {
		t.Errorf("Tagged bit not preserved")
	}
	if !IsBroadcastSerial(got.TargetSerial()) {
		t.Errorf("zero target should be broadcast serial")
	}
}
