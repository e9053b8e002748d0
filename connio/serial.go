package connio

import (
	"encoding/hex"
	"fmt"
)

// Serial is a LIFX device's 48-bit identity, carried on the wire as 6
// little-endian bytes and rendered as 12 lowercase hex characters.
type Serial [6]byte

// BroadcastSerial is the all-zero serial used to address every device.
var BroadcastSerial = Serial{}

// String renders the serial as 12 lowercase hex characters.
func (s Serial) String() string {
	return hex.EncodeToString(s[:])
}

// IsBroadcast reports whether s is the all-zero broadcast serial.
func (s Serial) IsBroadcast() bool {
	return s == BroadcastSerial
}

// ParseSerial parses a 12-character hex string into a Serial.
func ParseSerial(s string) (Serial, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Serial{}, fmt.Errorf("parsing serial %q: %w", s, err)
	}
	if len(b) != 6 {
		return Serial{}, fmt.Errorf("parsing serial %q: want 6 bytes, got %d", s, len(b))
	}
	var out Serial
	copy(out[:], b)
	return out, nil
}
