package animator

import (
	"context"
	"net"
	"time"

	"github.com/dsymonds/lifx/connio"
	"github.com/dsymonds/lifx/protocol"
)

// SingleLight animates a plain (non-multizone, non-matrix) device: every
// frame is a single SetColor packet (spec.md §4.5 "Single light" variant).
type SingleLight struct {
	base
}

// NewSingleLight opens a dedicated socket and returns a SingleLight
// animator targeting addr/serial.
func NewSingleLight(ctx context.Context, addr *net.UDPAddr, serial connio.Serial, frameInterval time.Duration) (*SingleLight, error) {
	tr, err := openTransport(ctx)
	if err != nil {
		return nil, err
	}
	return &SingleLight{base: newBase(tr, addr, serial, frameInterval)}, nil
}

// PixelCount is always 1 for a single light.
func (a *SingleLight) PixelCount() int { return 1 }

// Send pushes one SetColor frame.
func (a *SingleLight) Send(colors []protocol.HSBK) error {
	if len(colors) != 1 {
		return badFrameLength(1, len(colors))
	}
	payload := protocol.EncodeSetColor(colors[0], a.durationHint())
	return a.send(protocol.SetColor, payload)
}
