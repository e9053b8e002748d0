package animator

import (
	"context"
	"net"
	"time"

	"github.com/dsymonds/lifx/connio"
	"github.com/dsymonds/lifx/protocol"
)

// MultiZone animates a multizone strip: every frame is one extended
// SetExtendedColorZones packet addressing all zones (spec.md §4.5
// "Multizone strip" variant).
type MultiZone struct {
	base
	zoneCount int
}

// NewMultiZone opens a dedicated socket and returns a MultiZone animator
// for a strip with zoneCount zones.
func NewMultiZone(ctx context.Context, addr *net.UDPAddr, serial connio.Serial, zoneCount int, frameInterval time.Duration) (*MultiZone, error) {
	tr, err := openTransport(ctx)
	if err != nil {
		return nil, err
	}
	return &MultiZone{base: newBase(tr, addr, serial, frameInterval), zoneCount: zoneCount}, nil
}

// PixelCount is the strip's zone count.
func (a *MultiZone) PixelCount() int { return a.zoneCount }

// Send pushes one SetExtendedColorZones frame covering every zone.
func (a *MultiZone) Send(colors []protocol.HSBK) error {
	if len(colors) != a.zoneCount {
		return badFrameLength(a.zoneCount, len(colors))
	}
	payload, err := protocol.EncodeSetExtendedColorZones(a.durationHint(), protocol.Apply, 0, colors)
	if err != nil {
		return err
	}
	return a.send(protocol.SetExtendedColorZones, payload)
}
