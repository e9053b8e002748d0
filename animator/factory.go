package animator

import (
	"context"
	"fmt"
	"time"

	"github.com/dsymonds/lifx/device"
)

// NewForDevice builds the appropriate animator variant for dev's
// capability record (spec.md §4.7 start: "build one animator per
// participant via the device-kind factory"), precomputing whatever
// geometry that variant needs by querying dev once.
func NewForDevice(ctx context.Context, dev *device.Device, frameInterval time.Duration) (Animator, error) {
	caps := dev.Capabilities()

	switch {
	case caps.Matrix != nil && *caps.Matrix:
		tiles, err := dev.TileGeometry(ctx)
		if err != nil {
			return nil, fmt.Errorf("building matrix animator for %s: %w", dev.Serial(), err)
		}
		return NewMatrix(ctx, dev.Addr(), dev.Serial(), tiles, frameInterval)

	case caps.Multizone != nil && *caps.Multizone:
		n, err := dev.NumZones(ctx)
		if err != nil {
			return nil, fmt.Errorf("building multizone animator for %s: %w", dev.Serial(), err)
		}
		return NewMultiZone(ctx, dev.Addr(), dev.Serial(), n, frameInterval)

	default:
		return NewSingleLight(ctx, dev.Addr(), dev.Serial(), frameInterval)
	}
}
