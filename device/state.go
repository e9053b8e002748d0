package device

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dsymonds/lifx/protocol"
)

// restoreTransition is the short fixed transition spec.md §4.8 calls for
// when restoring a captured pre-state.
const restoreTransition = 500 * time.Millisecond

// DeviceState is a captured device state: power, colour, and (for
// multizone/matrix devices) per-zone or per-tile colours. This is
// spec.md §3's PreState, completing the teacher's dangling
// CaptureState/RestoreState/NumZones references from cmd/ping/main.go.
type DeviceState struct {
	Power  bool
	Color  protocol.HSBK
	Zones  []protocol.HSBK            // multizone only; nil otherwise
	Tiles  [][protocol.Tile64Pixels]protocol.HSBK // matrix only; nil otherwise
}

// NumZones reports the number of zones captured in this state, completing
// the teacher's dangling state.NumZones() reference
// (cmd/ping/main.go: `zones := make([]lifx.Color, state.NumZones())`).
func (s DeviceState) NumZones() int {
	return len(s.Zones)
}

// CaptureState issues the capability-appropriate GETs in parallel (spec.md
// §4.8 Capture: "GetColor; if multizone, GetExtendedColorZones; if matrix,
// Get64 per tile") and assembles a DeviceState.
func (d *Device) CaptureState(ctx context.Context) (DeviceState, error) {
	var state DeviceState
	caps := d.Capabilities()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		on, err := d.GetPower(gctx)
		if err != nil {
			return err
		}
		state.Power = on != 0
		return nil
	})
	g.Go(func() error {
		c, err := d.GetColor(gctx)
		if err != nil {
			return err
		}
		state.Color = c
		return nil
	})
	if caps.Multizone != nil && *caps.Multizone {
		g.Go(func() error {
			zones, err := d.GetZoneColors(gctx)
			if err != nil {
				return err
			}
			state.Zones = zones
			return nil
		})
	}
	if caps.Matrix != nil && *caps.Matrix {
		g.Go(func() error {
			tiles, err := d.tileGeometry(gctx)
			if err != nil {
				return err
			}
			colors := make([][protocol.Tile64Pixels]protocol.HSBK, len(tiles))
			tg, tgctx := errgroup.WithContext(gctx)
			for i := range tiles {
				i := i
				tg.Go(func() error {
					c, err := d.Get64(tgctx, i)
					if err != nil {
						return err
					}
					colors[i] = c
					return nil
				})
			}
			if err := tg.Wait(); err != nil {
				return err
			}
			state.Tiles = colors
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return DeviceState{}, err
	}
	return state, nil
}

// RestoreState sends the inverse SETs with a short transition duration:
// the base colour, then for multizone the zone colours via SetZoneColors
// (one SetExtendedColorZones where the device supports it, legacy
// SetColorZones runs otherwise), for matrix per-tile Set64s in parallel,
// finally power (spec.md §4.8 Restore). Each SET uses
// the acknowledged path so restore completion is observable.
func (d *Device) RestoreState(ctx context.Context, state DeviceState) error {
	if err := d.SetColor(ctx, state.Color, restoreTransition); err != nil {
		return err
	}

	if len(state.Zones) > 0 {
		if err := d.SetZoneColors(ctx, state.Zones, restoreTransition); err != nil {
			return err
		}
	}

	if len(state.Tiles) > 0 {
		g, gctx := errgroup.WithContext(ctx)
		for i, colors := range state.Tiles {
			i, colors := i, colors
			g.Go(func() error {
				return d.Set64(gctx, i, 8, colors, restoreTransition)
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}

	return d.SetPower(ctx, state.Power)
}
