package device

import (
	"context"
	"time"

	"github.com/dsymonds/lifx/connio"
	"github.com/dsymonds/lifx/lifxerrors"
	"github.com/dsymonds/lifx/protocol"
)

// GetDeviceChain queries and caches the matrix device's tile chain
// geometry (spec.md §4.5 Animator precomputation: "on creation the
// animator queries the device once for its ... tile chain / tile
// geometry").
func (d *Device) GetDeviceChain(ctx context.Context) ([]protocol.TileDevice, error) {
	pkt, err := d.getOne(ctx, protocol.GetDeviceChain, nil)
	if err != nil {
		return nil, err
	}
	sdc, ok := pkt.(protocol.StateDeviceChainPacket)
	if !ok {
		return nil, lifxerrors.Protocol("GetDeviceChain: unexpected packet type %T", pkt)
	}
	tiles := sdc.Tiles[:sdc.TotalCount]

	d.mu.Lock()
	d.tiles = tiles
	d.mu.Unlock()

	return tiles, nil
}

// TileGeometry returns the cached tile chain, querying it first if needed.
// Animator construction uses this to precompute its tile-orientation map
// (spec.md §4.5).
func (d *Device) TileGeometry(ctx context.Context) ([]protocol.TileDevice, error) {
	return d.tileGeometry(ctx)
}

// tileGeometry returns the cached tile chain, querying it first if needed.
func (d *Device) tileGeometry(ctx context.Context) ([]protocol.TileDevice, error) {
	d.mu.Lock()
	tiles := d.tiles
	d.mu.Unlock()
	if tiles != nil {
		return tiles, nil
	}
	return d.GetDeviceChain(ctx)
}

// Get64 returns the 64 pixel colours of the tile at tileIndex.
func (d *Device) Get64(ctx context.Context, tileIndex int) ([protocol.Tile64Pixels]protocol.HSBK, error) {
	var out [protocol.Tile64Pixels]protocol.HSBK
	payload := protocol.EncodeGet64(tileIndex, 1, 0, 0, 8)
	pkt, err := d.getOne(ctx, protocol.Get64, payload)
	if err != nil {
		return out, err
	}
	s64, ok := pkt.(protocol.State64Packet)
	if !ok {
		return out, lifxerrors.Protocol("Get64: unexpected packet type %T", pkt)
	}
	return s64.Colors, nil
}

// Set64 sets the 64 pixel colours of the tile at tileIndex, transitioning
// over duration.
func (d *Device) Set64(ctx context.Context, tileIndex int, width uint8, colors [protocol.Tile64Pixels]protocol.HSBK, duration time.Duration) error {
	payload := protocol.EncodeSet64(tileIndex, 1, 0, 0, width, duration, colors)
	return d.RequestAck(ctx, protocol.Set64, payload, connio.Options{})
}

// CanvasGeometry reports the matrix device's overall canvas size, with the
// tiles stacked vertically: the width is the widest tile's width and the
// height is the sum of every tile's height — spec.md §3's "canvas_width ×
// canvas_height pixels in row-major order".
func (d *Device) CanvasGeometry(ctx context.Context) (width, height int, err error) {
	tiles, err := d.tileGeometry(ctx)
	if err != nil {
		return 0, 0, err
	}
	for _, t := range tiles {
		if int(t.Width) > width {
			width = int(t.Width)
		}
		height += int(t.Height)
	}
	return width, height, nil
}

// UplightIndex returns the pixel index of the distinguished uplight zone
// for a ceiling-class device (spec.md §3 Canvas layout: "one distinguished
// uplight zone at index pixel_count-1"), and false if the device's
// capability record does not mark it as a ceiling device.
func (d *Device) UplightIndex(ctx context.Context) (index int, ok bool, err error) {
	if !d.Capabilities().IsCeiling() {
		return 0, false, nil
	}
	w, h, err := d.CanvasGeometry(ctx)
	if err != nil {
		return 0, false, err
	}
	return w*h - 1, true, nil
}

// DownlightSlice returns the [0, pixel_count-1) pixel range that makes up
// the downlight region of a ceiling device, complementing UplightIndex.
func (d *Device) DownlightSlice(ctx context.Context) (start, end int, err error) {
	idx, ok, err := d.UplightIndex(ctx)
	if err != nil {
		return 0, 0, err
	}
	if !ok {
		return 0, 0, nil
	}
	return 0, idx, nil
}
