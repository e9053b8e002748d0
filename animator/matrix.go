package animator

import (
	"context"
	"net"
	"time"

	"github.com/dsymonds/lifx/connio"
	"github.com/dsymonds/lifx/protocol"
)

// tileSlot is the precomputed tile-orientation map entry for one tile in a
// chain: its row offset within the canvas and its own width/height.
type tileSlot struct {
	rowOffset     int
	width, height uint8
}

// Matrix animates a matrix/tile chain: for each tile in the chain, one
// Set64 packet (64 pixel slots) addressed by tile index, with the canvas
// written row-major into the correct tile slot (spec.md §4.5 "Matrix/tile"
// variant: "a multi-tile canvas is written row-major into the correct tile
// slot by the animator's precomputed tile-orientation map").
type Matrix struct {
	base
	slots         []tileSlot
	width, height int
}

// NewMatrix opens a dedicated socket and returns a Matrix animator for the
// given tile chain geometry (as queried once via device.GetDeviceChain,
// per spec.md §4.5's precomputation step).
func NewMatrix(ctx context.Context, addr *net.UDPAddr, serial connio.Serial, tiles []protocol.TileDevice, frameInterval time.Duration) (*Matrix, error) {
	tr, err := openTransport(ctx)
	if err != nil {
		return nil, err
	}

	slots := make([]tileSlot, len(tiles))
	offset := 0
	width := 0
	for i, t := range tiles {
		slots[i] = tileSlot{rowOffset: offset, width: t.Width, height: t.Height}
		offset += int(t.Height)
		if int(t.Width) > width {
			width = int(t.Width)
		}
	}

	return &Matrix{
		base:   newBase(tr, addr, serial, frameInterval),
		slots:  slots,
		width:  width,
		height: offset,
	}, nil
}

// PixelCount is the canvas's total pixel count (width * height).
func (a *Matrix) PixelCount() int { return a.width * a.height }

// Width is the canvas's row width in pixels.
func (a *Matrix) Width() int { return a.width }

// Height is the canvas's column height in pixels.
func (a *Matrix) Height() int { return a.height }

// Send pushes one Set64 frame per tile, slicing colors (row-major over the
// whole canvas) into each tile's 8x8 pixel window.
func (a *Matrix) Send(colors []protocol.HSBK) error {
	if len(colors) != a.PixelCount() {
		return badFrameLength(a.PixelCount(), len(colors))
	}

	for i, slot := range a.slots {
		var tileColors [protocol.Tile64Pixels]protocol.HSBK
		for row := 0; row < int(slot.height); row++ {
			canvasRow := slot.rowOffset + row
			for col := 0; col < int(slot.width); col++ {
				local := row*int(slot.width) + col
				if local >= protocol.Tile64Pixels {
					continue
				}
				tileColors[local] = colors[canvasRow*a.width+col]
			}
		}
		payload := protocol.EncodeSet64(i, 1, 0, 0, slot.width, a.durationHint(), tileColors)
		if err := a.send(protocol.Set64, payload); err != nil {
			return err
		}
	}
	return nil
}
