package effects

import (
	"math"
	"time"

	"github.com/dsymonds/lifx/effect"
	"github.com/dsymonds/lifx/protocol"
)

// Aurora interpolates hue around a user-supplied palette, with per-pixel
// brightness modulation (spec.md §4.9 Aurora).
type Aurora struct {
	common

	Palette    []float64 // hues, degrees
	Speed      float64
	Spread     float64 // degrees offset per device_index
	Brightness float64
	Saturation float64
}

// NewAurora returns an Aurora effect cycling through palette (hues in
// degrees).
func NewAurora(palette []float64, speed float64) *Aurora {
	return &Aurora{
		common:     common{name: "aurora", powerOn: true, restoreDone: true, requireColor: true},
		Palette:    palette,
		Speed:      speed,
		Spread:     15,
		Brightness: 1,
		Saturation: 1,
	}
}

func (a *Aurora) InheritPrestate(other effect.Effect) bool {
	return sameClassInherit(a.Name(), other)
}

func (a *Aurora) FPS() float64 { return 30 }
func (a *Aurora) Duration() time.Duration { return 0 }

// paletteHue interpolates the hue at fractional position frac in [0,1)
// around a.Palette, wrapping the shortest way when adjacent stops differ
// by more than 180 degrees.
func (a *Aurora) paletteHue(frac float64) float64 {
	n := len(a.Palette)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return a.Palette[0]
	}
	frac = frac - math.Floor(frac)
	pos := frac * float64(n)
	i := int(pos) % n
	j := (i + 1) % n
	t := pos - math.Floor(pos)

	h0, h1 := a.Palette[i], a.Palette[j]
	diff := h1 - h0
	if diff > 180 {
		diff -= 360
	} else if diff < -180 {
		diff += 360
	}
	return wrapHue(h0 + diff*t)
}

func (a *Aurora) GenerateFrame(ctx effect.FrameContext) []protocol.HSBK {
	n := ctx.PixelCount
	out := make([]protocol.HSBK, n)

	h := ctx.CanvasHeight
	for i := range out {
		frac := float64(i)/float64(n) + ctx.ElapsedS*a.Speed*0.05 + float64(ctx.DeviceIndex)*a.Spread/360
		hue := a.paletteHue(frac)

		bri := a.Brightness * (0.5 + 0.5*math.Sin(float64(i)/float64(n)*3*math.Pi+ctx.ElapsedS*6))
		if h > 1 {
			row := i / maxInt(ctx.CanvasWidth, 1)
			yNorm := float64(row) / float64(h-1)
			bri *= math.Sin(yNorm * math.Pi)
		}

		out[i] = protocol.HSBK{Hue: hue, Saturation: a.Saturation, Brightness: clamp01(bri), Kelvin: 3500}
	}
	return out
}

var _ effect.FrameEffect = (*Aurora)(nil)
