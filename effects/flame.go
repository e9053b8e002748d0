package effects

import (
	"math"
	"time"

	"github.com/dsymonds/lifx/effect"
	"github.com/dsymonds/lifx/protocol"
)

// Flame combines three out-of-phase sine waves per pixel into a flicker
// scalar, ramping hue/kelvin/brightness across it (spec.md §4.9 Flame).
type Flame struct {
	common

	KelvinMin, KelvinMax uint16
	Intensity            float64 // 0..1, how much flicker modulates brightness
	BaseBrightness       float64
}

// NewFlame returns a Flame effect.
func NewFlame(intensity float64) *Flame {
	return &Flame{
		common:         common{name: "flame", powerOn: true, restoreDone: true, requireColor: true},
		KelvinMin:      1500,
		KelvinMax:      3000,
		Intensity:      intensity,
		BaseBrightness: 1,
	}
}

func (f *Flame) InheritPrestate(other effect.Effect) bool {
	return sameClassInherit(f.Name(), other)
}

func (f *Flame) FPS() float64 { return 30 }
func (f *Flame) Duration() time.Duration { return 0 }

// flicker combines three near-prime-ratio sine waves at t (seconds) and
// spatial seed x into a 0-1 scalar (spec.md's "frequencies 3.7/7.3/13.1,
// spatial seeds 17.1/31.7/53.3").
func flicker(t, x float64) float64 {
	a := math.Sin(t*3.7 + x*17.1)
	b := math.Sin(t*7.3 + x*31.7)
	c := math.Sin(t*13.1 + x*53.3)
	return clamp01((a+b+c)/6 + 0.5)
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func (f *Flame) GenerateFrame(ctx effect.FrameContext) []protocol.HSBK {
	n := ctx.PixelCount
	out := make([]protocol.HSBK, n)

	h := ctx.CanvasHeight
	for i := range out {
		x := float64(i) + float64(ctx.DeviceIndex)*7
		fl := flicker(ctx.ElapsedS, x)

		// vertical gradient on 2D canvases: top rows hotter.
		grad := 1.0
		if h > 1 {
			row := i / maxInt(ctx.CanvasWidth, 1)
			yNorm := float64(row) / float64(h-1)
			grad = 1 - math.Pow(yNorm, 0.7)
		}

		hue := 40 * fl
		kelvin := float64(f.KelvinMin) + (float64(f.KelvinMax)-float64(f.KelvinMin))*fl
		bri := f.BaseBrightness * (1 - f.Intensity + f.Intensity*fl) * grad

		out[i] = protocol.HSBK{Hue: hue, Saturation: 1, Brightness: clamp01(bri), Kelvin: uint16(kelvin)}
	}
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

var _ effect.FrameEffect = (*Flame)(nil)
