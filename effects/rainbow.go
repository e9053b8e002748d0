package effects

import (
	"time"

	"github.com/dsymonds/lifx/effect"
	"github.com/dsymonds/lifx/protocol"
)

// Rainbow spreads 360 degrees of hue across a device's pixels and scrolls
// it over time (spec.md §4.9 Rainbow).
type Rainbow struct {
	common

	Period     time.Duration
	Spread     float64 // degrees offset per device_index
	Brightness float64
	Saturation float64
}

// NewRainbow returns a Rainbow effect.
func NewRainbow(period time.Duration, brightness float64) *Rainbow {
	return &Rainbow{
		common:     common{name: "rainbow", powerOn: true, restoreDone: true, requireColor: true},
		Period:     period,
		Spread:     10,
		Brightness: brightness,
		Saturation: 1,
	}
}

func (r *Rainbow) InheritPrestate(other effect.Effect) bool {
	return sameClassInherit(r.Name(), other)
}

func (r *Rainbow) FPS() float64 { return 30 }
func (r *Rainbow) Duration() time.Duration { return 0 }

func (r *Rainbow) GenerateFrame(ctx effect.FrameContext) []protocol.HSBK {
	scroll := (ctx.ElapsedS / r.Period.Seconds()) * 360
	offset := float64(ctx.DeviceIndex) * r.Spread

	n := ctx.PixelCount
	out := make([]protocol.HSBK, n)
	for i := range out {
		hue := wrapHue(float64(i)/float64(n)*360 + scroll + offset)
		out[i] = protocol.HSBK{Hue: hue, Saturation: r.Saturation, Brightness: r.Brightness, Kelvin: 3500}
	}
	return out
}

var _ effect.FrameEffect = (*Rainbow)(nil)
