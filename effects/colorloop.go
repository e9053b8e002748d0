package effects

import (
	"math/rand"
	"time"

	"github.com/dsymonds/lifx/effect"
	"github.com/dsymonds/lifx/protocol"
)

// Colorloop advances a shared or per-device hue around the colour wheel
// (spec.md §4.9 Colorloop).
type Colorloop struct {
	common

	Period       time.Duration
	Spread       float64 // degrees offset per device_index when not synchronized
	Synchronized bool
	SatMin       float64
	SatMax       float64
	Brightness   float64 // 0 means full brightness (1.0); the device's initial brightness is not read

	baseHue   float64
	direction float64
	setup     bool
}

// NewColorloop returns a Colorloop effect.
func NewColorloop(period time.Duration, spread float64, synchronized bool) *Colorloop {
	return &Colorloop{
		common:       common{name: "colorloop", powerOn: true, restoreDone: true, requireColor: true},
		Period:       period,
		Spread:       spread,
		Synchronized: synchronized,
		SatMin:       0.8,
		SatMax:       1.0,
	}
}

func (c *Colorloop) InheritPrestate(other effect.Effect) bool {
	return sameClassInherit(c.Name(), other)
}

// FPS is max(20, (360/change)/period) but since Colorloop advances
// continuously rather than in discrete "change" steps, 30 FPS gives a
// visibly smooth sweep at any period.
func (c *Colorloop) FPS() float64 { return 30 }

// Duration is zero: colorloop runs until stopped.
func (c *Colorloop) Duration() time.Duration { return 0 }

// ensureSetup picks this run's random direction (±1) and base hue once, at
// the first GenerateFrame call. Every participant shares them; when not
// synchronized, each participant is offset from the shared base hue by
// DeviceIndex * Spread.
func (c *Colorloop) ensureSetup() {
	if c.setup {
		return
	}
	c.setup = true
	c.baseHue = rand.Float64() * 360
	if rand.Intn(2) == 0 {
		c.direction = -1
	} else {
		c.direction = 1
	}
}

func (c *Colorloop) GenerateFrame(ctx effect.FrameContext) []protocol.HSBK {
	c.ensureSetup()

	sat := (c.SatMin + c.SatMax) / 2
	bri := c.Brightness
	if bri == 0 {
		bri = 1
	}

	advance := (ctx.ElapsedS / c.Period.Seconds()) * 360 * c.direction
	var hue float64
	if c.Synchronized {
		hue = wrapHue(c.baseHue + advance)
	} else {
		hue = wrapHue(c.baseHue + advance + float64(ctx.DeviceIndex)*c.Spread)
	}

	return solidFrame(ctx.PixelCount, protocol.HSBK{Hue: hue, Saturation: sat, Brightness: bri, Kelvin: 3500})
}

var _ effect.FrameEffect = (*Colorloop)(nil)
