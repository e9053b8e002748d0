package effects

import (
	"math"
	"time"

	"github.com/dsymonds/lifx/effect"
	"github.com/dsymonds/lifx/protocol"
)

// Origin selects where Sunrise/Sunset's radial "sun" is centred.
type Origin int

const (
	OriginBottom Origin = iota // centre of the bottom row
	OriginCenter               // middle of the canvas
)

const sunSpread = 0.6

// sunColor maps a per-pixel effective progress pp in [0,1] through the
// five-phase colour curve spec.md §4.9 describes: navy night, dawn
// purple/magenta, golden orange, morning yellow, neutral warm white.
func sunColor(pp float64) (hue, sat float64, kelvin uint16) {
	switch {
	case pp < 0.2:
		return 230, 0.9, 2000 // navy night
	case pp < 0.4:
		return 290, 0.8, 2300 // dawn purple/magenta
	case pp < 0.6:
		return 30, 0.9, 2700 // golden orange
	case pp < 0.8:
		return 50, 0.6, 3500 // morning yellow
	default:
		return 45, 0.2, 4500 // neutral warm white
	}
}

// sunBase is shared by Sunrise and Sunset: the radial progress model,
// colour curve, and per-pixel brightness (spec.md §4.9 "Sunrise/Sunset").
type sunBase struct {
	common

	Duration_ time.Duration
	OriginPos Origin
}

func (s *sunBase) Duration() time.Duration { return s.Duration_ }
func (s *sunBase) FPS() float64            { return 20 }

// origin returns the (x, y) normalized canvas coordinate the radial sun
// expands from.
func (s *sunBase) origin(w, h int) (x, y float64) {
	if s.OriginPos == OriginCenter {
		return 0.5, 0.5
	}
	return 0.5, 1 // bottom row centre
}

// generateFrame computes one frame given the already-direction-adjusted
// globalProgress (elapsed/duration for sunrise, 1-elapsed/duration for
// sunset).
func (s *sunBase) generateFrame(ctx effect.FrameContext, globalProgress float64) []protocol.HSBK {
	n := ctx.PixelCount
	w := maxInt(ctx.CanvasWidth, 1)
	h := maxInt(ctx.CanvasHeight, 1)
	ox, oy := s.origin(w, h)

	maxDist := math.Hypot(float64(w), float64(h)) / 2
	if maxDist == 0 {
		maxDist = 1
	}

	out := make([]protocol.HSBK, n)
	for i := 0; i < n; i++ {
		row := i / w
		col := i % w
		dx := float64(col)/float64(maxInt(w-1, 1)) - ox
		dy := float64(row)/float64(maxInt(h-1, 1)) - oy
		dist := math.Hypot(dx, dy)
		normDist := clamp01(dist)

		pp := clamp01(globalProgress*(1+sunSpread) - normDist*sunSpread)

		hue, sat, kelvin := sunColor(pp)
		bri := math.Pow(pp, 2.2) * (0.5 + 0.5*(1-1.5*normDist))
		out[i] = protocol.HSBK{Hue: hue, Saturation: sat, Brightness: clamp01(bri), Kelvin: kelvin}
	}
	return out
}

// Sunrise animates a matrix canvas from night to day (spec.md §4.9). Not
// compatible with non-matrix devices.
type Sunrise struct {
	sunBase
}

// NewSunrise returns a Sunrise effect lasting duration.
func NewSunrise(duration time.Duration, origin Origin) *Sunrise {
	return &Sunrise{sunBase{
		common:    common{name: "sunrise", powerOn: true, restoreDone: false, requireMatrix: true},
		Duration_: duration,
		OriginPos: origin,
	}}
}

func (s *Sunrise) InheritPrestate(other effect.Effect) bool {
	return sameClassInherit(s.Name(), other)
}

// FromPoweroffHSBK starts a dark light at navy night rather than common's
// default warm white, so a light that was off begins the sunrise from the
// same colour the effect itself starts at.
func (s *Sunrise) FromPoweroffHSBK(effect.DeviceCapabilities) protocol.HSBK {
	hue, sat, kelvin := sunColor(0)
	return protocol.HSBK{Hue: hue, Saturation: sat, Brightness: 0.01, Kelvin: kelvin}
}

func (s *Sunrise) GenerateFrame(ctx effect.FrameContext) []protocol.HSBK {
	progress := clamp01(ctx.ElapsedS / s.Duration_.Seconds())
	return s.generateFrame(ctx, progress)
}

var _ effect.FrameEffect = (*Sunrise)(nil)

// Sunset animates a matrix canvas from day to night, optionally powering
// the device off on completion (spec.md §4.9: "Sunset with power_off=true
// emits one set_power(false) ... after the final frame and declares
// restore_on_complete=false").
type Sunset struct {
	sunBase

	PowerOff bool
}

// NewSunset returns a Sunset effect lasting duration.
func NewSunset(duration time.Duration, origin Origin, powerOff bool) *Sunset {
	return &Sunset{
		sunBase: sunBase{
			common:    common{name: "sunset", powerOn: false, restoreDone: false, requireMatrix: true},
			Duration_: duration,
			OriginPos: origin,
		},
		PowerOff: powerOff,
	}
}

func (s *Sunset) InheritPrestate(other effect.Effect) bool {
	return sameClassInherit(s.Name(), other)
}

// PowerOffOnComplete reports whether the conductor should power the device
// off once this sunset finishes (spec.md §4.9: "Sunset with power_off=true
// emits one set_power(false) ... after the final frame").
func (s *Sunset) PowerOffOnComplete() bool { return s.PowerOff }

func (s *Sunset) GenerateFrame(ctx effect.FrameContext) []protocol.HSBK {
	progress := clamp01(1 - ctx.ElapsedS/s.Duration_.Seconds())
	return s.generateFrame(ctx, progress)
}

var _ effect.FrameEffect = (*Sunset)(nil)
var _ effect.PowerOffEffect = (*Sunset)(nil)
