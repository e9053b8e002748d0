package effects

import (
	"math"
	"time"

	"github.com/dsymonds/lifx/effect"
	"github.com/dsymonds/lifx/protocol"
)

// Progress maps a value in [StartValue, EndValue] to a pixel fill count on
// a multizone strip, with a travelling bright spot in the filled region
// and a gradient foreground (spec.md §4.9 Progress). Multizone only.
type Progress struct {
	common

	StartValue, EndValue float64
	Position             float64 // current value; callers update and re-read frames

	SpotSpeed      float64
	SpotWidth      float64 // fraction of fill_count
	SpotBrightness float64 // peak brightness the spot blends toward

	Foreground []protocol.HSBK // >= 1 stop; gradient interpolated along [0,1) if len > 1
	Background protocol.HSBK
}

// NewProgress returns a Progress effect over [start, end].
func NewProgress(start, end float64, foreground []protocol.HSBK, background protocol.HSBK) *Progress {
	return &Progress{
		common:         common{name: "progress", powerOn: true, restoreDone: true, requireMultizone: true},
		StartValue:     start,
		EndValue:       end,
		SpotSpeed:      1,
		SpotWidth:      0.15,
		SpotBrightness: 1,
		Foreground:     foreground,
		Background:     background,
	}
}

func (p *Progress) InheritPrestate(other effect.Effect) bool {
	return sameClassInherit(p.Name(), other)
}

func (p *Progress) FPS() float64 { return 20 }
func (p *Progress) Duration() time.Duration { return 0 }

// foregroundAt interpolates the foreground gradient at frac in [0,1]
// across the *entire* bar, so growing fill_count reveals progressively
// more of the gradient (thermometer semantics).
func (p *Progress) foregroundAt(frac float64) protocol.HSBK {
	if len(p.Foreground) == 1 {
		return p.Foreground[0]
	}
	n := len(p.Foreground)
	pos := clamp01(frac) * float64(n-1)
	i := int(pos)
	if i >= n-1 {
		return p.Foreground[n-1]
	}
	t := pos - float64(i)
	a, b := p.Foreground[i], p.Foreground[i+1]
	return protocol.HSBK{
		Hue:        wrapHue(a.Hue + shortestDiff(a.Hue, b.Hue)*t),
		Saturation: a.Saturation + (b.Saturation-a.Saturation)*t,
		Brightness: a.Brightness + (b.Brightness-a.Brightness)*t,
		Kelvin:     a.Kelvin,
	}
}

func shortestDiff(a, b float64) float64 {
	d := b - a
	if d > 180 {
		d -= 360
	} else if d < -180 {
		d += 360
	}
	return d
}

// GenerateFrame fills pixels up to fillCount with the foreground (gradient
// or solid), the rest with Background, and blends a travelling Gaussian-
// profile bright spot into the filled region toward SpotBrightness (spec.md
// §4.9 Progress; original_source's effects/progress.py generate_frame).
func (p *Progress) GenerateFrame(ctx effect.FrameContext) []protocol.HSBK {
	n := ctx.PixelCount
	span := p.EndValue - p.StartValue
	frac := 0.0
	if span != 0 {
		frac = clamp01((p.Position - p.StartValue) / span)
	}
	fillCount := int(math.Round(frac * float64(n)))

	var spotPos, spotWidth float64
	if fillCount > 0 {
		spotPos = float64(fillCount) * (math.Sin(ctx.ElapsedS*p.SpotSpeed*2*math.Pi) + 1) / 2
		spotWidth = math.Max(1, p.SpotWidth*float64(fillCount))
	} else {
		spotWidth = 1
	}

	out := make([]protocol.HSBK, n)
	for i := 0; i < n; i++ {
		if i >= fillCount {
			out[i] = p.Background
			continue
		}
		base := p.foregroundAt(float64(i) / float64(maxInt(n-1, 1)))
		dist := math.Abs(float64(i) - spotPos)
		boost := math.Exp(-math.Pow(dist/spotWidth, 2))
		bri := clamp01(base.Brightness + boost*(p.SpotBrightness-base.Brightness))
		out[i] = protocol.HSBK{Hue: base.Hue, Saturation: base.Saturation, Brightness: bri, Kelvin: base.Kelvin}
	}

	return out
}

var _ effect.FrameEffect = (*Progress)(nil)
