package effects

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dsymonds/lifx/effect"
	"github.com/dsymonds/lifx/protocol"
)

func TestGenerateFrameLengthContract(t *testing.T) {
	fxs := []effect.FrameEffect{
		NewColorloop(5*time.Second, 30, false),
		NewRainbow(10*time.Second, 0.8),
		NewFlame(0.5),
		NewAurora([]float64{0, 120, 240}, 1),
		NewProgress(0, 100, []protocol.HSBK{{Brightness: 1}}, protocol.HSBK{}),
		NewSunrise(60*time.Second, OriginBottom),
		NewSunset(60*time.Second, OriginBottom, false),
	}
	for _, fx := range fxs {
		ctx := effect.FrameContext{ElapsedS: 1, PixelCount: 16, CanvasWidth: 4, CanvasHeight: 4}
		frame := fx.GenerateFrame(ctx)
		require.Lenf(t, frame, 16, "%s: frame length", fx.Name())
	}
}

func TestColorloopPeriodicity(t *testing.T) {
	c := NewColorloop(5*time.Second, 30, true)
	ctx0 := effect.FrameContext{ElapsedS: 0, PixelCount: 1}
	f0 := c.GenerateFrame(ctx0)

	ctxK := effect.FrameContext{ElapsedS: 2 * 5, PixelCount: 1} // k=2 periods
	fK := c.GenerateFrame(ctxK)

	require.InDelta(t, f0[0].Hue, fK[0].Hue, 1e-6)
}

func TestRainbowWrap(t *testing.T) {
	r := NewRainbow(10*time.Second, 0.8)
	ctx := effect.FrameContext{ElapsedS: 3, PixelCount: 16}
	frame := r.GenerateFrame(ctx)
	// hue at pixel i equals hue at i+pixel_count ignoring scroll: since
	// pixel_count is the full array length there's no i+pixel_count index
	// within one frame, so instead verify the 360-wrap directly: hue at
	// i=0 and the scroll-equivalent position one full period later match.
	ctxNext := effect.FrameContext{ElapsedS: 3 + 10, PixelCount: 16}
	frameNext := r.GenerateFrame(ctxNext)
	require.InDelta(t, frame[0].Hue, frameNext[0].Hue, 1e-6)
}

func TestRainbowScenarioExact(t *testing.T) {
	r := NewRainbow(10*time.Second, 0.8)
	r.Spread = 0 // single participant, device_index 0 contributes no offset

	f0 := r.GenerateFrame(effect.FrameContext{ElapsedS: 0, PixelCount: 16})
	for i := 0; i < 16; i++ {
		want := math.Round(float64(i) / 16 * 360)
		require.InDelta(t, want, math.Round(f0[i].Hue), 1)
	}

	f5 := r.GenerateFrame(effect.FrameContext{ElapsedS: 5, PixelCount: 16})
	for i := 0; i < 16; i++ {
		want := math.Mod(180+float64(i)/16*360, 360)
		got := math.Round(f5[i].Hue)
		require.InDelta(t, math.Round(want), got, 1)
	}
}

func TestFlameIntensityVariance(t *testing.T) {
	zero := NewFlame(0)
	one := NewFlame(1)
	ctx := effect.FrameContext{ElapsedS: 2.5, PixelCount: 32}

	fZero := zero.GenerateFrame(ctx)
	fOne := one.GenerateFrame(ctx)

	require.Less(t, variance(fZero), 1e-9, "intensity=0 should be constant brightness")
	require.Greater(t, variance(fOne), variance(fZero), "intensity=1 should vary more")
}

func variance(frame []protocol.HSBK) float64 {
	mean := 0.0
	for _, c := range frame {
		mean += c.Brightness
	}
	mean /= float64(len(frame))
	v := 0.0
	for _, c := range frame {
		d := c.Brightness - mean
		v += d * d
	}
	return v / float64(len(frame))
}

func TestProgressBoundaries(t *testing.T) {
	fg := []protocol.HSBK{{Brightness: 1}}
	bg := protocol.HSBK{Brightness: 0}
	p := NewProgress(0, 100, fg, bg)

	p.Position = 0
	atStart := p.GenerateFrame(effect.FrameContext{ElapsedS: 0, PixelCount: 10})
	for _, c := range atStart {
		require.Equal(t, bg.Brightness, c.Brightness)
	}

	p.Position = 100
	atEnd := p.GenerateFrame(effect.FrameContext{ElapsedS: 0, PixelCount: 10})
	for _, c := range atEnd {
		require.Equal(t, fg[0].Brightness, c.Brightness)
	}
}

func TestSunriseBrightnessRamp(t *testing.T) {
	s := NewSunrise(60*time.Second, OriginBottom)
	ctx := effect.FrameContext{PixelCount: 64, CanvasWidth: 8, CanvasHeight: 8}

	ctx.ElapsedS = 0
	start := s.GenerateFrame(ctx)
	require.Less(t, meanBrightness(start), 0.05)

	ctx.ElapsedS = 60
	end := s.GenerateFrame(ctx)
	require.Greater(t, meanBrightness(end), 0.30)
}

func TestSunriseScenarioExact(t *testing.T) {
	s := NewSunrise(60*time.Second, OriginBottom)
	ctx := effect.FrameContext{ElapsedS: 24, PixelCount: 64, CanvasWidth: 8, CanvasHeight: 8}
	frame := s.GenerateFrame(ctx)

	bottomRight := frame[7*8+3] // row 7, col 3
	topLeft := frame[0]         // row 0, col 0

	require.Greater(t, bottomRight.Brightness, topLeft.Brightness)
	require.GreaterOrEqual(t, topLeft.Hue, 200.0)
	require.Less(t, bottomRight.Hue, 70.0)
}

func meanBrightness(frame []protocol.HSBK) float64 {
	sum := 0.0
	for _, c := range frame {
		sum += c.Brightness
	}
	return sum / float64(len(frame))
}

func TestRegistrySupportLevels(t *testing.T) {
	require.Equal(t, Recommended, SupportFor("progress", ClassMultizone))
	require.Equal(t, NotSupported, SupportFor("progress", ClassSingle))
	require.Equal(t, Recommended, SupportFor("sunrise", ClassMatrix))
	require.Equal(t, NotSupported, SupportFor("sunrise", ClassMultizone))
	require.Equal(t, Recommended, SupportFor("pulse", ClassMatrix))
}

func TestPulseRunTime(t *testing.T) {
	p := NewPulse(Blink, protocol.HSBK{}, 200*time.Millisecond, 5)
	require.Equal(t, time.Second, p.RunTime())
}
