// Package effect implements the frame-effect engine and the conductor that
// owns effect lifecycle across a set of devices: pre-state capture/restore,
// compatibility filtering, dynamic participant add/remove, and inherit-
// prestate reuse between compatible running effects.
//
// There is no teacher equivalent (github.com/dsymonds/lifx has no effect
// concept at all); this package is new relative to the teacher, grounded
// directly on spec.md §4.6-§4.9. The exclusion-lock-guarded map-of-running-
// state pattern is grounded on facebook-time/ptp/ptp4u/server's mutex-
// guarded subscription map; parallel pre-state capture and compatibility
// filtering use golang.org/x/sync/errgroup the same way device.CaptureState
// does, while restore fans out with goroutines and a sync.WaitGroup so one
// device's restore failure does not abort its peers.
package effect

import (
	"time"

	"github.com/dsymonds/lifx/device"
	"github.com/dsymonds/lifx/protocol"
)

// FrameContext is handed to a frame effect's GenerateFrame on every tick.
type FrameContext struct {
	ElapsedS     float64 // seconds since the effect started
	DeviceIndex  int     // this participant's position in the effect's list
	PixelCount   int     // required length of GenerateFrame's return value
	CanvasWidth  int     // matrix devices only; 0 for single/multizone
	CanvasHeight int     // matrix devices only; 0 for single/multizone
}

// Effect is the common contract every effect implements (spec.md §4.9).
type Effect interface {
	// Name is the effect's stable identifier.
	Name() string

	// PowerOn reports whether the conductor should switch the device on
	// before starting the effect.
	PowerOn() bool

	// RestoreOnComplete reports whether the conductor should restore the
	// pre-state once this effect ends (default true; sunset and sunrise
	// override to false).
	RestoreOnComplete() bool

	// IsCompatible reports whether light's capability bits support this
	// effect.
	IsCompatible(caps DeviceCapabilities) bool

	// InheritPrestate reports whether this effect will reuse the
	// pre-state already captured by other, which is currently running on
	// the same device. The default behaviour most effects want is "same
	// class of effect" (same Name()).
	InheritPrestate(other Effect) bool

	// FromPoweroffHSBK is the colour to use as the starting value when
	// powering on a light that was off, so the visible transition begins
	// from a sensible point rather than whatever the bulb happened to
	// remember.
	FromPoweroffHSBK(caps DeviceCapabilities) protocol.HSBK
}

// DeviceCapabilities is the subset of a device's capability record that
// effect compatibility predicates read (spec.md §4.9: "has_color,
// has_multizone, has_matrix").
type DeviceCapabilities struct {
	Color     bool
	Multizone bool
	Matrix    bool
}

// capsOf extracts DeviceCapabilities from a device's full capability record.
func capsOf(d *device.Device) DeviceCapabilities {
	c := d.Capabilities()
	return DeviceCapabilities{
		Color:     c.Color != nil && *c.Color,
		Multizone: c.Multizone != nil && *c.Multizone,
		Matrix:    c.Matrix != nil && *c.Matrix,
	}
}

// FrameEffect is an Effect that additionally generates per-tick frames
// (spec.md §4.6). Pulse is the one non-frame effect (a firmware-waveform
// effect) and does not implement this interface.
type FrameEffect interface {
	Effect

	// FPS is the target frames-per-second for this effect.
	FPS() float64

	// Duration is the effect's total runtime, or zero for "run until
	// stopped".
	Duration() time.Duration

	// GenerateFrame computes one frame's colours. The returned slice must
	// have exactly ctx.PixelCount entries; any other length is a fatal
	// contract violation (spec.md §4.6 step 3).
	GenerateFrame(ctx FrameContext) []protocol.HSBK
}

// WaveformEffect is an Effect that fires a single native firmware waveform
// packet and does no per-frame work (spec.md §4.9 Pulse).
type WaveformEffect interface {
	Effect

	// Waveform builds the SET payload to send once to light.
	Waveform(caps DeviceCapabilities) protocol.WaveformConfig

	// RunTime is how long the fired waveform runs on the device before it
	// naturally ends (e.g. cycles * period for Pulse), so the conductor
	// can schedule the pre-state restore at the right time.
	RunTime() time.Duration
}

// PowerOffEffect is an optional Effect extension for effects that power the
// device off themselves once their run completes, instead of (or in
// addition to) restoring pre-state (spec.md §4.9 Sunset: "with power_off
// emits one set_power(false) ... after the final frame").
type PowerOffEffect interface {
	Effect

	// PowerOffOnComplete reports whether the conductor should send
	// set_power(false) to every participant after this effect's run ends
	// naturally or is stopped.
	PowerOffOnComplete() bool
}

// frameInterval is 1/fps as a time.Duration.
func frameInterval(fps float64) time.Duration {
	return time.Duration(float64(time.Second) / fps)
}
