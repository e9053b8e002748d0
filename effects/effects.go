// Package effects is the concrete effect catalog: Pulse, Colorloop,
// Rainbow, Flame, Aurora, Progress, Sunrise, and Sunset, each implementing
// package effect's common contract (spec.md §4.9), plus a registry
// reporting each effect's per-device-class support level.
//
// There is no teacher equivalent; these are new relative to the teacher,
// grounded directly on spec.md §4.9's per-effect algorithm descriptions.
package effects

import (
	"math"

	"github.com/dsymonds/lifx/effect"
	"github.com/dsymonds/lifx/protocol"
)

// wrapHue normalizes a hue value into [0, 360).
func wrapHue(h float64) float64 {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	return h
}

// solidFrame returns a frame of n identical pixels.
func solidFrame(n int, c protocol.HSBK) []protocol.HSBK {
	out := make([]protocol.HSBK, n)
	for i := range out {
		out[i] = c
	}
	return out
}

// common holds the fields every effect shares so each concrete effect can
// embed it rather than repeat PowerOn/RestoreOnComplete/IsCompatible
// boilerplate (spec.md §4.9: "every effect declares name, power_on,
// restore_on_complete, is_compatible, inherit_prestate,
// from_poweroff_hsbk").
type common struct {
	name        string
	powerOn     bool
	restoreDone bool

	requireColor     bool
	requireMultizone bool
	requireMatrix    bool
}

func (c common) Name() string           { return c.name }
func (c common) PowerOn() bool           { return c.powerOn }
func (c common) RestoreOnComplete() bool { return c.restoreDone }

// IsCompatible checks the capability bits the effect declares it needs
// (spec.md §4.9: "reads device capability bits: has_color, has_multizone,
// has_matrix").
func (c common) IsCompatible(caps effect.DeviceCapabilities) bool {
	if c.requireColor && !caps.Color {
		return false
	}
	if c.requireMultizone && !caps.Multizone {
		return false
	}
	if c.requireMatrix && !caps.Matrix {
		return false
	}
	return true
}

// FromPoweroffHSBK defaults to a dim warm white starting point; effects
// that need a different starting colour (e.g. sunrise starting from
// night-navy) override this by defining their own method of the same name
// on the embedding type, which shadows this one.
func (c common) FromPoweroffHSBK(effect.DeviceCapabilities) protocol.HSBK {
	return protocol.HSBK{Hue: 30, Saturation: 0.5, Brightness: 0.01, Kelvin: 2700}
}

// sameClassInherit is the default InheritPrestate: true iff other is the
// same concrete effect kind (spec.md §4.9 default: "same class of
// effect"). Concrete types call this with their own reflect-free class
// tag (the Name()) since LIFX effect classes are singletons per name.
func sameClassInherit(name string, other effect.Effect) bool {
	return other != nil && other.Name() == name
}
