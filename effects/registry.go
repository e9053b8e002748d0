package effects

import "github.com/dsymonds/lifx/effect"

// SupportLevel classifies how well an effect suits a device class (spec.md
// §6 "Effect registry: enumerate effects and their per-device-class
// support level").
type SupportLevel int

const (
	NotSupported SupportLevel = iota
	Compatible
	Recommended
)

func (s SupportLevel) String() string {
	switch s {
	case Recommended:
		return "RECOMMENDED"
	case Compatible:
		return "COMPATIBLE"
	default:
		return "NOT_SUPPORTED"
	}
}

// catalogEntry pairs an effect's stable name with its per-device-class
// support level, mirroring original_source's EffectInfo.device_support
// table (effects/registry.py _build_default_registry) rather than a
// single recommended-class-plus-compatible-set shape, since several
// effects are RECOMMENDED for more than one class (e.g. pulse, flame).
type catalogEntry struct {
	name    string
	support map[DeviceClass]SupportLevel
}

// DeviceClass is a coarse device shape used only for registry reporting,
// distinct from effect.DeviceCapabilities (which is the exact bit-level
// predicate input effects compatibility checks against).
type DeviceClass int

const (
	ClassSingle DeviceClass = iota
	ClassMultizone
	ClassMatrix
)

var catalog = []catalogEntry{
	{name: "pulse", support: map[DeviceClass]SupportLevel{
		ClassSingle: Recommended, ClassMultizone: Recommended, ClassMatrix: Recommended,
	}},
	{name: "colorloop", support: map[DeviceClass]SupportLevel{
		ClassSingle: Recommended, ClassMultizone: Compatible, ClassMatrix: Compatible,
	}},
	{name: "rainbow", support: map[DeviceClass]SupportLevel{
		ClassSingle: Compatible, ClassMultizone: Recommended, ClassMatrix: Recommended,
	}},
	{name: "flame", support: map[DeviceClass]SupportLevel{
		ClassSingle: Recommended, ClassMultizone: Recommended, ClassMatrix: Recommended,
	}},
	{name: "aurora", support: map[DeviceClass]SupportLevel{
		ClassSingle: Compatible, ClassMultizone: Recommended, ClassMatrix: Recommended,
	}},
	{name: "progress", support: map[DeviceClass]SupportLevel{
		ClassMultizone: Recommended,
	}},
	{name: "sunrise", support: map[DeviceClass]SupportLevel{
		ClassMatrix: Recommended,
	}},
	{name: "sunset", support: map[DeviceClass]SupportLevel{
		ClassMatrix: Recommended,
	}},
}

// Names lists every registered effect's stable identifier.
func Names() []string {
	out := make([]string, len(catalog))
	for i, e := range catalog {
		out[i] = e.name
	}
	return out
}

// SupportFor reports name's support level for class.
func SupportFor(name string, class DeviceClass) SupportLevel {
	for _, e := range catalog {
		if e.name != name {
			continue
		}
		return e.support[class]
	}
	return NotSupported
}

// ClassOf derives a DeviceClass from an effect.DeviceCapabilities record,
// preferring the most capable dimension present.
func ClassOf(caps effect.DeviceCapabilities) DeviceClass {
	switch {
	case caps.Matrix:
		return ClassMatrix
	case caps.Multizone:
		return ClassMultizone
	default:
		return ClassSingle
	}
}
