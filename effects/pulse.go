package effects

import (
	"time"

	"github.com/dsymonds/lifx/effect"
	"github.com/dsymonds/lifx/protocol"
)

// PulseMode selects the waveform shape Pulse asks firmware to run.
type PulseMode int

const (
	Blink PulseMode = iota
	Strobe
	Breathe
	Ping
)

func (m PulseMode) waveform() protocol.Waveform {
	switch m {
	case Strobe:
		return protocol.SawWaveform
	case Breathe:
		return protocol.SineWaveform
	case Ping:
		return protocol.PulseWaveform
	default: // Blink
		return protocol.PulseWaveform
	}
}

// Pulse asks the device firmware to perform a blink/strobe/breathe/ping
// via its native waveform packet: fire once with a cycle count, no
// per-frame work (spec.md §4.9 Pulse).
type Pulse struct {
	common

	Mode   PulseMode
	Color  protocol.HSBK
	Period time.Duration
	Cycles float32
}

// NewPulse returns a Pulse effect targeting color, running cycles
// repetitions of period each.
func NewPulse(mode PulseMode, color protocol.HSBK, period time.Duration, cycles float32) *Pulse {
	return &Pulse{
		common: common{name: "pulse", powerOn: true, restoreDone: true, requireColor: true},
		Mode:   mode,
		Color:  color,
		Period: period,
		Cycles: cycles,
	}
}

func (p *Pulse) InheritPrestate(other effect.Effect) bool {
	return sameClassInherit(p.Name(), other)
}

// Waveform builds the SetWaveform payload fired once at effect start.
func (p *Pulse) Waveform(effect.DeviceCapabilities) protocol.WaveformConfig {
	return protocol.WaveformConfig{
		Waveform:  p.Mode.waveform(),
		Transient: true,
		Color:     p.Color,
		Period:    p.Period,
		Cycles:    p.Cycles,
	}
}

// RunTime is cycles * period, the total time firmware spends running the
// waveform before the device naturally returns to its pre-effect colour.
func (p *Pulse) RunTime() time.Duration {
	return time.Duration(float64(p.Period) * float64(p.Cycles))
}

var _ effect.WaveformEffect = (*Pulse)(nil)
