// Package device implements the high-level per-device API: typed GET/SET
// methods that build and decode protocol packets over a pooled Connection,
// capability-record determination, and the state-manager operations
// (CaptureState/RestoreState/QuietOn) spec.md's Device subtypes design
// calls for.
//
// Generalized from github.com/dsymonds/lifx's Device (msg.go, info.go,
// color.go), which hard-coded message types as package-level constants and
// exposed no capability dispatch; here a single Device value carries a
// lifxproducts.ProductCapabilities record and dispatches high-level calls
// on its capability bits rather than on a class hierarchy (spec.md §9
// "Device subtypes").
package device

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dsymonds/lifx/connio"
	"github.com/dsymonds/lifx/lifxerrors"
	"github.com/dsymonds/lifx/lifxproducts"
	"github.com/dsymonds/lifx/protocol"
)

// Device is one LIFX device reachable through a per-device Connection. The
// embedded *connio.Connection supplies Serial(), Addr(), Close(), and the
// Tracef/Log fields the teacher's cmd/ping demo sets directly
// (dev.Tracef = func(...) {...}).
type Device struct {
	*connio.Connection

	mu           sync.Mutex
	vendor       uint32
	product      uint32
	firmware     lifxproducts.HostFirmware
	capabilities lifxproducts.ProductCapabilities
	determined   bool

	// Matrix-only geometry, populated lazily by tileGeometry.
	tiles []protocol.TileDevice
}

// New wraps conn in a Device. Capabilities are not determined until
// DetermineProduct (or a method that needs them) is called.
func New(conn *connio.Connection) *Device {
	return &Device{Connection: conn}
}

// GetVersion returns the device's vendor and product IDs.
func (d *Device) GetVersion(ctx context.Context) (vendor, product uint32, err error) {
	pkt, err := d.getOne(ctx, protocol.GetVersion, nil)
	if err != nil {
		return 0, 0, err
	}
	v, ok := pkt.(protocol.StateVersionPacket)
	if !ok {
		return 0, 0, lifxerrors.Protocol("GetVersion: unexpected packet type %T", pkt)
	}
	return v.Vendor, v.Product, nil
}

// HostFirmware reports a device's firmware version, completing the
// teacher's dangling GetHostFirmware/HostFirmware reference.
type HostFirmware = lifxproducts.HostFirmware

// GetHostFirmware returns the device's host firmware version.
func (d *Device) GetHostFirmware(ctx context.Context) (HostFirmware, error) {
	pkt, err := d.getOne(ctx, protocol.GetHostFirmware, nil)
	if err != nil {
		return HostFirmware{}, err
	}
	hf, ok := pkt.(protocol.StateHostFirmwarePacket)
	if !ok {
		return HostFirmware{}, lifxerrors.Protocol("GetHostFirmware: unexpected packet type %T", pkt)
	}
	return HostFirmware{Major: hf.Major, Minor: hf.Minor, Build: hf.Build}, nil
}

// DetermineProduct queries the device's version and firmware, resolves its
// product record against file, and caches the derived capability record on
// the Device for subsequent capability-dispatched calls.
func (d *Device) DetermineProduct(ctx context.Context, file []lifxproducts.VendorProducts) (lifxproducts.Product, error) {
	vendor, product, err := d.GetVersion(ctx)
	if err != nil {
		return lifxproducts.Product{}, fmt.Errorf("determining product: %w", err)
	}
	firmware, err := d.GetHostFirmware(ctx)
	if err != nil {
		return lifxproducts.Product{}, fmt.Errorf("determining product: %w", err)
	}
	p, err := lifxproducts.DetermineProduct(file, vendor, product, firmware)
	if err != nil {
		return lifxproducts.Product{}, err
	}

	d.mu.Lock()
	d.vendor, d.product, d.firmware = vendor, product, firmware
	d.capabilities = p.Features
	d.determined = true
	d.mu.Unlock()

	return p, nil
}

// Capabilities returns the capability record cached by DetermineProduct, or
// the zero value if it has not been called yet.
func (d *Device) Capabilities() lifxproducts.ProductCapabilities {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.capabilities
}

// SetCapabilities overrides the cached capability record directly, for
// callers that already know a device's product (e.g. from a prior
// Discover pass) and want to skip DetermineProduct's round trips.
func (d *Device) SetCapabilities(c lifxproducts.ProductCapabilities) {
	d.mu.Lock()
	d.capabilities = c
	d.determined = true
	d.mu.Unlock()
}

// GetPower returns the device's generic power level (0 = off, 65535 = on).
func (d *Device) GetPower(ctx context.Context) (uint16, error) {
	pkt, err := d.getOne(ctx, protocol.GetPower, nil)
	if err != nil {
		return 0, err
	}
	p, ok := pkt.(protocol.StatePowerPacket)
	if !ok {
		return 0, lifxerrors.Protocol("GetPower: unexpected packet type %T", pkt)
	}
	return p.Level, nil
}

// SetPower sets the device's generic power level on (true) or off (false).
func (d *Device) SetPower(ctx context.Context, on bool) error {
	level := uint16(0)
	if on {
		level = 0xffff
	}
	return d.RequestAck(ctx, protocol.SetPower, protocol.EncodeSetPower(level), connio.Options{})
}

// GetLightPower returns the Light subtype's power level.
func (d *Device) GetLightPower(ctx context.Context) (uint16, error) {
	pkt, err := d.getOne(ctx, protocol.GetLightPower, nil)
	if err != nil {
		return 0, err
	}
	p, ok := pkt.(protocol.StateLightPowerPacket)
	if !ok {
		return 0, lifxerrors.Protocol("GetLightPower: unexpected packet type %T", pkt)
	}
	return p.Level, nil
}

// SetLightPower sets the Light subtype's power level, transitioning over
// duration.
func (d *Device) SetLightPower(ctx context.Context, level uint16, duration time.Duration) error {
	return d.RequestAck(ctx, protocol.SetLightPower, protocol.EncodeSetLightPower(level, duration), connio.Options{})
}

// GetLabel returns the device's label, trimmed of trailing NULs (an
// all-NUL label decodes to the empty string; spec.md §9 Open Questions).
func (d *Device) GetLabel(ctx context.Context) (string, error) {
	pkt, err := d.getOne(ctx, protocol.GetLabel, nil)
	if err != nil {
		return "", err
	}
	l, ok := pkt.(protocol.StateLabelPacket)
	if !ok {
		return "", lifxerrors.Protocol("GetLabel: unexpected packet type %T", pkt)
	}
	return l.Label, nil
}

// SetLabel sets the device's label.
func (d *Device) SetLabel(ctx context.Context, label string) error {
	return d.RequestAck(ctx, protocol.SetLabel, protocol.EncodeSetLabel(label), connio.Options{})
}

// GetColor returns the device's current colour. The LightState response
// also carries power and label; GetColor does not return them.
func (d *Device) GetColor(ctx context.Context) (protocol.HSBK, error) {
	pkt, err := d.getOne(ctx, protocol.GetColor, nil)
	if err != nil {
		return protocol.HSBK{}, err
	}
	ls, ok := pkt.(protocol.LightStatePacket)
	if !ok {
		return protocol.HSBK{}, lifxerrors.Protocol("GetColor: unexpected packet type %T", pkt)
	}
	return ls.Color, nil
}

// SetColor sets the device's colour, transitioning over duration.
func (d *Device) SetColor(ctx context.Context, c protocol.HSBK, duration time.Duration) error {
	return d.RequestAck(ctx, protocol.SetColor, protocol.EncodeSetColor(c, duration), connio.Options{})
}

// SetWaveform asks firmware to run a waveform (blink/pulse/breathe/etc)
// natively; see spec.md §4.9 Pulse.
func (d *Device) SetWaveform(ctx context.Context, cfg protocol.WaveformConfig) error {
	return d.RequestAck(ctx, protocol.SetWaveform, protocol.EncodeSetWaveform(cfg), connio.Options{})
}

// GetInfrared returns the device's infrared brightness (0-65535).
func (d *Device) GetInfrared(ctx context.Context) (uint16, error) {
	pkt, err := d.getOne(ctx, protocol.GetInfrared, nil)
	if err != nil {
		return 0, err
	}
	p, ok := pkt.(protocol.StateInfraredPacket)
	if !ok {
		return 0, lifxerrors.Protocol("GetInfrared: unexpected packet type %T", pkt)
	}
	return p.Brightness, nil
}

// SetInfrared sets the device's infrared brightness.
func (d *Device) SetInfrared(ctx context.Context, brightness uint16) error {
	return d.RequestAck(ctx, protocol.SetInfrared, protocol.EncodeSetInfrared(brightness), connio.Options{})
}

// QuietOn switches the device on without a visible colour jump: it reads
// the current colour, sets power on, then immediately re-asserts that
// colour with zero transition time before any visible change can occur.
// Kept exactly as the teacher's cmd/ping demo uses it
// (playDev.QuietOn(ctx) before a deliberate colour transition).
func (d *Device) QuietOn(ctx context.Context) error {
	col, err := d.GetColor(ctx)
	if err != nil {
		return fmt.Errorf("QuietOn: %w", err)
	}
	if err := d.SetPower(ctx, true); err != nil {
		return fmt.Errorf("QuietOn: %w", err)
	}
	if err := d.SetColor(ctx, col, 0); err != nil {
		return fmt.Errorf("QuietOn: %w", err)
	}
	return nil
}

// getOne sends reqType and returns the single decoded response packet,
// using protocol.ExpectedResponse to validate the reply type.
func (d *Device) getOne(ctx context.Context, reqType protocol.PacketType, payload []byte) (protocol.Packet, error) {
	opt := connio.Options{}
	if expect, ok := protocol.ExpectedResponse(reqType); ok {
		opt.ExpectType = &expect
	}
	resps, err := d.RequestStream(ctx, reqType, payload, opt)
	if err != nil {
		return nil, err
	}
	if len(resps) == 0 {
		return nil, lifxerrors.Protocol("no response to packet type %d", reqType)
	}
	if resps[0].Packet == nil {
		return nil, lifxerrors.Protocol("unregistered response packet type for request %d", reqType)
	}
	return resps[0].Packet, nil
}
