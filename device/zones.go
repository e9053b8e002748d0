package device

import (
	"context"
	"time"

	"github.com/dsymonds/lifx/connio"
	"github.com/dsymonds/lifx/lifxerrors"
	"github.com/dsymonds/lifx/protocol"
)

// GetZoneColors returns every zone's colour on a multizone device, using
// the extended-multizone path (spec.md §4.5 Animator, §4.1 wire codec) when
// the device's capability record reports ExtendedMultizone, falling back to
// the legacy per-8-zone StateMultiZone path otherwise.
func (d *Device) GetZoneColors(ctx context.Context) ([]protocol.HSBK, error) {
	if d.Capabilities().ExtendedMultizone != nil && *d.Capabilities().ExtendedMultizone {
		return d.getExtendedColorZones(ctx)
	}
	return d.getLegacyColorZones(ctx)
}

// NumZones reports how many zones the device reports on its strip.
func (d *Device) NumZones(ctx context.Context) (int, error) {
	zones, err := d.GetZoneColors(ctx)
	if err != nil {
		return 0, err
	}
	return len(zones), nil
}

func (d *Device) getExtendedColorZones(ctx context.Context) ([]protocol.HSBK, error) {
	pkt, err := d.getOne(ctx, protocol.GetExtendedColorZones, nil)
	if err != nil {
		return nil, err
	}
	sz, ok := pkt.(protocol.StateExtendedColorZonesPacket)
	if !ok {
		return nil, lifxerrors.Protocol("GetExtendedColorZones: unexpected packet type %T", pkt)
	}
	if sz.ZoneIndex != 0 || sz.ZonesCount != sz.ColorsCount {
		return nil, lifxerrors.Protocol("partial StateExtendedColorZones unsupported (index=%d zones=%d colors=%d)",
			sz.ZoneIndex, sz.ZonesCount, sz.ColorsCount)
	}
	return sz.Colors, nil
}

// getLegacyColorZones collects every StateMultiZone packet from a
// GetColorZones(0,255) request stream (spec.md §4.3's multi-response
// collection: the attempt's deadline, not a count, bounds how many packets
// arrive) and assembles them into one zone-indexed colour slice.
func (d *Device) getLegacyColorZones(ctx context.Context) ([]protocol.HSBK, error) {
	expect := protocol.StateMultiZone
	resps, err := d.RequestStream(ctx, protocol.GetColorZones, legacyGetColorZonesPayload(0, 255), connio.Options{ExpectType: &expect})
	if err != nil {
		return nil, err
	}

	var total int
	zones := map[int]protocol.HSBK{}
	for _, r := range resps {
		smz, ok := r.Packet.(protocol.StateMultiZonePacket)
		if !ok {
			continue
		}
		total = smz.ZonesCount
		for i, c := range smz.Colors {
			zones[smz.ZoneIndex+i] = c
		}
	}
	out := make([]protocol.HSBK, total)
	for i := range out {
		out[i] = zones[i]
	}
	return out, nil
}

func legacyGetColorZonesPayload(start, end uint8) []byte {
	return []byte{start, end}
}

// SetZoneColors sets every zone's colour on a multizone device: in one
// SetExtendedColorZones request when the extended path is available,
// otherwise through the legacy per-range SetColorZones path (one request
// per contiguous run of identical colour, to minimize packet count).
func (d *Device) SetZoneColors(ctx context.Context, colors []protocol.HSBK, duration time.Duration) error {
	if d.Capabilities().ExtendedMultizone != nil && *d.Capabilities().ExtendedMultizone {
		return d.SetExtendedColorZones(ctx, duration, colors)
	}
	return d.setLegacyColorZones(ctx, colors, duration)
}

// SetExtendedColorZones sets the first len(zones) zones (starting at zone
// index 0) in a single packet.
func (d *Device) SetExtendedColorZones(ctx context.Context, duration time.Duration, zones []protocol.HSBK) error {
	payload, err := protocol.EncodeSetExtendedColorZones(duration, protocol.Apply, 0, zones)
	if err != nil {
		return err
	}
	return d.RequestAck(ctx, protocol.SetExtendedColorZones, payload, connio.Options{})
}

func (d *Device) setLegacyColorZones(ctx context.Context, colors []protocol.HSBK, duration time.Duration) error {
	start := 0
	for start < len(colors) {
		end := start
		for end+1 < len(colors) && colors[end+1] == colors[start] {
			end++
		}
		payload := protocol.EncodeSetColorZones(uint8(start), uint8(end), colors[start], duration, protocol.Apply)
		if err := d.RequestAck(ctx, protocol.SetColorZones, payload, connio.Options{}); err != nil {
			return err
		}
		start = end + 1
	}
	return nil
}
