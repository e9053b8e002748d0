// Package discovery implements LIFX LAN broadcast discovery and the
// find-by-ip/serial/label helpers spec.md's external interface calls for.
//
// Generalized from github.com/dsymonds/lifx's discovery.go, which opened
// its own ephemeral socket, built a GetService broadcast by hand, and
// returned bare (addr, serial) Device values. This version reuses the
// transport/connio/pool layers and returns fully usable *device.Device
// handles resolved through the shared connection pool.
package discovery

import (
	"context"
	"encoding/binary"
	"net"

	"github.com/sirupsen/logrus"

	"github.com/dsymonds/lifx/connio"
	"github.com/dsymonds/lifx/device"
	"github.com/dsymonds/lifx/lifxerrors"
	"github.com/dsymonds/lifx/pool"
	"github.com/dsymonds/lifx/protocol"
	"github.com/dsymonds/lifx/transport"
)

// Found is one device's announce response, before it is resolved to a
// pooled connection.
type Found struct {
	Addr   *net.UDPAddr
	Serial connio.Serial
}

// Discover broadcasts GetService and collects StateService replies until
// ctx's deadline or cancellation, per spec.md §6: "broadcast discovery on
// 255.255.255.255:56700 with tagged=1, target=zero serial". Deadline expiry
// ends the scan and is not itself an error. Each receive waits only on
// ctx's deadline, so cancelling a ctx that has no deadline does not
// interrupt a pending receive.
func Discover(ctx context.Context, tr *transport.Transport) ([]Found, error) {
	var hdr protocol.Header
	hdr.Tagged = true
	hdr.Source = 0xdeadbeef // distinguishable in packet captures; any non-zero works
	hdr.Type = uint16(protocol.GetService)
	msg := protocol.Encode(hdr, nil)

	if err := tr.Send(msg, transport.BroadcastAddr()); err != nil {
		return nil, err
	}

	var found []Found
	seen := map[connio.Serial]bool{}
	for {
		dg, err := tr.Recv(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break // deadline/cancellation: discovery window closed, not a failure
			}
			return nil, err
		}

		rhdr, err := protocol.Unpack(dg.Payload)
		if err != nil {
			continue
		}
		if protocol.PacketType(rhdr.Type) != protocol.StateService {
			continue
		}
		payload := dg.Payload[protocol.HeaderSize:]
		if len(payload) != 5 {
			continue
		}
		if payload[0] != 1 { // service=UDP only
			continue
		}
		port := binary.LittleEndian.Uint32(payload[1:5])
		if port > 0xffff {
			continue
		}

		serial := connio.Serial(rhdr.TargetSerial())
		if seen[serial] {
			continue
		}
		seen[serial] = true

		found = append(found, Found{
			Addr:   &net.UDPAddr{IP: dg.Peer.IP, Port: int(port)},
			Serial: serial,
		})
	}
	return found, nil
}

// Resolve turns each Found entry into a *device.Device backed by p's
// shared connection pool, so repeated discovery passes reuse live
// connections instead of opening a new socket per device.
func Resolve(ctx context.Context, p *pool.Pool, found []Found) ([]*device.Device, error) {
	devices := make([]*device.Device, 0, len(found))
	for _, f := range found {
		conn, err := p.Get(ctx, f.Serial, f.Addr, nil)
		if err != nil {
			logrus.WithError(err).WithField("serial", f.Serial).Warn("lifx: discovery: failed to open connection")
			continue
		}
		devices = append(devices, device.New(conn))
	}
	return devices, nil
}

// FindBySerial returns the device among devs whose serial matches.
func FindBySerial(devs []*device.Device, serial connio.Serial) (*device.Device, error) {
	for _, d := range devs {
		if d.Serial() == serial {
			return d, nil
		}
	}
	return nil, lifxerrors.DeviceNotFound(serial.String())
}

// FindByIP returns the device among devs whose address matches ip.
func FindByIP(devs []*device.Device, ip net.IP) (*device.Device, error) {
	for _, d := range devs {
		if d.Addr().IP.Equal(ip) {
			return d, nil
		}
	}
	return nil, lifxerrors.DeviceNotFound(ip.String())
}

// FindByLabel queries each device's label (in order, stopping at the first
// match) and returns the one whose label equals label.
func FindByLabel(ctx context.Context, devs []*device.Device, label string) (*device.Device, error) {
	for _, d := range devs {
		got, err := d.GetLabel(ctx)
		if err != nil {
			continue
		}
		if got == label {
			return d, nil
		}
	}
	return nil, lifxerrors.DeviceNotFound(label)
}
