package device

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dsymonds/lifx/connio"
	"github.com/dsymonds/lifx/protocol"
	"github.com/dsymonds/lifx/transport"
)

// fakeDevice is a minimal UDP responder, mirroring connio's test fixture
// one layer up so device-level round trips can be exercised without a real
// bulb.
type fakeDevice struct {
	conn *transport.Transport
	addr *net.UDPAddr
}

func newFakeDevice(t *testing.T) *fakeDevice {
	tr, err := transport.Open(context.Background(), 0)
	require.NoError(t, err)
	return &fakeDevice{conn: tr, addr: tr.LocalAddr()}
}

func (f *fakeDevice) close() { f.conn.Close() }

func (f *fakeDevice) respond(ctx context.Context, handler func(hdr protocol.Header, from *net.UDPAddr)) {
	go func() {
		for {
			dg, err := f.conn.Recv(ctx)
			if err != nil {
				return
			}
			hdr, err := protocol.Unpack(dg.Payload)
			if err != nil {
				continue
			}
			handler(hdr, dg.Peer)
		}
	}()
}

func (f *fakeDevice) send(hdr protocol.Header, payload []byte, to *net.UDPAddr) {
	f.conn.Send(protocol.Encode(hdr, payload), to)
}

func newTestDevice(t *testing.T, dev *fakeDevice) *Device {
	cliTransport, err := transport.Open(context.Background(), 0)
	require.NoError(t, err)
	c := connio.New(cliTransport, dev.addr, connio.Serial{1, 2, 3, 4, 5, 6})
	c.DefaultTimeout = 300 * time.Millisecond
	c.DefaultMaxRetries = 2
	c.IdlePoll = 20 * time.Millisecond
	return New(c)
}

func reply(dev *fakeDevice, hdr protocol.Header, typ protocol.PacketType, payload []byte, from *net.UDPAddr) {
	r := protocol.Header{Source: hdr.Source, Sequence: hdr.Sequence, Type: uint16(typ)}
	r.SetTargetSerial(hdr.TargetSerial())
	dev.send(r, payload, from)
}

func TestGetSetPower(t *testing.T) {
	dev := newFakeDevice(t)
	defer dev.close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	dev.respond(ctx, func(hdr protocol.Header, from *net.UDPAddr) {
		switch protocol.PacketType(hdr.Type) {
		case protocol.GetPower:
			reply(dev, hdr, protocol.StatePower, protocol.EncodeSetPower(0xffff), from)
		case protocol.SetPower:
			reply(dev, hdr, protocol.Acknowledgement, nil, from)
		}
	})

	d := newTestDevice(t, dev)
	defer d.Close()

	level, err := d.GetPower(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint16(0xffff), level)

	require.NoError(t, d.SetPower(context.Background(), true))
}

func TestGetSetColor(t *testing.T) {
	dev := newFakeDevice(t)
	defer dev.close()

	want := protocol.HSBK{Hue: 120, Saturation: 0.5, Brightness: 0.75, Kelvin: 3500}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	dev.respond(ctx, func(hdr protocol.Header, from *net.UDPAddr) {
		switch protocol.PacketType(hdr.Type) {
		case protocol.GetColor:
			b := make([]byte, protocol.HSBKSize+2+2+protocol.LabelSize+8)
			protocol.EncodeHSBK(want, b[0:protocol.HSBKSize])
			reply(dev, hdr, protocol.LightState, b, from)
		case protocol.SetColor:
			reply(dev, hdr, protocol.Acknowledgement, nil, from)
		}
	})

	d := newTestDevice(t, dev)
	defer d.Close()

	got, err := d.GetColor(context.Background())
	require.NoError(t, err)
	require.InDelta(t, want.Hue, got.Hue, 0.01)
	require.InDelta(t, want.Brightness, got.Brightness, 0.01)

	require.NoError(t, d.SetColor(context.Background(), want, 0))
}

func TestQuietOn(t *testing.T) {
	dev := newFakeDevice(t)
	defer dev.close()

	col := protocol.HSBK{Hue: 10, Saturation: 1, Brightness: 1, Kelvin: 2700}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	dev.respond(ctx, func(hdr protocol.Header, from *net.UDPAddr) {
		switch protocol.PacketType(hdr.Type) {
		case protocol.GetColor:
			b := make([]byte, protocol.HSBKSize+2+2+protocol.LabelSize+8)
			protocol.EncodeHSBK(col, b[0:protocol.HSBKSize])
			reply(dev, hdr, protocol.LightState, b, from)
		case protocol.SetPower, protocol.SetColor:
			reply(dev, hdr, protocol.Acknowledgement, nil, from)
		}
	})

	d := newTestDevice(t, dev)
	defer d.Close()

	require.NoError(t, d.QuietOn(context.Background()))
}

func TestGetLabelAllNUL(t *testing.T) {
	dev := newFakeDevice(t)
	defer dev.close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	dev.respond(ctx, func(hdr protocol.Header, from *net.UDPAddr) {
		if protocol.PacketType(hdr.Type) != protocol.GetLabel {
			return
		}
		reply(dev, hdr, protocol.StateLabel, make([]byte, protocol.LabelSize), from)
	})

	d := newTestDevice(t, dev)
	defer d.Close()

	label, err := d.GetLabel(context.Background())
	require.NoError(t, err)
	require.Equal(t, "", label)
}
