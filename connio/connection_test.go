package connio

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dsymonds/lifx/lifxerrors"
	"github.com/dsymonds/lifx/protocol"
	"github.com/dsymonds/lifx/transport"
)

// fakeDevice is a minimal UDP responder used to drive Connection through
// its request/ack/timeout paths without a real LIFX bulb.
type fakeDevice struct {
	t    *testing.T
	conn *transport.Transport
	addr *net.UDPAddr
}

func newFakeDevice(t *testing.T) *fakeDevice {
	tr, err := transport.Open(context.Background(), 0)
	require.NoError(t, err)
	return &fakeDevice{t: t, conn: tr, addr: tr.LocalAddr()}
}

func (f *fakeDevice) close() { f.conn.Close() }

// respond runs handler against every inbound datagram until ctx is done.
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

func newTestConnection(t *testing.T, dev *fakeDevice) *Connection {
	cliTransport, err := transport.Open(context.Background(), 0)
	require.NoError(t, err)
	c := New(cliTransport, dev.addr, Serial{1, 2, 3, 4, 5, 6})
	c.DefaultTimeout = 300 * time.Millisecond
	c.DefaultMaxRetries = 2
	c.IdlePoll = 20 * time.Millisecond
	return c
}

func TestRequestAckHappyPath(t *testing.T) {
	dev := newFakeDevice(t)
	defer dev.close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	dev.respond(ctx, func(hdr protocol.Header, from *net.UDPAddr) {
		if protocol.PacketType(hdr.Type) != protocol.SetPower {
			return
		}
		reply := protocol.Header{Source: hdr.Source, Sequence: hdr.Sequence, Type: uint16(protocol.Acknowledgement)}
		reply.SetTargetSerial(hdr.TargetSerial())
		dev.send(reply, nil, from)
	})

	c := newTestConnection(t, dev)
	defer c.Close()

	err := c.RequestAck(context.Background(), protocol.SetPower, protocol.EncodeSetPower(65535), Options{})
	require.NoError(t, err)
}

func TestRequestStreamHappyPath(t *testing.T) {
	dev := newFakeDevice(t)
	defer dev.close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	dev.respond(ctx, func(hdr protocol.Header, from *net.UDPAddr) {
		if protocol.PacketType(hdr.Type) != protocol.GetPower {
			return
		}
		reply := protocol.Header{Source: hdr.Source, Sequence: hdr.Sequence, Type: uint16(protocol.StatePower)}
		reply.SetTargetSerial(hdr.TargetSerial())
		dev.send(reply, protocol.EncodeSetPower(65535), from)
	})

	c := newTestConnection(t, dev)
	defer c.Close()

	expect := protocol.StatePower
	resps, err := c.RequestStream(context.Background(), protocol.GetPower, nil, Options{ExpectType: &expect})
	require.NoError(t, err)
	require.Len(t, resps, 1)
	sp, ok := resps[0].Packet.(protocol.StatePowerPacket)
	require.True(t, ok)
	require.Equal(t, uint16(65535), sp.Level)
}

func TestRequestTimeoutNoPartialResult(t *testing.T) {
	dev := newFakeDevice(t) // never replies
	defer dev.close()

	c := newTestConnection(t, dev)
	c.DefaultTimeout = 150 * time.Millisecond
	c.DefaultMaxRetries = 2
	defer c.Close()

	resps, err := c.RequestStream(context.Background(), protocol.GetPower, nil, Options{})
	require.Error(t, err)
	require.True(t, errors.Is(err, lifxerrors.ErrTimeout))
	require.Nil(t, resps)
}

func TestWrongSequenceDropped(t *testing.T) {
	dev := newFakeDevice(t)
	defer dev.close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	dev.respond(ctx, func(hdr protocol.Header, from *net.UDPAddr) {
		if protocol.PacketType(hdr.Type) != protocol.GetPower {
			return
		}
		reply := protocol.Header{Source: hdr.Source, Sequence: hdr.Sequence + 1, Type: uint16(protocol.StatePower)}
		reply.SetTargetSerial(hdr.TargetSerial())
		dev.send(reply, protocol.EncodeSetPower(1), from)
	})

	c := newTestConnection(t, dev)
	c.DefaultTimeout = 150 * time.Millisecond
	c.DefaultMaxRetries = 1
	defer c.Close()

	_, err := c.RequestStream(context.Background(), protocol.GetPower, nil, Options{})
	require.Error(t, err)
	require.True(t, errors.Is(err, lifxerrors.ErrTimeout))
}

func TestStateUnhandled(t *testing.T) {
	dev := newFakeDevice(t)
	defer dev.close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	dev.respond(ctx, func(hdr protocol.Header, from *net.UDPAddr) {
		reply := protocol.Header{Source: hdr.Source, Sequence: hdr.Sequence, Type: uint16(protocol.StateUnhandled)}
		reply.SetTargetSerial(hdr.TargetSerial())
		b := make([]byte, 2)
		dev.send(reply, b, from)
	})

	c := newTestConnection(t, dev)
	defer c.Close()

	_, err := c.RequestStream(context.Background(), protocol.GetColor, nil, Options{})
	require.Error(t, err)
	require.True(t, errors.Is(err, lifxerrors.ErrUnsupportedCommand))
}

func TestSerialLearnedFromReply(t *testing.T) {
	dev := newFakeDevice(t)
	defer dev.close()

	real := Serial{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	dev.respond(ctx, func(hdr protocol.Header, from *net.UDPAddr) {
		if protocol.PacketType(hdr.Type) != protocol.GetPower {
			return
		}
		reply := protocol.Header{Source: hdr.Source, Sequence: hdr.Sequence, Type: uint16(protocol.StatePower)}
		reply.SetTargetSerial([6]byte(real))
		dev.send(reply, protocol.EncodeSetPower(0), from)
	})

	cliTransport, err := transport.Open(context.Background(), 0)
	require.NoError(t, err)
	c := New(cliTransport, dev.addr, BroadcastSerial)
	c.IdlePoll = 20 * time.Millisecond
	defer c.Close()

	_, err = c.RequestStream(context.Background(), protocol.GetPower, nil, Options{})
	require.NoError(t, err)
	require.Equal(t, real, c.Serial())
}
