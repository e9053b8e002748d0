package discovery

import (
	"context"
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dsymonds/lifx/connio"
	"github.com/dsymonds/lifx/pool"
	"github.com/dsymonds/lifx/protocol"
	"github.com/dsymonds/lifx/transport"
)

// fakeBulb answers a GetService broadcast with one StateService reply.
type fakeBulb struct {
	conn   *transport.Transport
	serial connio.Serial
	port   uint32
}

func newFakeBulb(t *testing.T, serial connio.Serial, port uint32) *fakeBulb {
	tr, err := transport.Open(context.Background(), 0)
	require.NoError(t, err)
	return &fakeBulb{conn: tr, serial: serial, port: port}
}

func (f *fakeBulb) close() { f.conn.Close() }

func (f *fakeBulb) serve(ctx context.Context) {
	go func() {
		for {
			dg, err := f.conn.Recv(ctx)
			if err != nil {
				return
			}
			hdr, err := protocol.Unpack(dg.Payload)
			if err != nil || protocol.PacketType(hdr.Type) != protocol.GetService {
				continue
			}
			reply := protocol.Header{Source: hdr.Source, Type: uint16(protocol.StateService)}
			reply.SetTargetSerial(f.serial)
			payload := make([]byte, 5)
			payload[0] = 1
			binary.LittleEndian.PutUint32(payload[1:5], f.port)
			f.conn.Send(protocol.Encode(reply, payload), dg.Peer)
		}
	}()
}

// TestStateServiceReplyHeader checks, over a loopback UDP pair, that the
// fake bulb's reply to a unicast GetService unpacks as a StateService
// header carrying the bulb's serial. It does not call Discover, which
// always sends to the real 255.255.255.255 broadcast address that sandboxed
// test environments may not route.
func TestStateServiceReplyHeader(t *testing.T) {
	bulb := newFakeBulb(t, connio.Serial{9, 9, 9, 9, 9, 9}, 56700)
	defer bulb.close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bulb.serve(ctx)

	client, err := transport.Open(context.Background(), 0)
	require.NoError(t, err)
	defer client.Close()

	var hdr protocol.Header
	hdr.Type = uint16(protocol.GetService)
	require.NoError(t, client.Send(protocol.Encode(hdr, nil), bulb.conn.LocalAddr()))

	recvCtx, recvCancel := context.WithTimeout(context.Background(), time.Second)
	defer recvCancel()
	dg, err := client.Recv(recvCtx)
	require.NoError(t, err)

	rhdr, err := protocol.Unpack(dg.Payload)
	require.NoError(t, err)
	require.Equal(t, protocol.StateService, protocol.PacketType(rhdr.Type))
	require.Equal(t, bulb.serial, connio.Serial(rhdr.TargetSerial()))
}

func TestFindBySerialAndIP(t *testing.T) {
	p := pool.New(4)
	defer p.Close()

	dev := newFakeDevice(t)
	defer dev.close()

	serial := connio.Serial{1, 2, 3, 4, 5, 6}
	found := []Found{{Addr: dev.addr, Serial: serial}}

	devs, err := Resolve(context.Background(), p, found)
	require.NoError(t, err)
	require.Len(t, devs, 1)

	got, err := FindBySerial(devs, serial)
	require.NoError(t, err)
	require.Equal(t, serial, got.Serial())

	got, err = FindByIP(devs, dev.addr.IP)
	require.NoError(t, err)
	require.Equal(t, serial, got.Serial())

	_, err = FindBySerial(devs, connio.Serial{9, 9, 9, 9, 9, 9})
	require.Error(t, err)
}

// fakeDevice is a trivial UDP endpoint standing in for a resolvable peer;
// Resolve only needs an address to open a pooled connection against, it
// does not send traffic itself.
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
