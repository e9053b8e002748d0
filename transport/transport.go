// Package transport implements single-socket bidirectional UDP datagram
// I/O for the LIFX LAN protocol, generalized from the teacher's ad hoc
// per-call udpConn/readOnePacket helpers into a reusable type that can be
// held open for a connection's lifetime.
package transport

import (
	"context"
	"net"
	"time"

	"github.com/dsymonds/lifx/lifxerrors"
)

// StdPort is the well-known LIFX LAN protocol UDP port.
const StdPort = 56700

// maxDatagramSize is large enough for any LIFX LAN packet (largest payload
// is the extended multizone/tile colour arrays, well under 1500 bytes, but
// we leave headroom since UDP doesn't fragment below this on a LAN).
const maxDatagramSize = 4 << 10

// Transport owns one UDP socket for both sending and receiving.
type Transport struct {
	conn *net.UDPConn
}

// Open binds a UDP socket on localPort (0 for ephemeral). Broadcast sending
// is always permitted; Go's net package does not require a socket option
// for datagram broadcast on most platforms, so there is nothing extra to
// set here beyond the listen itself.
func Open(ctx context.Context, localPort int) (*Transport, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: localPort})
	if err != nil {
		return nil, lifxerrors.Network("opening UDP socket: %v", err)
	}
	return &Transport{conn: conn}, nil
}

// LocalAddr reports the transport's bound local address.
func (t *Transport) LocalAddr() *net.UDPAddr {
	return t.conn.LocalAddr().(*net.UDPAddr)
}

// Send writes b to dst.
func (t *Transport) Send(b []byte, dst *net.UDPAddr) error {
	if _, err := t.conn.WriteToUDP(b, dst); err != nil {
		return lifxerrors.Network("sending datagram to %s: %v", dst, err)
	}
	return nil
}

// Datagram is one received UDP packet and its sender.
type Datagram struct {
	Payload []byte
	Peer    *net.UDPAddr
}

// Recv blocks until ctx's deadline (if any) for the next datagram. The
// transport-level peer address is returned but is not validated by this
// package — callers that need to match a reply to a request do so via the
// protocol header's target/sequence fields, not the UDP peer, so that NAT,
// multi-homed hosts, and broadcast reply fan-in all work. A context
// deadline expiry surfaces as lifxerrors.ErrTimeout.
func (t *Transport) Recv(ctx context.Context) (Datagram, error) {
	if d, ok := ctx.Deadline(); ok {
		if err := t.conn.SetReadDeadline(d); err != nil {
			return Datagram{}, lifxerrors.Network("setting read deadline: %v", err)
		}
	} else {
		t.conn.SetReadDeadline(time.Time{})
	}

	var scratch [maxDatagramSize]byte
	n, addr, err := t.conn.ReadFromUDP(scratch[:])
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return Datagram{}, lifxerrors.Timeout("recv: %v", err)
		}
		return Datagram{}, lifxerrors.Network("recv: %v", err)
	}
	payload := make([]byte, n)
	copy(payload, scratch[:n])
	return Datagram{Payload: payload, Peer: addr}, nil
}

// Close releases the underlying socket.
func (t *Transport) Close() error {
	return t.conn.Close()
}

// BroadcastAddr returns the LIFX broadcast destination on the LAN's
// all-ones address at the standard port.
func BroadcastAddr() *net.UDPAddr {
	return &net.UDPAddr{IP: net.IPv4(255, 255, 255, 255), Port: StdPort}
}
