// Package connio implements per-device UDP connections: serialized
// request/ack streams, retry with exponential backoff and full jitter, and
// sequence-based response demultiplexing.
//
// Generalized from the teacher's oneRPC/query/set/retry
// (github.com/dsymonds/lifx's msg.go), which opened a fresh ephemeral
// socket per call and matched only a single response. This version holds
// one socket open for the connection's life and collects multi-response
// GET commands (e.g. extended zone reads).
package connio

import (
	"context"
	"math/rand"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dsymonds/lifx/lifxerrors"
	"github.com/dsymonds/lifx/protocol"
	"github.com/dsymonds/lifx/transport"
)

// Default retry parameters, used when a request's Options leaves a field
// at its zero value.
const (
	DefaultTimeout    = 2 * time.Second
	DefaultMaxRetries = 2
	DefaultIdlePoll   = 100 * time.Millisecond
)

// TraceFunc matches the teacher's dangling Device.Tracef hook
// (github.com/dsymonds/lifx's cmd/ping/main.go sets such a field on Device,
// but it was never declared in the retrieved snapshot; this completes it).
type TraceFunc func(ctx context.Context, format string, args ...any)

// Response is one (header, payload) pair yielded during a request stream.
// Packet is the registry-decoded payload, or nil if the type isn't
// registered (callers that only need raw bytes can ignore it).
type Response struct {
	Header  protocol.Header
	Payload []byte
	Packet  protocol.Packet
}

// Options configures a single request's retry envelope. A zero Timeout
// falls back to the Connection's DefaultTimeout.
type Options struct {
	Timeout time.Duration
	// MaxRetries overrides the connection's DefaultMaxRetries when non-nil.
	// nil means "use the default"; a pointer to 0 requests a single
	// attempt with no retries, which a bare int zero value couldn't
	// distinguish from "unset".
	MaxRetries *int
	// ExpectType, if set, is checked against every matching-sequence
	// response; a mismatch fails the request with ErrProtocol.
	ExpectType *protocol.PacketType
}

// Connection owns all UDP traffic to one device: a persistent socket, a
// monotonic sequence counter, and a serialization guard that ensures only
// one request stream is in flight at a time (see package doc and spec
// rationale: interleaved retries on a shared socket can't be demuxed by
// sequence alone without it).
type Connection struct {
	transport *transport.Transport
	addr      *net.UDPAddr
	source    uint32

	seq uint32 // atomic; truncated to 8 bits per use

	mu     sync.Mutex // serialization guard: one active request stream at a time
	closed bool

	serialMu sync.Mutex
	serial   Serial

	DefaultTimeout    time.Duration
	DefaultMaxRetries int
	IdlePoll          time.Duration

	Tracef TraceFunc
	Log    *logrus.Logger
}

// New creates a Connection to addr, initially identified by serial (which
// may be BroadcastSerial if not yet known — see maybeLearnSerial).
func New(t *transport.Transport, addr *net.UDPAddr, serial Serial) *Connection {
	return &Connection{
		transport:         t,
		addr:              addr,
		source:            rand.Uint32() | 1, // non-zero
		serial:            serial,
		DefaultTimeout:    DefaultTimeout,
		DefaultMaxRetries: DefaultMaxRetries,
		IdlePoll:          DefaultIdlePoll,
		Tracef:            func(context.Context, string, ...any) {},
		Log:               logrus.StandardLogger(),
	}
}

// Serial returns the connection's current device serial, which may have
// been learned from a reply since the connection was opened.
func (c *Connection) Serial() Serial {
	c.serialMu.Lock()
	defer c.serialMu.Unlock()
	return c.serial
}

// Addr returns the UDP destination this connection sends to.
func (c *Connection) Addr() *net.UDPAddr {
	return c.addr
}

// Close releases the underlying transport. A Connection must not be used
// after Close.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.transport.Close()
}

func (c *Connection) nextSequence() uint8 {
	return uint8(atomic.AddUint32(&c.seq, 1))
}

func (c *Connection) buildHeader(reqType protocol.PacketType, seq uint8, resRequired, ackRequired bool) protocol.Header {
	serial := c.Serial()
	var hdr protocol.Header
	hdr.Source = c.source
	hdr.SetTargetSerial(serial)
	hdr.Tagged = serial.IsBroadcast()
	hdr.ResRequired = resRequired
	hdr.AckRequired = ackRequired
	hdr.Sequence = seq
	hdr.Type = uint16(reqType)
	return hdr
}

// maybeLearnSerial implements spec's "unknown serial learning": if the
// connection was opened with the broadcast placeholder and a reply's
// target carries a concrete serial, adopt it — once, only while the
// placeholder is still in place.
func (c *Connection) maybeLearnSerial(hdr protocol.Header) {
	replySerial := Serial(hdr.TargetSerial())
	if replySerial.IsBroadcast() {
		return
	}
	c.serialMu.Lock()
	defer c.serialMu.Unlock()
	if c.serial.IsBroadcast() {
		c.serial = replySerial
	}
}

func (c *Connection) resolveOptions(opt Options) (timeout time.Duration, maxRetries int) {
	timeout = opt.Timeout
	if timeout <= 0 {
		timeout = c.DefaultTimeout
	}
	if opt.MaxRetries != nil {
		maxRetries = *opt.MaxRetries
	} else {
		maxRetries = c.DefaultMaxRetries
	}
	return
}

// RequestStream implements the GET contract (spec §4.3): send with
// res_required, collect every response matching our sequence until the
// attempt's deadline, retrying with full-jitter backoff on a silent
// attempt.
func (c *Connection) RequestStream(ctx context.Context, reqType protocol.PacketType, payload []byte, opt Options) ([]Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	timeout, maxRetries := c.resolveOptions(opt)
	sched := newRetrySchedule(timeout, maxRetries)
	attempts := maxRetries + 1

	for n := 0; n < attempts; n++ {
		seq := c.nextSequence()
		hdr := c.buildHeader(reqType, seq, true, false)
		msg := protocol.Encode(hdr, payload)

		c.Tracef(ctx, "lifx: request type=%d seq=%d attempt=%d/%d", reqType, seq, n+1, attempts)

		if err := c.transport.Send(msg, c.addr); err != nil {
			c.Log.WithError(err).Debug("lifx: send failed, will retry")
			if !c.sleepBackoff(ctx, sched, n, attempts) {
				return nil, lifxerrors.Timeout("context cancelled during retry backoff")
			}
			continue
		}

		attemptTimeout := sched.timeout(n)
		deadline := time.Now().Add(attemptTimeout)
		var collected []Response

		for {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				break
			}
			pollTimeout := remaining
			if c.IdlePoll < pollTimeout {
				pollTimeout = c.IdlePoll
			}
			recvCtx, cancel := context.WithTimeout(ctx, pollTimeout)
			dg, err := c.transport.Recv(recvCtx)
			cancel()

			if err != nil {
				// Re-check the deadline *after* the recv returns, not only
				// before: the attempt may have expired while we were
				// blocked in Recv.
				if time.Now().After(deadline) || ctx.Err() != nil {
					break
				}
				continue
			}

			rhdr, uerr := protocol.Unpack(dg.Payload)
			if uerr != nil {
				continue // malformed, drop
			}
			c.maybeLearnSerial(rhdr)

			if rhdr.Sequence != seq {
				continue // not ours: stray late reply from a prior attempt
			}

			if protocol.PacketType(rhdr.Type) == protocol.StateUnhandled {
				return nil, lifxerrors.UnsupportedCommand(rhdr.Type)
			}
			if opt.ExpectType != nil && protocol.PacketType(rhdr.Type) != *opt.ExpectType {
				return nil, lifxerrors.Protocol("got packet type %d, want %d", rhdr.Type, *opt.ExpectType)
			}
			collected = append(collected, mustResponse(rhdr, dg.Payload))
		}

		if len(collected) > 0 {
			return collected, nil
		}

		// This attempt timed out with nothing yielded.
		if n == attempts-1 {
			break
		}
		if !c.sleepBackoff(ctx, sched, n, attempts) {
			return nil, lifxerrors.Timeout("context cancelled during retry backoff")
		}
	}

	return nil, lifxerrors.Timeout("no response after %d attempts", attempts)
}

// RequestAck implements the SET/acknowledged contract (spec §4.3): send
// with ack_required, yield as soon as any packet with our sequence
// arrives (the protocol ACK is an empty-payload packet; firmware may also
// reply with StateUnhandled).
func (c *Connection) RequestAck(ctx context.Context, reqType protocol.PacketType, payload []byte, opt Options) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	timeout, maxRetries := c.resolveOptions(opt)
	sched := newRetrySchedule(timeout, maxRetries)
	attempts := maxRetries + 1

	for n := 0; n < attempts; n++ {
		seq := c.nextSequence()
		hdr := c.buildHeader(reqType, seq, false, true)
		msg := protocol.Encode(hdr, payload)

		c.Tracef(ctx, "lifx: ack-request type=%d seq=%d attempt=%d/%d", reqType, seq, n+1, attempts)

		if err := c.transport.Send(msg, c.addr); err != nil {
			c.Log.WithError(err).Debug("lifx: send failed, will retry")
			if !c.sleepBackoff(ctx, sched, n, attempts) {
				return lifxerrors.Timeout("context cancelled during retry backoff")
			}
			continue
		}

		attemptTimeout := sched.timeout(n)
		deadline := time.Now().Add(attemptTimeout)
		yielded := false

		for {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				break
			}
			pollTimeout := remaining
			if c.IdlePoll < pollTimeout {
				pollTimeout = c.IdlePoll
			}
			recvCtx, cancel := context.WithTimeout(ctx, pollTimeout)
			dg, err := c.transport.Recv(recvCtx)
			cancel()

			if err != nil {
				if time.Now().After(deadline) || ctx.Err() != nil {
					break
				}
				continue
			}

			rhdr, uerr := protocol.Unpack(dg.Payload)
			if uerr != nil {
				continue
			}
			c.maybeLearnSerial(rhdr)

			if rhdr.Sequence != seq {
				continue
			}
			if protocol.PacketType(rhdr.Type) == protocol.StateUnhandled {
				return lifxerrors.UnsupportedCommand(rhdr.Type)
			}
			yielded = true
			break
		}

		if yielded {
			return nil
		}
		if n == attempts-1 {
			break
		}
		if !c.sleepBackoff(ctx, sched, n, attempts) {
			return lifxerrors.Timeout("context cancelled during retry backoff")
		}
	}

	return lifxerrors.Timeout("no acknowledgement after %d attempts", attempts)
}

// sleepBackoff sleeps the full-jitter backoff for attempt n, returning
// false if ctx was cancelled first.
func (c *Connection) sleepBackoff(ctx context.Context, sched retrySchedule, n, attempts int) bool {
	d := fullJitterSleep(sched.base, n)
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func mustResponse(hdr protocol.Header, raw []byte) Response {
	body := raw[protocol.HeaderSize:]
	pkt, _ := protocol.DecodePacket(hdr, body) // best-effort; unregistered types leave Packet nil
	return Response{Header: hdr, Payload: body, Packet: pkt}
}
