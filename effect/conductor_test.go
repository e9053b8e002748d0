package effect

import (
	"context"
	"encoding/binary"
	"math"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dsymonds/lifx/connio"
	"github.com/dsymonds/lifx/device"
	"github.com/dsymonds/lifx/lifxproducts"
	"github.com/dsymonds/lifx/protocol"
	"github.com/dsymonds/lifx/transport"
)

// testColorloop is a minimal FrameEffect used only by this package's own
// tests, standing in for the real catalog (package effects), which cannot
// be imported here without an import cycle (effects already imports
// effect).
type testColorloop struct {
	dur time.Duration
}

func newTestColorloop(dur time.Duration) *testColorloop { return &testColorloop{dur: dur} }

func (t *testColorloop) Name() string           { return "test-colorloop" }
func (t *testColorloop) PowerOn() bool          { return false }
func (t *testColorloop) RestoreOnComplete() bool { return true }
func (t *testColorloop) IsCompatible(caps DeviceCapabilities) bool { return caps.Color }
func (t *testColorloop) InheritPrestate(other Effect) bool {
	return other != nil && other.Name() == t.Name()
}
func (t *testColorloop) FromPoweroffHSBK(DeviceCapabilities) protocol.HSBK {
	return protocol.HSBK{Brightness: 0.01, Kelvin: 2700}
}
func (t *testColorloop) FPS() float64            { return 20 }
func (t *testColorloop) Duration() time.Duration { return t.dur }
func (t *testColorloop) GenerateFrame(ctx FrameContext) []protocol.HSBK {
	hue := math.Mod(ctx.ElapsedS*36, 360)
	out := make([]protocol.HSBK, ctx.PixelCount)
	for i := range out {
		out[i] = protocol.HSBK{Hue: hue, Saturation: 1, Brightness: 1, Kelvin: 3500}
	}
	return out
}

var _ FrameEffect = (*testColorloop)(nil)

// fakeBulb is a minimal UDP responder standing in for one physical device,
// serving the GET/SET round trips a single-light colour device needs plus
// recording every SetColor it receives (acked or fire-and-forget) so tests
// can assert on restore behaviour.
type fakeBulb struct {
	conn *transport.Transport
	addr *net.UDPAddr

	mu       sync.Mutex
	power    bool
	color    protocol.HSBK
	setCalls []protocol.HSBK
}

func newFakeBulb(t *testing.T, power bool, color protocol.HSBK) *fakeBulb {
	tr, err := transport.Open(context.Background(), 0)
	require.NoError(t, err)
	return &fakeBulb{conn: tr, addr: tr.LocalAddr(), power: power, color: color}
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
			if err != nil {
				continue
			}
			f.handle(hdr, dg.Payload[protocol.HeaderSize:], dg.Peer)
		}
	}()
}

func (f *fakeBulb) reply(hdr protocol.Header, typ protocol.PacketType, payload []byte, from *net.UDPAddr) {
	r := protocol.Header{Source: hdr.Source, Sequence: hdr.Sequence, Type: uint16(typ)}
	r.SetTargetSerial(hdr.TargetSerial())
	f.conn.Send(protocol.Encode(r, payload), from)
}

func (f *fakeBulb) handle(hdr protocol.Header, payload []byte, from *net.UDPAddr) {
	switch protocol.PacketType(hdr.Type) {
	case protocol.GetPower:
		f.mu.Lock()
		on := f.power
		f.mu.Unlock()
		level := uint16(0)
		if on {
			level = 0xffff
		}
		f.reply(hdr, protocol.StatePower, protocol.EncodeSetPower(level), from)
	case protocol.SetPower:
		level := binary.LittleEndian.Uint16(payload)
		f.mu.Lock()
		f.power = level != 0
		f.mu.Unlock()
		if hdr.AckRequired {
			f.reply(hdr, protocol.Acknowledgement, nil, from)
		}
	case protocol.GetColor:
		f.mu.Lock()
		c := f.color
		f.mu.Unlock()
		b := make([]byte, protocol.HSBKSize+2+2+protocol.LabelSize+8)
		protocol.EncodeHSBK(c, b[0:protocol.HSBKSize])
		f.reply(hdr, protocol.LightState, b, from)
	case protocol.SetColor:
		c := protocol.DecodeHSBK(payload[1:])
		f.mu.Lock()
		f.color = c
		f.setCalls = append(f.setCalls, c)
		f.mu.Unlock()
		if hdr.AckRequired {
			f.reply(hdr, protocol.Acknowledgement, nil, from)
		}
	}
}

func (f *fakeBulb) lastSetCall() (protocol.HSBK, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.setCalls) == 0 {
		return protocol.HSBK{}, 0
	}
	return f.setCalls[len(f.setCalls)-1], len(f.setCalls)
}

func newTestColorDevice(t *testing.T, bulb *fakeBulb, serial connio.Serial) *device.Device {
	cliTransport, err := transport.Open(context.Background(), 0)
	require.NoError(t, err)
	c := connio.New(cliTransport, bulb.addr, serial)
	c.DefaultTimeout = 300 * time.Millisecond
	c.DefaultMaxRetries = 2
	c.IdlePoll = 20 * time.Millisecond
	d := device.New(c)
	trueVal := true
	d.SetCapabilities(lifxproducts.ProductCapabilities{Color: &trueVal})
	return d
}

func TestConductorStartStopRestoresState(t *testing.T) {
	initial := protocol.HSBK{Hue: 40, Saturation: 1, Brightness: 1, Kelvin: 2700}
	bulb := newFakeBulb(t, true, initial)
	defer bulb.close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bulb.serve(ctx)

	dev := newTestColorDevice(t, bulb, connio.Serial{9})
	defer dev.Close()

	cond := New()

	fx := newTestColorloop(2 * time.Second)
	require.NoError(t, cond.Start(ctx, fx, []*device.Device{dev}))

	require.Eventually(t, func() bool {
		return cond.GetLastFrame(dev) != nil
	}, time.Second, 10*time.Millisecond)

	require.NotNil(t, cond.Effect(dev))

	require.NoError(t, cond.Stop(ctx, []*device.Device{dev}))
	require.Nil(t, cond.Effect(dev))

	last, n := bulb.lastSetCall()
	require.Greater(t, n, 0)
	require.InDelta(t, initial.Hue, last.Hue, 0.1)
	require.InDelta(t, initial.Brightness, last.Brightness, 0.01)
}

func TestConductorAddAndRemoveLights(t *testing.T) {
	color := protocol.HSBK{Hue: 0, Saturation: 1, Brightness: 1, Kelvin: 3500}
	bulbA := newFakeBulb(t, true, color)
	bulbB := newFakeBulb(t, true, color)
	defer bulbA.close()
	defer bulbB.close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bulbA.serve(ctx)
	bulbB.serve(ctx)

	devA := newTestColorDevice(t, bulbA, connio.Serial{1})
	devB := newTestColorDevice(t, bulbB, connio.Serial{2})
	defer devA.Close()
	defer devB.Close()

	cond := New()
	fx := newTestColorloop(5 * time.Second)
	require.NoError(t, cond.Start(ctx, fx, []*device.Device{devA}))

	require.NoError(t, cond.AddLights(ctx, fx, []*device.Device{devB}))
	require.Equal(t, fx, cond.Effect(devB))

	require.Eventually(t, func() bool {
		return cond.GetLastFrame(devB) != nil
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, cond.RemoveLights(ctx, []*device.Device{devB}, true))
	require.Nil(t, cond.Effect(devB))
	require.NotNil(t, cond.Effect(devA))

	require.NoError(t, cond.Stop(ctx, []*device.Device{devA}))
}
