package effect

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/dsymonds/lifx/animator"
	"github.com/dsymonds/lifx/connio"
	"github.com/dsymonds/lifx/device"
	"github.com/dsymonds/lifx/protocol"
)

// PreState is the captured state an effect's devices had before it
// started, held by the Conductor until the effect stops (spec.md §3/§4.8).
type PreState = device.DeviceState

// participantEntry is one device bound to a RunningEffect: its handle, the
// pre-state captured (or inherited) for it, and the animator built for it
// by the device-kind factory (frame effects only; nil for waveform
// effects).
type participantEntry struct {
	dev   *device.Device
	state PreState
	anim  animator.Animator
}

// RunningEffect is the conductor's bookkeeping for one in-flight effect:
// the effect value itself, its participants in order, and the task
// driving it (spec.md §3 "RunningEffect: {effect, prestate, task}").
type RunningEffect struct {
	effect Effect

	mu           sync.Mutex
	participants []participantEntry

	cancel context.CancelFunc
	done   chan struct{} // closed when the task body returns
}

// snapshot returns a stable copy of the current participant list paired
// with their animators, for the frame loop to read once per tick (spec.md
// §5: "An effect task observes the participants/animators that were
// published before its task was scheduled; subsequent add_lights appends
// to both and is visible to the next tick").
func (r *RunningEffect) snapshot() []*participant {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*participant, 0, len(r.participants))
	for _, pe := range r.participants {
		if pe.anim == nil {
			continue
		}
		w, h := 0, 0
		if m, ok := pe.anim.(*animator.Matrix); ok {
			w, h = m.Width(), m.Height()
		}
		out = append(out, &participant{serial: pe.dev.Serial(), anim: pe.anim, canvasW: w, canvasH: h})
	}
	return out
}

// devices returns the *device.Device handles currently bound, in order.
func (r *RunningEffect) devices() []*device.Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*device.Device, len(r.participants))
	for i, pe := range r.participants {
		out[i] = pe.dev
	}
	return out
}

// Conductor is the lifecycle authority for effects running across a set of
// devices (spec.md §4.7). The zero value is not usable; construct with New.
type Conductor struct {
	mu      sync.Mutex
	running map[connio.Serial]*RunningEffect

	frames frameRecorder
	log    *logrus.Logger
}

// New returns a Conductor with no effects running.
func New() *Conductor {
	return &Conductor{
		running: map[connio.Serial]*RunningEffect{},
		frames:  newFrameRecorder(),
		log:     logrus.StandardLogger(),
	}
}

// WithLogger overrides the conductor's logger.
func (c *Conductor) WithLogger(l *logrus.Logger) *Conductor {
	c.log = l
	return c
}

// Effect returns the effect currently running on light, or nil.
func (c *Conductor) Effect(light *device.Device) Effect {
	c.mu.Lock()
	defer c.mu.Unlock()
	re, ok := c.running[light.Serial()]
	if !ok {
		return nil
	}
	return re.effect
}

// GetLastFrame returns the most recently generated HSBK frame for light
// under its current frame effect, or nil if none is running or the
// running effect is not frame-based.
func (c *Conductor) GetLastFrame(light *device.Device) []protocol.HSBK {
	c.mu.Lock()
	re, ok := c.running[light.Serial()]
	c.mu.Unlock()
	if !ok {
		return nil
	}
	if _, isFrame := re.effect.(FrameEffect); !isFrame {
		return nil
	}
	f, _ := c.frames.get(light.Serial())
	return f
}

// filterCompatible runs Effect.IsCompatible for every candidate in
// parallel and returns the survivors, in original order (spec.md §4.7
// "Compatibility filter").
func (c *Conductor) filterCompatible(fx Effect, lights []*device.Device) []*device.Device {
	ok := make([]bool, len(lights))
	var g errgroup.Group
	for i, l := range lights {
		i, l := i, l
		g.Go(func() error {
			ok[i] = fx.IsCompatible(capsOf(l))
			return nil
		})
	}
	g.Wait()

	out := make([]*device.Device, 0, len(lights))
	for i, l := range lights {
		if ok[i] {
			out = append(out, l)
		} else {
			c.log.WithFields(logrus.Fields{"effect": fx.Name(), "serial": l.Serial()}).
				Debug("dropping incompatible participant")
		}
	}
	return out
}

// capture issues a fresh state capture for light (spec.md §4.8).
func (c *Conductor) capture(ctx context.Context, light *device.Device) (PreState, error) {
	return light.CaptureState(ctx)
}

// captureAll runs capture across lights in parallel.
func (c *Conductor) captureAll(ctx context.Context, lights []*device.Device) (map[connio.Serial]PreState, error) {
	out := make(map[connio.Serial]PreState, len(lights))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, l := range lights {
		l := l
		g.Go(func() error {
			st, err := c.capture(gctx, l)
			if err != nil {
				return fmt.Errorf("capturing pre-state for %s: %w", l.Serial(), err)
			}
			mu.Lock()
			out[l.Serial()] = st
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// restoreAll restores each (light, state) pair in parallel; per-device
// failures are logged and do not abort restoration of peer participants
// (spec.md §7 "Restore paths on failure are best-effort").
func (c *Conductor) restoreAll(ctx context.Context, pairs []participantEntry) {
	var wg sync.WaitGroup
	for _, pe := range pairs {
		pe := pe
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := pe.dev.RestoreState(ctx, pe.state); err != nil {
				c.log.WithError(err).WithField("serial", pe.dev.Serial()).Warn("restoring pre-state failed")
			}
		}()
	}
	wg.Wait()
}

// Start filters participants for compatibility, captures or inherits
// pre-state, builds animators for frame effects, and launches the effect's
// task (spec.md §4.7 start).
func (c *Conductor) Start(ctx context.Context, fx Effect, participants []*device.Device) error {
	survivors := c.filterCompatible(fx, participants)
	if len(survivors) == 0 {
		return nil
	}

	c.mu.Lock()
	// Decide pre-state source per survivor: inherit from a running
	// compatible effect on that serial, or mark for fresh capture.
	toCapture := make([]*device.Device, 0, len(survivors))
	inherited := make(map[connio.Serial]PreState)
	for _, l := range survivors {
		if prev, ok := c.running[l.Serial()]; ok && fx.InheritPrestate(prev.effect) {
			prev.mu.Lock()
			for _, pe := range prev.participants {
				if pe.dev.Serial() == l.Serial() {
					inherited[l.Serial()] = pe.state
					break
				}
			}
			prev.mu.Unlock()
			continue
		}
		toCapture = append(toCapture, l)
	}
	c.mu.Unlock()

	captured, err := c.captureAll(ctx, toCapture)
	if err != nil {
		return err
	}

	if fx.PowerOn() {
		for _, l := range survivors {
			st, ok := captured[l.Serial()]
			if !ok {
				continue
			}
			if !st.Power {
				if err := l.SetColor(ctx, fx.FromPoweroffHSBK(capsOf(l)), 0); err != nil {
					return fmt.Errorf("priming %s before power-on: %w", l.Serial(), err)
				}
			}
			if err := l.SetPower(ctx, true); err != nil {
				return fmt.Errorf("powering on %s: %w", l.Serial(), err)
			}
		}
	}

	re := &RunningEffect{effect: fx, done: make(chan struct{})}
	for _, l := range survivors {
		st, ok := captured[l.Serial()]
		if !ok {
			st = inherited[l.Serial()]
		}
		re.participants = append(re.participants, participantEntry{dev: l, state: st})
	}

	if frameFx, ok := fx.(FrameEffect); ok {
		if err := c.buildAnimators(ctx, re); err != nil {
			return err
		}
		runCtx, cancel := context.WithCancel(context.Background())
		re.cancel = cancel
		loop := &frameLoop{fx: frameFx, re: re, log: c.log, frames: &c.frames}
		go func() {
			defer close(re.done)
			loop.run(runCtx)
			c.finish(re)
		}()
	} else if waveFx, ok := fx.(WaveformEffect); ok {
		if err := c.fireWaveform(ctx, waveFx, re); err != nil {
			return err
		}
		runCtx, cancel := context.WithCancel(context.Background())
		re.cancel = cancel
		go func() {
			defer close(re.done)
			select {
			case <-runCtx.Done():
			case <-time.After(waveFx.RunTime()):
			}
			c.finish(re)
		}()
	}

	c.mu.Lock()
	for _, l := range survivors {
		c.running[l.Serial()] = re
	}
	c.mu.Unlock()

	return nil
}

// buildAnimators constructs one animator per participant via the
// device-kind factory (spec.md §4.7 step 3).
func (c *Conductor) buildAnimators(ctx context.Context, re *RunningEffect) error {
	frameFx := re.effect.(FrameEffect)
	interval := frameInterval(frameFx.FPS())
	for i := range re.participants {
		a, err := animator.NewForDevice(ctx, re.participants[i].dev, interval)
		if err != nil {
			return fmt.Errorf("building animator for %s: %w", re.participants[i].dev.Serial(), err)
		}
		re.participants[i].anim = a
	}
	return nil
}

// fireWaveform sends one waveform SET to every participant (spec.md §4.9
// Pulse: "fire once with cycle count; no per-frame work").
func (c *Conductor) fireWaveform(ctx context.Context, fx WaveformEffect, re *RunningEffect) error {
	devs := re.devices()
	g, gctx := errgroup.WithContext(ctx)
	for _, d := range devs {
		d := d
		g.Go(func() error {
			return d.SetWaveform(gctx, fx.Waveform(capsOf(d)))
		})
	}
	return g.Wait()
}

// finish runs the same cleanup path stop() uses, for an effect that ended
// on its own (duration elapsed, or task failure) rather than via an
// explicit Stop call (spec.md §4.7 "Failure semantics").
func (c *Conductor) finish(re *RunningEffect) {
	c.mu.Lock()
	var toRemove []connio.Serial
	for serial, running := range c.running {
		if running == re {
			toRemove = append(toRemove, serial)
		}
	}
	for _, s := range toRemove {
		delete(c.running, s)
	}
	c.mu.Unlock()

	if len(toRemove) == 0 {
		return // already removed by an explicit Stop
	}

	for _, a := range re.closeAnimators() {
		_ = a.Close()
	}

	if re.effect.RestoreOnComplete() {
		c.restoreAll(context.Background(), re.snapshotEntries())
	}
	c.powerOffIfRequested(context.Background(), re)
}

// powerOffIfRequested sends set_power(false) to every participant if the
// effect implements PowerOffEffect and requests it (spec.md §4.9 Sunset).
func (c *Conductor) powerOffIfRequested(ctx context.Context, re *RunningEffect) {
	poFx, ok := re.effect.(PowerOffEffect)
	if !ok || !poFx.PowerOffOnComplete() {
		return
	}
	for _, d := range re.devices() {
		if err := d.SetPower(ctx, false); err != nil {
			c.log.WithError(err).WithField("serial", d.Serial()).Warn("power-off on complete failed")
		}
	}
}

// closeAnimators closes every participant's animator exactly once and
// returns them (for logging/inspection by callers who need it).
func (r *RunningEffect) closeAnimators() []animator.Animator {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]animator.Animator, 0, len(r.participants))
	for _, pe := range r.participants {
		if pe.anim != nil {
			out = append(out, pe.anim)
		}
	}
	return out
}

// snapshotEntries returns a copy of the participant entries (dev+state),
// for restore passes that run after the lock is released.
func (r *RunningEffect) snapshotEntries() []participantEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]participantEntry, len(r.participants))
	copy(out, r.participants)
	return out
}

// Stop signals, cancels, and restores the effect(s) running on lights
// (spec.md §4.7 stop).
func (c *Conductor) Stop(ctx context.Context, lights []*device.Device) error {
	c.mu.Lock()
	seen := map[*RunningEffect]bool{}
	var affected []*RunningEffect
	for _, l := range lights {
		re, ok := c.running[l.Serial()]
		if !ok || seen[re] {
			continue
		}
		seen[re] = true
		affected = append(affected, re)
		for serial, running := range c.running {
			if running == re {
				delete(c.running, serial)
			}
		}
	}
	c.mu.Unlock()

	for _, re := range affected {
		re.cancel()
	}
	for _, re := range affected {
		<-re.done
	}

	for _, re := range affected {
		for _, a := range re.closeAnimators() {
			_ = a.Close()
		}
		if re.effect.RestoreOnComplete() {
			c.restoreAll(ctx, re.snapshotEntries())
		}
		c.powerOffIfRequested(ctx, re)
	}
	return nil
}

// AddLights appends lights to an already-running effect, filtering for
// compatibility, skipping lights already bound to it, capturing fresh
// pre-state, and building new animators (spec.md §4.7 add_lights).
func (c *Conductor) AddLights(ctx context.Context, fx Effect, lights []*device.Device) error {
	c.mu.Lock()
	var re *RunningEffect
	for _, running := range c.running {
		if running.effect == fx {
			re = running
			break
		}
	}
	c.mu.Unlock()
	if re == nil {
		return fmt.Errorf("effect: AddLights: %s is not running", fx.Name())
	}

	survivors := c.filterCompatible(fx, lights)
	existing := re.devices()
	existingSet := map[connio.Serial]bool{}
	for _, d := range existing {
		existingSet[d.Serial()] = true
	}

	var fresh []*device.Device
	for _, l := range survivors {
		if !existingSet[l.Serial()] {
			fresh = append(fresh, l)
		}
	}
	if len(fresh) == 0 {
		return nil
	}

	captured, err := c.captureAll(ctx, fresh)
	if err != nil {
		return err
	}

	newEntries := make([]participantEntry, 0, len(fresh))
	for _, l := range fresh {
		newEntries = append(newEntries, participantEntry{dev: l, state: captured[l.Serial()]})
	}

	if frameFx, ok := fx.(FrameEffect); ok {
		interval := frameInterval(frameFx.FPS())
		for i := range newEntries {
			a, err := animator.NewForDevice(ctx, newEntries[i].dev, interval)
			if err != nil {
				return fmt.Errorf("building animator for %s: %w", newEntries[i].dev.Serial(), err)
			}
			newEntries[i].anim = a
		}
	}

	c.mu.Lock()
	re.mu.Lock()
	re.participants = append(re.participants, newEntries...)
	re.mu.Unlock()
	for _, e := range newEntries {
		c.running[e.dev.Serial()] = re
	}
	c.mu.Unlock()

	return nil
}

// RemoveLights unbinds lights from whatever effect they are currently
// running, closing their animators and optionally restoring pre-state
// (spec.md §4.7 remove_lights). If the last participant for an effect is
// removed, its task is cancelled.
func (c *Conductor) RemoveLights(ctx context.Context, lights []*device.Device, restoreState bool) error {
	type removal struct {
		re      *RunningEffect
		entries []participantEntry
		anims   []animator.Animator
		last    bool
	}

	c.mu.Lock()
	byEffect := map[*RunningEffect][]*device.Device{}
	for _, l := range lights {
		if re, ok := c.running[l.Serial()]; ok {
			byEffect[re] = append(byEffect[re], l)
			delete(c.running, l.Serial())
		}
	}
	var removals []removal
	for re, toRemove := range byEffect {
		re.mu.Lock()
		var kept []participantEntry
		var removedEntries []participantEntry
		var anims []animator.Animator
		removeSet := map[connio.Serial]bool{}
		for _, l := range toRemove {
			removeSet[l.Serial()] = true
		}
		for _, pe := range re.participants {
			if removeSet[pe.dev.Serial()] {
				removedEntries = append(removedEntries, pe)
				if pe.anim != nil {
					anims = append(anims, pe.anim)
				}
				continue
			}
			kept = append(kept, pe)
		}
		re.participants = kept
		last := len(kept) == 0
		re.mu.Unlock()

		removals = append(removals, removal{re: re, entries: removedEntries, anims: anims, last: last})
	}
	c.mu.Unlock()

	for _, r := range removals {
		if r.last {
			r.re.cancel()
			<-r.re.done
		}
		for _, a := range r.anims {
			_ = a.Close()
		}
	}

	if restoreState {
		var all []participantEntry
		for _, r := range removals {
			all = append(all, r.entries...)
		}
		c.restoreAll(ctx, all)
	}

	return nil
}
