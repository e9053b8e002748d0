package effect

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dsymonds/lifx/animator"
	"github.com/dsymonds/lifx/connio"
	"github.com/dsymonds/lifx/protocol"
)

// participant is one device running inside a frame effect, paired with the
// animator the conductor built for it via the device-kind factory.
type participant struct {
	serial  connio.Serial
	anim    animator.Animator
	canvasW int
	canvasH int
}

// frameRecorder stores the most recently generated frame per device,
// read by Conductor.GetLastFrame (spec.md §4.7/§6). A plain mutex-guarded
// map; kept as its own type so Conductor can hold and share it with every
// frameLoop without exposing the map itself.
type frameRecorder struct {
	mu     sync.Mutex
	frames map[connio.Serial][]protocol.HSBK
}

func newFrameRecorder() frameRecorder {
	return frameRecorder{frames: map[connio.Serial][]protocol.HSBK{}}
}

func (r *frameRecorder) set(serial connio.Serial, frame []protocol.HSBK) {
	cp := make([]protocol.HSBK, len(frame))
	copy(cp, frame)
	r.mu.Lock()
	r.frames[serial] = cp
	r.mu.Unlock()
}

func (r *frameRecorder) get(serial connio.Serial) ([]protocol.HSBK, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.frames[serial]
	return f, ok
}

// frameLoop runs one FrameEffect's generate/send ticks until duration
// elapses, the effect is cancelled, or a generate/send call fails
// (spec.md §4.6).
//
// Scheduling model: cooperative single task per effect. The only
// suspension point is the bounded wait between frames, which doubles as
// the cancellation point — no cross-task state mutation happens inside
// GenerateFrame.
type frameLoop struct {
	fx     FrameEffect
	re     *RunningEffect
	log    *logrus.Logger
	frames *frameRecorder
}

// run executes the frame loop. It returns when the effect completes
// cleanly (duration elapsed), ctx is cancelled, or a generate/send call
// fails (logged, then the loop ends — spec.md §4.6 "Error handling").
func (l *frameLoop) run(ctx context.Context) {
	interval := frameInterval(l.fx.FPS())
	start := time.Now()
	duration := l.fx.Duration()

	for {
		tickStart := time.Now()
		elapsed := tickStart.Sub(start)
		if duration > 0 && elapsed >= duration {
			return
		}

		parts := l.re.snapshot()
		for i, p := range parts {
			fctx := FrameContext{
				ElapsedS:     elapsed.Seconds(),
				DeviceIndex:  i,
				PixelCount:   p.anim.PixelCount(),
				CanvasWidth:  p.canvasW,
				CanvasHeight: p.canvasH,
			}
			frame := l.fx.GenerateFrame(fctx)
			if len(frame) != fctx.PixelCount {
				l.log.WithFields(logrus.Fields{
					"effect": l.fx.Name(),
					"serial": p.serial,
					"want":   fctx.PixelCount,
					"got":    len(frame),
				}).Error("frame effect contract violation: generate_frame length mismatch")
				return
			}
			if err := p.anim.Send(frame); err != nil {
				l.log.WithError(err).WithFields(logrus.Fields{
					"effect": l.fx.Name(),
					"serial": p.serial,
				}).Warn("animator send failed, ending effect")
				return
			}
			l.frames.set(p.serial, frame)
		}

		spent := time.Since(tickStart)
		remaining := interval - spent
		if remaining < 0 {
			remaining = 0
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(remaining):
		}
	}
}
