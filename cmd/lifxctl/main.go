// Command lifxctl discovers LIFX devices on the local network, prints their
// state, and optionally runs a lighting effect on one device by label.
//
// Grounded on github.com/dsymonds/lifx's cmd/ping/main.go: same flag-based
// shape and discover-then-act structure, extended to demonstrate the
// effect/effects/conductor layer in place of the teacher's hand-rolled
// green-then-stripes-then-wave sequence.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/dsymonds/lifx"
	"github.com/dsymonds/lifx/effect"
	"github.com/dsymonds/lifx/effects"
	"github.com/dsymonds/lifx/protocol"
)

var (
	playLabel  = flag.String("play", "TV", "`label` of a device to exercise")
	effectName = flag.String("effect", "colorloop", "effect to run on the play device: pulse, colorloop, rainbow")
	runTime    = flag.Duration("duration", 10*time.Second, "how long to run a frame-based effect before stopping it")
)

func main() {
	flag.Parse()
	ctx := context.Background()

	client, err := lifx.NewClient()
	if err != nil {
		log.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	const wait = 2 * time.Second
	log.Printf("Discovering LIFX devices for %v...", wait)
	discCtx, cancel := context.WithTimeout(ctx, wait)
	devs, err := client.Discover(discCtx)
	cancel()
	if err != nil {
		log.Fatalf("Discover: %v", err)
	}

	var playDev *lifx.Device
	for _, dev := range devs {
		log.Printf("* %v (serial %s)", dev.Addr(), dev.Serial())

		vendor, product, err := dev.GetVersion(ctx)
		if err == nil {
			log.Printf("  vendor=%d product=%d", vendor, product)
		} else {
			log.Printf("  [%v]", err)
		}

		if prod, err := dev.DetermineProduct(ctx, lifx.ProductsFile); err == nil {
			log.Printf("  product is %q, capabilities=%+v", prod.Name, prod.Features)
		} else {
			log.Printf("  [%v]", err)
		}

		power, err := dev.GetPower(ctx)
		if err == nil {
			log.Printf("  power: %.1f%%", float64(power)/65535*100)
		} else {
			log.Printf("  [%v]", err)
		}

		col, err := dev.GetColor(ctx)
		if err == nil {
			log.Printf("  color: %+v", col)
		} else {
			log.Printf("  [%v]", err)
		}

		label, err := dev.GetLabel(ctx)
		if err == nil {
			log.Printf("  label: %q", label)
		} else {
			log.Printf("  [%v]", err)
		}

		if label == *playLabel {
			playDev = dev
		}
	}

	if playDev == nil {
		log.Printf("No device with label %q; I'm done.", *playLabel)
		return
	}

	fx := buildEffect(*effectName)
	log.Printf("Starting %q on %q...", *effectName, *playLabel)

	cond := client.Conductor()
	if err := cond.Start(ctx, fx, []*lifx.Device{playDev}); err != nil {
		log.Fatalf("Conductor.Start: %v", err)
	}

	if waveFx, ok := fx.(effect.WaveformEffect); ok {
		log.Printf("Waveform fired; it will restore itself once it completes.")
		// The conductor restores state in the background once the waveform's
		// run time has passed; stay alive long enough for that to happen.
		time.Sleep(waveFx.RunTime() + 2*time.Second)
		return
	}

	log.Printf("Running for %v...", *runTime)
	time.Sleep(*runTime)

	log.Printf("Stopping and restoring state...")
	if err := cond.Stop(ctx, []*lifx.Device{playDev}); err != nil {
		log.Fatalf("Conductor.Stop: %v", err)
	}
}

// buildEffect maps a flag value to a constructed effect.
func buildEffect(name string) effect.Effect {
	switch name {
	case "pulse":
		return effects.NewPulse(effects.Breathe, protocol.HSBK{Hue: 280, Saturation: 1, Brightness: 1, Kelvin: 3500}, 500*time.Millisecond, 6)
	case "rainbow":
		return effects.NewRainbow(8*time.Second, 0.75)
	case "colorloop":
		fallthrough
	default:
		return effects.NewColorloop(6*time.Second, 30, false)
	}
}
