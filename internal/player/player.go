// Package player implements component E: it walks an anim.Animation's
// compressed delta frames, decompressing each against a scratch buffer,
// and pushes the result to a Sink at wall-clock cadence.
//
// Grounded on original_source/daemon/src/animations/player.rs's
// deadline-paced loop (decompress-then-sleep-until-deadline, with
// bounded catch-up on lag) and matjam-smoothpaper's own animation
// loop shape in internal/render (frame pacing against a ticker),
// generalized to decompress via internal/codec instead of drawing GL
// textures directly.
package player

import (
	"context"
	"time"

	"github.com/swwwgo/swwwgo/internal/anim"
	"github.com/swwwgo/swwwgo/internal/codec"
	"github.com/swwwgo/swwwgo/internal/pixel"
)

// Sink receives fully decompressed frames to present. Satisfied by
// internal/surface.Surface.
type Sink interface {
	Present(pixel.Frame) error
}

// Clock abstracts wall-clock time so tests can drive the player without
// sleeping; the daemon's production Clock is realClock, backed by
// time.Now/time.Sleep.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type realClock struct{}

func (realClock) Now() time.Time     { return time.Now() }
func (realClock) Sleep(d time.Duration) { time.Sleep(d) }

// RealClock is the production Clock implementation.
var RealClock Clock = realClock{}

// Player drives one anim.Animation into a Sink, looping indefinitely until
// its context is canceled.
type Player struct {
	clock Clock
	sink  Sink
}

// New creates a Player. Pass nil for clock to use RealClock.
func New(sink Sink, clock Clock) *Player {
	if clock == nil {
		clock = RealClock
	}
	return &Player{sink: sink, clock: clock}
}

// Run plays a in a loop until ctx is canceled or a Present/decompress
// error occurs. The scratch buffer (the "current frame") is released
// (dropped) on return, per spec.md §4.E ("on cancellation releases the
// scratch buffer").
func (p *Player) Run(ctx context.Context, a anim.Animation) error {
	if a.FrameCount() == 0 {
		return nil
	}

	scratch := a.Anchor.Clone()
	if err := p.sink.Present(scratch.Clone()); err != nil {
		return err
	}

	deadline := p.clock.Now()

	for {
		for _, delta := range a.Frames {
			if ctx.Err() != nil {
				return nil
			}

			deadline = deadline.Add(delta.Duration)

			decoded, err := codec.Decompress(scratch.Pix, delta.Delta, scratch.Format.Channels())
			if err != nil {
				return err
			}
			scratch.Pix = decoded

			p.waitUntil(ctx, deadline)
			if ctx.Err() != nil {
				return nil
			}

			if err := p.sink.Present(scratch.Clone()); err != nil {
				return err
			}

			deadline = p.catchUpIfLagging(deadline, a.TotalDuration())
		}
	}
}

// waitUntil sleeps until deadline or ctx cancellation, whichever comes
// first, without busy-waiting.
func (p *Player) waitUntil(ctx context.Context, deadline time.Time) {
	for {
		now := p.clock.Now()
		remaining := deadline.Sub(now)
		if remaining <= 0 {
			return
		}
		if ctx.Err() != nil {
			return
		}
		wait := remaining
		const maxSlice = 50 * time.Millisecond
		if wait > maxSlice {
			wait = maxSlice
		}
		p.clock.Sleep(wait)
	}
}

// catchUpIfLagging implements spec.md §4.E's lag handling: if the wall
// clock has drifted past deadline by more than one full animation cycle,
// advance the deadline to "now" rather than trying to replay every missed
// frame, so a suspended/backgrounded daemon does not spend minutes
// fast-forwarding through frames nobody saw.
func (p *Player) catchUpIfLagging(deadline time.Time, cycle time.Duration) time.Time {
	if cycle <= 0 {
		return deadline
	}
	now := p.clock.Now()
	if lag := now.Sub(deadline); lag > cycle {
		return now
	}
	return deadline
}
