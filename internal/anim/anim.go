// Package anim holds the in-memory representation of a decoded animation:
// an anchor frame plus an ordered list of codec-compressed delta frames,
// each paired with a display duration. This is the type internal/player
// walks and internal/cache serializes to disk.
package anim

import (
	"fmt"
	"time"

	"github.com/swwwgo/swwwgo/internal/codec"
	"github.com/swwwgo/swwwgo/internal/pixel"
)

// DeltaFrame is one compressed step: the XOR/RLE delta from the previous
// decompressed frame (or, for index 0, from Anchor), plus how long it
// stays on screen.
type DeltaFrame struct {
	Delta    []byte
	Duration time.Duration
}

// Animation is an anchor frame plus a sequence of compressed deltas. The
// anchor is the "prev" base for the first delta; each subsequent delta is
// relative to the previous frame's fully decompressed pixels, per
// spec.md's glossary definition of "anchor frame".
type Animation struct {
	Anchor pixel.Frame
	Frames []DeltaFrame
}

// Builder incrementally compresses a stream of packed frames into an
// Animation, keeping only one decompressed scratch frame alive at a time
// so building never holds more than two full frames in memory regardless
// of animation length.
type Builder struct {
	anchor  pixel.Frame
	prev    pixel.Frame
	started bool
	frames  []DeltaFrame
}

// NewBuilder starts an animation build with anchor as the first frame.
func NewBuilder(anchor pixel.Frame) *Builder {
	return &Builder{anchor: anchor.Clone(), prev: anchor.Clone(), started: true}
}

// Push compresses next against the previously pushed frame (or the anchor,
// for the first call) and appends the resulting delta.
func (b *Builder) Push(next pixel.Frame, duration time.Duration) error {
	if !b.started {
		return fmt.Errorf("anim: builder used without NewBuilder")
	}
	if !next.SameGeometry(b.prev) {
		return fmt.Errorf("anim: frame geometry mismatch: got %dx%d, want %dx%d",
			next.Width, next.Height, b.prev.Width, b.prev.Height)
	}
	delta := codec.Compress(b.prev.Pix, next.Pix, b.prev.Format.Channels())
	b.frames = append(b.frames, DeltaFrame{Delta: delta, Duration: duration})
	b.prev = next.Clone()
	return nil
}

// Build returns the completed Animation.
func (b *Builder) Build() Animation {
	return Animation{Anchor: b.anchor, Frames: b.frames}
}

// FrameCount reports how many delta frames follow the anchor.
func (a Animation) FrameCount() int { return len(a.Frames) }

// TotalDuration sums every frame's display duration.
func (a Animation) TotalDuration() time.Duration {
	var total time.Duration
	for _, f := range a.Frames {
		total += f.Duration
	}
	return total
}
