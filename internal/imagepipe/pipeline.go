package imagepipe

import (
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"time"

	"golang.org/x/image/draw"

	"github.com/swwwgo/swwwgo/internal/pixel"
)

// Options gathers the decode/resize/pack knobs threaded through from
// cmd/swww's --resize/--filter/--fill-color flags down to the daemon.
type Options struct {
	TargetW, TargetH int
	Fit              FitMode
	Filter           draw.Interpolator
	Fill             Color
	Format           pixel.Format
}

// StillFrame is a single packed frame ready to hand to internal/surface or
// internal/transition.
type StillFrame struct {
	Frame pixel.Frame
}

// AnimFrameOut pairs a packed frame with its on-screen duration, matching
// the wire shape stored by internal/anim and internal/cache.
type AnimFrameOut struct {
	Frame    pixel.Frame
	Duration time.Duration
}

// Load reads and decodes r, then either resizes+packs a single still frame
// or spawns a decode goroutine feeding a buffered channel of animation
// frames, per spec.md §4.C. Exactly one of the two return values is
// non-nil/non-zero.
//
// Supports reading from stdin via path == "-" (imgproc.rs's original
// behavior, dropped from the distilled spec but restored here), by simply
// accepting any io.Reader — callers pass os.Stdin when path is "-".
func Load(ctx context.Context, r io.Reader, opt Options) (*StillFrame, <-chan AnimFrameOut, error) {
	result, err := Decode(r)
	if err != nil {
		return nil, nil, err
	}

	if result.Still != nil {
		frame := renderAndPack(result.Still, opt)
		return &StillFrame{Frame: frame}, nil, nil
	}

	out := make(chan AnimFrameOut, 4)
	go func() {
		defer close(out)
		for f := range Frames(ctx, result.GIF) {
			packed := renderAndPack(f.Image, opt)
			select {
			case out <- AnimFrameOut{Frame: packed, Duration: f.Duration}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil, out, nil
}

// OpenPath opens path for reading, treating "-" as stdin.
func OpenPath(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("imagepipe: open %s: %w", path, err)
	}
	return f, nil
}

func renderAndPack(src image.Image, opt Options) pixel.Frame {
	rgba := Render(src, opt.TargetW, opt.TargetH, opt.Fit, opt.Fill, opt.Filter)
	return Pack(rgba, opt.Format)
}
