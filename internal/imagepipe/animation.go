package imagepipe

import (
	"context"
	"image"
	"image/color"
	"image/gif"
	"iter"
	"time"
)

// AnimFrame is one composited, full-canvas frame of a decoded animation,
// paired with how long it should be displayed.
type AnimFrame struct {
	Image    *image.RGBA
	Duration time.Duration
}

// minFrameDuration is the floor applied to GIF delays: some encoders emit
// a delay of 0 (or a couple hundredths of a second) meaning "as fast as
// possible", which would otherwise starve the daemon's event loop.
const minFrameDuration = time.Millisecond

// Frames lazily composites g's frames into full RGBA canvases, honoring
// each frame's disposal method, and yields them one at a time. Compositing
// only the frame currently being consumed (rather than eagerly expanding
// the whole GIF up front) bounds peak memory to a small constant number of
// canvases regardless of frame count, per spec.md §4.C.
//
// The returned sequence stops early if ctx is canceled between frames.
func Frames(ctx context.Context, g *gif.GIF) iter.Seq[AnimFrame] {
	return func(yield func(AnimFrame) bool) {
		if len(g.Image) == 0 {
			return
		}
		bounds := image.Rect(0, 0, g.Config.Width, g.Config.Height)
		canvas := image.NewRGBA(bounds)
		var previous *image.RGBA

		for i, frame := range g.Image {
			if ctx.Err() != nil {
				return
			}

			disposal := byte(0)
			if i < len(g.Disposal) {
				disposal = g.Disposal[i]
			}
			if disposal == gif.DisposalPrevious {
				previous = cloneRGBA(canvas)
			}

			drawFrameOnto(canvas, frame)

			out := cloneRGBA(canvas)
			delay := time.Duration(0)
			if i < len(g.Delay) {
				delay = time.Duration(g.Delay[i]) * 10 * time.Millisecond
			}
			if delay < minFrameDuration {
				delay = minFrameDuration
			}

			switch disposal {
			case gif.DisposalBackground:
				clearRegion(canvas, frame.Bounds())
			case gif.DisposalPrevious:
				if previous != nil {
					canvas = previous
				}
			}

			if !yield(AnimFrame{Image: out, Duration: delay}) {
				return
			}
		}
	}
}

func drawFrameOnto(canvas *image.RGBA, frame *image.Paletted) {
	b := frame.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			idx := frame.ColorIndexAt(x, y)
			if int(idx) < len(frame.Palette) {
				if _, _, _, a := frame.Palette[idx].RGBA(); a == 0 {
					continue // transparent pixel: leave the canvas as-is
				}
			}
			canvas.Set(x, y, frame.At(x, y))
		}
	}
}

func clearRegion(canvas *image.RGBA, r image.Rectangle) {
	r = r.Intersect(canvas.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			canvas.Set(x, y, color.RGBA{})
		}
	}
}

func cloneRGBA(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(src.Bounds())
	copy(dst.Pix, src.Pix)
	return dst
}
