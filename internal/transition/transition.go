package transition

import (
	"iter"
	"math"
	"math/rand/v2"

	"github.com/swwwgo/swwwgo/internal/pixel"
)

// Frames returns a lazy, finite sequence of intermediate frames between
// old and new under desc, ending exactly at new, per spec.md §4.D. rng
// resolves the `any`/`random` meta-selectors; pass nil to use the package
// default source.
//
// old and new must share geometry (SameGeometry); Frames panics otherwise,
// matching internal/codec's convention that geometry mismatches are a
// caller bug, not a runtime condition to recover from.
func Frames(old, new pixel.Frame, desc Descriptor, rng *rand.Rand) iter.Seq[pixel.Frame] {
	if !old.SameGeometry(new) {
		panic("transition: old and new frames have different geometry")
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(1, 2))
	}

	originalType := desc.Type
	resolved := resolveType(desc.Type, rng)
	desc.AngleDeg = directionalAngle(originalType, desc.AngleDeg)
	desc.Type = resolved

	return func(yield func(pixel.Frame) bool) {
		if resolved == TypeNone {
			yield(new.Clone())
			return
		}
		if resolved == TypeSimple {
			yieldSimple(old, new, desc, yield)
			return
		}

		n := frameBudget(desc)
		for i := 1; i <= n; i++ {
			frame := renderTick(old, new, desc, i, n)
			if !yield(frame) {
				return
			}
		}
	}
}

func resolveType(t Type, rng *rand.Rand) Type {
	switch t {
	case TypeAny:
		return anyPool[rng.IntN(len(anyPool))]
	case TypeRandom:
		return randomPool[rng.IntN(len(randomPool))]
	case TypeLeft, TypeRight, TypeTop, TypeBottom:
		return TypeWipe
	default:
		return t
	}
}

// directionalAngle returns the wipe angle implied by a directional alias,
// or desc.AngleDeg unchanged for a plain `wipe`.
func directionalAngle(original Type, angle float64) float64 {
	switch original {
	case TypeLeft:
		return 180
	case TypeRight:
		return 0
	case TypeTop:
		return 270
	case TypeBottom:
		return 90
	default:
		return angle
	}
}

// frameBudget computes the "at most ceil(fps * duration_ms / 1000)"
// frame cap from spec.md §4.D.
func frameBudget(desc Descriptor) int {
	fps := int(desc.FPS)
	if fps < 1 {
		fps = 1
	}
	n := (fps*int(desc.DurationMS) + 999) / 1000
	if n < 1 {
		n = 1
	}
	return n
}

// yieldSimple advances every byte of a working canvas toward new by up to
// desc.Step per tick (original_source/daemon/src/animations/transitions.rs's
// change_byte), yielding the canvas after each tick and stopping the moment
// it exactly equals new — per spec.md §8 scenario 2, `--transition-step 255`
// converges in a single tick regardless of --transition-fps/-duration.
// frameBudget still bounds the tick count from above (spec.md §4.D's cap):
// if step is too small to converge first, the last tick snaps to new like
// every other shape's terminate-at-new tick does.
func yieldSimple(old, newF pixel.Frame, desc Descriptor, yield func(pixel.Frame) bool) {
	n := frameBudget(desc)
	step := desc.Step
	if step == 0 {
		step = 1
	}
	channels := old.Format.Channels()
	canvas := old.Clone()
	for i := 1; i <= n; i++ {
		done := stepSimple(canvas, newF, step, channels)
		if done || i == n {
			if !done {
				canvas = newF.Clone()
			}
			yield(canvas)
			return
		}
		if !yield(canvas.Clone()) {
			return
		}
	}
}

// stepSimple mutates canvas one change_byte step closer to newF and reports
// whether canvas now exactly equals newF.
func stepSimple(canvas, newF pixel.Frame, step uint8, channels int) bool {
	converged := true
	for y := 0; y < canvas.Height; y++ {
		canvasRow := canvas.RowBytes(y)
		newRow := newF.RowBytes(y)
		for x := 0; x < canvas.Width; x++ {
			base := x * channels
			for c := 0; c < channels; c++ {
				idx := base + c
				if canvasRow[idx] != newRow[idx] {
					canvasRow[idx] = changeByte(step, canvasRow[idx], newRow[idx])
					if canvasRow[idx] != newRow[idx] {
						converged = false
					}
				}
			}
		}
	}
	return converged
}

// changeByte moves old one step closer to new, snapping to new once within
// step of it.
func changeByte(step, old, new byte) byte {
	var diff byte
	if old > new {
		diff = old - new
	} else {
		diff = new - old
	}
	if diff < step {
		return new
	}
	if old > new {
		return old - step
	}
	return old + step
}

// progress returns the eased fraction (0..1] of transition completed by
// tick i of n, for every shape but simple (yieldSimple handles that one
// separately since its pacing is step-driven, not tick-fraction-driven).
// Every shape uses the descriptor's cubic-bezier easing curve, matching
// fade's explicit "bezier-timed t" and generalized to the boundary-based
// shapes since they share the same "how far along are we" concept.
func progress(desc Descriptor, i, n int) float64 {
	linear := float64(i) / float64(n)
	if i == n {
		return 1
	}
	x1, y1, x2, y2 := desc.Bezier[0], desc.Bezier[1], desc.Bezier[2], desc.Bezier[3]
	if x1 == 0 && y1 == 0 && x2 == 0 && y2 == 0 {
		return linear // identity easing when no bezier was supplied
	}
	return cubicBezierEase(x1, y1, x2, y2, linear)
}

func renderTick(old, newF pixel.Frame, desc Descriptor, i, n int) pixel.Frame {
	if i == n {
		// Every shape's boundary math is an approximation of "fully
		// switched"; the final tick always lands exactly on new so the
		// terminate-at-new invariant holds regardless of shape geometry.
		return newF.Clone()
	}

	p := progress(desc, i, n)
	out := old.Clone()
	channels := old.Format.Channels()

	switch desc.Type {
	case TypeFade:
		blendUniform(out, old, newF, p, channels)
	case TypeWipe:
		wipe(out, old, newF, p, desc.AngleDeg, channels)
	case TypeWave:
		wave(out, old, newF, p, desc, channels)
	case TypeGrow, TypeCenter:
		disc(out, old, newF, p, desc, channels, true)
	case TypeOuter:
		disc(out, old, newF, p, desc, channels, false)
	default:
		blendUniform(out, old, newF, p, channels)
	}
	return out
}

func blendUniform(out, old, newF pixel.Frame, p float64, channels int) {
	for y := 0; y < out.Height; y++ {
		oldRow := old.RowBytes(y)
		newRow := newF.RowBytes(y)
		outRow := out.RowBytes(y)
		for x := 0; x < out.Width; x++ {
			base := x * channels
			for c := 0; c < channels; c++ {
				outRow[base+c] = lerpByte(oldRow[base+c], newRow[base+c], p)
			}
		}
	}
}

func lerpByte(a, b byte, t float64) byte {
	v := float64(a) + (float64(b)-float64(a))*t
	if v < 0 {
		v = 0
	}
	if v > 255 {
		v = 255
	}
	return byte(v + 0.5)
}

const boundaryBandWidth = 1.5

func wipe(out, old, newF pixel.Frame, p float64, angleDeg float64, channels int) {
	rad := angleDeg * math.Pi / 180
	dx, dy := math.Cos(rad), math.Sin(rad)
	maxProj := math.Abs(dx)*float64(out.Width) + math.Abs(dy)*float64(out.Height)
	boundary := p * maxProj

	for y := 0; y < out.Height; y++ {
		oldRow := old.RowBytes(y)
		newRow := newF.RowBytes(y)
		outRow := out.RowBytes(y)
		for x := 0; x < out.Width; x++ {
			proj := float64(x)*dx + float64(y)*dy
			t := edgeBlend(proj, boundary)
			base := x * channels
			for c := 0; c < channels; c++ {
				outRow[base+c] = lerpByte(oldRow[base+c], newRow[base+c], t)
			}
		}
	}
}

// edgeBlend returns the blend factor for a pixel at signed distance
// (boundary-proj) from the moving boundary: 0 fully old, 1 fully new,
// linearly blended within one boundaryBandWidth pixel of the edge.
func edgeBlend(proj, boundary float64) float64 {
	d := boundary - proj
	if d <= -boundaryBandWidth {
		return 0
	}
	if d >= boundaryBandWidth {
		return 1
	}
	return (d + boundaryBandWidth) / (2 * boundaryBandWidth)
}

func wave(out, old, newF pixel.Frame, p float64, desc Descriptor, channels int) {
	rad := desc.AngleDeg * math.Pi / 180
	dx, dy := math.Cos(rad), math.Sin(rad)
	px, py := -dy, dx // perpendicular axis, drives the sinusoidal modulation

	waveW, waveH := desc.WaveSize[0], desc.WaveSize[1]
	if waveW <= 0 {
		waveW = 50
	}
	if waveH <= 0 {
		waveH = 30
	}

	maxProj := math.Abs(dx)*float64(out.Width) + math.Abs(dy)*float64(out.Height)
	boundary := p * maxProj

	for y := 0; y < out.Height; y++ {
		oldRow := old.RowBytes(y)
		newRow := newF.RowBytes(y)
		outRow := out.RowBytes(y)
		for x := 0; x < out.Width; x++ {
			proj := float64(x)*dx + float64(y)*dy
			perp := float64(x)*px + float64(y)*py
			offset := math.Sin(perp/float64(waveW)*2*math.Pi) * float64(waveH)
			t := edgeBlend(proj, boundary+offset)
			base := x * channels
			for c := 0; c < channels; c++ {
				outRow[base+c] = lerpByte(oldRow[base+c], newRow[base+c], t)
			}
		}
	}
}

// disc implements grow/center (growing=true: a circle around Pos expands,
// revealing new inside it) and outer (growing=false: the circle of old
// shrinks toward Pos, revealing new everywhere outside it).
func disc(out, old, newF pixel.Frame, p float64, desc Descriptor, channels int, growing bool) {
	cx, cy := desc.resolvedPos(out.Width, out.Height)
	maxRadius := math.Hypot(math.Max(cx, float64(out.Width)-cx), math.Max(cy, float64(out.Height)-cy))

	var radius float64
	if growing {
		radius = p * maxRadius
	} else {
		radius = (1 - p) * maxRadius
	}

	for y := 0; y < out.Height; y++ {
		oldRow := old.RowBytes(y)
		newRow := newF.RowBytes(y)
		outRow := out.RowBytes(y)
		for x := 0; x < out.Width; x++ {
			dist := math.Hypot(float64(x)-cx, float64(y)-cy)
			var t float64
			if growing {
				t = edgeBlend(dist, radius) // dist < radius -> inside -> new
				t = 1 - t
			} else {
				t = edgeBlend(radius, dist) // dist > radius -> outside -> new
			}
			base := x * channels
			for c := 0; c < channels; c++ {
				outRow[base+c] = lerpByte(oldRow[base+c], newRow[base+c], t)
			}
		}
	}
}
