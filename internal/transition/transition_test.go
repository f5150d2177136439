package transition

import (
	"math/rand/v2"
	"testing"

	"github.com/swwwgo/swwwgo/internal/pixel"
)

func solidFrame(w, h int, format pixel.Format, val byte) pixel.Frame {
	f := pixel.NewFrame(w, h, format)
	for i := range f.Pix {
		f.Pix[i] = val
	}
	return f
}

func collect(t *testing.T, old, new pixel.Frame, desc Descriptor) []pixel.Frame {
	t.Helper()
	var frames []pixel.Frame
	for f := range Frames(old, new, desc, rand.New(rand.NewPCG(1, 1))) {
		frames = append(frames, f.Clone())
	}
	return frames
}

func baseDescriptor(typ Type) Descriptor {
	return Descriptor{Type: typ, Step: 8, FPS: 30, DurationMS: 500}
}

func TestNoneIsInstant(t *testing.T) {
	old := solidFrame(4, 4, pixel.RGB, 0x00)
	new := solidFrame(4, 4, pixel.RGB, 0xFF)
	frames := collect(t, old, new, baseDescriptor(TypeNone))
	if len(frames) != 1 {
		t.Fatalf("expected exactly 1 frame for none, got %d", len(frames))
	}
	if string(frames[0].Pix) != string(new.Pix) {
		t.Fatal("none transition did not switch directly to new")
	}
}

func TestEndsExactlyAtNew(t *testing.T) {
	old := solidFrame(6, 6, pixel.XRGB, 0x11)
	new := solidFrame(6, 6, pixel.XRGB, 0xEE)
	for _, typ := range []Type{TypeSimple, TypeFade, TypeWipe, TypeWave, TypeGrow, TypeOuter, TypeCenter} {
		desc := baseDescriptor(typ)
		desc.WaveSize = [2]int{4, 2}
		frames := collect(t, old, new, desc)
		if len(frames) == 0 {
			t.Fatalf("%s: expected at least one frame", typ)
		}
		last := frames[len(frames)-1]
		for i, b := range last.Pix {
			// padding bytes for XRGB (index%4==3) carry no color, so the
			// check skips them.
			if i%4 == 3 {
				continue
			}
			if b != new.Pix[i] {
				t.Fatalf("%s: last frame does not exactly equal new at byte %d: got %d want %d", typ, i, b, new.Pix[i])
			}
		}
	}
}

func TestSimpleStep255ConvergesInOneTick(t *testing.T) {
	// spec.md §8 scenario 2: step=255 must converge in a single tick
	// regardless of fps/duration, since change_byte snaps any byte within
	// step of its target straight to that target.
	old := solidFrame(4, 4, pixel.RGB, 0x00)
	new := solidFrame(4, 4, pixel.RGB, 0xFF)
	desc := Descriptor{Type: TypeSimple, Step: 255, FPS: 30, DurationMS: 3000}
	frames := collect(t, old, new, desc)
	if len(frames) != 1 {
		t.Fatalf("expected exactly 1 frame, got %d", len(frames))
	}
	if string(frames[0].Pix) != string(new.Pix) {
		t.Fatal("single frame does not equal new")
	}
}

func TestSimpleSmallStepTakesMultipleTicksAndConvergesEarly(t *testing.T) {
	old := solidFrame(2, 2, pixel.RGB, 0x00)
	new := solidFrame(2, 2, pixel.RGB, 0x14) // 20, step 5 -> exactly 4 ticks
	desc := Descriptor{Type: TypeSimple, Step: 5, FPS: 30, DurationMS: 10000}
	frames := collect(t, old, new, desc)
	if len(frames) != 4 {
		t.Fatalf("expected exactly 4 ticks to converge, got %d", len(frames))
	}
	if string(frames[len(frames)-1].Pix) != string(new.Pix) {
		t.Fatal("last frame does not equal new")
	}
}

func TestSimpleSnapsToNewWhenBudgetExhaustedBeforeConverging(t *testing.T) {
	old := solidFrame(2, 2, pixel.RGB, 0x00)
	new := solidFrame(2, 2, pixel.RGB, 0xFF)
	desc := Descriptor{Type: TypeSimple, Step: 1, FPS: 10, DurationMS: 100} // budget = 1 tick, step needs 255
	frames := collect(t, old, new, desc)
	if len(frames) != 1 {
		t.Fatalf("expected budget to cap at 1 frame, got %d", len(frames))
	}
	if string(frames[0].Pix) != string(new.Pix) {
		t.Fatal("budget-capped final frame must still land exactly on new")
	}
}

func TestFrameCountRespectsBudget(t *testing.T) {
	old := solidFrame(4, 4, pixel.RGB, 0)
	new := solidFrame(4, 4, pixel.RGB, 255)
	desc := baseDescriptor(TypeFade)
	desc.FPS = 10
	desc.DurationMS = 200 // budget = ceil(10*200/1000) = 2
	frames := collect(t, old, new, desc)
	if len(frames) > 2 {
		t.Fatalf("expected at most 2 frames, got %d", len(frames))
	}
}

func TestCancellationStopsEarly(t *testing.T) {
	old := solidFrame(4, 4, pixel.RGB, 0)
	new := solidFrame(4, 4, pixel.RGB, 255)
	desc := baseDescriptor(TypeFade)
	desc.FPS = 30
	desc.DurationMS = 1000

	var count int
	for range Frames(old, new, desc, rand.New(rand.NewPCG(1, 1))) {
		count++
		if count == 3 {
			break
		}
	}
	if count != 3 {
		t.Fatalf("expected to be able to stop after 3 frames, got %d", count)
	}
}

func TestAnyPicksCenterOrOuter(t *testing.T) {
	desc := baseDescriptor(TypeAny)
	seen := map[Type]bool{}
	for seed := uint64(0); seed < 50; seed++ {
		rng := rand.New(rand.NewPCG(seed, seed))
		resolved := resolveType(desc.Type, rng)
		seen[resolved] = true
	}
	for typ := range seen {
		if typ != TypeCenter && typ != TypeOuter {
			t.Fatalf("any resolved to unexpected type %s", typ)
		}
	}
}

func TestRandomPoolExcludesMetaSelectors(t *testing.T) {
	for _, typ := range randomPool {
		if typ == TypeNone || typ == TypeAny || typ == TypeRandom {
			t.Fatalf("random pool must not contain meta-selector %s", typ)
		}
	}
	if len(randomPool) != 7 {
		t.Fatalf("expected 7 concrete shapes in random pool, got %d", len(randomPool))
	}
}

func TestDirectionalAliasesResolveToWipe(t *testing.T) {
	old := solidFrame(4, 4, pixel.RGB, 0)
	new := solidFrame(4, 4, pixel.RGB, 255)
	for typ, wantAngle := range map[Type]float64{
		TypeLeft: 180, TypeRight: 0, TypeTop: 270, TypeBottom: 90,
	} {
		desc := baseDescriptor(typ)
		if got := resolveType(typ, nil); got != TypeWipe {
			t.Fatalf("%s: resolved to %s, want %s", typ, got, TypeWipe)
		}
		frames := collect(t, old, new, desc)
		if len(frames) == 0 {
			t.Fatalf("%s: expected frames", typ)
		}
		if got := directionalAngle(typ, desc.AngleDeg); got != wantAngle {
			t.Fatalf("%s: expected angle %v, got %v", typ, wantAngle, got)
		}
	}
}

func TestMismatchedGeometryPanics(t *testing.T) {
	old := solidFrame(4, 4, pixel.RGB, 0)
	new := solidFrame(8, 8, pixel.RGB, 255)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on geometry mismatch")
		}
	}()
	for range Frames(old, new, baseDescriptor(TypeFade), nil) {
	}
}
