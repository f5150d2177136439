package anim

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/swwwgo/swwwgo/internal/codec"
	"github.com/swwwgo/swwwgo/internal/pixel"
)

func randFrame(w, h int, format pixel.Format, seed uint64) pixel.Frame {
	f := pixel.NewFrame(w, h, format)
	r := rand.New(rand.NewPCG(seed, seed^0x99))
	for i := range f.Pix {
		f.Pix[i] = byte(r.IntN(256))
	}
	return f
}

func TestBuilderRoundTripsThroughCodec(t *testing.T) {
	anchor := randFrame(5, 5, pixel.RGB, 1)
	b := NewBuilder(anchor)

	want := []pixel.Frame{anchor}
	prev := anchor
	for i := 0; i < 4; i++ {
		next := randFrame(5, 5, pixel.RGB, uint64(i)+10)
		if err := b.Push(next, 20*time.Millisecond); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
		want = append(want, next)
		prev = next
	}
	_ = prev

	a := b.Build()
	if a.FrameCount() != 4 {
		t.Fatalf("expected 4 delta frames, got %d", a.FrameCount())
	}

	decoded := append([]byte(nil), a.Anchor.Pix...)
	for i, df := range a.Frames {
		out, err := codec.Decompress(decoded, df.Delta, a.Anchor.Format.Channels())
		if err != nil {
			t.Fatalf("decompress frame %d: %v", i, err)
		}
		decoded = out
		if string(decoded) != string(want[i+1].Pix) {
			t.Fatalf("frame %d did not round-trip", i)
		}
	}
}

func TestBuilderRejectsGeometryMismatch(t *testing.T) {
	anchor := randFrame(4, 4, pixel.XRGB, 1)
	b := NewBuilder(anchor)
	wrong := randFrame(8, 8, pixel.XRGB, 2)
	if err := b.Push(wrong, time.Millisecond); err == nil {
		t.Fatal("expected geometry mismatch error")
	}
}

func TestTotalDuration(t *testing.T) {
	anchor := randFrame(2, 2, pixel.XRGB, 1)
	b := NewBuilder(anchor)
	for i := 0; i < 3; i++ {
		next := randFrame(2, 2, pixel.XRGB, uint64(i)+5)
		if err := b.Push(next, 15*time.Millisecond); err != nil {
			t.Fatal(err)
		}
	}
	a := b.Build()
	if a.TotalDuration() != 45*time.Millisecond {
		t.Fatalf("expected 45ms total, got %v", a.TotalDuration())
	}
}
