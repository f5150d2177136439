package cache

import (
	"bytes"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/swwwgo/swwwgo/internal/anim"
	"github.com/swwwgo/swwwgo/internal/pixel"
)

func randFrame(w, h int, format pixel.Format, seed uint64) pixel.Frame {
	f := pixel.NewFrame(w, h, format)
	r := rand.New(rand.NewPCG(seed, seed^0x1234))
	for i := range f.Pix {
		f.Pix[i] = byte(r.IntN(256))
	}
	return f
}

func buildAnimation(t *testing.T) anim.Animation {
	t.Helper()
	anchor := randFrame(6, 4, pixel.XRGB, 1)
	b := anim.NewBuilder(anchor)
	prev := anchor
	for i := 0; i < 5; i++ {
		next := randFrame(6, 4, pixel.XRGB, uint64(i)+2)
		if err := b.Push(next, time.Duration(10+i)*time.Millisecond); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
		prev = next
	}
	_ = prev
	return b.Build()
}

func TestSaveLoadRoundTrip(t *testing.T) {
	a := buildAnimation(t)

	var buf bytes.Buffer
	if err := Save(&buf, a); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := Load(&buf)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if got.Anchor.Width != a.Anchor.Width || got.Anchor.Height != a.Anchor.Height || got.Anchor.Format != a.Anchor.Format {
		t.Fatalf("anchor geometry mismatch: got %+v want %+v", got.Anchor, a.Anchor)
	}
	if !bytes.Equal(got.Anchor.Pix, a.Anchor.Pix) {
		t.Fatal("anchor pixel data mismatch")
	}
	if len(got.Frames) != len(a.Frames) {
		t.Fatalf("frame count mismatch: got %d want %d", len(got.Frames), len(a.Frames))
	}
	for i := range a.Frames {
		if got.Frames[i].Duration != a.Frames[i].Duration {
			t.Fatalf("frame %d duration mismatch: got %v want %v", i, got.Frames[i].Duration, a.Frames[i].Duration)
		}
		if !bytes.Equal(got.Frames[i].Delta, a.Frames[i].Delta) {
			t.Fatalf("frame %d delta mismatch", i)
		}
	}
}

func TestLoadRejectsBadMagic(t *testing.T) {
	buf := bytes.NewBufferString("NOPE\x01")
	if _, err := Load(buf); err == nil {
		t.Fatal("expected error for bad magic")
	}
}

func TestLoadRejectsUnknownVersion(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("SWWW")
	buf.WriteByte(99)
	if _, err := Load(&buf); err == nil {
		t.Fatal("expected error for unknown version")
	}
}

func TestLoadRejectsTruncatedStream(t *testing.T) {
	a := buildAnimation(t)
	var buf bytes.Buffer
	if err := Save(&buf, a); err != nil {
		t.Fatal(err)
	}
	truncated := buf.Bytes()[:buf.Len()-10]
	if _, err := Load(bytes.NewReader(truncated)); err == nil {
		t.Fatal("expected error decoding a truncated cache file")
	}
}
