package codec

import (
	"math/rand/v2"
	"testing"
)

func randFrame(n int, seed uint64) []byte {
	r := rand.New(rand.NewPCG(seed, seed^0xabc))
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte(r.IntN(256))
	}
	return buf
}

func TestRoundTripRandom(t *testing.T) {
	for _, stride := range []int{3, 4} {
		for _, pixels := range []int{0, 1, 2, 17, 255, 256, 511, 1000} {
			prev := randFrame(pixels*stride, 1)
			next := randFrame(pixels*stride, 2)
			if stride == 4 {
				zeroPadding(prev, stride)
				zeroPadding(next, stride)
			}
			delta := Compress(prev, next, stride)
			got, err := Decompress(prev, delta, stride)
			if err != nil {
				t.Fatalf("stride=%d pixels=%d: decompress error: %v", stride, pixels, err)
			}
			if string(got) != string(next) {
				t.Fatalf("stride=%d pixels=%d: round-trip mismatch", stride, pixels)
			}
		}
	}
}

func zeroPadding(buf []byte, stride int) {
	for i := colorWidth; i < len(buf); i += stride {
		buf[i] = 0
	}
}

func TestRoundTripTrailingUnchangedRun(t *testing.T) {
	// prev/next differ only in the first pixel; the trailing two pixels are
	// unchanged, so Compress must still emit a terminator after the one
	// diff segment instead of dropping it.
	prev := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9}
	next := []byte{9, 9, 9, 4, 5, 6, 7, 8, 9}
	delta := Compress(prev, next, 3)
	got, err := Decompress(prev, delta, 3)
	if err != nil {
		t.Fatalf("decompress error: %v", err)
	}
	if string(got) != string(next) {
		t.Fatalf("round-trip mismatch: got %v, want %v", got, next)
	}
}

func TestCompressIdenticalIsCanonicalMinimal(t *testing.T) {
	x := randFrame(4000*3, 42)
	delta := Compress(x, x, 3)
	// One skip-count varint covering all pixels, plus a zero terminator
	// byte: for 4000 pixels that's floor(4000/255)+1 = 16 skip bytes plus
	// one terminator byte, 17 in all, far smaller than the frame itself.
	if len(delta) > 64 {
		t.Fatalf("expected minimal empty-delta stream, got %d bytes", len(delta))
	}
	got, err := Decompress(x, delta, 3)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(x) {
		t.Fatal("identity compress/decompress mismatch")
	}
}

func TestScalarWideParity(t *testing.T) {
	for _, stride := range []int{3, 4} {
		prev := randFrame(5000*stride, 7)
		next := randFrame(5000*stride, 8)
		if stride == 4 {
			zeroPadding(prev, stride)
			zeroPadding(next, stride)
		}
		// sprinkle runs of equality so skip-encoding is exercised too,
		// including a trailing run reaching the very last pixel — the
		// terminator segment path both variants must agree on.
		copy(next[100*stride:140*stride], prev[100*stride:140*stride])
		copy(next[300*stride:301*stride], prev[300*stride:301*stride])
		copy(next[4980*stride:5000*stride], prev[4980*stride:5000*stride])

		scalarOut := packBytesScalar(prev, next, stride, nil)
		wideOut := packBytesWide(prev, next, stride, nil)
		if string(scalarOut) != string(wideOut) {
			t.Fatalf("stride=%d: scalar and wide compress diverge", stride)
		}

		dstScalar := append([]byte(nil), prev...)
		dstWide := append([]byte(nil), prev...)
		if err := decompressWith(dstScalar, scalarOut, stride, unpackXORScalar); err != nil {
			t.Fatal(err)
		}
		if err := decompressWith(dstWide, scalarOut, stride, unpackXORWide); err != nil {
			t.Fatal(err)
		}
		if string(dstScalar) != string(dstWide) {
			t.Fatalf("stride=%d: scalar and wide decompress diverge", stride)
		}
		if string(dstScalar) != string(next) {
			t.Fatalf("stride=%d: decompress did not reconstruct next", stride)
		}
	}
}

// decompressWith is DecompressInto but with an injected unpack function,
// for testing both variants against the same delta stream.
func decompressWith(buf, delta []byte, stride int, unpack func(dst, delta []byte, n int)) error {
	saved := unpackXOR
	unpackXOR = unpack
	defer func() { unpackXOR = saved }()
	return DecompressInto(buf, delta, stride)
}

func TestCorruptStreamErrors(t *testing.T) {
	prev := randFrame(30, 1)
	next := randFrame(30, 2)
	delta := Compress(prev, next, 3)

	if _, err := Decompress(prev, delta[:len(delta)-1], 3); err == nil {
		t.Fatal("expected error decompressing truncated stream")
	}

	overrun := append([]byte(nil), delta...)
	overrun[0] = 0xFF // huge skip count guaranteed to overrun
	if _, err := Decompress(prev, overrun, 3); err == nil {
		t.Fatal("expected error decompressing stream with overrunning skip count")
	}
}

func TestMismatchedLengthsPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on mismatched lengths")
		}
	}()
	Compress(make([]byte, 3), make([]byte, 6), 3)
}
