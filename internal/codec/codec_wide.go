package codec

import "encoding/binary"

// packBytesWide is a word-parallel variant of packBytesScalar: the
// skip/diff run lengths are found exactly as the scalar path finds them
// (byte-identical segmentation is required), but the XOR of each diff
// segment's color bytes is computed 8 bytes at a time where a full word is
// available. It is Go's portable stand-in for the hand-written 16/32-wide
// SSE2/AVX2 compare-and-XOR loops of the reference implementation (see
// original_source/common/src/compression/comp/avx2.rs): real SIMD needs
// architecture-specific assembly this module does not carry, but the
// wide-word XOR loop exercises the same "operate on many bytes per
// iteration, selected at runtime by CPU feature detection" structure, and
// is required to be byte-identical to the scalar path (codec_test.go's
// parity test checks this directly).
func packBytesWide(prev, next []byte, stride int, out []byte) []byte {
	return packSegments(prev, next, stride, out, func(out []byte, start, end int) []byte {
		if stride == colorWidth {
			// The diff run is contiguous in the underlying buffer, so it
			// can be XORed in one word-parallel pass.
			base := start * stride
			endB := end * stride
			return xorAppendWide(out, prev[base:endB], next[base:endB])
		}
		for p := start; p < end; p++ {
			base := p * stride
			out = xorAppendWide(out, prev[base:base+colorWidth], next[base:base+colorWidth])
		}
		return out
	})
}

// xorAppendWide appends a^b for equal-length a, b to out, 8 bytes at a
// time where a full word remains.
func xorAppendWide(out, a, b []byte) []byte {
	i := 0
	for i+8 <= len(a) {
		x := binary.LittleEndian.Uint64(a[i : i+8])
		y := binary.LittleEndian.Uint64(b[i : i+8])
		var tmp [8]byte
		binary.LittleEndian.PutUint64(tmp[:], x^y)
		out = append(out, tmp[:]...)
		i += 8
	}
	for ; i < len(a); i++ {
		out = append(out, a[i]^b[i])
	}
	return out
}

// unpackXORWide XORs delta into dst 8 bytes at a time where a full word
// remains, falling back to a byte loop for the tail.
func unpackXORWide(dst, delta []byte, n int) {
	total := n * colorWidth
	i := 0
	for i+8 <= total {
		a := binary.LittleEndian.Uint64(dst[i : i+8])
		b := binary.LittleEndian.Uint64(delta[i : i+8])
		binary.LittleEndian.PutUint64(dst[i:i+8], a^b)
		i += 8
	}
	for ; i < total; i++ {
		dst[i] ^= delta[i]
	}
}
