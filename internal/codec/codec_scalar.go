package codec

// packBytesScalar is the portable reference implementation of the
// pixel-parallel scan described in codec.go's package doc: walk prev/next
// stride bytes at a time, comparing only the leading colorWidth bytes of
// each pixel, and emit (skip, diff, xor-bytes) segments.
func packBytesScalar(prev, next []byte, stride int, out []byte) []byte {
	return packSegments(prev, next, stride, out, func(out []byte, start, end int) []byte {
		for p := start; p < end; p++ {
			base := p * stride
			for c := 0; c < colorWidth; c++ {
				out = append(out, prev[base+c]^next[base+c])
			}
		}
		return out
	})
}

// packSegments walks prev/next one pixel run at a time, computing each
// (skip, diff) pair exactly once so every packBytes* variant shares
// identical segmentation (codec_test.go's parity test requires
// byte-identical output across variants) — only how a diff run's XOR bytes
// get appended differs between them, which is left to emitDiff.
//
// Per spec.md §4.A, a terminator is a skip count whose total reaches every
// remaining pixel, followed by a zero diff count. That terminator is
// emitted here, once, when the trailing skip run reaches the end of the
// buffer — a stream whose last diff run itself reaches the last
// pixel needs no terminator, since Decompress's own loop simply stops once
// pixelIdx == nPixels.
func packSegments(prev, next []byte, stride int, out []byte, emitDiff func(out []byte, start, end int) []byte) []byte {
	n := len(prev) / stride
	i := 0
	for i < n {
		skip := countEqual(prev, next, stride, i, n)
		i += skip
		if i >= n {
			out = appendVarint(out, uint64(skip))
			out = append(out, 0)
			break
		}

		start := i
		diff := countDiff(prev, next, stride, i, n)
		i += diff

		out = appendVarint(out, uint64(skip))
		out = appendVarint(out, uint64(diff))
		out = emitDiff(out, start, i)
	}
	return out
}

func countEqual(prev, next []byte, stride, i, n int) int {
	count := 0
	for i < n && pixelEqual(prev, next, stride, i) {
		count++
		i++
	}
	return count
}

func countDiff(prev, next []byte, stride, i, n int) int {
	count := 0
	for i < n && !pixelEqual(prev, next, stride, i) {
		count++
		i++
	}
	return count
}

func pixelEqual(prev, next []byte, stride, i int) bool {
	base := i * stride
	for c := 0; c < colorWidth; c++ {
		if prev[base+c] != next[base+c] {
			return false
		}
	}
	return true
}

// unpackXORScalar XORs delta into dst byte for byte, colorWidth bytes at a
// time (n is the pixel count; dst and delta are exactly n*colorWidth long).
func unpackXORScalar(dst, delta []byte, n int) {
	total := n * colorWidth
	for i := 0; i < total; i++ {
		dst[i] ^= delta[i]
	}
}
