// Package codec implements the run-length delta compressor used to store
// animation frames both in memory and in the on-disk cache (see
// internal/cache). It compresses the difference between two equal-length
// pixel buffers as an alternating sequence of (skip-count, diff-count)
// pairs, base-255 varint encoded, followed by the XOR of the differing
// pixels' color bytes.
//
// This mirrors the run-length scan of the compression strategy in the
// original swww/fswww codebase (see
// original_source/utils/src/compression/comp/mod.rs's count_equals /
// count_different split), generalized here to XOR the differing pixels
// instead of copying them raw, and to skip the fourth (padding) byte of
// four-byte pixel strides both when comparing and when emitting the delta
// payload, per this project's wire format.
package codec

import "fmt"

// colorWidth is the number of bytes per pixel that participate in
// comparison and in the delta payload. XRGB/XBGR's fourth byte is always a
// deterministic zero padding byte (internal/imagepipe guarantees this) and
// is never compared or transmitted; it is simply left untouched by
// Decompress, which starts from a copy of prev.
const colorWidth = 3

// packBytes is swapped out at package init for a CPU-feature-appropriate
// implementation. All implementations must produce byte-identical output
// for the same input; see codec_test.go's parity test.
var packBytes func(prev, next []byte, stride int, out []byte) []byte = packBytesScalar

// unpackXOR is likewise swapped for a CPU-feature-appropriate
// implementation of the innermost diff-apply loop.
var unpackXOR func(dst []byte, delta []byte, n int) = unpackXORScalar

// Compress returns the encoded delta turning prev into next. prev and next
// must have equal length, a multiple of stride, which must be 3 (RGB/BGR)
// or 4 (XRGB/XBGR).
func Compress(prev, next []byte, stride int) []byte {
	if len(prev) != len(next) {
		panic(fmt.Sprintf("codec: mismatched lengths: %d != %d", len(prev), len(next)))
	}
	if stride != 3 && stride != 4 {
		panic(fmt.Sprintf("codec: unsupported pixel stride %d", stride))
	}
	if len(prev)%stride != 0 {
		panic(fmt.Sprintf("codec: length %d is not a multiple of stride %d", len(prev), stride))
	}

	out := packBytes(prev, next, stride, make([]byte, 0, 64))
	if len(out) == 0 {
		// Canonical minimal empty-delta stream: a single skip segment
		// covering every pixel, followed by a zero diff-count terminator.
		out = appendVarint(out, uint64(len(prev)/stride))
		out = append(out, 0)
	}
	return out
}

// Decompress applies delta (produced by Compress against prev) to prev,
// returning the reconstructed next. Returns an error if delta is corrupt
// (skip+diff counts overrun the buffer length).
func Decompress(prev, delta []byte, stride int) ([]byte, error) {
	if stride != 3 && stride != 4 {
		return nil, fmt.Errorf("codec: unsupported pixel stride %d", stride)
	}
	next := append([]byte(nil), prev...)
	if err := DecompressInto(next, delta, stride); err != nil {
		return nil, err
	}
	return next, nil
}

// DecompressInto applies delta to buf in place. buf must already contain
// prev's bytes (the caller typically reuses a scratch buffer holding the
// previously displayed frame, as internal/player does).
func DecompressInto(buf, delta []byte, stride int) error {
	if stride != 3 && stride != 4 {
		return fmt.Errorf("codec: unsupported pixel stride %d", stride)
	}
	if len(buf)%stride != 0 {
		return fmt.Errorf("codec: buffer length %d is not a multiple of stride %d", len(buf), stride)
	}
	nPixels := len(buf) / stride
	pixelIdx := 0
	di := 0

	for pixelIdx < nPixels {
		skip, n, err := readVarint(delta, di)
		if err != nil {
			return err
		}
		di = n
		pixelIdx += int(skip)
		if pixelIdx > nPixels {
			return fmt.Errorf("codec: corrupt stream: skip overruns buffer (%d > %d pixels)", pixelIdx, nPixels)
		}

		diff, n, err := readVarint(delta, di)
		if err != nil {
			return err
		}
		di = n
		if diff == 0 {
			if pixelIdx != nPixels {
				return fmt.Errorf("codec: corrupt stream: premature terminator at pixel %d/%d", pixelIdx, nPixels)
			}
			return nil
		}

		end := pixelIdx + int(diff)
		if end > nPixels {
			return fmt.Errorf("codec: corrupt stream: diff overruns buffer (%d > %d pixels)", end, nPixels)
		}

		need := int(diff) * colorWidth
		if di+need > len(delta) {
			return fmt.Errorf("codec: corrupt stream: delta payload truncated")
		}

		if stride == colorWidth {
			unpackXOR(buf[pixelIdx*stride:end*stride], delta[di:di+need], int(diff))
		} else {
			// Padding byte at the end of every pixel is skipped both in
			// the comparison and in the delta payload; XOR only the
			// colorWidth leading bytes of each stride-wide pixel.
			for p := 0; p < int(diff); p++ {
				base := (pixelIdx+p)*stride
				src := di + p*colorWidth
				unpackXOR(buf[base:base+colorWidth], delta[src:src+colorWidth], 1)
			}
		}
		di += need
		pixelIdx = end
	}
	return nil
}

// appendVarint appends v using the base-255 encoding of §4.A: emit 0xFF
// while the remaining count is >= 255, then the residual byte.
func appendVarint(buf []byte, v uint64) []byte {
	for v >= 255 {
		buf = append(buf, 0xFF)
		v -= 255
	}
	return append(buf, byte(v))
}

// readVarint decodes a base-255 varint starting at delta[i], returning the
// value and the index just past it.
func readVarint(delta []byte, i int) (uint64, int, error) {
	var v uint64
	for {
		if i >= len(delta) {
			return 0, 0, fmt.Errorf("codec: corrupt stream: truncated count")
		}
		b := delta[i]
		i++
		v += uint64(b)
		if b != 0xFF {
			break
		}
	}
	return v, i, nil
}
