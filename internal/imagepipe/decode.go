package imagepipe

import (
	"bufio"
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

func init() {
	// register decoders so image.Decode / image.DecodeConfig can content-sniff
	// formats we accept beyond the three the stdlib registers itself.
	image.RegisterFormat("bmp", "BM", bmp.Decode, bmp.DecodeConfig)
	image.RegisterFormat("tiff", "II*\x00", tiff.Decode, tiff.DecodeConfig)
	image.RegisterFormat("tiff", "MM\x00*", tiff.Decode, tiff.DecodeConfig)
	image.RegisterFormat("webp", "RIFF????WEBP", webp.Decode, webp.DecodeConfig)
}

// Result is the outcome of Decode: exactly one of Still or GIF is set.
// GIF is kept in its native form (rather than immediately expanded into
// composited frames) so the animation pipeline can lazily decode and
// resize each frame only when it is about to be needed, per spec.md
// §4.C's memory-bounded animation loading requirement.
type Result struct {
	Still image.Image
	GIF   *gif.GIF
}

// Decode sniffs r's content (never a file extension, per spec.md §4.C) and
// decodes it as either a still image or, for animated GIF, the frame
// sequence. PNG/JPEG/GIF decoders come from the standard library, the
// remaining formats from golang.org/x/image, matching the format coverage
// DeedleFake's smoothpaper teacher never needed but the pack's own
// gogpu-gg example carries as a dependency for the same reason.
func Decode(r io.Reader) (Result, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(6)
	if err != nil && err != io.EOF {
		return Result{}, fmt.Errorf("imagepipe: reading header: %w", err)
	}

	if isGIF(head) {
		g, err := gif.DecodeAll(br)
		if err != nil {
			return Result{}, fmt.Errorf("imagepipe: gif: %w", err)
		}
		if len(g.Image) == 1 {
			return Result{Still: g.Image[0]}, nil
		}
		return Result{GIF: g}, nil
	}

	img, format, err := image.Decode(br)
	if err != nil {
		return Result{}, fmt.Errorf("imagepipe: decode: %w", err)
	}
	_ = format
	return Result{Still: img}, nil
}

func isGIF(head []byte) bool {
	return bytes.HasPrefix(head, []byte("GIF87a")) || bytes.HasPrefix(head, []byte("GIF89a"))
}

// used to keep stdlib png/jpeg registered even though we never call them by
// name directly; image.Decode dispatches to them via RegisterFormat done in
// their own package init()s.
var (
	_ = png.Decode
	_ = jpeg.Decode
)
