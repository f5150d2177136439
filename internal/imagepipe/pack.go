package imagepipe

import (
	"image"

	"github.com/swwwgo/swwwgo/internal/pixel"
)

// Pack converts an *image.RGBA canvas (as produced by Render) into a
// pixel.Frame in the given target format, writing the deterministic zero
// padding byte for 4-channel formats and never reading alpha from src:
// the daemon paints opaque backgrounds only.
func Pack(src *image.RGBA, format pixel.Format) pixel.Frame {
	w := src.Bounds().Dx()
	h := src.Bounds().Dy()
	frame := pixel.NewFrame(w, h, format)

	channels := format.Channels()
	for y := 0; y < h; y++ {
		srcRow := src.Pix[src.PixOffset(0, y+src.Bounds().Min.Y):]
		dstRow := frame.RowBytes(y)
		for x := 0; x < w; x++ {
			r := srcRow[x*4+0]
			g := srcRow[x*4+1]
			b := srcRow[x*4+2]
			o := dstRow[x*channels : x*channels+channels]
			switch format {
			case pixel.XRGB:
				o[0], o[1], o[2] = b, g, r
				o[3] = 0
			case pixel.XBGR:
				o[0], o[1], o[2] = r, g, b
				o[3] = 0
			case pixel.RGB:
				o[0], o[1], o[2] = r, g, b
			case pixel.BGR:
				o[0], o[1], o[2] = b, g, r
			}
		}
	}
	return frame
}

// Unpack is Pack's inverse: it reconstructs an opaque *image.RGBA from a
// packed pixel.Frame, used when internal/surface needs to re-resize an
// already-packed anchor frame after a compositor reconfigure without
// re-decoding the original source.
func Unpack(f pixel.Frame) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	channels := f.Format.Channels()
	for y := 0; y < f.Height; y++ {
		srcRow := f.RowBytes(y)
		dstRow := dst.Pix[dst.PixOffset(0, y):]
		for x := 0; x < f.Width; x++ {
			in := srcRow[x*channels : x*channels+channels]
			out := dstRow[x*4 : x*4+4]
			switch f.Format {
			case pixel.XRGB:
				out[0], out[1], out[2] = in[2], in[1], in[0]
			case pixel.XBGR:
				out[0], out[1], out[2] = in[0], in[1], in[2]
			case pixel.RGB:
				out[0], out[1], out[2] = in[0], in[1], in[2]
			case pixel.BGR:
				out[0], out[1], out[2] = in[2], in[1], in[0]
			}
			out[3] = 0xFF
		}
	}
	return dst
}
