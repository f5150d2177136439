// Package imagepipe implements component C: decode any supported
// still/animated format, resize/fit/pad, and channel-pack into the
// surface-negotiated pixel format.
//
// Grounded on matjam-smoothpaper/internal/xrender/scaling.go's fit-mode
// dispatch (there: center/stretched/horizontal/vertical against
// golang.org/x/image/draw.CatmullRom), generalized to spec.md §4.C's four
// fit modes and pluggable resize filters.
package imagepipe

import (
	"image"

	"golang.org/x/image/draw"
)

// FitMode selects how source and target dimensions relate.
type FitMode string

const (
	FitNo      FitMode = "no"
	FitCrop    FitMode = "crop"
	FitFit     FitMode = "fit"
	FitStretch FitMode = "stretch"
)

// ParseFitMode parses the --resize flag value.
func ParseFitMode(s string) (FitMode, error) {
	switch FitMode(s) {
	case FitNo, FitCrop, FitFit, FitStretch:
		return FitMode(s), nil
	default:
		return "", &UnsupportedFitModeError{Mode: s}
	}
}

// UnsupportedFitModeError is returned by ParseFitMode for unknown values.
type UnsupportedFitModeError struct{ Mode string }

func (e *UnsupportedFitModeError) Error() string {
	return "imagepipe: unsupported fit mode " + e.Mode
}

// Layout describes where the (possibly resized) source image lands within
// the target canvas, and at what size it was scaled to.
type Layout struct {
	// SrcScaled is the rectangle, in target-canvas coordinates, that the
	// resized source image occupies.
	SrcScaled image.Rectangle
	// CropSrc, when non-zero, is the sub-rectangle of the *original*
	// source that should be resized to fill SrcScaled (used by FitCrop).
	CropSrc image.Rectangle
}

// ComputeLayout computes where a srcW x srcH image lands on a targetW x
// targetH canvas under the given fit mode.
func ComputeLayout(srcW, srcH, targetW, targetH int, mode FitMode) Layout {
	switch mode {
	case FitStretch:
		return Layout{SrcScaled: image.Rect(0, 0, targetW, targetH)}

	case FitNo:
		x := (targetW - srcW) / 2
		y := (targetH - srcH) / 2
		return Layout{SrcScaled: image.Rect(x, y, x+srcW, y+srcH)}

	case FitCrop:
		// Uniform scale so both dimensions are >= target, then crop
		// equally on each axis.
		scale := maxF(float64(targetW)/float64(srcW), float64(targetH)/float64(srcH))
		scaledW := int(float64(srcW)*scale + 0.5)
		scaledH := int(float64(srcH)*scale + 0.5)
		cropX := (scaledW - targetW) / 2
		cropY := (scaledH - targetH) / 2
		// Translate the crop back into original source coordinates.
		srcCropX := int(float64(cropX) / scale)
		srcCropY := int(float64(cropY) / scale)
		srcCropW := int(float64(targetW) / scale)
		srcCropH := int(float64(targetH) / scale)
		if srcCropX+srcCropW > srcW {
			srcCropW = srcW - srcCropX
		}
		if srcCropY+srcCropH > srcH {
			srcCropH = srcH - srcCropY
		}
		return Layout{
			SrcScaled: image.Rect(0, 0, targetW, targetH),
			CropSrc:   image.Rect(srcCropX, srcCropY, srcCropX+srcCropW, srcCropY+srcCropH),
		}

	case FitFit:
		fallthrough
	default:
		scale := minF(float64(targetW)/float64(srcW), float64(targetH)/float64(srcH))
		if scale > 1 {
			// "never scale up past target for `no`; for `fit`, only
			// scale down when larger than target" per spec.md §4.C —
			// FitFit still uniformly scales up small images to fill as
			// much of the canvas as the aspect ratio allows.
		}
		scaledW := int(float64(srcW)*scale + 0.5)
		scaledH := int(float64(srcH)*scale + 0.5)
		x := (targetW - scaledW) / 2
		y := (targetH - scaledH) / 2
		return Layout{SrcScaled: image.Rect(x, y, x+scaledW, y+scaledH)}
	}
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// Render draws src onto a new targetW x targetH RGBA canvas pre-filled
// with fillColor, per mode and filter.
func Render(src image.Image, targetW, targetH int, mode FitMode, fillColor Color, filter draw.Interpolator) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
	fillColor.Fill(dst)

	srcBounds := src.Bounds()
	layout := ComputeLayout(srcBounds.Dx(), srcBounds.Dy(), targetW, targetH, mode)

	source := src
	sourceRect := srcBounds
	if !layout.CropSrc.Empty() {
		sourceRect = layout.CropSrc.Add(srcBounds.Min)
	}

	if mode == FitNo {
		draw.Draw(dst, layout.SrcScaled, source, sourceRect.Min, draw.Over)
		return dst
	}

	filter.Scale(dst, layout.SrcScaled, source, sourceRect, draw.Over, nil)
	return dst
}

// Color is a solid RGB fill color (rrggbb).
type Color struct{ R, G, B uint8 }

// Fill paints img entirely with c, alpha 255.
func (c Color) Fill(img *image.RGBA) {
	px := color(c)
	for y := img.Bounds().Min.Y; y < img.Bounds().Max.Y; y++ {
		row := img.Pix[img.PixOffset(img.Bounds().Min.X, y):img.PixOffset(img.Bounds().Max.X, y)]
		for i := 0; i < len(row); i += 4 {
			copy(row[i:i+4], px[:])
		}
	}
}

func color(c Color) [4]byte { return [4]byte{c.R, c.G, c.B, 0xFF} }

// ParseColor parses an "rrggbb" hex string.
func ParseColor(s string) (Color, error) {
	if len(s) != 6 {
		return Color{}, &InvalidColorError{Value: s}
	}
	var v [3]uint8
	for i := 0; i < 3; i++ {
		b, err := hexByte(s[i*2], s[i*2+1])
		if err != nil {
			return Color{}, &InvalidColorError{Value: s}
		}
		v[i] = b
	}
	return Color{R: v[0], G: v[1], B: v[2]}, nil
}

// InvalidColorError is returned by ParseColor.
type InvalidColorError struct{ Value string }

func (e *InvalidColorError) Error() string {
	return "imagepipe: invalid color " + e.Value
}

func hexByte(hi, lo byte) (uint8, error) {
	h, err := hexNibble(hi)
	if err != nil {
		return 0, err
	}
	l, err := hexNibble(lo)
	if err != nil {
		return 0, err
	}
	return h<<4 | l, nil
}

func hexNibble(c byte) (uint8, error) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', nil
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, nil
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, nil
	default:
		return 0, &InvalidColorError{Value: string(c)}
	}
}
