package imagepipe

import (
	"math"
	"strings"

	"golang.org/x/image/draw"
)

// Filter names the resize kernel requested by --filter.
type Filter string

const (
	FilterNearest    Filter = "nearest"
	FilterBilinear   Filter = "bilinear"
	FilterCatmullRom Filter = "catmullrom"
	FilterMitchell   Filter = "mitchell"
	FilterLanczos3   Filter = "lanczos3"
)

// ParseFilter parses the --filter flag value and resolves it to a
// golang.org/x/image/draw.Interpolator; names match case-insensitively.
// Nearest, Bilinear and CatmullRom are the library's own named kernels;
// Mitchell and Lanczos3 are hand-built via draw.NewKernel since the library
// does not ship them.
func ParseFilter(s string) (draw.Interpolator, error) {
	switch Filter(strings.ToLower(s)) {
	case FilterNearest:
		return draw.NearestNeighbor, nil
	case FilterBilinear:
		return draw.ApproxBiLinear, nil
	case FilterCatmullRom:
		return draw.CatmullRom, nil
	case FilterMitchell:
		return mitchellKernel, nil
	case FilterLanczos3:
		return lanczos3Kernel, nil
	default:
		return nil, &UnsupportedFilterError{Filter: s}
	}
}

// UnsupportedFilterError is returned by ParseFilter for unknown values.
type UnsupportedFilterError struct{ Filter string }

func (e *UnsupportedFilterError) Error() string {
	return "imagepipe: unsupported filter " + e.Filter
}

// mitchellKernel is the Mitchell-Netravali cubic filter (B=1/3, C=1/3),
// support radius 2, in the piecewise form used by most image resamplers.
var mitchellKernel = draw.NewKernel(2, mitchellAt)

func mitchellAt(t float64) float64 {
	const b = 1.0 / 3.0
	const c = 1.0 / 3.0
	if t < 0 {
		t = -t
	}
	if t < 1 {
		return ((12-9*b-6*c)*t*t*t +
			(-18+12*b+6*c)*t*t +
			(6 - 2*b)) / 6
	}
	if t < 2 {
		return ((-b-6*c)*t*t*t +
			(6*b+30*c)*t*t +
			(-12*b-48*c)*t +
			(8*b + 24*c)) / 6
	}
	return 0
}

// lanczos3Kernel is the Lanczos windowed-sinc filter with a=3, support
// radius 3.
var lanczos3Kernel = draw.NewKernel(3, lanczos3At)

func lanczos3At(t float64) float64 {
	const a = 3.0
	if t < 0 {
		t = -t
	}
	if t == 0 {
		return 1
	}
	if t >= a {
		return 0
	}
	return a * math.Sin(math.Pi*t) * math.Sin(math.Pi*t/a) / (math.Pi * math.Pi * t * t)
}
