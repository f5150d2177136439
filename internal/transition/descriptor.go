// Package transition implements component D: a pure function producing a
// lazy, finite, cancellable sequence of intermediate frames between two
// equal-geometry pixel.Frame values.
//
// Grounded on original_source/daemon/src/animations/transitions.rs's
// shape dispatch (simple/fade/wipe/wave/grow/outer/center + directional
// aliases), reimplemented with Go 1.23 range-over-func iterators the way
// the teacher already leans on modern-Go idioms (math/rand/v2).
package transition

import "fmt"

// Type names a transition shape or meta-selector.
type Type string

const (
	TypeNone   Type = "none"
	TypeSimple Type = "simple"
	TypeFade   Type = "fade"
	TypeWipe   Type = "wipe"
	TypeWave   Type = "wave"
	TypeGrow   Type = "grow"
	TypeOuter  Type = "outer"
	TypeCenter Type = "center"
	TypeAny    Type = "any"
	TypeRandom Type = "random"
	TypeLeft   Type = "left"
	TypeRight  Type = "right"
	TypeTop    Type = "top"
	TypeBottom Type = "bottom"
)

// ParseType parses the --transition-type flag value.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeNone, TypeSimple, TypeFade, TypeWipe, TypeWave, TypeGrow, TypeOuter,
		TypeCenter, TypeAny, TypeRandom, TypeLeft, TypeRight, TypeTop, TypeBottom:
		return Type(s), nil
	default:
		return "", fmt.Errorf("transition: unrecognized type %q", s)
	}
}

// randomPool is the pool `random` picks uniformly from: the seven concrete
// shapes, excluding the meta-selectors none/any/random and the directional
// aliases (which just reparametrize wipe).
var randomPool = []Type{TypeSimple, TypeFade, TypeWipe, TypeWave, TypeGrow, TypeOuter, TypeCenter}

// anyPool is the pool `any` picks uniformly from, per spec.md's literal
// text ("any picks uniformly between center and outer").
var anyPool = []Type{TypeCenter, TypeOuter}

// Position is an origin for grow/outer/center, in either percentage
// (0..100) or absolute pixel coordinates.
type Position struct {
	X, Y       float64
	Percentage bool
}

// CenterPosition is the default origin used when Pos is the zero value and
// the shape needs one (center, and grow/outer with no explicit --transition-pos).
var CenterPosition = Position{X: 50, Y: 50, Percentage: true}

// Descriptor is the full parameter set for one transition invocation,
// matching spec.md §4.D's field list exactly.
type Descriptor struct {
	Type       Type
	Step       uint8 // [1,255]
	FPS        uint8 // [1,255]
	DurationMS uint32
	Bezier     [4]float64 // x1,y1,x2,y2
	AngleDeg   float64
	Pos        Position
	InvertY    bool
	WaveSize   [2]int
}

// resolvedPos converts a Position into absolute pixel coordinates
// within a width x height canvas, honoring InvertY (origin at bottom-left
// rather than top-left).
func (d Descriptor) resolvedPos(width, height int) (x, y float64) {
	p := d.Pos
	if p == (Position{}) {
		p = CenterPosition
	}
	if p.Percentage {
		x = p.X / 100 * float64(width)
		y = p.Y / 100 * float64(height)
	} else {
		x, y = p.X, p.Y
	}
	if d.InvertY {
		y = float64(height) - y
	}
	return x, y
}
