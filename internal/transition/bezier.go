package transition

import "math"

// cubicBezierEase evaluates a CSS-style cubic-bezier(x1,y1,x2,y2) easing
// curve at parameter t (progress along the timeline, 0..1), returning the
// eased progress y. The curve's control points are (0,0), (x1,y1),
// (x2,y2), (1,1); x is solved for by Newton-Raphson iteration on the
// bezier's parametric parameter (distinct from t, the domain of the
// eased function), the same technique the `keyframe` crate uses per
// original_source/daemon/src/animations/transitions.rs. No ecosystem
// cubic-bezier package appeared in the retrieval pack, so this one
// function is hand-rolled; see DESIGN.md.
func cubicBezierEase(x1, y1, x2, y2, t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	u := solveBezierParameter(x1, x2, t)
	return bezierComponent(u, y1, y2)
}

// bezierComponent evaluates one component of the cubic bezier defined by
// control points 0, p1, p2, 1 at parameter u.
func bezierComponent(u, p1, p2 float64) float64 {
	v := 1 - u
	return 3*v*v*u*p1 + 3*v*u*u*p2 + u*u*u
}

func bezierComponentDerivative(u, p1, p2 float64) float64 {
	v := 1 - u
	return 3*v*v*p1 + 6*v*u*(p2-p1) + 3*u*u*(1-p2)
}

// solveBezierParameter finds u such that bezierComponent(u, x1, x2) == x,
// via Newton-Raphson with a bisection fallback for robustness against
// degenerate control points (x1 or x2 outside [0,1], which the CSS spec
// allows for "overshoot" easings).
func solveBezierParameter(x1, x2, x float64) float64 {
	u := x
	for i := 0; i < 8; i++ {
		fx := bezierComponent(u, x1, x2) - x
		dfx := bezierComponentDerivative(u, x1, x2)
		if math.Abs(dfx) < 1e-6 {
			break
		}
		next := u - fx/dfx
		if next < 0 || next > 1 || math.IsNaN(next) {
			break
		}
		u = next
		if math.Abs(fx) < 1e-7 {
			return u
		}
	}

	lo, hi := 0.0, 1.0
	for i := 0; i < 30; i++ {
		mid := (lo + hi) / 2
		if bezierComponent(mid, x1, x2) < x {
			lo = mid
		} else {
			hi = mid
		}
	}
	return (lo + hi) / 2
}
