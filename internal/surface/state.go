// Package surface implements the per-output state machine of spec.md
// §4.F: one Surface per advertised wl_output, each owning a layer-shell
// surface, a wl_shm-backed buffer pool, and exactly one active content
// source (a still anchor, a running transition, or a running player).
//
// Grounded on matjam-smoothpaper/internal/wlrenderer/wlrenderer.go's
// registry/output/layer-surface-configure event handling: the non-cgo
// lifecycle logic (bind layer surface, react to configure, track scale)
// is kept and generalized; the EGL/GL drawing half is replaced with the
// wl_shm attach/damage/commit sequence this daemon actually needs (see
// DESIGN.md for why the GL half was dropped rather than adapted).
package surface

// State names the four points of spec.md §4.F's state machine.
type State int

const (
	// Unconfigured is the state before the compositor's first configure
	// event; no geometry is known and nothing can be drawn.
	Unconfigured State = iota
	// Configured is idle: geometry is known, an anchor frame is on
	// screen, no transition or animation is running.
	Configured
	// Transitioning is set while a transition.Frames sequence is being
	// drawn from the previous anchor toward a new one.
	Transitioning
	// Animating is set while a player.Player loop is driving an
	// anim.Animation.
	Animating
)

func (s State) String() string {
	switch s {
	case Unconfigured:
		return "unconfigured"
	case Configured:
		return "configured"
	case Transitioning:
		return "transitioning"
	case Animating:
		return "animating"
	default:
		return "unknown"
	}
}
