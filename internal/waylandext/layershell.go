// zwlr_layer_shell_v1 / zwlr_layer_surface_v1, per
// wlr-layer-shell-unstable-v1.xml: the protocol extension that lets a
// client anchor a surface to the desktop background rather than a normal
// toplevel window, which is how the daemon paints wallpapers at all.
// deedles.dev/wl does not ship this extension (it isn't part of core
// wayland.xml); hand-extended here directly on wire.Object per this
// package's doc comment.
package waylandext

import "deedles.dev/wl/wire"

// LayerShellLayer is zwlr_layer_shell_v1's layer enum.
type LayerShellLayer uint32

const (
	LayerBackground LayerShellLayer = 0
	LayerBottom     LayerShellLayer = 1
	LayerTop        LayerShellLayer = 2
	LayerOverlay    LayerShellLayer = 3
)

// LayerSurfaceAnchor is zwlr_layer_surface_v1's anchor bitmask.
type LayerSurfaceAnchor uint32

const (
	AnchorTop    LayerSurfaceAnchor = 1
	AnchorBottom LayerSurfaceAnchor = 2
	AnchorLeft   LayerSurfaceAnchor = 4
	AnchorRight  LayerSurfaceAnchor = 8
)

// AnchorFill anchors a surface to all four edges, the configuration
// spec.md §4.F requires ("anchored to all four edges").
const AnchorFill = AnchorTop | AnchorBottom | AnchorLeft | AnchorRight

// LayerShell is zwlr_layer_shell_v1.
type LayerShell struct {
	objBase
	client *Client
}

// BindLayerShell binds the zwlr_layer_shell_v1 global g.
func BindLayerShell(client *Client, reg *Registry, g Global) *LayerShell {
	ls := &LayerShell{client: client}
	reg.Bind(g.Name, "zwlr_layer_shell_v1", g.Version, ls)
	return ls
}

// GetLayerSurface issues get_layer_surface (opcode 0). output may be nil
// to let the compositor choose (not used by this daemon, which always
// binds one layer surface per output).
func (ls *LayerShell) GetLayerSurface(surface *Surface, output *Output, layer LayerShellLayer, namespace string) (*LayerSurface, error) {
	id := ls.client.reserveID()
	lsurf := &LayerSurface{client: ls.client}
	ls.client.bindID(id, lsurf)

	msg := wire.NewMessage(ls, 0)
	msg.Method = "zwlr_layer_shell_v1.get_layer_surface"
	msg.WriteUint(id)
	msg.WriteObject(surface)
	msg.WriteObject(output)
	msg.WriteUint(uint32(layer))
	msg.WriteString(namespace)
	if err := ls.client.enqueue(msg); err != nil {
		return nil, err
	}
	return lsurf, nil
}

func (ls *LayerShell) Dispatch(msg *wire.MessageBuffer) error { return nil }

// LayerSurface is zwlr_layer_surface_v1.
type LayerSurface struct {
	objBase
	client *Client

	// Configure fires when the compositor assigns (or reassigns) this
	// surface's geometry; the handler answers with AckConfigure(serial)
	// before the surface's next commit, per the protocol's required
	// handshake.
	Configure func(serial uint32, width, height uint32)
	Closed    func()
}

func (l *LayerSurface) SetSize(width, height uint32) error {
	msg := wire.NewMessage(l, 0)
	msg.Method = "zwlr_layer_surface_v1.set_size"
	msg.WriteUint(width)
	msg.WriteUint(height)
	return l.client.enqueue(msg)
}

func (l *LayerSurface) SetAnchor(anchor LayerSurfaceAnchor) error {
	msg := wire.NewMessage(l, 1)
	msg.Method = "zwlr_layer_surface_v1.set_anchor"
	msg.WriteUint(uint32(anchor))
	return l.client.enqueue(msg)
}

// SetExclusiveZone with -2, per spec.md §4.F, tells the compositor this
// surface should not be pushed around by exclusive-zone panels/bars and
// should not itself reserve any space.
func (l *LayerSurface) SetExclusiveZone(zone int32) error {
	msg := wire.NewMessage(l, 2)
	msg.Method = "zwlr_layer_surface_v1.set_exclusive_zone"
	msg.WriteInt(zone)
	return l.client.enqueue(msg)
}

func (l *LayerSurface) SetMargin(top, right, bottom, left int32) error {
	msg := wire.NewMessage(l, 3)
	msg.Method = "zwlr_layer_surface_v1.set_margin"
	msg.WriteInt(top)
	msg.WriteInt(right)
	msg.WriteInt(bottom)
	msg.WriteInt(left)
	return l.client.enqueue(msg)
}

func (l *LayerSurface) SetKeyboardInteractivity(v uint32) error {
	msg := wire.NewMessage(l, 4)
	msg.Method = "zwlr_layer_surface_v1.set_keyboard_interactivity"
	msg.WriteUint(v)
	return l.client.enqueue(msg)
}

func (l *LayerSurface) AckConfigure(serial uint32) error {
	msg := wire.NewMessage(l, 6)
	msg.Method = "zwlr_layer_surface_v1.ack_configure"
	msg.WriteUint(serial)
	return l.client.enqueue(msg)
}

func (l *LayerSurface) Destroy() error {
	msg := wire.NewMessage(l, 7)
	msg.Method = "zwlr_layer_surface_v1.destroy"
	err := l.client.enqueue(msg)
	l.client.release(l.ID())
	return err
}

func (l *LayerSurface) Dispatch(msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case 0:
		serial := msg.ReadUint()
		width := msg.ReadUint()
		height := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		if l.Configure != nil {
			l.Configure(serial, width, height)
		}
	case 1:
		if err := msg.Err(); err != nil {
			return err
		}
		if l.Closed != nil {
			l.Closed()
		}
	}
	return nil
}
