// wp_viewporter / wp_viewport, per viewporter.xml: lets a surface present
// a buffer at a logical size distinct from the buffer's pixel size,
// which is how internal/surface applies fractional-scale factors without
// re-rendering at odd fractional pixel dimensions.
package waylandext

import "deedles.dev/wl/wire"

// Viewporter is wp_viewporter.
type Viewporter struct {
	objBase
	client *Client
}

// BindViewporter binds the wp_viewporter global g.
func BindViewporter(client *Client, reg *Registry, g Global) *Viewporter {
	v := &Viewporter{client: client}
	reg.Bind(g.Name, "wp_viewporter", g.Version, v)
	return v
}

// GetViewport issues get_viewport (opcode 0), extending surface with
// wp_viewport request. A surface may have at most one viewport at a time.
func (vp *Viewporter) GetViewport(surface *Surface) (*Viewport, error) {
	id := vp.client.reserveID()
	v := &Viewport{client: vp.client}
	vp.client.bindID(id, v)

	msg := wire.NewMessage(vp, 0)
	msg.Method = "wp_viewporter.get_viewport"
	msg.WriteUint(id)
	msg.WriteObject(surface)
	if err := vp.client.enqueue(msg); err != nil {
		return nil, err
	}
	return v, nil
}

func (vp *Viewporter) Dispatch(msg *wire.MessageBuffer) error { return nil }

// Viewport is wp_viewport.
type Viewport struct {
	objBase
	client *Client
}

// SetSource issues set_source (opcode 0), all wire.Fixed. Passing
// -1 for every component (wire.Fixed(-256)) resets to the buffer's full
// extent, per the protocol's "unset" convention.
func (v *Viewport) SetSource(x, y, width, height wire.Fixed) error {
	msg := wire.NewMessage(v, 0)
	msg.Method = "wp_viewport.set_source"
	msg.WriteFixed(x)
	msg.WriteFixed(y)
	msg.WriteFixed(width)
	msg.WriteFixed(height)
	return v.client.enqueue(msg)
}

// SetDestination issues set_destination (opcode 1): the logical size, in
// surface-local coordinates, the attached buffer should be presented at.
func (v *Viewport) SetDestination(width, height int32) error {
	msg := wire.NewMessage(v, 1)
	msg.Method = "wp_viewport.set_destination"
	msg.WriteInt(width)
	msg.WriteInt(height)
	return v.client.enqueue(msg)
}

func (v *Viewport) Destroy() error {
	msg := wire.NewMessage(v, 2)
	msg.Method = "wp_viewport.destroy"
	err := v.client.enqueue(msg)
	v.client.release(v.ID())
	return err
}

func (v *Viewport) Dispatch(msg *wire.MessageBuffer) error { return nil }
