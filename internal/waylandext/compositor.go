package waylandext

import "deedles.dev/wl/wire"

// Compositor is wl_compositor.
type Compositor struct {
	objBase
	client *Client
}

// BindCompositor binds the wl_compositor global advertised by reg.
func BindCompositor(client *Client, reg *Registry, g Global) *Compositor {
	c := &Compositor{client: client}
	reg.Bind(g.Name, "wl_compositor", g.Version, c)
	return c
}

// CreateSurface issues wl_compositor.create_surface (opcode 0).
func (c *Compositor) CreateSurface() (*Surface, error) {
	id := c.client.reserveID()
	s := &Surface{client: c.client}
	c.client.bindID(id, s)

	msg := wire.NewMessage(c, 0)
	msg.Method = "wl_compositor.create_surface"
	msg.WriteUint(id)
	if err := c.client.enqueue(msg); err != nil {
		return nil, err
	}
	return s, nil
}

// Dispatch: wl_compositor has no events.
func (c *Compositor) Dispatch(msg *wire.MessageBuffer) error { return nil }
