package waylandext

import (
	"sync"

	"deedles.dev/wl/wire"
)

// Display is wl_display, always bound to object ID 1.
type Display struct {
	objBase
	client *Client

	// Error, if set, is invoked on a fatal protocol error event from the
	// compositor. internal/daemon does not set it.
	Error func(objectID, code uint32, message string)
}

// Sync sends wl_display.sync and invokes done when the compositor's
// resulting callback fires. It is the mechanism RoundTrip and the initial
// registry enumeration use to know "every prior request has been
// processed".
func (d *Display) Sync(done func()) error {
	id := d.client.reserveID()
	cb := &Callback{Done: func(uint32) { done() }}
	d.client.bindID(id, cb)

	msg := wire.NewMessage(d, 0)
	msg.Method = "wl_display.sync"
	msg.WriteUint(id)
	return d.client.enqueue(msg)
}

// GetRegistry binds a wl_registry to enumerate compositor globals.
func (d *Display) GetRegistry() (*Registry, error) {
	id := d.client.reserveID()
	reg := &Registry{client: d.client, globals: map[uint32]Global{}}
	d.client.bindID(id, reg)

	msg := wire.NewMessage(d, 1)
	msg.Method = "wl_display.get_registry"
	msg.WriteUint(id)
	if err := d.client.enqueue(msg); err != nil {
		return nil, err
	}
	return reg, nil
}

// Dispatch handles wl_display events: error (op 0) and delete_id (op 1).
func (d *Display) Dispatch(msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case 0:
		objectID := msg.ReadUint()
		code := msg.ReadUint()
		message := msg.ReadString()
		if err := msg.Err(); err != nil {
			return err
		}
		if d.Error != nil {
			d.Error(objectID, code, message)
		}
		return nil
	case 1:
		id := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		d.client.release(id)
		return nil
	default:
		return nil
	}
}

// Callback is wl_callback: a one-shot event, used by Sync and wl_surface's
// frame request.
type Callback struct {
	objBase
	Done func(data uint32)
}

func (c *Callback) Dispatch(msg *wire.MessageBuffer) error {
	if msg.Op() != 0 {
		return nil
	}
	data := msg.ReadUint()
	if err := msg.Err(); err != nil {
		return err
	}
	if c.Done != nil {
		c.Done(data)
	}
	return nil
}

// Global is one wl_registry.global advertisement.
type Global struct {
	Name      uint32
	Interface string
	Version   uint32
}

// Registry is wl_registry.
type Registry struct {
	objBase
	client *Client

	mu      sync.Mutex
	globals map[uint32]Global

	// OnGlobal, if set, is called for every global announced after
	// registration (in addition to being recorded in Globals()).
	OnGlobal func(Global)
}

// Globals returns a snapshot of every global seen so far.
func (r *Registry) Globals() []Global {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Global, 0, len(r.globals))
	for _, g := range r.globals {
		out = append(out, g)
	}
	return out
}

// Find returns the first global whose interface name matches, if any.
func (r *Registry) Find(iface string) (Global, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, g := range r.globals {
		if g.Interface == iface {
			return g, true
		}
	}
	return Global{}, false
}

// Bind requests a proxy for global name/interface/version and registers
// obj under the newly reserved ID, returning that ID for the caller's
// bookkeeping (the caller already constructed obj with matching state).
func (r *Registry) Bind(name uint32, iface string, version uint32, obj wire.Object) uint32 {
	id := r.client.reserveID()
	r.client.bindID(id, obj)

	msg := wire.NewMessage(r, 0)
	msg.Method = "wl_registry.bind"
	msg.WriteUint(name)
	msg.WriteString(iface)
	msg.WriteUint(version)
	msg.WriteUint(id)
	r.client.enqueue(msg)
	return id
}

// Dispatch handles wl_registry events: global (op 0) and global_remove (op 1).
func (r *Registry) Dispatch(msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case 0:
		name := msg.ReadUint()
		iface := msg.ReadString()
		version := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		g := Global{Name: name, Interface: iface, Version: version}
		r.mu.Lock()
		r.globals[name] = g
		r.mu.Unlock()
		if r.OnGlobal != nil {
			r.OnGlobal(g)
		}
		return nil
	case 1:
		name := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		r.mu.Lock()
		delete(r.globals, name)
		r.mu.Unlock()
		return nil
	default:
		return nil
	}
}
