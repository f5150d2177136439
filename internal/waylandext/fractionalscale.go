// wp_fractional_scale_manager_v1 / wp_fractional_scale_v1, per
// fractional-scale-v1.xml: delivers the compositor's preferred scale as a
// 120ths-of-a-unit fixed-point value instead of wl_surface's
// integer-only preferred_buffer_scale, which is what lets internal/surface
// render at e.g. 1.5x instead of rounding up to 2x.
package waylandext

import "deedles.dev/wl/wire"

// FractionalScaleManager is wp_fractional_scale_manager_v1.
type FractionalScaleManager struct {
	objBase
	client *Client
}

// BindFractionalScaleManager binds the wp_fractional_scale_manager_v1
// global g.
func BindFractionalScaleManager(client *Client, reg *Registry, g Global) *FractionalScaleManager {
	m := &FractionalScaleManager{client: client}
	reg.Bind(g.Name, "wp_fractional_scale_manager_v1", g.Version, m)
	return m
}

// GetFractionalScale issues get_fractional_scale (opcode 0).
func (m *FractionalScaleManager) GetFractionalScale(surface *Surface) (*FractionalScale, error) {
	id := m.client.reserveID()
	fs := &FractionalScale{client: m.client}
	m.client.bindID(id, fs)

	msg := wire.NewMessage(m, 0)
	msg.Method = "wp_fractional_scale_manager_v1.get_fractional_scale"
	msg.WriteUint(id)
	msg.WriteObject(surface)
	if err := m.client.enqueue(msg); err != nil {
		return nil, err
	}
	return fs, nil
}

func (m *FractionalScaleManager) Dispatch(msg *wire.MessageBuffer) error { return nil }

// FractionalScale is wp_fractional_scale_v1.
type FractionalScale struct {
	objBase
	client *Client

	// PreferredScale reports scale as scale_120ths/120.0, per the
	// protocol's fixed-point convention.
	PreferredScale func(scale120ths uint32)
}

func (f *FractionalScale) Destroy() error {
	msg := wire.NewMessage(f, 0)
	msg.Method = "wp_fractional_scale_v1.destroy"
	err := f.client.enqueue(msg)
	f.client.release(f.ID())
	return err
}

func (f *FractionalScale) Dispatch(msg *wire.MessageBuffer) error {
	if msg.Op() != 0 {
		return nil
	}
	scale := msg.ReadUint()
	if err := msg.Err(); err != nil {
		return err
	}
	if f.PreferredScale != nil {
		f.PreferredScale(scale)
	}
	return nil
}
