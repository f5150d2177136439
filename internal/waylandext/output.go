package waylandext

import "deedles.dev/wl/wire"

// Output is wl_output. The daemon binds one per advertised global and
// tracks its logical geometry and scale for internal/surface.
type Output struct {
	objBase
	client *Client

	Name string // set from wl_output.name (v4+), if the compositor sends it

	Geometry func(x, y, physW, physH, subpixel int32, make, model string, transform int32)
	Mode     func(flags uint32, width, height, refresh int32)
	Done     func()
	Scale    func(factor int32)
}

// BindOutput binds the wl_output global g.
func BindOutput(client *Client, reg *Registry, g Global) *Output {
	o := &Output{client: client}
	reg.Bind(g.Name, "wl_output", g.Version, o)
	return o
}

func (o *Output) Dispatch(msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case 0:
		x := msg.ReadInt()
		y := msg.ReadInt()
		physW := msg.ReadInt()
		physH := msg.ReadInt()
		subpixel := msg.ReadInt()
		make_ := msg.ReadString()
		model := msg.ReadString()
		transform := msg.ReadInt()
		if err := msg.Err(); err != nil {
			return err
		}
		if o.Geometry != nil {
			o.Geometry(x, y, physW, physH, subpixel, make_, model, transform)
		}
	case 1:
		flags := msg.ReadUint()
		width := msg.ReadInt()
		height := msg.ReadInt()
		refresh := msg.ReadInt()
		if err := msg.Err(); err != nil {
			return err
		}
		if o.Mode != nil {
			o.Mode(flags, width, height, refresh)
		}
	case 2:
		if err := msg.Err(); err != nil {
			return err
		}
		if o.Done != nil {
			o.Done()
		}
	case 3:
		factor := msg.ReadInt()
		if err := msg.Err(); err != nil {
			return err
		}
		if o.Scale != nil {
			o.Scale(factor)
		}
	case 4: // name, wl_output v4+
		name := msg.ReadString()
		if err := msg.Err(); err != nil {
			return err
		}
		o.Name = name
	case 5: // description, wl_output v4+
		_ = msg.ReadString()
		if err := msg.Err(); err != nil {
			return err
		}
	}
	return nil
}
