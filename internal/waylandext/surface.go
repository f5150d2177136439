package waylandext

import "deedles.dev/wl/wire"

// Surface is wl_surface, opcodes per the upstream wayland.xml core
// protocol: destroy=0, attach=1, damage=2, frame=3, commit=6,
// set_buffer_scale=8.
type Surface struct {
	objBase
	client *Client

	Enter func(outputID uint32)
	Leave func(outputID uint32)
}

func (s *Surface) Attach(buf *Buffer, x, y int32) error {
	msg := wire.NewMessage(s, 1)
	msg.Method = "wl_surface.attach"
	msg.WriteObject(buf)
	msg.WriteInt(x)
	msg.WriteInt(y)
	return s.client.enqueue(msg)
}

func (s *Surface) Damage(x, y, width, height int32) error {
	msg := wire.NewMessage(s, 2)
	msg.Method = "wl_surface.damage"
	msg.WriteInt(x)
	msg.WriteInt(y)
	msg.WriteInt(width)
	msg.WriteInt(height)
	return s.client.enqueue(msg)
}

// Frame requests a one-shot callback fired once the compositor is ready
// for the next update, the sole signal internal/surface's draw loop
// treats as license to attach the next buffer, per spec.md §4.F.
func (s *Surface) Frame(done func(callbackData uint32)) error {
	id := s.client.reserveID()
	cb := &Callback{Done: done}
	s.client.bindID(id, cb)

	msg := wire.NewMessage(s, 3)
	msg.Method = "wl_surface.frame"
	msg.WriteUint(id)
	return s.client.enqueue(msg)
}

func (s *Surface) Commit() error {
	msg := wire.NewMessage(s, 6)
	msg.Method = "wl_surface.commit"
	return s.client.enqueue(msg)
}

func (s *Surface) SetBufferScale(scale int32) error {
	msg := wire.NewMessage(s, 8)
	msg.Method = "wl_surface.set_buffer_scale"
	msg.WriteInt(scale)
	return s.client.enqueue(msg)
}

func (s *Surface) Destroy() error {
	msg := wire.NewMessage(s, 0)
	msg.Method = "wl_surface.destroy"
	err := s.client.enqueue(msg)
	s.client.release(s.ID())
	return err
}

func (s *Surface) Dispatch(msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case 0: // enter
		id := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		if s.Enter != nil {
			s.Enter(id)
		}
	case 1: // leave
		id := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		if s.Leave != nil {
			s.Leave(id)
		}
	}
	return nil
}

// Buffer is wl_buffer.
type Buffer struct {
	objBase
	client *Client

	// Release is invoked on the compositor's release event: the sole
	// signal (per spec.md §5) that returns a bufpool.Buffer to the
	// available set.
	Release func()
}

func (b *Buffer) Destroy() error {
	msg := wire.NewMessage(b, 0)
	msg.Method = "wl_buffer.destroy"
	err := b.client.enqueue(msg)
	b.client.release(b.ID())
	return err
}

func (b *Buffer) Dispatch(msg *wire.MessageBuffer) error {
	if msg.Op() != 0 {
		return nil
	}
	if err := msg.Err(); err != nil {
		return err
	}
	if b.Release != nil {
		b.Release()
	}
	return nil
}
