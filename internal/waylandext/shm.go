package waylandext

import (
	"os"

	"deedles.dev/wl/wire"
)

// ShmFormat mirrors wl_shm.format's enum values relevant to this daemon.
type ShmFormat uint32

const (
	ShmFormatARGB8888 ShmFormat = 0
	ShmFormatXRGB8888 ShmFormat = 1
)

// Shm is wl_shm.
type Shm struct {
	objBase
	client *Client

	// Formats records every wl_shm.format event seen. Nothing in the
	// daemon reads it; internal/surface always creates xrgb8888 buffers.
	Formats []ShmFormat
}

// BindShm binds the wl_shm global.
func BindShm(client *Client, reg *Registry, g Global) *Shm {
	s := &Shm{client: client}
	reg.Bind(g.Name, "wl_shm", g.Version, s)
	return s
}

// CreatePool issues wl_shm.create_pool (opcode 0), passing fd as ancillary
// data via WriteFile.
func (s *Shm) CreatePool(fd *os.File, size int32) (*ShmPool, error) {
	id := s.client.reserveID()
	pool := &ShmPool{client: s.client}
	s.client.bindID(id, pool)

	msg := wire.NewMessage(s, 0)
	msg.Method = "wl_shm.create_pool"
	msg.WriteUint(id)
	msg.WriteFile(fd)
	msg.WriteInt(size)
	if err := s.client.enqueue(msg); err != nil {
		return nil, err
	}
	return pool, nil
}

func (s *Shm) Dispatch(msg *wire.MessageBuffer) error {
	if msg.Op() != 0 {
		return nil
	}
	format := msg.ReadUint()
	if err := msg.Err(); err != nil {
		return err
	}
	s.Formats = append(s.Formats, ShmFormat(format))
	return nil
}

// ShmPool is wl_shm_pool.
type ShmPool struct {
	objBase
	client *Client
}

// CreateBuffer issues wl_shm_pool.create_buffer (opcode 0).
func (p *ShmPool) CreateBuffer(offset, width, height, stride int32, format ShmFormat) (*Buffer, error) {
	id := p.client.reserveID()
	buf := &Buffer{client: p.client}
	p.client.bindID(id, buf)

	msg := wire.NewMessage(p, 0)
	msg.Method = "wl_shm_pool.create_buffer"
	msg.WriteUint(id)
	msg.WriteInt(offset)
	msg.WriteInt(width)
	msg.WriteInt(height)
	msg.WriteInt(stride)
	msg.WriteUint(uint32(format))
	if err := p.client.enqueue(msg); err != nil {
		return nil, err
	}
	return buf, nil
}

// Resize issues wl_shm_pool.resize (opcode 2), called after the backing
// memfd has been grown via ftruncate.
func (p *ShmPool) Resize(size int32) error {
	msg := wire.NewMessage(p, 2)
	msg.Method = "wl_shm_pool.resize"
	msg.WriteInt(size)
	return p.client.enqueue(msg)
}

func (p *ShmPool) Destroy() error {
	msg := wire.NewMessage(p, 1)
	msg.Method = "wl_shm_pool.destroy"
	err := p.client.enqueue(msg)
	p.client.release(p.ID())
	return err
}

func (p *ShmPool) Dispatch(msg *wire.MessageBuffer) error { return nil }
