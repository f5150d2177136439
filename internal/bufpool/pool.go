// Package bufpool implements the shared-memory buffer pool of spec.md
// §4.B: a growable memfd-backed mmap segment that hands out pixel buffers
// tracked by compositor release events.
//
// Grounded on deedles.dev/wl's shm.Map/shm.Create helpers (mmap over an
// os.File-backed shared memory segment) and on the busy/stale bookkeeping
// of original_source/daemon/src/bump_pool.rs and raw_pool.rs, adapted to a
// memfd-backed segment (golang.org/x/sys/unix.MemfdCreate) so the same fd
// can later be handed to the compositor via wl_shm.create_pool without a
// throwaway file on disk.
package bufpool

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// DefaultCap is the sanity cap on the number of in-flight buffers a pool
// will allocate before callers must wait for a release.
const DefaultCap = 4

// Buffer is a pool-owned pixel buffer backed by a slice of the pool's
// shared memory mapping. Attach sets it busy; Release (called by the
// compositor release-event handler) returns it to the free set.
type Buffer struct {
	pool   *Pool
	index  int
	Offset int
	Stride int
	Width  int
	Height int
	// Data is the buffer's pixel memory: a view into the pool's mmap.
	// Never write to Data while Busy is true.
	Data []byte

	busy  bool
	stale bool
}

func (b *Buffer) Busy() bool { return b.busy }

// MarkBusy is called by internal/surface right before attach+commit.
func (b *Buffer) MarkBusy() {
	if b.busy {
		panic("bufpool: buffer already busy")
	}
	b.busy = true
}

// Release is called on the compositor's wl_buffer.release event.
func (b *Buffer) Release() {
	b.pool.release(b)
}

// Pool owns a growable memfd-backed shared memory segment and slices it
// into fixed-geometry buffers.
//
// spec.md §5 describes the reference daemon's single event-loop thread,
// where pool mutations need no lock at all. This port instead runs each
// Surface's transition/animation on its own goroutine (see DESIGN.md's
// Open Question on concurrency model), which calls Acquire/grow via
// player.Sink.Present from that goroutine while Reconfigure fires on the
// Wayland-dispatch goroutine and Release fires from the compositor's
// wl_buffer.release handler on yet another one — so mu here guards every
// field below, not just the mmap.
type Pool struct {
	mu sync.Mutex

	file *os.File
	mmap []byte
	size int

	cap int

	width, height, stride int
	slotSize              int

	buffers []*Buffer
	free    []*Buffer

	// reservedEnd is the mmap byte offset below which grow() must not place
	// a freshly geometry'd buffer, because a buffer from a prior geometry
	// still occupies it and the compositor hasn't released it yet.
	// Reconfigure raises it past any such still-busy buffer instead of
	// resetting the allocation counter to 0, so a live resize can never let
	// a new buffer's memory range overlap one still being scanned out.
	// Like ensureCapacity's mmap growth, it only ever grows.
	reservedEnd int
}

// New creates an empty pool with the given sanity cap on in-flight
// buffers.
func New(cap int) (*Pool, error) {
	if cap <= 0 {
		cap = DefaultCap
	}
	fd, err := unix.MemfdCreate("swwwgo-shm", unix.MFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("bufpool: memfd_create: %w", err)
	}
	file := os.NewFile(uintptr(fd), "swwwgo-shm")
	return &Pool{file: file, cap: cap}, nil
}

// File returns the pool's backing file descriptor, to be passed to
// wl_shm.create_pool.
func (p *Pool) File() *os.File { return p.file }

// Reconfigure sets the pool's buffer geometry. Existing buffers are marked
// stale; they are drained (removed from the free set, never handed out
// again) as their releases arrive, per spec.md §4.B. Any buffer that is
// still busy when Reconfigure is called (the compositor hasn't released it
// yet — plausible during a live resize) has its memory range reserved
// until grow() is free to reuse the space, so a still-scanned-out buffer's
// pixels are never overwritten.
func (p *Pool) Reconfigure(width, height, stride int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.width == width && p.height == height && p.stride == stride {
		return
	}
	for _, b := range p.buffers {
		b.stale = true
		if b.busy {
			if end := b.Offset + p.slotSize; end > p.reservedEnd {
				p.reservedEnd = end
			}
		}
	}
	p.width, p.height, p.stride = width, height, stride
	p.slotSize = stride * height
	p.buffers = nil
	p.free = nil
}

// Acquire returns a non-busy, non-stale buffer at the pool's current
// geometry, allocating a new one (up to the cap) if none is free. It
// returns nil if the cap has been reached and every buffer is busy; the
// caller (internal/surface) must wait for a release in that case.
func (p *Pool) Acquire() (*Buffer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for len(p.free) > 0 {
		b := p.free[len(p.free)-1]
		p.free = p.free[:len(p.free)-1]
		if b.stale {
			continue
		}
		return b, nil
	}
	if len(p.buffers) >= p.cap {
		return nil, nil
	}
	return p.grow()
}

// grow allocates the next buffer at the current geometry. Callers must
// hold p.mu.
func (p *Pool) grow() (*Buffer, error) {
	if p.slotSize <= 0 {
		return nil, fmt.Errorf("bufpool: Reconfigure must be called before Acquire")
	}
	offset := p.reservedEnd + len(p.buffers)*p.slotSize
	needed := offset + p.slotSize
	if err := p.ensureCapacityLocked(needed); err != nil {
		return nil, err
	}
	b := &Buffer{
		pool:   p,
		index:  len(p.buffers),
		Offset: offset,
		Stride: p.stride,
		Width:  p.width,
		Height: p.height,
		Data:   p.mmap[offset : offset+p.slotSize],
	}
	p.buffers = append(p.buffers, b)
	return b, nil
}

// ensureCapacityLocked grows the mmap to at least size bytes. Callers must
// hold p.mu.
func (p *Pool) ensureCapacityLocked(size int) error {
	if size <= p.size {
		return nil
	}
	// Grow geometrically to bound the number of ftruncate/mmap calls, but
	// never smaller than requested.
	newSize := p.size
	if newSize == 0 {
		newSize = size
	}
	for newSize < size {
		newSize *= 2
	}

	if err := p.file.Truncate(int64(newSize)); err != nil {
		return fmt.Errorf("bufpool: ftruncate: %w", err)
	}

	if p.mmap != nil {
		if err := unix.Munmap(p.mmap); err != nil {
			return fmt.Errorf("bufpool: munmap: %w", err)
		}
	}
	m, err := unix.Mmap(int(p.file.Fd()), 0, newSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("bufpool: mmap: %w", err)
	}
	p.mmap = m
	p.size = newSize

	// Re-slice existing buffers over the new mapping; their offsets are
	// unchanged since we only ever grow, never move.
	for _, b := range p.buffers {
		b.Data = p.mmap[b.Offset : b.Offset+p.slotSize]
	}
	return nil
}

func (p *Pool) release(b *Buffer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !b.busy {
		panic("bufpool: release of a non-busy buffer")
	}
	b.busy = false
	if b.stale {
		return
	}
	p.free = append(p.free, b)
}

// InFlight returns the number of buffers currently allocated (busy or
// free), for invariant testing: it must never exceed the pool's cap.
func (p *Pool) InFlight() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.buffers)
}

// Close releases the pool's shared memory mapping and backing file.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var err error
	if p.mmap != nil {
		err = unix.Munmap(p.mmap)
		p.mmap = nil
	}
	if cerr := p.file.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
