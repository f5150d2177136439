package surface

import (
	"fmt"

	"github.com/swwwgo/swwwgo/internal/bufpool"
	"github.com/swwwgo/swwwgo/internal/pixel"
	"github.com/swwwgo/swwwgo/internal/waylandext"
)

// wlSink implements player.Sink (and is used directly by the transition
// driver too) by running the draw loop of spec.md §4.F: acquire a buffer
// from the pool, write pixels, attach, damage the full surface, request
// the next frame callback, commit — and block until that callback fires
// before a subsequent Present proceeds, which is the sole mechanism that
// couples presentation to the compositor instead of a busy-wait timer.
type wlSink struct {
	surface *waylandext.Surface
	pool    *bufpool.Pool
	shmPool *waylandext.ShmPool
	format  waylandext.ShmFormat

	// wlBuffers caches one wl_buffer proxy per pool slot, keyed by the
	// bufpool.Buffer's pointer identity; Reset drops the cache when the
	// pool's geometry (and therefore every slot's offset/size) changes.
	wlBuffers map[*bufpool.Buffer]*waylandext.Buffer

	// frameReady is buffered with capacity 1: a pending frame callback is
	// a single fact, not a queue, matching wl_surface.frame's own
	// one-shot semantics.
	frameReady chan struct{}
}

func newWlSink(surf *waylandext.Surface, pool *bufpool.Pool) *wlSink {
	s := &wlSink{
		surface:    surf,
		pool:       pool,
		wlBuffers:  make(map[*bufpool.Buffer]*waylandext.Buffer),
		frameReady: make(chan struct{}, 1),
	}
	s.frameReady <- struct{}{} // no buffer attached yet; the first Present need not wait
	return s
}

// setPool points the sink at a freshly created wl_shm_pool after a
// (re)configure, invalidating any cached wl_buffer proxies from the
// previous geometry.
func (s *wlSink) setPool(shmPool *waylandext.ShmPool, format waylandext.ShmFormat) {
	s.shmPool = shmPool
	s.format = format
	s.wlBuffers = make(map[*bufpool.Buffer]*waylandext.Buffer)
}

// Present implements player.Sink and is also called directly by
// Surface.runTransition for each transition tick.
func (s *wlSink) Present(f pixel.Frame) error {
	<-s.frameReady

	buf, err := s.pool.Acquire()
	if err != nil {
		return fmt.Errorf("surface: acquire buffer: %w", err)
	}
	for buf == nil {
		// Cap reached and every buffer busy: spec.md §4.B says the caller
		// waits for a release. There is no separate release-notification
		// channel here since pool mutation happens only on this same
		// goroutine's Present/Release calls; a full pool at this point
		// means the compositor has stopped releasing buffers, which the
		// frameReady gate above already throttles against.
		buf, err = s.pool.Acquire()
		if err != nil {
			return fmt.Errorf("surface: acquire buffer: %w", err)
		}
	}

	writeFrame(buf, f)
	buf.MarkBusy()

	wbuf, err := s.wlBufferFor(buf)
	if err != nil {
		return err
	}

	if err := s.surface.Attach(wbuf, 0, 0); err != nil {
		return fmt.Errorf("surface: attach: %w", err)
	}
	if err := s.surface.Frame(func(uint32) {
		select {
		case s.frameReady <- struct{}{}:
		default:
		}
	}); err != nil {
		return fmt.Errorf("surface: request frame callback: %w", err)
	}
	if err := s.surface.Damage(0, 0, int32(f.Width), int32(f.Height)); err != nil {
		return fmt.Errorf("surface: damage: %w", err)
	}
	return s.surface.Commit()
}

func (s *wlSink) wlBufferFor(buf *bufpool.Buffer) (*waylandext.Buffer, error) {
	if wbuf, ok := s.wlBuffers[buf]; ok {
		return wbuf, nil
	}
	if s.shmPool == nil {
		return nil, fmt.Errorf("surface: no wl_shm_pool bound")
	}
	wbuf, err := s.shmPool.CreateBuffer(int32(buf.Offset), int32(buf.Width), int32(buf.Height), int32(buf.Stride), s.format)
	if err != nil {
		return nil, fmt.Errorf("surface: create_buffer: %w", err)
	}
	wbuf.Release = func() { buf.Release() }
	s.wlBuffers[buf] = wbuf
	return wbuf, nil
}

func writeFrame(buf *bufpool.Buffer, f pixel.Frame) {
	rows := f.Height
	if buf.Height < rows {
		rows = buf.Height
	}
	rowBytes := f.Stride
	if buf.Stride < rowBytes {
		rowBytes = buf.Stride
	}
	for y := 0; y < rows; y++ {
		src := f.RowBytes(y)[:rowBytes]
		dstStart := y * buf.Stride
		copy(buf.Data[dstStart:dstStart+rowBytes], src)
	}
}
