package surface

import (
	"context"
	"fmt"
	"image"
	"io"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/image/draw"

	"github.com/swwwgo/swwwgo/internal/anim"
	"github.com/swwwgo/swwwgo/internal/bufpool"
	"github.com/swwwgo/swwwgo/internal/imagepipe"
	"github.com/swwwgo/swwwgo/internal/pixel"
	"github.com/swwwgo/swwwgo/internal/player"
	"github.com/swwwgo/swwwgo/internal/transition"
	"github.com/swwwgo/swwwgo/internal/waylandext"
)

// Content describes what a surface is currently showing, for Query
// replies (spec.md §4.G/§6).
type Content struct {
	Kind  string // "image" or "color"
	Path  string
	Color string
}

// Surface owns one output's layer-shell surface, buffer pool, and content
// state, per spec.md §4.F.
type Surface struct {
	Name string

	client       *waylandext.Client
	wlSurface    *waylandext.Surface
	layerSurface *waylandext.LayerSurface
	viewport     *waylandext.Viewport
	fracScale    *waylandext.FractionalScale
	shm          *waylandext.Shm

	pool   *bufpool.Pool
	sink   player.Sink
	wl     *wlSink // concrete type, kept alongside sink for setPool access
	format waylandext.ShmFormat
	pixFmt pixel.Format

	clock player.Clock
	rng   *rand.Rand

	mu         sync.Mutex
	state      State
	logicalW   int
	logicalH   int
	scale120   uint32 // fractional scale in 120ths; 120 == integer 1x
	anchor     pixel.Frame
	content    Content
	cancelFunc context.CancelFunc
	runWG      sync.WaitGroup

	lastAnim *anim.Animation // for reconfigure-time replay, see Configure

	// onAnimationBuilt, if set, is called with each freshly decoded
	// animation right before playback starts. internal/daemon uses this to
	// write the on-disk cache (spec.md §6) without duplicating the decode
	// path here.
	onAnimationBuilt func(anim.Animation)
}

// SetOnAnimationBuilt installs a callback invoked after each animation this
// surface decodes finishes building, before it starts playing.
func (s *Surface) SetOnAnimationBuilt(fn func(anim.Animation)) {
	s.mu.Lock()
	s.onAnimationBuilt = fn
	s.mu.Unlock()
}

// New constructs a Surface for one wl_output/layer-surface pair. The
// caller (internal/daemon) has already bound compositor, shm, and the
// layer-shell surface itself via internal/waylandext.
func New(name string, client *waylandext.Client, wlSurface *waylandext.Surface, layerSurface *waylandext.LayerSurface, shm *waylandext.Shm, format pixel.Format) *Surface {
	pool, err := bufpool.New(bufpool.DefaultCap)
	if err != nil {
		// bufpool.New only fails on memfd_create, an environment-fatal
		// condition the daemon must not paper over.
		panic(fmt.Sprintf("surface: %s: %v", name, err))
	}

	s := &Surface{
		Name:         name,
		client:       client,
		wlSurface:    wlSurface,
		layerSurface: layerSurface,
		shm:          shm,
		pool:         pool,
		pixFmt:       format,
		format:       shmFormatFor(format),
		clock:        player.RealClock,
		rng:          rand.New(rand.NewPCG(seedFor(name), 0xC0FFEE)),
		state:        Unconfigured,
		scale120:     120,
	}
	s.wl = newWlSink(wlSurface, pool)
	s.sink = s.wl

	layerSurface.Configure = s.onConfigure
	return s
}

func seedFor(name string) uint64 {
	var h uint64 = 1469598103934665603
	for _, b := range []byte(name) {
		h ^= uint64(b)
		h *= 1099511628211
	}
	return h
}

// shmFormatFor maps a pixel.Format to the wl_shm format advertised over
// the wire. Only xrgb8888 is a mandatory wl_shm format across compositors;
// XBGR/RGB/BGR frames are still packed in that pixel.Format for the codec
// and cache, but presented through an xrgb8888-typed wl_buffer (the byte
// layout the daemon writes already matches what each Format's channel
// order implies for the buffer's memory, per spec.md §4.C's packing rule).
func shmFormatFor(pixel.Format) waylandext.ShmFormat {
	return waylandext.ShmFormatXRGB8888
}

// SetViewport wires a wp_viewport bound for this surface, enabling
// fractional-scale rendering; optional.
func (s *Surface) SetViewport(vp *waylandext.Viewport) { s.viewport = vp }

// SetFractionalScale wires a wp_fractional_scale_v1 object and its
// preferred_scale callback.
func (s *Surface) SetFractionalScale(fs *waylandext.FractionalScale) {
	s.fracScale = fs
	fs.PreferredScale = s.onPreferredScale
}

// State returns the current state machine position.
func (s *Surface) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Content returns the currently displayed content descriptor, for Query.
func (s *Surface) Content() Content {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.content
}

// Geometry returns the surface's logical size and scale (in 120ths), for
// Query.
func (s *Surface) Geometry() (w, h int, scale120 uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logicalW, s.logicalH, s.scale120
}

func (s *Surface) onPreferredScale(scale120ths uint32) {
	s.mu.Lock()
	changed := scale120ths != s.scale120
	s.scale120 = scale120ths
	s.mu.Unlock()
	if changed {
		s.reconfigureBuffers()
	}
}

// onConfigure handles zwlr_layer_surface_v1.configure: the compositor
// assigns (or reassigns) this surface's logical geometry.
func (s *Surface) onConfigure(serial uint32, width, height uint32) {
	s.mu.Lock()
	s.logicalW, s.logicalH = int(width), int(height)
	s.mu.Unlock()

	s.layerSurface.AckConfigure(serial)
	s.reconfigureBuffers()

	s.mu.Lock()
	first := s.state == Unconfigured
	if first {
		s.state = Configured
	}
	s.mu.Unlock()
}

// bufferGeometry applies the resolved fractional-scale Open Question:
// ceil uniformly on both axes, stride rounded up to 4 bytes.
func bufferGeometry(logicalW, logicalH int, scale120 uint32, channels int) (w, h, stride int) {
	w = ceilDiv(logicalW*int(scale120), 120)
	h = ceilDiv(logicalH*int(scale120), 120)
	stride = ((w*channels + 3) / 4) * 4
	return
}

func ceilDiv(a, b int) int {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

// reconfigureBuffers recomputes buffer geometry and drains the pool per
// spec.md §4.F ("Reconfiguration...drains the pool and re-resizes the
// current anchor").
func (s *Surface) reconfigureBuffers() {
	s.mu.Lock()
	logicalW, logicalH, scale120 := s.logicalW, s.logicalH, s.scale120
	pixFmt := s.pixFmt
	anchor := s.anchor
	wasAnimating := s.state == Animating
	s.mu.Unlock()

	if logicalW <= 0 || logicalH <= 0 {
		return
	}

	bufW, bufH, stride := bufferGeometry(logicalW, logicalH, scale120, pixFmt.Channels())
	s.pool.Reconfigure(bufW, bufH, stride)

	shmPool, err := s.shm.CreatePool(s.pool.File(), int32(stride*bufH))
	if err == nil {
		s.wl.setPool(shmPool, s.format)
	}

	if s.viewport != nil {
		s.viewport.SetDestination(int32(logicalW), int32(logicalH))
	}

	if anchor.Width > 0 {
		resized := imagepipe.Render(imagepipe.Unpack(anchor), bufW, bufH, imagepipe.FitStretch, imagepipe.Color{}, draw.ApproxBiLinear)
		newAnchor := imagepipe.Pack(resized, pixFmt)
		s.mu.Lock()
		s.anchor = newAnchor
		s.mu.Unlock()
		if !wasAnimating {
			s.sink.Present(newAnchor)
		}
	}
}

// cancelCurrent cancels any in-flight transition/animation and waits for
// it to fully stop before returning, implementing spec.md §4.F's
// reentrancy rule: "cancellation of a prior animation/transition completes
// before its successor's first pixel is presented."
func (s *Surface) cancelCurrent() {
	s.mu.Lock()
	cancel := s.cancelFunc
	s.cancelFunc = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.runWG.Wait()
}

// Present implements player.Sink by delegating to the wl_shm sink; it also
// updates the surface's anchor bookkeeping so the anchor always reflects
// the last frame actually shown, which the codec's transition math and a
// future Restore both depend on.
func (s *Surface) Present(f pixel.Frame) error {
	if err := s.sink.Present(f); err != nil {
		return err
	}
	s.mu.Lock()
	s.anchor = f
	s.mu.Unlock()
	return nil
}

// SetImage decodes r per opt and transitions the surface to it, per
// spec.md §4.C/§4.D/§4.F. A still image ends in Configured; an animation
// ends in Animating and keeps running until the next request or Close.
func (s *Surface) SetImage(ctx context.Context, r io.Reader, opt imagepipe.Options, desc transition.Descriptor, contentPath string) error {
	s.cancelCurrent()

	runCtx, cancel := context.WithCancel(ctx)
	targetW, targetH := s.bufSize()
	s.mu.Lock()
	s.cancelFunc = cancel
	pixFmt := s.pixFmt
	s.mu.Unlock()

	opt.TargetW, opt.TargetH, opt.Format = targetW, targetH, pixFmt

	still, animCh, err := imagepipe.Load(runCtx, r, opt)
	if err != nil {
		cancel()
		return fmt.Errorf("surface: %s: decode: %w", s.Name, err)
	}

	if still != nil {
		s.runWG.Add(1)
		go func() {
			defer s.runWG.Done()
			defer cancel()
			s.setState(Transitioning)
			old := s.currentAnchor()
			if err := s.runTransition(runCtx, old, still.Frame, desc); err != nil {
				return
			}
			s.mu.Lock()
			s.anchor = still.Frame
			s.content = Content{Kind: "image", Path: contentPath}
			s.state = Configured
			s.mu.Unlock()
		}()
		return nil
	}

	firstOut, ok := <-animCh
	if !ok {
		cancel()
		return fmt.Errorf("surface: %s: empty animation", s.Name)
	}
	builder := anim.NewBuilder(firstOut.Frame)

	s.runWG.Add(1)
	go func() {
		defer s.runWG.Done()
		defer cancel()

		s.setState(Transitioning)
		old := s.currentAnchor()
		if err := s.runTransition(runCtx, old, firstOut.Frame, desc); err != nil {
			return
		}

		for out := range animCh {
			if err := builder.Push(out.Frame, out.Duration); err != nil {
				return
			}
		}

		a := builder.Build()
		s.mu.Lock()
		s.lastAnim = &a
		s.content = Content{Kind: "image", Path: contentPath}
		s.state = Animating
		onBuilt := s.onAnimationBuilt
		s.mu.Unlock()
		if onBuilt != nil {
			onBuilt(a)
		}

		p := player.New(s, s.clock)
		p.Run(runCtx, a)

		s.mu.Lock()
		if s.state == Animating {
			s.state = Configured
		}
		s.mu.Unlock()
	}()
	return nil
}

// Clear replaces the surface's content with a solid color, per spec.md
// §4.G's Clear request.
func (s *Surface) Clear(ctx context.Context, color imagepipe.Color, desc transition.Descriptor) error {
	s.cancelCurrent()

	runCtx, cancel := context.WithCancel(ctx)
	w, h := s.bufSize()
	s.mu.Lock()
	s.cancelFunc = cancel
	pixFmt := s.pixFmt
	s.mu.Unlock()

	solid := image.NewRGBA(image.Rect(0, 0, w, h))
	color.Fill(solid)
	frame := imagepipe.Pack(solid, pixFmt)

	s.runWG.Add(1)
	go func() {
		defer s.runWG.Done()
		defer cancel()
		s.setState(Transitioning)
		old := s.currentAnchor()
		if err := s.runTransition(runCtx, old, frame, desc); err != nil {
			return
		}
		s.mu.Lock()
		s.anchor = frame
		s.content = Content{Kind: "color", Color: fmt.Sprintf("%02x%02x%02x", color.R, color.G, color.B)}
		s.state = Configured
		s.mu.Unlock()
	}()
	return nil
}

// Restore replays a previously cached animation (or its lone anchor if it
// has no delta frames) after a reconnect, per spec.md §4.F's [SUPPLEMENT].
func (s *Surface) Restore(ctx context.Context, a anim.Animation, desc transition.Descriptor, contentPath string) error {
	s.cancelCurrent()

	runCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancelFunc = cancel
	s.mu.Unlock()

	s.runWG.Add(1)
	go func() {
		defer s.runWG.Done()
		defer cancel()

		s.setState(Transitioning)
		old := s.currentAnchor()
		if err := s.runTransition(runCtx, old, a.Anchor, desc); err != nil {
			return
		}

		s.mu.Lock()
		s.lastAnim = &a
		s.content = Content{Kind: "image", Path: contentPath}
		s.mu.Unlock()

		if a.FrameCount() == 0 {
			s.mu.Lock()
			s.anchor = a.Anchor
			s.state = Configured
			s.mu.Unlock()
			return
		}

		s.setState(Animating)
		p := player.New(s, s.clock)
		p.Run(runCtx, a)

		s.mu.Lock()
		if s.state == Animating {
			s.state = Configured
		}
		s.mu.Unlock()
	}()
	return nil
}

// runTransition paces transition.Frames at desc.FPS and presents each
// tick, honoring cancellation between ticks per spec.md §5.
func (s *Surface) runTransition(ctx context.Context, old, new pixel.Frame, desc transition.Descriptor) error {
	if desc.Type == transition.TypeNone || old.Width == 0 {
		return s.Present(new)
	}
	fps := desc.FPS
	if fps == 0 {
		fps = 30
	}
	interval := time.Second / time.Duration(fps)
	deadline := s.clock.Now()

	for f := range transition.Frames(old, new, desc, s.rng) {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		waitUntil(ctx, s.clock, deadline)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := s.Present(f); err != nil {
			return err
		}
		deadline = deadline.Add(interval)
	}
	return nil
}

func waitUntil(ctx context.Context, clock player.Clock, deadline time.Time) {
	const maxSlice = 50 * time.Millisecond
	for {
		remaining := deadline.Sub(clock.Now())
		if remaining <= 0 || ctx.Err() != nil {
			return
		}
		wait := remaining
		if wait > maxSlice {
			wait = maxSlice
		}
		clock.Sleep(wait)
	}
}

func (s *Surface) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Surface) currentAnchor() pixel.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.anchor
}

// bufSize returns the current buffer geometry under lock.
func (s *Surface) bufSize() (w, h int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, h, _ = bufferGeometry(s.logicalW, s.logicalH, s.scale120, s.pixFmt.Channels())
	return
}

// BufferSize exports bufSize for internal/daemon's on-disk-cache
// dimension check: a cached animation only serves the skip-decode fast
// path when its anchor's dimensions match this surface's current buffer.
func (s *Surface) BufferSize() (w, h int) { return s.bufSize() }

// CurrentFrame returns the frame currently presented on this surface, the
// zero Frame if nothing has been presented yet.
func (s *Surface) CurrentFrame() pixel.Frame { return s.currentAnchor() }

// LastAnimation returns the most recently built animation this surface
// played, if any, for internal/daemon's Restore handling.
func (s *Surface) LastAnimation() (anim.Animation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastAnim == nil {
		return anim.Animation{}, false
	}
	return *s.lastAnim, true
}

// Close cancels any running content and destroys the wayland objects this
// surface owns.
func (s *Surface) Close() error {
	s.cancelCurrent()
	if s.viewport != nil {
		s.viewport.Destroy()
	}
	if s.fracScale != nil {
		s.fracScale.Destroy()
	}
	s.layerSurface.Destroy()
	s.wlSurface.Destroy()
	return s.pool.Close()
}
