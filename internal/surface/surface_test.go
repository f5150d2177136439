package surface

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/swwwgo/swwwgo/internal/imagepipe"
	"github.com/swwwgo/swwwgo/internal/pixel"
	"github.com/swwwgo/swwwgo/internal/player"
	"github.com/swwwgo/swwwgo/internal/transition"
)

// fakeClock lets tests drive Surface's transition pacing without sleeping,
// the same technique internal/player's own tests use.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: time.Unix(0, 0)} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// recordingSink stands in for the real wl_shm sink: it records every
// presented frame without touching Wayland, and can optionally block
// until released so cancellation-timing tests can control pacing.
type recordingSink struct {
	mu      sync.Mutex
	frames  []pixel.Frame
	block   chan struct{} // if non-nil, Present blocks on it once per call
	presented chan struct{}
}

func (s *recordingSink) Present(f pixel.Frame) error {
	s.mu.Lock()
	s.frames = append(s.frames, f.Clone())
	s.mu.Unlock()
	if s.presented != nil {
		select {
		case s.presented <- struct{}{}:
		default:
		}
	}
	if s.block != nil {
		<-s.block
	}
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

func (s *recordingSink) last() pixel.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames[len(s.frames)-1]
}

// newTestSurface builds a Surface with a recordingSink instead of a real
// wl_shm sink, and already-configured geometry, for testing the request
// state machine without a live compositor.
func newTestSurface(w, h int, sink *recordingSink, clock player.Clock) *Surface {
	s := &Surface{
		Name:     "test",
		sink:     sink,
		pixFmt:   pixel.XRGB,
		clock:    clock,
		rng:      rand.New(rand.NewPCG(1, 2)),
		state:    Configured,
		logicalW: w,
		logicalH: h,
		scale120: 120,
	}
	return s
}

func solidPNG(t *testing.T, w, h int, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func stillDescriptor() transition.Descriptor {
	return transition.Descriptor{Type: transition.TypeNone}
}

func TestBufferGeometryCeilsFractionalScale(t *testing.T) {
	w, h, stride := bufferGeometry(1920, 1080, 150, 4) // 1.25x
	if w != 2400 || h != 1350 {
		t.Fatalf("geometry = (%d,%d), want (2400,1350)", w, h)
	}
	if stride != w*4 {
		t.Fatalf("stride = %d, want %d", stride, w*4)
	}

	// A scale that does not divide evenly must round up, not truncate.
	w, h, _ = bufferGeometry(1000, 1000, 133, 4) // 1.1083x
	if w != ceilDiv(1000*133, 120) || h != ceilDiv(1000*133, 120) {
		t.Fatalf("geometry = (%d,%d) does not match ceilDiv", w, h)
	}
	if w*133 < 1000*133 { // sanity: w must be >= exact quotient
		t.Fatalf("w=%d rounds down instead of up", w)
	}
}

func TestCeilDivRoundsUpAndHandlesZero(t *testing.T) {
	cases := []struct{ a, b, want int }{
		{10, 4, 3},
		{8, 4, 2},
		{1, 4, 1},
		{0, 4, 0},
		{-5, 4, 0},
	}
	for _, c := range cases {
		if got := ceilDiv(c.a, c.b); got != c.want {
			t.Errorf("ceilDiv(%d,%d) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestStateString(t *testing.T) {
	cases := map[State]string{
		Unconfigured:  "unconfigured",
		Configured:    "configured",
		Transitioning: "transitioning",
		Animating:     "animating",
		State(99):     "unknown",
	}
	for st, want := range cases {
		if got := st.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", st, got, want)
		}
	}
}

func TestSetImageStillEndsConfiguredWithContent(t *testing.T) {
	sink := &recordingSink{}
	clock := newFakeClock()
	s := newTestSurface(4, 4, sink, clock)

	data := solidPNG(t, 4, 4, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	opt := imagepipe.Options{Fit: imagepipe.FitStretch, Filter: nil}

	if err := s.SetImage(context.Background(), bytes.NewReader(data), opt, stillDescriptor(), "/tmp/a.png"); err != nil {
		t.Fatalf("SetImage: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for s.State() != Configured {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for Configured, state=%v", s.State())
		default:
			time.Sleep(time.Millisecond)
		}
	}

	if got := s.Content(); got.Kind != "image" || got.Path != "/tmp/a.png" {
		t.Fatalf("content = %+v, want image path /tmp/a.png", got)
	}
	if sink.count() == 0 {
		t.Fatal("expected at least one presented frame")
	}
}

func TestClearEndsConfiguredWithColorContent(t *testing.T) {
	sink := &recordingSink{}
	clock := newFakeClock()
	s := newTestSurface(4, 4, sink, clock)

	col, err := imagepipe.ParseColor("112233")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Clear(context.Background(), col, stillDescriptor()); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for s.State() != Configured {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for Configured, state=%v", s.State())
		default:
			time.Sleep(time.Millisecond)
		}
	}

	if got := s.Content(); got.Kind != "color" || got.Color != "112233" {
		t.Fatalf("content = %+v, want color 112233", got)
	}

	last := sink.last()
	if last.Pix[0] == 0 && last.Pix[1] == 0 && last.Pix[2] == 0 {
		t.Fatal("presented frame looks unfilled")
	}
}

func TestReentrantSetImageCancelsInFlightTransition(t *testing.T) {
	sink := &recordingSink{block: make(chan struct{}), presented: make(chan struct{}, 8)}
	clock := newFakeClock()
	s := newTestSurface(8, 8, sink, clock)

	first := solidPNG(t, 8, 8, color.RGBA{R: 200, A: 255})
	desc := transition.Descriptor{Type: transition.TypeFade, FPS: 30, DurationMS: 100, Bezier: [4]float64{0, 0, 1, 1}, Step: 8}

	if err := s.SetImage(context.Background(), bytes.NewReader(first), imagepipe.Options{Fit: imagepipe.FitStretch}, desc, "/tmp/first.png"); err != nil {
		t.Fatalf("first SetImage: %v", err)
	}

	// Wait for the first transition to have presented at least once, then
	// unblock it just enough to prove it is genuinely mid-flight before
	// superseding it.
	select {
	case <-sink.presented:
	case <-time.After(2 * time.Second):
		t.Fatal("first transition never presented a frame")
	}

	second := solidPNG(t, 8, 8, color.RGBA{B: 200, A: 255})
	// Unblock the first transition's Present call so cancelCurrent's
	// runWG.Wait() inside the second SetImage call can complete once the
	// goroutine observes ctx.Err() and exits.
	go func() {
		for {
			select {
			case sink.block <- struct{}{}:
			case <-time.After(3 * time.Second):
				return
			}
		}
	}()

	if err := s.SetImage(context.Background(), bytes.NewReader(second), imagepipe.Options{Fit: imagepipe.FitStretch}, stillDescriptor(), "/tmp/second.png"); err != nil {
		t.Fatalf("second SetImage: %v", err)
	}

	deadline := time.After(3 * time.Second)
	for s.State() != Configured {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for Configured, state=%v", s.State())
		default:
			time.Sleep(time.Millisecond)
		}
	}

	if got := s.Content(); got.Path != "/tmp/second.png" {
		t.Fatalf("content = %+v, want the second request to have won", got)
	}
}
