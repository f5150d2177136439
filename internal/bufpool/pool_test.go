package bufpool

import "testing"

func TestAcquireNeverReturnsBusyBuffer(t *testing.T) {
	p, err := New(2)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer p.Close()

	p.Reconfigure(4, 4, 16)

	a, err := p.Acquire()
	if err != nil || a == nil {
		t.Fatalf("acquire a: %v %v", a, err)
	}
	a.MarkBusy()

	b, err := p.Acquire()
	if err != nil || b == nil {
		t.Fatalf("acquire b: %v %v", b, err)
	}
	if b == a {
		t.Fatal("acquired the same buffer while it was busy")
	}
	b.MarkBusy()

	// cap is 2 and both buffers are busy: a third acquire must not
	// allocate past the cap.
	c, err := p.Acquire()
	if err != nil {
		t.Fatalf("acquire c: %v", err)
	}
	if c != nil {
		t.Fatal("acquire returned a buffer past the sanity cap")
	}
	if p.InFlight() > p.cap {
		t.Fatalf("in-flight %d exceeds cap %d", p.InFlight(), p.cap)
	}

	a.Release()
	d, err := p.Acquire()
	if err != nil || d != a {
		t.Fatalf("expected released buffer a to be reused, got %v %v", d, err)
	}
}

func TestStaleBuffersAreDrainedNotReused(t *testing.T) {
	p, err := New(4)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	p.Reconfigure(4, 4, 16)
	a, _ := p.Acquire()
	a.MarkBusy()
	a.Release()

	p.Reconfigure(8, 8, 32) // marks a stale

	got, err := p.Acquire()
	if err != nil {
		t.Fatal(err)
	}
	if got == a {
		t.Fatal("stale buffer was handed back out")
	}
}

func TestReconfigureReservesStillBusyBufferRange(t *testing.T) {
	p, err := New(4)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	p.Reconfigure(4, 4, 16)
	a, _ := p.Acquire()
	a.MarkBusy() // never released before the reconfigure below

	p.Reconfigure(8, 8, 32)
	b, err := p.Acquire()
	if err != nil || b == nil {
		t.Fatalf("acquire after reconfigure: %v %v", b, err)
	}
	b.MarkBusy()

	aEnd := a.Offset + 16*4 // old geometry's slotSize
	bEnd := b.Offset + 32*8
	if b.Offset < aEnd && a.Offset < bEnd {
		t.Fatalf("new buffer at [%d,%d) overlaps still-busy old buffer at [%d,%d)", b.Offset, bEnd, a.Offset, aEnd)
	}
}

func TestReleaseOfNonBusyBufferPanics(t *testing.T) {
	p, _ := New(1)
	defer p.Close()
	p.Reconfigure(2, 2, 8)
	b, _ := p.Acquire()

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic releasing a non-busy buffer")
		}
	}()
	b.Release()
}
