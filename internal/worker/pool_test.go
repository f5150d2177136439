package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

func TestNewClampsWorkerCount(t *testing.T) {
	cases := []struct {
		requested int
		want      int
	}{
		{requested: -1, want: clampWorkers(-1)},
		{requested: 1, want: 1},
		{requested: 4, want: 4},
		{requested: 99, want: 4},
	}
	for _, tc := range cases {
		if got := clampWorkers(tc.requested); got != tc.want {
			t.Errorf("clampWorkers(%d) = %d, want %d", tc.requested, got, tc.want)
		}
	}
}

func TestSubmitRunsJobAndDeliversResult(t *testing.T) {
	p, err := New(2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	p.Submit(Job{ID: 7, Run: func(ctx context.Context) (any, error) {
		return "done", nil
	}})

	waitForFd(t, p.Fd())
	if err := p.Ack(); err != nil {
		t.Fatalf("Ack: %v", err)
	}

	select {
	case res := <-p.Results():
		if res.ID != 7 || res.Value != "done" || res.Err != nil {
			t.Fatalf("got %+v", res)
		}
	default:
		t.Fatal("expected a result waiting after Ack")
	}
}

func TestSubmitPropagatesJobError(t *testing.T) {
	p, err := New(1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	wantErr := errors.New("decode failed")
	p.Submit(Job{ID: 1, Run: func(ctx context.Context) (any, error) {
		return nil, wantErr
	}})

	waitForFd(t, p.Fd())
	_ = p.Ack()
	res := <-p.Results()
	if !errors.Is(res.Err, wantErr) {
		t.Fatalf("Err = %v, want %v", res.Err, wantErr)
	}
}

func TestCloseCancelsInFlightJobsPromptly(t *testing.T) {
	p, err := New(1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	started := make(chan struct{})
	var observedCancel atomic.Bool
	p.Submit(Job{ID: 1, Run: func(ctx context.Context) (any, error) {
		close(started)
		<-ctx.Done()
		observedCancel.Store(true)
		return nil, ctx.Err()
	}})

	<-started
	done := make(chan struct{})
	go func() {
		p.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return after cancellation")
	}
	if !observedCancel.Load() {
		t.Fatal("in-flight job never observed context cancellation")
	}
}

func TestTrySubmitFailsAfterClose(t *testing.T) {
	p, err := New(1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p.Close()

	if p.TrySubmit(Job{Run: func(ctx context.Context) (any, error) { return nil, nil }}) {
		t.Fatal("TrySubmit should fail once the pool is closed")
	}
}

func TestNumWorkersReportsClampedCount(t *testing.T) {
	p, err := New(2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()
	if got := p.NumWorkers(); got != 2 {
		t.Fatalf("got %d, want 2", got)
	}
}

func TestQueueDepthReflectsPendingJobs(t *testing.T) {
	release := make(chan struct{})
	p, err := New(1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	// Occupy the single worker so the next two jobs sit in the channel
	// buffer instead of being picked up immediately.
	p.Submit(Job{ID: 1, Run: func(ctx context.Context) (any, error) {
		<-release
		return nil, nil
	}})
	p.Submit(Job{ID: 2, Run: func(ctx context.Context) (any, error) { return nil, nil }})
	p.Submit(Job{ID: 3, Run: func(ctx context.Context) (any, error) { return nil, nil }})

	deadline := time.Now().Add(2 * time.Second)
	for p.QueueDepth() != 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := p.QueueDepth(); got != 2 {
		t.Fatalf("got queue depth %d, want 2", got)
	}
	close(release)
}

func waitForFd(t *testing.T, fd int) {
	t.Helper()
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		n, err := unix.Poll(fds, 50)
		if err != nil && err != unix.EINTR {
			t.Fatalf("poll: %v", err)
		}
		if n > 0 && fds[0].Revents&unix.POLLIN != 0 {
			return
		}
	}
	t.Fatal("timed out waiting for worker result eventfd")
}
