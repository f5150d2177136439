// Package worker implements the daemon's decode/resize/compress pool per
// spec.md §5's scheduling model: a small pool of worker goroutines does all
// blocking, CPU-heavy work, and hands results back to the single event-loop
// thread over a bounded channel so the event loop itself never decodes.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sys/unix"
)

// Job is one unit of decode/resize/compress work. Run must check ctx between
// steps so cancellation is observed within one frame's worth of work, per
// spec.md §5's bounded-cooperative-cancellation requirement.
type Job struct {
	ID  uint64
	Run func(ctx context.Context) (any, error)
}

// Result is a Job's outcome, delivered on Pool's results channel.
type Result struct {
	ID    uint64
	Value any
	Err   error
}

// Pool is a bounded-channel worker pool. The event loop learns a result is
// ready by polling Fd() for readability, then draining Results() — this is
// the "worker result fd" spec.md §5's poll() set names.
type Pool struct {
	jobs    chan Job
	results chan Result
	eventFD int
	workers int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// clampWorkers bounds the pool to spec.md §5's "small pool of worker
// threads (≥ 1)": default to GOMAXPROCS, but never more than 4 — decode/
// resize/compress work is bursty per-request, not throughput-bound, so a
// larger pool just adds idle goroutines and lock contention on shared
// buffer pools.
func clampWorkers(n int) int {
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	if n < 1 {
		n = 1
	}
	if n > 4 {
		n = 4
	}
	return n
}

// New starts a pool of clampWorkers(workers) goroutines. Pass workers <= 0
// to use the default.
func New(workers int) (*Pool, error) {
	n := clampWorkers(workers)

	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		return nil, fmt.Errorf("worker: eventfd: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		jobs:    make(chan Job, n*2),
		results: make(chan Result, n*2),
		eventFD: fd,
		workers: n,
		ctx:     ctx,
		cancel:  cancel,
	}

	p.wg.Add(n)
	for i := 0; i < n; i++ {
		go p.run()
	}
	return p, nil
}

func (p *Pool) run() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			val, err := job.Run(p.ctx)
			select {
			case p.results <- Result{ID: job.ID, Value: val, Err: err}:
				p.signal()
			case <-p.ctx.Done():
				return
			}
		}
	}
}

// signal bumps the eventfd counter so a poll() on Fd() wakes with POLLIN.
// The write is best-effort: if the counter would overflow (impossible at
// this pool's queue depths) EAGAIN is silently dropped, since the event
// loop drains Results() in a loop until empty regardless of how many wakeups
// it saw.
func (p *Pool) signal() {
	var buf [8]byte
	buf[0] = 1
	_, _ = unix.Write(p.eventFD, buf[:])
}

// Ack resets the eventfd counter to zero. Call once after poll() reports
// Fd() readable, before draining Results().
func (p *Pool) Ack() error {
	var buf [8]byte
	_, err := unix.Read(p.eventFD, buf[:])
	if err != nil && err != unix.EAGAIN {
		return fmt.Errorf("worker: eventfd read: %w", err)
	}
	return nil
}

// Fd returns the eventfd to register in the event loop's poll() set.
func (p *Pool) Fd() int { return p.eventFD }

// QueueDepth reports how many jobs are enqueued but not yet picked up by a
// worker goroutine, for the debug-http /metrics surface.
func (p *Pool) QueueDepth() int { return len(p.jobs) }

// NumWorkers reports the clamped worker count New actually started.
func (p *Pool) NumWorkers() int { return p.workers }

// Results returns the channel the event loop drains after Ack().
func (p *Pool) Results() <-chan Result { return p.results }

// Submit enqueues job, blocking if the job queue is full — this is the
// back-pressure spec.md §5 requires: a burst of requests bounds memory
// growth by blocking the submitter (the event loop, via a non-blocking
// trySubmit path, or a worker preparing follow-up work) rather than
// queueing unbounded decoded frames.
func (p *Pool) Submit(job Job) {
	select {
	case p.jobs <- job:
	case <-p.ctx.Done():
	}
}

// TrySubmit enqueues job without blocking, reporting false if the queue is
// full or the pool is closed. The event loop uses this from its own thread,
// since it must never block per spec.md §5.
func (p *Pool) TrySubmit(job Job) bool {
	if p.ctx.Err() != nil {
		return false
	}
	select {
	case p.jobs <- job:
		return true
	case <-p.ctx.Done():
		return false
	default:
		return false
	}
}

// Close cancels the pool's context (which in-flight jobs observe), stops
// accepting new work, and waits for every worker goroutine to return.
func (p *Pool) Close() error {
	p.cancel()
	close(p.jobs)
	p.wg.Wait()
	return unix.Close(p.eventFD)
}
