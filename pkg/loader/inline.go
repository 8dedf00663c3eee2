package loader

import (
	"context"
	"sync"
)

// Synchronous runs every job on the submitting goroutine before Submit
// returns. Use it where deterministic ordering matters, mainly tests.
type Synchronous struct {
	mu     sync.Mutex
	closed bool
}

var _ Executor = (*Synchronous)(nil)

// Submit runs fn immediately unless ctx is canceled or the executor is closed.
func (s *Synchronous) Submit(ctx context.Context, _ Priority, fn Func) bool {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return false
	}
	if ctx.Err() == nil {
		fn(ctx)
	}
	return true
}

// Close makes further Submit calls fail.
func (s *Synchronous) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// Deferred queues jobs until Run is called, letting tests observe the state
// between submission and completion.
type Deferred struct {
	mu     sync.Mutex
	queue  []deferredJob
	closed bool
}

type deferredJob struct {
	ctx context.Context
	pr  Priority
	fn  Func
}

var _ Executor = (*Deferred)(nil)

// Submit appends fn to the queue.
func (d *Deferred) Submit(ctx context.Context, pr Priority, fn Func) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false
	}
	d.queue = append(d.queue, deferredJob{ctx: ctx, pr: pr, fn: fn})
	return true
}

// Len returns the number of queued jobs.
func (d *Deferred) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// Priorities returns the priority of each queued job in submission order.
func (d *Deferred) Priorities() []Priority {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Priority, len(d.queue))
	for i, j := range d.queue {
		out[i] = j.pr
	}
	return out
}

// Run executes queued jobs, visible first, until the queue is empty. Jobs
// submitted while running are executed too. It returns how many ran;
// canceled jobs are dropped without running.
func (d *Deferred) Run() int {
	ran := 0
	for {
		d.mu.Lock()
		if len(d.queue) == 0 {
			d.mu.Unlock()
			return ran
		}
		next := 0
		for i, j := range d.queue {
			if j.pr == PriorityVisible {
				next = i
				break
			}
		}
		j := d.queue[next]
		d.queue = append(d.queue[:next], d.queue[next+1:]...)
		d.mu.Unlock()

		if j.ctx.Err() == nil {
			j.fn(j.ctx)
			ran++
		}
	}
}

// Close drops queued jobs and rejects further submissions.
func (d *Deferred) Close() {
	d.mu.Lock()
	d.closed = true
	d.queue = nil
	d.mu.Unlock()
}
