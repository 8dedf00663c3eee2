package loader

import (
	"context"
	"sync"
	"time"

	"github.com/marmos91/vtable/internal/logger"
)

const (
	DefaultWorkers     = 4
	DefaultQueueSize   = 1024
	defaultStopTimeout = 5 * time.Second
)

// Config configures a Pool.
type Config struct {
	Workers   int
	QueueSize int // per priority
}

// DefaultConfig returns the default pool configuration.
func DefaultConfig() Config {
	return Config{Workers: DefaultWorkers, QueueSize: DefaultQueueSize}
}

type job struct {
	ctx context.Context
	fn  Func
}

// Pool is a bounded worker pool with two priority lanes. Workers always
// drain the visible lane before touching the prefetch lane.
type Pool struct {
	visible  chan job
	prefetch chan job

	workers   int
	wg        sync.WaitGroup
	stopCh    chan struct{}
	stoppedCh chan struct{}

	mu              sync.Mutex
	started         bool
	stopped         bool
	pendingVisible  int
	pendingPrefetch int
	completed       int
	skipped         int
	dropped         int
}

// Stats is a snapshot of pool counters.
type Stats struct {
	PendingVisible  int
	PendingPrefetch int
	Completed       int
	Skipped         int // canceled before a worker picked them up
	Dropped         int // rejected because a lane was full
}

var _ Executor = (*Pool)(nil)

// NewPool creates a pool. Call Start before submitting work.
func NewPool(cfg Config) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	return &Pool{
		visible:   make(chan job, cfg.QueueSize),
		prefetch:  make(chan job, cfg.QueueSize),
		workers:   cfg.Workers,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Start launches the workers. Calling it twice is a no-op.
func (p *Pool) Start() {
	p.mu.Lock()
	if p.started || p.stopped {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	logger.Debug("Starting load pool", "workers", p.workers)

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	go func() {
		p.wg.Wait()
		close(p.stoppedCh)
	}()
}

// Submit queues fn on the lane for priority pr.
func (p *Pool) Submit(ctx context.Context, pr Priority, fn Func) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return false
	}

	lane, counter := p.prefetch, &p.pendingPrefetch
	if pr == PriorityVisible {
		lane, counter = p.visible, &p.pendingVisible
	}

	select {
	case lane <- job{ctx: ctx, fn: fn}:
		*counter++
		return true
	default:
		p.dropped++
		logger.Debug("Load queue full, dropping request", logger.KeyPriority, pr.String())
		return false
	}
}

// Stop stops accepting work, lets workers finish what is queued and waits
// up to timeout for them to exit.
func (p *Pool) Stop(timeout time.Duration) {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	started := p.started
	p.mu.Unlock()

	close(p.stopCh)
	if !started {
		return
	}

	select {
	case <-p.stoppedCh:
		logger.Debug("Load pool stopped")
	case <-time.After(timeout):
		logger.Warn("Load pool stop timed out", "pending", p.Pending())
	}
}

// Close stops the pool with the default timeout.
func (p *Pool) Close() {
	p.Stop(defaultStopTimeout)
}

// Pending returns the number of queued jobs.
func (p *Pool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pendingVisible + p.pendingPrefetch
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		PendingVisible:  p.pendingVisible,
		PendingPrefetch: p.pendingPrefetch,
		Completed:       p.completed,
		Skipped:         p.skipped,
		Dropped:         p.dropped,
	}
}

// worker runs jobs until the pool stops. The first select takes visible
// work without blocking; the second waits on every lane so an idle worker
// does not spin.
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case j := <-p.visible:
			p.run(j, PriorityVisible)
			continue
		default:
		}

		select {
		case j := <-p.visible:
			p.run(j, PriorityVisible)
		case j := <-p.prefetch:
			p.run(j, PriorityPrefetch)
		case <-p.stopCh:
			p.drain()
			logger.Debug("Load worker stopped", "worker", id)
			return
		}
	}
}

// drain runs what is left in the lanes during shutdown, visible first.
func (p *Pool) drain() {
	for {
		select {
		case j := <-p.visible:
			p.run(j, PriorityVisible)
			continue
		default:
		}
		select {
		case j := <-p.prefetch:
			p.run(j, PriorityPrefetch)
		default:
			return
		}
	}
}

func (p *Pool) run(j job, pr Priority) {
	canceled := j.ctx.Err() != nil
	if !canceled {
		j.fn(j.ctx)
	}

	p.mu.Lock()
	if pr == PriorityVisible {
		p.pendingVisible--
	} else {
		p.pendingPrefetch--
	}
	if canceled {
		p.skipped++
	} else {
		p.completed++
	}
	p.mu.Unlock()
}
