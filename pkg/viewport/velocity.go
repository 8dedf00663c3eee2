package viewport

import (
	"sync"
	"time"
)

// DefaultDecay is how long the tracker waits without scroll events before
// reporting zero velocity.
const DefaultDecay = 200 * time.Millisecond

// stopper is the part of *time.Timer the tracker needs.
type stopper interface {
	Stop() bool
}

type afterFunc func(d time.Duration, f func()) stopper

func realAfterFunc(d time.Duration, f func()) stopper {
	return time.AfterFunc(d, f)
}

// VelocityTracker estimates scroll velocity as Δposition / Δtime between
// successive scroll events. After a quiet period the velocity decays to zero
// and onDecay is called.
type VelocityTracker struct {
	decay   time.Duration
	clock   func() time.Time
	after   afterFunc
	onDecay func()

	mu       sync.Mutex
	lastPos  int
	lastAt   time.Time
	seen     bool
	velocity float64
	timer    stopper
	epoch    uint64
}

// NewVelocityTracker creates a tracker. A zero decay uses DefaultDecay;
// onDecay may be nil.
func NewVelocityTracker(decay time.Duration, onDecay func()) *VelocityTracker {
	if decay <= 0 {
		decay = DefaultDecay
	}
	return &VelocityTracker{
		decay:   decay,
		clock:   time.Now,
		after:   realAfterFunc,
		onDecay: onDecay,
	}
}

// Observe records a scroll position. It returns the new velocity in units
// per second, and false for the first event or when no time has elapsed
// since the previous one.
func (t *VelocityTracker) Observe(pos int) (float64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock()
	updated := false
	if t.seen {
		if elapsed := now.Sub(t.lastAt); elapsed > 0 {
			t.velocity = float64(pos-t.lastPos) / elapsed.Seconds()
			updated = true
			t.armLocked()
		}
	}
	t.lastPos = pos
	t.lastAt = now
	t.seen = true
	return t.velocity, updated
}

// Velocity returns the current estimate.
func (t *VelocityTracker) Velocity() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.velocity
}

// Stop cancels a pending decay.
func (t *VelocityTracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.epoch++
}

func (t *VelocityTracker) armLocked() {
	if t.timer != nil {
		t.timer.Stop()
	}
	t.epoch++
	epoch := t.epoch
	t.timer = t.after(t.decay, func() { t.expire(epoch) })
}

// expire resets the velocity unless a newer event re-armed the timer.
func (t *VelocityTracker) expire(epoch uint64) {
	t.mu.Lock()
	if epoch != t.epoch {
		t.mu.Unlock()
		return
	}
	t.velocity = 0
	t.timer = nil
	onDecay := t.onDecay
	t.mu.Unlock()

	if onDecay != nil {
		onDecay()
	}
}
