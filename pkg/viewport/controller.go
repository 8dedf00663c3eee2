// Package viewport turns viewport geometry and scroll events into the
// visible row range and scroll velocity a block cache consumes.
package viewport

import (
	"sync"
	"time"

	"github.com/marmos91/vtable/internal/logger"
)

// DefaultBuffer is the number of rows added above and below the visible
// rows.
const DefaultBuffer = 50

// Sink receives the computed range and velocity. *blockcache.Model
// implements it.
type Sink interface {
	RowCount() int
	SetVisibleRange(start, end int)
	SetScrollVelocity(v float64)
}

// Geometry describes a vertically scrolled viewport with fixed row height,
// in pixels.
type Geometry struct {
	ScrollOffset int
	Height       int
	RowHeight    int
}

// Rows returns the first and last row intersecting the viewport. The last
// row may be partially visible.
func (g Geometry) Rows() (first, last int) {
	if g.RowHeight <= 0 {
		return 0, 0
	}
	offset := max(0, g.ScrollOffset)
	first = offset / g.RowHeight
	if g.Height <= 0 {
		return first, first
	}
	return first, (offset + g.Height - 1) / g.RowHeight
}

// Options configures a Controller.
type Options struct {
	// Buffer is the number of extra rows requested on each side of the
	// visible rows. Zero uses DefaultBuffer.
	Buffer int

	// Decay is the quiet period after which velocity drops to zero.
	Decay time.Duration
}

// Controller forwards the buffered visible range to a Sink, only when it
// changes, and keeps the Sink's scroll velocity current.
type Controller struct {
	sink    Sink
	tracker *VelocityTracker

	mu        sync.Mutex
	buffer    int
	first     int
	last      int
	hasRows   bool
	start     int
	end       int
	forwarded bool
}

// NewController creates a Controller for sink.
func NewController(sink Sink, opts Options) *Controller {
	if opts.Buffer <= 0 {
		opts.Buffer = DefaultBuffer
	}
	c := &Controller{sink: sink, buffer: opts.Buffer}
	c.tracker = NewVelocityTracker(opts.Decay, func() { sink.SetScrollVelocity(0) })
	return c
}

// Buffer returns the current buffer size.
func (c *Controller) Buffer() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buffer
}

// SetBuffer changes the buffer size and re-reports the range. Non-positive
// values are ignored.
func (c *Controller) SetBuffer(n int) {
	c.mu.Lock()
	if n <= 0 || n == c.buffer {
		c.mu.Unlock()
		return
	}
	c.buffer = n
	first, last, ok := c.first, c.last, c.hasRows
	c.mu.Unlock()

	if ok {
		c.Update(first, last)
	}
}

// Update reports the rows currently on screen (inclusive). The buffered,
// clamped range is forwarded when it differs from the last one sent. It
// returns the range and whether it was forwarded.
func (c *Controller) Update(first, last int) (start, end int, forwarded bool) {
	rows := c.sink.RowCount()

	c.mu.Lock()
	c.first, c.last, c.hasRows = first, last, true
	if rows <= 0 {
		c.mu.Unlock()
		return 0, -1, false
	}

	start = min(max(0, first-c.buffer), rows-1)
	end = min(rows-1, last+c.buffer)
	if end < start {
		end = start
	}
	if c.forwarded && start == c.start && end == c.end {
		c.mu.Unlock()
		return start, end, false
	}
	c.start, c.end, c.forwarded = start, end, true
	c.mu.Unlock()

	logger.Debug("visible range changed", logger.RowRange(start, end)...)
	c.sink.SetVisibleRange(start, end)
	return start, end, true
}

// UpdateGeometry reports a scroll event: the scroll offset feeds the
// velocity estimate and the visible rows are derived from g.
func (c *Controller) UpdateGeometry(g Geometry) (start, end int, forwarded bool) {
	c.Scroll(g.ScrollOffset)
	first, last := g.Rows()
	return c.Update(first, last)
}

// Scroll records a scroll position and forwards the velocity estimate.
func (c *Controller) Scroll(pos int) {
	if v, ok := c.tracker.Observe(pos); ok {
		c.sink.SetScrollVelocity(v)
	}
}

// Velocity returns the current velocity estimate.
func (c *Controller) Velocity() float64 {
	return c.tracker.Velocity()
}

// Reset forgets the last forwarded range so the next Update is always sent.
// Call it after the Sink's data source changes.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.forwarded = false
	c.mu.Unlock()
}

// Close stops the velocity decay timer.
func (c *Controller) Close() {
	c.tracker.Stop()
}
