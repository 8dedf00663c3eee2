package viewport

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rangeCall struct{ start, end int }

type fakeSink struct {
	rows int

	mu         sync.Mutex
	ranges     []rangeCall
	velocities []float64
}

func (s *fakeSink) RowCount() int { return s.rows }

func (s *fakeSink) SetVisibleRange(start, end int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ranges = append(s.ranges, rangeCall{start, end})
}

func (s *fakeSink) SetScrollVelocity(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.velocities = append(s.velocities, v)
}

func (s *fakeSink) Velocities() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]float64(nil), s.velocities...)
}

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

// manualTime drives a tracker's clock and timers by hand.
type manualTime struct {
	now    time.Time
	timers []*fakeTimer
}

func (m *manualTime) advance(d time.Duration) { m.now = m.now.Add(d) }

func (m *manualTime) afterFunc(d time.Duration, f func()) stopper {
	t := &fakeTimer{d: d, f: f}
	m.timers = append(m.timers, t)
	return t
}

// fire runs the most recent timer callback, as the runtime would after d.
func (m *manualTime) fire() {
	t := m.timers[len(m.timers)-1]
	t.f()
}

func newManualController(sink Sink, buffer int) (*Controller, *manualTime) {
	mt := &manualTime{now: time.Unix(1_700_000_000, 0)}
	c := NewController(sink, Options{Buffer: buffer})
	c.tracker.clock = func() time.Time { return mt.now }
	c.tracker.after = mt.afterFunc
	return c, mt
}

func TestGeometryRows(t *testing.T) {
	first, last := Geometry{ScrollOffset: 0, Height: 600, RowHeight: 30}.Rows()
	assert.Equal(t, 0, first)
	assert.Equal(t, 19, last)

	// A half-scrolled row exposes part of one more row at the bottom.
	first, last = Geometry{ScrollOffset: 3015, Height: 600, RowHeight: 30}.Rows()
	assert.Equal(t, 100, first)
	assert.Equal(t, 120, last)

	first, last = Geometry{ScrollOffset: 90, Height: 10, RowHeight: 30}.Rows()
	assert.Equal(t, 3, first)
	assert.Equal(t, 3, last)

	first, last = Geometry{Height: 600}.Rows()
	assert.Zero(t, first)
	assert.Zero(t, last)
}

func TestUpdateAddsBufferAndClamps(t *testing.T) {
	sink := &fakeSink{rows: 1000}
	c := NewController(sink, Options{})
	defer c.Close()

	assert.Equal(t, DefaultBuffer, c.Buffer())

	start, end, fwd := c.Update(100, 120)
	assert.True(t, fwd)
	assert.Equal(t, 50, start)
	assert.Equal(t, 170, end)

	start, end, fwd = c.Update(10, 30)
	assert.True(t, fwd)
	assert.Equal(t, 0, start)
	assert.Equal(t, 80, end)

	start, end, fwd = c.Update(980, 1010)
	assert.True(t, fwd)
	assert.Equal(t, 930, start)
	assert.Equal(t, 999, end)

	assert.Equal(t, []rangeCall{{50, 170}, {0, 80}, {930, 999}}, sink.ranges)
}

func TestUpdateForwardsOnlyOnChange(t *testing.T) {
	sink := &fakeSink{rows: 1000}
	c := NewController(sink, Options{Buffer: 10})
	defer c.Close()

	c.Update(100, 120)
	_, _, fwd := c.Update(100, 120)
	assert.False(t, fwd)
	assert.Len(t, sink.ranges, 1)

	c.Reset()
	_, _, fwd = c.Update(100, 120)
	assert.True(t, fwd)
	assert.Len(t, sink.ranges, 2)
}

func TestUpdateEmptySink(t *testing.T) {
	sink := &fakeSink{}
	c := NewController(sink, Options{})
	defer c.Close()

	_, _, fwd := c.Update(0, 10)
	assert.False(t, fwd)
	assert.Empty(t, sink.ranges)
}

func TestSetBufferRereports(t *testing.T) {
	sink := &fakeSink{rows: 1000}
	c := NewController(sink, Options{Buffer: 10})
	defer c.Close()

	c.Update(100, 120)
	c.SetBuffer(0)
	c.SetBuffer(10)
	assert.Len(t, sink.ranges, 1)

	c.SetBuffer(20)
	require.Len(t, sink.ranges, 2)
	assert.Equal(t, rangeCall{80, 140}, sink.ranges[1])
}

func TestVelocityFromScrollEvents(t *testing.T) {
	sink := &fakeSink{rows: 100_000}
	c, mt := newManualController(sink, 10)

	c.Scroll(0)
	assert.Empty(t, sink.Velocities(), "first event has no velocity")

	mt.advance(100 * time.Millisecond)
	c.Scroll(600)
	mt.advance(50 * time.Millisecond)
	c.Scroll(300)

	assert.Equal(t, []float64{6000, -6000}, sink.Velocities())
	assert.Equal(t, -6000.0, c.Velocity())

	// No time elapsed: nothing new is reported.
	c.Scroll(900)
	assert.Len(t, sink.Velocities(), 2)
}

func TestVelocityDecaysToZero(t *testing.T) {
	sink := &fakeSink{rows: 100_000}
	c, mt := newManualController(sink, 10)

	c.Scroll(0)
	mt.advance(10 * time.Millisecond)
	c.Scroll(100)
	require.Len(t, mt.timers, 1)
	assert.Equal(t, DefaultDecay, mt.timers[0].d)

	mt.advance(10 * time.Millisecond)
	c.Scroll(200)
	require.Len(t, mt.timers, 2)
	assert.True(t, mt.timers[0].stopped, "a new event re-arms the decay timer")

	// A stale callback is ignored.
	mt.timers[0].f()
	assert.Equal(t, 10_000.0, c.Velocity())

	mt.fire()
	assert.Zero(t, c.Velocity())
	assert.Equal(t, []float64{10_000, 10_000, 0}, sink.Velocities())
}

func TestUpdateGeometry(t *testing.T) {
	sink := &fakeSink{rows: 10_000}
	c, mt := newManualController(sink, 5)

	start, end, fwd := c.UpdateGeometry(Geometry{ScrollOffset: 0, Height: 300, RowHeight: 30})
	assert.True(t, fwd)
	assert.Equal(t, 0, start)
	assert.Equal(t, 14, end)

	mt.advance(time.Second)
	start, end, _ = c.UpdateGeometry(Geometry{ScrollOffset: 3000, Height: 300, RowHeight: 30})
	assert.Equal(t, 95, start)
	assert.Equal(t, 114, end)
	assert.Equal(t, []float64{3000}, sink.Velocities())
}

func TestRealDecayTimer(t *testing.T) {
	sink := &fakeSink{rows: 100}
	c := NewController(sink, Options{Decay: 10 * time.Millisecond})
	defer c.Close()

	c.Scroll(0)
	time.Sleep(2 * time.Millisecond)
	c.Scroll(50)

	assert.Eventually(t, func() bool {
		v := sink.Velocities()
		return len(v) == 2 && v[1] == 0
	}, time.Second, time.Millisecond)
}
