package blockcache

import (
	"context"
	"sync"
)

// rowSpan is an inclusive row range.
type rowSpan struct {
	start, end int
}

// notifications collects events raised under the lock so they can be
// delivered after it is released.
type notifications struct {
	rows   []rowSpan
	status []Status
}

// OnRowsChanged registers fn to be called with the inclusive row range whose
// data changed, either because a block was merged or because the source was
// replaced. The returned function removes the subscription.
func (m *Model) OnRowsChanged(fn func(start, end int)) (unsubscribe func()) {
	m.subMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.rowSubs[id] = fn
	m.subMu.Unlock()

	return m.unsubscriber(func() { delete(m.rowSubs, id) })
}

// OnStatusChanged registers fn to be called whenever LoadingStatus changes.
func (m *Model) OnStatusChanged(fn func(Status)) (unsubscribe func()) {
	m.subMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.statusSubs[id] = fn
	m.subMu.Unlock()

	return m.unsubscriber(func() { delete(m.statusSubs, id) })
}

func (m *Model) unsubscriber(remove func()) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			m.subMu.Lock()
			remove()
			m.subMu.Unlock()
		})
	}
}

// dispatch delivers n. Must be called without m.mu held since subscribers
// usually read the model back.
func (m *Model) dispatch(n notifications) {
	if len(n.rows) == 0 && len(n.status) == 0 {
		return
	}

	m.subMu.RLock()
	rowSubs := make([]func(int, int), 0, len(m.rowSubs))
	for _, fn := range m.rowSubs {
		rowSubs = append(rowSubs, fn)
	}
	statusSubs := make([]func(Status), 0, len(m.statusSubs))
	for _, fn := range m.statusSubs {
		statusSubs = append(statusSubs, fn)
	}
	m.subMu.RUnlock()

	for _, s := range n.status {
		for _, fn := range statusSubs {
			fn(s)
		}
	}
	for _, span := range n.rows {
		for _, fn := range rowSubs {
			fn(span.start, span.end)
		}
	}
}

// WaitVisible blocks until every block of the visible range is resident.
// It returns ErrNotLoaded when a visible block is neither resident nor
// loading, ErrClosed after Close, and ctx.Err when ctx ends first. Without
// a visible range it returns nil immediately.
func (m *Model) WaitVisible(ctx context.Context) error {
	for {
		m.mu.Lock()
		done, err := m.visibleSettledLocked()
		wake := m.settled
		m.mu.Unlock()
		if done {
			return err
		}

		select {
		case <-wake:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (m *Model) visibleSettledLocked() (bool, error) {
	if m.closed {
		return true, ErrClosed
	}
	if !m.hasVisible {
		return true, nil
	}
	missing := false
	for idx := m.visStart / m.blockSize; idx <= m.visEnd/m.blockSize; idx++ {
		if _, ok := m.blocks[idx]; ok {
			continue
		}
		if _, ok := m.pending[idx]; ok {
			return false, nil
		}
		missing = true
	}
	if missing {
		return true, ErrNotLoaded
	}
	return true, nil
}
