package blockcache

import (
	"context"
	"time"

	"github.com/marmos91/vtable/internal/logger"
	"github.com/marmos91/vtable/pkg/loader"
	"github.com/marmos91/vtable/pkg/metrics"
)

// loadAllBackoff is how long LoadAll waits when the executor queue is full.
const loadAllBackoff = 5 * time.Millisecond

type loadAllState struct {
	gen    uint64
	failed map[int]struct{}
	done   chan struct{}
	err    error
}

// LoadAll loads every block of the source and waits until each one is
// resident or has failed. Status is LoadingAll meanwhile and Cleanup is
// suspended, so the whole data set stays in memory afterwards.
//
// It returns ErrReset when the source or block size changes midway, and
// ctx.Err() when ctx ends first; in both cases the pass is abandoned.
func (m *Model) LoadAll(ctx context.Context) error {
	var n notifications
	m.mu.Lock()
	switch {
	case m.closed:
		m.mu.Unlock()
		return ErrClosed
	case m.src == nil:
		m.mu.Unlock()
		return ErrNoData
	case m.all != nil:
		m.mu.Unlock()
		return ErrLoadAllRunning
	}
	st := &loadAllState{
		gen:    m.generation,
		failed: make(map[int]struct{}),
		done:   make(chan struct{}),
	}
	m.all = st
	total := m.totalBlocksLocked()
	m.settleStatusLocked(&n)
	m.mu.Unlock()
	m.dispatch(n)

	started := time.Now()
	logger.Info("loading all blocks", logger.KeySession, m.id, "blocks", total)

submitLoop:
	for idx := 0; idx < total; idx++ {
		for {
			r, active := m.requestForAll(st, idx)
			if !active {
				break submitLoop
			}
			if r == nil || m.trySubmit(r) {
				break
			}
			m.finish(r, false)

			select {
			case <-ctx.Done():
				m.abortAll(st, ctx.Err())
				return ctx.Err()
			case <-st.done:
				break submitLoop
			case <-time.After(loadAllBackoff):
			}
		}
	}

	select {
	case <-st.done:
	case <-ctx.Done():
		m.abortAll(st, ctx.Err())
		return ctx.Err()
	}

	if st.err == nil {
		logger.Info("all blocks loaded",
			logger.KeySession, m.id,
			"failed", len(st.failed),
			logger.DurationMs(started))
	}
	return st.err
}

// requestForAll registers the load of block idx for the LoadAll pass st.
// active is false once st has finished.
func (m *Model) requestForAll(st *loadAllState, idx int) (r *request, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.all != st {
		return nil, false
	}
	return m.requestLocked(idx, loader.PriorityPrefetch, metrics.PriorityAll), true
}

func (m *Model) abortAll(st *loadAllState, err error) {
	var n notifications
	m.mu.Lock()
	if m.all == st {
		m.finishAllLocked(err)
		m.settleStatusLocked(&n)
	}
	m.mu.Unlock()
	m.dispatch(n)
}

func (m *Model) allCompleteLocked() bool {
	return len(m.blocks)+len(m.all.failed) >= m.totalBlocksLocked()
}

func (m *Model) finishAllLocked(err error) {
	m.all.err = err
	close(m.all.done)
	m.all = nil
}

// Progress returns the fraction of blocks resident, in [0, 1].
func (m *Model) Progress() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.progressLocked()
}

func (m *Model) progressLocked() float64 {
	total := m.totalBlocksLocked()
	if total == 0 {
		return 1
	}
	return float64(len(m.blocks)) / float64(total)
}
