package blockcache

import (
	"sort"

	"github.com/RoaringBitmap/roaring"

	"github.com/marmos91/vtable/internal/logger"
)

// ============================================================================
// Eviction
// ============================================================================
//
// Cleanup does nothing while few blocks are resident. Past that, the retained
// set is the visible blocks, the prefetch window around the visible center
// and the MaxExtraBlocks most recently accessed blocks outside both. Every
// other resident block is dropped. Pending loads are never touched.
// Eviction is suspended while LoadAll runs.

// Cleanup evicts blocks outside the retained set and returns how many were
// dropped.
func (m *Model) Cleanup() int {
	m.mu.Lock()
	if m.all != nil || len(m.blocks) <= evictThreshold {
		m.mu.Unlock()
		return 0
	}

	retained := m.retainedLocked()

	outside := make([]*block, 0, len(m.blocks))
	for idx, b := range m.blocks {
		if !retained.Contains(uint32(idx)) {
			outside = append(outside, b)
		}
	}

	// Most recently accessed first
	sort.Slice(outside, func(i, j int) bool {
		a, b := outside[i], outside[j]
		if !a.lastAccess.Equal(b.lastAccess) {
			return a.lastAccess.After(b.lastAccess)
		}
		return a.seq > b.seq
	})

	keep := min(len(outside), m.opts.MaxExtraBlocks)
	for _, b := range outside[keep:] {
		delete(m.blocks, b.index)
	}
	evicted := len(outside) - keep
	resident := len(m.blocks)
	m.mu.Unlock()

	if evicted > 0 {
		m.metrics.ObserveEvictions(evicted)
		m.metrics.SetResident(resident)
		logger.Debug("evicted blocks",
			logger.KeySession, m.id,
			logger.KeyEvicted, evicted,
			logger.KeyResident, resident)
	}
	return evicted
}

// retainedLocked returns the structural part of the retained set: the
// visible blocks plus the prefetch window.
func (m *Model) retainedLocked() *roaring.Bitmap {
	retained := roaring.New()
	if !m.hasVisible {
		return retained
	}

	first, last := m.visStart/m.blockSize, m.visEnd/m.blockSize
	retained.AddRange(uint64(first), uint64(last)+1)

	pf, pl := prefetchRange(m.centerLocked(), m.ahead, m.behind, m.totalBlocksLocked())
	if pl >= pf {
		retained.AddRange(uint64(pf), uint64(pl)+1)
	}
	return retained
}

// PrefetchWindow returns the inclusive block range retained around the
// visible center. ok is false when no visible range is set.
func (m *Model) PrefetchWindow() (first, last int, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hasVisible {
		return 0, -1, false
	}
	first, last = prefetchRange(m.centerLocked(), m.ahead, m.behind, m.totalBlocksLocked())
	return first, last, true
}
