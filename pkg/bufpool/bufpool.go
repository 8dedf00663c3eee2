// Package bufpool provides tiered, reusable byte buffers for file reads.
//
// The tiers line up with the flat-file reader's access sizes: a single
// line (4 KiB), the fallback read window (64 KiB) and the full scan window
// (1 MiB). Requests above the largest tier are allocated directly and never
// pooled.
//
//	buf := bufpool.Get(size)
//	defer bufpool.Put(buf)
package bufpool

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Default tier sizes.
const (
	LineSize   = 4 << 10
	WindowSize = 64 << 10
	ScanSize   = 1 << 20
)

type tier struct {
	size int
	pool sync.Pool
}

// Pool hands out buffers from a fixed set of size classes.
type Pool struct {
	tiers     []*tier
	hits      atomic.Uint64
	oversized atomic.Uint64
}

// Stats reports pool usage.
type Stats struct {
	Pooled    uint64 // Get calls served from a tier
	Oversized uint64 // Get calls larger than every tier
}

// NewPool creates a pool with the given tier sizes. Non-positive sizes are
// dropped and duplicates collapsed; with no usable size the default tiers
// are used.
func NewPool(sizes ...int) *Pool {
	uniq := make(map[int]struct{}, len(sizes))
	for _, s := range sizes {
		if s > 0 {
			uniq[s] = struct{}{}
		}
	}
	if len(uniq) == 0 {
		uniq = map[int]struct{}{LineSize: {}, WindowSize: {}, ScanSize: {}}
	}

	ordered := make([]int, 0, len(uniq))
	for s := range uniq {
		ordered = append(ordered, s)
	}
	sort.Ints(ordered)

	p := &Pool{tiers: make([]*tier, len(ordered))}
	for i, size := range ordered {
		t := &tier{size: size}
		t.pool.New = func() any {
			buf := make([]byte, t.size)
			return &buf
		}
		p.tiers[i] = t
	}
	return p
}

// Get returns a slice of length size. Its capacity is the tier size, so it
// must be handed back with Put once the caller is done.
func (p *Pool) Get(size int) []byte {
	if size < 0 {
		size = 0
	}
	for _, t := range p.tiers {
		if size <= t.size {
			p.hits.Add(1)
			buf := *(t.pool.Get().(*[]byte))
			return buf[:size]
		}
	}
	p.oversized.Add(1)
	return make([]byte, size)
}

// Put returns buf to the tier matching its capacity. Buffers that match no
// tier are left to the garbage collector.
func (p *Pool) Put(buf []byte) {
	if buf == nil {
		return
	}
	for _, t := range p.tiers {
		if cap(buf) == t.size {
			full := buf[:cap(buf)]
			t.pool.Put(&full)
			return
		}
	}
}

// Sizes returns the tier sizes in ascending order.
func (p *Pool) Sizes() []int {
	out := make([]int, len(p.tiers))
	for i, t := range p.tiers {
		out[i] = t.size
	}
	return out
}

// Stats returns a snapshot of the usage counters.
func (p *Pool) Stats() Stats {
	return Stats{Pooled: p.hits.Load(), Oversized: p.oversized.Load()}
}

var globalPool = NewPool()

// Get returns a buffer of length size from the shared pool.
func Get(size int) []byte {
	return globalPool.Get(size)
}

// Put returns a buffer to the shared pool.
func Put(buf []byte) {
	globalPool.Put(buf)
}
