// Package blockcache pages a large row set through memory in fixed-size
// blocks.
//
// A Model sits between a viewport and a datasource.DataSource. The viewport
// reports the rows it shows and how fast it is scrolling; the Model loads the
// blocks covering those rows (and a policy-sized window around them) on an
// executor, evicts blocks nobody is looking at, and serves cell lookups from
// whatever is resident. Lookups never block: a row whose block is not
// resident yet reads as datasource.Pending, and an OnRowsChanged callback
// fires once the block lands.
//
// Control operations (SetVisibleRange, SetPreloadPolicy, Cleanup, ...) are
// meant to be driven from one goroutine. Loads run concurrently and merge
// back under the Model's lock. Callbacks run on whichever goroutine caused
// the event, which for merges is an executor worker.
package blockcache

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/marmos91/vtable/internal/logger"
	"github.com/marmos91/vtable/pkg/datasource"
	"github.com/marmos91/vtable/pkg/loader"
	"github.com/marmos91/vtable/pkg/metrics"
)

// block is a resident run of rows.
type block struct {
	index      int
	start      int
	rows       []datasource.Row
	lastAccess time.Time
	seq        uint64
}

// pendingLoad is an in-flight block load.
type pendingLoad struct {
	gen      uint64
	priority loader.Priority
	cancel   context.CancelFunc
}

// Model is a virtual paging cache over a DataSource.
type Model struct {
	id      string
	opts    Options
	exec    loader.Executor
	metrics *metrics.CacheMetrics

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	src        datasource.DataSource
	rowCount   int
	colCount   int
	blockSize  int
	policy     PreloadPolicy
	ahead      int
	behind     int
	blocks     map[int]*block
	pending    map[int]*pendingLoad
	generation uint64
	hasVisible bool
	visStart   int
	visEnd     int
	status     Status
	all        *loadAllState
	seq        uint64
	closed     bool
	settled    chan struct{} // closed and replaced on every settle

	subMu      sync.RWMutex
	nextSub    int
	rowSubs    map[int]func(start, end int)
	statusSubs map[int]func(Status)
}

// New creates a Model with no data source.
func New(opts Options) *Model {
	opts.applyDefaults()

	exec := opts.Executor
	if exec == nil {
		pool := loader.NewPool(loader.Config{Workers: opts.Workers, QueueSize: opts.QueueSize})
		pool.Start()
		exec = pool
	}

	ctx, cancel := context.WithCancel(context.Background())
	ahead, behind := opts.Policy.Counts()

	m := &Model{
		id:         uuid.NewString(),
		opts:       opts,
		exec:       exec,
		metrics:    opts.Metrics,
		ctx:        ctx,
		cancel:     cancel,
		blockSize:  opts.BlockSize,
		policy:     opts.Policy,
		ahead:      ahead,
		behind:     behind,
		blocks:     make(map[int]*block),
		pending:    make(map[int]*pendingLoad),
		generation: 1,
		settled:    make(chan struct{}),
		rowSubs:    make(map[int]func(int, int)),
		statusSubs: make(map[int]func(Status)),
	}

	logger.Debug("block cache created",
		logger.KeySession, m.id,
		"block_size", opts.BlockSize,
		logger.KeyPolicy, opts.Policy.String())
	return m
}

// ID returns the session identifier used in logs.
func (m *Model) ID() string { return m.id }

// ============================================================================
// Configuration
// ============================================================================

// SetDataSource replaces the active source and drops every cached and
// pending block. A nil or invalid source leaves the Model with no rows.
func (m *Model) SetDataSource(src datasource.DataSource) {
	rows, cols := 0, 0
	if datasource.IsUsable(src) {
		rows = src.RowCount()
		cols = src.ColumnCount()
	} else {
		if v, ok := src.(datasource.Validator); ok {
			logger.Warn("data source is not usable",
				logger.KeySession, m.id, logger.Err(v.Err()))
		}
		src = nil
	}

	var n notifications
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	oldRows := m.rowCount
	m.resetLocked(&n)
	m.src = src
	m.rowCount = rows
	m.colCount = cols
	m.hasVisible = false
	if span := max(oldRows, rows); span > 0 {
		n.rows = append(n.rows, rowSpan{0, span - 1})
	}
	gen := m.generation
	m.mu.Unlock()

	logger.Info("data source set",
		logger.KeySession, m.id,
		logger.KeySource, sourceKind(src),
		logger.KeyRows, rows,
		logger.KeyColumns, cols,
		logger.KeyGeneration, gen)
	m.dispatch(n)
}

// SetBlockSize changes the number of rows per block. Non-positive sizes and
// the current size are ignored; any other value drops every cached block.
func (m *Model) SetBlockSize(size int) {
	var n notifications
	m.mu.Lock()
	if m.closed || size <= 0 || size == m.blockSize {
		m.mu.Unlock()
		return
	}
	m.resetLocked(&n)
	m.blockSize = size
	m.hasVisible = false
	m.mu.Unlock()

	logger.Debug("block size changed", logger.KeySession, m.id, "block_size", size)
	m.dispatch(n)
}

// SetPreloadPolicy changes the prefetch window. When a visible range is set
// the new window is prefetched immediately.
func (m *Model) SetPreloadPolicy(p PreloadPolicy) {
	m.mu.Lock()
	if m.closed || p == m.policy {
		m.mu.Unlock()
		return
	}
	m.policy = p
	m.ahead, m.behind = p.Counts()
	visible := m.hasVisible
	m.mu.Unlock()

	logger.Debug("preload policy changed", logger.KeySession, m.id, logger.KeyPolicy, p.String())
	if visible {
		m.prefetch()
	}
}

// SetScrollVelocity adapts the prefetch window to scroll speed (rows per
// second). Above the fast threshold both counts are halved; below the slow
// threshold the policy counts are restored. In between nothing changes.
func (m *Model) SetScrollVelocity(v float64) {
	speed := math.Abs(v)

	m.mu.Lock()
	defer m.mu.Unlock()

	var ahead, behind int
	switch {
	case speed > m.opts.FastScroll:
		ahead, behind = scaledCounts(m.policy, true)
	case speed < m.opts.SlowScroll:
		ahead, behind = scaledCounts(m.policy, false)
	default:
		return
	}
	if ahead != m.ahead || behind != m.behind {
		m.ahead, m.behind = ahead, behind
		logger.Debug("prefetch window resized",
			logger.KeySession, m.id,
			logger.KeyVelocity, v,
			"ahead", ahead,
			"behind", behind)
	}
}

// ============================================================================
// Viewport
// ============================================================================

// SetVisibleRange tells the Model which rows (inclusive) are on screen. The
// range is clamped to the data; an empty range after clamping is ignored.
//
// Visible blocks are loaded first, then the prefetch window around the
// range's center block, then Cleanup runs. Cleanup always retains the
// visible blocks and the prefetch window.
func (m *Model) SetVisibleRange(start, end int) {
	var n notifications
	m.mu.Lock()
	if m.closed || m.rowCount == 0 {
		m.mu.Unlock()
		return
	}
	start = max(0, start)
	end = min(m.rowCount-1, end)
	if start > end {
		m.mu.Unlock()
		return
	}
	m.hasVisible = true
	m.visStart, m.visEnd = start, end

	var reqs []*request
	for idx := start / m.blockSize; idx <= end/m.blockSize; idx++ {
		if r := m.requestLocked(idx, loader.PriorityVisible, metrics.PriorityVisible); r != nil {
			reqs = append(reqs, r)
		}
	}
	m.settleStatusLocked(&n)
	m.mu.Unlock()

	m.dispatch(n)
	m.submit(reqs...)

	m.prefetch()
	m.Cleanup()

	n = notifications{}
	m.mu.Lock()
	m.settleStatusLocked(&n)
	m.mu.Unlock()
	m.dispatch(n)
}

// VisibleRange returns the last range passed to SetVisibleRange after
// clamping. ok is false when no range is set.
func (m *Model) VisibleRange() (start, end int, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.visStart, m.visEnd, m.hasVisible
}

// JumpToRow centers the visible window on row, keeping the current window
// height (DefaultSpan rows when none is set). Rows outside the data are
// ignored.
func (m *Model) JumpToRow(row int) {
	m.mu.Lock()
	if row < 0 || row >= m.rowCount {
		m.mu.Unlock()
		return
	}
	span := m.opts.DefaultSpan
	if m.hasVisible {
		span = m.visEnd - m.visStart + 1
	}
	rows := m.rowCount
	m.mu.Unlock()

	start := max(0, row-span/2)
	end := min(rows-1, start+span-1)
	m.SetVisibleRange(start, end)
}

// prefetch requests the prefetch window around the visible center block.
func (m *Model) prefetch() {
	var n notifications
	m.mu.Lock()
	if m.closed || !m.hasVisible {
		m.mu.Unlock()
		return
	}
	first, last := prefetchRange(m.centerLocked(), m.ahead, m.behind, m.totalBlocksLocked())
	var reqs []*request
	for idx := first; idx <= last; idx++ {
		if r := m.requestLocked(idx, loader.PriorityPrefetch, metrics.PriorityPrefetch); r != nil {
			reqs = append(reqs, r)
		}
	}
	m.settleStatusLocked(&n)
	m.mu.Unlock()

	m.dispatch(n)
	m.submit(reqs...)
}

// ============================================================================
// Lookups
// ============================================================================

// Row returns the cells of row. When the owning block is not resident its
// load is scheduled and a row of pending cells is returned. Rows outside the
// data return nil.
func (m *Model) Row(row int) datasource.Row {
	r, pending, cols := m.lookup(row)
	if pending {
		out := make(datasource.Row, cols)
		for i := range out {
			out[i] = datasource.Pending
		}
		return out
	}
	return r
}

// Value returns one cell. Out-of-range coordinates return datasource.Null;
// cells of non-resident blocks return datasource.Pending.
func (m *Model) Value(row, col int) datasource.Value {
	r, pending, cols := m.lookup(row)
	if col < 0 || col >= cols {
		return datasource.Null
	}
	if pending {
		return datasource.Pending
	}
	if col >= len(r) {
		return datasource.Null
	}
	return r[col]
}

func (m *Model) lookup(row int) (datasource.Row, bool, int) {
	m.mu.Lock()
	if row < 0 || row >= m.rowCount {
		m.mu.Unlock()
		return nil, false, 0
	}
	cols := m.colCount
	idx := row / m.blockSize
	if b, ok := m.blocks[idx]; ok {
		m.touchLocked(b)
		r := b.row(row).Fit(cols)
		m.mu.Unlock()
		m.metrics.ObserveLookup(true)
		return r, false, cols
	}
	req := m.requestLocked(idx, loader.PriorityVisible, metrics.PriorityVisible)
	m.mu.Unlock()

	m.metrics.ObserveLookup(false)
	if req != nil {
		m.submit(req)
	}
	return nil, true, cols
}

func (b *block) row(row int) datasource.Row {
	i := row - b.start
	if i < 0 || i >= len(b.rows) {
		return nil
	}
	return b.rows[i]
}

// HeaderName returns the name of column col, or "Column N" when the source
// has no header for it.
func (m *Model) HeaderName(col int) string {
	m.mu.Lock()
	src := m.src
	m.mu.Unlock()
	return datasource.HeaderName(src, col)
}

// HeaderNames returns HeaderName for every column.
func (m *Model) HeaderNames() []string {
	m.mu.Lock()
	src, cols := m.src, m.colCount
	m.mu.Unlock()

	names := make([]string, cols)
	for c := range names {
		names[c] = datasource.HeaderName(src, c)
	}
	return names
}

// RowLabel returns the 1-based label shown next to row.
func (m *Model) RowLabel(row int) string {
	return strconv.Itoa(row + 1)
}

// ============================================================================
// Accessors
// ============================================================================

// RowCount returns the number of rows of the current source.
func (m *Model) RowCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rowCount
}

// ColumnCount returns the number of columns of the current source.
func (m *Model) ColumnCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.colCount
}

// BlockSize returns the number of rows per block.
func (m *Model) BlockSize() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.blockSize
}

// Policy returns the current preload policy.
func (m *Model) Policy() PreloadPolicy {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.policy
}

// PrefetchCounts returns the current (velocity adjusted) prefetch counts.
func (m *Model) PrefetchCounts() (ahead, behind int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ahead, m.behind
}

// TotalBlocks returns ceil(RowCount / BlockSize).
func (m *Model) TotalBlocks() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totalBlocksLocked()
}

// BlockSpan returns the first row and row count of block idx. count is zero
// for indexes outside the data.
func (m *Model) BlockSpan(idx int) (start, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.blockSpanLocked(idx)
}

// LoadingStatus returns the advisory loading state.
func (m *Model) LoadingStatus() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// ResidentBlocks returns the indexes of resident blocks in ascending order.
func (m *Model) ResidentBlocks() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int, 0, len(m.blocks))
	for idx := range m.blocks {
		out = append(out, idx)
	}
	slices.Sort(out)
	return out
}

// PendingBlocks returns the indexes of in-flight loads in ascending order.
func (m *Model) PendingBlocks() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int, 0, len(m.pending))
	for idx := range m.pending {
		out = append(out, idx)
	}
	slices.Sort(out)
	return out
}

// Close cancels in-flight loads and stops the executor. The Model serves
// no rows afterwards.
func (m *Model) Close() {
	var n notifications
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.resetLocked(&n)
	m.closed = true
	m.src = nil
	m.rowCount, m.colCount = 0, 0
	m.hasVisible = false
	m.mu.Unlock()

	m.cancel()
	m.exec.Close()
	m.dispatch(n)
	logger.Debug("block cache closed", logger.KeySession, m.id)
}

// ============================================================================
// Locked helpers
// ============================================================================

func (m *Model) totalBlocksLocked() int {
	if m.rowCount <= 0 || m.blockSize <= 0 {
		return 0
	}
	return (m.rowCount + m.blockSize - 1) / m.blockSize
}

func (m *Model) blockSpanLocked(idx int) (start, count int) {
	if idx < 0 || idx >= m.totalBlocksLocked() {
		return 0, 0
	}
	start = idx * m.blockSize
	return start, min(m.blockSize, m.rowCount-start)
}

func (m *Model) centerLocked() int {
	return (m.visStart/m.blockSize + m.visEnd/m.blockSize) / 2
}

func (m *Model) visibleResidentLocked() bool {
	if !m.hasVisible {
		return true
	}
	for idx := m.visStart / m.blockSize; idx <= m.visEnd/m.blockSize; idx++ {
		if _, ok := m.blocks[idx]; !ok {
			return false
		}
	}
	return true
}

func (m *Model) prefetchPendingLocked() bool {
	for _, p := range m.pending {
		if p.priority == loader.PriorityPrefetch {
			return true
		}
	}
	return false
}

func (m *Model) touchLocked(b *block) {
	m.seq++
	b.seq = m.seq
	b.lastAccess = m.opts.Clock()
}

func (m *Model) setStatusLocked(s Status, n *notifications) {
	if s == m.status {
		return
	}
	m.status = s
	n.status = append(n.status, s)
}

// settleStatusLocked derives the status from the block and pending sets and
// wakes WaitVisible callers.
func (m *Model) settleStatusLocked(n *notifications) {
	m.wakeLocked()
	if m.all != nil {
		if !m.allCompleteLocked() {
			m.setStatusLocked(LoadingAll, n)
			return
		}
		m.finishAllLocked(nil)
	}

	switch {
	case !m.visibleResidentLocked():
		m.setStatusLocked(LoadingVisible, n)
	case m.prefetchPendingLocked():
		m.setStatusLocked(LoadingPreload, n)
	default:
		m.setStatusLocked(Idle, n)
	}
}

// resetLocked drops every block, cancels pending loads and starts a new
// generation so late merges are discarded.
func (m *Model) resetLocked(n *notifications) {
	for _, p := range m.pending {
		p.cancel()
	}
	clear(m.pending)
	clear(m.blocks)
	m.generation++
	if m.all != nil {
		m.finishAllLocked(ErrReset)
	}
	m.setStatusLocked(Idle, n)
	m.wakeLocked()
	m.metrics.SetResident(0)
	m.metrics.SetPending(0)
}

func (m *Model) wakeLocked() {
	close(m.settled)
	m.settled = make(chan struct{})
}

func sourceKind(src datasource.DataSource) string {
	if src == nil {
		return "none"
	}
	return fmt.Sprintf("%T", src)
}
