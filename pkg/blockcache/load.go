package blockcache

import (
	"context"
	"errors"
	"time"

	"github.com/marmos91/vtable/internal/logger"
	"github.com/marmos91/vtable/internal/telemetry"
	"github.com/marmos91/vtable/pkg/datasource"
	"github.com/marmos91/vtable/pkg/loader"
)

// request describes one block load registered in the pending set.
type request struct {
	index    int
	start    int
	count    int
	gen      uint64
	priority loader.Priority
	label    string
	ctx      context.Context
	src      datasource.DataSource
	p        *pendingLoad
}

// requestLocked registers a load for block idx unless the block is resident,
// already pending, or outside the data. The returned request must be passed
// to submit after the lock is released.
func (m *Model) requestLocked(idx int, pr loader.Priority, label string) *request {
	if m.closed || m.src == nil {
		return nil
	}
	start, count := m.blockSpanLocked(idx)
	if count == 0 {
		return nil
	}
	if _, ok := m.blocks[idx]; ok {
		return nil
	}
	if _, ok := m.pending[idx]; ok {
		return nil
	}

	ctx, cancel := context.WithCancel(m.ctx)
	p := &pendingLoad{gen: m.generation, priority: pr, cancel: cancel}
	m.pending[idx] = p
	m.metrics.SetPending(len(m.pending))

	return &request{
		index:    idx,
		start:    start,
		count:    count,
		gen:      m.generation,
		priority: pr,
		label:    label,
		ctx:      ctx,
		src:      m.src,
		p:        p,
	}
}

// submit hands requests to the executor. Requests the executor refuses are
// removed from the pending set again.
func (m *Model) submit(reqs ...*request) {
	for _, r := range reqs {
		if !m.trySubmit(r) {
			logger.Warn("block load rejected",
				logger.KeySession, m.id,
				logger.Block(r.index),
				logger.KeyPriority, r.label)
			m.finish(r, true)
		}
	}
}

func (m *Model) trySubmit(r *request) bool {
	m.metrics.ObserveLoad(r.label)
	return m.exec.Submit(r.ctx, r.priority, func(ctx context.Context) {
		m.load(ctx, r)
	})
}

// load runs on an executor worker.
func (m *Model) load(ctx context.Context, r *request) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanBlockLoad,
		telemetry.Block(r.index),
		telemetry.StartRow(r.start),
		telemetry.Count(r.count),
		telemetry.Generation(r.gen),
		telemetry.Priority(r.label))
	defer span.End()

	lc := &logger.LogContext{Session: m.id, Source: sourceKind(r.src), Generation: r.gen}
	ctx = logger.WithContext(ctx, lc.WithTrace(telemetry.TraceID(ctx), telemetry.SpanID(ctx)))

	started := time.Now()
	rows, err := datasource.Load(ctx, r.src, r.start, r.count)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.DebugCtx(ctx, "block load canceled", logger.Block(r.index))
		} else {
			telemetry.RecordError(ctx, err)
			logger.WarnCtx(ctx, "block load failed", logger.Block(r.index), logger.Err(err))
		}
		m.finish(r, true)
		return
	}
	span.SetAttributes(telemetry.RowsLoaded(len(rows)))

	m.merge(ctx, r, rows)
	m.metrics.ObserveMerge(time.Since(started))
}

// merge stores a completed load. Loads from an older generation, or whose
// pending entry was replaced, are discarded.
func (m *Model) merge(ctx context.Context, r *request, rows []datasource.Row) {
	var n notifications
	m.mu.Lock()
	if m.closed || r.gen != m.generation || m.pending[r.index] != r.p {
		m.mu.Unlock()
		m.metrics.ObserveStale()
		logger.DebugCtx(ctx, "discarding stale block load", logger.Block(r.index))
		return
	}
	delete(m.pending, r.index)
	r.p.cancel()

	b := &block{index: r.index, start: r.start, rows: rows}
	m.touchLocked(b)
	m.blocks[r.index] = b
	if m.all != nil {
		delete(m.all.failed, r.index)
	}
	if len(rows) > 0 {
		n.rows = append(n.rows, rowSpan{r.start, r.start + len(rows) - 1})
	}
	m.settleStatusLocked(&n)
	resident, pending := len(m.blocks), len(m.pending)
	m.mu.Unlock()

	m.metrics.SetResident(resident)
	m.metrics.SetPending(pending)
	logger.DebugCtx(ctx, "block merged",
		logger.Block(r.index),
		logger.KeyStartRow, r.start,
		logger.KeyCount, len(rows),
		logger.KeyResident, resident)
	m.dispatch(n)
}

// finish drops the pending entry of a load that will not merge. When failed
// is set and a LoadAll pass is running the block counts as done.
func (m *Model) finish(r *request, failed bool) {
	var n notifications
	m.mu.Lock()
	if r.gen != m.generation || m.pending[r.index] != r.p {
		m.mu.Unlock()
		return
	}
	delete(m.pending, r.index)
	r.p.cancel()
	if failed && m.all != nil {
		m.all.failed[r.index] = struct{}{}
	}
	m.settleStatusLocked(&n)
	pending := len(m.pending)
	m.mu.Unlock()

	m.metrics.SetPending(pending)
	m.dispatch(n)
}
