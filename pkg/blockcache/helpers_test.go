package blockcache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/marmos91/vtable/pkg/datasource"
	"github.com/marmos91/vtable/pkg/loader"
)

type loadCall struct {
	start, count int
}

// countingSource produces row r as [Int(r), Text("r<r>c1"), ...] and
// records every load.
type countingSource struct {
	rows, cols int

	mu    sync.Mutex
	calls []loadCall
}

func newCountingSource(rows, cols int) *countingSource {
	return &countingSource{rows: rows, cols: cols}
}

func (s *countingSource) RowCount() int    { return s.rows }
func (s *countingSource) ColumnCount() int { return s.cols }

func (s *countingSource) HeaderRow() []string {
	h := make([]string, s.cols)
	for i := range h {
		h[i] = fmt.Sprintf("h%d", i)
	}
	return h
}

func (s *countingSource) LoadRows(start, count int) []datasource.Row {
	s.mu.Lock()
	s.calls = append(s.calls, loadCall{start, count})
	s.mu.Unlock()

	if start < 0 || start >= s.rows {
		return nil
	}
	count = min(count, s.rows-start)
	out := make([]datasource.Row, count)
	for i := range out {
		out[i] = s.row(start + i)
	}
	return out
}

func (s *countingSource) row(r int) datasource.Row {
	row := make(datasource.Row, s.cols)
	for c := range row {
		if c == 0 {
			row[c] = datasource.Int(int64(r))
			continue
		}
		row[c] = datasource.Text(fmt.Sprintf("r%dc%d", r, c))
	}
	return row
}

func (s *countingSource) Calls() []loadCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]loadCall(nil), s.calls...)
}

// failingSource fails every load.
type failingSource struct {
	countingSource
}

var errBackend = errors.New("backend unavailable")

func (s *failingSource) LoadRowsContext(context.Context, int, int) ([]datasource.Row, error) {
	return nil, errBackend
}

// invalidSource reports itself unusable.
type invalidSource struct {
	countingSource
}

func (s *invalidSource) Valid() bool { return false }
func (s *invalidSource) Err() error  { return errBackend }

// manualExec holds jobs and runs them ignoring cancellation, modeling a
// source that cannot be interrupted.
type manualExec struct {
	mu   sync.Mutex
	jobs []loader.Func
}

func (e *manualExec) Submit(_ context.Context, _ loader.Priority, fn loader.Func) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.jobs = append(e.jobs, fn)
	return true
}

func (e *manualExec) Close() {}

func (e *manualExec) runAll() {
	e.mu.Lock()
	jobs := e.jobs
	e.jobs = nil
	e.mu.Unlock()
	for _, fn := range jobs {
		fn(context.Background())
	}
}

// rejectExec refuses all work.
type rejectExec struct{}

func (rejectExec) Submit(context.Context, loader.Priority, loader.Func) bool { return false }
func (rejectExec) Close()                                                    {}

// fakeClock advances one millisecond per call.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

func newModel(t *testing.T, exec loader.Executor, src datasource.DataSource, opts ...func(*Options)) *Model {
	t.Helper()
	o := Options{Executor: exec, BlockSize: 1000, Policy: Balanced}
	for _, fn := range opts {
		fn(&o)
	}
	m := New(o)
	t.Cleanup(m.Close)
	if src != nil {
		m.SetDataSource(src)
	}
	return m
}

func withBlockSize(n int) func(*Options) {
	return func(o *Options) { o.BlockSize = n }
}

func withPolicy(p PreloadPolicy) func(*Options) {
	return func(o *Options) { o.Policy = p }
}

func blockRange(first, last int) []int {
	out := make([]int, 0, last-first+1)
	for i := first; i <= last; i++ {
		out = append(out, i)
	}
	return out
}
