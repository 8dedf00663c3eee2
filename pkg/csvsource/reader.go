// Package csvsource reads large delimited text files as random-access rows.
//
// A Reader never loads the whole file. It keeps a forward-growing index of
// row start offsets, computed only as far as the highest row requested, and
// reads lines through bounded memory-mapped windows. Parsed rows are kept in
// an LRU cache. Blank lines are skipped and get no row number.
package csvsource

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/marmos91/vtable/internal/logger"
	"github.com/marmos91/vtable/internal/telemetry"
	"github.com/marmos91/vtable/pkg/bufpool"
	"github.com/marmos91/vtable/pkg/datasource"
)

// Reader is a datasource.DataSource over a local delimited file. It is safe
// for concurrent use.
type Reader struct {
	path string
	opts Options

	mu       sync.Mutex
	f        *os.File
	m        *mapper
	cur      cursor
	idx      lineIndex
	cache    *rowCache
	header   []string
	columns  int
	rowCount int // -1 until known
	err      error
	closed   bool

	count singleflight.Group
}

// Stats describes the reader's progress through the file.
type Stats struct {
	Path        string
	FileSize    int64
	Columns     int
	IndexedRows int
	CachedRows  int
	RowCount    int // -1 when not yet counted
}

var (
	_ datasource.DataSource    = (*Reader)(nil)
	_ datasource.ContextLoader = (*Reader)(nil)
	_ datasource.Validator     = (*Reader)(nil)
)

// Open opens path and reads its first line to fix the column count. The
// row count is computed lazily.
//
// Open always returns a non-nil Reader. On failure the reader is invalid,
// reports zero rows and keeps the error available through Err, so it can
// still be handed to a block cache.
func Open(path string, opts Options) (*Reader, error) {
	return openWith(path, opts, defaultMap, defaultUnmap)
}

func openWith(path string, opts Options, mm mapFunc, mu unmapFunc) (*Reader, error) {
	opts.applyDefaults()
	r := &Reader{
		path:     path,
		opts:     opts,
		cache:    newRowCache(opts.MaxCacheRows),
		rowCount: -1,
	}
	if err := r.init(mm, mu); err != nil {
		r.err = err
		logger.Warn("Failed to open flat file", logger.KeyPath, path, logger.Err(err))
		return r, err
	}
	logger.Debug("Opened flat file",
		logger.KeyPath, path,
		"size", r.m.size,
		logger.KeyColumns, r.columns)
	return r, nil
}

func (r *Reader) init(mm mapFunc, mu unmapFunc) error {
	f, err := os.Open(r.path)
	if err != nil {
		return fmt.Errorf("open %s: %w", r.path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("stat %s: %w", r.path, err)
	}
	if info.Size() == 0 {
		_ = f.Close()
		return fmt.Errorf("%s: %w", r.path, ErrEmptyFile)
	}

	r.f = f
	r.m = newMapper(f, info.Size(), r.opts.WindowSize, r.opts.FallbackWindowSize, mm, mu, r.opts.Metrics)
	r.cur = cursor{m: r.m}

	if err := r.readHeader(); err != nil {
		_ = f.Close()
		r.f = nil
		return err
	}
	return nil
}

// readHeader parses the first line. A file whose only line has no
// terminator is accepted when the header window covers the whole file.
func (r *Reader) readHeader() error {
	v, err := r.m.head(r.opts.HeaderWindowSize)
	if err != nil {
		return err
	}
	defer v.release()

	var (
		line []byte
		end  int64
	)
	if i := bytes.IndexByte(v.data, '\n'); i >= 0 {
		line, end = v.data[:i], int64(i)+1
	} else if int64(len(v.data)) == r.m.size {
		line, end = v.data, r.m.size
	} else {
		return fmt.Errorf("%s: %w (no line end in first %d bytes)", r.path, ErrHeaderTooLong, len(v.data))
	}

	fields := splitFields(decodeLine(line), r.opts.Delimiter)
	r.columns = len(fields)
	if r.opts.HasHeader {
		r.header = fields
		r.idx.next = end
	}
	if r.idx.next >= r.m.size {
		r.idx.eof = true
		r.rowCount = 0
	}
	return nil
}

// Path returns the file path.
func (r *Reader) Path() string {
	return r.path
}

// Valid reports whether the reader can serve rows.
func (r *Reader) Valid() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.f != nil && !r.closed
}

// Err returns the last error, or nil.
func (r *Reader) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// ErrorString returns the last error message, or "".
func (r *Reader) ErrorString() string {
	if err := r.Err(); err != nil {
		return err.Error()
	}
	return ""
}

// ColumnCount returns the number of fields in the first line.
func (r *Reader) ColumnCount() int {
	return r.columns
}

// HeaderRow returns the column names, or nil for a headerless file.
func (r *Reader) HeaderRow() []string {
	if r.header == nil {
		return nil
	}
	out := make([]string, len(r.header))
	copy(out, r.header)
	return out
}

// RowCount returns the number of non-blank data lines. The first call on a
// partly indexed file counts the remaining lines without holding the reader
// lock; concurrent first calls share one count.
func (r *Reader) RowCount() int {
	r.mu.Lock()
	if r.rowCount >= 0 {
		n := r.rowCount
		r.mu.Unlock()
		return n
	}
	if r.f == nil || r.closed {
		r.mu.Unlock()
		return 0
	}
	indexed, from := r.idx.len(), r.idx.next
	r.mu.Unlock()

	v, _, _ := r.count.Do("rows", func() (any, error) {
		start := time.Now()
		n := 0
		err := r.m.scan(from, func(_, _ int64, blank bool) bool {
			if !blank {
				n++
			}
			return true
		})
		total := indexed + n

		r.mu.Lock()
		defer r.mu.Unlock()
		if err != nil {
			r.err = fmt.Errorf("count rows: %w", err)
			logger.Warn("Row count incomplete", logger.KeyPath, r.path, logger.KeyRows, total, logger.Err(err))
			return total, err
		}
		if r.rowCount < 0 {
			r.rowCount = total
		}
		logger.Debug("Counted rows", logger.KeyPath, r.path, logger.KeyRows, r.rowCount, logger.DurationMs(start))
		return r.rowCount, nil
	})
	return v.(int)
}

// LoadRows returns up to count rows starting at start. Rows that cannot be
// read end the result early; the cause is available through Err.
func (r *Reader) LoadRows(start, count int) []datasource.Row {
	rows, _ := r.LoadRowsContext(context.Background(), start, count)
	return rows
}

// LoadRowsContext is LoadRows with cancellation. It returns the rows read
// before ctx was canceled or a row failed, together with the error.
func (r *Reader) LoadRowsContext(ctx context.Context, start, count int) ([]datasource.Row, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanReaderRows,
		telemetry.Path(r.path), telemetry.StartRow(start), telemetry.Count(count))
	defer span.End()

	if !r.Valid() {
		if err := r.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", datasource.ErrSourceInvalid, err)
		}
		return nil, ErrClosed
	}
	if start < 0 || count <= 0 {
		return nil, nil
	}
	total := r.RowCount()
	if start >= total {
		return nil, nil
	}
	end := start + min(count, total-start)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}

	hits := 0
	rows := make([]datasource.Row, 0, end-start)
	for i := start; i < end; i++ {
		if err := ctx.Err(); err != nil {
			return rows, err
		}
		if row, ok := r.cache.get(i); ok {
			r.opts.Metrics.ObserveRowCache(true)
			hits++
			rows = append(rows, row)
			continue
		}
		r.opts.Metrics.ObserveRowCache(false)

		row, err := r.readRow(i, end-1)
		if err != nil {
			r.err = err
			telemetry.RecordError(ctx, err)
			logger.Warn("Row read failed", logger.KeyPath, r.path, "row", i, logger.Err(err))
			return rows, err
		}
		r.cache.add(i, row)
		rows = append(rows, row)
	}
	span.SetAttributes(telemetry.RowsLoaded(len(rows)), telemetry.CacheHits(hits))
	return rows, nil
}

// readRow reads and parses row i, indexing ahead to row upTo in one pass.
// Callers must hold r.mu.
func (r *Reader) readRow(i, upTo int) (datasource.Row, error) {
	ok, err := r.ensureOffset(max(i, upTo))
	if err != nil && i >= r.idx.len() {
		return nil, fmt.Errorf("%w: row %d: %w", ErrRowUnavailable, i, err)
	}
	if !ok && i >= r.idx.len() {
		return nil, fmt.Errorf("%w: row %d beyond end of file", ErrRowUnavailable, i)
	}

	buf := bufpool.Get(bufpool.LineSize)[:0]
	defer bufpool.Put(buf)

	line, err := r.cur.readLine(r.idx.offsets[i], buf)
	if err != nil {
		return nil, fmt.Errorf("%w: row %d: %w", ErrRowUnavailable, i, err)
	}
	return parseRow(line, r.opts.Delimiter, r.columns), nil
}

// Stats returns a snapshot of the reader state.
func (r *Reader) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := Stats{
		Path:        r.path,
		Columns:     r.columns,
		IndexedRows: r.idx.len(),
		CachedRows:  r.cache.len(),
		RowCount:    r.rowCount,
	}
	if r.m != nil {
		st.FileSize = r.m.size
	}
	return st
}

// Close releases the mapping and the file. Further loads fail with ErrClosed.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	r.cur.release()
	r.cache.purge()
	if r.err == nil {
		r.err = ErrClosed
	}
	if r.f == nil {
		return nil
	}
	err := r.f.Close()
	r.f = nil
	if err != nil && !errors.Is(err, os.ErrClosed) {
		return fmt.Errorf("close %s: %w", r.path, err)
	}
	return nil
}
