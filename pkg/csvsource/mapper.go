package csvsource

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/marmos91/vtable/pkg/bufpool"
	"github.com/marmos91/vtable/pkg/metrics"
)

type (
	mapFunc   func(f *os.File, off int64, length int) ([]byte, error)
	unmapFunc func(b []byte) error
)

// view is a read-only window of the file starting at base.
type view struct {
	data    []byte
	base    int64
	release func()
}

func (v view) contains(pos int64) bool {
	return pos >= v.base && pos < v.base+int64(len(v.data))
}

// mapper hands out file windows. It prefers a memory mapping of the primary
// window, then of the fallback window, and finally reads the fallback window
// into a pooled buffer. It is safe for concurrent use.
type mapper struct {
	f        *os.File
	size     int64
	window   int
	fallback int
	mmap     mapFunc // nil when mapping is unavailable
	munmap   unmapFunc
	metrics  *metrics.ReaderMetrics
}

func newMapper(f *os.File, size int64, window, fallback int, mm mapFunc, mu unmapFunc, m *metrics.ReaderMetrics) *mapper {
	return &mapper{
		f:        f,
		size:     size,
		window:   roundToPage(window),
		fallback: roundToPage(fallback),
		mmap:     mm,
		munmap:   mu,
		metrics:  m,
	}
}

// roundToPage rounds n up to a multiple of the page size so that every
// window-aligned offset is a valid mapping offset.
func roundToPage(n int) int {
	if n < pageSize {
		return pageSize
	}
	if rem := n % pageSize; rem != 0 {
		n += pageSize - rem
	}
	return n
}

func (m *mapper) mapRegion(start int64, length int) (view, error) {
	if m.mmap == nil {
		return view{}, ErrMapFailed
	}
	data, err := m.mmap(m.f, start, length)
	if err != nil {
		return view{}, fmt.Errorf("%w: offset %d length %d: %w", ErrMapFailed, start, length, err)
	}
	return view{data: data, base: start, release: func() { _ = m.munmap(data) }}, nil
}

func (m *mapper) readRegion(start int64, length int) (view, error) {
	buf := bufpool.Get(length)
	n, err := m.f.ReadAt(buf, start)
	if n < length {
		bufpool.Put(buf)
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		return view{}, fmt.Errorf("%w: read at offset %d: %w", ErrMapFailed, start, err)
	}
	return view{data: buf[:n], base: start, release: func() { bufpool.Put(buf) }}, nil
}

// windowAt returns the window of the given size that contains pos.
func (m *mapper) windowAt(pos int64, size int) (start int64, length int) {
	start = pos - pos%int64(size)
	return start, int(min(int64(size), m.size-start))
}

// viewAt returns a window containing pos.
func (m *mapper) viewAt(pos int64) (view, error) {
	if pos < 0 || pos >= m.size {
		return view{}, io.EOF
	}

	if m.mmap != nil {
		if v, err := m.mapRegion(m.windowAt(pos, m.window)); err == nil {
			return v, nil
		}
		if v, err := m.mapRegion(m.windowAt(pos, m.fallback)); err == nil {
			m.metrics.ObserveFallback(metrics.FallbackWindow)
			return v, nil
		}
		m.metrics.ObserveFallback(metrics.FallbackPread)
	}
	return m.readRegion(m.windowAt(pos, m.fallback))
}

// head returns the first length bytes of the file.
func (m *mapper) head(length int) (view, error) {
	length = int(min(int64(length), m.size))
	if v, err := m.mapRegion(0, length); err == nil {
		return v, nil
	}
	return m.readRegion(0, length)
}

// scan walks the lines starting at from and calls fn with each line's
// [start, end) byte range, excluding the terminator. A line is blank when it
// is empty or holds only "\r". Lines may span any number of windows. Scanning
// stops when fn returns false or at end of file; a final line without a
// terminator is reported with end equal to the file size.
func (m *mapper) scan(from int64, fn func(start, end int64, blank bool) bool) error {
	var (
		pos       = from
		lineStart = from
		last      byte // byte preceding pos within the current line
	)
	for pos < m.size {
		v, err := m.viewAt(pos)
		if err != nil {
			return err
		}

		rel := v.data[pos-v.base:]
		for {
			idx := bytes.IndexByte(rel, '\n')
			if idx < 0 {
				if len(rel) > 0 {
					last = rel[len(rel)-1]
				}
				pos = v.base + int64(len(v.data))
				break
			}
			if idx > 0 {
				last = rel[idx-1]
			}
			end := pos + int64(idx)
			if !fn(lineStart, end, isBlank(end-lineStart, last)) {
				v.release()
				return nil
			}
			pos, lineStart, last = end+1, end+1, 0
			rel = rel[idx+1:]
		}
		v.release()
	}

	if lineStart < m.size {
		fn(lineStart, m.size, isBlank(m.size-lineStart, last))
	}
	return nil
}

func isBlank(length int64, last byte) bool {
	return length == 0 || (length == 1 && last == '\r')
}

// cursor reads lines while holding on to the most recent window, so that
// consecutive rows in the same window share one mapping. Not safe for
// concurrent use.
type cursor struct {
	m   *mapper
	cur view
	ok  bool
}

func (c *cursor) viewAt(pos int64) (view, error) {
	if c.ok && c.cur.contains(pos) {
		return c.cur, nil
	}
	c.release()
	v, err := c.m.viewAt(pos)
	if err != nil {
		return view{}, err
	}
	c.cur, c.ok = v, true
	return v, nil
}

// readLine appends the bytes of the line starting at start to dst.
func (c *cursor) readLine(start int64, dst []byte) ([]byte, error) {
	pos := start
	for pos < c.m.size {
		v, err := c.viewAt(pos)
		if err != nil {
			return dst, err
		}
		rel := v.data[pos-v.base:]
		if idx := bytes.IndexByte(rel, '\n'); idx >= 0 {
			return append(dst, rel[:idx]...), nil
		}
		dst = append(dst, rel...)
		pos = v.base + int64(len(v.data))
	}
	return dst, nil
}

func (c *cursor) release() {
	if c.ok {
		c.cur.release()
		c.cur, c.ok = view{}, false
	}
}
