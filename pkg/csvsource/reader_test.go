package csvsource

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/vtable/pkg/datasource"
	"github.com/marmos91/vtable/pkg/metrics"
)

func TestReaderRoundTrip(t *testing.T) {
	path := writeFile(t, "id,name,score\n1,Alice,9.5\n2,Bob,7.25\n")
	r := openT(t, path, DefaultOptions())

	assert.True(t, r.Valid())
	assert.NoError(t, r.Err())
	assert.Empty(t, r.ErrorString())
	assert.Equal(t, path, r.Path())
	assert.Equal(t, []string{"id", "name", "score"}, r.HeaderRow())
	assert.Equal(t, 3, r.ColumnCount())
	assert.Equal(t, 2, r.RowCount())

	rows := r.LoadRows(0, 10)
	assert.Equal(t, []datasource.Row{
		{datasource.Int(1), datasource.Text("Alice"), datasource.Text("9.5")},
		{datasource.Int(2), datasource.Text("Bob"), datasource.Text("7.25")},
	}, rows)
}

func TestReaderSkipsBlankLines(t *testing.T) {
	path := writeFile(t, "a,b\n\n1,2\n\n\r\n3,4\n\n")
	r := openT(t, path, DefaultOptions())

	assert.Equal(t, 2, r.RowCount())
	assert.Equal(t, []datasource.Row{
		{datasource.Int(1), datasource.Int(2)},
		{datasource.Int(3), datasource.Int(4)},
	}, r.LoadRows(0, 5))
}

func TestReaderLineTerminators(t *testing.T) {
	t.Run("CRLF", func(t *testing.T) {
		r := openT(t, writeFile(t, "a,b\r\n1,x\r\n2,y\r\n"), DefaultOptions())
		assert.Equal(t, []string{"a", "b"}, r.HeaderRow())
		assert.Equal(t, []datasource.Row{
			{datasource.Int(1), datasource.Text("x")},
			{datasource.Int(2), datasource.Text("y")},
		}, r.LoadRows(0, 2))
	})

	t.Run("NoTrailingNewline", func(t *testing.T) {
		r := openT(t, writeFile(t, "a\n1\n2"), DefaultOptions())
		assert.Equal(t, 2, r.RowCount())
		assert.Equal(t, datasource.Row{datasource.Int(2)}, r.LoadRows(1, 1)[0])
	})

	t.Run("HeaderOnly", func(t *testing.T) {
		r := openT(t, writeFile(t, "a,b"), DefaultOptions())
		assert.Equal(t, []string{"a", "b"}, r.HeaderRow())
		assert.Zero(t, r.RowCount())
		assert.Empty(t, r.LoadRows(0, 1))
	})
}

func TestReaderPadsAndTruncates(t *testing.T) {
	r := openT(t, writeFile(t, "a,b,c\n1\n1,2,3,4\n,,\n"), DefaultOptions())

	rows := r.LoadRows(0, 3)
	require.Len(t, rows, 3)
	assert.Equal(t, datasource.Row{datasource.Int(1), datasource.Null, datasource.Null}, rows[0])
	assert.Equal(t, datasource.Row{datasource.Int(1), datasource.Int(2), datasource.Int(3)}, rows[1])
	assert.Equal(t, datasource.Row{datasource.Null, datasource.Null, datasource.Null}, rows[2])
	for _, row := range rows {
		assert.Len(t, row, r.ColumnCount())
	}
}

func TestReaderWithoutHeader(t *testing.T) {
	opts := DefaultOptions()
	opts.HasHeader = false
	opts.Delimiter = ';'
	r := openT(t, writeFile(t, "1;a\n2;b\n"), opts)

	assert.Nil(t, r.HeaderRow())
	assert.Equal(t, 2, r.ColumnCount())
	assert.Equal(t, 2, r.RowCount())
	assert.Equal(t, datasource.Row{datasource.Int(1), datasource.Text("a")}, r.LoadRows(0, 1)[0])
	assert.Equal(t, "Column 1", datasource.HeaderName(r, 0))
}

func TestReaderOpenFailures(t *testing.T) {
	t.Run("Missing", func(t *testing.T) {
		r, err := Open("/nonexistent/data.csv", DefaultOptions())
		require.Error(t, err)
		assert.True(t, errors.Is(err, os.ErrNotExist))
		require.NotNil(t, r)
		assert.False(t, r.Valid())
		assert.False(t, datasource.IsUsable(r))
		assert.Zero(t, r.RowCount())
		assert.Nil(t, r.LoadRows(0, 1))
		assert.NoError(t, r.Close())
	})

	t.Run("Empty", func(t *testing.T) {
		r, err := Open(writeFile(t, ""), DefaultOptions())
		assert.ErrorIs(t, err, ErrEmptyFile)
		assert.ErrorIs(t, r.Err(), ErrEmptyFile)
		assert.Contains(t, r.ErrorString(), "empty")

		_, err = r.LoadRowsContext(context.Background(), 0, 1)
		assert.ErrorIs(t, err, datasource.ErrSourceInvalid)
		assert.ErrorIs(t, err, ErrEmptyFile)
	})

	t.Run("HeaderTooLong", func(t *testing.T) {
		opts := DefaultOptions()
		opts.HeaderWindowSize = 16
		r, err := Open(writeFile(t, strings.Repeat("x", 100)+"\n1\n"), opts)
		assert.ErrorIs(t, err, ErrHeaderTooLong)
		assert.False(t, r.Valid())
	})
}

func TestEnsureOffsetIsIdempotent(t *testing.T) {
	r := openT(t, numberedFile(t, 50), DefaultOptions())

	r.mu.Lock()
	defer r.mu.Unlock()

	ok, err := r.ensureOffset(10)
	require.NoError(t, err)
	require.True(t, ok)
	first := append([]int64(nil), r.idx.offsets...)

	ok, err = r.ensureOffset(10)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, first, r.idx.offsets)

	ok, err = r.ensureOffset(3)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, first, r.idx.offsets)

	for i := 1; i < len(r.idx.offsets); i++ {
		assert.Less(t, r.idx.offsets[i-1], r.idx.offsets[i])
	}

	ok, err = r.ensureOffset(50)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, r.idx.eof)
	assert.Equal(t, 50, r.idx.len())

	ok, _ = r.ensureOffset(-1)
	assert.False(t, ok)
}

func TestReaderIndexesLazily(t *testing.T) {
	r := openT(t, numberedFile(t, 1000), DefaultOptions())

	assert.Equal(t, -1, r.Stats().RowCount)
	rows := r.LoadRows(10, 5)
	require.Len(t, rows, 5)
	assert.Equal(t, numberedRow(10), rows[0])

	st := r.Stats()
	assert.Equal(t, 1000, st.RowCount)
	assert.Equal(t, 15, st.IndexedRows)
	assert.Equal(t, 5, st.CachedRows)
	assert.Equal(t, 3, st.Columns)
	assert.Positive(t, st.FileSize)
}

func TestReaderCacheLookupsAreStable(t *testing.T) {
	reg := prometheus.NewRegistry()
	opts := DefaultOptions()
	opts.Metrics = metrics.NewReaderMetrics(reg)
	r := openT(t, numberedFile(t, 20), opts)

	first := r.LoadRows(0, 4)
	size := r.Stats().CachedRows
	second := r.LoadRows(0, 4)

	assert.Equal(t, first, second)
	assert.Equal(t, size, r.Stats().CachedRows)
	assert.Equal(t, 4.0, counterValue(t, reg, "vtable_reader_row_cache_total", "hit"))
	assert.Equal(t, 4.0, counterValue(t, reg, "vtable_reader_row_cache_total", "miss"))
}

func TestReaderCacheBound(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxCacheRows = 8
	r := openT(t, numberedFile(t, 100), opts)

	rows := r.LoadRows(0, 100)
	require.Len(t, rows, 100)
	assert.Equal(t, 8, r.Stats().CachedRows)
	assert.Equal(t, numberedRow(99), rows[99])
	assert.Equal(t, numberedRow(0), r.LoadRows(0, 1)[0])
}

func TestReaderLoadBounds(t *testing.T) {
	r := openT(t, numberedFile(t, 10), DefaultOptions())

	assert.Nil(t, r.LoadRows(-1, 3))
	assert.Nil(t, r.LoadRows(0, 0))
	assert.Nil(t, r.LoadRows(10, 3))
	rows := r.LoadRows(8, 5)
	require.Len(t, rows, 2)
	assert.Equal(t, numberedRow(9), rows[1])

	rows = r.LoadRows(1, math.MaxInt)
	require.Len(t, rows, 9)
	assert.Equal(t, numberedRow(1), rows[0])
}

func TestReaderLinesSpanningWindows(t *testing.T) {
	long := strings.Repeat("x", 3*pageSize+17)
	var b strings.Builder
	b.WriteString("id,payload\n")
	for i := 0; i < 6; i++ {
		fmt.Fprintf(&b, "%d,%s%d\n", i, long, i)
		if i%2 == 0 {
			b.WriteString("\r\n")
		}
	}

	opts := DefaultOptions()
	opts.WindowSize = 1
	opts.FallbackWindowSize = 1
	r := openT(t, writeFile(t, b.String()), opts)

	require.Equal(t, 6, r.RowCount())
	rows := r.LoadRows(0, 6)
	require.Len(t, rows, 6)
	for i, row := range rows {
		assert.Equal(t, datasource.Int(int64(i)), row[0])
		assert.Equal(t, datasource.Text(fmt.Sprintf("%s%d", long, i)), row[1])
	}
}

func TestReaderMappingFallbacks(t *testing.T) {
	content := func() string {
		var b strings.Builder
		b.WriteString("id,name,score\n")
		for i := 0; b.Len() < 4*pageSize; i++ {
			fmt.Fprintf(&b, "%d,name-%d,%d.5\n", i, i, i)
		}
		return b.String()
	}()
	expected := strings.Count(content, "\n") - 1

	t.Run("SmallWindow", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		opts := DefaultOptions()
		opts.WindowSize = 8 * pageSize
		opts.FallbackWindowSize = pageSize
		opts.Metrics = metrics.NewReaderMetrics(reg)

		onlySmall := func(f *os.File, off int64, length int) ([]byte, error) {
			if length > pageSize {
				return nil, errors.New("mapping too large")
			}
			return defaultMap(f, off, length)
		}
		if defaultMap == nil {
			t.Skip("memory mapping unavailable")
		}

		r, err := openWith(writeFile(t, content), opts, onlySmall, defaultUnmap)
		require.NoError(t, err)
		defer r.Close()

		rows := r.LoadRows(0, expected)
		require.Len(t, rows, expected)
		assert.Equal(t, numberedRow(expected-1), rows[expected-1])
		assert.Positive(t, counterValue(t, reg, "vtable_reader_map_fallbacks_total", metrics.FallbackWindow))
		assert.Zero(t, counterValue(t, reg, "vtable_reader_map_fallbacks_total", metrics.FallbackPread))
	})

	t.Run("Pread", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		opts := DefaultOptions()
		opts.Metrics = metrics.NewReaderMetrics(reg)

		failing := func(*os.File, int64, int) ([]byte, error) {
			return nil, errors.New("no mappings")
		}
		r, err := openWith(writeFile(t, content), opts, failing, nil)
		require.NoError(t, err)
		defer r.Close()

		assert.Equal(t, expected, r.RowCount())
		rows := r.LoadRows(expected-3, 3)
		require.Len(t, rows, 3)
		assert.Equal(t, numberedRow(expected-1), rows[2])
		assert.Positive(t, counterValue(t, reg, "vtable_reader_map_fallbacks_total", metrics.FallbackPread))
	})

	t.Run("NoMapping", func(t *testing.T) {
		r, err := openWith(writeFile(t, content), DefaultOptions(), nil, nil)
		require.NoError(t, err)
		defer r.Close()

		assert.Equal(t, expected, r.RowCount())
		assert.Equal(t, numberedRow(5), r.LoadRows(5, 1)[0])
	})
}

func TestReaderContextCancellation(t *testing.T) {
	r := openT(t, numberedFile(t, 10), DefaultOptions())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rows, err := r.LoadRowsContext(ctx, 0, 5)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rows)
	assert.NoError(t, r.Err())
}

func TestReaderClose(t *testing.T) {
	r, err := Open(numberedFile(t, 10), DefaultOptions())
	require.NoError(t, err)
	require.Len(t, r.LoadRows(0, 2), 2)

	require.NoError(t, r.Close())
	assert.False(t, r.Valid())
	assert.ErrorIs(t, r.Err(), ErrClosed)
	assert.Zero(t, r.Stats().CachedRows)

	_, err = r.LoadRowsContext(context.Background(), 0, 1)
	assert.ErrorIs(t, err, ErrClosed)
	assert.NoError(t, r.Close())
}

func TestReaderConcurrentAccess(t *testing.T) {
	const n = 5000
	opts := DefaultOptions()
	opts.MaxCacheRows = 256
	opts.WindowSize = pageSize
	r := openT(t, numberedFile(t, n), opts)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			assert.Equal(t, n, r.RowCount())
			for i := 0; i < 40; i++ {
				start := (g*613 + i*97) % n
				rows := r.LoadRows(start, 25)
				for j, row := range rows {
					if !assert.Equal(t, numberedRow(start+j), row) {
						return
					}
				}
			}
		}(g)
	}
	wg.Wait()
}

func TestReaderKeepsNonCanonicalNumbersAsText(t *testing.T) {
	r := openT(t, writeFile(t, "zip,qty\n01234,+5\n90210,7\n"), DefaultOptions())

	rows := r.LoadRows(0, 2)
	require.Len(t, rows, 2)
	assert.Equal(t, datasource.Row{datasource.Text("01234"), datasource.Text("+5")}, rows[0])
	assert.Equal(t, datasource.Row{datasource.Int(90210), datasource.Int(7)}, rows[1])
	assert.Equal(t, "01234", rows[0][0].String())
}
