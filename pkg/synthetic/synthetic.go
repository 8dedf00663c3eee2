// Package synthetic provides a generated data source for demos and
// benchmarks. Every row is derived from a per-row seed, so loading the same
// row twice yields the same values.
package synthetic

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/marmos91/vtable/pkg/datasource"
)

const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Source generates rows on demand. Column 0 is the 1-based row number,
// column 1 an integer in [1000, 9999], column 2 a real in [0, 100) rendered
// with two decimals, column 3 a string of 10 to 29 characters, and any
// further columns cycle through short strings, small integers and labels.
type Source struct {
	rows    int
	cols    int
	seed    uint64
	delay   time.Duration
	headers []string
}

// Option configures a Source.
type Option func(*Source)

// WithSeed changes the generator seed.
func WithSeed(seed uint64) Option {
	return func(s *Source) { s.seed = seed }
}

// WithDelay makes every load sleep for d, simulating a slow backend.
func WithDelay(d time.Duration) Option {
	return func(s *Source) { s.delay = d }
}

var (
	_ datasource.DataSource    = (*Source)(nil)
	_ datasource.ContextLoader = (*Source)(nil)
)

// New creates a source of rows × cols cells. Negative sizes are treated as zero.
func New(rows, cols int, opts ...Option) *Source {
	s := &Source{rows: max(rows, 0), cols: max(cols, 0), seed: 1}
	for _, opt := range opts {
		opt(s)
	}
	s.headers = make([]string, s.cols)
	for i := range s.headers {
		s.headers[i] = "Column " + strconv.Itoa(i+1)
	}
	return s
}

// RowCount returns the number of rows.
func (s *Source) RowCount() int { return s.rows }

// ColumnCount returns the number of columns.
func (s *Source) ColumnCount() int { return s.cols }

// HeaderRow returns "Column 1" ... "Column N".
func (s *Source) HeaderRow() []string {
	return append([]string(nil), s.headers...)
}

// LoadRows generates up to count rows starting at start.
func (s *Source) LoadRows(start, count int) []datasource.Row {
	rows, _ := s.LoadRowsContext(context.Background(), start, count)
	return rows
}

// LoadRowsContext generates rows, honoring the configured delay and ctx.
func (s *Source) LoadRowsContext(ctx context.Context, start, count int) ([]datasource.Row, error) {
	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if start < 0 || start >= s.rows || count <= 0 {
		return nil, nil
	}

	end := start + min(count, s.rows-start)
	out := make([]datasource.Row, 0, end-start)
	for r := start; r < end; r++ {
		out = append(out, s.Row(r))
	}
	return out, nil
}

// Row generates row r. It does not check bounds.
func (s *Source) Row(r int) datasource.Row {
	rng := rand.New(rand.NewPCG(s.seed, uint64(r)))
	row := make(datasource.Row, s.cols)
	for c := range row {
		switch c {
		case 0:
			row[c] = datasource.Int(int64(r + 1))
		case 1:
			row[c] = datasource.Int(1000 + rng.Int64N(9000))
		case 2:
			row[c] = datasource.Text(strconv.FormatFloat(rng.Float64()*100, 'f', 2, 64))
		case 3:
			row[c] = datasource.Text(randomString(rng, 10+r%20))
		default:
			switch r % 3 {
			case 0:
				row[c] = datasource.Text(randomString(rng, 5))
			case 1:
				row[c] = datasource.Int(1 + rng.Int64N(100))
			default:
				row[c] = datasource.Text(fmt.Sprintf("Data-%d-%d", r, c))
			}
		}
	}
	return row
}

func randomString(rng *rand.Rand, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[rng.IntN(len(alphabet))]
	}
	return string(b)
}
