package datasource

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSource struct {
	headers []string
	rows    []Row
}

func (s *staticSource) RowCount() int       { return len(s.rows) }
func (s *staticSource) ColumnCount() int    { return len(s.headers) }
func (s *staticSource) HeaderRow() []string { return s.headers }
func (s *staticSource) LoadRows(start, count int) []Row {
	if start < 0 || start >= len(s.rows) {
		return nil
	}
	return s.rows[start:min(start+count, len(s.rows))]
}

type brokenSource struct {
	staticSource
}

func (b *brokenSource) Valid() bool { return false }
func (b *brokenSource) Err() error  { return ErrSourceInvalid }

type ctxSource struct {
	staticSource
	calls int
}

func (c *ctxSource) LoadRowsContext(ctx context.Context, start, count int) ([]Row, error) {
	c.calls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.LoadRows(start, count), nil
}

func TestValueKinds(t *testing.T) {
	tests := []struct {
		name    string
		value   Value
		kind    Kind
		display string
		raw     any
	}{
		{"null", Null, KindNull, "", nil},
		{"pending", Pending, KindPending, PendingText, nil},
		{"int", Int(42), KindInt, "42", int64(42)},
		{"negative int", Int(-7), KindInt, "-7", int64(-7)},
		{"real", Real(9.5), KindReal, "9.5", 9.5},
		{"text", Text("Alice"), KindText, "Alice", "Alice"},
		{"empty text", Text(""), KindText, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.value.Kind())
			assert.Equal(t, tt.display, tt.value.String())
			assert.Equal(t, tt.raw, tt.value.Raw())
		})
	}

	assert.True(t, Null.IsNull())
	assert.False(t, Text("").IsNull())
	assert.True(t, Pending.IsPending())
	assert.Equal(t, "......", Pending.String())

	i, ok := Int(3).AsInt()
	assert.True(t, ok)
	assert.Equal(t, int64(3), i)
	_, ok = Text("3").AsInt()
	assert.False(t, ok)
	f, ok := Real(1.25).AsReal()
	assert.True(t, ok)
	assert.Equal(t, 1.25, f)
	s, ok := Text("x").AsText()
	assert.True(t, ok)
	assert.Equal(t, "x", s)

	assert.Equal(t, "Pending", KindPending.String())
}

func TestRowFit(t *testing.T) {
	row := Row{Int(1), Text("a"), Text("b")}

	short := Row{Int(1)}.Fit(3)
	assert.Equal(t, Row{Int(1), Null, Null}, short)

	long := row.Fit(2)
	assert.Equal(t, Row{Int(1), Text("a")}, long)
	assert.Equal(t, 2, cap(long))

	assert.Equal(t, row, row.Fit(3))
	assert.Empty(t, row.Fit(-1))
	assert.Equal(t, []string{"1", "a", "b"}, row.Strings())
}

func TestIsUsable(t *testing.T) {
	assert.False(t, IsUsable(nil))
	assert.True(t, IsUsable(&staticSource{}))
	assert.False(t, IsUsable(&brokenSource{}))
}

func TestHeaderName(t *testing.T) {
	src := &staticSource{headers: []string{"id", "name"}}

	assert.Equal(t, "id", HeaderName(src, 0))
	assert.Equal(t, "name", HeaderName(src, 1))
	assert.Equal(t, "Column 3", HeaderName(src, 2))
	assert.Equal(t, "Column 1", HeaderName(nil, 0))
}

func TestLoad(t *testing.T) {
	rows := []Row{{Int(1)}, {Int(2)}, {Int(3)}}

	_, err := Load(context.Background(), nil, 0, 1)
	assert.ErrorIs(t, err, ErrNoDataSource)

	got, err := Load(context.Background(), &staticSource{rows: rows}, 1, 5)
	require.NoError(t, err)
	assert.Equal(t, rows[1:], got)

	cs := &ctxSource{staticSource: staticSource{rows: rows}}
	got, err = Load(context.Background(), cs, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, rows[:2], got)
	assert.Equal(t, 1, cs.calls)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Load(ctx, &staticSource{rows: rows}, 0, 1)
	assert.True(t, errors.Is(err, context.Canceled))
	_, err = Load(ctx, cs, 0, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
