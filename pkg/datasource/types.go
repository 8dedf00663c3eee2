// Package datasource defines the row-oriented contract shared by every data
// source the block cache can page over, together with the typed cell values
// those sources produce.
package datasource

import (
	"fmt"
	"strconv"
)

// Kind represents the type of a cell value.
type Kind int

const (
	// KindNull represents an empty cell.
	KindNull Kind = iota
	// KindInt represents a signed integer.
	KindInt
	// KindReal represents a floating point number.
	KindReal
	// KindText represents a UTF-8 string.
	KindText
	// KindPending marks a cell whose block is still loading.
	KindPending
)

// String returns the string representation of a Kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "Null"
	case KindInt:
		return "Int"
	case KindReal:
		return "Real"
	case KindText:
		return "Text"
	case KindPending:
		return "Pending"
	default:
		return fmt.Sprintf("Unknown(%d)", k)
	}
}

// PendingText is what a pending cell renders as.
const PendingText = "......"

// Value is an immutable typed cell.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
}

// Null is the empty cell.
var Null = Value{kind: KindNull}

// Pending is the placeholder returned for rows whose block is not resident yet.
var Pending = Value{kind: KindPending}

// Int returns an integer cell.
func Int(v int64) Value { return Value{kind: KindInt, i: v} }

// Real returns a floating point cell.
func Real(v float64) Value { return Value{kind: KindReal, f: v} }

// Text returns a text cell.
func Text(v string) Value { return Value{kind: KindText, s: v} }

// Kind returns the cell type.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the cell is empty.
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsPending reports whether the cell is the loading placeholder.
func (v Value) IsPending() bool { return v.kind == KindPending }

// AsInt returns the integer payload and whether the cell holds one.
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }

// AsReal returns the float payload and whether the cell holds one.
func (v Value) AsReal() (float64, bool) { return v.f, v.kind == KindReal }

// AsText returns the text payload and whether the cell holds one.
func (v Value) AsText() (string, bool) { return v.s, v.kind == KindText }

// Raw returns the payload as an untyped value (nil for null and pending).
func (v Value) Raw() any {
	switch v.kind {
	case KindInt:
		return v.i
	case KindReal:
		return v.f
	case KindText:
		return v.s
	default:
		return nil
	}
}

// String formats the value for display.
func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindReal:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindText:
		return v.s
	case KindPending:
		return PendingText
	default:
		return ""
	}
}

// Row is an ordered sequence of cells. Rows are never mutated once a source
// has returned them.
type Row []Value

// Strings formats every cell of the row for display.
func (r Row) Strings() []string {
	out := make([]string, len(r))
	for i, v := range r {
		out[i] = v.String()
	}
	return out
}

// Fit returns a row of exactly n cells: short rows are padded with Null,
// long rows are truncated.
func (r Row) Fit(n int) Row {
	if n < 0 {
		n = 0
	}
	switch {
	case len(r) == n:
		return r
	case len(r) > n:
		return r[:n:n]
	default:
		out := make(Row, n)
		copy(out, r)
		for i := len(r); i < n; i++ {
			out[i] = Null
		}
		return out
	}
}
