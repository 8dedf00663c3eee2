package datasource

import "context"

// DataSource provides read-only, row-oriented access to tabular data.
// Implementations must be safe for concurrent calls to LoadRows since the
// block cache loads several blocks in parallel.
type DataSource interface {
	// RowCount returns the total number of rows. It may be computed lazily
	// on first call.
	RowCount() int

	// ColumnCount returns the number of columns every row is fitted to.
	ColumnCount() int

	// HeaderRow returns the column names.
	HeaderRow() []string

	// LoadRows returns up to count rows starting at start. Fewer rows are
	// returned when the range runs past the end of the data; none when start
	// is out of range.
	LoadRows(start, count int) []Row
}

// ContextLoader is implemented by sources whose loads can be abandoned. The
// block cache prefers it over LoadRows so superseded loads stop early.
type ContextLoader interface {
	LoadRowsContext(ctx context.Context, start, count int) ([]Row, error)
}

// Load fetches rows from src through LoadRowsContext when available.
func Load(ctx context.Context, src DataSource, start, count int) ([]Row, error) {
	if src == nil {
		return nil, ErrNoDataSource
	}
	if cl, ok := src.(ContextLoader); ok {
		return cl.LoadRowsContext(ctx, start, count)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return src.LoadRows(start, count), nil
}

// Validator is implemented by sources that can become unusable after
// construction (for instance a file that failed to open). The block cache
// treats an invalid source as having zero rows.
type Validator interface {
	Valid() bool
	Err() error
}

// IsUsable reports whether src can serve rows.
func IsUsable(src DataSource) bool {
	if src == nil {
		return false
	}
	if v, ok := src.(Validator); ok {
		return v.Valid()
	}
	return true
}

// HeaderName returns the header for col, falling back to "Column N".
func HeaderName(src DataSource, col int) string {
	if src != nil {
		headers := src.HeaderRow()
		if col >= 0 && col < len(headers) {
			return headers[col]
		}
	}
	return columnLabel(col)
}
