package datasource

import (
	"errors"
	"strconv"
)

// Common errors returned by data sources.
var (
	// ErrInvalidRow is returned when a row index is out of range.
	ErrInvalidRow = errors.New("invalid row index")

	// ErrInvalidColumn is returned when a column index is out of range.
	ErrInvalidColumn = errors.New("invalid column index")

	// ErrNoDataSource is returned when a required data source is nil.
	ErrNoDataSource = errors.New("data source is nil")

	// ErrSourceInvalid is returned when a source failed to initialize.
	ErrSourceInvalid = errors.New("data source is invalid")
)

func columnLabel(col int) string {
	return "Column " + strconv.Itoa(col+1)
}
