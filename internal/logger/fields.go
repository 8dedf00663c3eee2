package logger

import (
	"log/slog"
	"time"
)

// Standard field keys. Use these consistently so logs can be queried.
const (
	KeyTraceID    = "trace_id"
	KeySpanID     = "span_id"
	KeySession    = "session"     // block cache instance id
	KeySource     = "source"      // data source kind: csv, synthetic
	KeyPath       = "path"        // source file path
	KeyBlock      = "block"       // block index
	KeyStartRow   = "start_row"   // first row of a range
	KeyEndRow     = "end_row"     // last row of a range (inclusive)
	KeyCount      = "count"       // row count
	KeyRows       = "rows"        // total rows of a source
	KeyColumns    = "columns"     // column count of a source
	KeyGeneration = "generation"  // cache reset generation
	KeyPolicy     = "policy"      // preload policy
	KeyStatus     = "status"      // loading status
	KeyPriority   = "priority"    // load priority
	KeyEvicted    = "evicted"     // number of evicted blocks
	KeyResident   = "resident"    // number of resident blocks
	KeyOffset     = "offset"      // byte offset in a file
	KeyWindow     = "window"      // mapping window size
	KeyVelocity   = "velocity"    // scroll velocity
	KeyDurationMs = "duration_ms" // operation duration
	KeyError      = "error"
)

// Block returns a slog.Attr for a block index.
func Block(idx int) slog.Attr {
	return slog.Int(KeyBlock, idx)
}

// RowRange returns the start/end attributes for an inclusive row range.
func RowRange(start, end int) []any {
	return []any{KeyStartRow, start, KeyEndRow, end}
}

// Path returns a slog.Attr for a file path.
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// Err returns a slog.Attr for an error; nil errors produce an empty attr.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// DurationMs returns a slog.Attr with the elapsed time since start.
func DurationMs(start time.Time) slog.Attr {
	return slog.Float64(KeyDurationMs, Duration(start))
}
