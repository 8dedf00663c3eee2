package telemetry

import "go.opentelemetry.io/otel/attribute"

// Attribute keys.
const (
	AttrSource     = "vtable.source"
	AttrPath       = "vtable.path"
	AttrBlock      = "vtable.block"
	AttrStartRow   = "vtable.start_row"
	AttrCount      = "vtable.count"
	AttrGeneration = "vtable.generation"
	AttrPriority   = "vtable.priority"
	AttrRowsLoaded = "vtable.rows_loaded"
	AttrCacheHits  = "vtable.cache_hits"
)

// Span names.
const (
	SpanBlockLoad   = "blockcache.load"
	SpanReaderRows  = "csvsource.load_rows"
	SpanReaderIndex = "csvsource.index"
)

// Block returns the block index attribute.
func Block(idx int) attribute.KeyValue {
	return attribute.Int(AttrBlock, idx)
}

// StartRow returns the first-row attribute.
func StartRow(row int) attribute.KeyValue {
	return attribute.Int(AttrStartRow, row)
}

// Count returns the row count attribute.
func Count(n int) attribute.KeyValue {
	return attribute.Int(AttrCount, n)
}

// Path returns the file path attribute.
func Path(p string) attribute.KeyValue {
	return attribute.String(AttrPath, p)
}

// Generation returns the cache generation attribute.
func Generation(g uint64) attribute.KeyValue {
	return attribute.Int64(AttrGeneration, int64(g))
}

// Priority returns the load priority attribute.
func Priority(p string) attribute.KeyValue {
	return attribute.String(AttrPriority, p)
}

// RowsLoaded returns the loaded row count attribute.
func RowsLoaded(n int) attribute.KeyValue {
	return attribute.Int(AttrRowsLoaded, n)
}

// CacheHits returns the row cache hit count attribute.
func CacheHits(n int) attribute.KeyValue {
	return attribute.Int(AttrCacheHits, n)
}
