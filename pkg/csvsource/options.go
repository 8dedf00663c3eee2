package csvsource

import (
	"github.com/marmos91/vtable/pkg/bufpool"
	"github.com/marmos91/vtable/pkg/metrics"
)

const (
	DefaultDelimiter          = ','
	DefaultMaxCacheRows       = 10000
	DefaultWindowSize         = bufpool.ScanSize
	DefaultFallbackWindowSize = bufpool.WindowSize
	DefaultHeaderWindowSize   = 1 << 20
)

// Options configures a Reader. Start from DefaultOptions; the zero value
// reads a headerless file.
type Options struct {
	// HasHeader marks the first line as column names rather than data.
	HasHeader bool

	// Delimiter separates fields. Must be a single byte.
	Delimiter byte

	// MaxCacheRows bounds the parsed row cache.
	MaxCacheRows int

	// WindowSize is the primary mapping window used to scan and read lines.
	WindowSize int

	// FallbackWindowSize is used when the primary window cannot be mapped,
	// and as the pread buffer size when mapping is unavailable.
	FallbackWindowSize int

	// HeaderWindowSize bounds the search for the end of the first line.
	HeaderWindowSize int

	// Metrics is optional.
	Metrics *metrics.ReaderMetrics
}

// DefaultOptions returns options for a comma-separated file with a header.
func DefaultOptions() Options {
	return Options{
		HasHeader:          true,
		Delimiter:          DefaultDelimiter,
		MaxCacheRows:       DefaultMaxCacheRows,
		WindowSize:         DefaultWindowSize,
		FallbackWindowSize: DefaultFallbackWindowSize,
		HeaderWindowSize:   DefaultHeaderWindowSize,
	}
}

func (o *Options) applyDefaults() {
	if o.Delimiter == 0 {
		o.Delimiter = DefaultDelimiter
	}
	if o.MaxCacheRows <= 0 {
		o.MaxCacheRows = DefaultMaxCacheRows
	}
	if o.WindowSize <= 0 {
		o.WindowSize = DefaultWindowSize
	}
	if o.FallbackWindowSize <= 0 {
		o.FallbackWindowSize = DefaultFallbackWindowSize
	}
	if o.HeaderWindowSize <= 0 {
		o.HeaderWindowSize = DefaultHeaderWindowSize
	}
}
