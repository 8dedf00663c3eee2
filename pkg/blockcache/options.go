package blockcache

import (
	"time"

	"github.com/marmos91/vtable/pkg/loader"
	"github.com/marmos91/vtable/pkg/metrics"
)

// Defaults used when the corresponding Options field is zero.
const (
	DefaultBlockSize      = 1000
	DefaultMaxExtraBlocks = 10
	DefaultFastScroll     = 5000.0
	DefaultSlowScroll     = 500.0
	DefaultSpan           = 50

	// evictThreshold is the resident block count at or below which Cleanup
	// does nothing.
	evictThreshold = 10
)

// Options configures a Model.
type Options struct {
	// Executor runs block loads. When nil, New starts a loader.Pool sized
	// by Workers and QueueSize. The Model closes its executor on Close.
	Executor  loader.Executor
	Workers   int
	QueueSize int

	BlockSize int
	Policy    PreloadPolicy

	// MaxExtraBlocks is how many recently used blocks outside the prefetch
	// window survive Cleanup.
	MaxExtraBlocks int

	// FastScroll and SlowScroll are the velocity thresholds (rows per
	// second) for shrinking and restoring the prefetch window.
	FastScroll float64
	SlowScroll float64

	// DefaultSpan is the window height JumpToRow uses before any visible
	// range has been set.
	DefaultSpan int

	Metrics *metrics.CacheMetrics

	// Clock overrides time.Now for access timestamps.
	Clock func() time.Time
}

// DefaultOptions returns Options with every default filled in.
func DefaultOptions() Options {
	o := Options{}
	o.applyDefaults()
	return o
}

func (o *Options) applyDefaults() {
	if o.BlockSize <= 0 {
		o.BlockSize = DefaultBlockSize
	}
	if o.MaxExtraBlocks <= 0 {
		o.MaxExtraBlocks = DefaultMaxExtraBlocks
	}
	if o.FastScroll <= 0 {
		o.FastScroll = DefaultFastScroll
	}
	if o.SlowScroll <= 0 {
		o.SlowScroll = DefaultSlowScroll
	}
	if o.DefaultSpan <= 0 {
		o.DefaultSpan = DefaultSpan
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
}
