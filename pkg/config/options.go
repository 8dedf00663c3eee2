package config

import (
	"github.com/marmos91/vtable/pkg/blockcache"
	"github.com/marmos91/vtable/pkg/csvsource"
	"github.com/marmos91/vtable/pkg/metrics"
	"github.com/marmos91/vtable/pkg/viewport"
)

// DelimiterByte returns the configured delimiter as a byte. Call only on a
// validated config.
func (c ReaderConfig) DelimiterByte() byte {
	b, err := parseDelimiter(c.Delimiter)
	if err != nil {
		return csvsource.DefaultDelimiter
	}
	return b
}

// ReaderOptions converts the reader section into csvsource.Options.
func (c ReaderConfig) ReaderOptions(m *metrics.ReaderMetrics) csvsource.Options {
	return csvsource.Options{
		HasHeader:          c.HasHeader,
		Delimiter:          c.DelimiterByte(),
		MaxCacheRows:       c.MaxCacheRows,
		WindowSize:         c.WindowSize.Int(),
		FallbackWindowSize: c.FallbackWindowSize.Int(),
		HeaderWindowSize:   c.HeaderWindowSize.Int(),
		Metrics:            m,
	}
}

// ModelOptions converts the cache and viewport sections into
// blockcache.Options. The executor is left nil so the Model starts its own
// pool.
func (c *Config) ModelOptions(m *metrics.CacheMetrics) blockcache.Options {
	policy, err := blockcache.ParsePolicy(c.Cache.PreloadPolicy)
	if err != nil {
		policy = blockcache.Balanced
	}
	return blockcache.Options{
		Workers:        c.Cache.Workers,
		QueueSize:      c.Cache.QueueSize,
		BlockSize:      c.Cache.BlockSize,
		Policy:         policy,
		MaxExtraBlocks: c.Cache.MaxExtraBlocks,
		FastScroll:     c.Cache.FastScroll,
		SlowScroll:     c.Cache.SlowScroll,
		DefaultSpan:    c.Viewport.DefaultSpan,
		Metrics:        m,
	}
}

// ControllerOptions converts the viewport section into viewport.Options.
func (c ViewportConfig) ControllerOptions() viewport.Options {
	return viewport.Options{
		Buffer: c.BufferRows,
		Decay:  c.VelocityDecay,
	}
}
