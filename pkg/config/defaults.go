package config

import (
	"strings"
	"time"

	"github.com/marmos91/vtable/internal/bytesize"
	"github.com/marmos91/vtable/internal/telemetry"
	"github.com/marmos91/vtable/pkg/blockcache"
	"github.com/marmos91/vtable/pkg/csvsource"
	"github.com/marmos91/vtable/pkg/loader"
	"github.com/marmos91/vtable/pkg/viewport"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Default Strategy:
//   - Zero values (0, "") are replaced with defaults
//   - Explicit values are preserved
//   - Booleans are left alone; their defaults come from GetDefaultConfig
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyServerDefaults(&cfg.Server)
	applyCacheDefaults(&cfg.Cache)
	applyReaderDefaults(&cfg.Reader)
	applyViewportDefaults(&cfg.Viewport)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stderr"
	}
}

// applyTelemetryDefaults sets OpenTelemetry defaults.
func applyTelemetryDefaults(cfg *telemetry.Config) {
	d := telemetry.DefaultConfig()
	if cfg.Endpoint == "" {
		cfg.Endpoint = d.Endpoint
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = d.SampleRate
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = d.ServiceName
	}
	if cfg.ServiceVersion == "" {
		cfg.ServiceVersion = d.ServiceVersion
	}
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.Listen == "" {
		cfg.Listen = "127.0.0.1:8080"
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.MaxPageRows == 0 {
		cfg.MaxPageRows = 1000
	}
}

func applyCacheDefaults(cfg *CacheConfig) {
	if cfg.BlockSize == 0 {
		cfg.BlockSize = blockcache.DefaultBlockSize
	}
	cfg.PreloadPolicy = strings.ToLower(cfg.PreloadPolicy)
	if cfg.PreloadPolicy == "" {
		cfg.PreloadPolicy = blockcache.Balanced.String()
	}
	if cfg.Workers == 0 {
		cfg.Workers = loader.DefaultWorkers
	}
	if cfg.QueueSize == 0 {
		cfg.QueueSize = loader.DefaultQueueSize
	}
	if cfg.FastScroll == 0 {
		cfg.FastScroll = blockcache.DefaultFastScroll
	}
	if cfg.SlowScroll == 0 {
		cfg.SlowScroll = blockcache.DefaultSlowScroll
	}
	if cfg.MaxExtraBlocks == 0 {
		cfg.MaxExtraBlocks = blockcache.DefaultMaxExtraBlocks
	}
}

func applyReaderDefaults(cfg *ReaderConfig) {
	if cfg.Delimiter == "" {
		cfg.Delimiter = string(rune(csvsource.DefaultDelimiter))
	}
	if cfg.MaxCacheRows == 0 {
		cfg.MaxCacheRows = csvsource.DefaultMaxCacheRows
	}
	if cfg.WindowSize == 0 {
		cfg.WindowSize = bytesize.ByteSize(csvsource.DefaultWindowSize)
	}
	if cfg.FallbackWindowSize == 0 {
		cfg.FallbackWindowSize = bytesize.ByteSize(csvsource.DefaultFallbackWindowSize)
	}
	if cfg.HeaderWindowSize == 0 {
		cfg.HeaderWindowSize = bytesize.ByteSize(csvsource.DefaultHeaderWindowSize)
	}
}

func applyViewportDefaults(cfg *ViewportConfig) {
	if cfg.BufferRows == 0 {
		cfg.BufferRows = viewport.DefaultBuffer
	}
	if cfg.VelocityDecay == 0 {
		cfg.VelocityDecay = viewport.DefaultDecay
	}
	if cfg.DefaultSpan == 0 {
		cfg.DefaultSpan = blockcache.DefaultSpan
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{
		Telemetry: telemetry.DefaultConfig(),
		Reader: ReaderConfig{
			HasHeader: true,
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
