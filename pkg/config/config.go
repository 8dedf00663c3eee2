package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/marmos91/vtable/internal/bytesize"
	"github.com/marmos91/vtable/internal/telemetry"
)

// Config represents the vtable configuration.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (VTABLE_*)
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry distributed tracing
	Telemetry telemetry.Config `mapstructure:"telemetry" yaml:"telemetry"`

	// Metrics contains Prometheus metrics configuration
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Server configures the HTTP surface of 'vtable serve'
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// Cache configures the block cache
	Cache CacheConfig `mapstructure:"cache" yaml:"cache"`

	// Reader configures the flat-file reader
	Reader ReaderConfig `mapstructure:"reader" yaml:"reader"`

	// Viewport configures the visible-range controller
	Viewport ViewportConfig `mapstructure:"viewport" yaml:"viewport"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// MetricsConfig configures Prometheus metrics.
// When Enabled is false, no metrics are collected.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// ServerConfig configures the HTTP server started by 'vtable serve'.
type ServerConfig struct {
	// Listen is the host:port the server binds to
	// Default: "127.0.0.1:8080"
	Listen string `mapstructure:"listen" validate:"required,hostname_port" yaml:"listen"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	// Default: 10s
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0" yaml:"shutdown_timeout"`

	// MaxPageRows caps the number of rows a single /rows request returns
	// Default: 1000
	MaxPageRows int `mapstructure:"max_page_rows" validate:"gt=0" yaml:"max_page_rows"`
}

// CacheConfig configures the block cache.
type CacheConfig struct {
	// BlockSize is the number of rows per block
	// Default: 1000
	BlockSize int `mapstructure:"block_size" validate:"gt=0" yaml:"block_size"`

	// PreloadPolicy selects the prefetch window
	// Valid values: conservative, balanced, aggressive
	PreloadPolicy string `mapstructure:"preload_policy" validate:"oneof=conservative balanced aggressive" yaml:"preload_policy"`

	// Workers is the number of concurrent block loads
	// Default: 4
	Workers int `mapstructure:"workers" validate:"gte=1,lte=256" yaml:"workers"`

	// QueueSize bounds queued loads per priority
	// Default: 1024
	QueueSize int `mapstructure:"queue_size" validate:"gte=1" yaml:"queue_size"`

	// MaxExtraBlocks is how many recently used blocks outside the prefetch
	// window survive eviction
	// Default: 10
	MaxExtraBlocks int `mapstructure:"max_extra_blocks" validate:"gte=1" yaml:"max_extra_blocks"`

	// FastScroll is the velocity (rows/s) above which prefetch shrinks
	// Default: 5000
	FastScroll float64 `mapstructure:"fast_scroll" validate:"gt=0" yaml:"fast_scroll"`

	// SlowScroll is the velocity (rows/s) below which prefetch is restored
	// Default: 500
	SlowScroll float64 `mapstructure:"slow_scroll" validate:"gt=0,ltfield=FastScroll" yaml:"slow_scroll"`
}

// ReaderConfig configures the flat-file reader.
type ReaderConfig struct {
	// Delimiter is the single-character field separator; "tab" and "\t"
	// are accepted for tab
	// Default: ","
	Delimiter string `mapstructure:"delimiter" validate:"required,delimiter" yaml:"delimiter"`

	// HasHeader marks the first line as column names
	// Default: true
	HasHeader bool `mapstructure:"has_header" yaml:"has_header"`

	// MaxCacheRows bounds the parsed row cache
	// Default: 10000
	MaxCacheRows int `mapstructure:"max_cache_rows" validate:"gt=0" yaml:"max_cache_rows"`

	// WindowSize is the primary mapping window
	// Supports human-readable formats: "1Mi", "512KB"
	// Default: 1Mi
	WindowSize bytesize.ByteSize `mapstructure:"window_size" validate:"gt=0" yaml:"window_size"`

	// FallbackWindowSize is used when the primary window cannot be mapped
	// Default: 64Ki
	FallbackWindowSize bytesize.ByteSize `mapstructure:"fallback_window_size" validate:"gt=0,ltefield=WindowSize" yaml:"fallback_window_size"`

	// HeaderWindowSize bounds the search for the end of the header line
	// Default: 1Mi
	HeaderWindowSize bytesize.ByteSize `mapstructure:"header_window_size" validate:"gt=0" yaml:"header_window_size"`
}

// ViewportConfig configures the visible-range controller.
type ViewportConfig struct {
	// BufferRows is added above and below the visible rows
	// Default: 50
	BufferRows int `mapstructure:"buffer_rows" validate:"gte=1" yaml:"buffer_rows"`

	// VelocityDecay is the quiet period after which velocity resets to zero
	// Default: 200ms
	VelocityDecay time.Duration `mapstructure:"velocity_decay" validate:"gt=0" yaml:"velocity_decay"`

	// DefaultSpan is the jump window height before any range is shown
	// Default: 50
	DefaultSpan int `mapstructure:"default_span" validate:"gt=0" yaml:"default_span"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (VTABLE_*)
//  2. Configuration file
//  3. Default values
//
// An empty configPath searches the default location; a missing file is not
// an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)
	setDefaults(v)

	if _, err := readConfigFile(v); err != nil {
		return nil, err
	}

	cfg := GetDefaultConfig()
	if err := v.Unmarshal(cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration, failing with instructions when an explicit
// configPath does not exist.
func MustLoad(configPath string) (*Config, error) {
	if configPath != "" {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s\n\n"+
				"Please create the configuration file:\n"+
				"  vtable config init --config %s",
				configPath, configPath)
		}
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// SaveConfig saves the configuration to path in YAML format.
func SaveConfig(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return writeConfigFile(path, data)
}

func writeConfigFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use VTABLE_ prefix and underscores
	// Example: VTABLE_CACHE_BLOCK_SIZE=500
	v.SetEnvPrefix("VTABLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}

	// Default location: $XDG_CONFIG_HOME/vtable/config.yaml
	v.AddConfigPath(getConfigDir())
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

// setDefaults registers every key with viper so environment variables
// override them even when no config file mentions the key.
func setDefaults(v *viper.Viper) {
	d := GetDefaultConfig()

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output", d.Logging.Output)

	v.SetDefault("telemetry.enabled", d.Telemetry.Enabled)
	v.SetDefault("telemetry.endpoint", d.Telemetry.Endpoint)
	v.SetDefault("telemetry.insecure", d.Telemetry.Insecure)
	v.SetDefault("telemetry.sample_rate", d.Telemetry.SampleRate)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)

	v.SetDefault("server.listen", d.Server.Listen)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.max_page_rows", d.Server.MaxPageRows)

	v.SetDefault("cache.block_size", d.Cache.BlockSize)
	v.SetDefault("cache.preload_policy", d.Cache.PreloadPolicy)
	v.SetDefault("cache.workers", d.Cache.Workers)
	v.SetDefault("cache.queue_size", d.Cache.QueueSize)
	v.SetDefault("cache.max_extra_blocks", d.Cache.MaxExtraBlocks)
	v.SetDefault("cache.fast_scroll", d.Cache.FastScroll)
	v.SetDefault("cache.slow_scroll", d.Cache.SlowScroll)

	v.SetDefault("reader.delimiter", d.Reader.Delimiter)
	v.SetDefault("reader.has_header", d.Reader.HasHeader)
	v.SetDefault("reader.max_cache_rows", d.Reader.MaxCacheRows)
	v.SetDefault("reader.window_size", d.Reader.WindowSize)
	v.SetDefault("reader.fallback_window_size", d.Reader.FallbackWindowSize)
	v.SetDefault("reader.header_window_size", d.Reader.HeaderWindowSize)

	v.SetDefault("viewport.buffer_rows", d.Viewport.BufferRows)
	v.SetDefault("viewport.velocity_decay", d.Viewport.VelocityDecay)
	v.SetDefault("viewport.default_span", d.Viewport.DefaultSpan)
}

// readConfigFile reads the configuration file if it exists.
// Returns (fileFound, error) where fileFound indicates if a config file was found.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}

	return true, nil
}

// configDecodeHooks returns a combined decode hook for all custom types.
// This includes ByteSize and time.Duration parsing.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
	)
}

// byteSizeDecodeHook converts strings and integers to bytesize.ByteSize so
// config files can use sizes like "1Mi", "64Ki" or plain numbers.
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return bytesize.Parse(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			// YAML often deserializes numbers as float64
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

// durationDecodeHook converts strings like "200ms" or "10s" to time.Duration.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			// Assume nanoseconds for raw integers
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "vtable")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "vtable")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}
