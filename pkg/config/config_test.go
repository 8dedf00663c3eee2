package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/marmos91/vtable/internal/bytesize"
	"github.com/marmos91/vtable/pkg/blockcache"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoad_DefaultsApplied(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: "debug"
cache:
  block_size: 500
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected normalized level DEBUG, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Cache.BlockSize != 500 {
		t.Errorf("Expected block_size 500, got %d", cfg.Cache.BlockSize)
	}
	if cfg.Cache.PreloadPolicy != "balanced" {
		t.Errorf("Expected default policy 'balanced', got %q", cfg.Cache.PreloadPolicy)
	}
	if !cfg.Reader.HasHeader {
		t.Error("Expected has_header to default to true")
	}
	if cfg.Reader.Delimiter != "," {
		t.Errorf("Expected default delimiter ',', got %q", cfg.Reader.Delimiter)
	}
	if cfg.Viewport.VelocityDecay != 200*time.Millisecond {
		t.Errorf("Expected default velocity_decay 200ms, got %v", cfg.Viewport.VelocityDecay)
	}
	if cfg.Telemetry.ServiceName != "vtable" {
		t.Errorf("Expected service name 'vtable', got %q", cfg.Telemetry.ServiceName)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	path := writeConfig(t, `
cache:
  preload_policy: Aggressive
  workers: 8
  fast_scroll: 8000
  slow_scroll: 800
reader:
  delimiter: ";"
  has_header: false
  window_size: 2Mi
  fallback_window_size: 128Ki
viewport:
  buffer_rows: 20
  velocity_decay: 350ms
server:
  listen: "0.0.0.0:9000"
  shutdown_timeout: 3s
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Cache.PreloadPolicy != "aggressive" {
		t.Errorf("Expected policy 'aggressive', got %q", cfg.Cache.PreloadPolicy)
	}
	if cfg.Cache.Workers != 8 {
		t.Errorf("Expected 8 workers, got %d", cfg.Cache.Workers)
	}
	if cfg.Reader.HasHeader {
		t.Error("Expected has_header false")
	}
	if cfg.Reader.DelimiterByte() != ';' {
		t.Errorf("Expected ';' delimiter, got %q", cfg.Reader.DelimiterByte())
	}
	if cfg.Reader.WindowSize != 2*bytesize.MiB {
		t.Errorf("Expected 2Mi window, got %v", cfg.Reader.WindowSize)
	}
	if cfg.Reader.FallbackWindowSize != 128*bytesize.KiB {
		t.Errorf("Expected 128Ki fallback window, got %v", cfg.Reader.FallbackWindowSize)
	}
	if cfg.Viewport.VelocityDecay != 350*time.Millisecond {
		t.Errorf("Expected 350ms decay, got %v", cfg.Viewport.VelocityDecay)
	}
	if cfg.Server.ShutdownTimeout != 3*time.Second {
		t.Errorf("Expected 3s shutdown timeout, got %v", cfg.Server.ShutdownTimeout)
	}

	opts := cfg.ModelOptions(nil)
	if opts.Policy != blockcache.Aggressive {
		t.Errorf("Expected Aggressive model policy, got %v", opts.Policy)
	}
	if opts.FastScroll != 8000 || opts.SlowScroll != 800 {
		t.Errorf("Unexpected scroll thresholds %v/%v", opts.FastScroll, opts.SlowScroll)
	}

	ro := cfg.Reader.ReaderOptions(nil)
	if ro.WindowSize != 2<<20 || ro.FallbackWindowSize != 128<<10 {
		t.Errorf("Unexpected reader windows %d/%d", ro.WindowSize, ro.FallbackWindowSize)
	}

	co := cfg.Viewport.ControllerOptions()
	if co.Buffer != 20 {
		t.Errorf("Expected buffer 20, got %d", co.Buffer)
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, `
cache:
  block_size: 500
`)
	t.Setenv("VTABLE_CACHE_BLOCK_SIZE", "250")
	t.Setenv("VTABLE_READER_MAX_CACHE_ROWS", "42")
	t.Setenv("VTABLE_VIEWPORT_VELOCITY_DECAY", "1s")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Cache.BlockSize != 250 {
		t.Errorf("Expected env block_size 250, got %d", cfg.Cache.BlockSize)
	}
	if cfg.Reader.MaxCacheRows != 42 {
		t.Errorf("Expected env max_cache_rows 42, got %d", cfg.Reader.MaxCacheRows)
	}
	if cfg.Viewport.VelocityDecay != time.Second {
		t.Errorf("Expected env velocity_decay 1s, got %v", cfg.Viewport.VelocityDecay)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Expected defaults for a missing file, got: %v", err)
	}
	if cfg.Cache.BlockSize != blockcache.DefaultBlockSize {
		t.Errorf("Expected default block size, got %d", cfg.Cache.BlockSize)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "cache: [unterminated")
	if _, err := Load(path); err == nil {
		t.Fatal("Expected error for invalid YAML")
	}
}

func TestMustLoad_MissingExplicitFile(t *testing.T) {
	_, err := MustLoad(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("Expected error for a missing explicit config file")
	}
	if !strings.Contains(err.Error(), "vtable config init") {
		t.Errorf("Expected init instructions in error, got: %v", err)
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Cache.BlockSize = 777
	cfg.Reader.Delimiter = "|"
	cfg.Reader.WindowSize = 4 * bytesize.MiB

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to reload saved config: %v", err)
	}
	if loaded.Cache.BlockSize != 777 {
		t.Errorf("Expected block size 777, got %d", loaded.Cache.BlockSize)
	}
	if loaded.Reader.Delimiter != "|" {
		t.Errorf("Expected delimiter '|', got %q", loaded.Reader.Delimiter)
	}
	if loaded.Reader.WindowSize != 4*bytesize.MiB {
		t.Errorf("Expected 4Mi window, got %v", loaded.Reader.WindowSize)
	}
}
