package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/marmos91/vtable/internal/cli/output"
	"github.com/marmos91/vtable/internal/logger"
	"github.com/marmos91/vtable/internal/telemetry"
	"github.com/marmos91/vtable/pkg/blockcache"
	"github.com/marmos91/vtable/pkg/config"
	"github.com/marmos91/vtable/pkg/csvsource"
	"github.com/marmos91/vtable/pkg/datasource"
	"github.com/marmos91/vtable/pkg/metrics"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// InitLogger initializes the structured logger from configuration.
func InitLogger(cfg *config.Config) error {
	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// loadConfig loads the configuration named by --config, applies --log-level
// and initializes the logger. A missing default config file is not an error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = strings.ToUpper(logLevel)
		if err := config.Validate(cfg); err != nil {
			return nil, fmt.Errorf("invalid --log-level: %w", err)
		}
	}
	if err := InitLogger(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// startObservability starts tracing and, when enabled, the metrics registry.
// The returned function flushes the tracer.
func startObservability(ctx context.Context, cfg *config.Config) (func(), error) {
	tcfg := cfg.Telemetry
	tcfg.ServiceName = "vtable"
	tcfg.ServiceVersion = Version

	shutdown, err := telemetry.Init(ctx, tcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
	}

	return func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Error("telemetry shutdown error", logger.Err(err))
		}
	}, nil
}

// openReader opens path with the reader section of cfg. Reader metrics are
// recorded when the registry is enabled.
func openReader(path string, cfg *config.Config) (*csvsource.Reader, error) {
	r, err := csvsource.Open(path, cfg.Reader.ReaderOptions(metrics.NewReaderMetrics(metrics.Registerer())))
	if err != nil {
		_ = r.Close()
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return r, nil
}

// newModel creates a block cache from cfg. opts adjusts the derived options
// before the model is built.
func newModel(cfg *config.Config, opts ...func(*blockcache.Options)) *blockcache.Model {
	mo := cfg.ModelOptions(metrics.NewCacheMetrics(metrics.Registerer()))
	for _, o := range opts {
		o(&mo)
	}
	return blockcache.New(mo)
}

// newPrinter builds a printer on cmd's output for the --output flag.
func newPrinter(cmd *cobra.Command) (*output.Printer, error) {
	format, err := output.ParseFormat(outputFormat)
	if err != nil {
		return nil, err
	}
	return output.NewPrinter(cmd.OutOrStdout(), format, colorEnabled()), nil
}

func colorEnabled() bool {
	if noColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

// pageRows returns rows [start, start+count) of m clamped to the row count.
func pageRows(m *blockcache.Model, start, count int) (int, []datasource.Row) {
	total := m.RowCount()
	if total == 0 || count <= 0 {
		return 0, nil
	}
	start = min(max(0, start), total-1)
	end := start + min(count, total-start)
	rows := make([]datasource.Row, 0, end-start)
	for r := start; r < end; r++ {
		rows = append(rows, m.Row(r))
	}
	return start, rows
}
