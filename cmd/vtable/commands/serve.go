package commands

import (
	"errors"
	"os/signal"
	"sync"
	"syscall"

	"github.com/marmos91/vtable/internal/logger"
	"github.com/marmos91/vtable/internal/server"
	"github.com/marmos91/vtable/pkg/blockcache"
	"github.com/marmos91/vtable/pkg/config"
	"github.com/marmos91/vtable/pkg/csvsource"
	"github.com/spf13/cobra"
)

var (
	serveListen string
	serveWatch  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve <file>",
	Short: "Serve a file's rows over HTTP",
	Long: `Serve rows of a delimited file through the block cache over HTTP.

Endpoints:
  GET /rows?start=0&count=100&wait=5s   a page of rows (start is 0-based)
  GET /stats                            block cache statistics
  GET /healthz                          liveness probe
  GET /metrics                          Prometheus metrics (metrics.enabled)

With --watch the file is reopened whenever it changes on disk.

Examples:
  # Serve on the configured address
  vtable serve data.csv

  # Serve on all interfaces and follow file changes
  vtable serve data.csv --listen 0.0.0.0:8080 --watch

  # Enable metrics through the environment
  VTABLE_METRICS_ENABLED=true vtable serve data.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Address to listen on (default: server.listen)")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "Reopen the file when it changes")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveListen != "" {
		cfg.Server.Listen = serveListen
	}

	ctx, stopSignals := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	stopObservability, err := startObservability(ctx, cfg)
	if err != nil {
		return err
	}
	defer stopObservability()

	path := args[0]
	r, err := openReader(path, cfg)
	if err != nil {
		return err
	}

	m := newModel(cfg)
	m.SetDataSource(r)

	live := &liveSource{cfg: cfg, model: m, reader: r}
	defer func() {
		m.Close()
		live.close()
	}()

	srv := server.New(server.Options{
		Listen:          cfg.Server.Listen,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		MaxPageRows:     cfg.Server.MaxPageRows,
		Version:         Version,
	}, m)
	srv.SetSource(path)

	logger.Info("Serving flat file",
		logger.KeyPath, path,
		logger.KeyRows, m.RowCount(),
		logger.KeyColumns, m.ColumnCount(),
		logger.KeySession, m.ID())

	if serveWatch {
		go func() {
			err := csvsource.Watch(ctx, path, live.reload)
			if err != nil {
				logger.Warn("File watcher stopped", logger.KeyPath, path, logger.Err(err))
			}
		}()
	}

	if err := srv.Start(ctx); err != nil {
		return err
	}
	logger.Info("Server stopped")
	return nil
}

// liveSource owns the reader behind the model and swaps it when the file
// changes.
type liveSource struct {
	cfg   *config.Config
	model *blockcache.Model

	mu     sync.Mutex
	reader *csvsource.Reader
}

// reload reopens the file after c and hands the new reader to the model. A
// removed file keeps the old reader, whose mapping stays valid.
func (l *liveSource) reload(c csvsource.Change) {
	if c.Kind == csvsource.ChangeRemoved {
		logger.Warn("Flat file removed, keeping the last version", logger.KeyPath, c.Path)
		return
	}

	r, err := openReader(c.Path, l.cfg)
	if err != nil {
		logger.Warn("Failed to reopen flat file", logger.KeyPath, c.Path, logger.Err(err))
		return
	}

	l.mu.Lock()
	old := l.reader
	l.reader = r
	l.mu.Unlock()

	l.model.SetDataSource(r)
	if err := old.Close(); err != nil && !errors.Is(err, csvsource.ErrClosed) {
		logger.Warn("Failed to close previous reader", logger.Err(err))
	}

	logger.Info("Flat file reloaded",
		logger.KeyPath, c.Path,
		"change", c.Kind.String(),
		"size", c.Size,
		logger.KeyRows, l.model.RowCount())
}

func (l *liveSource) close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.reader.Close(); err != nil {
		logger.Warn("Failed to close reader", logger.Err(err))
	}
}
