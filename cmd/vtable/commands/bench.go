package commands

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/marmos91/vtable/internal/cli/output"
	"github.com/marmos91/vtable/internal/logger"
	"github.com/marmos91/vtable/pkg/config"
	"github.com/marmos91/vtable/pkg/datasource"
	"github.com/marmos91/vtable/pkg/synthetic"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	benchSynthetic   int
	benchColumns     int
	benchDelay       time.Duration
	benchJumps       int
	benchConcurrency int
	benchSeed        uint64
	benchSkipAll     bool
	benchJumpTimeout time.Duration
)

var benchCmd = &cobra.Command{
	Use:   "bench [file]",
	Short: "Measure paging performance",
	Long: `Measure how quickly rows become available through the block cache.

Three phases run against the same source:
  jumps     random jumps on a cold cache, timing until the visible
            blocks are resident
  load-all  every block loaded through the worker pool
  parallel  raw block reads from concurrent goroutines, bypassing the cache

Without a file argument a synthetic source is used.

Examples:
  # Benchmark a file
  vtable bench data.csv

  # Benchmark 1M synthetic rows with 1ms per block load
  vtable bench --synthetic 1000000 --delay 1ms`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBench,
}

func init() {
	benchCmd.Flags().IntVar(&benchSynthetic, "synthetic", 1_000_000, "Rows of the synthetic source used when no file is given")
	benchCmd.Flags().IntVar(&benchColumns, "columns", 8, "Columns of the synthetic source")
	benchCmd.Flags().DurationVar(&benchDelay, "delay", 0, "Artificial latency per synthetic block load")
	benchCmd.Flags().IntVar(&benchJumps, "jumps", 100, "Random jumps in the jumps phase")
	benchCmd.Flags().IntVar(&benchConcurrency, "concurrency", 4, "Goroutines in the parallel phase")
	benchCmd.Flags().Uint64Var(&benchSeed, "seed", 1, "Seed for jump targets")
	benchCmd.Flags().BoolVar(&benchSkipAll, "skip-load-all", false, "Skip the load-all phase")
	benchCmd.Flags().DurationVar(&benchJumpTimeout, "jump-timeout", 30*time.Second, "Give up waiting for a jump after this long")
}

type benchResult struct {
	Source      string `json:"source" yaml:"source"`
	RowCount    int    `json:"rows" yaml:"rows"`
	BlockSize   int    `json:"block_size" yaml:"block_size"`
	TotalBlocks int    `json:"total_blocks" yaml:"total_blocks"`

	Jumps        int           `json:"jumps" yaml:"jumps"`
	JumpP50      time.Duration `json:"jump_p50_ns" yaml:"jump_p50"`
	JumpP95      time.Duration `json:"jump_p95_ns" yaml:"jump_p95"`
	JumpMax      time.Duration `json:"jump_max_ns" yaml:"jump_max"`
	Evicted      int           `json:"evicted_blocks" yaml:"evicted_blocks"`
	LoadAll      time.Duration `json:"load_all_ns" yaml:"load_all"`
	LoadAllRate  float64       `json:"load_all_rows_per_sec" yaml:"load_all_rows_per_sec"`
	Parallel     time.Duration `json:"parallel_ns" yaml:"parallel"`
	ParallelRate float64       `json:"parallel_rows_per_sec" yaml:"parallel_rows_per_sec"`
}

func (b benchResult) Headers() []string {
	return output.KeyValues{}.Headers()
}

func (b benchResult) Rows() [][]string {
	kv := output.KeyValues{}.
		Add("Source", b.Source).
		Add("Rows", humanize.Comma(int64(b.RowCount))).
		Add("Blocks", fmt.Sprintf("%d x %d rows", b.TotalBlocks, b.BlockSize)).
		Add("Jumps", strconv.Itoa(b.Jumps)).
		Add("Jump p50", b.JumpP50.String()).
		Add("Jump p95", b.JumpP95.String()).
		Add("Jump max", b.JumpMax.String()).
		Add("Evicted blocks", strconv.Itoa(b.Evicted))
	if b.LoadAll > 0 {
		kv = kv.Add("Load all", b.LoadAll.String()).
			Add("Load all rate", humanize.Comma(int64(b.LoadAllRate))+" rows/s")
	}
	return kv.Add("Parallel reads", b.Parallel.String()).
		Add("Parallel rate", humanize.Comma(int64(b.ParallelRate))+" rows/s").
		Rows()
}

func runBench(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	printer, err := newPrinter(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	stop, err := startObservability(ctx, cfg)
	if err != nil {
		return err
	}
	defer stop()

	var (
		src  datasource.DataSource
		name string
	)
	if len(args) == 1 {
		r, err := openReader(args[0], cfg)
		if err != nil {
			return err
		}
		defer func() { _ = r.Close() }()
		src, name = r, args[0]
	} else {
		src = synthetic.New(benchSynthetic, benchColumns, synthetic.WithDelay(benchDelay))
		name = fmt.Sprintf("synthetic %dx%d", benchSynthetic, benchColumns)
	}

	res := benchResult{Source: name, Jumps: benchJumps}
	if err := benchJumpPhase(ctx, cfg, src, &res); err != nil {
		return err
	}
	if res.RowCount == 0 {
		printer.Warning("no data rows")
		return nil
	}
	if !benchSkipAll {
		if err := benchLoadAllPhase(ctx, cfg, src, &res); err != nil {
			return err
		}
	}
	if err := benchParallelPhase(ctx, src, &res); err != nil {
		return err
	}

	return printer.Print(res)
}

func benchJumpPhase(ctx context.Context, cfg *config.Config, src datasource.DataSource, res *benchResult) error {
	m := newModel(cfg)
	defer m.Close()
	m.SetDataSource(src)

	res.RowCount = m.RowCount()
	res.BlockSize = m.BlockSize()
	res.TotalBlocks = m.TotalBlocks()
	if res.RowCount == 0 {
		return nil
	}

	rng := rand.New(rand.NewPCG(benchSeed, benchSeed))
	latencies := make([]time.Duration, 0, benchJumps)
	for range benchJumps {
		if err := ctx.Err(); err != nil {
			return err
		}
		row := rng.IntN(res.RowCount)
		started := time.Now()
		m.JumpToRow(row)
		waitCtx, cancel := context.WithTimeout(ctx, benchJumpTimeout)
		err := m.WaitVisible(waitCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("jump to row %d: %w", row+1, err)
		}
		latencies = append(latencies, time.Since(started))
		res.Evicted += m.Cleanup()
	}

	if len(latencies) > 0 {
		slices.Sort(latencies)
		res.JumpP50 = latencies[len(latencies)/2]
		res.JumpP95 = latencies[len(latencies)*95/100]
		res.JumpMax = latencies[len(latencies)-1]
	}
	logger.Debug("jump phase done", "jumps", len(latencies), "evicted", res.Evicted)
	return nil
}

func benchLoadAllPhase(ctx context.Context, cfg *config.Config, src datasource.DataSource, res *benchResult) error {
	m := newModel(cfg)
	defer m.Close()
	m.SetDataSource(src)

	started := time.Now()
	if err := m.LoadAll(ctx); err != nil {
		return fmt.Errorf("load all: %w", err)
	}
	res.LoadAll = time.Since(started)
	res.LoadAllRate = float64(res.RowCount) / res.LoadAll.Seconds()
	return nil
}

// benchParallelPhase reads every block straight from the source, split across
// benchConcurrency goroutines.
func benchParallelPhase(ctx context.Context, src datasource.DataSource, res *benchResult) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, benchConcurrency))

	var loaded atomic.Int64
	started := time.Now()
	for idx := range res.TotalBlocks {
		start := idx * res.BlockSize
		count := min(res.BlockSize, res.RowCount-start)
		g.Go(func() error {
			rows, err := datasource.Load(gctx, src, start, count)
			if err != nil {
				return fmt.Errorf("block %d: %w", idx, err)
			}
			loaded.Add(int64(len(rows)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	res.Parallel = time.Since(started)
	res.ParallelRate = float64(loaded.Load()) / res.Parallel.Seconds()
	return nil
}
