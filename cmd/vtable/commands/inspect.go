package commands

import (
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/marmos91/vtable/internal/cli/output"
	"github.com/spf13/cobra"
)

var inspectSkipCount bool

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Show the shape of a flat file",
	Long: `Open a delimited file and report its size, header and row count.

Counting rows scans the whole file once. Use --no-count to only read the
header.

Examples:
  # Inspect a file
  vtable inspect data.csv

  # Inspect a tab separated file as JSON
  VTABLE_READER_DELIMITER=tab vtable inspect data.tsv -o json`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectSkipCount, "no-count", false, "Skip the row count scan")
}

type inspectResult struct {
	Path        string   `json:"path" yaml:"path"`
	Size        int64    `json:"size" yaml:"size"`
	Columns     []string `json:"columns" yaml:"columns"`
	RowCount    int      `json:"rows" yaml:"rows"`
	IndexedRows int      `json:"indexed_rows" yaml:"indexed_rows"`
	ScanMs      int64    `json:"scan_ms" yaml:"scan_ms"`
}

func (r inspectResult) Headers() []string {
	return output.KeyValues{}.Headers()
}

func (r inspectResult) Rows() [][]string {
	rows := "not counted"
	if r.RowCount >= 0 {
		rows = humanize.Comma(int64(r.RowCount))
	}
	return output.KeyValues{}.
		Add("Path", r.Path).
		Add("Size", humanize.IBytes(uint64(r.Size))).
		Add("Columns", strconv.Itoa(len(r.Columns))).
		Add("Header", strings.Join(r.Columns, ", ")).
		Add("Rows", rows).
		Add("Indexed rows", humanize.Comma(int64(r.IndexedRows))).
		Add("Scan time", (time.Duration(r.ScanMs) * time.Millisecond).String()).
		Rows()
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	printer, err := newPrinter(cmd)
	if err != nil {
		return err
	}

	r, err := openReader(args[0], cfg)
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()

	started := time.Now()
	if !inspectSkipCount {
		r.RowCount()
	}
	scan := time.Since(started)

	st := r.Stats()
	return printer.Print(inspectResult{
		Path:        st.Path,
		Size:        st.FileSize,
		Columns:     r.HeaderRow(),
		RowCount:    st.RowCount,
		IndexedRows: st.IndexedRows,
		ScanMs:      scan.Milliseconds(),
	})
}
