package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/marmos91/vtable/internal/cli/output"
	"github.com/marmos91/vtable/internal/cli/prompt"
	"github.com/marmos91/vtable/pkg/blockcache"
	"github.com/marmos91/vtable/pkg/viewport"
	"github.com/spf13/cobra"
)

var (
	browseRows int
	browseWait time.Duration
)

var browseCmd = &cobra.Command{
	Use:   "browse <file>",
	Short: "Page through a file interactively",
	Long: `Browse a delimited file one screen at a time.

The screen is driven through the visible-range controller, so the block
cache sees the same buffered ranges and scroll velocity a table view would
report. Rows whose block has not arrived within --wait are shown as pending.

Examples:
  # Browse with 30 rows per screen
  vtable browse data.csv --rows 30`,
	Args: cobra.ExactArgs(1),
	RunE: runBrowse,
}

func init() {
	browseCmd.Flags().IntVar(&browseRows, "rows", 20, "Rows per screen")
	browseCmd.Flags().DurationVar(&browseWait, "wait", 2*time.Second, "How long to wait for visible rows before drawing")
}

var browseActions = []prompt.SelectOption{
	{Label: "Next page", Value: "next"},
	{Label: "Previous page", Value: "prev"},
	{Label: "Go to row", Value: "jump"},
	{Label: "First page", Value: "first"},
	{Label: "Last page", Value: "last"},
	{Label: "Preload policy", Value: "policy"},
	{Label: "Quit", Value: "quit"},
}

var policyOptions = []prompt.SelectOption{
	{Label: "Conservative", Value: blockcache.Conservative.String(), Description: "1 block ahead, none behind"},
	{Label: "Balanced", Value: blockcache.Balanced.String(), Description: "2 blocks ahead, 1 behind"},
	{Label: "Aggressive", Value: blockcache.Aggressive.String(), Description: "5 blocks ahead, 2 behind"},
}

func runBrowse(cmd *cobra.Command, args []string) error {
	if browseRows < 1 {
		return fmt.Errorf("--rows must be at least 1")
	}

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

	m := newModel(cfg)
	defer m.Close()
	m.SetDataSource(r)

	total := m.RowCount()
	if total == 0 {
		printer.Warning("no data rows")
		return nil
	}

	ctrl := viewport.NewController(m, cfg.Viewport.ControllerOptions())
	defer ctrl.Close()

	ctx := cmd.Context()
	lastTop := max(0, total-browseRows)
	top := 0
	for {
		ctrl.UpdateGeometry(viewport.Geometry{ScrollOffset: top, Height: browseRows, RowHeight: 1})

		waitCtx, cancel := context.WithTimeout(ctx, browseWait)
		err := m.WaitVisible(waitCtx)
		cancel()
		if errors.Is(err, blockcache.ErrNotLoaded) {
			printer.Warning("some visible rows failed to load")
		}

		start, rows := pageRows(m, top, browseRows)
		if err := printer.Print(output.NewGrid(m.HeaderNames(), start, rows)); err != nil {
			return err
		}
		st := m.Stats()
		printer.Faint(fmt.Sprintf("rows %s-%s of %s | %s | %d/%d blocks resident | policy %s",
			humanize.Comma(int64(start+1)),
			humanize.Comma(int64(start+len(rows))),
			humanize.Comma(int64(total)),
			st.Status, st.Resident, st.TotalBlocks, st.Policy))

		action, err := prompt.Select("Navigate", browseActions)
		if err != nil {
			if prompt.IsAborted(err) {
				return nil
			}
			return err
		}

		switch action {
		case "next":
			top = min(top+browseRows, lastTop)
		case "prev":
			top = max(0, top-browseRows)
		case "first":
			top = 0
		case "last":
			top = lastTop
		case "jump":
			row, err := prompt.InputRow("Go to row", top, total)
			if err != nil {
				if prompt.IsAborted(err) {
					continue
				}
				return err
			}
			m.JumpToRow(row)
			top = min(row, lastTop)
		case "policy":
			name, err := prompt.SelectCurrent("Preload policy", policyOptions, m.Policy().String())
			if err != nil {
				if prompt.IsAborted(err) {
					continue
				}
				return err
			}
			policy, err := blockcache.ParsePolicy(name)
			if err != nil {
				return err
			}
			m.SetPreloadPolicy(policy)
		case "quit":
			return nil
		}
	}
}
