package output

import (
	"io"
	"strconv"

	"github.com/marmos91/vtable/pkg/datasource"
	"github.com/olekukonko/tablewriter"
)

// TableRenderer is implemented by types that can render themselves as a table.
type TableRenderer interface {
	Headers() []string
	Rows() [][]string
}

// PrintTable writes data as a borderless, left aligned table. Headers are
// printed verbatim since they usually come from the data file.
func PrintTable(w io.Writer, data TableRenderer) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader(data.Headers())

	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)

	table.AppendBulk(data.Rows())
	table.Render()
	return nil
}

// Grid is a page of data rows starting at row Start. In table format the
// first column carries the 1-based row label.
type Grid struct {
	Start   int      `json:"start" yaml:"start"`
	Columns []string `json:"columns" yaml:"columns"`
	Cells   [][]any  `json:"rows" yaml:"rows"`

	text [][]string
}

// NewGrid builds a Grid from rows loaded at start. Pending cells render as
// the pending placeholder in tables and as null in JSON and YAML.
func NewGrid(columns []string, start int, rows []datasource.Row) *Grid {
	g := &Grid{
		Start:   start,
		Columns: columns,
		Cells:   make([][]any, len(rows)),
		text:    make([][]string, len(rows)),
	}
	for i, row := range rows {
		raw := make([]any, len(row))
		for c, v := range row {
			raw[c] = v.Raw()
		}
		g.Cells[i] = raw
		g.text[i] = append([]string{strconv.Itoa(start + i + 1)}, row.Strings()...)
	}
	return g
}

// Headers implements TableRenderer.
func (g *Grid) Headers() []string {
	return append([]string{"#"}, g.Columns...)
}

// Rows implements TableRenderer.
func (g *Grid) Rows() [][]string {
	return g.text
}

// KeyValues is an ordered list of labelled values printed as a two column
// table.
type KeyValues [][2]string

// Add appends a pair and returns the list for chaining.
func (kv KeyValues) Add(key, value string) KeyValues {
	return append(kv, [2]string{key, value})
}

// Headers implements TableRenderer.
func (kv KeyValues) Headers() []string {
	return []string{"FIELD", "VALUE"}
}

// Rows implements TableRenderer.
func (kv KeyValues) Rows() [][]string {
	rows := make([][]string, len(kv))
	for i, pair := range kv {
		rows[i] = []string{pair[0], pair[1]}
	}
	return rows
}
