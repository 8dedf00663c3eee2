// Package output renders command results as tables, JSON or YAML.
package output

import (
	"fmt"
	"io"
	"strings"
)

// Format is the -o/--output value.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat parses an --output value. Empty means table.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "table", "":
		return FormatTable, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("invalid output format: %q (valid: table, json, yaml)", s)
	}
}

func (f Format) String() string {
	return string(f)
}

// Printer writes command results to out in one format.
type Printer struct {
	out    io.Writer
	format Format
	color  bool
}

func NewPrinter(out io.Writer, format Format, color bool) *Printer {
	return &Printer{out: out, format: format, color: color}
}

// Print writes data in the printer's format. In table format data that is not
// a TableRenderer falls back to JSON.
func (p *Printer) Print(data any) error {
	if p.format != FormatTable {
		return Encode(p.out, p.format, data)
	}
	if renderer, ok := data.(TableRenderer); ok {
		return PrintTable(p.out, renderer)
	}
	return Encode(p.out, FormatJSON, data)
}

// Success prints msg in green.
func (p *Printer) Success(msg string) {
	p.colored("32", msg)
}

// Warning prints msg in yellow.
func (p *Printer) Warning(msg string) {
	p.colored("33", msg)
}

// Faint prints msg dimmed, for status lines under a table.
func (p *Printer) Faint(msg string) {
	p.colored("2", msg)
}

func (p *Printer) colored(code, msg string) {
	if p.color {
		_, _ = fmt.Fprintf(p.out, "\033[%sm%s\033[0m\n", code, msg)
		return
	}
	_, _ = fmt.Fprintln(p.out, msg)
}
