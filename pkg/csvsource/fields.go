package csvsource

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/marmos91/vtable/pkg/datasource"
)

// splitFields splits one line into trimmed fields.
//
// The grammar is deliberately simple: a double quote toggles quoted mode and
// is dropped, a backslash makes the next character literal, and the
// delimiter only separates fields outside quotes. Doubled quotes are not an
// escape.
func splitFields(line string, delim byte) []string {
	fields := make([]string, 0, 8)
	var (
		cur      strings.Builder
		inQuotes bool
		escaped  bool
	)
	for _, c := range line {
		switch {
		case escaped:
			cur.WriteRune(c)
			escaped = false
		case c == '\\':
			escaped = true
		case c == '"':
			inQuotes = !inQuotes
		case c == rune(delim) && !inQuotes:
			fields = append(fields, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteRune(c)
		}
	}
	return append(fields, strings.TrimSpace(cur.String()))
}

// decodeLine converts raw line bytes to text, replacing invalid UTF-8.
func decodeLine(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	return strings.ToValidUTF8(string(b), "\uFFFD")
}

// typeField types a trimmed field: empty is Null, a canonical base-10 int64
// is Int, everything else stays Text. Leading zeros, a plus sign or "-0"
// keep the field as Text so its display is unchanged.
func typeField(s string) datasource.Value {
	if s == "" {
		return datasource.Null
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil && strconv.FormatInt(n, 10) == s {
		return datasource.Int(n)
	}
	return datasource.Text(s)
}

// parseRow parses a line into a row of exactly columns cells.
func parseRow(line []byte, delim byte, columns int) datasource.Row {
	fields := splitFields(decodeLine(line), delim)
	if len(fields) > columns {
		fields = fields[:columns]
	}
	row := make(datasource.Row, len(fields), columns)
	for i, f := range fields {
		row[i] = typeField(f)
	}
	return row.Fit(columns)
}
