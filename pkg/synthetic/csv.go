package synthetic

import (
	"bufio"
	"io"
	"strings"
)

// WriteCSV writes the header and every row of s as comma-separated text.
// Cells never contain the delimiter, quotes or backslashes, so no quoting is
// needed. It returns the number of bytes written.
func WriteCSV(w io.Writer, s *Source) (int64, error) {
	bw := bufio.NewWriterSize(w, 1<<20)
	var written int64

	n, err := bw.WriteString(strings.Join(s.HeaderRow(), ",") + "\n")
	written += int64(n)
	if err != nil {
		return written, err
	}

	var line strings.Builder
	for r := 0; r < s.rows; r++ {
		line.Reset()
		for c, v := range s.Row(r) {
			if c > 0 {
				line.WriteByte(',')
			}
			line.WriteString(v.String())
		}
		line.WriteByte('\n')
		n, err := bw.WriteString(line.String())
		written += int64(n)
		if err != nil {
			return written, err
		}
	}
	return written, bw.Flush()
}
