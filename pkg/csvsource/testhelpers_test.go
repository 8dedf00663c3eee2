package csvsource

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/vtable/pkg/datasource"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// numberedFile writes a header and n rows of the form "i,name-i,i.5".
func numberedFile(t *testing.T, n int) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("id,name,score\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "%d,name-%d,%d.5\n", i, i, i)
	}
	return writeFile(t, b.String())
}

func numberedRow(i int) datasource.Row {
	return datasource.Row{
		datasource.Int(int64(i)),
		datasource.Text(fmt.Sprintf("name-%d", i)),
		datasource.Text(fmt.Sprintf("%d.5", i)),
	}
}

func openT(t *testing.T, path string, opts Options) *Reader {
	t.Helper()
	r, err := Open(path, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

// counterValue sums the samples of a counter family with the given label value.
func counterValue(t *testing.T, reg *prometheus.Registry, name, labelValue string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	total := 0.0
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetValue() == labelValue {
					total += m.GetCounter().GetValue()
				}
			}
		}
	}
	return total
}
