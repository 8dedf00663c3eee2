package csvsource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/vtable/pkg/datasource"
)

func (c *rowCache) contains(idx int) bool {
	return c.lru.Contains(idx)
}

// keys returns cached row indices from least to most recently used.
func (c *rowCache) keys() []int {
	return c.lru.Keys()
}

func TestRowCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := newRowCache(3)
	for i := 0; i < 3; i++ {
		c.add(i, datasource.Row{datasource.Int(int64(i))})
	}
	require.Equal(t, 3, c.len())

	// Inserting max+1 rows evicts the oldest.
	c.add(3, datasource.Row{datasource.Int(3)})
	assert.Equal(t, 3, c.len())
	assert.False(t, c.contains(0))

	// A hit moves the row to most recently used.
	_, ok := c.get(1)
	require.True(t, ok)
	c.add(4, datasource.Row{datasource.Int(4)})
	assert.False(t, c.contains(2))
	assert.True(t, c.contains(1))
	assert.Equal(t, []int{3, 1, 4}, c.keys())
}

func TestRowCacheLookupDoesNotGrow(t *testing.T) {
	c := newRowCache(10)
	row := datasource.Row{datasource.Text("x")}
	c.add(7, row)

	first, ok := c.get(7)
	require.True(t, ok)
	second, ok := c.get(7)
	require.True(t, ok)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, c.len())

	_, ok = c.get(8)
	assert.False(t, ok)
	assert.Equal(t, 1, c.len())
}

func TestRowCacheDefaultSize(t *testing.T) {
	c := newRowCache(0)
	for i := 0; i < DefaultMaxCacheRows+5; i++ {
		c.add(i, nil)
	}
	assert.Equal(t, DefaultMaxCacheRows, c.len())

	c.purge()
	assert.Zero(t, c.len())
}
