package csvsource

import (
	"github.com/hashicorp/golang-lru/v2/simplelru"

	"github.com/marmos91/vtable/pkg/datasource"
)

// rowCache is a strict LRU of parsed rows keyed by row index. It is not
// safe for concurrent use; the Reader mutex guards it.
type rowCache struct {
	lru *simplelru.LRU[int, datasource.Row]
}

func newRowCache(size int) *rowCache {
	if size <= 0 {
		size = DefaultMaxCacheRows
	}
	lru, err := simplelru.NewLRU[int, datasource.Row](size, nil)
	if err != nil {
		// Only reachable with a non-positive size.
		panic(err)
	}
	return &rowCache{lru: lru}
}

// get returns the cached row and marks it most recently used.
func (c *rowCache) get(row int) (datasource.Row, bool) {
	return c.lru.Get(row)
}

// add inserts row, evicting the least recently used entry when full.
func (c *rowCache) add(idx int, row datasource.Row) {
	c.lru.Add(idx, row)
}

func (c *rowCache) len() int {
	return c.lru.Len()
}

func (c *rowCache) purge() {
	c.lru.Purge()
}
