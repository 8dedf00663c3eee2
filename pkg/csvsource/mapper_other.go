//go:build !unix

package csvsource

import "os"

var pageSize = os.Getpagesize()

// Without mmap support every window is read into a pooled buffer.
var (
	defaultMap   mapFunc
	defaultUnmap unmapFunc
)
