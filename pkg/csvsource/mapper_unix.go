//go:build unix

package csvsource

import (
	"os"

	"golang.org/x/sys/unix"
)

var pageSize = unix.Getpagesize()

func mmapRegion(f *os.File, off int64, length int) ([]byte, error) {
	return unix.Mmap(int(f.Fd()), off, length, unix.PROT_READ, unix.MAP_SHARED)
}

func munmapRegion(b []byte) error {
	return unix.Munmap(b)
}

var (
	defaultMap   mapFunc   = mmapRegion
	defaultUnmap unmapFunc = munmapRegion
)
