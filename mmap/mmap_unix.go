//go:build unix

package mmap

import (
	"os"

	"golang.org/x/sys/unix"
)

const mapEnabled = true

const (
	adviceSequential = unix.MADV_SEQUENTIAL
	adviceWillNeed   = unix.MADV_WILLNEED
	adviceDontNeed   = unix.MADV_DONTNEED
)

func mapFile(f *os.File, size int64) ([]byte, error) {
	return unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
}

func unmapFile(data []byte) error {
	return unix.Munmap(data)
}

func madviseRange(b []byte, advice int) error {
	return unix.Madvise(b, advice)
}
