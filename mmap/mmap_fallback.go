//go:build !unix

package mmap

import "os"

// Without a mapping the reader serves views through its scratch window;
// residency stays bounded by the window size instead of OS advisories.
const mapEnabled = false

const (
	adviceSequential = 0
	adviceWillNeed   = 0
	adviceDontNeed   = 0
)

func mapFile(_ *os.File, _ int64) ([]byte, error) {
	return nil, nil
}

func unmapFile(_ []byte) error {
	return nil
}

func madviseRange(_ []byte, _ int) error {
	return nil
}
