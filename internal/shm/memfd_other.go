//go:build unix && !linux

package shm

import (
	"os"

	"golang.org/x/sys/unix"
)

// anonymousFD backs the region with an unlinked temporary file.
func anonymousFD(size int64) (int, error) {
	f, err := os.CreateTemp("", "mirror-frame-*")
	if err != nil {
		return -1, err
	}
	defer f.Close()
	if err := os.Remove(f.Name()); err != nil {
		return -1, err
	}
	if err := f.Truncate(size); err != nil {
		return -1, err
	}
	return unix.Dup(int(f.Fd()))
}
