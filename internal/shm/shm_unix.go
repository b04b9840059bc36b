//go:build unix

package shm

import (
	"golang.org/x/sys/unix"

	"github.com/gogpu/mirror/gpucore"
)

func create(size int) (*Region, error) {
	fd, err := anonymousFD(int64(size))
	if err != nil {
		return nil, err
	}
	return mapFD(fd, size)
}

func open(h gpucore.SharedHandle) (*Region, error) {
	fd, err := unix.Dup(int(h))
	if err != nil {
		return nil, err
	}
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}
	if st.Size < headerSize {
		_ = unix.Close(fd)
		return nil, ErrBadRegion
	}
	return mapFD(fd, int(st.Size))
}

func mapFD(fd, size int) (*Region, error) {
	mem, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Close(fd)
		return nil, err
	}
	return &Region{
		handle: gpucore.SharedHandle(fd), //nolint:gosec // fds are non-negative
		mem:    mem,
		unmap:  func() error { return unix.Munmap(mem) },
	}, nil
}

func duplicate(h gpucore.SharedHandle) (gpucore.SharedHandle, error) {
	fd, err := unix.Dup(int(h))
	if err != nil {
		return 0, err
	}
	return gpucore.SharedHandle(fd), nil //nolint:gosec // fds are non-negative
}

func closeHandle(h gpucore.SharedHandle) error {
	return unix.Close(int(h))
}
