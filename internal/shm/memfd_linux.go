package shm

import "golang.org/x/sys/unix"

func anonymousFD(size int64) (int, error) {
	fd, err := unix.MemfdCreate("mirror-frame", unix.MFD_CLOEXEC)
	if err != nil {
		return -1, err
	}
	if err := unix.Ftruncate(fd, size); err != nil {
		_ = unix.Close(fd)
		return -1, err
	}
	return fd, nil
}
