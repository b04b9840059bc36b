//go:build !unix && !windows

package shm

import "github.com/gogpu/mirror/gpucore"

func create(int) (*Region, error) { return nil, gpucore.ErrUnsupported }

func open(gpucore.SharedHandle) (*Region, error) { return nil, gpucore.ErrUnsupported }

func duplicate(gpucore.SharedHandle) (gpucore.SharedHandle, error) {
	return 0, gpucore.ErrUnsupported
}

func closeHandle(gpucore.SharedHandle) error { return gpucore.ErrUnsupported }
