package shm

import (
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/gogpu/mirror/gpucore"
)

func create(size int) (*Region, error) {
	h, err := windows.CreateFileMapping(windows.InvalidHandle, nil, windows.PAGE_READWRITE,
		uint32(uint64(size)>>32), uint32(size), nil) //nolint:gosec // split of a positive size
	if err != nil {
		return nil, err
	}
	return mapHandle(h, size)
}

func open(sh gpucore.SharedHandle) (*Region, error) {
	h, err := dup(windows.Handle(sh))
	if err != nil {
		return nil, err
	}
	addr, err := windows.MapViewOfFile(h, windows.FILE_MAP_READ|windows.FILE_MAP_WRITE, 0, 0, 0)
	if err != nil {
		_ = windows.CloseHandle(h)
		return nil, err
	}
	var mbi windows.MemoryBasicInformation
	if err := windows.VirtualQuery(addr, &mbi, unsafe.Sizeof(mbi)); err != nil {
		_ = windows.UnmapViewOfFile(addr)
		_ = windows.CloseHandle(h)
		return nil, err
	}
	return region(h, addr, int(mbi.RegionSize)), nil //nolint:gosec // view size fits int
}

func mapHandle(h windows.Handle, size int) (*Region, error) {
	addr, err := windows.MapViewOfFile(h, windows.FILE_MAP_READ|windows.FILE_MAP_WRITE, 0, 0, uintptr(size))
	if err != nil {
		_ = windows.CloseHandle(h)
		return nil, err
	}
	return region(h, addr, size), nil
}

func region(h windows.Handle, addr uintptr, size int) *Region {
	mem := unsafe.Slice((*byte)(unsafe.Pointer(addr)), size) //nolint:govet // address of a mapped view
	return &Region{
		handle: gpucore.SharedHandle(h),
		mem:    mem,
		unmap:  func() error { return windows.UnmapViewOfFile(addr) },
	}
}

func dup(h windows.Handle) (windows.Handle, error) {
	proc := windows.CurrentProcess()
	var out windows.Handle
	err := windows.DuplicateHandle(proc, h, proc, &out, 0, false, windows.DUPLICATE_SAME_ACCESS)
	return out, err
}

func duplicate(h gpucore.SharedHandle) (gpucore.SharedHandle, error) {
	out, err := dup(windows.Handle(h))
	return gpucore.SharedHandle(out), err
}

func closeHandle(h gpucore.SharedHandle) error {
	return windows.CloseHandle(windows.Handle(h))
}
