// Package shm implements pixel regions in OS shared memory, addressed by an
// OS handle (a file descriptor on Unix, a file mapping handle on Windows).
//
// A region starts with a fixed 64-byte header followed by tightly packed
// rows:
//
//	offset  size  field
//	0       4     magic "MSHM"
//	4       4     version
//	8       4     width
//	12      4     height
//	16      4     stride (bytes per row)
//	20      4     format (gpucore.PixelFormat)
//	24      8     generation, bumped by Publish
//	64      ...   pixels
//
// The writer bumps the generation after each complete frame; readers
// compare it with the last generation they consumed.
package shm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/gogpu/mirror/gpucore"
)

const (
	magic      = 0x4d48534d // "MSHM" little-endian
	version    = 1
	headerSize = 64
)

var (
	// ErrBadRegion is returned by Open when the handle does not name a
	// region created by Create.
	ErrBadRegion = errors.New("shm: not a frame region")

	// ErrInvalidSize is returned for zero dimensions or an unknown format.
	ErrInvalidSize = errors.New("shm: invalid region size")
)

// Region is a mapped shared pixel region.
type Region struct {
	handle gpucore.SharedHandle
	mem    []byte
	unmap  func() error
}

// Create allocates and maps a new region for width x height pixels.
func Create(width, height uint32, format gpucore.PixelFormat) (*Region, error) {
	bpp := format.BytesPerPixel()
	if width == 0 || height == 0 || bpp == 0 {
		return nil, fmt.Errorf("%w: %dx%d %s", ErrInvalidSize, width, height, format)
	}
	stride := width * uint32(bpp) //nolint:gosec // bpp is 4
	size := headerSize + int(stride)*int(height)

	r, err := create(size)
	if err != nil {
		return nil, fmt.Errorf("shm: create %d bytes: %w", size, err)
	}
	h := r.mem[:headerSize]
	binary.LittleEndian.PutUint32(h[0:], magic)
	binary.LittleEndian.PutUint32(h[4:], version)
	binary.LittleEndian.PutUint32(h[8:], width)
	binary.LittleEndian.PutUint32(h[12:], height)
	binary.LittleEndian.PutUint32(h[16:], stride)
	binary.LittleEndian.PutUint32(h[20:], uint32(format))
	return r, nil
}

// Open maps the region named by h. The region keeps its own duplicate of
// h, so the caller may close h afterwards.
func Open(h gpucore.SharedHandle) (*Region, error) {
	r, err := open(h)
	if err != nil {
		return nil, fmt.Errorf("shm: open handle %d: %w", h, err)
	}
	if err := r.validate(); err != nil {
		_ = r.Close()
		return nil, err
	}
	return r, nil
}

func (r *Region) validate() error {
	if len(r.mem) < headerSize {
		return ErrBadRegion
	}
	h := r.mem[:headerSize]
	if binary.LittleEndian.Uint32(h[0:]) != magic || binary.LittleEndian.Uint32(h[4:]) != version {
		return ErrBadRegion
	}
	if headerSize+int(r.Stride())*int(r.Height()) > len(r.mem) {
		return fmt.Errorf("%w: header describes more pixels than mapped", ErrBadRegion)
	}
	return nil
}

// Handle returns the region's own handle. It stays owned by the region.
func (r *Region) Handle() gpucore.SharedHandle { return r.handle }

// Export returns a new handle to the region. The caller closes it with
// CloseHandle.
func (r *Region) Export() (gpucore.SharedHandle, error) {
	h, err := duplicate(r.handle)
	if err != nil {
		return 0, fmt.Errorf("shm: export: %w", err)
	}
	return h, nil
}

// CloseHandle closes a handle returned by Export.
func CloseHandle(h gpucore.SharedHandle) error {
	if err := closeHandle(h); err != nil {
		return fmt.Errorf("shm: close handle %d: %w", h, err)
	}
	return nil
}

// Width returns the width in pixels.
func (r *Region) Width() uint32 { return binary.LittleEndian.Uint32(r.mem[8:]) }

// Height returns the height in pixels.
func (r *Region) Height() uint32 { return binary.LittleEndian.Uint32(r.mem[12:]) }

// Stride returns the row pitch in bytes.
func (r *Region) Stride() uint32 { return binary.LittleEndian.Uint32(r.mem[16:]) }

// Format returns the pixel format.
func (r *Region) Format() gpucore.PixelFormat {
	return gpucore.PixelFormat(binary.LittleEndian.Uint32(r.mem[20:]))
}

// Pixels returns the mapped pixel rows.
func (r *Region) Pixels() []byte {
	return r.mem[headerSize : headerSize+int(r.Stride())*int(r.Height())]
}

func (r *Region) generation() *atomic.Uint64 {
	// Mappings are page aligned, so offset 24 is 8-byte aligned.
	return (*atomic.Uint64)(unsafe.Pointer(&r.mem[24]))
}

// Generation returns the number of frames published.
func (r *Region) Generation() uint64 { return r.generation().Load() }

// Publish marks the pixels as a complete new frame.
func (r *Region) Publish() uint64 { return r.generation().Add(1) }

// Close unmaps the region and closes its handle.
func (r *Region) Close() error {
	if r.mem == nil {
		return nil
	}
	err := r.unmap()
	r.mem = nil
	return errors.Join(err, closeHandle(r.handle))
}
