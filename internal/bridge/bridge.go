// Package bridge owns the texture shared between the legacy capture context
// and the primary rendering context.
//
// The legacy half is created by the capture API, exported through an OS
// shared handle and imported by the primary device at a fixed descriptor
// slot. Both halves always have the same size; a size change rebuilds both
// and the handle.
package bridge

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/gogpu/mirror/gpucore"
	"github.com/gogpu/mirror/internal/logging"
)

// Slot is the descriptor slot of the shared texture. Slot 0 holds the
// uniform block.
const Slot uint32 = 1

var (
	// ErrSizeMismatch is returned by CopyFrom when the frame does not match
	// the bridge size. Call Ensure first.
	ErrSizeMismatch = errors.New("bridge: frame size differs from shared texture")

	// ErrEmpty is returned when the bridge has no texture yet.
	ErrEmpty = errors.New("bridge: no shared texture")
)

// Bridge holds one legacy texture, its OS handle and the primary import.
type Bridge struct {
	legacy gpucore.Legacy
	device gpucore.Device

	texture  gpucore.SharedTexture
	handle   gpucore.SharedHandle
	imported gpucore.ImportedTexture

	width, height uint32
	recreations   int
}

// New returns an empty bridge between legacy and dev.
func New(legacy gpucore.Legacy, dev gpucore.Device) *Bridge {
	return &Bridge{legacy: legacy, device: dev}
}

// Ensure makes the shared texture width x height, rebuilding both halves
// when the size differs. The caller must have retired GPU work reading the
// current import.
func (b *Bridge) Ensure(width, height uint32) error {
	width, height = max(width, 1), max(height, 1)
	if b.texture != nil && b.width == width && b.height == height {
		logging.Logger().Debug("bridge: reused", "width", width, "height", height)
		return nil
	}

	if err := b.release(); err != nil {
		return err
	}

	tex, err := b.legacy.CreateSharedTexture(width, height)
	if err != nil {
		return fmt.Errorf("bridge: create shared texture %dx%d: %w", width, height, err)
	}
	h, err := tex.CreateSharedHandle()
	if err != nil {
		_ = tex.Release()
		return fmt.Errorf("bridge: export shared handle: %w", err)
	}
	imp, err := b.device.ImportShared(gpucore.SharedDesc{
		Handle: h,
		Width:  width,
		Height: height,
		Format: tex.Format(),
	}, Slot)
	if err != nil {
		_ = b.legacy.CloseSharedHandle(h)
		_ = tex.Release()
		return fmt.Errorf("bridge: import shared handle: %w", err)
	}

	b.texture, b.handle, b.imported = tex, h, imp
	b.width, b.height = width, height
	b.recreations++
	logging.Logger().Info("bridge: shared texture created",
		"width", width, "height", height, "format", tex.Format().String(), "slot", Slot,
		"size", humanize.IBytes(uint64(width)*uint64(height)*4))
	return nil
}

// release closes the handle first, then drops both halves.
func (b *Bridge) release() error {
	if b.texture == nil {
		return nil
	}
	if err := b.legacy.CloseSharedHandle(b.handle); err != nil {
		return fmt.Errorf("bridge: close shared handle: %w", err)
	}
	b.imported.Destroy()
	err := b.texture.Release()
	b.texture, b.handle, b.imported = nil, 0, nil
	if err != nil {
		return fmt.Errorf("bridge: release shared texture: %w", err)
	}
	return nil
}

// CopyFrom copies a captured frame into the shared texture on the legacy
// device.
func (b *Bridge) CopyFrom(frame gpucore.CaptureTexture) error {
	if b.texture == nil {
		return ErrEmpty
	}
	if w, h := frame.Size(); w != b.width || h != b.height {
		return fmt.Errorf("%w: frame %dx%d, texture %dx%d", ErrSizeMismatch, w, h, b.width, b.height)
	}
	if err := b.legacy.CopyResource(b.texture, frame); err != nil {
		return fmt.Errorf("bridge: copy frame: %w", err)
	}
	return nil
}

// Bind records the descriptor bindings: uniform at slot 0, the shared
// texture at Slot.
func (b *Bridge) Bind(list gpucore.CommandList, uniform gpucore.UniformBuffer) error {
	if b.imported == nil {
		return ErrEmpty
	}
	list.SetBindings(uniform, b.imported)
	return nil
}

// Size returns the shared texture size.
func (b *Bridge) Size() (width, height uint32) { return b.width, b.height }

// Slot returns the descriptor slot of the import.
func (b *Bridge) Slot() uint32 { return Slot }

// Recreations returns how many times the shared texture was built.
func (b *Bridge) Recreations() int { return b.recreations }

// Close closes the shared handle and releases both halves.
func (b *Bridge) Close() error { return b.release() }
