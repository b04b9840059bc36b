package native

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/mirror/gpucore"
	"github.com/gogpu/mirror/internal/shm"
)

// ErrSlot is returned by ImportShared for a slot the mirror pipeline does
// not declare a texture at.
var ErrSlot = errors.New("native: shared texture slot not in pipeline layout")

// ImportShared maps the shared region named by desc.Handle and creates a
// sampled texture of the same size for it. The handle stays owned by the
// caller.
func (d *Device) ImportShared(desc gpucore.SharedDesc, slot uint32) (gpucore.ImportedTexture, error) {
	if slot != textureBinding {
		return nil, fmt.Errorf("%w: %d", ErrSlot, slot)
	}
	format, ok := textureFormat(desc.Format)
	if !ok {
		return nil, fmt.Errorf("native: import %s: %w", desc.Format, gpucore.ErrUnsupported)
	}
	region, err := shm.Open(desc.Handle)
	if err != nil {
		return nil, fmt.Errorf("native: import: %w", err)
	}
	rw, rh, rf := region.Width(), region.Height(), region.Format()
	if rw != desc.Width || rh != desc.Height || rf != desc.Format {
		_ = region.Close()
		return nil, fmt.Errorf("native: import: region is %dx%d %s, want %dx%d %s: %w",
			rw, rh, rf, desc.Width, desc.Height, desc.Format, shm.ErrBadRegion)
	}

	tex, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "desktop",
		Size:          hal.Extent3D{Width: desc.Width, Height: desc.Height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		_ = region.Close()
		return nil, fmt.Errorf("native: create desktop texture: %w", err)
	}
	view, err := d.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         "desktop",
		Format:        format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		d.device.DestroyTexture(tex)
		_ = region.Close()
		return nil, fmt.Errorf("native: create desktop view: %w", err)
	}
	return &ImportedTexture{dev: d, desc: desc, slot: slot, region: region, texture: tex, view: view}, nil
}

func textureFormat(f gpucore.PixelFormat) (gputypes.TextureFormat, bool) {
	switch f {
	case gpucore.PixelFormatBGRA8:
		return gputypes.TextureFormatBGRA8Unorm, true
	case gpucore.PixelFormatRGBA8:
		return gputypes.TextureFormatRGBA8Unorm, true
	default:
		return gputypes.TextureFormatUndefined, false
	}
}

// ImportedTexture is a GPU copy of a shared memory region.
type ImportedTexture struct {
	dev    *Device
	desc   gpucore.SharedDesc
	slot   uint32
	region *shm.Region

	texture hal.Texture
	view    hal.TextureView

	// generation is the region generation last uploaded.
	generation uint64
	uploads    int

	group        hal.BindGroup
	groupPSO     *PipelineState
	groupUniform *UniformBuffer
}

var _ gpucore.ImportedTexture = (*ImportedTexture)(nil)

// Size returns the texture size.
func (t *ImportedTexture) Size() (width, height uint32) { return t.desc.Width, t.desc.Height }

// Slot returns the binding the texture is declared at.
func (t *ImportedTexture) Slot() uint32 { return t.slot }

// Uploads returns how many frames were copied to the GPU.
func (t *ImportedTexture) Uploads() int { return t.uploads }

// sync uploads the region when its producer published a frame since the
// last upload.
func (t *ImportedTexture) sync() error {
	gen := t.region.Generation()
	if gen == t.generation {
		return nil
	}
	err := t.dev.queue.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: t.texture, Aspect: gputypes.TextureAspectAll},
		t.region.Pixels(),
		&hal.ImageDataLayout{BytesPerRow: t.region.Stride(), RowsPerImage: t.desc.Height},
		&hal.Extent3D{Width: t.desc.Width, Height: t.desc.Height, DepthOrArrayLayers: 1},
	)
	if err != nil {
		return fmt.Errorf("native: upload desktop frame: %w", mapError(err))
	}
	t.generation = gen
	t.uploads++
	return nil
}

// bindGroup returns the bind group for pso and uniform, creating it when
// either changed.
func (t *ImportedTexture) bindGroup(pso *PipelineState, uniform *UniformBuffer) (hal.BindGroup, error) {
	if t.group != nil && t.groupPSO == pso && t.groupUniform == uniform {
		return t.group, nil
	}
	if t.group != nil {
		t.dev.device.DestroyBindGroup(t.group)
		t.group = nil
	}
	group, err := t.dev.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "mirror bindings",
		Layout: pso.groupLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: uniformBinding, Resource: gputypes.BufferBinding{Buffer: uniform.buffer.NativeHandle(), Size: uint64(len(uniform.shadow))}},
			{Binding: textureBinding, Resource: gputypes.TextureViewBinding{TextureView: t.view.NativeHandle()}},
			{Binding: samplerBinding, Resource: gputypes.SamplerBinding{Sampler: pso.sampler.NativeHandle()}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("native: create bind group: %w", err)
	}
	t.group, t.groupPSO, t.groupUniform = group, pso, uniform
	return group, nil
}

// Destroy releases the GPU texture and unmaps the region.
func (t *ImportedTexture) Destroy() {
	if t.region == nil {
		return
	}
	if t.group != nil {
		t.dev.device.DestroyBindGroup(t.group)
	}
	t.dev.device.DestroyTextureView(t.view)
	t.dev.device.DestroyTexture(t.texture)
	_ = t.region.Close()
	t.region = nil
}
