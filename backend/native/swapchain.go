package native

import (
	"errors"
	"fmt"
	"slices"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/mirror/gpucore"
	"github.com/gogpu/mirror/internal/logging"
)

// surfaceFormats are the back buffer formats the pipeline can target, in
// preference order.
var surfaceFormats = []gputypes.TextureFormat{
	gputypes.TextureFormatBGRA8Unorm,
	gputypes.TextureFormatRGBA8Unorm,
}

// Swapchain is a configured HAL surface. HAL hides the back buffer
// rotation, so the index is tracked here and advanced on every present.
type Swapchain struct {
	dev     *Device
	surface hal.Surface

	width, height uint32
	format        gputypes.TextureFormat
	alpha         gputypes.CompositeAlphaMode
	count         int
	index         int
	refs          int

	acquired hal.SurfaceTexture
	view     hal.TextureView

	presents uint64
}

var _ gpucore.Swapchain = (*Swapchain)(nil)

func (sc *Swapchain) configure(width, height uint32) error {
	width, height = max(width, 1), max(height, 1)
	format := defaultFormat
	alpha := gputypes.CompositeAlphaModePremultiplied
	if caps := sc.dev.adapter.Adapter.SurfaceCapabilities(sc.surface); caps != nil {
		if i := slices.IndexFunc(surfaceFormats, func(f gputypes.TextureFormat) bool {
			return slices.Contains(caps.Formats, f)
		}); i >= 0 {
			format = surfaceFormats[i]
		}
		if len(caps.AlphaModes) > 0 && !slices.Contains(caps.AlphaModes, alpha) {
			alpha = caps.AlphaModes[0]
		}
	}

	err := sc.surface.Configure(sc.dev.device, &hal.SurfaceConfiguration{
		Width:       width,
		Height:      height,
		Format:      format,
		Usage:       gputypes.TextureUsageRenderAttachment,
		PresentMode: gputypes.PresentModeFifo,
		AlphaMode:   alpha,
	})
	if err != nil {
		return fmt.Errorf("native: configure surface %dx%d: %w", width, height, err)
	}
	sc.width, sc.height = width, height
	sc.format, sc.alpha = format, alpha
	sc.dev.format = format
	logging.Logger().Debug("native: surface configured",
		"width", width, "height", height,
		"format", format.String(), "alpha", alpha.String())
	return nil
}

// BufferCount returns the number of back buffers.
func (sc *Swapchain) BufferCount() int { return sc.count }

// CurrentBackBufferIndex returns the buffer the next frame renders to.
func (sc *Swapchain) CurrentBackBufferIndex() int { return sc.index }

// Buffer returns a reference to back buffer i.
func (sc *Swapchain) Buffer(i int) (gpucore.RenderTarget, error) {
	if i < 0 || i >= sc.count {
		return nil, fmt.Errorf("native: back buffer %d of %d: %w", i, sc.count, gpucore.ErrInvalidCall)
	}
	sc.refs++
	return &RenderTarget{sc: sc, index: i}, nil
}

// ResizeBuffers reconfigures the surface. Every buffer reference must
// have been released.
func (sc *Swapchain) ResizeBuffers(bufferCount int, width, height uint32) error {
	if sc.refs > 0 {
		return fmt.Errorf("native: resize with %d buffer references: %w", sc.refs, gpucore.ErrBuffersReferenced)
	}
	sc.discard()
	if bufferCount > 0 {
		sc.count = bufferCount
	}
	if err := sc.configure(width, height); err != nil {
		return err
	}
	sc.index = 0
	return nil
}

// Size returns the configured size.
func (sc *Swapchain) Size() (width, height uint32) { return sc.width, sc.height }

// Format returns the configured format.
func (sc *Swapchain) Format() gputypes.TextureFormat { return sc.format }

// acquire returns this frame's surface texture and view, acquiring them
// on first use. An outdated surface is reconfigured once.
func (sc *Swapchain) acquire() (hal.SurfaceTexture, hal.TextureView, error) {
	if sc.acquired != nil {
		return sc.acquired, sc.view, nil
	}
	at, err := sc.surface.AcquireTexture(nil)
	if errors.Is(err, hal.ErrSurfaceOutdated) {
		if err = sc.configure(sc.width, sc.height); err == nil {
			at, err = sc.surface.AcquireTexture(nil)
		}
	}
	if err != nil {
		return nil, nil, fmt.Errorf("native: acquire surface texture: %w", mapError(err))
	}
	if at.Suboptimal {
		logging.Logger().Debug("native: suboptimal surface texture")
	}
	view, err := sc.dev.device.CreateTextureView(at.Texture, &hal.TextureViewDescriptor{
		Label:         "mirror back buffer",
		Format:        sc.format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		sc.surface.DiscardTexture(at.Texture)
		return nil, nil, fmt.Errorf("native: back buffer view: %w", err)
	}
	sc.acquired, sc.view = at.Texture, view
	return sc.acquired, sc.view, nil
}

func (sc *Swapchain) discard() {
	if sc.acquired == nil {
		return
	}
	sc.dev.device.DestroyTextureView(sc.view)
	sc.surface.DiscardTexture(sc.acquired)
	sc.acquired, sc.view = nil, nil
}

// Present queues the frame's texture and advances the index. The surface
// is configured for FIFO, so syncInterval is informational.
func (sc *Swapchain) Present(syncInterval int) error {
	tex, _, err := sc.acquire()
	if err != nil {
		return err
	}
	err = sc.dev.queue.queue.Present(sc.surface, tex, nil)
	sc.dev.device.DestroyTextureView(sc.view)
	sc.acquired, sc.view = nil, nil
	if err != nil {
		if errors.Is(err, hal.ErrSurfaceOutdated) {
			logging.Logger().Debug("native: surface outdated on present")
			return sc.configure(sc.width, sc.height)
		}
		return fmt.Errorf("native: present: %w", mapError(err))
	}
	// HAL does not report which image the presentation engine hands out
	// next. This is a local estimate; callers re-read the index after every
	// present and never derive it themselves.
	sc.index = (sc.index + 1) % sc.count
	sc.presents++
	if syncInterval != 1 {
		logging.Logger().Debug("native: sync interval ignored", "interval", syncInterval)
	}
	return nil
}

// Presents returns how many frames were presented.
func (sc *Swapchain) Presents() uint64 { return sc.presents }

// Destroy unconfigures and destroys the surface.
func (sc *Swapchain) Destroy() {
	sc.discard()
	sc.surface.Unconfigure(sc.dev.device)
	sc.surface.Destroy()
}

// RenderTarget is a reference to one back buffer.
type RenderTarget struct {
	sc       *Swapchain
	index    int
	released bool
}

var _ gpucore.RenderTarget = (*RenderTarget)(nil)

// Size returns the back buffer size.
func (rt *RenderTarget) Size() (width, height uint32) { return rt.sc.Size() }

// Index returns the back buffer index.
func (rt *RenderTarget) Index() int { return rt.index }

// Release drops the reference.
func (rt *RenderTarget) Release() {
	if rt.released {
		return
	}
	rt.released = true
	rt.sc.refs--
}
