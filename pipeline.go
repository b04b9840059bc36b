// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package mirror

import (
	"errors"
	"fmt"

	"github.com/gogpu/mirror/backend"
	"github.com/gogpu/mirror/gpucore"
	"github.com/gogpu/mirror/internal/bridge"
	"github.com/gogpu/mirror/internal/capture"
	"github.com/gogpu/mirror/internal/device"
	"github.com/gogpu/mirror/internal/fence"
	"github.com/gogpu/mirror/internal/surface"
)

// quadVertices cover the whole target; UV (0,0) is the top-left texel.
var quadVertices = []gpucore.Vertex{
	{X: -1, Y: 1, U: 0, V: 0},
	{X: 1, Y: 1, U: 1, V: 0},
	{X: 1, Y: -1, U: 1, V: 1},
	{X: -1, Y: -1, U: 0, V: 1},
}

var quadIndices = []uint32{0, 1, 2, 0, 2, 3}

// Stats counts pipeline events since creation.
type Stats struct {
	Frames             uint64
	Updated            uint64
	Unchanged          uint64
	TimedOut           uint64
	BridgeRecreations  int
	CaptureRecreations int
}

// Pipeline is the frame pipeline: it synchronizes with the GPU, pulls the
// latest desktop frame, records and submits one command list per frame and
// presents it.
//
// A Pipeline is not safe for concurrent use.
type Pipeline struct {
	opts options

	primary gpucore.Backend
	legacy  gpucore.Legacy

	ctx     *device.Context
	fence   *fence.Fence
	surface *surface.Surface
	session *capture.Session
	bridge  *bridge.Bridge

	pso     gpucore.PipelineState
	quad    gpucore.Geometry
	uniform gpucore.UniformBuffer

	// frameWidth and frameHeight are the last captured frame's size, zero
	// until the first Updated frame.
	frameWidth, frameHeight uint32

	stats  Stats
	closed bool
}

// New creates the pipeline for win, whose client area is width x height:
// device, fence, surface, pipeline state, quad, uniform buffer, capture
// session on the output nearest win, and a shared texture sized to the
// window.
func New(win gpucore.Window, width, height uint32, opts ...Option) (*Pipeline, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	p := &Pipeline{opts: o}
	if err := p.init(win, width, height); err != nil {
		p.teardown()
		return nil, err
	}
	Logger().Info("mirror: pipeline created",
		"backend", p.primary.Name(),
		"capture", p.legacy.Name(),
		"width", width, "height", height)
	return p, nil
}

func (p *Pipeline) init(win gpucore.Window, width, height uint32) error {
	var err error
	if p.primary, err = resolveBackend(p.opts); err != nil {
		return err
	}
	if p.legacy, err = resolveCapture(p.opts); err != nil {
		return err
	}

	p.ctx, err = device.Create(p.primary, device.Config{
		Validation:         p.opts.validation,
		GPUBasedValidation: p.opts.gpuValidation,
		MinFeatureLevel:    p.opts.minLevel,
	})
	if err != nil {
		return fmt.Errorf("mirror: %w", err)
	}
	dev := p.ctx.Device()

	if p.fence, err = fence.New(p.ctx, dev); err != nil {
		return fmt.Errorf("mirror: %w", err)
	}
	if p.surface, err = surface.Create(dev, win, width, height); err != nil {
		return fmt.Errorf("mirror: %w", err)
	}
	if p.pso, err = dev.CreatePipelineState(); err != nil {
		return fmt.Errorf("mirror: create pipeline state: %w", err)
	}
	if p.quad, err = dev.CreateGeometry(quadVertices, quadIndices); err != nil {
		return fmt.Errorf("mirror: create quad: %w", err)
	}
	if p.uniform, err = dev.CreateUniformBuffer(uniformBufferSize); err != nil {
		return fmt.Errorf("mirror: create uniform buffer: %w", err)
	}
	p.writeViewport()

	if p.session, err = capture.New(p.legacy, win); err != nil {
		return fmt.Errorf("mirror: %w", err)
	}
	p.bridge = bridge.New(p.legacy, dev)
	w, h := p.surface.Size()
	if err := p.bridge.Ensure(w, h); err != nil {
		return fmt.Errorf("mirror: %w", err)
	}
	return nil
}

func resolveBackend(o options) (gpucore.Backend, error) {
	switch {
	case o.backend != nil:
		return o.backend, nil
	case o.backendName != "":
		b, err := backend.Get(o.backendName)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNoBackend, err)
		}
		return b, nil
	}
	b, err := backend.Default()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoBackend, err)
	}
	return b, nil
}

func resolveCapture(o options) (gpucore.Legacy, error) {
	switch {
	case o.capture != nil:
		return o.capture, nil
	case o.captureName != "":
		l, err := backend.GetCapture(o.captureName)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNoCapture, err)
		}
		return l, nil
	}
	l, err := backend.DefaultCapture()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoCapture, err)
	}
	return l, nil
}

// OnResize rebuilds the surface for a new client size and resizes the
// shared texture. Zero in either dimension (a minimized window) is
// ignored. No frame is rendered.
func (p *Pipeline) OnResize(width, height uint32) error {
	if p.closed {
		return ErrClosed
	}
	if width == 0 || height == 0 {
		return nil
	}

	if err := p.fence.WaitForIdle(); err != nil {
		return fmt.Errorf("mirror: resize: %w", err)
	}
	if err := p.surface.Resize(width, height); err != nil {
		return fmt.Errorf("mirror: resize: %w", err)
	}

	// The shared texture mirrors the desktop, not the window: keep the
	// last frame's size once one has been captured.
	bw, bh := width, height
	if p.frameWidth != 0 {
		bw, bh = p.frameWidth, p.frameHeight
	}
	if err := p.bridge.Ensure(bw, bh); err != nil {
		return fmt.Errorf("mirror: resize: %w", err)
	}
	p.writeViewport()
	return nil
}

// OnUpdate copies u into the mapped uniform buffer. The next OnRender
// draws with it. Calls after Close are ignored.
func (p *Pipeline) OnUpdate(u Uniform) {
	if p.closed {
		return
	}
	u.put(p.uniform.Bytes())
}

// OnRender renders and presents one frame.
func (p *Pipeline) OnRender() error {
	if p.closed {
		return ErrClosed
	}

	// 1. Retire the previous frame.
	if err := p.fence.WaitForIdle(); err != nil {
		return fmt.Errorf("mirror: render: %w", err)
	}

	// 2. The swap chain owns the index.
	p.surface.RefreshIndex()

	// 3. Pull the latest desktop image into the shared texture.
	if err := p.pullFrame(); err != nil {
		return fmt.Errorf("mirror: render: %w", err)
	}

	// 4-5. Record.
	list := p.ctx.List()
	if err := p.record(list); err != nil {
		return fmt.Errorf("mirror: render: %w", err)
	}

	// 6. Submit.
	if err := p.ctx.Submit(list); err != nil {
		return fmt.Errorf("mirror: render: %w", err)
	}

	// 7. Present.
	if err := p.surface.Present(); err != nil {
		return fmt.Errorf("mirror: render: %w", err)
	}
	p.stats.Frames++
	return nil
}

func (p *Pipeline) pullFrame() error {
	res, err := p.session.Acquire(p.opts.captureTimeout)
	if err != nil {
		return err
	}
	switch res.Kind {
	case capture.Updated:
		p.stats.Updated++
		w, h := res.Frame.Size()
		if err := p.bridge.Ensure(w, h); err != nil {
			return err
		}
		if err := p.bridge.CopyFrom(res.Frame); err != nil {
			return err
		}
		p.frameWidth, p.frameHeight = w, h
	case capture.Unchanged:
		p.stats.Unchanged++
	case capture.TimedOut:
		p.stats.TimedOut++
	default:
		return fmt.Errorf("unexpected capture result %v", res.Kind)
	}
	return nil
}

func (p *Pipeline) record(list gpucore.CommandList) error {
	if err := p.ctx.ResetAllocator(p.fence); err != nil {
		return err
	}
	if err := list.Reset(p.ctx.Allocator(), p.pso); err != nil {
		return fmt.Errorf("reset command list: %w", err)
	}

	if err := p.bridge.Bind(list, p.uniform); err != nil {
		return errors.Join(err, list.Close())
	}
	list.SetViewport(p.surface.Viewport())
	list.SetScissorRect(p.surface.Scissor())

	if err := p.surface.Transition(list, gpucore.ResourceStateRenderTarget); err != nil {
		return errors.Join(err, list.Close())
	}
	rt, err := p.surface.Current()
	if err != nil {
		return errors.Join(err, list.Close())
	}
	list.SetRenderTarget(rt)
	list.ClearRenderTarget(rt, p.opts.clearColor)
	list.SetGeometry(p.quad)
	list.DrawIndexed(p.quad.IndexCount())
	if err := p.surface.Transition(list, gpucore.ResourceStatePresent); err != nil {
		return errors.Join(err, list.Close())
	}

	if err := list.Close(); err != nil {
		return fmt.Errorf("close command list: %w", err)
	}
	return nil
}

func (p *Pipeline) writeViewport() {
	w, h := p.surface.Size()
	putViewport(p.uniform.Bytes(), w, h)
}

// BackBufferIndex returns the back buffer the next frame renders to.
func (p *Pipeline) BackBufferIndex() int { return p.surface.Index() }

// SurfaceSize returns the back buffer size.
func (p *Pipeline) SurfaceSize() (width, height uint32) { return p.surface.Size() }

// SharedTextureSize returns the size of the shared desktop texture.
func (p *Pipeline) SharedTextureSize() (width, height uint32) { return p.bridge.Size() }

// Adapter returns the adapter the device was opened on.
func (p *Pipeline) Adapter() gpucore.AdapterInfo { return p.ctx.Adapter() }

// Output returns the duplicated monitor output.
func (p *Pipeline) Output() gpucore.OutputInfo { return p.session.Output() }

// Stats returns event counters.
func (p *Pipeline) Stats() Stats {
	s := p.stats
	s.BridgeRecreations = p.bridge.Recreations()
	s.CaptureRecreations = p.session.Recreations()
	return s
}

// Close waits for the GPU to go idle and releases every resource: the
// shared handle first, then the capture session, the surface and the
// device.
func (p *Pipeline) Close() error {
	if p.closed {
		return nil
	}
	var errs []error
	if err := p.fence.WaitForIdle(); err != nil {
		errs = append(errs, err)
	}
	errs = append(errs, p.teardown())
	return errors.Join(errs...)
}

// teardown releases whatever init managed to create.
func (p *Pipeline) teardown() error {
	p.closed = true
	var errs []error
	if p.bridge != nil {
		errs = append(errs, p.bridge.Close())
	}
	if p.session != nil {
		errs = append(errs, p.session.Close())
	}
	if p.legacy != nil {
		errs = append(errs, p.legacy.Close())
	}
	if p.uniform != nil {
		p.uniform.Destroy()
	}
	if p.quad != nil {
		p.quad.Destroy()
	}
	if p.pso != nil {
		p.pso.Destroy()
	}
	if p.surface != nil {
		p.surface.Destroy()
	}
	if p.fence != nil {
		p.fence.Destroy()
	}
	if p.ctx != nil {
		p.ctx.Close()
	} else if p.primary != nil {
		p.primary.Close()
	}
	return errors.Join(errs...)
}
