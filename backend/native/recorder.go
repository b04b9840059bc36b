package native

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/mirror/gpucore"
)

var errListClosed = errors.New("native: command list is closed")

// CommandAllocator is a HAL command encoder and the command buffers
// recorded from it since its last reset.
type CommandAllocator struct {
	dev     *Device
	encoder hal.CommandEncoder
	buffers []hal.CommandBuffer
	busy    bool
}

var _ gpucore.CommandAllocator = (*CommandAllocator)(nil)

// Reset recycles every command buffer recorded from the allocator.
func (a *CommandAllocator) Reset() error {
	if a.busy {
		return fmt.Errorf("native: reset allocator while recording: %w", gpucore.ErrInvalidCall)
	}
	a.encoder.ResetAll(a.buffers)
	a.buffers = a.buffers[:0]
	return nil
}

// Destroy releases the encoder and its buffers.
func (a *CommandAllocator) Destroy() {
	for _, b := range a.buffers {
		a.dev.device.FreeCommandBuffer(b)
	}
	a.buffers = nil
	a.encoder.Destroy()
}

// CommandList records a frame into its allocator's encoder.
//
// HAL draws inside render passes, so state set outside a pass is kept and
// applied when the pass begins: the pass is opened by the draw (or by
// Close when only a clear was recorded) and ended right after it.
type CommandList struct {
	dev   *Device
	alloc *CommandAllocator

	closed bool
	buffer hal.CommandBuffer

	pso      *PipelineState
	uniform  *UniformBuffer
	texture  *ImportedTexture
	viewport gpucore.Viewport
	scissor  gpucore.Rect
	target   *RenderTarget
	geometry *Geometry

	clear     *gputypes.Color
	passes    int
	lastError error
}

var _ gpucore.CommandList = (*CommandList)(nil)

// Reset begins recording against alloc with pso bound.
func (l *CommandList) Reset(alloc gpucore.CommandAllocator, pso gpucore.PipelineState) error {
	a, ok := alloc.(*CommandAllocator)
	if !ok {
		return fmt.Errorf("native: foreign command allocator %T", alloc)
	}
	p, ok := pso.(*PipelineState)
	if !ok && pso != nil {
		return fmt.Errorf("native: foreign pipeline state %T", pso)
	}
	if !l.closed {
		return fmt.Errorf("native: reset of a recording list: %w", gpucore.ErrInvalidCall)
	}
	if err := a.encoder.BeginEncoding("mirror frame"); err != nil {
		return fmt.Errorf("native: begin encoding: %w", mapError(err))
	}
	a.busy = true
	*l = CommandList{dev: l.dev, alloc: a, pso: p}
	return nil
}

func (l *CommandList) open() bool {
	if l.closed && l.lastError == nil {
		l.lastError = errListClosed
	}
	return !l.closed
}

// SetBindings selects the uniform block and the shared texture. A new
// frame published by the texture's producer is uploaded here.
func (l *CommandList) SetBindings(uniform gpucore.UniformBuffer, texture gpucore.ImportedTexture) {
	if !l.open() {
		return
	}
	u, _ := uniform.(*UniformBuffer)
	t, _ := texture.(*ImportedTexture)
	l.uniform, l.texture = u, t
	if t != nil {
		if err := t.sync(); err != nil && l.lastError == nil {
			l.lastError = err
		}
	}
}

// SetViewport records the viewport.
func (l *CommandList) SetViewport(vp gpucore.Viewport) {
	if l.open() {
		l.viewport = vp
	}
}

// SetScissorRect records the clip rectangle.
func (l *CommandList) SetScissorRect(r gpucore.Rect) {
	if l.open() {
		l.scissor = r
	}
}

// ResourceBarrier transitions a back buffer. Leaving the present state
// acquires the surface texture for this frame.
func (l *CommandList) ResourceBarrier(target gpucore.RenderTarget, before, after gpucore.ResourceState) {
	if !l.open() {
		return
	}
	rt, ok := target.(*RenderTarget)
	if !ok {
		l.lastError = fmt.Errorf("native: foreign render target %T", target)
		return
	}
	tex, _, err := rt.sc.acquire()
	if err != nil {
		l.lastError = err
		return
	}
	l.alloc.encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: tex,
		Range:   hal.TextureRange{Aspect: gputypes.TextureAspectAll},
		Usage: hal.TextureUsageTransition{
			OldUsage: textureUsage(before),
			NewUsage: textureUsage(after),
		},
	}})
}

func textureUsage(s gpucore.ResourceState) gputypes.TextureUsage {
	if s == gpucore.ResourceStateRenderTarget {
		return gputypes.TextureUsageRenderAttachment
	}
	return gputypes.TextureUsageNone
}

// SetRenderTarget records the color attachment.
func (l *CommandList) SetRenderTarget(target gpucore.RenderTarget) {
	if !l.open() {
		return
	}
	rt, ok := target.(*RenderTarget)
	if !ok {
		l.lastError = fmt.Errorf("native: foreign render target %T", target)
		return
	}
	l.target = rt
}

// ClearRenderTarget makes the next pass on target start with c.
func (l *CommandList) ClearRenderTarget(target gpucore.RenderTarget, c gpucore.Color) {
	if !l.open() {
		return
	}
	if rt, ok := target.(*RenderTarget); ok {
		l.target = rt
	}
	l.clear = &gputypes.Color{R: c.R, G: c.G, B: c.B, A: c.A}
}

// SetGeometry records the vertex and index buffers.
func (l *CommandList) SetGeometry(g gpucore.Geometry) {
	if !l.open() {
		return
	}
	l.geometry, _ = g.(*Geometry)
}

// DrawIndexed encodes one render pass drawing indexCount indices.
func (l *CommandList) DrawIndexed(indexCount uint32) {
	if !l.open() {
		return
	}
	switch {
	case l.pso == nil:
		l.lastError = errors.New("native: draw without pipeline state")
		return
	case l.geometry == nil:
		l.lastError = errors.New("native: draw without geometry")
		return
	case l.uniform == nil || l.texture == nil:
		l.lastError = errors.New("native: draw without bindings")
		return
	}
	group, err := l.texture.bindGroup(l.pso, l.uniform)
	if err != nil {
		l.lastError = err
		return
	}
	pass, ok := l.beginPass()
	if !ok {
		return
	}
	pass.SetPipeline(l.pso.pipeline)
	pass.SetBindGroup(0, group, nil)
	pass.SetVertexBuffer(0, l.geometry.vertices, 0)
	pass.SetIndexBuffer(l.geometry.indices, gputypes.IndexFormatUint32, 0)
	vp := l.viewport
	pass.SetViewport(vp.X, vp.Y, vp.Width, vp.Height, vp.MinDepth, vp.MaxDepth)
	s := l.scissor
	pass.SetScissorRect(uint32(max(s.Left, 0)), uint32(max(s.Top, 0)), uint32(max(s.Width(), 0)), uint32(max(s.Height(), 0))) //nolint:gosec // clamped
	pass.DrawIndexed(indexCount, 1, 0, 0, 0)
	pass.End()
}

// beginPass opens a pass on the current target. A pending clear is
// consumed by the first pass.
func (l *CommandList) beginPass() (hal.RenderPassEncoder, bool) {
	if l.target == nil {
		l.lastError = errors.New("native: render pass without target")
		return nil, false
	}
	_, view, err := l.target.sc.acquire()
	if err != nil {
		l.lastError = err
		return nil, false
	}
	att := hal.RenderPassColorAttachment{
		View:    view,
		LoadOp:  gputypes.LoadOpLoad,
		StoreOp: gputypes.StoreOpStore,
	}
	if l.clear != nil {
		att.LoadOp = gputypes.LoadOpClear
		att.ClearValue = *l.clear
		l.clear = nil
	}
	l.passes++
	return l.alloc.encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label:            "mirror",
		ColorAttachments: []hal.RenderPassColorAttachment{att},
	}), true
}

// Close ends recording. The first error recorded since Reset is
// returned and the encoding is discarded.
func (l *CommandList) Close() error {
	if l.closed {
		return errListClosed
	}
	if l.clear != nil && l.lastError == nil {
		if pass, ok := l.beginPass(); ok {
			pass.End()
		}
	}
	l.closed = true
	l.alloc.busy = false
	if l.lastError != nil {
		l.alloc.encoder.DiscardEncoding()
		return l.lastError
	}
	buf, err := l.alloc.encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("native: end encoding: %w", mapError(err))
	}
	l.buffer = buf
	l.alloc.buffers = append(l.alloc.buffers, buf)
	return nil
}

// Passes returns the number of render passes recorded since Reset.
func (l *CommandList) Passes() int { return l.passes }

// Destroy is a no-op; buffers belong to the allocator.
func (l *CommandList) Destroy() {}
