// Package gfxtest provides scripted in-memory implementations of the
// gpucore ports for tests.
//
// The fakes enforce the same preconditions a real driver debug layer does
// (closed lists only, no resize with outstanding buffer references, no
// frame release without a held frame) and record every call in an event
// log so tests can assert ordering.
package gfxtest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/mirror/gpucore"
)

// ErrInjected is a generic failure tests can script into a fake.
var ErrInjected = errors.New("gfxtest: injected failure")

// Log is an ordered record of calls across fakes.
type Log struct {
	mu     sync.Mutex
	events []string
}

func (l *Log) add(format string, args ...any) {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.events = append(l.events, fmt.Sprintf(format, args...))
	l.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (l *Log) Events() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

// Reset clears the log.
func (l *Log) Reset() {
	l.mu.Lock()
	l.events = nil
	l.mu.Unlock()
}

// Count returns how many events equal name.
func (l *Log) Count(name string) int {
	n := 0
	for _, e := range l.Events() {
		if e == name {
			n++
		}
	}
	return n
}

// Window is a fake native window.
type Window struct {
	Display, Handle uintptr
}

// NativeHandle implements gpucore.Window.
func (w Window) NativeHandle() (display, window uintptr) { return w.Display, w.Handle }

// Backend is a fake primary backend.
type Backend struct {
	AdapterList   []gpucore.AdapterInfo
	ValidationErr error
	OpenErr       error

	Validation    bool
	GPUValidation bool
	Opened        *Device
	Closed        bool
}

// NewBackend returns a backend with one hardware adapter at feature level
// 12_0.
func NewBackend() *Backend {
	return &Backend{AdapterList: []gpucore.AdapterInfo{{
		Index:        0,
		Name:         "Fake Hardware Adapter",
		FeatureLevel: gpucore.FeatureLevel12_0,
	}}}
}

// Name implements gpucore.Backend.
func (b *Backend) Name() string { return "fake" }

// EnableValidation implements gpucore.Backend.
func (b *Backend) EnableValidation(gpuBased bool) error {
	if b.ValidationErr != nil {
		return b.ValidationErr
	}
	b.Validation = true
	b.GPUValidation = gpuBased
	return nil
}

// Adapters implements gpucore.Backend.
func (b *Backend) Adapters() ([]gpucore.AdapterInfo, error) {
	return b.AdapterList, nil
}

// Open implements gpucore.Backend.
func (b *Backend) Open(adapter gpucore.AdapterInfo) (gpucore.Device, error) {
	if b.OpenErr != nil {
		return nil, b.OpenErr
	}
	b.Opened = NewDevice()
	b.Opened.Adapter = adapter
	return b.Opened, nil
}

// Close implements gpucore.Backend.
func (b *Backend) Close() { b.Closed = true }

// Device is a fake primary device. Every child object shares its Log.
type Device struct {
	Log     *Log
	Adapter gpucore.AdapterInfo

	FakeQueue     *Queue
	Swapchain     *Swapchain
	Lists         []*CommandList
	Allocators    []*CommandAllocator
	Fences        []*Fence
	Uniforms      []*UniformBuffer
	Imports       []*ImportedTexture
	Geometries    []*Geometry
	Pipelines     int
	Destroyed     bool
	ImportErr     error
	SwapchainErr  error
	FenceLag      bool
	IndexSequence []int
}

// NewDevice returns a device whose fence completes every signal
// immediately.
func NewDevice() *Device {
	d := &Device{Log: &Log{}}
	d.FakeQueue = &Queue{log: d.Log}
	return d
}

// Queue implements gpucore.Device.
func (d *Device) Queue() gpucore.Queue { return d.FakeQueue }

// CreateCommandAllocator implements gpucore.Device.
func (d *Device) CreateCommandAllocator() (gpucore.CommandAllocator, error) {
	a := &CommandAllocator{log: d.Log}
	d.Allocators = append(d.Allocators, a)
	return a, nil
}

// CreateCommandList implements gpucore.Device.
func (d *Device) CreateCommandList(gpucore.CommandAllocator) (gpucore.CommandList, error) {
	l := &CommandList{log: d.Log}
	d.Lists = append(d.Lists, l)
	return l, nil
}

// CreateFence implements gpucore.Device. With FenceLag set, signals only
// complete inside Wait.
func (d *Device) CreateFence(initial uint64) (gpucore.Fence, error) {
	f := &Fence{log: d.Log, completed: initial, Lag: d.FenceLag}
	d.Fences = append(d.Fences, f)
	return f, nil
}

// CreateSwapchain implements gpucore.Device.
func (d *Device) CreateSwapchain(_ gpucore.Window, width, height uint32, bufferCount int) (gpucore.Swapchain, error) {
	if d.SwapchainErr != nil {
		return nil, d.SwapchainErr
	}
	d.Swapchain = &Swapchain{
		log:      d.Log,
		count:    bufferCount,
		width:    width,
		height:   height,
		sequence: d.IndexSequence,
	}
	d.Log.add("swapchain %dx%d", width, height)
	return d.Swapchain, nil
}

// CreatePipelineState implements gpucore.Device.
func (d *Device) CreatePipelineState() (gpucore.PipelineState, error) {
	d.Pipelines++
	return &PipelineState{}, nil
}

// CreateGeometry implements gpucore.Device.
func (d *Device) CreateGeometry(vertices []gpucore.Vertex, indices []uint32) (gpucore.Geometry, error) {
	g := &Geometry{
		Vertices: append([]gpucore.Vertex(nil), vertices...),
		Indices:  append([]uint32(nil), indices...),
	}
	d.Geometries = append(d.Geometries, g)
	return g, nil
}

// CreateUniformBuffer implements gpucore.Device.
func (d *Device) CreateUniformBuffer(size uint64) (gpucore.UniformBuffer, error) {
	u := &UniformBuffer{Data: make([]byte, size)}
	d.Uniforms = append(d.Uniforms, u)
	return u, nil
}

// ImportShared implements gpucore.Device.
func (d *Device) ImportShared(desc gpucore.SharedDesc, slot uint32) (gpucore.ImportedTexture, error) {
	if d.ImportErr != nil {
		return nil, d.ImportErr
	}
	t := &ImportedTexture{Desc: desc, slot: slot}
	d.Imports = append(d.Imports, t)
	d.Log.add("import %dx%d", desc.Width, desc.Height)
	return t, nil
}

// Destroy implements gpucore.Device.
func (d *Device) Destroy() {
	d.Destroyed = true
	d.Log.add("device destroy")
}

// Queue is a fake direct queue.
type Queue struct {
	log       *Log
	Submitted []*CommandList
	SignalErr error
	SubmitErr error
}

// Submit implements gpucore.Queue.
func (q *Queue) Submit(list gpucore.CommandList) error {
	if q.SubmitErr != nil {
		return q.SubmitErr
	}
	l := list.(*CommandList)
	if l.recording {
		return errors.New("gfxtest: submit of an open command list")
	}
	q.Submitted = append(q.Submitted, l)
	l.Submissions = append(l.Submissions, append([]string(nil), l.Commands...))
	q.log.add("submit")
	return nil
}

// Signal implements gpucore.Queue.
func (q *Queue) Signal(fence gpucore.Fence, value uint64) error {
	if q.SignalErr != nil {
		return q.SignalErr
	}
	f := fence.(*Fence)
	f.pending = value
	if !f.Lag {
		f.completed = value
	}
	q.log.add("signal %d", value)
	return nil
}

// Fence is a fake fence.
type Fence struct {
	log       *Log
	completed uint64
	pending   uint64
	Lag       bool
	Waits     int
	Destroyed bool
}

// Completed implements gpucore.Fence.
func (f *Fence) Completed() uint64 { return f.completed }

// Wait implements gpucore.Fence.
func (f *Fence) Wait(value uint64) error {
	if f.pending < value {
		return fmt.Errorf("gfxtest: wait for %d never signaled", value)
	}
	f.Waits++
	f.completed = f.pending
	f.log.add("wait %d", value)
	return nil
}

// Destroy implements gpucore.Fence.
func (f *Fence) Destroy() { f.Destroyed = true }

// CommandAllocator is a fake command allocator.
type CommandAllocator struct {
	log       *Log
	Resets    int
	Destroyed bool
}

// Reset implements gpucore.CommandAllocator.
func (a *CommandAllocator) Reset() error {
	a.Resets++
	a.log.add("allocator reset")
	return nil
}

// Destroy implements gpucore.CommandAllocator.
func (a *CommandAllocator) Destroy() { a.Destroyed = true }

// CommandList is a fake command list. Commands holds the current
// recording; Submissions holds a snapshot per submit.
type CommandList struct {
	log         *Log
	recording   bool
	Commands    []string
	Submissions [][]string
	Uniform     *UniformBuffer
	Texture     *ImportedTexture
	Viewport    gpucore.Viewport
	Scissor     gpucore.Rect
	Target      *RenderTarget
	Destroyed   bool
}

// Reset implements gpucore.CommandList.
func (l *CommandList) Reset(gpucore.CommandAllocator, gpucore.PipelineState) error {
	if l.recording {
		return errors.New("gfxtest: reset of an open command list")
	}
	l.recording = true
	l.Commands = nil
	return nil
}

func (l *CommandList) record(format string, args ...any) {
	if !l.recording {
		panic("gfxtest: command recorded into a closed list")
	}
	l.Commands = append(l.Commands, fmt.Sprintf(format, args...))
}

// SetBindings implements gpucore.CommandList.
func (l *CommandList) SetBindings(uniform gpucore.UniformBuffer, texture gpucore.ImportedTexture) {
	l.Uniform, _ = uniform.(*UniformBuffer)
	l.Texture, _ = texture.(*ImportedTexture)
	w, h := texture.Size()
	l.record("bind slot=%d %dx%d", texture.Slot(), w, h)
}

// SetViewport implements gpucore.CommandList.
func (l *CommandList) SetViewport(vp gpucore.Viewport) {
	l.Viewport = vp
	l.record("viewport %gx%g", vp.Width, vp.Height)
}

// SetScissorRect implements gpucore.CommandList.
func (l *CommandList) SetScissorRect(r gpucore.Rect) {
	l.Scissor = r
	l.record("scissor %dx%d", r.Width(), r.Height())
}

// ResourceBarrier implements gpucore.CommandList.
func (l *CommandList) ResourceBarrier(target gpucore.RenderTarget, before, after gpucore.ResourceState) {
	rt := target.(*RenderTarget)
	l.record("barrier %d %s->%s", rt.Index, before, after)
}

// SetRenderTarget implements gpucore.CommandList.
func (l *CommandList) SetRenderTarget(target gpucore.RenderTarget) {
	l.Target = target.(*RenderTarget)
	l.record("target %d", l.Target.Index)
}

// ClearRenderTarget implements gpucore.CommandList.
func (l *CommandList) ClearRenderTarget(target gpucore.RenderTarget, c gpucore.Color) {
	rt := target.(*RenderTarget)
	l.record("clear %d %g,%g,%g,%g", rt.Index, c.R, c.G, c.B, c.A)
}

// SetGeometry implements gpucore.CommandList.
func (l *CommandList) SetGeometry(g gpucore.Geometry) {
	l.record("geometry %d", g.IndexCount())
}

// DrawIndexed implements gpucore.CommandList.
func (l *CommandList) DrawIndexed(indexCount uint32) {
	l.record("draw %d", indexCount)
}

// Close implements gpucore.CommandList.
func (l *CommandList) Close() error {
	if !l.recording {
		return errors.New("gfxtest: close of a closed command list")
	}
	l.recording = false
	return nil
}

// Destroy implements gpucore.CommandList.
func (l *CommandList) Destroy() { l.Destroyed = true }

// Swapchain is a fake swap chain. Present advances the index through
// sequence when set, else by one modulo the buffer count.
type Swapchain struct {
	log        *Log
	count      int
	width      uint32
	height     uint32
	index      int
	sequence   []int
	presents   int
	refs       int
	Reported   func(w, h uint32) (uint32, uint32)
	PresentErr error
	Destroyed  bool
}

// BufferCount implements gpucore.Swapchain.
func (s *Swapchain) BufferCount() int { return s.count }

// CurrentBackBufferIndex implements gpucore.Swapchain.
func (s *Swapchain) CurrentBackBufferIndex() int { return s.index }

// Buffer implements gpucore.Swapchain.
func (s *Swapchain) Buffer(i int) (gpucore.RenderTarget, error) {
	if i < 0 || i >= s.count {
		return nil, fmt.Errorf("gfxtest: buffer %d out of range", i)
	}
	s.refs++
	w, h := s.Size()
	return &RenderTarget{sc: s, Index: i, width: w, height: h}, nil
}

// ResizeBuffers implements gpucore.Swapchain.
func (s *Swapchain) ResizeBuffers(bufferCount int, width, height uint32) error {
	if s.refs > 0 {
		return gpucore.ErrBuffersReferenced
	}
	if width == 0 || height == 0 {
		return fmt.Errorf("gfxtest: resize to %dx%d: %w", width, height, gpucore.ErrInvalidCall)
	}
	s.count = bufferCount
	s.width, s.height = width, height
	s.log.add("resize %dx%d", width, height)
	return nil
}

// Size implements gpucore.Swapchain.
func (s *Swapchain) Size() (width, height uint32) {
	if s.Reported != nil {
		return s.Reported(s.width, s.height)
	}
	return s.width, s.height
}

// Present implements gpucore.Swapchain.
func (s *Swapchain) Present(int) error {
	if s.PresentErr != nil {
		return s.PresentErr
	}
	s.log.add("present %d", s.index)
	s.presents++
	if len(s.sequence) > 0 {
		s.index = s.sequence[(s.presents-1)%len(s.sequence)]
	} else {
		s.index = (s.index + 1) % s.count
	}
	return nil
}

// Refs returns the number of outstanding buffer references.
func (s *Swapchain) Refs() int { return s.refs }

// Destroy implements gpucore.Swapchain.
func (s *Swapchain) Destroy() {
	s.Destroyed = true
	s.log.add("swapchain destroy")
}

// RenderTarget is a fake back buffer reference.
type RenderTarget struct {
	sc            *Swapchain
	Index         int
	width, height uint32
	released      bool
}

// Size implements gpucore.RenderTarget.
func (t *RenderTarget) Size() (width, height uint32) { return t.width, t.height }

// Release implements gpucore.RenderTarget.
func (t *RenderTarget) Release() {
	if t.released {
		return
	}
	t.released = true
	t.sc.refs--
}

// PipelineState is a fake pipeline.
type PipelineState struct{ Destroyed bool }

// Destroy implements gpucore.PipelineState.
func (p *PipelineState) Destroy() { p.Destroyed = true }

// Geometry is a fake vertex/index buffer pair.
type Geometry struct {
	Vertices  []gpucore.Vertex
	Indices   []uint32
	Destroyed bool
}

// IndexCount implements gpucore.Geometry.
func (g *Geometry) IndexCount() uint32 { return uint32(len(g.Indices)) } //nolint:gosec // test geometry is tiny

// Destroy implements gpucore.Geometry.
func (g *Geometry) Destroy() { g.Destroyed = true }

// UniformBuffer is a fake mapped buffer.
type UniformBuffer struct {
	Data      []byte
	Destroyed bool
}

// Bytes implements gpucore.UniformBuffer.
func (u *UniformBuffer) Bytes() []byte { return u.Data }

// Destroy implements gpucore.UniformBuffer.
func (u *UniformBuffer) Destroy() { u.Destroyed = true }

// ImportedTexture is a fake import.
type ImportedTexture struct {
	Desc      gpucore.SharedDesc
	slot      uint32
	Destroyed bool
}

// Size implements gpucore.ImportedTexture.
func (t *ImportedTexture) Size() (width, height uint32) { return t.Desc.Width, t.Desc.Height }

// Slot implements gpucore.ImportedTexture.
func (t *ImportedTexture) Slot() uint32 { return t.slot }

// Destroy implements gpucore.ImportedTexture.
func (t *ImportedTexture) Destroy() { t.Destroyed = true }
