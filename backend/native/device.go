package native

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/mirror/gpucore"
	"github.com/gogpu/mirror/internal/logging"
)

// defaultFormat is the back buffer format used until a surface reports
// its preferred one.
const defaultFormat = gputypes.TextureFormatBGRA8Unorm

// Device is a HAL device with its queue.
type Device struct {
	backend *Backend
	adapter hal.ExposedAdapter
	device  hal.Device
	queue   *Queue

	// format is the swap chain format; pipeline states target it.
	format gputypes.TextureFormat
}

var _ gpucore.Device = (*Device)(nil)

func newDevice(b *Backend, exposed hal.ExposedAdapter, od hal.OpenDevice) *Device {
	d := &Device{
		backend: b,
		adapter: exposed,
		device:  od.Device,
		format:  defaultFormat,
	}
	d.queue = &Queue{dev: d, queue: od.Queue}
	logging.Logger().Info("native: device opened",
		"adapter", exposed.Info.Name,
		"type", exposed.Info.DeviceType.String(),
		"backend", exposed.Info.Backend.String())
	return d
}

// HAL returns the underlying HAL device.
func (d *Device) HAL() hal.Device { return d.device }

// Provider exposes the device to gpucontext consumers.
func (d *Device) Provider() gpucontext.DeviceProvider { return provider{d} }

// Queue returns the device's queue.
func (d *Device) Queue() gpucore.Queue { return d.queue }

// CreateCommandAllocator creates a HAL command encoder.
func (d *Device) CreateCommandAllocator() (gpucore.CommandAllocator, error) {
	enc, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "mirror frame"})
	if err != nil {
		return nil, fmt.Errorf("native: create command encoder: %w", err)
	}
	return &CommandAllocator{dev: d, encoder: enc}, nil
}

// CreateCommandList creates a closed command list recording into alloc.
func (d *Device) CreateCommandList(alloc gpucore.CommandAllocator) (gpucore.CommandList, error) {
	a, ok := alloc.(*CommandAllocator)
	if !ok {
		return nil, fmt.Errorf("native: foreign command allocator %T", alloc)
	}
	return &CommandList{dev: d, alloc: a, closed: true}, nil
}

// CreateFence creates a fence that starts at initial.
func (d *Device) CreateFence(initial uint64) (gpucore.Fence, error) {
	return &Fence{dev: d, completed: initial}, nil
}

// CreateSwapchain creates a surface for win and configures it.
func (d *Device) CreateSwapchain(win gpucore.Window, width, height uint32, bufferCount int) (gpucore.Swapchain, error) {
	surf, err := d.backend.createSurface(win)
	if err != nil {
		return nil, fmt.Errorf("native: create surface: %w", err)
	}
	sc := &Swapchain{dev: d, surface: surf, count: max(bufferCount, 1)}
	if err := sc.configure(width, height); err != nil {
		surf.Destroy()
		return nil, err
	}
	return sc, nil
}

// CreateGeometry uploads vertices and indices into GPU buffers.
func (d *Device) CreateGeometry(vertices []gpucore.Vertex, indices []uint32) (gpucore.Geometry, error) {
	vdata := make([]byte, len(vertices)*vertexStride)
	for i, v := range vertices {
		o := vdata[i*vertexStride:]
		binary.LittleEndian.PutUint32(o[0:], math.Float32bits(v.X))
		binary.LittleEndian.PutUint32(o[4:], math.Float32bits(v.Y))
		binary.LittleEndian.PutUint32(o[8:], math.Float32bits(v.U))
		binary.LittleEndian.PutUint32(o[12:], math.Float32bits(v.V))
	}
	idata := make([]byte, len(indices)*4)
	for i, ix := range indices {
		binary.LittleEndian.PutUint32(idata[i*4:], ix)
	}

	vb, err := d.upload("mirror quad vertices", vdata, gputypes.BufferUsageVertex)
	if err != nil {
		return nil, err
	}
	ib, err := d.upload("mirror quad indices", idata, gputypes.BufferUsageIndex)
	if err != nil {
		d.device.DestroyBuffer(vb)
		return nil, err
	}
	return &Geometry{dev: d, vertices: vb, indices: ib, count: uint32(len(indices))}, nil //nolint:gosec // quad
}

func (d *Device) upload(label string, data []byte, usage gputypes.BufferUsage) (hal.Buffer, error) {
	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: usage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("native: create %s: %w", label, err)
	}
	if err := d.queue.queue.WriteBuffer(buf, 0, data); err != nil {
		d.device.DestroyBuffer(buf)
		return nil, fmt.Errorf("native: upload %s: %w", label, err)
	}
	return buf, nil
}

// CreateUniformBuffer creates a uniform buffer with a CPU shadow copy.
// The shadow is flushed into the buffer when a list binding it is
// submitted.
func (d *Device) CreateUniformBuffer(size uint64) (gpucore.UniformBuffer, error) {
	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "mirror uniforms",
		Size:  size,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("native: create uniform buffer: %w", err)
	}
	return &UniformBuffer{dev: d, buffer: buf, shadow: make([]byte, size)}, nil
}

// Destroy waits for the GPU and destroys the device.
func (d *Device) Destroy() {
	if err := d.device.WaitIdle(); err != nil {
		logging.Logger().Warn("native: wait idle before destroy", "err", err)
	}
	d.device.Destroy()
}

// Geometry is a vertex and index buffer pair.
type Geometry struct {
	dev      *Device
	vertices hal.Buffer
	indices  hal.Buffer
	count    uint32
}

// IndexCount returns the number of indices.
func (g *Geometry) IndexCount() uint32 { return g.count }

// Destroy releases both buffers.
func (g *Geometry) Destroy() {
	g.dev.device.DestroyBuffer(g.vertices)
	g.dev.device.DestroyBuffer(g.indices)
}

// UniformBuffer is a uniform buffer written through a CPU shadow.
type UniformBuffer struct {
	dev    *Device
	buffer hal.Buffer
	shadow []byte
}

// Bytes returns the shadow copy.
func (u *UniformBuffer) Bytes() []byte { return u.shadow }

func (u *UniformBuffer) flush() error {
	return u.dev.queue.queue.WriteBuffer(u.buffer, 0, u.shadow)
}

// Destroy releases the buffer.
func (u *UniformBuffer) Destroy() { u.dev.device.DestroyBuffer(u.buffer) }

// provider adapts Device to gpucontext.DeviceProvider.
type provider struct{ d *Device }

func (p provider) Device() gpucontext.Device { return p.d.device }
func (p provider) Queue() gpucontext.Queue { return p.d.queue.queue }
func (p provider) SurfaceFormat() gputypes.TextureFormat { return p.d.format }
func (p provider) Adapter() gpucontext.Adapter { return p.d.adapter.Adapter }
func (p provider) AdapterInfo() gpucontext.AdapterInfo { return adapterInfo(p.d.adapter.Info) }

func adapterInfo(info gputypes.AdapterInfo) gpucontext.AdapterInfo {
	t := gpucontext.AdapterTypeUnknown
	switch info.DeviceType {
	case gputypes.DeviceTypeDiscreteGPU:
		t = gpucontext.AdapterTypeDiscrete
	case gputypes.DeviceTypeIntegratedGPU:
		t = gpucontext.AdapterTypeIntegrated
	case gputypes.DeviceTypeCPU:
		t = gpucontext.AdapterTypeSoftware
	}
	return gpucontext.AdapterInfo{Name: info.Name, Type: t}
}
