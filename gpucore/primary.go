package gpucore

// Backend is a primary graphics API able to enumerate adapters and open
// devices on them.
//
// Call order: EnableValidation (optional), Adapters, Open. Validation must
// be requested before the first enumeration because most APIs fix it at
// instance creation.
type Backend interface {
	// Name returns the backend identifier (e.g. "native").
	Name() string

	// EnableValidation turns on the API debug layer, and GPU-based
	// validation when gpuBased is true. Returns an error when the layer
	// is not installed or the backend is already initialized.
	EnableValidation(gpuBased bool) error

	// Adapters enumerates adapters in platform order.
	Adapters() ([]AdapterInfo, error)

	// Open creates a logical device on the given adapter.
	Open(adapter AdapterInfo) (Device, error)

	// Close releases the backend instance. Devices must be destroyed first.
	Close()
}

// Device is a logical device on the primary context.
//
// Resource lifecycle:
//   - Resources are created via Create* methods
//   - Resources are released via their own Destroy/Release methods
//   - Destroying a resource the GPU still reads is undefined behavior;
//     callers retire work through a [Fence] first
type Device interface {
	// === Submission ===

	// Queue returns the device's single direct queue.
	Queue() Queue

	// CreateCommandAllocator creates the backing store for command lists.
	CreateCommandAllocator() (CommandAllocator, error)

	// CreateCommandList creates a command list in the closed state.
	CreateCommandList(alloc CommandAllocator) (CommandList, error)

	// CreateFence creates a fence whose completed value starts at initial.
	CreateFence(initial uint64) (Fence, error)

	// === Presentation ===

	// CreateSwapchain creates a swap chain with bufferCount back buffers
	// for the window's client area.
	CreateSwapchain(win Window, width, height uint32, bufferCount int) (Swapchain, error)

	// === Pipeline Resources ===

	// CreatePipelineState creates the quad pipeline: root signature,
	// shaders, input layout and blend state, targeting the swap chain
	// format.
	CreatePipelineState() (PipelineState, error)

	// CreateGeometry uploads an indexed triangle list.
	CreateGeometry(vertices []Vertex, indices []uint32) (Geometry, error)

	// CreateUniformBuffer creates a persistently mapped, CPU-writable
	// constant buffer of at least size bytes.
	CreateUniformBuffer(size uint64) (UniformBuffer, error)

	// ImportShared opens a texture exported by the legacy context and
	// binds it as a shader resource at the given descriptor slot.
	ImportShared(desc SharedDesc, slot uint32) (ImportedTexture, error)

	// Destroy releases the device.
	Destroy()
}

// Queue submits closed command lists and signals fences.
type Queue interface {
	// Submit enqueues a closed command list. It does not block.
	Submit(list CommandList) error

	// Signal asks the queue to set the fence to value once all previously
	// submitted work completes.
	Signal(fence Fence, value uint64) error
}

// Fence is a GPU-advanced 64-bit counter with an OS wait primitive.
type Fence interface {
	// Completed returns the value the GPU has reached.
	Completed() uint64

	// Wait blocks the calling thread until Completed() >= value.
	Wait(value uint64) error

	// Destroy releases the fence.
	Destroy()
}

// CommandAllocator owns the memory command lists record into. Reset must
// only be called once the GPU finished every list recorded from it.
type CommandAllocator interface {
	Reset() error
	Destroy()
}

// CommandList records one frame of GPU commands.
type CommandList interface {
	// Reset reopens the list for recording against alloc with the given
	// initial pipeline state.
	Reset(alloc CommandAllocator, pso PipelineState) error

	// SetBindings binds the root signature, the uniform block at slot 0
	// and the shared texture at its import slot.
	SetBindings(uniform UniformBuffer, texture ImportedTexture)

	// SetViewport sets the viewport.
	SetViewport(vp Viewport)

	// SetScissorRect sets the clip rectangle.
	SetScissorRect(r Rect)

	// ResourceBarrier transitions target from before to after.
	ResourceBarrier(target RenderTarget, before, after ResourceState)

	// SetRenderTarget binds the output merger target.
	SetRenderTarget(target RenderTarget)

	// ClearRenderTarget clears target to c.
	ClearRenderTarget(target RenderTarget, c Color)

	// SetGeometry binds the vertex and index buffers.
	SetGeometry(g Geometry)

	// DrawIndexed draws indexCount indices of the bound geometry.
	DrawIndexed(indexCount uint32)

	// Close ends recording. The list can then be submitted.
	Close() error

	// Destroy releases the list.
	Destroy()
}

// Swapchain is a window's set of rotating back buffers.
type Swapchain interface {
	// BufferCount returns the number of back buffers.
	BufferCount() int

	// CurrentBackBufferIndex returns the buffer the next frame renders to.
	// Only the swap chain knows it; it is not guaranteed to advance by one.
	CurrentBackBufferIndex() int

	// Buffer returns a reference to back buffer i. The reference must be
	// released before ResizeBuffers.
	Buffer(i int) (RenderTarget, error)

	// ResizeBuffers resizes every back buffer. Fails while any buffer
	// reference is outstanding.
	ResizeBuffers(bufferCount int, width, height uint32) error

	// Size returns the actual back buffer size.
	Size() (width, height uint32)

	// Present queues the current back buffer for display.
	Present(syncInterval int) error

	// Destroy releases the swap chain.
	Destroy()
}

// RenderTarget is a reference to one back buffer and its render target view.
type RenderTarget interface {
	// Size returns the buffer's reported dimensions.
	Size() (width, height uint32)

	// Release drops the reference.
	Release()
}

// PipelineState is a compiled graphics pipeline.
type PipelineState interface {
	Destroy()
}

// Geometry is an uploaded vertex/index buffer pair.
type Geometry interface {
	IndexCount() uint32
	Destroy()
}

// UniformBuffer is a persistently mapped constant buffer.
type UniformBuffer interface {
	// Bytes returns the mapped memory. Writes are visible to the next
	// submission.
	Bytes() []byte

	Destroy()
}

// ImportedTexture is the primary-context view of a shared texture.
type ImportedTexture interface {
	Size() (width, height uint32)

	// Slot returns the descriptor slot the texture is bound at.
	Slot() uint32

	Destroy()
}
