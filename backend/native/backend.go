// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package native implements the primary rendering context on gogpu/wgpu's
// hardware abstraction layer (Vulkan, Metal, DX12 or GLES, whichever HAL
// backends the binary registers).
//
// The D3D12-shaped gpucore contract maps onto HAL as follows:
//
//   - a command allocator is a HAL command encoder plus the command
//     buffers recorded from it since its last reset
//   - the swap chain tracks the back buffer index itself and acquires the
//     surface texture lazily, once per frame
//   - fences are marker values resolved against the queue's completed
//     submission index
//   - shared textures are imported from an OS shared memory region and
//     uploaded with Queue.WriteTexture whenever the producer publishes a
//     new frame
package native

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/mirror/backend"
	"github.com/gogpu/mirror/gpucore"
	"github.com/gogpu/mirror/internal/logging"
)

// Name is the registry name of this backend.
const Name = backend.BackendNative

var (
	// ErrNoHALBackend is returned by New when the binary registers no HAL
	// backend. Import github.com/gogpu/wgpu/hal/allbackends.
	ErrNoHALBackend = errors.New("native: no HAL backend registered")

	// ErrInitialized is returned by EnableValidation after enumeration.
	ErrInitialized = errors.New("native: instance already created")

	// ErrBadAdapter is returned by Open for an adapter this backend did
	// not enumerate.
	ErrBadAdapter = errors.New("native: unknown adapter")
)

// preference is the order HAL backends are tried in. The empty (noop)
// backend is never picked implicitly.
var preference = []gputypes.Backend{
	gputypes.BackendVulkan,
	gputypes.BackendMetal,
	gputypes.BackendDX12,
	gputypes.BackendGL,
}

// Backend is a HAL instance and its adapters.
type Backend struct {
	mu sync.Mutex

	api      hal.Backend
	flags    gputypes.InstanceFlags
	instance hal.Instance
	adapters []hal.ExposedAdapter
}

var _ gpucore.Backend = (*Backend)(nil)

// New picks the first registered HAL backend in preference order.
func New() (*Backend, error) {
	for _, v := range preference {
		if api, ok := hal.GetBackend(v); ok {
			return NewWithAPI(api), nil
		}
	}
	return nil, ErrNoHALBackend
}

// NewWithAPI returns a backend on a specific HAL implementation.
func NewWithAPI(api hal.Backend) *Backend {
	return &Backend{api: api}
}

// Name returns "native".
func (b *Backend) Name() string { return Name }

// Variant returns the HAL backend in use.
func (b *Backend) Variant() gputypes.Backend { return b.api.Variant() }

// EnableValidation requests the API validation layers. HAL fixes them at
// instance creation, so this must precede Adapters.
func (b *Backend) EnableValidation(gpuBased bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.instance != nil {
		return ErrInitialized
	}
	b.flags |= gputypes.InstanceFlagsDebug | gputypes.InstanceFlagsValidation
	if gpuBased {
		b.flags |= gputypes.InstanceFlagsGPUBasedValidation
	}
	return nil
}

func (b *Backend) ensureInstance() error {
	if b.instance != nil {
		return nil
	}
	inst, err := b.api.CreateInstance(&hal.InstanceDescriptor{
		Backends: gputypes.BackendsAll,
		Flags:    b.flags,
	})
	if err != nil {
		return fmt.Errorf("native: create instance: %w", err)
	}
	b.instance = inst
	b.adapters = inst.EnumerateAdapters(nil)
	logging.Logger().Debug("native: instance created",
		"variant", b.api.Variant().String(),
		"adapters", len(b.adapters))
	return nil
}

// Adapters enumerates the instance's adapters, creating it on first use.
func (b *Backend) Adapters() ([]gpucore.AdapterInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.ensureInstance(); err != nil {
		return nil, err
	}
	out := make([]gpucore.AdapterInfo, len(b.adapters))
	for i, a := range b.adapters {
		out[i] = gpucore.AdapterInfo{
			Index:        i,
			Name:         a.Info.Name,
			Driver:       a.Info.Driver,
			Software:     a.Info.DeviceType == gputypes.DeviceTypeCPU,
			FeatureLevel: featureLevel(a.Capabilities.Limits),
		}
	}
	return out, nil
}

// featureLevel approximates a Direct3D feature level from the limits the
// adapter reports.
func featureLevel(l gputypes.Limits) gpucore.FeatureLevel {
	switch {
	case l.MaxTextureDimension2D >= 16384:
		return gpucore.FeatureLevel12_0
	case l.MaxTextureDimension2D >= 8192:
		return gpucore.FeatureLevel11_0
	default:
		return gpucore.FeatureLevel10_0
	}
}

// Open opens a device and its queue on the adapter.
func (b *Backend) Open(info gpucore.AdapterInfo) (gpucore.Device, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.ensureInstance(); err != nil {
		return nil, err
	}
	if info.Index < 0 || info.Index >= len(b.adapters) {
		return nil, fmt.Errorf("%w: index %d", ErrBadAdapter, info.Index)
	}
	exposed := b.adapters[info.Index]
	od, err := exposed.Adapter.Open(0, exposed.Capabilities.Limits)
	if err != nil {
		return nil, fmt.Errorf("native: open %q: %w", exposed.Info.Name, err)
	}
	return newDevice(b, exposed, od), nil
}

// Close destroys the instance. Devices must be destroyed first.
func (b *Backend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, a := range b.adapters {
		a.Adapter.Destroy()
	}
	b.adapters = nil
	if b.instance != nil {
		b.instance.Destroy()
		b.instance = nil
	}
}

func (b *Backend) createSurface(win gpucore.Window) (hal.Surface, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.instance == nil {
		return nil, ErrBadAdapter
	}
	display, window := win.NativeHandle()
	return b.instance.CreateSurface(display, window)
}
