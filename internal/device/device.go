// Package device brings up the primary graphics context: adapter selection,
// the logical device, its direct queue, and the single command allocator
// and list every frame records into.
package device

import (
	"errors"
	"fmt"

	"github.com/gogpu/mirror/gpucore"
	"github.com/gogpu/mirror/internal/logging"
)

var (
	// ErrNoHardwareAdapter is returned when no hardware adapter supports
	// the minimum feature level. There is no software fallback.
	ErrNoHardwareAdapter = errors.New("device: no hardware adapter with the required feature level")

	// ErrValidationUnavailable is returned in debug builds when the
	// validation layer cannot be enabled.
	ErrValidationUnavailable = errors.New("device: validation layer unavailable")

	// ErrAllocatorBusy is returned when the allocator is reset while a
	// submission recorded from it may still be executing.
	ErrAllocatorBusy = errors.New("device: command allocator still in use by the GPU")

	// ErrClosed is returned by operations on a closed context.
	ErrClosed = errors.New("device: context closed")
)

// Config selects validation and the adapter floor.
type Config struct {
	// Validation enables the debug layer. Always on in debug builds.
	Validation bool

	// GPUBasedValidation additionally enables GPU-based validation.
	// Always on in debug builds.
	GPUBasedValidation bool

	// MinFeatureLevel is the lowest acceptable adapter feature level.
	// Zero means FeatureLevel11_0.
	MinFeatureLevel gpucore.FeatureLevel
}

// Gate reports whether every submission up to a count has retired.
// The synchronization fence implements it.
type Gate interface {
	Retired(submissions uint64) bool
}

// Context owns the device, its queue, and the command allocator and list.
// It is the root of every other GPU resource's lifetime.
type Context struct {
	backend   gpucore.Backend
	device    gpucore.Device
	queue     gpucore.Queue
	allocator gpucore.CommandAllocator
	list      gpucore.CommandList
	adapter   gpucore.AdapterInfo

	submissions uint64
	closed      bool
}

// Create enables validation when requested, selects the first hardware
// adapter meeting cfg.MinFeatureLevel and opens a device on it.
func Create(backend gpucore.Backend, cfg Config) (*Context, error) {
	return create(backend, cfg, debugBuild)
}

func create(backend gpucore.Backend, cfg Config, debug bool) (*Context, error) {
	log := logging.Logger()

	if debug || cfg.Validation {
		err := backend.EnableValidation(debug || cfg.GPUBasedValidation)
		switch {
		case err != nil && debug:
			return nil, fmt.Errorf("%w: %w", ErrValidationUnavailable, err)
		case err != nil:
			log.Warn("device: validation layer unavailable", "backend", backend.Name(), "err", err)
		default:
			log.Info("device: validation enabled", "gpuBased", debug || cfg.GPUBasedValidation)
		}
	}

	adapters, err := backend.Adapters()
	if err != nil {
		return nil, fmt.Errorf("device: enumerate adapters: %w", err)
	}
	adapter, ok := SelectAdapter(adapters, cfg.MinFeatureLevel)
	if !ok {
		return nil, ErrNoHardwareAdapter
	}

	dev, err := backend.Open(adapter)
	if err != nil {
		return nil, fmt.Errorf("device: open %q: %w", adapter.Name, err)
	}

	alloc, err := dev.CreateCommandAllocator()
	if err != nil {
		dev.Destroy()
		return nil, fmt.Errorf("device: create command allocator: %w", err)
	}
	list, err := dev.CreateCommandList(alloc)
	if err != nil {
		alloc.Destroy()
		dev.Destroy()
		return nil, fmt.Errorf("device: create command list: %w", err)
	}

	log.Info("device: adapter selected",
		"backend", backend.Name(),
		"adapter", adapter.Name,
		"featureLevel", adapter.FeatureLevel.String())

	return &Context{
		backend:   backend,
		device:    dev,
		queue:     dev.Queue(),
		allocator: alloc,
		list:      list,
		adapter:   adapter,
	}, nil
}

// SelectAdapter returns the first non-software adapter whose feature level
// is at least minLevel (FeatureLevel11_0 when zero).
func SelectAdapter(adapters []gpucore.AdapterInfo, minLevel gpucore.FeatureLevel) (gpucore.AdapterInfo, bool) {
	if minLevel == 0 {
		minLevel = gpucore.FeatureLevel11_0
	}
	for _, a := range adapters {
		if a.Software || a.FeatureLevel < minLevel {
			continue
		}
		return a, true
	}
	return gpucore.AdapterInfo{}, false
}

// Device returns the logical device.
func (c *Context) Device() gpucore.Device { return c.device }

// Queue returns the direct queue.
func (c *Context) Queue() gpucore.Queue { return c.queue }

// Allocator returns the command allocator.
func (c *Context) Allocator() gpucore.CommandAllocator { return c.allocator }

// List returns the frame command list.
func (c *Context) List() gpucore.CommandList { return c.list }

// Adapter returns the selected adapter.
func (c *Context) Adapter() gpucore.AdapterInfo { return c.adapter }

// Submissions returns how many command lists have been submitted.
func (c *Context) Submissions() uint64 { return c.submissions }

// Submit enqueues a closed list on the queue without waiting.
func (c *Context) Submit(list gpucore.CommandList) error {
	if c.closed {
		return ErrClosed
	}
	if err := c.queue.Submit(list); err != nil {
		return fmt.Errorf("device: submit: %w", err)
	}
	c.submissions++
	return nil
}

// ResetAllocator resets the command allocator once gate confirms every
// submission so far has retired.
func (c *Context) ResetAllocator(gate Gate) error {
	if c.closed {
		return ErrClosed
	}
	if !gate.Retired(c.submissions) {
		return ErrAllocatorBusy
	}
	if err := c.allocator.Reset(); err != nil {
		return fmt.Errorf("device: reset allocator: %w", err)
	}
	return nil
}

// Close destroys the list, allocator, device and backend. All submitted
// work must have retired.
func (c *Context) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.list.Destroy()
	c.allocator.Destroy()
	c.device.Destroy()
	c.backend.Close()
}
