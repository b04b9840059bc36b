// Package surface manages the double-buffered presentation surface: the
// swap chain, a render target per back buffer, the viewport and clip rect
// derived from the buffer size, and the back buffer cursor.
package surface

import (
	"errors"
	"fmt"

	"github.com/gogpu/mirror/gpucore"
	"github.com/gogpu/mirror/internal/logging"
)

// BufferCount is the number of back buffers.
const BufferCount = 2

// SyncInterval presents on every vertical blank.
const SyncInterval = 1

var (
	// ErrReleased is returned when a render target is requested between
	// Release and Resize.
	ErrReleased = errors.New("surface: render targets released")

	// ErrNotPresentable is returned by Present when the current buffer
	// was left in the render target state.
	ErrNotPresentable = errors.New("surface: back buffer not in present state")
)

// Surface is the presentation surface.
type Surface struct {
	sc      gpucore.Swapchain
	targets [BufferCount]gpucore.RenderTarget
	states  [BufferCount]gpucore.ResourceState
	index   int

	width, height uint32
	viewport      gpucore.Viewport
	scissor       gpucore.Rect
}

// Create creates a swap chain of BufferCount buffers for win's client area
// and takes a render target reference to each buffer.
func Create(dev gpucore.Device, win gpucore.Window, width, height uint32) (*Surface, error) {
	sc, err := dev.CreateSwapchain(win, max(width, 1), max(height, 1), BufferCount)
	if err != nil {
		return nil, fmt.Errorf("surface: create swap chain: %w", err)
	}
	s := &Surface{sc: sc}
	if err := s.build(); err != nil {
		sc.Destroy()
		return nil, err
	}
	logging.Logger().Info("surface: created", "width", s.width, "height", s.height, "buffers", BufferCount)
	return s, nil
}

// build derives the viewport from the actual buffer size, takes buffer
// references and refreshes the index. All buffers start presentable.
func (s *Surface) build() error {
	w, h := s.sc.Size()
	s.width, s.height = max(w, 1), max(h, 1)
	s.viewport = gpucore.Viewport{
		Width:    float32(s.width),
		Height:   float32(s.height),
		MaxDepth: 1,
	}
	s.scissor = gpucore.Rect{
		Right:  int32(s.width),  //nolint:gosec // swap chain sizes fit int32
		Bottom: int32(s.height), //nolint:gosec // swap chain sizes fit int32
	}

	for i := range s.targets {
		rt, err := s.sc.Buffer(i)
		if err != nil {
			s.Release()
			return fmt.Errorf("surface: get buffer %d: %w", i, err)
		}
		s.targets[i] = rt
		s.states[i] = gpucore.ResourceStatePresent
	}
	s.RefreshIndex()
	return nil
}

// Release drops every back buffer reference. The surface must not record
// until Resize rebuilds the targets.
func (s *Surface) Release() {
	for i, rt := range s.targets {
		if rt != nil {
			rt.Release()
			s.targets[i] = nil
		}
	}
}

// Resize resizes the buffers to width x height, at least 1x1. The caller
// must have waited for the GPU to go idle.
func (s *Surface) Resize(width, height uint32) error {
	width, height = max(width, 1), max(height, 1)
	s.Release()
	if err := s.sc.ResizeBuffers(BufferCount, width, height); err != nil {
		return fmt.Errorf("surface: resize buffers to %dx%d: %w", width, height, err)
	}
	if err := s.build(); err != nil {
		return err
	}
	logging.Logger().Info("surface: resized", "width", s.width, "height", s.height, "index", s.index)
	return nil
}

// RefreshIndex re-reads the current back buffer index from the swap chain.
func (s *Surface) RefreshIndex() int {
	s.index = s.sc.CurrentBackBufferIndex()
	return s.index
}

// Index returns the cached back buffer index.
func (s *Surface) Index() int { return s.index }

// Current returns the render target of the current back buffer.
func (s *Surface) Current() (gpucore.RenderTarget, error) {
	rt := s.targets[s.index]
	if rt == nil {
		return nil, ErrReleased
	}
	return rt, nil
}

// CurrentState returns the tracked state of the current back buffer.
func (s *Surface) CurrentState() gpucore.ResourceState { return s.states[s.index] }

// Transition records a barrier moving the current back buffer to the given
// state. Nothing is recorded when it is already there.
func (s *Surface) Transition(list gpucore.CommandList, to gpucore.ResourceState) error {
	rt, err := s.Current()
	if err != nil {
		return err
	}
	from := s.states[s.index]
	if from == to {
		return nil
	}
	list.ResourceBarrier(rt, from, to)
	s.states[s.index] = to
	return nil
}

// Viewport returns the viewport covering the whole buffer.
func (s *Surface) Viewport() gpucore.Viewport { return s.viewport }

// Scissor returns the clip rect covering the whole buffer.
func (s *Surface) Scissor() gpucore.Rect { return s.scissor }

// Size returns the buffer size.
func (s *Surface) Size() (width, height uint32) { return s.width, s.height }

// Present presents the current buffer and refreshes the index.
func (s *Surface) Present() error {
	if s.states[s.index] != gpucore.ResourceStatePresent {
		return ErrNotPresentable
	}
	if err := s.sc.Present(SyncInterval); err != nil {
		return fmt.Errorf("surface: present: %w", err)
	}
	s.RefreshIndex()
	return nil
}

// Destroy releases the buffers and the swap chain.
func (s *Surface) Destroy() {
	s.Release()
	s.sc.Destroy()
}
