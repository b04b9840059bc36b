// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package app runs the mirror window: a borderless, transparent glfw
// window that shows the desktop under it through a draggable, zoomable
// triangle and redraws at a fixed rate.
//
// glfw must be driven from the main thread. Callers lock it with
// runtime.LockOSThread in an init function before calling New.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/gogpu/gpucontext"

	"github.com/gogpu/mirror"
	"github.com/gogpu/mirror/internal/config"
	"github.com/gogpu/mirror/internal/logging"
	"github.com/gogpu/mirror/internal/triangle"
)

// Title is the window title.
const Title = "mirror"

// App owns the window, the view model and the pipeline.
type App struct {
	cfg      *config.Config
	window   *glfw.Window
	handle   *Window
	state    *triangle.State
	pipeline *mirror.Pipeline

	scaleX, scaleY float64
	dirty          bool

	// err is the first failure raised inside a glfw callback.
	err error
}

// PipelineOptions turns the configuration into pipeline options.
func PipelineOptions(cfg *config.Config) []mirror.Option {
	opts := []mirror.Option{
		mirror.WithCaptureTimeout(cfg.CaptureTimeout),
	}
	if cfg.Backend != "" {
		opts = append(opts, mirror.WithBackendName(cfg.Backend))
	}
	if cfg.Capture != "" {
		opts = append(opts, mirror.WithCaptureName(cfg.Capture))
	}
	if cfg.GPUValidation {
		opts = append(opts, mirror.WithGPUValidation(true))
	} else if cfg.Validation {
		opts = append(opts, mirror.WithValidation(true))
	}
	return opts
}

// New opens the window and builds the pipeline for it. Extra options are
// applied after the ones derived from cfg.
func New(cfg *config.Config, opts ...mirror.Option) (*App, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("app: glfw init: %w", err)
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Decorated, glfw.False)
	glfw.WindowHint(glfw.TransparentFramebuffer, glfw.True)
	glfw.WindowHint(glfw.Floating, glfwBool(cfg.KeepTopMost))
	glfw.WindowHint(glfw.Resizable, glfw.True)

	x, y, width, height := 0, 0, cfg.Width, cfg.Height
	if cfg.Fullscreen {
		if m := glfw.GetPrimaryMonitor(); m != nil {
			x, y, width, height = m.GetWorkarea()
		}
	}

	win, err := glfw.CreateWindow(width, height, Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("app: create window: %w", err)
	}
	if cfg.Fullscreen {
		win.SetPos(x, y)
	}

	a := &App{
		cfg:    cfg,
		window: win,
		state: triangle.NewState(
			triangle.WithExcludeFromCapture(cfg.ExcludeFromCapture),
			triangle.WithKeepTopMost(cfg.KeepTopMost),
		),
	}
	if err := a.init(opts); err != nil {
		win.Destroy()
		glfw.Terminate()
		return nil, err
	}
	return a, nil
}

func (a *App) init(opts []mirror.Option) error {
	handle, err := newWindow(a.window)
	if err != nil {
		return err
	}
	a.handle = handle
	a.scaleX, a.scaleY = handle.pixelScale()

	fw, fh := a.window.GetFramebufferSize()
	a.state.ScreenSizeChanged(fw, fh)
	if a.cfg.SideLength > 0 {
		a.state.SetSideLength(int(a.cfg.SideLength))
	}
	a.applyExcludeFromCapture()

	p, err := mirror.New(handle, uint32(fw), uint32(fh), append(PipelineOptions(a.cfg), opts...)...) //nolint:gosec // framebuffer sizes are non-negative
	if err != nil {
		return err
	}
	a.pipeline = p
	p.OnUpdate(a.state.Uniform())

	logging.Logger().Info("app: window ready",
		"width", fw, "height", fh,
		"adapter", p.Adapter().Name,
		"output", p.Output().Name)

	a.window.SetFramebufferSizeCallback(a.onFramebufferSize)
	a.window.SetCursorPosCallback(a.onCursorPos)
	a.window.SetMouseButtonCallback(a.onMouseButton)
	a.window.SetScrollCallback(a.onScroll)
	a.window.SetKeyCallback(a.onKey)
	a.window.SetFocusCallback(a.onFocus)
	return nil
}

// Run redraws once per configured interval until the window is closed,
// Escape is pressed or ctx is done. A lost capture or device ends the loop
// with the error.
func (a *App) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.cfg.Interval())
	defer ticker.Stop()

	for !a.window.ShouldClose() {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		glfw.PollEvents()
		if a.err != nil {
			return a.err
		}
		if a.state.CloseRequested() {
			a.window.SetShouldClose(true)
			break
		}
		if err := a.frame(); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) frame() error {
	if a.dirty {
		a.pipeline.OnUpdate(a.state.Uniform())
		a.dirty = false
	}
	err := a.pipeline.OnRender()
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mirror.ErrCaptureLost):
		return fmt.Errorf("app: desktop capture lost: %w", err)
	default:
		return err
	}
}

// Stats returns the pipeline counters.
func (a *App) Stats() mirror.Stats { return a.pipeline.Stats() }

// Close releases the pipeline before the window it renders to.
func (a *App) Close() error {
	var err error
	if a.pipeline != nil {
		err = a.pipeline.Close()
		a.pipeline = nil
	}
	if a.window != nil {
		a.window.Destroy()
		a.window = nil
		glfw.Terminate()
	}
	return err
}

func (a *App) onFramebufferSize(_ *glfw.Window, width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	a.scaleX, a.scaleY = a.handle.pixelScale()
	a.state.ScreenSizeChanged(width, height)
	a.pipeline.OnUpdate(a.state.Uniform())
	a.dirty = false
	if err := a.pipeline.OnResize(uint32(width), uint32(height)); err != nil && a.err == nil { //nolint:gosec // checked positive above
		a.err = err
	}
}

func (a *App) onCursorPos(_ *glfw.Window, x, y float64) {
	if a.state.HandlePointer(moveEvent(x*a.scaleX, y*a.scaleY)) {
		a.dirty = true
	}
}

func (a *App) onMouseButton(w *glfw.Window, b glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
	x, y := w.GetCursorPos()
	ev, ok := buttonEvent(b, action, mods, x*a.scaleX, y*a.scaleY)
	if ok && a.state.HandlePointer(ev) {
		a.dirty = true
	}
}

func (a *App) onScroll(_ *glfw.Window, dx, dy float64) {
	if a.state.HandleScroll(gpucontext.ScrollEvent{DeltaX: dx, DeltaY: dy}) {
		a.dirty = true
	}
}

func (a *App) onFocus(_ *glfw.Window, focused bool) {
	if !focused && a.state.HandlePointer(gpucontext.PointerEvent{Type: gpucontext.PointerCancel}) {
		a.dirty = true
	}
}

// onKey handles Escape to close, T to toggle keep-top-most and X to toggle
// exclude-from-capture.
func (a *App) onKey(_ *glfw.Window, k glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
	if action != glfw.Press {
		return
	}
	gk, ok := key(k)
	if !ok {
		return
	}
	switch gk {
	case gpucontext.KeyT:
		on := a.state.KeepTopMost(true)
		a.window.SetAttrib(glfw.Floating, glfwBool(on))
		logging.Logger().Info("app: keep top most", "enabled", on)
	case gpucontext.KeyX:
		a.state.ExcludeFromCapture(true)
		a.applyExcludeFromCapture()
	default:
		a.state.HandleKey(gk)
	}
}

func (a *App) applyExcludeFromCapture() {
	on := a.state.ExcludeFromCapture(false)
	if err := setExcludeFromCapture(a.handle, on); err != nil {
		logging.Logger().Warn("app: exclude from capture", "enabled", on, "err", err)
		return
	}
	logging.Logger().Info("app: exclude from capture", "enabled", on)
}

func glfwBool(b bool) int {
	if b {
		return glfw.True
	}
	return glfw.False
}
