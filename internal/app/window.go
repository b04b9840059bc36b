package app

import (
	"image"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/gogpu/mirror/gpucore"
)

// Window exposes a glfw window to the pipeline and the capture backends.
type Window struct {
	win     *glfw.Window
	display uintptr
	handle  uintptr
}

var _ gpucore.ScreenWindow = (*Window)(nil)

func newWindow(win *glfw.Window) (*Window, error) {
	display, handle, err := nativeHandle(win)
	if err != nil {
		return nil, err
	}
	return &Window{win: win, display: display, handle: handle}, nil
}

// NativeHandle returns the handles the surface is created from.
func (w *Window) NativeHandle() (display, window uintptr) { return w.display, w.handle }

// ScreenBounds returns the window rectangle in desktop coordinates.
func (w *Window) ScreenBounds() image.Rectangle {
	x, y := w.win.GetPos()
	width, height := w.win.GetSize()
	return image.Rect(x, y, x+width, y+height)
}

// pixelScale returns the framebuffer pixels per window coordinate.
func (w *Window) pixelScale() (sx, sy float64) {
	ww, wh := w.win.GetSize()
	fw, fh := w.win.GetFramebufferSize()
	if ww <= 0 || wh <= 0 {
		return 1, 1
	}
	return float64(fw) / float64(ww), float64(fh) / float64(wh)
}
