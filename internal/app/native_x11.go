//go:build (linux && !wayland) || (freebsd && !wayland) || (netbsd && !wayland) || (openbsd && !wayland)

package app

import (
	"errors"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
)

func nativeHandle(win *glfw.Window) (display, window uintptr, err error) {
	display = uintptr(unsafe.Pointer(glfw.GetX11Display()))
	window = uintptr(win.GetX11Window())
	if display == 0 || window == 0 {
		return 0, 0, errors.New("app: no X11 display or window")
	}
	return display, window, nil
}
