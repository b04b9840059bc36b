package app

import (
	"errors"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	"golang.org/x/sys/windows"
)

var (
	user32                       = windows.NewLazySystemDLL("user32.dll")
	procSetWindowDisplayAffinity = user32.NewProc("SetWindowDisplayAffinity")
)

const (
	wdaNone               = 0x00
	wdaExcludeFromCapture = 0x11
)

// nativeHandle returns the HWND. The surface resolves the module instance
// itself.
func nativeHandle(win *glfw.Window) (display, window uintptr, err error) {
	hwnd := uintptr(unsafe.Pointer(win.GetWin32Window()))
	if hwnd == 0 {
		return 0, 0, errors.New("app: window has no HWND")
	}
	return 0, hwnd, nil
}

// setExcludeFromCapture hides the window from desktop duplication so the
// mirror never captures itself.
func setExcludeFromCapture(w *Window, on bool) error {
	affinity := uintptr(wdaNone)
	if on {
		affinity = wdaExcludeFromCapture
	}
	if err := procSetWindowDisplayAffinity.Find(); err != nil {
		return err
	}
	r, _, err := procSetWindowDisplayAffinity.Call(w.handle, affinity)
	if r == 0 {
		return err
	}
	return nil
}
