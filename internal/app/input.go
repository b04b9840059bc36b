package app

import (
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/gogpu/gpucontext"
)

// pointerButton maps a glfw mouse button to its pointer event button.
func pointerButton(b glfw.MouseButton) gpucontext.Button {
	switch b {
	case glfw.MouseButtonLeft:
		return gpucontext.ButtonLeft
	case glfw.MouseButtonRight:
		return gpucontext.ButtonRight
	case glfw.MouseButtonMiddle:
		return gpucontext.ButtonMiddle
	case glfw.MouseButton4:
		return gpucontext.ButtonX1
	case glfw.MouseButton5:
		return gpucontext.ButtonX2
	default:
		return gpucontext.ButtonNone
	}
}

func modifiers(m glfw.ModifierKey) gpucontext.Modifiers {
	var out gpucontext.Modifiers
	if m&glfw.ModShift != 0 {
		out |= gpucontext.ModShift
	}
	if m&glfw.ModControl != 0 {
		out |= gpucontext.ModControl
	}
	if m&glfw.ModAlt != 0 {
		out |= gpucontext.ModAlt
	}
	if m&glfw.ModSuper != 0 {
		out |= gpucontext.ModSuper
	}
	return out
}

// buttonEvent builds the pointer event for a press or release at (x, y)
// in framebuffer pixels. Repeats and unknown actions yield ok == false.
func buttonEvent(b glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey, x, y float64) (ev gpucontext.PointerEvent, ok bool) {
	ev = gpucontext.PointerEvent{
		PointerType: gpucontext.PointerTypeMouse,
		IsPrimary:   true,
		X:           x,
		Y:           y,
		Button:      pointerButton(b),
		Modifiers:   modifiers(mods),
	}
	switch action {
	case glfw.Press:
		ev.Type = gpucontext.PointerDown
		ev.Pressure = 0.5
	case glfw.Release:
		ev.Type = gpucontext.PointerUp
	default:
		return gpucontext.PointerEvent{}, false
	}
	return ev, true
}

func moveEvent(x, y float64) gpucontext.PointerEvent {
	return gpucontext.PointerEvent{
		Type:        gpucontext.PointerMove,
		PointerType: gpucontext.PointerTypeMouse,
		IsPrimary:   true,
		X:           x,
		Y:           y,
		Button:      gpucontext.ButtonNone,
	}
}

// key maps the keys the window reacts to.
func key(k glfw.Key) (gpucontext.Key, bool) {
	switch k {
	case glfw.KeyEscape:
		return gpucontext.KeyEscape, true
	case glfw.KeyT:
		return gpucontext.KeyT, true
	case glfw.KeyX:
		return gpucontext.KeyX, true
	default:
		return 0, false
	}
}
