package gfxtest

import (
	"fmt"
	"image"
	"time"

	"github.com/gogpu/mirror/gpucore"
)

// Step is one scripted AcquireNextFrame result.
type Step struct {
	Err           error
	Info          gpucore.FrameInfo
	Width, Height uint32
}

// Updated returns a step delivering a new frame of the given size.
func Updated(w, h uint32) Step {
	return Step{Info: gpucore.FrameInfo{LastPresentTime: 1, AccumulatedFrames: 1}, Width: w, Height: h}
}

// Unchanged returns a step delivering a frame with no new desktop image.
func Unchanged(w, h uint32) Step {
	return Step{Width: w, Height: h}
}

// Lost returns a step reporting access loss.
func Lost() Step { return Step{Err: gpucore.ErrAccessLost} }

// Timeout returns a step reporting a wait timeout.
func Timeout() Step { return Step{Err: gpucore.ErrWaitTimeout} }

// Legacy is a fake legacy capture context. The acquisition script is
// shared by every duplication it creates, so a recreated session continues
// where the lost one stopped. An exhausted script times out.
type Legacy struct {
	Log *Log

	Script       []Step
	ReleaseErrs  []error
	DuplicateErr error
	Bounds       image.Rectangle

	Duplications []*Duplication
	Textures     []*SharedTexture
	OpenHandles  map[gpucore.SharedHandle]bool
	ClosedOrder  []gpucore.SharedHandle
	Copies       int
	Closed       bool

	nextHandle gpucore.SharedHandle
}

// NewLegacy returns a legacy context with a 1920x1080 output.
func NewLegacy(script ...Step) *Legacy {
	return &Legacy{
		Log:         &Log{},
		Script:      script,
		Bounds:      image.Rect(0, 0, 1920, 1080),
		OpenHandles: make(map[gpucore.SharedHandle]bool),
	}
}

// Name implements gpucore.Legacy.
func (l *Legacy) Name() string { return "fake" }

// OutputForWindow implements gpucore.Legacy.
func (l *Legacy) OutputForWindow(gpucore.Window) (gpucore.Output, error) {
	return &Output{info: gpucore.OutputInfo{Name: "FAKE1", Bounds: l.Bounds}}, nil
}

// DuplicateOutput implements gpucore.Legacy.
func (l *Legacy) DuplicateOutput(gpucore.Output) (gpucore.Duplication, error) {
	if l.DuplicateErr != nil {
		return nil, l.DuplicateErr
	}
	d := &Duplication{legacy: l}
	l.Duplications = append(l.Duplications, d)
	l.Log.add("duplicate")
	return d, nil
}

// CreateSharedTexture implements gpucore.Legacy.
func (l *Legacy) CreateSharedTexture(width, height uint32) (gpucore.SharedTexture, error) {
	t := &SharedTexture{legacy: l, width: width, height: height}
	l.Textures = append(l.Textures, t)
	l.Log.add("texture %dx%d", width, height)
	return t, nil
}

// CopyResource implements gpucore.Legacy.
func (l *Legacy) CopyResource(dst gpucore.SharedTexture, src gpucore.CaptureTexture) error {
	dw, dh := dst.Size()
	sw, sh := src.Size()
	if dw != sw || dh != sh {
		return fmt.Errorf("gfxtest: copy %dx%d into %dx%d", sw, sh, dw, dh)
	}
	if dst.(*SharedTexture).Released {
		return fmt.Errorf("gfxtest: copy into released texture")
	}
	l.Copies++
	l.Log.add("copy %dx%d", sw, sh)
	return nil
}

// CloseSharedHandle implements gpucore.Legacy.
func (l *Legacy) CloseSharedHandle(h gpucore.SharedHandle) error {
	if !l.OpenHandles[h] {
		return fmt.Errorf("gfxtest: close of unknown handle %d", h)
	}
	delete(l.OpenHandles, h)
	l.ClosedOrder = append(l.ClosedOrder, h)
	l.Log.add("close handle %d", h)
	return nil
}

// Close implements gpucore.Legacy.
func (l *Legacy) Close() error {
	l.Closed = true
	return nil
}

// Output is a fake monitor output.
type Output struct{ info gpucore.OutputInfo }

// Info implements gpucore.Output.
func (o *Output) Info() gpucore.OutputInfo { return o.info }

// Duplication is a fake duplication session. Once it reports access loss
// every further call fails the same way.
type Duplication struct {
	legacy   *Legacy
	held     bool
	lost     bool
	Acquires int
	Releases int
	Closed   bool
}

// ReleaseFrame implements gpucore.Duplication.
func (d *Duplication) ReleaseFrame() error {
	if d.lost {
		return gpucore.ErrAccessLost
	}
	if !d.held {
		return gpucore.ErrInvalidCall
	}
	d.held = false
	d.Releases++
	if len(d.legacy.ReleaseErrs) > 0 {
		err := d.legacy.ReleaseErrs[0]
		d.legacy.ReleaseErrs = d.legacy.ReleaseErrs[1:]
		if err == gpucore.ErrAccessLost {
			d.lost = true
		}
		return err
	}
	return nil
}

// AcquireNextFrame implements gpucore.Duplication.
func (d *Duplication) AcquireNextFrame(time.Duration) (gpucore.FrameInfo, gpucore.CaptureTexture, error) {
	if d.lost {
		return gpucore.FrameInfo{}, nil, gpucore.ErrAccessLost
	}
	if d.held {
		return gpucore.FrameInfo{}, nil, gpucore.ErrInvalidCall
	}
	d.Acquires++
	if len(d.legacy.Script) == 0 {
		return gpucore.FrameInfo{}, nil, gpucore.ErrWaitTimeout
	}
	s := d.legacy.Script[0]
	d.legacy.Script = d.legacy.Script[1:]
	if s.Err != nil {
		if s.Err == gpucore.ErrAccessLost {
			d.lost = true
		}
		return gpucore.FrameInfo{}, nil, s.Err
	}
	d.held = true
	return s.Info, &CaptureTexture{Width: s.Width, Height: s.Height}, nil
}

// Held reports whether a frame is currently held.
func (d *Duplication) Held() bool { return d.held }

// Close implements gpucore.Duplication.
func (d *Duplication) Close() error {
	d.Closed = true
	d.held = false
	return nil
}

// CaptureTexture is a fake captured frame.
type CaptureTexture struct {
	Width, Height uint32
}

// Size implements gpucore.CaptureTexture.
func (t *CaptureTexture) Size() (width, height uint32) { return t.Width, t.Height }

// Format implements gpucore.CaptureTexture.
func (t *CaptureTexture) Format() gpucore.PixelFormat { return gpucore.PixelFormatBGRA8 }

// SharedTexture is a fake shareable texture.
type SharedTexture struct {
	legacy        *Legacy
	width, height uint32
	Handles       []gpucore.SharedHandle
	Released      bool
}

// Size implements gpucore.SharedTexture.
func (t *SharedTexture) Size() (width, height uint32) { return t.width, t.height }

// Format implements gpucore.SharedTexture.
func (t *SharedTexture) Format() gpucore.PixelFormat { return gpucore.PixelFormatBGRA8 }

// CreateSharedHandle implements gpucore.SharedTexture.
func (t *SharedTexture) CreateSharedHandle() (gpucore.SharedHandle, error) {
	t.legacy.nextHandle++
	h := t.legacy.nextHandle
	t.legacy.OpenHandles[h] = true
	t.Handles = append(t.Handles, h)
	t.legacy.Log.add("open handle %d", h)
	return h, nil
}

// Release implements gpucore.SharedTexture.
func (t *SharedTexture) Release() error {
	t.Released = true
	return nil
}
