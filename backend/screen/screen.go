// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package screen implements a portable legacy capture context on top of
// kbinani/screenshot.
//
// Every acquisition grabs the output's pixels on the CPU. A frame whose
// pixels equal the previous frame is reported as unchanged, a change of
// the display layout invalidates the session, and acquisitions are paced
// to a fixed interval. Shared textures are OS shared memory regions the
// primary context maps and uploads.
package screen

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/kbinani/screenshot"
	"golang.org/x/image/draw"

	"github.com/gogpu/mirror/backend"
	"github.com/gogpu/mirror/gpucore"
	"github.com/gogpu/mirror/internal/logging"
	"github.com/gogpu/mirror/internal/shm"
)

// Name is the registry name of this backend.
const Name = backend.CaptureScreen

// DefaultInterval paces acquisitions to 30 grabs per second.
const DefaultInterval = time.Second / 30

// ErrNoDisplay is returned when no active display is found.
var ErrNoDisplay = errors.New("screen: no active display")

// Grabber reads display geometry and pixels.
type Grabber interface {
	NumDisplays() int
	Bounds(display int) image.Rectangle
	Capture(r image.Rectangle) (*image.RGBA, error)
}

type screenshotGrabber struct{}

func (screenshotGrabber) NumDisplays() int { return screenshot.NumActiveDisplays() }

func (screenshotGrabber) Bounds(display int) image.Rectangle {
	return screenshot.GetDisplayBounds(display)
}

func (screenshotGrabber) Capture(r image.Rectangle) (*image.RGBA, error) {
	return screenshot.CaptureRect(r)
}

// Option configures a Legacy.
type Option func(*Legacy)

// WithGrabber replaces the screenshot grabber.
func WithGrabber(g Grabber) Option {
	return func(l *Legacy) { l.grabber = g }
}

// WithInterval sets the minimum time between two grabs.
func WithInterval(d time.Duration) Option {
	return func(l *Legacy) {
		if d >= 0 {
			l.interval = d
		}
	}
}

// WithClock replaces time.Now and time.Sleep.
func WithClock(now func() time.Time, sleep func(time.Duration)) Option {
	return func(l *Legacy) { l.now, l.sleep = now, sleep }
}

// Legacy is the screenshot capture context.
type Legacy struct {
	grabber  Grabber
	interval time.Duration
	now      func() time.Time
	sleep    func(time.Duration)

	mu      sync.Mutex
	handles map[gpucore.SharedHandle]struct{}
}

var _ gpucore.Legacy = (*Legacy)(nil)

// New returns a capture context.
func New(opts ...Option) *Legacy {
	l := &Legacy{
		grabber:  screenshotGrabber{},
		interval: DefaultInterval,
		now:      time.Now,
		sleep:    time.Sleep,
		handles:  make(map[gpucore.SharedHandle]struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Name returns "screen".
func (l *Legacy) Name() string { return Name }

// Output is one display.
type Output struct {
	index  int
	bounds image.Rectangle
}

// Info returns the display name and bounds.
func (o *Output) Info() gpucore.OutputInfo {
	return gpucore.OutputInfo{Name: fmt.Sprintf("display %d", o.index), Bounds: o.bounds}
}

// OutputForWindow returns the display sharing the largest area with win,
// or the first display when win does not report its position.
func (l *Legacy) OutputForWindow(win gpucore.Window) (gpucore.Output, error) {
	n := l.grabber.NumDisplays()
	if n <= 0 {
		return nil, ErrNoDisplay
	}
	best, bestArea := 0, -1
	if sw, ok := win.(gpucore.ScreenWindow); ok {
		wb := sw.ScreenBounds()
		for i := range n {
			r := wb.Intersect(l.grabber.Bounds(i))
			if a := r.Dx() * r.Dy(); a > bestArea {
				best, bestArea = i, a
			}
		}
	}
	return &Output{index: best, bounds: l.grabber.Bounds(best)}, nil
}

// DuplicateOutput starts a capture session on out. A display that changed
// mode or position since out was looked up is duplicated at its current
// bounds; a removed display reports ErrAccessLost.
func (l *Legacy) DuplicateOutput(out gpucore.Output) (gpucore.Duplication, error) {
	o, ok := out.(*Output)
	if !ok {
		return nil, fmt.Errorf("screen: foreign output %T", out)
	}
	if o.index >= l.grabber.NumDisplays() {
		return nil, fmt.Errorf("screen: display %d removed: %w", o.index, gpucore.ErrAccessLost)
	}
	if b := l.grabber.Bounds(o.index); b != o.bounds {
		logging.Logger().Info("screen: display changed",
			"display", o.index, "from", o.bounds.String(), "to", b.String())
		o.bounds = b
	}
	return &Duplication{legacy: l, output: o, bounds: o.bounds}, nil
}

// checkBounds reports ErrAccessLost when the display was removed or no
// longer has bounds b.
func (l *Legacy) checkBounds(index int, b image.Rectangle) error {
	if index >= l.grabber.NumDisplays() || l.grabber.Bounds(index) != b {
		return fmt.Errorf("screen: display %d changed: %w", index, gpucore.ErrAccessLost)
	}
	return nil
}

// CreateSharedTexture allocates an RGBA shared memory region.
func (l *Legacy) CreateSharedTexture(width, height uint32) (gpucore.SharedTexture, error) {
	r, err := shm.Create(width, height, gpucore.PixelFormatRGBA8)
	if err != nil {
		return nil, fmt.Errorf("screen: %w", err)
	}
	return &SharedTexture{legacy: l, region: r}, nil
}

// CopyResource copies a grabbed frame into dst and publishes it.
func (l *Legacy) CopyResource(dst gpucore.SharedTexture, src gpucore.CaptureTexture) error {
	st, ok := dst.(*SharedTexture)
	if !ok {
		return fmt.Errorf("screen: foreign shared texture %T", dst)
	}
	f, ok := src.(*Frame)
	if !ok {
		return fmt.Errorf("screen: foreign capture texture %T", src)
	}
	if st.region == nil {
		return fmt.Errorf("screen: copy into released texture: %w", gpucore.ErrInvalidCall)
	}
	sw, sh := st.Size()
	fw, fh := f.Size()
	if sw != fw || sh != fh {
		return fmt.Errorf("screen: copy %dx%d into %dx%d: %w", fw, fh, sw, sh, gpucore.ErrInvalidCall)
	}
	draw.Copy(st.image(), image.Point{}, f.img, f.img.Bounds(), draw.Src, nil)
	st.region.Publish()
	return nil
}

// CloseSharedHandle closes an exported handle.
func (l *Legacy) CloseSharedHandle(h gpucore.SharedHandle) error {
	l.mu.Lock()
	_, ok := l.handles[h]
	delete(l.handles, h)
	l.mu.Unlock()
	if !ok {
		return fmt.Errorf("screen: close unknown handle %d: %w", h, gpucore.ErrInvalidCall)
	}
	return shm.CloseHandle(h)
}

// OpenHandles returns the number of exported handles not yet closed.
func (l *Legacy) OpenHandles() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.handles)
}

// Close closes any handle still exported.
func (l *Legacy) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	var errs []error
	for h := range l.handles {
		errs = append(errs, shm.CloseHandle(h))
	}
	clear(l.handles)
	return errors.Join(errs...)
}

// Duplication paces grabs of one display at the bounds it was created
// with.
type Duplication struct {
	legacy *Legacy
	output *Output
	bounds image.Rectangle

	held     bool
	lost     bool
	last     time.Time
	previous []byte
}

var _ gpucore.Duplication = (*Duplication)(nil)

// ReleaseFrame releases the held frame.
func (d *Duplication) ReleaseFrame() error {
	if d.lost {
		return gpucore.ErrAccessLost
	}
	if !d.held {
		return gpucore.ErrInvalidCall
	}
	d.held = false
	return nil
}

// AcquireNextFrame grabs the display once the pacing interval elapsed,
// waiting at most timeout for it.
func (d *Duplication) AcquireNextFrame(timeout time.Duration) (gpucore.FrameInfo, gpucore.CaptureTexture, error) {
	l := d.legacy
	if d.lost {
		return gpucore.FrameInfo{}, nil, gpucore.ErrAccessLost
	}
	if d.held {
		return gpucore.FrameInfo{}, nil, gpucore.ErrInvalidCall
	}
	if err := l.checkBounds(d.output.index, d.bounds); err != nil {
		d.lost = true
		return gpucore.FrameInfo{}, nil, err
	}

	if !d.last.IsZero() {
		wait := d.last.Add(l.interval).Sub(l.now())
		if wait > timeout {
			if timeout > 0 {
				l.sleep(timeout)
			}
			return gpucore.FrameInfo{}, nil, gpucore.ErrWaitTimeout
		}
		if wait > 0 {
			l.sleep(wait)
		}
	}

	img, err := l.grabber.Capture(d.bounds)
	if err != nil {
		return gpucore.FrameInfo{}, nil, fmt.Errorf("screen: capture %v: %w", d.bounds, err)
	}
	now := l.now()
	d.last = now
	d.held = true

	if d.previous != nil && bytes.Equal(d.previous, img.Pix) {
		return gpucore.FrameInfo{}, &Frame{img: img}, nil
	}
	d.previous = img.Pix
	info := gpucore.FrameInfo{LastPresentTime: now.UnixNano(), AccumulatedFrames: 1}
	logging.Logger().Debug("screen: frame", "width", img.Rect.Dx(), "height", img.Rect.Dy())
	return info, &Frame{img: img}, nil
}

// Close ends the session.
func (d *Duplication) Close() error {
	d.held = false
	d.previous = nil
	return nil
}

// Frame is a grabbed RGBA image.
type Frame struct {
	img *image.RGBA
}

var _ gpucore.CaptureTexture = (*Frame)(nil)

// Size returns the image size.
func (f *Frame) Size() (width, height uint32) {
	b := f.img.Bounds()
	return uint32(b.Dx()), uint32(b.Dy()) //nolint:gosec // image sizes are non-negative
}

// Format returns RGBA8.
func (f *Frame) Format() gpucore.PixelFormat { return gpucore.PixelFormatRGBA8 }

// SharedTexture is a shared memory region.
type SharedTexture struct {
	legacy *Legacy
	region *shm.Region
}

var _ gpucore.SharedTexture = (*SharedTexture)(nil)

// Size returns the region size.
func (t *SharedTexture) Size() (width, height uint32) {
	if t.region == nil {
		return 0, 0
	}
	return t.region.Width(), t.region.Height()
}

// Format returns RGBA8.
func (t *SharedTexture) Format() gpucore.PixelFormat { return gpucore.PixelFormatRGBA8 }

// CreateSharedHandle exports a new handle to the region.
func (t *SharedTexture) CreateSharedHandle() (gpucore.SharedHandle, error) {
	if t.region == nil {
		return 0, fmt.Errorf("screen: export released texture: %w", gpucore.ErrInvalidCall)
	}
	h, err := t.region.Export()
	if err != nil {
		return 0, fmt.Errorf("screen: %w", err)
	}
	t.legacy.mu.Lock()
	t.legacy.handles[h] = struct{}{}
	t.legacy.mu.Unlock()
	return h, nil
}

// image views the region's pixels as an RGBA image.
func (t *SharedTexture) image() *image.RGBA {
	w, h := t.region.Width(), t.region.Height()
	return &image.RGBA{
		Pix:    t.region.Pixels(),
		Stride: int(t.region.Stride()),
		Rect:   image.Rect(0, 0, int(w), int(h)),
	}
}

// Release unmaps the region. Exported handles stay valid.
func (t *SharedTexture) Release() error {
	if t.region == nil {
		return nil
	}
	err := t.region.Close()
	t.region = nil
	return err
}
