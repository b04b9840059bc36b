package triangle

import (
	"image"
	"math"
	"time"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/mirror"
)

// zoomBurst is the longest pause between wheel steps that still counts as
// one continuous zoom.
const zoomBurst = 333 * time.Millisecond

// zoomAcceleration maps how long a zoom has lasted to the step multiplier,
// longest first.
var zoomAcceleration = []struct {
	after  time.Duration
	factor int
}{
	{1600 * time.Millisecond, 13},
	{1000 * time.Millisecond, 8},
	{600 * time.Millisecond, 5},
	{400 * time.Millisecond, 3},
	{200 * time.Millisecond, 2},
	{0, 1},
}

// State is the view model driven by window input. It owns the Model and
// the user-toggled window options.
type State struct {
	model *Model
	now   func() time.Time

	excludeFromCapture bool
	keepTopMost        bool

	dragging bool
	offset   image.Point

	zoomStart time.Time
	zoomPrev  time.Time

	closeRequested bool
}

// Option configures a State.
type Option func(*State)

// WithClock replaces time.Now for zoom acceleration.
func WithClock(now func() time.Time) Option {
	return func(s *State) { s.now = now }
}

// WithExcludeFromCapture sets the initial exclude-from-capture option.
func WithExcludeFromCapture(on bool) Option {
	return func(s *State) { s.excludeFromCapture = on }
}

// WithKeepTopMost sets the initial keep-top-most option.
func WithKeepTopMost(on bool) Option {
	return func(s *State) { s.keepTopMost = on }
}

// NewState returns a state with both window options on.
func NewState(opts ...Option) *State {
	s := &State{
		model:              NewModel(),
		now:                time.Now,
		excludeFromCapture: true,
		keepTopMost:        true,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.zoomStart = s.now()
	s.zoomPrev = s.zoomStart
	return s
}

// StartMoving begins a drag grabbed at (x, y).
func (s *State) StartMoving(x, y int) {
	s.offset = s.model.Top().Sub(image.Pt(x, y))
	s.dragging = true
}

// Moving moves the apex so it keeps its offset from the pointer.
func (s *State) Moving(x, y int) {
	if s.dragging {
		p := image.Pt(x, y).Add(s.offset)
		s.model.MoveTo(p.X, p.Y)
	}
}

// StopMoving ends the drag.
func (s *State) StopMoving() { s.dragging = false }

// LengthChanged zooms by delta wheel steps. Steps arriving in a quick
// burst are multiplied more the longer the burst lasts.
func (s *State) LengthChanged(delta int) {
	factor := 1
	now := s.now()
	if now.Sub(s.zoomPrev) > zoomBurst {
		s.zoomStart = now
	} else {
		elapsed := now.Sub(s.zoomStart)
		for _, a := range zoomAcceleration {
			if elapsed > a.after {
				factor = a.factor
				break
			}
		}
	}
	s.zoomPrev = now
	s.model.Zoom(delta * factor)
}

// ScreenSizeChanged rescopes the triangle and cancels a drag when the size
// actually changed.
func (s *State) ScreenSizeChanged(width, height int) {
	if s.model.Resize(width, height) {
		s.dragging = false
		s.offset = image.Point{}
	}
}

// SetSideLength sets the side length, clamped like a zoom.
func (s *State) SetSideLength(side int) { s.model.ZoomTo(side) }

// HandlePointer applies a pointer event and reports whether the triangle
// moved or the drag state changed.
func (s *State) HandlePointer(ev gpucontext.PointerEvent) bool {
	x, y := int(ev.X), int(ev.Y)
	switch ev.Type {
	case gpucontext.PointerDown:
		if ev.Button != gpucontext.ButtonLeft || s.dragging {
			return false
		}
		s.StartMoving(x, y)
		return true
	case gpucontext.PointerMove:
		if !s.dragging {
			return false
		}
		s.Moving(x, y)
		return true
	case gpucontext.PointerUp, gpucontext.PointerCancel:
		if !s.dragging || (ev.Type == gpucontext.PointerUp && ev.Button != gpucontext.ButtonLeft) {
			return false
		}
		s.StopMoving()
		return true
	default:
		return false
	}
}

// HandleScroll zooms by the vertical wheel steps of ev.
func (s *State) HandleScroll(ev gpucontext.ScrollEvent) bool {
	steps := int(ev.DeltaY)
	if steps == 0 && ev.DeltaY != 0 {
		steps = int(math.Copysign(1, ev.DeltaY))
	}
	if steps == 0 {
		return false
	}
	s.LengthChanged(steps)
	return true
}

// HandleKey reacts to a key press. Escape requests the window to close.
func (s *State) HandleKey(key gpucontext.Key) {
	if key == gpucontext.KeyEscape {
		s.closeRequested = true
	}
}

// CloseRequested reports whether the user asked to close the window.
func (s *State) CloseRequested() bool { return s.closeRequested }

// IsMoving reports whether a drag is in progress.
func (s *State) IsMoving() bool { return s.dragging }

// Vertices returns the apex, the bottom-right and the bottom-left vertex.
func (s *State) Vertices() [3]image.Point { return s.model.Vertices() }

// Top returns the apex.
func (s *State) Top() image.Point { return s.model.Top() }

// Side returns the side length.
func (s *State) Side() int { return s.model.Side() }

// Uniform returns the triangle as the renderer consumes it.
func (s *State) Uniform() mirror.Uniform {
	top := s.model.Top()
	return mirror.Uniform{
		ApexX:      float32(top.X),
		ApexY:      float32(top.Y),
		SideLength: float32(s.model.Side()),
	}
}

// ExcludeFromCapture returns the option, flipping it first when toggle is
// set.
func (s *State) ExcludeFromCapture(toggle bool) bool {
	if toggle {
		s.excludeFromCapture = !s.excludeFromCapture
	}
	return s.excludeFromCapture
}

// KeepTopMost returns the option, flipping it first when toggle is set.
func (s *State) KeepTopMost(toggle bool) bool {
	if toggle {
		s.keepTopMost = !s.keepTopMost
	}
	return s.keepTopMost
}
