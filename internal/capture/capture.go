// Package capture drives the desktop duplication session of the legacy
// context: frame acquisition with release-before-acquire ordering, loss
// recovery with a single retry, timeouts and unchanged frames.
package capture

import (
	"errors"
	"fmt"
	"time"

	"github.com/gogpu/mirror/gpucore"
	"github.com/gogpu/mirror/internal/logging"
)

// ErrCaptureLost is returned when the session is lost again right after
// being recreated.
var ErrCaptureLost = errors.New("capture: duplication lost after recreation")

// Kind is the outcome of one acquisition. The zero Kind is not a valid
// outcome; failed acquisitions return it.
type Kind uint8

const (
	_ Kind = iota

	// Updated means a new desktop image is available.
	Updated

	// Unchanged means a frame arrived without a new desktop image.
	Unchanged

	// TimedOut means no frame arrived within the timeout.
	TimedOut
)

// String returns the outcome name.
func (k Kind) String() string {
	switch k {
	case Updated:
		return "Updated"
	case Unchanged:
		return "Unchanged"
	case TimedOut:
		return "TimedOut"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// State is the session state.
type State uint8

// Session states. A session is Lost between an access-lost report and its
// recreation, or for good after a failed retry.
const (
	Active State = iota
	Lost
)

// String returns the state name.
func (s State) String() string {
	if s == Lost {
		return "Lost"
	}
	return "Active"
}

// Result is one acquisition. Frame is set only for Updated and stays valid
// until the next Acquire.
type Result struct {
	Kind  Kind
	Frame gpucore.CaptureTexture
	Info  gpucore.FrameInfo
}

// Session is a duplication session bound to one output of one legacy
// device. It is replaced in place when the OS invalidates it.
type Session struct {
	legacy gpucore.Legacy
	output gpucore.Output
	dup    gpucore.Duplication
	state  State

	retries     int
	recreations int
}

// New creates a session on the output nearest to win.
func New(legacy gpucore.Legacy, win gpucore.Window) (*Session, error) {
	out, err := legacy.OutputForWindow(win)
	if err != nil {
		return nil, fmt.Errorf("capture: find output: %w", err)
	}
	dup, err := legacy.DuplicateOutput(out)
	if err != nil {
		return nil, fmt.Errorf("capture: duplicate output: %w", err)
	}
	info := out.Info()
	logging.Logger().Info("capture: session created",
		"backend", legacy.Name(),
		"output", info.Name,
		"bounds", info.Bounds.String())
	return &Session{legacy: legacy, output: out, dup: dup}, nil
}

// Acquire releases the previously held frame and requests the next one.
// A lost session is recreated; loss on the request itself is retried once.
func (s *Session) Acquire(timeout time.Duration) (Result, error) {
	defer func() { s.retries = 0 }()

	switch err := s.dup.ReleaseFrame(); {
	case err == nil, errors.Is(err, gpucore.ErrInvalidCall):
	case errors.Is(err, gpucore.ErrAccessLost):
		if err := s.recreate(); err != nil {
			return Result{}, err
		}
	default:
		return Result{}, fmt.Errorf("capture: release frame: %w", err)
	}

	for {
		info, frame, err := s.dup.AcquireNextFrame(timeout)
		switch {
		case err == nil:
		case errors.Is(err, gpucore.ErrWaitTimeout):
			logging.Logger().Debug("capture: timed out")
			return Result{Kind: TimedOut}, nil
		case errors.Is(err, gpucore.ErrAccessLost):
			if s.retries > 0 {
				s.state = Lost
				return Result{}, ErrCaptureLost
			}
			s.retries++
			if err := s.recreate(); err != nil {
				return Result{}, err
			}
			continue
		default:
			return Result{}, fmt.Errorf("capture: acquire next frame: %w", err)
		}

		if info.LastPresentTime == 0 {
			logging.Logger().Debug("capture: unchanged")
			return Result{Kind: Unchanged, Info: info}, nil
		}
		return Result{Kind: Updated, Frame: frame, Info: info}, nil
	}
}

// recreate replaces the duplication on the same output and device.
func (s *Session) recreate() error {
	s.state = Lost
	_ = s.dup.Close()
	dup, err := s.legacy.DuplicateOutput(s.output)
	if err != nil {
		return fmt.Errorf("capture: recreate duplication: %w", err)
	}
	s.dup = dup
	s.state = Active
	s.recreations++
	logging.Logger().Info("capture: session recreated", "count", s.recreations)
	return nil
}

// State returns the session state.
func (s *Session) State() State { return s.state }

// Retries returns the in-call retry counter. It is zero between calls.
func (s *Session) Retries() int { return s.retries }

// Recreations returns how many times the session was replaced.
func (s *Session) Recreations() int { return s.recreations }

// Output returns the duplicated output.
func (s *Session) Output() gpucore.OutputInfo { return s.output.Info() }

// Close releases any held frame and ends the session.
func (s *Session) Close() error {
	_ = s.dup.ReleaseFrame()
	return s.dup.Close()
}
